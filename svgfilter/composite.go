package svgfilter

import (
	"github.com/chewxy/math32"

	"github.com/benoitkugler/svgrender/svgtree"
)

func (st *state) flood(p svgtree.FeFlood) *Buffer {
	out := NewBuffer(st.src.W, st.src.H)
	a := float32(p.Color.A) / 255 * float32(p.Opacity)
	r := storeU8(float32(p.Color.R) / 255 * a)
	g := storeU8(float32(p.Color.G) / 255 * a)
	b := storeU8(float32(p.Color.B) / 255 * a)
	al := storeU8(a)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = r
		out.Pix[i+1] = g
		out.Pix[i+2] = b
		out.Pix[i+3] = al
	}
	return out
}

// applyOffset shifts the input by a whole number of pixels, exposing
// transparent black at the edges.
func (st *state) applyOffset(p svgtree.FeOffset) *Buffer {
	in := st.input(p.In).buf
	dx := int(math32.Round(float32(p.Dx) * st.scaleX))
	dy := int(math32.Round(float32(p.Dy) * st.scaleY))
	out := NewBuffer(in.W, in.H)
	for y := 0; y < in.H; y++ {
		sy := y - dy
		if sy < 0 || sy >= in.H {
			continue
		}
		x0, x1 := 0, in.W
		if dx > 0 {
			x0 = dx
		} else {
			x1 = in.W + dx
		}
		if x0 >= x1 {
			continue
		}
		copy(out.Pix[out.offset(x0, y):out.offset(x1, y)],
			in.Pix[in.offset(x0-dx, sy):in.offset(x1-dx, sy)])
	}
	return out
}

func (st *state) composite(p svgtree.FeComposite) *Buffer {
	a := st.input(p.In).buf
	b := st.input(p.In2).buf
	out := NewBuffer(a.W, a.H)

	if p.Operator == svgtree.CompArithmetic {
		k1, k2 := float32(p.K1), float32(p.K2)
		k3, k4 := float32(p.K3), float32(p.K4)
		for i := 0; i < len(out.Pix); i += 4 {
			ar, ag, ab, aa := a.loadF32(i)
			br, bg, bb, ba := b.loadF32(i)
			// alpha first: color channels are clamped against it to
			// keep the result premultiplied
			oa := clampF(k1*aa*ba + k2*aa + k3*ba + k4)
			or := arith(k1, k2, k3, k4, ar, br, oa)
			og := arith(k1, k2, k3, k4, ag, bg, oa)
			ob := arith(k1, k2, k3, k4, ab, bb, oa)
			out.storeF32(i, or, og, ob, oa)
		}
		return out
	}

	for i := 0; i < len(out.Pix); i += 4 {
		ar, ag, ab, aa := a.loadF32(i)
		br, bg, bb, ba := b.loadF32(i)
		var fa, fb float32
		switch p.Operator {
		case svgtree.CompOver:
			fa, fb = 1, 1-aa
		case svgtree.CompIn:
			fa, fb = ba, 0
		case svgtree.CompOut:
			fa, fb = 1-ba, 0
		case svgtree.CompAtop:
			fa, fb = ba, 1-aa
		case svgtree.CompXor:
			fa, fb = 1-ba, 1-aa
		}
		out.storeF32(i, ar*fa+br*fb, ag*fa+bg*fb, ab*fa+bb*fb, aa*fa+ba*fb)
	}
	return out
}

func arith(k1, k2, k3, k4, a, b, alpha float32) float32 {
	v := clampF(k1*a*b + k2*a + k3*b + k4)
	if v > alpha {
		return alpha
	}
	return v
}

func clampF(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (st *state) merge(p svgtree.FeMerge) *Buffer {
	out := NewBuffer(st.src.W, st.src.H)
	for _, name := range p.Inputs {
		in := st.input(name).buf
		compositeOver(out, in)
	}
	return out
}

// compositeOver blends src over dst, in place.
func compositeOver(dst, src *Buffer) {
	for i := 0; i < len(dst.Pix); i += 4 {
		sr, sg, sb, sa := src.loadF32(i)
		dr, dg, db, da := dst.loadF32(i)
		inv := 1 - sa
		dst.storeF32(i, sr+dr*inv, sg+dg*inv, sb+db*inv, sa+da*inv)
	}
}

// tile repeats the input's subregion over the whole region. Without
// a subregion on the input, tiling is the identity.
func (st *state) tile(p svgtree.FeTile) *Buffer {
	in := st.input(p.In)
	if !in.hasSub {
		return in.buf.Clone()
	}
	r := in.sub
	tw, th := r.x1-r.x0, r.y1-r.y0
	out := NewBuffer(in.buf.W, in.buf.H)
	if tw <= 0 || th <= 0 {
		return out
	}
	for y := 0; y < out.H; y++ {
		sy := r.y0 + mod(y-r.y0, th)
		for x := 0; x < out.W; x++ {
			sx := r.x0 + mod(x-r.x0, tw)
			copy(out.Pix[out.offset(x, y):out.offset(x, y)+4],
				in.buf.Pix[in.buf.offset(sx, sy):in.buf.offset(sx, sy)+4])
		}
	}
	return out
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// displace moves each pixel of the input by the scaled channel
// values of the displacement map.
func (st *state) displace(p svgtree.FeDisplacementMap) *Buffer {
	in := st.input(p.In).buf
	dmap := st.input(p.In2).buf
	out := NewBuffer(in.W, in.H)
	sx := float32(p.Scale) * st.scaleX
	sy := float32(p.Scale) * st.scaleY
	for y := 0; y < in.H; y++ {
		for x := 0; x < in.W; x++ {
			i := in.offset(x, y)
			dr, dg, db, da := dmap.loadF32(i)
			ur, ug, ub := unpremultiply(dr, dg, db, da)
			tx := x + int(math32.Round(sx*(channel(ur, ug, ub, da, p.XChannel)-0.5)))
			ty := y + int(math32.Round(sy*(channel(ur, ug, ub, da, p.YChannel)-0.5)))
			if tx < 0 || tx >= in.W || ty < 0 || ty >= in.H {
				continue
			}
			copy(out.Pix[i:i+4], in.Pix[in.offset(tx, ty):in.offset(tx, ty)+4])
		}
	}
	return out
}

func channel(r, g, b, a float32, c svgtree.Channel) float32 {
	switch c {
	case svgtree.ChannelR:
		return r
	case svgtree.ChannelG:
		return g
	case svgtree.ChannelB:
		return b
	}
	return a
}
