package svgfilter

import (
	"github.com/benoitkugler/svgrender/svgtree"
)

// morphology runs a rectangular min (erode) or max (dilate) window,
// separably per axis, on premultiplied channels.
func (st *state) morphology(p svgtree.FeMorphology) *Buffer {
	in := st.input(p.In).buf
	rx := int(float32(p.RadiusX) * st.scaleX)
	ry := int(float32(p.RadiusY) * st.scaleY)
	if rx <= 0 && ry <= 0 {
		return in.Clone()
	}
	dilate := p.Operator == svgtree.MorphDilate
	tmp := NewBuffer(in.W, in.H)
	morphH(in, tmp, rx, dilate)
	out := NewBuffer(in.W, in.H)
	morphV(tmp, out, ry, dilate)
	return out
}

func extremum(cur, v uint8, dilate bool) uint8 {
	if dilate == (v > cur) {
		return v
	}
	return cur
}

func morphH(src, dst *Buffer, r int, dilate bool) {
	if r <= 0 {
		copy(dst.Pix, src.Pix)
		return
	}
	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			var acc [4]uint8
			if !dilate {
				acc = [4]uint8{255, 255, 255, 255}
			}
			for wx := x - r; wx <= x+r; wx++ {
				if wx < 0 || wx >= src.W {
					// outside is transparent black
					acc = extremum4(acc, [4]uint8{}, dilate)
					continue
				}
				i := src.offset(wx, y)
				acc = extremum4(acc, [4]uint8{src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3]}, dilate)
			}
			copy(dst.Pix[dst.offset(x, y):dst.offset(x, y)+4], acc[:])
		}
	}
}

func morphV(src, dst *Buffer, r int, dilate bool) {
	if r <= 0 {
		copy(dst.Pix, src.Pix)
		return
	}
	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			var acc [4]uint8
			if !dilate {
				acc = [4]uint8{255, 255, 255, 255}
			}
			for wy := y - r; wy <= y+r; wy++ {
				if wy < 0 || wy >= src.H {
					acc = extremum4(acc, [4]uint8{}, dilate)
					continue
				}
				i := src.offset(x, wy)
				acc = extremum4(acc, [4]uint8{src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3]}, dilate)
			}
			copy(dst.Pix[dst.offset(x, y):dst.offset(x, y)+4], acc[:])
		}
	}
}

func extremum4(acc, v [4]uint8, dilate bool) [4]uint8 {
	for c := 0; c < 4; c++ {
		acc[c] = extremum(acc[c], v[c], dilate)
	}
	return acc
}

// convolve applies the kernel, rotated 180 degrees as the SVG model
// requires, on premultiplied channels unless PreserveAlpha.
func (st *state) convolve(p svgtree.FeConvolveMatrix) *Buffer {
	in := st.input(p.In).buf
	out := NewBuffer(in.W, in.H)
	ox, oy := p.OrderX, p.OrderY
	inv := float32(1 / p.Divisor)
	bias := float32(p.Bias)

	// working copy in straight alpha when alpha is preserved
	src := in
	if p.PreserveAlpha {
		src = NewBuffer(in.W, in.H)
		for i := 0; i < len(in.Pix); i += 4 {
			r, g, b, a := in.loadF32(i)
			ur, ug, ub := unpremultiply(r, g, b, a)
			src.storeF32(i, ur, ug, ub, a)
		}
	}

	for y := 0; y < in.H; y++ {
		for x := 0; x < in.W; x++ {
			var sum [4]float32
			for ky := 0; ky < oy; ky++ {
				for kx := 0; kx < ox; kx++ {
					sx := x - p.TargetX + kx
					sy := y - p.TargetY + ky
					switch p.Edge {
					case svgtree.EdgeDuplicate:
						sx = clampInt(sx, 0, in.W-1)
						sy = clampInt(sy, 0, in.H-1)
					case svgtree.EdgeWrap:
						sx = mod(sx, in.W)
						sy = mod(sy, in.H)
					default:
						if sx < 0 || sx >= in.W || sy < 0 || sy >= in.H {
							continue
						}
					}
					k := float32(p.Kernel[(oy-1-ky)*ox+(ox-1-kx)])
					i := src.offset(sx, sy)
					r, g, b, a := src.loadF32(i)
					sum[0] += r * k
					sum[1] += g * k
					sum[2] += b * k
					sum[3] += a * k
				}
			}
			i := in.offset(x, y)
			if p.PreserveAlpha {
				a := float32(in.Pix[i+3]) / 255
				out.storeF32(i,
					clampF(sum[0]*inv+bias)*a,
					clampF(sum[1]*inv+bias)*a,
					clampF(sum[2]*inv+bias)*a,
					a)
			} else {
				a := clampF(sum[3]*inv + bias)
				out.storeF32(i,
					minF(clampF(sum[0]*inv+bias), a),
					minF(clampF(sum[1]*inv+bias), a),
					minF(clampF(sum[2]*inv+bias), a),
					a)
			}
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
