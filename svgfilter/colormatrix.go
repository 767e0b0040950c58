package svgfilter

import (
	"github.com/chewxy/math32"

	"github.com/benoitkugler/svgrender/svgtree"
)

// luminance coefficients shared by luminanceToAlpha and mask
// rasterization (BT.709, as SVG mandates)
const (
	LumR = 0.2125
	LumG = 0.7154
	LumB = 0.0721
)

// colorMatrix applies a 4x5 matrix to straight-alpha channels.
func (st *state) colorMatrix(p svgtree.FeColorMatrix) *Buffer {
	in := st.input(p.In).buf
	m := matrixFor(p)
	out := NewBuffer(in.W, in.H)
	for i := 0; i < len(in.Pix); i += 4 {
		pr, pg, pb, a := in.loadF32(i)
		r, g, b := unpremultiply(pr, pg, pb, a)
		nr := clampF(m[0]*r + m[1]*g + m[2]*b + m[3]*a + m[4])
		ng := clampF(m[5]*r + m[6]*g + m[7]*b + m[8]*a + m[9])
		nb := clampF(m[10]*r + m[11]*g + m[12]*b + m[13]*a + m[14])
		na := clampF(m[15]*r + m[16]*g + m[17]*b + m[18]*a + m[19])
		out.storeF32(i, nr*na, ng*na, nb*na, na)
	}
	return out
}

func matrixFor(p svgtree.FeColorMatrix) [20]float32 {
	switch p.Kind {
	case svgtree.CMMatrix:
		var m [20]float32
		for i, v := range p.Values {
			m[i] = float32(v)
		}
		return m
	case svgtree.CMSaturate:
		s := float32(1)
		if len(p.Values) == 1 {
			s = float32(p.Values[0])
		}
		return [20]float32{
			0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s, 0, 0,
			0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s, 0, 0,
			0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s, 0, 0,
			0, 0, 0, 1, 0,
		}
	case svgtree.CMHueRotate:
		deg := float32(0)
		if len(p.Values) == 1 {
			deg = float32(p.Values[0])
		}
		c := math32.Cos(deg * math32.Pi / 180)
		s := math32.Sin(deg * math32.Pi / 180)
		return [20]float32{
			0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928, 0, 0,
			0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283, 0, 0,
			0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072, 0, 0,
			0, 0, 0, 1, 0,
		}
	default: // luminance to alpha
		return [20]float32{
			0, 0, 0, 0, 0,
			0, 0, 0, 0, 0,
			0, 0, 0, 0, 0,
			LumR, LumG, LumB, 0, 0,
		}
	}
}
