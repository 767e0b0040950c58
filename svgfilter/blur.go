package svgfilter

import (
	"github.com/chewxy/math32"

	"github.com/benoitkugler/svgrender/svgtree"
)

// boxesForGauss is the box size approximating a Gaussian of standard
// deviation sigma over three passes.
func boxesForGauss(sigma float32) int {
	// d = floor(s * 3 * sqrt(2*PI)/4 + 0.5)
	return int(sigma*3*math32.Sqrt(2*math32.Pi)/4 + 0.5)
}

// blur approximates a Gaussian with three box blurs per axis, the
// standard raster shortcut.
func (st *state) blur(p svgtree.FeGaussianBlur) *Buffer {
	in := st.input(p.In).buf
	out := in.Clone()
	tmp := NewBuffer(in.W, in.H)

	dx := boxesForGauss(float32(p.StdX) * st.scaleX)
	dy := boxesForGauss(float32(p.StdY) * st.scaleY)

	if dx > 0 {
		if dx%2 == 1 {
			r := dx / 2
			boxBlurH(out, tmp, r, r)
			boxBlurH(tmp, out, r, r)
			boxBlurH(out, tmp, r, r)
			out, tmp = tmp, out
		} else {
			r := dx / 2
			boxBlurH(out, tmp, r, r-1)
			boxBlurH(tmp, out, r-1, r)
			boxBlurH(out, tmp, r, r)
			out, tmp = tmp, out
		}
	}
	if dy > 0 {
		if dy%2 == 1 {
			r := dy / 2
			boxBlurV(out, tmp, r, r)
			boxBlurV(tmp, out, r, r)
			boxBlurV(out, tmp, r, r)
			out, tmp = tmp, out
		} else {
			r := dy / 2
			boxBlurV(out, tmp, r, r-1)
			boxBlurV(tmp, out, r-1, r)
			boxBlurV(out, tmp, r, r)
			out, tmp = tmp, out
		}
	}
	return out
}

// boxBlurH averages each pixel over the window [x-left, x+right],
// treating pixels outside the buffer as transparent black.
func boxBlurH(src, dst *Buffer, left, right int) {
	size := uint32(left + right + 1)
	for y := 0; y < src.H; y++ {
		var sum [4]uint32
		row := src.Pix[src.offset(0, y):src.offset(0, y)+4*src.W]
		for x := -left; x <= right; x++ {
			if x >= 0 && x < src.W {
				for c := 0; c < 4; c++ {
					sum[c] += uint32(row[4*x+c])
				}
			}
		}
		drow := dst.Pix[dst.offset(0, y) : dst.offset(0, y)+4*src.W]
		for x := 0; x < src.W; x++ {
			for c := 0; c < 4; c++ {
				drow[4*x+c] = uint8(sum[c] / size)
			}
			if in := x + right + 1; in < src.W {
				for c := 0; c < 4; c++ {
					sum[c] += uint32(row[4*in+c])
				}
			}
			if outIdx := x - left; outIdx >= 0 {
				for c := 0; c < 4; c++ {
					sum[c] -= uint32(row[4*outIdx+c])
				}
			}
		}
	}
}

func boxBlurV(src, dst *Buffer, up, down int) {
	size := uint32(up + down + 1)
	stride := 4 * src.W
	for x := 0; x < src.W; x++ {
		var sum [4]uint32
		for y := -up; y <= down; y++ {
			if y >= 0 && y < src.H {
				i := y*stride + 4*x
				for c := 0; c < 4; c++ {
					sum[c] += uint32(src.Pix[i+c])
				}
			}
		}
		for y := 0; y < src.H; y++ {
			i := y*stride + 4*x
			for c := 0; c < 4; c++ {
				dst.Pix[i+c] = uint8(sum[c] / size)
			}
			if in := y + down + 1; in < src.H {
				j := in*stride + 4*x
				for c := 0; c < 4; c++ {
					sum[c] += uint32(src.Pix[j+c])
				}
			}
			if out := y - up; out >= 0 {
				j := out*stride + 4*x
				for c := 0; c < 4; c++ {
					sum[c] -= uint32(src.Pix[j+c])
				}
			}
		}
	}
}
