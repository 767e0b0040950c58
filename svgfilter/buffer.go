// Package svgfilter implements the filter primitive pipeline: a
// small raster calculus over premultiplied RGBA8 buffers, evaluated
// in document order over the filter region.
package svgfilter

import (
	"image"

	"github.com/chewxy/math32"
)

// Buffer is a premultiplied RGBA8 raster, the working currency of
// the engine. All buffers of one filter evaluation share the same
// size: the filter region.
type Buffer struct {
	W, H int
	Pix  []uint8 // 4*W*H, row major
}

func NewBuffer(w, h int) *Buffer {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Buffer{W: w, H: h, Pix: make([]uint8, 4*w*h)}
}

func (b *Buffer) offset(x, y int) int { return 4 * (y*b.W + x) }

func (b *Buffer) Clone() *Buffer {
	cp := &Buffer{W: b.W, H: b.H, Pix: make([]uint8, len(b.Pix))}
	copy(cp.Pix, b.Pix)
	return cp
}

// AlphaOnly keeps the alpha channel and zeroes the colors, which in
// premultiplied form yields opaque black scaled by coverage.
func (b *Buffer) AlphaOnly() *Buffer {
	out := NewBuffer(b.W, b.H)
	for i := 3; i < len(b.Pix); i += 4 {
		out.Pix[i] = b.Pix[i]
	}
	return out
}

// Image exposes the buffer as an image.RGBA sharing the pixels.
func (b *Buffer) Image() *image.RGBA {
	return &image.RGBA{Pix: b.Pix, Stride: 4 * b.W, Rect: image.Rect(0, 0, b.W, b.H)}
}

// FromImage wraps an RGBA image into a buffer, sharing pixels when
// the image has a packed origin-anchored layout.
func FromImage(img *image.RGBA) *Buffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if bounds.Min == (image.Point{}) && img.Stride == 4*w && len(img.Pix) == 4*w*h {
		return &Buffer{W: w, H: h, Pix: img.Pix}
	}
	out := NewBuffer(w, h)
	for y := 0; y < h; y++ {
		row := img.Pix[(bounds.Min.Y+y-img.Rect.Min.Y)*img.Stride+(bounds.Min.X-img.Rect.Min.X)*4:]
		copy(out.Pix[out.offset(0, y):out.offset(0, y)+4*w], row[:4*w])
	}
	return out
}

// storeU8 converts a normalized channel to its byte value, rounding
// ties to even.
func storeU8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	f := v * 255
	fl := math32.Floor(f)
	switch diff := f - fl; {
	case diff > 0.5:
		fl++
	case diff == 0.5 && int(fl)&1 == 1:
		fl++
	}
	return uint8(fl)
}

// loadF32 reads one pixel as normalized premultiplied floats.
func (b *Buffer) loadF32(i int) (r, g, bl, a float32) {
	const inv = 1.0 / 255
	return float32(b.Pix[i]) * inv, float32(b.Pix[i+1]) * inv,
		float32(b.Pix[i+2]) * inv, float32(b.Pix[i+3]) * inv
}

func (b *Buffer) storeF32(i int, r, g, bl, a float32) {
	b.Pix[i] = storeU8(r)
	b.Pix[i+1] = storeU8(g)
	b.Pix[i+2] = storeU8(bl)
	b.Pix[i+3] = storeU8(a)
}

// unpremultiply converts one premultiplied pixel to straight-alpha
// normalized channels.
func unpremultiply(r, g, b, a float32) (float32, float32, float32) {
	if a == 0 {
		return 0, 0, 0
	}
	return r / a, g / a, b / a
}
