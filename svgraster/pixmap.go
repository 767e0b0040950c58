// Package svgraster renders a render tree into pixels, by wrapping
// rasterx for path coverage and compositing layers itself.
package svgraster

import (
	"image"
	"image/color"
)

// Pixmap is a premultiplied RGBA8 raster.
type Pixmap struct {
	W, H int
	Pix  []uint8 // 4*W*H, row major
}

func NewPixmap(w, h int) *Pixmap {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Pixmap{W: w, H: h, Pix: make([]uint8, 4*w*h)}
}

func (p *Pixmap) offset(x, y int) int { return 4 * (y*p.W + x) }

// Image exposes the pixmap as an image.RGBA sharing the pixels.
func (p *Pixmap) Image() *image.RGBA {
	return &image.RGBA{Pix: p.Pix, Stride: 4 * p.W, Rect: image.Rect(0, 0, p.W, p.H)}
}

// FromImage copies (or wraps, when the layout allows) an RGBA image.
func FromImage(img *image.RGBA) *Pixmap {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if b.Min == (image.Point{}) && img.Stride == 4*w && len(img.Pix) == 4*w*h {
		return &Pixmap{W: w, H: h, Pix: img.Pix}
	}
	out := NewPixmap(w, h)
	for y := 0; y < h; y++ {
		si := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out.Pix[out.offset(0, y):out.offset(0, y)+4*w], img.Pix[si:si+4*w])
	}
	return out
}

// Fill sets every pixel to the premultiplied color.
func (p *Pixmap) Fill(c color.RGBA) {
	for i := 0; i < len(p.Pix); i += 4 {
		p.Pix[i] = c.R
		p.Pix[i+1] = c.G
		p.Pix[i+2] = c.B
		p.Pix[i+3] = c.A
	}
}

// At returns the premultiplied pixel, or zero outside the pixmap.
func (p *Pixmap) At(x, y int) color.RGBA {
	if x < 0 || x >= p.W || y < 0 || y >= p.H {
		return color.RGBA{}
	}
	i := p.offset(x, y)
	return color.RGBA{p.Pix[i], p.Pix[i+1], p.Pix[i+2], p.Pix[i+3]}
}

func (p *Pixmap) Set(x, y int, c color.RGBA) {
	if x < 0 || x >= p.W || y < 0 || y >= p.H {
		return
	}
	i := p.offset(x, y)
	p.Pix[i], p.Pix[i+1], p.Pix[i+2], p.Pix[i+3] = c.R, c.G, c.B, c.A
}

// drawOver composites src over p at (dx, dy), scaled by opacity.
func (p *Pixmap) drawOver(src *Pixmap, dx, dy int, opacity float64) {
	op := uint32(opacity*255 + 0.5)
	if op > 255 {
		op = 255
	}
	for y := 0; y < src.H; y++ {
		ty := dy + y
		if ty < 0 || ty >= p.H {
			continue
		}
		for x := 0; x < src.W; x++ {
			tx := dx + x
			if tx < 0 || tx >= p.W {
				continue
			}
			si := src.offset(x, y)
			sa := uint32(src.Pix[si+3]) * op / 255
			if sa == 0 && src.Pix[si] == 0 && src.Pix[si+1] == 0 && src.Pix[si+2] == 0 {
				continue
			}
			di := p.offset(tx, ty)
			inv := 255 - sa
			for c := 0; c < 4; c++ {
				s := uint32(src.Pix[si+c]) * op / 255
				d := uint32(p.Pix[di+c])
				v := s + d*inv/255
				if v > 255 {
					v = 255
				}
				p.Pix[di+c] = uint8(v)
			}
		}
	}
}

// multiplyAlpha scales every pixel by the mask coverage.
func (p *Pixmap) multiplyAlpha(mask []uint8) {
	for i, m := range mask {
		f := uint32(m)
		pi := 4 * i
		for c := 0; c < 4; c++ {
			p.Pix[pi+c] = uint8(uint32(p.Pix[pi+c]) * f / 255)
		}
	}
}
