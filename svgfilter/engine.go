package svgfilter

import (
	"math"

	"github.com/benoitkugler/svgrender/svglog"
	"github.com/benoitkugler/svgrender/svgpath"
	"github.com/benoitkugler/svgrender/svgtree"
)

// Apply evaluates the filter over src, returning the output of the
// last primitive. Buffers are sized to the filter region; region is
// that rectangle in primitive units, and scaleX/scaleY convert
// primitive units to buffer pixels. bg may be nil when no backdrop
// is available.
func Apply(f *svgtree.Filter, src, bg *Buffer, region svgpath.Bounds, scaleX, scaleY float64) *Buffer {
	st := state{
		src:     src,
		bg:      bg,
		region:  region,
		scaleX:  float32(scaleX),
		scaleY:  float32(scaleY),
		results: map[string]result{},
		last:    result{buf: src},
	}
	if len(f.Primitives) == 0 {
		// a filter without primitives erases its subject
		return NewBuffer(src.W, src.H)
	}
	for _, prim := range f.Primitives {
		out := st.evaluate(prim)
		base := prim.Common()
		res := result{buf: out, sub: st.subregion(base), hasSub: hasSubregion(base)}
		if res.hasSub {
			cropTo(res.buf, res.sub)
		}
		if base.Result != "" {
			st.results[base.Result] = res
		}
		st.last = res
	}
	return st.last.buf
}

type pixRect struct{ x0, y0, x1, y1 int }

type result struct {
	buf    *Buffer
	sub    pixRect
	hasSub bool
}

type state struct {
	src, bg        *Buffer
	region         svgpath.Bounds
	scaleX, scaleY float32
	results        map[string]result
	last           result
}

// input resolves a named primitive input.
func (st *state) input(name string) result {
	switch name {
	case "":
		return st.last
	case svgtree.InSourceGraphic:
		return result{buf: st.src}
	case svgtree.InSourceAlpha:
		return result{buf: st.src.AlphaOnly()}
	case svgtree.InBackgroundImage:
		if st.bg != nil {
			return result{buf: st.bg}
		}
		return result{buf: NewBuffer(st.src.W, st.src.H)}
	case svgtree.InBackgroundAlpha:
		if st.bg != nil {
			return result{buf: st.bg.AlphaOnly()}
		}
		return result{buf: NewBuffer(st.src.W, st.src.H)}
	default:
		if r, ok := st.results[name]; ok {
			return r
		}
		return st.last
	}
}

func hasSubregion(base svgtree.PrimitiveBase) bool {
	for _, v := range base.Subregion {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// subregion converts the primitive subregion to buffer pixels,
// defaulting unset components to the whole region.
func (st *state) subregion(base svgtree.PrimitiveBase) pixRect {
	x, y := st.region.X, st.region.Y
	w, h := st.region.W, st.region.H
	if v := base.Subregion[0]; !math.IsNaN(v) {
		x = v
	}
	if v := base.Subregion[1]; !math.IsNaN(v) {
		y = v
	}
	if v := base.Subregion[2]; !math.IsNaN(v) {
		w = v
	}
	if v := base.Subregion[3]; !math.IsNaN(v) {
		h = v
	}
	toPixX := func(u float64) int {
		return int(math.Round((u - st.region.X) * float64(st.scaleX)))
	}
	toPixY := func(u float64) int {
		return int(math.Round((u - st.region.Y) * float64(st.scaleY)))
	}
	r := pixRect{toPixX(x), toPixY(y), toPixX(x + w), toPixY(y + h)}
	if r.x0 < 0 {
		r.x0 = 0
	}
	if r.y0 < 0 {
		r.y0 = 0
	}
	if r.x1 > st.src.W {
		r.x1 = st.src.W
	}
	if r.y1 > st.src.H {
		r.y1 = st.src.H
	}
	return r
}

// cropTo zeroes the pixels outside the rect.
func cropTo(b *Buffer, r pixRect) {
	for y := 0; y < b.H; y++ {
		if y >= r.y0 && y < r.y1 {
			zeroSpan(b, 0, r.x0, y)
			zeroSpan(b, r.x1, b.W, y)
			continue
		}
		zeroSpan(b, 0, b.W, y)
	}
}

func zeroSpan(b *Buffer, x0, x1, y int) {
	if x0 >= x1 {
		return
	}
	s := b.Pix[b.offset(x0, y):b.offset(x1, y)]
	for i := range s {
		s[i] = 0
	}
}

func (st *state) evaluate(prim svgtree.FilterPrimitive) *Buffer {
	switch prim := prim.(type) {
	case svgtree.FeFlood:
		return st.flood(prim)
	case svgtree.FeOffset:
		return st.applyOffset(prim)
	case svgtree.FeGaussianBlur:
		return st.blur(prim)
	case svgtree.FeColorMatrix:
		return st.colorMatrix(prim)
	case svgtree.FeComposite:
		return st.composite(prim)
	case svgtree.FeMerge:
		return st.merge(prim)
	case svgtree.FeTile:
		return st.tile(prim)
	case svgtree.FeMorphology:
		return st.morphology(prim)
	case svgtree.FeConvolveMatrix:
		return st.convolve(prim)
	case svgtree.FeTurbulence:
		return st.turbulence(prim)
	case svgtree.FeDisplacementMap:
		return st.displace(prim)
	case svgtree.FeDiffuseLighting:
		return st.diffuseLighting(prim)
	case svgtree.FeSpecularLighting:
		return st.specularLighting(prim)
	}
	svglog.Logger().Warn("unknown filter primitive, producing transparent black")
	return NewBuffer(st.src.W, st.src.H)
}
