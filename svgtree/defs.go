package svgtree

import (
	"math"
	"strings"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svglog"
	"github.com/benoitkugler/svgrender/svgpath"
	"golang.org/x/image/math/fixed"
)

const sqrt2Inv = 1 / math.Sqrt2

func sqrtSum(a, b float64) float64 { return math.Sqrt(a*a + b*b) }

// meanScale is the geometric mean of the transform's scale factors,
// used to compensate stroke geometry when folding a transform into
// path coordinates.
func meanScale(m svgpath.Matrix2D) float64 {
	d := math.Abs(m.Determinant())
	if d == 0 {
		return 0
	}
	return math.Sqrt(d)
}

func fixedP(x, y float64) fixed.Point26_6 {
	return fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
}

// ensurePaintServer interns the paint server behind id and returns
// the reference, or a plain color when the server degenerates to one,
// or nil when the reference cannot be honored.
func (b *builder) ensurePaintServer(id string) Paint {
	if _, ok := b.tree.Defs.Gradients[id]; ok {
		return GradientRef(id)
	}
	if _, ok := b.tree.Defs.Patterns[id]; ok {
		return PatternRef(id)
	}
	if b.visiting[id] {
		svglog.Logger().Warn("circular paint server reference", "id", id)
		return nil
	}
	e := b.doc.ElementByID(id)
	if e == nil {
		return nil
	}
	b.visiting[id] = true
	defer delete(b.visiting, id)

	switch e.Tag {
	case "linearGradient", "radialGradient":
		return b.buildGradient(id, e)
	case "pattern":
		return b.buildPattern(id, e)
	default:
		return nil
	}
}

// hrefChain collects the element and its href ancestors, nearest
// first. Broken or circular links end the chain.
func (b *builder) hrefChain(e *svgdom.Element) []*svgdom.Element {
	chain := []*svgdom.Element{e}
	seen := map[*svgdom.Element]bool{e: true}
	for cur := e; ; {
		id, ok := cur.HrefID()
		if !ok {
			return chain
		}
		next := b.doc.ElementByID(id)
		if next == nil || seen[next] {
			return chain
		}
		seen[next] = true
		chain = append(chain, next)
		cur = next
	}
}

// chainAttr looks the attribute up along the href chain.
func chainAttr(chain []*svgdom.Element, name string) (string, bool) {
	for _, e := range chain {
		if v, ok := e.Attr(name); ok {
			return v, true
		}
	}
	return "", false
}

// gradCoord resolves one gradient geometry attribute: a fraction for
// objectBoundingBox units, a user-space length otherwise.
func (b *builder) gradCoord(chain []*svgdom.Element, name string, def float64, units GradientUnits, ref float64) float64 {
	v, ok := chainAttr(chain, name)
	if !ok {
		return def
	}
	if units == ObjectBoundingBox {
		if f, ok := svgdom.ParseFraction(v); ok {
			return f
		}
		return def
	}
	if f, ok := svgdom.ParseLength(v, b.lengthCtx(ref)); ok {
		return f
	}
	return def
}

func (b *builder) buildGradient(id string, e *svgdom.Element) Paint {
	chain := b.hrefChain(e)

	units := ObjectBoundingBox
	if v, ok := chainAttr(chain, "gradientUnits"); ok && v == "userSpaceOnUse" {
		units = UserSpaceOnUse
	}
	spread := PadSpread
	switch v, _ := chainAttr(chain, "spreadMethod"); v {
	case "reflect":
		spread = ReflectSpread
	case "repeat":
		spread = RepeatSpread
	}
	matrix := svgpath.Identity
	if v, ok := chainAttr(chain, "gradientTransform"); ok {
		if m, err := svgdom.ParseTransform(v); err == nil {
			matrix = m
		}
	}

	stops := b.gradientStops(chain)
	switch len(stops) {
	case 0:
		return nil
	case 1:
		return stopColor(stops[0])
	}

	grad := &Gradient{
		Stops:  stops,
		Bounds: b.tree.ViewBox,
		Matrix: matrix,
		Spread: spread,
		Units:  units,
	}
	w, h := b.tree.ViewBox.W, b.tree.ViewBox.H
	if e.Tag == "linearGradient" {
		dir := Linear{
			b.gradCoord(chain, "x1", 0, units, w),
			b.gradCoord(chain, "y1", 0, units, h),
			b.gradCoord(chain, "x2", 1, units, w),
			b.gradCoord(chain, "y2", 0, units, h),
		}
		if dir[0] == dir[2] && dir[1] == dir[3] {
			// zero-length axis paints the last stop everywhere
			return stopColor(stops[len(stops)-1])
		}
		grad.Direction = dir
	} else {
		cx := b.gradCoord(chain, "cx", 0.5, units, w)
		cy := b.gradCoord(chain, "cy", 0.5, units, h)
		r := b.gradCoord(chain, "r", 0.5, units, sqrt2Inv*sqrtSum(w, h))
		fx := b.gradCoord(chain, "fx", cx, units, w)
		fy := b.gradCoord(chain, "fy", cy, units, h)
		fr := b.gradCoord(chain, "fr", 0, units, sqrt2Inv*sqrtSum(w, h))
		if r <= 0 {
			return stopColor(stops[len(stops)-1])
		}
		grad.Direction = Radial{cx, cy, fx, fy, r, fr}
	}
	b.tree.Defs.Gradients[id] = grad
	return GradientRef(id)
}

func stopColor(s GradStop) Paint {
	c := s.StopColor.(PlainColor)
	a := float64(c.A) * s.Opacity
	return NewPlainColor(c.R, c.G, c.B, uint8(a+0.5))
}

// gradientStops reads the stop children of the first chain element
// that has any, with offsets clamped ascending.
func (b *builder) gradientStops(chain []*svgdom.Element) []GradStop {
	var stopEls []*svgdom.Element
	for _, e := range chain {
		for _, child := range e.Children() {
			if child.Tag == "stop" {
				stopEls = append(stopEls, child)
			}
		}
		if len(stopEls) > 0 {
			break
		}
	}
	stops := make([]GradStop, 0, len(stopEls))
	prev := 0.0
	for _, s := range stopEls {
		off := 0.0
		if f, ok := s.Fraction("offset"); ok {
			off = clamp01(f)
		}
		if off < prev {
			off = prev
		}
		prev = off

		stop := GradStop{Offset: off, Opacity: 1, StopColor: NewPlainColor(0, 0, 0, 0xff)}
		if v, ok := stopProp(s, "stop-opacity"); ok {
			if f, ok := svgdom.ParseFraction(v); ok {
				stop.Opacity = clamp01(f)
			}
		}
		if v, ok := stopProp(s, "stop-color"); ok {
			if cv, ok := svgdom.ParseColor(v); ok && !cv.None {
				c := cv.Color
				stop.StopColor = NewPlainColor(c.R, c.G, c.B, c.A)
			}
		}
		stops = append(stops, stop)
	}
	return stops
}

// stopProp reads a stop property from the attribute or the style
// attribute, the latter winning.
func stopProp(e *svgdom.Element, name string) (string, bool) {
	v, ok := e.Attr(name)
	if css, has := e.Attr("style"); has {
		for _, decl := range strings.Split(css, ";") {
			kv := strings.SplitN(decl, ":", 2)
			if len(kv) == 2 && strings.TrimSpace(kv[0]) == name {
				return strings.TrimSpace(kv[1]), true
			}
		}
	}
	return v, ok
}

func (b *builder) buildPattern(id string, e *svgdom.Element) Paint {
	chain := b.hrefChain(e)

	units := ObjectBoundingBox
	if v, ok := chainAttr(chain, "patternUnits"); ok && v == "userSpaceOnUse" {
		units = UserSpaceOnUse
	}
	contentUnits := UserSpaceOnUse
	if v, ok := chainAttr(chain, "patternContentUnits"); ok && v == "objectBoundingBox" {
		contentUnits = ObjectBoundingBox
	}
	matrix := svgpath.Identity
	if v, ok := chainAttr(chain, "patternTransform"); ok {
		if m, err := svgdom.ParseTransform(v); err == nil {
			matrix = m
		}
	}
	rect := svgpath.Bounds{
		X: b.gradCoord(chain, "x", 0, units, b.tree.ViewBox.W),
		Y: b.gradCoord(chain, "y", 0, units, b.tree.ViewBox.H),
		W: b.gradCoord(chain, "width", 0, units, b.tree.ViewBox.W),
		H: b.gradCoord(chain, "height", 0, units, b.tree.ViewBox.H),
	}
	if rect.W <= 0 || rect.H <= 0 {
		return nil
	}
	var viewBox svgpath.Bounds
	if v, ok := chainAttr(chain, "viewBox"); ok {
		if nums, ok := svgdom.ParseNumberList(v); ok && len(nums) == 4 {
			viewBox = svgpath.Bounds{X: nums[0], Y: nums[1], W: nums[2], H: nums[3]}
		}
	}

	// the first chain element with children contributes the tile content
	var contentSrc *svgdom.Element
	for _, c := range chain {
		if len(c.Children()) > 0 {
			contentSrc = c
			break
		}
	}
	if contentSrc == nil {
		return nil
	}
	content := &Group{Transform: svgpath.Identity, Opacity: 1}
	st := defaultStyle(b.opts)
	for _, child := range contentSrc.Children() {
		b.lowerElement(child, content, st)
	}
	if len(content.Children) == 0 {
		// empty tile: nothing would be painted
		return nil
	}

	b.tree.Defs.Patterns[id] = &Pattern{
		Rect:         rect,
		Units:        units,
		ContentUnits: contentUnits,
		ViewBox:      viewBox,
		Matrix:       matrix,
		Content:      content,
	}
	return PatternRef(id)
}

func (b *builder) ensureClipPath(id string) bool {
	if _, ok := b.tree.Defs.ClipPaths[id]; ok {
		return true
	}
	if b.visiting["clip:"+id] {
		svglog.Logger().Warn("circular clip-path reference", "id", id)
		return false
	}
	e := b.doc.ElementByID(id)
	if e == nil || e.Tag != "clipPath" {
		return false
	}
	b.visiting["clip:"+id] = true
	defer delete(b.visiting, "clip:"+id)

	units := UserSpaceOnUse
	if v, ok := e.Attr("clipPathUnits"); ok && v == "objectBoundingBox" {
		units = ObjectBoundingBox
	}
	rule := NonZero
	if v, ok := e.Attr("clip-rule"); ok && v == "evenodd" {
		rule = EvenOdd
	}
	content := &Group{Transform: svgpath.Identity, Opacity: 1}
	if m, ok := e.Transform("transform"); ok {
		content.Transform = m
	}
	st := defaultStyle(b.opts)
	for _, child := range e.Children() {
		if v, ok := child.Attr("clip-rule"); ok && v == "evenodd" {
			rule = EvenOdd
		}
		b.lowerElement(child, content, st)
	}
	b.tree.Defs.ClipPaths[id] = &ClipPath{Units: units, Content: content, ClipRule: rule}
	return true
}

func (b *builder) ensureMask(id string) bool {
	if _, ok := b.tree.Defs.Masks[id]; ok {
		return true
	}
	if b.visiting["mask:"+id] {
		svglog.Logger().Warn("circular mask reference", "id", id)
		return false
	}
	e := b.doc.ElementByID(id)
	if e == nil || e.Tag != "mask" {
		return false
	}
	b.visiting["mask:"+id] = true
	defer delete(b.visiting, "mask:"+id)

	units := ObjectBoundingBox
	if v, ok := e.Attr("maskUnits"); ok && v == "userSpaceOnUse" {
		units = UserSpaceOnUse
	}
	contentUnits := UserSpaceOnUse
	if v, ok := e.Attr("maskContentUnits"); ok && v == "objectBoundingBox" {
		contentUnits = ObjectBoundingBox
	}
	mode := MaskLuminance
	if v, ok := e.Attr("mask-type"); ok && v == "alpha" {
		mode = MaskAlpha
	}
	rect := svgpath.Bounds{
		X: b.maskCoord(e, "x", -0.1, units, b.tree.ViewBox.W),
		Y: b.maskCoord(e, "y", -0.1, units, b.tree.ViewBox.H),
		W: b.maskCoord(e, "width", 1.2, units, b.tree.ViewBox.W),
		H: b.maskCoord(e, "height", 1.2, units, b.tree.ViewBox.H),
	}
	if rect.W <= 0 || rect.H <= 0 {
		return false
	}

	content := &Group{Transform: svgpath.Identity, Opacity: 1}
	st := defaultStyle(b.opts)
	for _, child := range e.Children() {
		b.lowerElement(child, content, st)
	}
	b.tree.Defs.Masks[id] = &Mask{
		Rect: rect, Units: units, ContentUnits: contentUnits,
		Mode: mode, Content: content,
	}
	return true
}

func (b *builder) maskCoord(e *svgdom.Element, name string, def float64, units GradientUnits, ref float64) float64 {
	v, ok := e.Attr(name)
	if !ok {
		return def
	}
	if units == ObjectBoundingBox {
		if f, ok := svgdom.ParseFraction(v); ok {
			return f
		}
		return def
	}
	if f, ok := svgdom.ParseLength(v, b.lengthCtx(ref)); ok {
		return f
	}
	return def
}
