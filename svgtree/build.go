package svgtree

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svglog"
	"github.com/benoitkugler/svgrender/svgpath"
)

// ErrInvalidSize is returned when the root viewport is degenerate.
var ErrInvalidSize = errors.New("degenerate root viewport")

// Build lowers a simplified document into a render tree.
// The document is expected to have gone through svgprep.Prepare;
// in particular the root width and height must resolve to pixels.
func Build(doc *svgdom.Document, opts *Options) (*Tree, error) {
	b := &builder{
		doc:  doc,
		opts: opts,
		tree: &Tree{
			Defs: Defs{
				Gradients: map[string]*Gradient{},
				Patterns:  map[string]*Pattern{},
				ClipPaths: map[string]*ClipPath{},
				Masks:     map[string]*Mask{},
				Filters:   map[string]*Filter{},
			},
		},
		visiting: map[string]bool{},
	}
	if err := b.resolveViewport(); err != nil {
		return nil, err
	}

	root := &Group{Transform: b.viewBoxTransform(), Opacity: 1}
	// the root svg element carries inheritable presentation attributes
	style := b.inheritStyle(doc.Root, defaultStyle(opts))
	for _, child := range doc.Root.Children() {
		b.lowerElement(child, root, style)
	}
	b.tree.Root = root
	if err := doc.Err(); err != nil {
		return nil, err
	}
	return b.tree, nil
}

type builder struct {
	doc  *svgdom.Document
	opts *Options
	tree *Tree

	visiting map[string]bool // ids on the current resolution path, cycle guard
}

func (b *builder) lengthCtx(ref float64) svgdom.LengthContext {
	return svgdom.LengthContext{DPI: b.opts.Dpi(), FontSize: b.opts.DefaultFontSize(), Ref: ref}
}

// diagonal reference for percentage lengths that are neither purely
// horizontal nor vertical (SVG 1.1 §7.10)
func (b *builder) diag() float64 {
	w, h := b.tree.Width, b.tree.Height
	return sqrt2Inv * sqrtSum(w, h)
}

func (b *builder) resolveViewport() error {
	root := b.doc.Root
	if vb, ok := root.NumberList("viewBox"); ok && len(vb) == 4 {
		b.tree.ViewBox = svgpath.Bounds{X: vb[0], Y: vb[1], W: vb[2], H: vb[3]}
	}
	w, okW := root.Length("width", b.lengthCtx(b.tree.ViewBox.W))
	h, okH := root.Length("height", b.lengthCtx(b.tree.ViewBox.H))
	if !okW {
		w = b.tree.ViewBox.W
	}
	if !okH {
		h = b.tree.ViewBox.H
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %g x %g", ErrInvalidSize, w, h)
	}
	b.tree.Width, b.tree.Height = w, h
	if b.tree.ViewBox.IsEmpty() {
		b.tree.ViewBox = svgpath.Bounds{W: w, H: h}
	}
	return nil
}

// viewBoxTransform maps viewBox coordinates onto the pixel viewport.
func (b *builder) viewBoxTransform() svgpath.Matrix2D {
	vb := b.tree.ViewBox
	if vb.IsEmpty() {
		return svgpath.Identity
	}
	return svgpath.Identity.
		Scale(b.tree.Width/vb.W, b.tree.Height/vb.H).
		Translate(-vb.X, -vb.Y)
}

// style carries the resolved inheritable properties.
type style struct {
	fill        Paint // nil = none
	fillRule    FillRule
	fillOpacity float64

	stroke        Paint
	strokeWidth   float64
	miterLimit    float64
	cap           CapMode
	join          JoinMode
	dash          []float64
	dashOffset    float64
	strokeOpacity float64

	paintOrder   PaintOrder
	visible      bool
	currentColor color.RGBA
	fontSize     float64
}

func defaultStyle(opts *Options) style {
	return style{
		fill:        NewPlainColor(0, 0, 0, 0xff),
		fillOpacity: 1,

		strokeWidth:   1,
		miterLimit:    4,
		strokeOpacity: 1,

		visible:      true,
		currentColor: color.RGBA{A: 0xff},
		fontSize:     opts.DefaultFontSize(),
	}
}

// inheritStyle folds the element's presentation attributes (including
// the style attribute) over the inherited state.
// color and font-size apply first: fill, stroke and em lengths resolve
// against the element's own values, whatever the attribute order.
func (b *builder) inheritStyle(e *svgdom.Element, parent style) style {
	st := parent
	pairs := stylePairs(e)
	for _, kv := range pairs {
		if kv[0] == "color" || kv[0] == "font-size" {
			b.readStyleAttr(&st, e, kv[0], kv[1])
		}
	}
	for _, kv := range pairs {
		if kv[0] == "color" || kv[0] == "font-size" {
			continue
		}
		b.readStyleAttr(&st, e, kv[0], kv[1])
	}
	return st
}

// stylePairs flattens presentation attributes plus the style
// attribute into key/value pairs, the style attribute last so it wins.
func stylePairs(e *svgdom.Element) [][2]string {
	var pairs [][2]string
	for _, name := range e.AttrNames() {
		if name == "style" {
			continue
		}
		v, _ := e.Attr(name)
		pairs = append(pairs, [2]string{name, v})
	}
	if css, ok := e.Attr("style"); ok {
		for _, decl := range strings.Split(css, ";") {
			kv := strings.SplitN(decl, ":", 2)
			if len(kv) == 2 {
				pairs = append(pairs, [2]string{strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])})
			}
		}
	}
	return pairs
}

func (b *builder) readStyleAttr(st *style, e *svgdom.Element, k, v string) {
	v = strings.TrimSpace(v)
	switch k {
	case "color":
		if cv, ok := svgdom.ParseColor(v); ok && !cv.None && !cv.CurrentColor {
			st.currentColor = cv.Color
		}
	case "fill":
		st.fill = b.resolvePaint(v, st)
	case "stroke":
		st.stroke = b.resolvePaint(v, st)
	case "fill-rule":
		switch v {
		case "evenodd":
			st.fillRule = EvenOdd
		case "nonzero":
			st.fillRule = NonZero
		}
	case "fill-opacity":
		if f, ok := svgdom.ParseFraction(v); ok {
			st.fillOpacity = clamp01(f)
		}
	case "stroke-opacity":
		if f, ok := svgdom.ParseFraction(v); ok {
			st.strokeOpacity = clamp01(f)
		}
	case "stroke-width":
		if f, ok := svgdom.ParseLength(v, b.lengthCtx(b.diag())); ok {
			st.strokeWidth = f
		}
	case "stroke-miterlimit":
		if f, ok := svgdom.ParseFraction(v); ok {
			st.miterLimit = f
		}
	case "stroke-linecap":
		switch v {
		case "butt":
			st.cap = ButtCap
		case "round":
			st.cap = RoundCap
		case "square":
			st.cap = SquareCap
		}
	case "stroke-linejoin":
		switch v {
		case "miter":
			st.join = MiterJoin
		case "round":
			st.join = RoundJoin
		case "bevel":
			st.join = BevelJoin
		}
	case "stroke-dasharray":
		st.dash = parseDashArray(v)
	case "stroke-dashoffset":
		if f, ok := svgdom.ParseLength(v, b.lengthCtx(b.diag())); ok {
			st.dashOffset = f
		}
	case "paint-order":
		if strings.HasPrefix(v, "stroke") {
			st.paintOrder = StrokeThenFill
		} else {
			st.paintOrder = FillThenStroke
		}
	case "visibility":
		st.visible = v != "hidden" && v != "collapse"
	case "font-size":
		if f, ok := svgdom.ParseLength(v, b.lengthCtx(st.fontSize)); ok && f > 0 {
			st.fontSize = f
		}
	}
}

// parseDashArray validates a dash list: a pattern that is all zeros
// or contains a negative value disables dashing.
func parseDashArray(v string) []float64 {
	if v == "" || v == "none" {
		return nil
	}
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
	dash := make([]float64, 0, len(fields))
	sum := 0.0
	for _, f := range fields {
		d, ok := svgdom.ParseFraction(f)
		if !ok || d < 0 {
			return nil
		}
		dash = append(dash, d)
		sum += d
	}
	if sum == 0 {
		return nil
	}
	return dash
}

// resolvePaint parses a fill/stroke value: url(#id) with optional
// fallback, a color, none or currentColor.
func (b *builder) resolvePaint(v string, st *style) Paint {
	if strings.HasPrefix(v, "url(") {
		id, rest := splitURLRef(v)
		if id != "" {
			if p := b.ensurePaintServer(id); p != nil {
				return p
			}
		}
		// reference failed: use the fallback color if any
		v = strings.TrimSpace(rest)
		if v == "" {
			return nil
		}
	}
	cv, ok := svgdom.ParseColor(v)
	if !ok {
		return nil
	}
	switch {
	case cv.None:
		return nil
	case cv.CurrentColor:
		c := st.currentColor
		return NewPlainColor(c.R, c.G, c.B, c.A)
	default:
		c := cv.Color
		return NewPlainColor(c.R, c.G, c.B, c.A)
	}
}

// splitURLRef extracts the fragment id of "url(#id) fallback".
func splitURLRef(v string) (id, rest string) {
	end := strings.IndexByte(v, ')')
	if end < 0 {
		return "", ""
	}
	ref := strings.Trim(strings.TrimSpace(v[4:end]), "'\"")
	if !strings.HasPrefix(ref, "#") {
		return "", v[end+1:]
	}
	return ref[1:], v[end+1:]
}

// urlRefList parses a property holding a list of url(#id) references.
func urlRefList(v string) []string {
	var out []string
	for {
		start := strings.Index(v, "url(")
		if start < 0 {
			return out
		}
		id, rest := splitURLRef(v[start:])
		if id != "" {
			out = append(out, id)
		}
		v = rest
	}
}

var containerTags = map[string]bool{"g": true, "svg": true, "a": true, "switch": true}

var shapeTags = map[string]bool{
	"path": true, "rect": true, "circle": true, "ellipse": true,
	"line": true, "polyline": true, "polygon": true,
}

// lowerElement converts one DOM element and appends the resulting
// node (if any) to parent.
func (b *builder) lowerElement(e *svgdom.Element, parent *Group, inherited style) {
	switch {
	case containerTags[e.Tag]:
		b.lowerGroup(e, parent, inherited)
	case shapeTags[e.Tag]:
		b.lowerShape(e, parent, inherited)
	case e.Tag == "image":
		b.lowerImage(e, parent, inherited)
	case e.Tag == "text":
		b.lowerText(e, parent, inherited)
	case e.Tag == "defs", e.Tag == "title", e.Tag == "desc", e.Tag == "metadata",
		e.Tag == "linearGradient", e.Tag == "radialGradient", e.Tag == "pattern",
		e.Tag == "clipPath", e.Tag == "mask", e.Tag == "filter",
		e.Tag == "marker", e.Tag == "symbol", e.Tag == "style":
		// referenced lazily, or non-rendering
	default:
		b.doc.ReportInvalid(fmt.Errorf("unsupported element <%s>", e.Tag))
	}
}

// groupWrapper builds a Group for the element's transform, opacity,
// clip-path, mask and filter properties.
func (b *builder) groupWrapper(e *svgdom.Element) *Group {
	g := &Group{Transform: svgpath.Identity, Opacity: 1}
	if m, ok := e.Transform("transform"); ok {
		g.Transform = m
	}
	if op, ok := e.Fraction("opacity"); ok {
		g.Opacity = clamp01(op)
	}
	if v, ok := e.Attr("clip-path"); ok {
		if id, _ := splitURLRef(v); id != "" && b.ensureClipPath(id) {
			g.ClipPath = id
		}
	}
	if v, ok := e.Attr("mask"); ok {
		if id, _ := splitURLRef(v); id != "" && b.ensureMask(id) {
			g.Mask = id
		}
	}
	if v, ok := e.Attr("filter"); ok {
		for _, id := range urlRefList(v) {
			if b.ensureFilter(id) {
				g.Filters = append(g.Filters, id)
			}
		}
	}
	if v, ok := e.Attr("isolation"); ok && v == "isolate" {
		g.Isolate = true
	}
	return g
}

func (b *builder) lowerGroup(e *svgdom.Element, parent *Group, inherited style) {
	st := b.inheritStyle(e, inherited)
	g := b.groupWrapper(e)
	for _, child := range e.Children() {
		b.lowerElement(child, g, st)
	}
	if len(g.Children) == 0 && len(g.Filters) == 0 {
		// nothing to paint, and no filter that could generate output
		return
	}
	parent.Children = append(parent.Children, g)
}

func (b *builder) lowerShape(e *svgdom.Element, parent *Group, inherited style) {
	st := b.inheritStyle(e, inherited)
	path, ok := b.shapePath(e)
	if !ok || len(path) == 0 {
		return
	}

	local := svgpath.Identity
	if m, ok := e.Transform("transform"); ok {
		local = m
	}
	// fold the local transform into the outline; stroke geometry is
	// compensated by the mean scale factor
	path = path.Transform(local)
	scale := meanScale(local)

	node := &PathNode{
		Path:       path,
		PaintOrder: st.paintOrder,
		Visible:    st.visible,
	}
	if st.fill != nil {
		node.Fill = &Fill{Paint: st.fill, Rule: st.fillRule, Opacity: st.fillOpacity}
	}
	if st.stroke != nil && st.strokeWidth*scale > 0 {
		dash := st.dash
		if scale != 1 && len(dash) > 0 {
			dash = append([]float64(nil), dash...)
			for i := range dash {
				dash[i] *= scale
			}
		}
		node.Stroke = &Stroke{
			Paint:      st.stroke,
			Width:      st.strokeWidth * scale,
			MiterLimit: st.miterLimit,
			Cap:        st.cap,
			Join:       st.join,
			Dash:       dash,
			DashOffset: st.dashOffset * scale,
			Opacity:    st.strokeOpacity,
		}
	}
	if node.Fill == nil && node.Stroke == nil {
		return
	}
	node.BBox = path.BoundingBox()
	if node.Stroke != nil {
		node.StrokeBBox = path.StrokeBounds(node.Stroke.Width, node.Stroke.MiterLimit)
	} else {
		node.StrokeBBox = node.BBox
	}

	b.appendWrapped(e, parent, node, true)
}

// appendWrapped adds the node to the parent, inserting a wrapping
// Group when the element carries layer-forcing properties.
// localDone tells whether the element transform is already folded in.
func (b *builder) appendWrapped(e *svgdom.Element, parent *Group, node Node, localDone bool) {
	g := b.groupWrapper(e)
	if localDone {
		g.Transform = svgpath.Identity
	}
	if !g.NeedsLayer() && g.Transform == svgpath.Identity {
		parent.Children = append(parent.Children, node)
		return
	}
	g.Children = []Node{node}
	parent.Children = append(parent.Children, g)
}

// shapePath lowers a basic shape element to its outline, in the
// element's own user space.
func (b *builder) shapePath(e *svgdom.Element) (svgpath.Path, bool) {
	var p svgpath.Path
	switch e.Tag {
	case "path":
		d, ok := e.Attr("d")
		if !ok {
			return nil, false
		}
		path, err := svgpath.ParsePath(d)
		if err != nil {
			b.doc.ReportInvalid(fmt.Errorf("invalid path data: %w", err))
			return nil, false
		}
		return path, true
	case "rect":
		x, _ := e.Length("x", b.lengthCtx(b.tree.ViewBox.W))
		y, _ := e.Length("y", b.lengthCtx(b.tree.ViewBox.H))
		w, _ := e.Length("width", b.lengthCtx(b.tree.ViewBox.W))
		h, _ := e.Length("height", b.lengthCtx(b.tree.ViewBox.H))
		if w <= 0 || h <= 0 {
			return nil, false
		}
		rx, okRx := e.Length("rx", b.lengthCtx(b.tree.ViewBox.W))
		ry, okRy := e.Length("ry", b.lengthCtx(b.tree.ViewBox.H))
		if okRx && !okRy {
			ry = rx
		} else if okRy && !okRx {
			rx = ry
		}
		p.AddRoundRect(x, y, x+w, y+h, rx, ry, 0)
		return p, true
	case "circle", "ellipse":
		cx, _ := e.Length("cx", b.lengthCtx(b.tree.ViewBox.W))
		cy, _ := e.Length("cy", b.lengthCtx(b.tree.ViewBox.H))
		var rx, ry float64
		if e.Tag == "circle" {
			r, _ := e.Length("r", b.lengthCtx(b.diag()))
			rx, ry = r, r
		} else {
			rx, _ = e.Length("rx", b.lengthCtx(b.tree.ViewBox.W))
			ry, _ = e.Length("ry", b.lengthCtx(b.tree.ViewBox.H))
		}
		if rx <= 0 || ry <= 0 { // not drawn, but not an error
			return nil, false
		}
		p.AddEllipse(cx, cy, rx, ry)
		return p, true
	case "line":
		x1, _ := e.Length("x1", b.lengthCtx(b.tree.ViewBox.W))
		y1, _ := e.Length("y1", b.lengthCtx(b.tree.ViewBox.H))
		x2, _ := e.Length("x2", b.lengthCtx(b.tree.ViewBox.W))
		y2, _ := e.Length("y2", b.lengthCtx(b.tree.ViewBox.H))
		p.Start(fixedP(x1, y1))
		p.Line(fixedP(x2, y2))
		return p, true
	case "polyline", "polygon":
		pts, ok := e.NumberList("points")
		if !ok || len(pts) < 4 {
			return nil, false
		}
		if len(pts)%2 != 0 {
			pts = pts[:len(pts)-1]
		}
		p.Start(fixedP(pts[0], pts[1]))
		for i := 2; i < len(pts)-1; i += 2 {
			p.Line(fixedP(pts[i], pts[i+1]))
		}
		if e.Tag == "polygon" {
			p.Stop(true)
		}
		return p, true
	}
	return nil, false
}

func (b *builder) lowerText(e *svgdom.Element, parent *Group, inherited style) {
	if b.opts.Outliner == nil {
		svglog.Logger().Warn("no text outliner configured, skipping text element")
		return
	}
	st := b.inheritStyle(e, inherited)
	paths, err := b.opts.Outliner.Outline(e, b.opts)
	if err != nil {
		svglog.Logger().Warn("text layout failed, skipping element", "err", err)
		return
	}
	g := b.groupWrapper(e)
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		node := &PathNode{
			Path:       p,
			PaintOrder: st.paintOrder,
			Visible:    st.visible,
			BBox:       p.BoundingBox(),
		}
		node.StrokeBBox = node.BBox
		if st.fill != nil {
			node.Fill = &Fill{Paint: st.fill, Rule: st.fillRule, Opacity: st.fillOpacity}
		}
		if st.stroke != nil && st.strokeWidth > 0 {
			node.Stroke = &Stroke{
				Paint: st.stroke, Width: st.strokeWidth, MiterLimit: st.miterLimit,
				Cap: st.cap, Join: st.join, Dash: st.dash, DashOffset: st.dashOffset,
				Opacity: st.strokeOpacity,
			}
			node.StrokeBBox = p.StrokeBounds(st.strokeWidth, st.miterLimit)
		}
		g.Children = append(g.Children, node)
	}
	if len(g.Children) > 0 || len(g.Filters) > 0 {
		parent.Children = append(parent.Children, g)
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
