package svgraster

import (
	"image/color"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"

	"github.com/benoitkugler/svgrender/svgpath"
	"github.com/benoitkugler/svgrender/svgtree"
)

var opaqueWhite = color.RGBA{0xff, 0xff, 0xff, 0xff}

// drawCtx bundles the rasterx machinery bound to one pixmap.
// Dasher and filler share the scanner: draws are sequential.
type drawCtx struct {
	pix     *Pixmap
	scanner *rasterx.ScannerGV
	filler  *rasterx.Filler
	dasher  *rasterx.Dasher
}

func newDrawCtx(p *Pixmap) *drawCtx {
	img := p.Image()
	scanner := rasterx.NewScannerGV(p.W, p.H, img, img.Bounds())
	return &drawCtx{
		pix:     p,
		scanner: scanner,
		filler:  rasterx.NewFiller(p.W, p.H, scanner),
		dasher:  rasterx.NewDasher(p.W, p.H, scanner),
	}
}

var joinToJoin = [...]rasterx.JoinMode{
	svgtree.MiterJoin: rasterx.Miter,
	svgtree.RoundJoin: rasterx.Round,
	svgtree.BevelJoin: rasterx.Bevel,
}

var capToFunc = [...]rasterx.CapFunc{
	svgtree.ButtCap:   rasterx.ButtCap,
	svgtree.RoundCap:  rasterx.RoundCap,
	svgtree.SquareCap: rasterx.SquareCap,
}

func gapFor(join svgtree.JoinMode) rasterx.GapFunc {
	if join == svgtree.RoundJoin {
		return rasterx.RoundGap
	}
	return rasterx.FlatGap
}

// meanScale approximates how much m magnifies lengths.
func meanScale(m svgpath.Matrix2D) float64 {
	return math.Sqrt(math.Abs(m.Determinant()))
}

func (r *renderer) path(n *svgtree.PathNode, m svgpath.Matrix2D, dst *Pixmap) {
	if !n.Visible || len(n.Path) == 0 {
		return
	}
	dc := newDrawCtx(dst)
	fill := func() { r.fillPath(dc, n, m) }
	stroke := func() { r.strokePath(dc, n, m) }
	if n.PaintOrder == svgtree.StrokeThenFill {
		stroke()
		fill()
	} else {
		fill()
		stroke()
	}
}

func (r *renderer) fillPath(dc *drawCtx, n *svgtree.PathNode, m svgpath.Matrix2D) {
	if n.Fill == nil {
		return
	}
	dc.scanner.SetWinding(n.Fill.Rule == svgtree.NonZero)
	r.setPaint(dc, n.Fill.Paint, n.Fill.Opacity, n.BBox, m)
	n.Path.AddTo(dc.filler, m)
	dc.filler.Draw()
	dc.filler.Clear()
}

func (r *renderer) strokePath(dc *drawCtx, n *svgtree.PathNode, m svgpath.Matrix2D) {
	s := n.Stroke
	if s == nil {
		return
	}
	scale := meanScale(m)
	width := s.Width * scale
	if width <= 0 {
		return
	}
	var dashes []float64
	for _, d := range s.Dash {
		dashes = append(dashes, d*scale)
	}
	dc.scanner.SetWinding(true)
	dc.dasher.SetStroke(
		fixed.Int26_6(width*64), fixed.Int26_6(s.MiterLimit*64),
		capToFunc[s.Cap], capToFunc[s.Cap], gapFor(s.Join), joinToJoin[s.Join],
		dashes, s.DashOffset*scale,
	)
	r.setPaint(dc, s.Paint, s.Opacity, n.BBox, m)
	n.Path.AddTo(dc.dasher, m)
	dc.dasher.Draw()
	dc.dasher.Clear()
}

// setPaint programs the scanner color: a plain color, a gradient
// color function, or a pattern sampler.
func (r *renderer) setPaint(dc *drawCtx, paint svgtree.Paint, opacity float64, bbox svgpath.Bounds, m svgpath.Matrix2D) {
	switch paint := paint.(type) {
	case svgtree.PlainColor:
		dc.scanner.SetColor(rasterx.ApplyOpacity(paint, opacity))
	case svgtree.GradientRef:
		grad := r.tree.Defs.Gradients[string(paint)]
		if grad == nil {
			dc.scanner.SetColor(color.RGBA{})
			return
		}
		dc.scanner.SetColor(r.gradientColor(grad, opacity, bbox, m))
	case svgtree.PatternRef:
		pat := r.tree.Defs.Patterns[string(paint)]
		if pat == nil {
			dc.scanner.SetColor(color.RGBA{})
			return
		}
		dc.scanner.SetColor(r.patternColor(pat, opacity, bbox, m))
	default:
		dc.scanner.SetColor(color.RGBA{})
	}
}

// gradientColor converts the resolved gradient to the rasterx form,
// remapping objectBoundingBox units onto the device box of the path.
func (r *renderer) gradientColor(grad *svgtree.Gradient, opacity float64, bbox svgpath.Bounds, m svgpath.Matrix2D) interface{} {
	g := *grad
	if g.Units == svgtree.ObjectBoundingBox {
		d := bbox.Transform(m)
		g.Bounds = d
	} else {
		// rasterx works in device pixels: fold the user-to-device
		// transform into the gradient matrix
		g.Matrix = m.Mult(g.Matrix)
		g.Bounds = g.Bounds.Transform(m)
	}
	rg := toRasterxGradient(g)
	return rg.GetColorFunction(opacity)
}

func toRasterxGradient(grad svgtree.Gradient) rasterx.Gradient {
	var (
		points   [5]float64
		isRadial bool
	)
	switch dir := grad.Direction.(type) {
	case svgtree.Linear:
		points[0], points[1], points[2], points[3] = dir[0], dir[1], dir[2], dir[3]
	case svgtree.Radial:
		// in rasterx fr is ignored
		points[0], points[1], points[2], points[3], points[4] = dir[0], dir[1], dir[2], dir[3], dir[4]
		isRadial = true
	}
	stops := make([]rasterx.GradStop, len(grad.Stops))
	for i, s := range grad.Stops {
		stops[i] = rasterx.GradStop{StopColor: s.StopColor, Offset: s.Offset, Opacity: s.Opacity}
	}
	out := rasterx.Gradient{
		Points:   points,
		Stops:    stops,
		Matrix:   rasterx.Matrix2D(grad.Matrix),
		Spread:   rasterx.SpreadMethod(grad.Spread),
		Units:    rasterx.GradientUnits(grad.Units),
		IsRadial: isRadial,
	}
	out.Bounds.X, out.Bounds.Y = grad.Bounds.X, grad.Bounds.Y
	out.Bounds.W, out.Bounds.H = grad.Bounds.W, grad.Bounds.H
	return out
}

// patternColor rasterizes the tile once and returns a repeating
// sampler over it. Device pixels are mapped back through the inverse
// pattern transform, so rotation and skew in patternTransform tile
// correctly (nearest sampling).
func (r *renderer) patternColor(pat *svgtree.Pattern, opacity float64, bbox svgpath.Bounds, m svgpath.Matrix2D) interface{} {
	rect := resolveRect(pat.Rect, pat.Units, bbox)
	pm := m.Mult(pat.Matrix)
	scale := meanScale(pm)
	tw := int(math.Ceil(rect.W * scale))
	th := int(math.Ceil(rect.H * scale))
	if tw <= 0 || th <= 0 || rect.IsEmpty() || pm.Determinant() == 0 {
		return color.RGBA{}
	}

	tile := NewPixmap(tw, th)
	// content user space to tile pixels
	sx := float64(tw) / rect.W
	sy := float64(th) / rect.H
	tm := svgpath.Identity.Scale(sx, sy).Translate(-rect.X, -rect.Y)
	if !pat.ViewBox.IsEmpty() {
		tm = svgpath.Identity.
			Scale(float64(tw)/pat.ViewBox.W, float64(th)/pat.ViewBox.H).
			Translate(-pat.ViewBox.X, -pat.ViewBox.Y)
	} else if pat.ContentUnits == svgtree.ObjectBoundingBox {
		tm = tm.Mult(bboxMatrix(bbox))
	}
	r.children(pat.Content, tm, tile)

	inv := pm.Invert()
	opScale := uint32(opacity*255 + 0.5)
	return rasterx.ColorFunc(func(x, y int) color.Color {
		// pattern space position of the pixel center
		u, v := inv.Transform(float64(x)+0.5, float64(y)+0.5)
		tx := modInt(int(math.Floor((u-rect.X)*sx)), tw)
		ty := modInt(int(math.Floor((v-rect.Y)*sy)), th)
		c := tile.At(tx, ty)
		if opScale >= 255 {
			return c
		}
		return color.RGBA{
			R: uint8(uint32(c.R) * opScale / 255),
			G: uint8(uint32(c.G) * opScale / 255),
			B: uint8(uint32(c.B) * opScale / 255),
			A: uint8(uint32(c.A) * opScale / 255),
		}
	})
}

func modInt(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
