package svgraster

import (
	"context"
	"image"
	"math"

	"github.com/benoitkugler/svgrender/svgfilter"
	"github.com/benoitkugler/svgrender/svglog"
	"github.com/benoitkugler/svgrender/svgpath"
	"github.com/benoitkugler/svgrender/svgtree"
)

// Render rasterizes the tree onto dst; transform maps the tree's
// user space to device pixels. Rendering never fails on a tree built
// by svgtree.Build: internal shortfalls degrade to warnings.
func Render(tree *svgtree.Tree, transform svgpath.Matrix2D, dst *Pixmap) {
	RenderContext(context.Background(), tree, transform, dst)
}

// RenderContext renders like Render, returning early when ctx is
// cancelled. Cancellation is polled at group boundaries: the pixmap
// then holds a partial rendering.
func RenderContext(ctx context.Context, tree *svgtree.Tree, transform svgpath.Matrix2D, dst *Pixmap) {
	r := &renderer{tree: tree, ctx: ctx}
	r.group(tree.Root, transform, dst)
}

type renderer struct {
	tree *svgtree.Tree
	ctx  context.Context
}

func (r *renderer) cancelled() bool {
	select {
	case <-r.ctx.Done():
		return true
	default:
		return false
	}
}

// group renders one group; m is the device transform of the parent.
func (r *renderer) group(g *svgtree.Group, m svgpath.Matrix2D, dst *Pixmap) {
	if r.cancelled() {
		return
	}
	m = m.Mult(g.Transform)
	if !g.NeedsLayer() {
		r.children(g, m, dst)
		return
	}
	r.layered(g, m, dst)
}

func (r *renderer) children(g *svgtree.Group, m svgpath.Matrix2D, dst *Pixmap) {
	for _, child := range g.Children {
		switch child := child.(type) {
		case *svgtree.Group:
			r.group(child, m, dst)
		case *svgtree.PathNode:
			r.path(child, m, dst)
		case *svgtree.ImageNode:
			r.image(child, m, dst)
		}
	}
}

// resolveRect maps a rect given in objectBoundingBox fractions onto
// the actual box, or returns it unchanged for user space.
func resolveRect(rect svgpath.Bounds, units svgtree.GradientUnits, bbox svgpath.Bounds) svgpath.Bounds {
	if units == svgtree.UserSpaceOnUse {
		return rect
	}
	return svgpath.Bounds{
		X: bbox.X + rect.X*bbox.W,
		Y: bbox.Y + rect.Y*bbox.H,
		W: rect.W * bbox.W,
		H: rect.H * bbox.H,
	}
}

// deviceRect clips the transformed bounds to the pixmap, expanded to
// whole pixels.
func deviceRect(b svgpath.Bounds, m svgpath.Matrix2D, dst *Pixmap) image.Rectangle {
	d := b.Transform(m)
	rect := image.Rect(
		int(math.Floor(d.X)), int(math.Floor(d.Y)),
		int(math.Ceil(d.X+d.W)), int(math.Ceil(d.Y+d.H)),
	)
	return rect.Intersect(image.Rect(0, 0, dst.W, dst.H))
}

// layered renders the group into an intermediate layer, applies its
// filters, clip and mask, then composites at the group opacity.
func (r *renderer) layered(g *svgtree.Group, m svgpath.Matrix2D, dst *Pixmap) {
	defs := &r.tree.Defs
	bbox := g.BoundingBox(defs)

	// the layer covers the content, or the filter regions when
	// filtering: feFlood may paint where no content lies
	extent := bbox
	for _, id := range g.Filters {
		f := defs.Filters[id]
		if f == nil {
			continue
		}
		region := resolveRect(f.Region, f.Units, bbox)
		if region.IsEmpty() {
			// an empty filter region erases the whole group
			return
		}
		extent = region
	}
	rect := deviceRect(extent, m, dst)
	if rect.Empty() {
		svglog.Logger().Warn("skipping group with empty device extent")
		return
	}

	layer := NewPixmap(rect.Dx(), rect.Dy())
	lm := svgpath.Identity.Translate(-float64(rect.Min.X), -float64(rect.Min.Y)).Mult(m)
	r.children(g, lm, layer)

	if len(g.Filters) > 0 {
		layer = r.applyFilters(g, layer, rect.Min, lm, bbox)
	}
	if g.ClipPath != "" {
		if clip := defs.ClipPaths[g.ClipPath]; clip != nil {
			layer.multiplyAlpha(r.clipMask(clip, lm, layer.W, layer.H, bbox))
		}
	}
	if g.Mask != "" {
		if mask := defs.Masks[g.Mask]; mask != nil {
			layer.multiplyAlpha(r.maskCoverage(mask, lm, layer.W, layer.H, bbox))
		}
	}
	dst.drawOver(layer, rect.Min.X, rect.Min.Y, g.Opacity)
}

// applyFilters chains the group's filters over the layer. lm maps
// user space to layer pixels.
func (r *renderer) applyFilters(g *svgtree.Group, layer *Pixmap, origin image.Point, lm svgpath.Matrix2D, bbox svgpath.Bounds) *Pixmap {
	src := &svgfilter.Buffer{W: layer.W, H: layer.H, Pix: layer.Pix}
	sx, sy := lm.ScaleFactors()
	if sx == 0 || sy == 0 {
		return layer
	}
	// the region seen by the engine: the layer rect in user space
	inv := lm.Invert()
	ux, uy := inv.Transform(0, 0)
	region := svgpath.Bounds{X: ux, Y: uy, W: float64(layer.W) / sx, H: float64(layer.H) / sy}

	for _, id := range g.Filters {
		f := r.tree.Defs.Filters[id]
		if f == nil {
			continue
		}
		scaleX, scaleY := sx, sy
		reg := region
		if f.PrimitiveUnits == svgtree.ObjectBoundingBox {
			scaleX *= bbox.W
			scaleY *= bbox.H
			reg = svgpath.Bounds{} // primitive values are box fractions
		}
		src = svgfilter.Apply(f, src, nil, reg, scaleX, scaleY)
	}
	return &Pixmap{W: src.W, H: src.H, Pix: src.Pix}
}

// bboxMatrix maps the unit square onto the bounding box.
func bboxMatrix(bbox svgpath.Bounds) svgpath.Matrix2D {
	return svgpath.Identity.Translate(bbox.X, bbox.Y).Scale(bbox.W, bbox.H)
}

// clipMask rasterizes the clip content as coverage.
func (r *renderer) clipMask(clip *svgtree.ClipPath, lm svgpath.Matrix2D, w, h int, bbox svgpath.Bounds) []uint8 {
	cm := lm
	if clip.Units == svgtree.ObjectBoundingBox {
		cm = cm.Mult(bboxMatrix(bbox))
	}
	cover := NewPixmap(w, h)
	dc := newDrawCtx(cover)
	dc.scanner.SetWinding(clip.ClipRule == svgtree.NonZero)
	dc.scanner.SetColor(opaqueWhite)
	addClipPaths(dc, clip.Content, cm.Mult(clip.Content.Transform))
	dc.filler.Draw()
	dc.filler.Clear()

	mask := make([]uint8, w*h)
	for i := range mask {
		mask[i] = cover.Pix[4*i+3]
	}
	return mask
}

// addClipPaths feeds every outline of the clip subtree to the filler;
// the winding rule merges them into one coverage.
func addClipPaths(dc *drawCtx, g *svgtree.Group, m svgpath.Matrix2D) {
	for _, child := range g.Children {
		switch child := child.(type) {
		case *svgtree.Group:
			addClipPaths(dc, child, m.Mult(child.Transform))
		case *svgtree.PathNode:
			if child.Visible {
				child.Path.AddTo(dc.filler, m)
			}
		}
	}
}

// maskCoverage renders the mask content and converts it to coverage,
// by luminance or by alpha.
func (r *renderer) maskCoverage(mask *svgtree.Mask, lm svgpath.Matrix2D, w, h int, bbox svgpath.Bounds) []uint8 {
	cm := lm
	if mask.ContentUnits == svgtree.ObjectBoundingBox {
		cm = cm.Mult(bboxMatrix(bbox))
	}
	buf := NewPixmap(w, h)
	r.children(mask.Content, cm.Mult(mask.Content.Transform), buf)

	// pixels outside the mask rect contribute nothing
	rect := deviceRect(resolveRect(mask.Rect, mask.Units, bbox), lm, buf)

	out := make([]uint8, w*h)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			i := buf.offset(x, y)
			if mask.Mode == svgtree.MaskAlpha {
				out[y*w+x] = buf.Pix[i+3]
				continue
			}
			lum := svgfilter.LumR*float64(buf.Pix[i]) +
				svgfilter.LumG*float64(buf.Pix[i+1]) +
				svgfilter.LumB*float64(buf.Pix[i+2])
			if lum > 255 {
				lum = 255
			}
			out[y*w+x] = uint8(lum + 0.5)
		}
	}
	return out
}
