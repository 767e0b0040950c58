// Package svgtree defines the render tree: the canonical,
// fully-resolved, immutable scene graph consumed by the rasterizer,
// and the lowering step building it from a simplified DOM.
//
// After Build returns, every coordinate is absolute, every paint
// server is dereferenced into the defs table, every inheritable
// property is resolved, and the tree may be shared between
// goroutines.
package svgtree

import (
	"image"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svgpath"
)

// Tree is the root of the render tree.
type Tree struct {
	// Width and Height are the viewport size, in pixels.
	// Always positive after a successful Build.
	Width, Height float64

	ViewBox svgpath.Bounds // zero when the document has none

	Root *Group
	Defs Defs
}

// Defs collects the paint servers, clip paths, masks and filters
// referenced by id from the tree nodes.
type Defs struct {
	Gradients map[string]*Gradient
	Patterns  map[string]*Pattern
	ClipPaths map[string]*ClipPath
	Masks     map[string]*Mask
	Filters   map[string]*Filter
}

// Node is one variant of the closed render-tree node set:
// *Group, *PathNode or *ImageNode.
type Node interface {
	isNode()
}

// Group holds children plus the properties that may force layer
// isolation during rendering.
type Group struct {
	Transform svgpath.Matrix2D
	Opacity   float64  // in [0, 1]
	ClipPath  string   // id into Defs.ClipPaths, or ""
	Mask      string   // id into Defs.Masks, or ""
	Filters   []string // ids into Defs.Filters, applied in order
	Isolate   bool

	Children []Node
}

// PathNode is a resolved outline bound to fill and stroke properties.
// Its coordinates live in the parent group's user space: the
// element's local transform has been folded in during lowering.
type PathNode struct {
	Path svgpath.Path

	Fill       *Fill   // nil disables filling
	Stroke     *Stroke // nil disables stroking
	PaintOrder PaintOrder
	Visible    bool

	// Bounding boxes are precomputed at lowering; the rasterizer
	// never recomputes them.
	BBox       svgpath.Bounds
	StrokeBBox svgpath.Bounds
}

// ImageNode is a raster image placed in a destination rectangle.
type ImageNode struct {
	Image     image.Image // already decoded
	Transform svgpath.Matrix2D
	Rect      svgpath.Bounds // destination, user space
	Aspect    svgdom.AspectRatio
	Rendering ImageRendering
}

func (*Group) isNode()     {}
func (*PathNode) isNode()  {}
func (*ImageNode) isNode() {}

// ImageRendering selects the sampling kernel for image nodes.
type ImageRendering uint8

const (
	RenderingSmooth    ImageRendering = iota // bilinear
	RenderingPixelated                       // nearest neighbor
)

// NeedsLayer reports whether compositing the group requires an
// intermediate layer (opacity, filters, clip, mask or isolation).
func (g *Group) NeedsLayer() bool {
	return g.Opacity < 1 || len(g.Filters) > 0 || g.ClipPath != "" || g.Mask != "" || g.Isolate
}

// BoundingBox returns the union of the children boxes, in the group's
// own user space.
func (g *Group) BoundingBox(defs *Defs) svgpath.Bounds {
	var bb svgpath.Bounds
	for _, child := range g.Children {
		switch child := child.(type) {
		case *Group:
			bb = bb.Union(child.BoundingBox(defs).Transform(child.Transform))
		case *PathNode:
			box := child.BBox
			if child.Stroke != nil {
				box = box.Union(child.StrokeBBox)
			}
			bb = bb.Union(box)
		case *ImageNode:
			bb = bb.Union(child.Rect.Transform(child.Transform))
		}
	}
	return bb
}
