package svgtree

import (
	"image/color"

	"github.com/benoitkugler/svgrender/svgpath"
)

// Paint is any source of pixel values for a fill or stroke: a plain
// color, or a reference into the defs table.
type Paint interface {
	isPaint()
}

// PlainColor is a solid paint. It implements color.Color.
type PlainColor struct {
	color.NRGBA
}

// NewPlainColor returns a solid paint from non-premultiplied channels.
func NewPlainColor(r, g, b, a uint8) PlainColor {
	return PlainColor{NRGBA: color.NRGBA{R: r, G: g, B: b, A: a}}
}

// GradientRef points into Defs.Gradients.
type GradientRef string

// PatternRef points into Defs.Patterns.
type PatternRef string

func (PlainColor) isPaint()  {}
func (GradientRef) isPaint() {}
func (PatternRef) isPaint()  {}

// FillRule selects the rasterization winding rule.
type FillRule uint8

const (
	NonZero FillRule = iota
	EvenOdd
)

// Fill binds a paint to a winding rule and opacity.
type Fill struct {
	Paint   Paint
	Rule    FillRule
	Opacity float64
}

// CapMode defines how to draw caps on the ends of lines
type CapMode uint8

const (
	ButtCap CapMode = iota
	RoundCap
	SquareCap
)

// JoinMode determines how stroke segments bridge the gap at a join
type JoinMode uint8

const (
	MiterJoin JoinMode = iota
	RoundJoin
	BevelJoin
)

// Stroke describes outline expansion: width, joins, caps and dashes.
// Dash lengths are measured along the path in user units.
type Stroke struct {
	Paint      Paint
	Width      float64
	MiterLimit float64
	Cap        CapMode
	Join       JoinMode
	Dash       []float64
	DashOffset float64
	Opacity    float64
}

// PaintOrder determines whether fill or stroke is painted first.
type PaintOrder uint8

const (
	FillThenStroke PaintOrder = iota
	StrokeThenFill
)

// GradientUnits is the type for gradient units
type GradientUnits byte

// SVG bounds parameter constants
const (
	ObjectBoundingBox GradientUnits = iota
	UserSpaceOnUse
)

// SpreadMethod is the type for spread parameters
type SpreadMethod byte

// SVG spread parameter constants
const (
	PadSpread SpreadMethod = iota
	ReflectSpread
	RepeatSpread
)

// GradStop represents a stop in the SVG 2.0 gradient specification
type GradStop struct {
	StopColor color.Color
	Offset    float64
	Opacity   float64
}

// Gradient holds a description of an SVG 2.0 gradient
type Gradient struct {
	Direction GradientDirecter
	Stops     []GradStop
	Bounds    svgpath.Bounds // object bounding box placeholder, remapped per fill
	Matrix    svgpath.Matrix2D
	Spread    SpreadMethod
	Units     GradientUnits
}

// GradientDirecter is either Linear or Radial.
type GradientDirecter interface {
	IsRadial() bool
}

// Linear holds x1, y1, x2, y2
type Linear [4]float64

func (Linear) IsRadial() bool { return false }

// Radial holds cx, cy, fx, fy, r, fr
type Radial [6]float64

func (Radial) IsRadial() bool { return true }

// Pattern tiles a rasterized subtree over the fill region.
type Pattern struct {
	Rect         svgpath.Bounds // tile rectangle, resolved to user space
	Units        GradientUnits
	ContentUnits GradientUnits
	ViewBox      svgpath.Bounds
	Matrix       svgpath.Matrix2D
	Content      *Group
}

// ClipPath clips a group to the union of its content outlines.
type ClipPath struct {
	Units    GradientUnits
	Content  *Group
	ClipRule FillRule
}

// MaskMode selects how mask pixels convert to coverage.
type MaskMode uint8

const (
	MaskLuminance MaskMode = iota
	MaskAlpha
)

// Mask modulates a group's alpha with a rendered subtree.
type Mask struct {
	Rect         svgpath.Bounds
	Units        GradientUnits
	ContentUnits GradientUnits
	Mode         MaskMode
	Content      *Group
}
