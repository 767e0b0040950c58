package svgtree

import (
	"image/color"

	"github.com/benoitkugler/svgrender/svgpath"
)

// Filter is a directed acyclic graph of primitives evaluated over a
// region. Primitives run in document order; the last output is
// composited back into the calling layer.
type Filter struct {
	Region         svgpath.Bounds // in Units space
	Units          GradientUnits  // filterUnits, default objectBoundingBox
	PrimitiveUnits GradientUnits
	Primitives     []FilterPrimitive
}

// Standard primitive input names. A primitive may also name the
// Result of any earlier primitive.
const (
	InSourceGraphic   = "SourceGraphic"
	InSourceAlpha     = "SourceAlpha"
	InBackgroundImage = "BackgroundImage"
	InBackgroundAlpha = "BackgroundAlpha"
)

// PrimitiveBase carries the named wiring shared by all primitives.
type PrimitiveBase struct {
	In     string // empty means the previous result (or SourceGraphic)
	In2    string
	Result string

	// Subregion holds the primitive x, y, width, height in that
	// order, in primitive units; unset components are NaN and
	// default to the filter region.
	Subregion [4]float64
}

// Common exposes the wiring to the filter engine.
func (b PrimitiveBase) Common() PrimitiveBase { return b }

// FilterPrimitive is one variant of the closed primitive set.
type FilterPrimitive interface {
	Common() PrimitiveBase
}

type FeFlood struct {
	PrimitiveBase
	Color   color.RGBA
	Opacity float64
}

type FeOffset struct {
	PrimitiveBase
	Dx, Dy float64
}

type FeGaussianBlur struct {
	PrimitiveBase
	StdX, StdY float64
}

// ColorMatrixKind is the feColorMatrix type attribute.
type ColorMatrixKind uint8

const (
	CMMatrix ColorMatrixKind = iota
	CMSaturate
	CMHueRotate
	CMLuminanceToAlpha
)

type FeColorMatrix struct {
	PrimitiveBase
	Kind ColorMatrixKind
	// Values holds 20 entries for CMMatrix, 1 for CMSaturate and
	// CMHueRotate (degrees), none for CMLuminanceToAlpha.
	Values []float64
}

// CompositeOp is the feComposite operator.
type CompositeOp uint8

const (
	CompOver CompositeOp = iota
	CompIn
	CompOut
	CompAtop
	CompXor
	CompArithmetic
)

type FeComposite struct {
	PrimitiveBase
	Operator       CompositeOp
	K1, K2, K3, K4 float64
}

type FeMerge struct {
	PrimitiveBase
	Inputs []string // feMergeNode in attributes, composited source-over
}

type FeTile struct {
	PrimitiveBase
}

// MorphologyOp is the feMorphology operator.
type MorphologyOp uint8

const (
	MorphErode MorphologyOp = iota
	MorphDilate
)

type FeMorphology struct {
	PrimitiveBase
	Operator         MorphologyOp
	RadiusX, RadiusY float64
}

// EdgeMode is the feConvolveMatrix boundary behavior.
type EdgeMode uint8

const (
	EdgeDuplicate EdgeMode = iota
	EdgeWrap
	EdgeNone
)

type FeConvolveMatrix struct {
	PrimitiveBase
	OrderX, OrderY   int
	Kernel           []float64 // OrderX*OrderY entries, row major
	Divisor          float64
	Bias             float64
	TargetX, TargetY int
	Edge             EdgeMode
	PreserveAlpha    bool
}

type FeTurbulence struct {
	PrimitiveBase
	BaseFreqX, BaseFreqY float64
	Octaves              int
	Seed                 int32
	Stitch               bool
	Fractal              bool // fractalNoise when true, turbulence otherwise
}

// Channel selects a color channel of the displacement input.
type Channel uint8

const (
	ChannelA Channel = iota
	ChannelR
	ChannelG
	ChannelB
)

type FeDisplacementMap struct {
	PrimitiveBase
	Scale              float64
	XChannel, YChannel Channel
}

// Light is one variant of the closed light-source set:
// DistantLight, PointLight or SpotLight.
type Light interface {
	isLight()
}

type DistantLight struct {
	Azimuth, Elevation float64 // degrees
}

type PointLight struct {
	X, Y, Z float64
}

type SpotLight struct {
	X, Y, Z                         float64
	PointsAtX, PointsAtY, PointsAtZ float64
	SpecularExponent                float64
	ConeAngle                       float64 // degrees; 0 means unlimited
	HasConeAngle                    bool
}

func (DistantLight) isLight() {}
func (PointLight) isLight()   {}
func (SpotLight) isLight()    {}

type FeDiffuseLighting struct {
	PrimitiveBase
	SurfaceScale    float64
	DiffuseConstant float64
	Color           color.RGBA // lighting-color
	Light           Light
}

type FeSpecularLighting struct {
	PrimitiveBase
	SurfaceScale     float64
	SpecularConstant float64
	SpecularExponent float64
	Color            color.RGBA
	Light            Light
}
