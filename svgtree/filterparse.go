package svgtree

import (
	"image/color"
	"math"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svglog"
	"github.com/benoitkugler/svgrender/svgpath"
)

// ensureFilter interns the filter behind id. A filter with an empty
// region is still registered: it erases its subject instead of being
// ignored.
func (b *builder) ensureFilter(id string) bool {
	if _, ok := b.tree.Defs.Filters[id]; ok {
		return true
	}
	e := b.doc.ElementByID(id)
	if e == nil || e.Tag != "filter" {
		return false
	}

	units := ObjectBoundingBox
	if v, ok := e.Attr("filterUnits"); ok && v == "userSpaceOnUse" {
		units = UserSpaceOnUse
	}
	primUnits := UserSpaceOnUse
	if v, ok := e.Attr("primitiveUnits"); ok && v == "objectBoundingBox" {
		primUnits = ObjectBoundingBox
	}
	region := svgpath.Bounds{
		X: b.maskCoord(e, "x", -0.1, units, b.tree.ViewBox.W),
		Y: b.maskCoord(e, "y", -0.1, units, b.tree.ViewBox.H),
		W: b.maskCoord(e, "width", 1.2, units, b.tree.ViewBox.W),
		H: b.maskCoord(e, "height", 1.2, units, b.tree.ViewBox.H),
	}

	f := &Filter{Region: region, Units: units, PrimitiveUnits: primUnits}
	for _, child := range e.Children() {
		if prim := parsePrimitive(child); prim != nil {
			f.Primitives = append(f.Primitives, prim)
		}
	}
	b.tree.Defs.Filters[id] = f
	return true
}

func primBase(e *svgdom.Element) PrimitiveBase {
	base := PrimitiveBase{
		In:     e.AttrOr("in", ""),
		In2:    e.AttrOr("in2", ""),
		Result: e.AttrOr("result", ""),
	}
	for i, name := range [4]string{"x", "y", "width", "height"} {
		if f, ok := e.Number(name); ok {
			base.Subregion[i] = f
		} else {
			base.Subregion[i] = math.NaN()
		}
	}
	return base
}

func numOr(e *svgdom.Element, name string, def float64) float64 {
	if f, ok := e.Number(name); ok {
		return f
	}
	return def
}

// numPair parses an attribute holding one or two numbers; a single
// number is used for both.
func numPair(e *svgdom.Element, name string, def float64) (float64, float64) {
	nums, ok := e.NumberList(name)
	if !ok || len(nums) == 0 {
		return def, def
	}
	if len(nums) == 1 {
		return nums[0], nums[0]
	}
	return nums[0], nums[1]
}

func parsePrimitive(e *svgdom.Element) FilterPrimitive {
	switch e.Tag {
	case "feFlood":
		c := color.RGBA{A: 0xff}
		if v, ok := stopProp(e, "flood-color"); ok {
			if cv, ok := svgdom.ParseColor(v); ok && !cv.None {
				c = cv.Color
			}
		}
		op := 1.0
		if v, ok := stopProp(e, "flood-opacity"); ok {
			if f, ok := svgdom.ParseFraction(v); ok {
				op = clamp01(f)
			}
		}
		return FeFlood{PrimitiveBase: primBase(e), Color: c, Opacity: op}

	case "feOffset":
		return FeOffset{PrimitiveBase: primBase(e), Dx: numOr(e, "dx", 0), Dy: numOr(e, "dy", 0)}

	case "feGaussianBlur":
		sx, sy := numPair(e, "stdDeviation", 0)
		if sx < 0 || sy < 0 {
			svglog.Logger().Warn("negative blur deviation, skipping primitive")
			return nil
		}
		return FeGaussianBlur{PrimitiveBase: primBase(e), StdX: sx, StdY: sy}

	case "feColorMatrix":
		return parseColorMatrix(e)

	case "feComposite":
		op := CompOver
		switch e.AttrOr("operator", "over") {
		case "in":
			op = CompIn
		case "out":
			op = CompOut
		case "atop":
			op = CompAtop
		case "xor":
			op = CompXor
		case "arithmetic":
			op = CompArithmetic
		}
		return FeComposite{
			PrimitiveBase: primBase(e), Operator: op,
			K1: numOr(e, "k1", 0), K2: numOr(e, "k2", 0),
			K3: numOr(e, "k3", 0), K4: numOr(e, "k4", 0),
		}

	case "feMerge":
		m := FeMerge{PrimitiveBase: primBase(e)}
		for _, node := range e.Children() {
			if node.Tag == "feMergeNode" {
				m.Inputs = append(m.Inputs, node.AttrOr("in", ""))
			}
		}
		return m

	case "feTile":
		return FeTile{PrimitiveBase: primBase(e)}

	case "feMorphology":
		rx, ry := numPair(e, "radius", 0)
		if rx < 0 || ry < 0 {
			svglog.Logger().Warn("negative morphology radius, skipping primitive")
			return nil
		}
		op := MorphErode
		if e.AttrOr("operator", "erode") == "dilate" {
			op = MorphDilate
		}
		return FeMorphology{PrimitiveBase: primBase(e), Operator: op, RadiusX: rx, RadiusY: ry}

	case "feConvolveMatrix":
		return parseConvolveMatrix(e)

	case "feTurbulence":
		fx, fy := numPair(e, "baseFrequency", 0)
		if fx < 0 || fy < 0 {
			return nil
		}
		return FeTurbulence{
			PrimitiveBase: primBase(e),
			BaseFreqX:     fx, BaseFreqY: fy,
			Octaves: int(numOr(e, "numOctaves", 1)),
			Seed:    int32(numOr(e, "seed", 0)),
			Stitch:  e.AttrOr("stitchTiles", "noStitch") == "stitch",
			Fractal: e.AttrOr("type", "turbulence") == "fractalNoise",
		}

	case "feDisplacementMap":
		return FeDisplacementMap{
			PrimitiveBase: primBase(e),
			Scale:         numOr(e, "scale", 0),
			XChannel:      parseChannel(e.AttrOr("xChannelSelector", "A")),
			YChannel:      parseChannel(e.AttrOr("yChannelSelector", "A")),
		}

	case "feDiffuseLighting":
		return FeDiffuseLighting{
			PrimitiveBase:   primBase(e),
			SurfaceScale:    numOr(e, "surfaceScale", 1),
			DiffuseConstant: numOr(e, "diffuseConstant", 1),
			Color:           lightingColor(e),
			Light:           parseLight(e),
		}

	case "feSpecularLighting":
		return FeSpecularLighting{
			PrimitiveBase:    primBase(e),
			SurfaceScale:     numOr(e, "surfaceScale", 1),
			SpecularConstant: numOr(e, "specularConstant", 1),
			SpecularExponent: numOr(e, "specularExponent", 1),
			Color:            lightingColor(e),
			Light:            parseLight(e),
		}
	}
	svglog.Logger().Warn("unsupported filter primitive", "tag", e.Tag)
	return nil
}

func parseColorMatrix(e *svgdom.Element) FilterPrimitive {
	base := primBase(e)
	values, _ := e.NumberList("values")
	switch e.AttrOr("type", "matrix") {
	case "saturate":
		v := 1.0
		if len(values) == 1 {
			v = clamp01(values[0])
		}
		return FeColorMatrix{PrimitiveBase: base, Kind: CMSaturate, Values: []float64{v}}
	case "hueRotate":
		v := 0.0
		if len(values) == 1 {
			v = values[0]
		}
		return FeColorMatrix{PrimitiveBase: base, Kind: CMHueRotate, Values: []float64{v}}
	case "luminanceToAlpha":
		return FeColorMatrix{PrimitiveBase: base, Kind: CMLuminanceToAlpha}
	default:
		if len(values) != 20 {
			// identity
			return FeColorMatrix{PrimitiveBase: base, Kind: CMSaturate, Values: []float64{1}}
		}
		return FeColorMatrix{PrimitiveBase: base, Kind: CMMatrix, Values: values}
	}
}

func parseConvolveMatrix(e *svgdom.Element) FilterPrimitive {
	ox, oy := numPair(e, "order", 3)
	orderX, orderY := int(ox), int(oy)
	if orderX <= 0 || orderY <= 0 {
		return nil
	}
	kernel, ok := e.NumberList("kernelMatrix")
	if !ok || len(kernel) != orderX*orderY {
		return nil
	}
	div := numOr(e, "divisor", 0)
	if div == 0 {
		for _, k := range kernel {
			div += k
		}
		if div == 0 {
			div = 1
		}
	}
	tx := int(numOr(e, "targetX", math.Floor(float64(orderX)/2)))
	ty := int(numOr(e, "targetY", math.Floor(float64(orderY)/2)))
	if tx < 0 || tx >= orderX || ty < 0 || ty >= orderY {
		return nil
	}
	edge := EdgeDuplicate
	switch e.AttrOr("edgeMode", "duplicate") {
	case "wrap":
		edge = EdgeWrap
	case "none":
		edge = EdgeNone
	}
	return FeConvolveMatrix{
		PrimitiveBase: primBase(e),
		OrderX:        orderX, OrderY: orderY,
		Kernel:  kernel,
		Divisor: div,
		Bias:    numOr(e, "bias", 0),
		TargetX: tx, TargetY: ty,
		Edge:          edge,
		PreserveAlpha: e.AttrOr("preserveAlpha", "false") == "true",
	}
}

func parseChannel(v string) Channel {
	switch v {
	case "R":
		return ChannelR
	case "G":
		return ChannelG
	case "B":
		return ChannelB
	}
	return ChannelA
}

func lightingColor(e *svgdom.Element) color.RGBA {
	c := color.RGBA{0xff, 0xff, 0xff, 0xff}
	if v, ok := stopProp(e, "lighting-color"); ok {
		if cv, ok := svgdom.ParseColor(v); ok && !cv.None {
			c = cv.Color
		}
	}
	return c
}

// parseLight reads the first light-source child.
func parseLight(e *svgdom.Element) Light {
	for _, child := range e.Children() {
		switch child.Tag {
		case "feDistantLight":
			return DistantLight{
				Azimuth:   numOr(child, "azimuth", 0),
				Elevation: numOr(child, "elevation", 0),
			}
		case "fePointLight":
			return PointLight{
				X: numOr(child, "x", 0),
				Y: numOr(child, "y", 0),
				Z: numOr(child, "z", 0),
			}
		case "feSpotLight":
			l := SpotLight{
				X:                numOr(child, "x", 0),
				Y:                numOr(child, "y", 0),
				Z:                numOr(child, "z", 0),
				PointsAtX:        numOr(child, "pointsAtX", 0),
				PointsAtY:        numOr(child, "pointsAtY", 0),
				PointsAtZ:        numOr(child, "pointsAtZ", 0),
				SpecularExponent: numOr(child, "specularExponent", 1),
			}
			if cone, ok := child.Number("limitingConeAngle"); ok {
				l.ConeAngle, l.HasConeAngle = cone, true
			}
			return l
		}
	}
	return DistantLight{}
}
