package svgpath

import "math"

// Bounds defines a bounding box, such as a viewport or a path extent.
type Bounds struct{ X, Y, W, H float64 }

// IsEmpty reports a degenerate box.
func (b Bounds) IsEmpty() bool { return b.W <= 0 || b.H <= 0 }

// Union merges two boxes; empty operands are ignored.
func (b Bounds) Union(o Bounds) Bounds {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	minX := math.Min(b.X, o.X)
	minY := math.Min(b.Y, o.Y)
	maxX := math.Max(b.X+b.W, o.X+o.W)
	maxY := math.Max(b.Y+b.H, o.Y+o.H)
	return Bounds{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Inset grows (negative d) or shrinks (positive d) the box.
func (b Bounds) Inset(d float64) Bounds {
	return Bounds{X: b.X + d, Y: b.Y + d, W: b.W - 2*d, H: b.H - 2*d}
}

// Transform returns the axis-aligned box covering the transformed
// corners of b.
func (b Bounds) Transform(m Matrix2D) Bounds {
	x0, y0 := m.Transform(b.X, b.Y)
	x1, y1 := m.Transform(b.X+b.W, b.Y)
	x2, y2 := m.Transform(b.X, b.Y+b.H)
	x3, y3 := m.Transform(b.X+b.W, b.Y+b.H)
	minX := math.Min(math.Min(x0, x1), math.Min(x2, x3))
	minY := math.Min(math.Min(y0, y1), math.Min(y2, y3))
	maxX := math.Max(math.Max(x0, x1), math.Max(x2, x3))
	maxY := math.Max(math.Max(y0, y1), math.Max(y2, y3))
	return Bounds{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// BoundingBox returns the control-point bounding box of the path.
// Control points of curves lie outside the curve but never inside its
// hull, so the box is conservative: it always covers the outline.
func (p Path) BoundingBox() Bounds {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	add := func(x, y float64) {
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	for _, op := range p {
		switch op := op.(type) {
		case MoveTo:
			add(float64(op.X)/64, float64(op.Y)/64)
		case LineTo:
			add(float64(op.X)/64, float64(op.Y)/64)
		case QuadTo:
			for _, pt := range op {
				add(float64(pt.X)/64, float64(pt.Y)/64)
			}
		case CubicTo:
			for _, pt := range op {
				add(float64(pt.X)/64, float64(pt.Y)/64)
			}
		}
	}
	if minX > maxX || minY > maxY {
		return Bounds{}
	}
	return Bounds{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// StrokeBounds expands the path box by the stroke geometry: half the
// line width, scaled by the miter limit to cover spiked joins.
func (p Path) StrokeBounds(width, miterLimit float64) Bounds {
	bb := p.BoundingBox()
	if len(p) == 0 {
		return bb
	}
	d := width / 2 * math.Max(1, miterLimit)
	return bb.Inset(-d)
}
