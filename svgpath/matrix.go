package svgpath

import (
	"math"

	"golang.org/x/image/math/fixed"
)

// Matrix2D is an affine transform:
//
//	x' = A*x + C*y + E
//	y' = B*x + D*y + F
//
// The field layout matches rasterx.Matrix2D so the two convert by a
// plain struct conversion.
type Matrix2D struct {
	A, B, C, D, E, F float64
}

// Identity is the identity transform.
var Identity = Matrix2D{A: 1, D: 1}

// Mult returns a × b: b is applied first.
func (a Matrix2D) Mult(b Matrix2D) Matrix2D {
	return Matrix2D{
		A: a.A*b.A + a.C*b.B,
		B: a.B*b.A + a.D*b.B,
		C: a.A*b.C + a.C*b.D,
		D: a.B*b.C + a.D*b.D,
		E: a.A*b.E + a.C*b.F + a.E,
		F: a.B*b.E + a.D*b.F + a.F,
	}
}

// Translate post-multiplies a translation.
func (a Matrix2D) Translate(x, y float64) Matrix2D {
	return a.Mult(Matrix2D{A: 1, D: 1, E: x, F: y})
}

// Scale post-multiplies a scale.
func (a Matrix2D) Scale(x, y float64) Matrix2D {
	return a.Mult(Matrix2D{A: x, D: y})
}

// Rotate post-multiplies a rotation by theta radians.
func (a Matrix2D) Rotate(theta float64) Matrix2D {
	sin, cos := math.Sin(theta), math.Cos(theta)
	return a.Mult(Matrix2D{A: cos, B: sin, C: -sin, D: cos})
}

// SkewX post-multiplies a horizontal shear by theta radians.
func (a Matrix2D) SkewX(theta float64) Matrix2D {
	return a.Mult(Matrix2D{A: 1, D: 1, C: math.Tan(theta)})
}

// SkewY post-multiplies a vertical shear by theta radians.
func (a Matrix2D) SkewY(theta float64) Matrix2D {
	return a.Mult(Matrix2D{A: 1, D: 1, B: math.Tan(theta)})
}

// Determinant of the linear part.
func (a Matrix2D) Determinant() float64 {
	return a.A*a.D - a.B*a.C
}

// ScaleFactors returns the lengths of the transformed unit axes.
func (a Matrix2D) ScaleFactors() (sx, sy float64) {
	return math.Hypot(a.A, a.B), math.Hypot(a.C, a.D)
}

// Invert returns the inverse transform. The matrix must not be
// singular.
func (a Matrix2D) Invert() Matrix2D {
	det := a.Determinant()
	return Matrix2D{
		A: a.D / det,
		B: -a.B / det,
		C: -a.C / det,
		D: a.A / det,
		E: (a.C*a.F - a.D*a.E) / det,
		F: (a.B*a.E - a.A*a.F) / det,
	}
}

// Transform applies the matrix to the point (x, y).
func (a Matrix2D) Transform(x, y float64) (float64, float64) {
	return a.A*x + a.C*y + a.E, a.B*x + a.D*y + a.F
}

// TransformVector applies the linear part only (no translation).
func (a Matrix2D) TransformVector(x, y float64) (float64, float64) {
	return a.A*x + a.C*y, a.B*x + a.D*y
}

func (a Matrix2D) trPoint(p fixed.Point26_6) fixed.Point26_6 {
	x, y := a.Transform(float64(p.X)/64, float64(p.Y)/64)
	return fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
}

func (a Matrix2D) trMove(op MoveTo) fixed.Point26_6 { return a.trPoint(fixed.Point26_6(op)) }
func (a Matrix2D) trLine(op LineTo) fixed.Point26_6 { return a.trPoint(fixed.Point26_6(op)) }

func (a Matrix2D) trQuad(op QuadTo) (b, c fixed.Point26_6) {
	return a.trPoint(op[0]), a.trPoint(op[1])
}

func (a Matrix2D) trCubic(op CubicTo) (b, c, d fixed.Point26_6) {
	return a.trPoint(op[0]), a.trPoint(op[1]), a.trPoint(op[2])
}
