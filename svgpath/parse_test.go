package svgpath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/math/fixed"
)

// equivalent inputs must parse to the same operation list
func TestParsePathEquivalences(t *testing.T) {
	for _, pair := range [][2]string{
		{"m 1 2 l 3 4", "M1 2L4 6"},
		{"M0 0 10 10", "M0 0L10 10"},            // implicit lineto
		{"m0 0 10 10", "M0 0L10 10"},            // relative implicit lineto
		{"M0,0H10V5", "M0 0L10 0L10 5"},
		{"M20 10h-10v-5", "M20 10L10 10L10 5"},
		{"M0 0C1 1 2 1 3 0S5 -1 6 0", "M0 0C1 1 2 1 3 0C4 -1 5 -1 6 0"},
		{"M0 0Q1 1 2 0T4 0", "M0 0Q1 1 2 0Q3 -1 4 0"},
		{"M0 0L5 0S7 2 9 0", "M0 0L5 0C5 0 7 2 9 0"}, // S without preceding C
		{"M1.5.5L2 1", "M1.5 0.5L2 1"},               // abutting decimals
		{"M0 0l1e1 0", "M0 0L10 0"},
		{"M0 0-5-5", "M0 0L-5 -5"},
		{"M0 0A0 4 0 0 1 10 0", "M0 0L10 0"}, // degenerate radius
		{"M0 0L1 1Z", "M0 0L1 1z"},
	} {
		got, err := ParsePath(pair[0])
		require.NoError(t, err, pair[0])
		want, err := ParsePath(pair[1])
		require.NoError(t, err, pair[1])
		require.Equal(t, want.String(), got.String(), pair[0])
	}
}

func TestParsePathErrors(t *testing.T) {
	for _, bad := range []string{
		"M0 0X",      // unknown command
		"M0 0L1",     // missing coordinate
		"M0 0C1 1 2", // short cubic
		"M0 0A5 5 0 2 1 10 0", // invalid arc flag
		"M",
	} {
		_, err := ParsePath(bad)
		require.Error(t, err, bad)
	}
}

func TestParsePathEmpty(t *testing.T) {
	p, err := ParsePath("")
	require.NoError(t, err)
	require.Empty(t, p)
}

// the arc command must land exactly on its end point
func TestParsePathArcEndPoint(t *testing.T) {
	p, err := ParsePath("M0 0A5 5 0 0 1 10 0")
	require.NoError(t, err)
	require.NotEmpty(t, p)
	last, ok := p[len(p)-1].(CubicTo)
	require.True(t, ok)
	require.InDelta(t, 10, float64(last[2].X)/64, 0.05)
	require.InDelta(t, 0, float64(last[2].Y)/64, 0.05)
}

func TestPathTransform(t *testing.T) {
	p, err := ParsePath("M0 0L10 0 10 10Z")
	require.NoError(t, err)
	moved := p.Transform(Identity.Translate(5, 5))
	want, err := ParsePath("M5 5L15 5 15 15Z")
	require.NoError(t, err)
	require.Equal(t, want.String(), moved.String())
	// the original is untouched
	require.Equal(t, MoveTo(fixed.Point26_6{}), p[0])
}

func TestBoundingBox(t *testing.T) {
	p, err := ParsePath("M0 0L10 5 2 8Z")
	require.NoError(t, err)
	bb := p.BoundingBox()
	require.Equal(t, Bounds{X: 0, Y: 0, W: 10, H: 8}, bb)

	sb := p.StrokeBounds(2, 4)
	require.LessOrEqual(t, sb.X, -1.0)
	require.GreaterOrEqual(t, sb.W, 12.0)
}

func TestMatrixInvert(t *testing.T) {
	m := Identity.Translate(3, 4).Scale(2, 3).Rotate(0.5)
	id := m.Mult(m.Invert())
	require.InDelta(t, 1, id.A, 1e-9)
	require.InDelta(t, 0, id.B, 1e-9)
	require.InDelta(t, 0, id.C, 1e-9)
	require.InDelta(t, 1, id.D, 1e-9)
	require.InDelta(t, 0, id.E, 1e-9)
	require.InDelta(t, 0, id.F, 1e-9)
}

func TestMatrixScaleFactors(t *testing.T) {
	sx, sy := Identity.Scale(2, 3).ScaleFactors()
	require.InDelta(t, 2, sx, 1e-12)
	require.InDelta(t, 3, sy, 1e-12)

	sx, sy = Identity.Rotate(math.Pi/3).Scale(2, 2).ScaleFactors()
	require.InDelta(t, 2, sx, 1e-12)
	require.InDelta(t, 2, sy, 1e-12)
}

func TestMatrixComposition(t *testing.T) {
	// child = parent x local: translate then scale
	m := Identity.Translate(10, 0).Mult(Identity.Scale(2, 2))
	x, y := m.Transform(1, 1)
	require.InDelta(t, 12, x, 1e-12)
	require.InDelta(t, 2, y, 1e-12)
}
