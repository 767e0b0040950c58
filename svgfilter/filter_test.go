package svgfilter

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/svgrender/svgpath"
	"github.com/benoitkugler/svgrender/svgtree"
)

// pb builds primitive wiring with no explicit subregion.
func pb(in, result string) svgtree.PrimitiveBase {
	nan := math.NaN()
	return svgtree.PrimitiveBase{In: in, Result: result, Subregion: [4]float64{nan, nan, nan, nan}}
}

// testSource fills a buffer with a deterministic premultiplied
// pattern (channels never exceed alpha).
func testSource(w, h int) *Buffer {
	b := NewBuffer(w, h)
	for i := 0; i < len(b.Pix); i += 4 {
		a := uint8(40 + (i*13)%200)
		b.Pix[i] = a / 2
		b.Pix[i+1] = a / 3
		b.Pix[i+2] = a - a/4
		b.Pix[i+3] = a
	}
	return b
}

func region(w, h int) svgpath.Bounds {
	return svgpath.Bounds{W: float64(w), H: float64(h)}
}

func run(src *Buffer, prims ...svgtree.FilterPrimitive) *Buffer {
	f := &svgtree.Filter{Primitives: prims}
	return Apply(f, src, nil, region(src.W, src.H), 1, 1)
}

// a filter without primitives erases its subject
func TestEmptyFilterErases(t *testing.T) {
	src := testSource(4, 4)
	out := run(src)
	for _, p := range out.Pix {
		require.Zero(t, p)
	}
}

// arithmetic compositing with k2=1 (resp. k3=1) passes the first
// (resp. second) input through unchanged
func TestArithmeticIdentities(t *testing.T) {
	src := testSource(5, 3)
	flood := svgtree.FeFlood{
		PrimitiveBase: pb("", "b"),
		Color:         color.RGBA{0, 0, 0xff, 0xff},
		Opacity:       0.5,
	}

	comp := svgtree.FeComposite{
		PrimitiveBase: pb(svgtree.InSourceGraphic, ""),
		Operator:      svgtree.CompArithmetic,
		K2:            1,
	}
	comp.In2 = "b"
	out := run(src, flood, comp)
	require.Equal(t, src.Pix, out.Pix)

	comp.K2, comp.K3 = 0, 1
	out = run(src, flood, comp)
	want := run(src, flood)
	require.Equal(t, want.Pix, out.Pix)
}

func TestCompositeOver(t *testing.T) {
	src := testSource(4, 4)

	// a fully transparent layer over the source is the source
	clear := svgtree.FeFlood{PrimitiveBase: pb("", "c"), Opacity: 0}
	comp := svgtree.FeComposite{PrimitiveBase: pb("c", ""), Operator: svgtree.CompOver}
	comp.In2 = svgtree.InSourceGraphic
	out := run(src, clear, comp)
	require.Equal(t, src.Pix, out.Pix)

	// an opaque layer hides it entirely
	opaque := svgtree.FeFlood{
		PrimitiveBase: pb("", "o"),
		Color:         color.RGBA{0, 0xff, 0, 0xff},
		Opacity:       1,
	}
	comp = svgtree.FeComposite{PrimitiveBase: pb("o", ""), Operator: svgtree.CompOver}
	comp.In2 = svgtree.InSourceGraphic
	out = run(src, opaque, comp)
	for i := 0; i < len(out.Pix); i += 4 {
		require.Equal(t, []uint8{0, 0xff, 0, 0xff}, out.Pix[i:i+4])
	}
}

// opaque red converts to an alpha of exactly 54 (BT.709 weights)
func TestLuminanceToAlpha(t *testing.T) {
	src := NewBuffer(1, 1)
	copy(src.Pix, []uint8{0xff, 0, 0, 0xff})
	out := run(src, svgtree.FeColorMatrix{
		PrimitiveBase: pb(svgtree.InSourceGraphic, ""),
		Kind:          svgtree.CMLuminanceToAlpha,
	})
	require.Equal(t, []uint8{0, 0, 0, 54}, out.Pix)
}

func TestColorMatrixSaturateIdentity(t *testing.T) {
	src := testSource(4, 2)
	out := run(src, svgtree.FeColorMatrix{
		PrimitiveBase: pb(svgtree.InSourceGraphic, ""),
		Kind:          svgtree.CMSaturate,
		Values:        []float64{1},
	})
	for i := range src.Pix {
		require.InDelta(t, src.Pix[i], out.Pix[i], 1, "channel %d", i)
	}
}

func TestBlurZeroSigma(t *testing.T) {
	src := testSource(6, 6)
	out := run(src, svgtree.FeGaussianBlur{PrimitiveBase: pb(svgtree.InSourceGraphic, "")})
	require.Equal(t, src.Pix, out.Pix)
}

// blurring must not create or destroy total coverage far from edges,
// and spreads a point into its neighborhood
func TestBlurSpreads(t *testing.T) {
	src := NewBuffer(11, 11)
	copy(src.Pix[src.offset(5, 5):], []uint8{0xff, 0xff, 0xff, 0xff})
	out := run(src, svgtree.FeGaussianBlur{
		PrimitiveBase: pb(svgtree.InSourceGraphic, ""),
		StdX:          1, StdY: 1,
	})
	center := out.Pix[out.offset(5, 5)+3]
	neighbor := out.Pix[out.offset(6, 5)+3]
	require.Greater(t, int(center), 0)
	require.Greater(t, int(neighbor), 0)
	require.Less(t, int(center), 255)
	require.GreaterOrEqual(t, center, neighbor)
}

func TestOffset(t *testing.T) {
	src := NewBuffer(4, 4)
	copy(src.Pix[src.offset(1, 1):], []uint8{0xff, 0, 0, 0xff})
	out := run(src, svgtree.FeOffset{
		PrimitiveBase: pb(svgtree.InSourceGraphic, ""),
		Dx:            2, Dy: 1,
	})
	require.Equal(t, []uint8{0xff, 0, 0, 0xff}, out.Pix[out.offset(3, 2):out.offset(3, 2)+4])
	// the vacated position is transparent
	require.Equal(t, []uint8{0, 0, 0, 0}, out.Pix[out.offset(1, 1):out.offset(1, 1)+4])
}

// a flood restricted to a 2x2 subregion tiles over the whole region
func TestTile(t *testing.T) {
	src := NewBuffer(5, 5)
	flood := svgtree.FeFlood{
		PrimitiveBase: pb("", "t"),
		Color:         color.RGBA{0xff, 0, 0, 0xff},
		Opacity:       1,
	}
	flood.Subregion = [4]float64{0, 0, 2, 2}
	out := run(src, flood, svgtree.FeTile{PrimitiveBase: pb("t", "")})
	for i := 0; i < len(out.Pix); i += 4 {
		require.Equal(t, []uint8{0xff, 0, 0, 0xff}, out.Pix[i:i+4])
	}
}

func TestMorphologyDilate(t *testing.T) {
	src := NewBuffer(5, 5)
	copy(src.Pix[src.offset(2, 2):], []uint8{0xff, 0, 0, 0xff})
	out := run(src, svgtree.FeMorphology{
		PrimitiveBase: pb(svgtree.InSourceGraphic, ""),
		Operator:      svgtree.MorphDilate,
		RadiusX:       1, RadiusY: 1,
	})
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			a := out.Pix[out.offset(x, y)+3]
			inside := x >= 1 && x <= 3 && y >= 1 && y <= 3
			if inside {
				require.Equal(t, uint8(0xff), a, "pixel %d,%d", x, y)
			} else {
				require.Zero(t, a, "pixel %d,%d", x, y)
			}
		}
	}
}

// a neutral displacement map (all channels at 0.5) leaves the input
// in place
func TestDisplacementNeutral(t *testing.T) {
	src := testSource(4, 4)
	gray := svgtree.FeFlood{
		PrimitiveBase: pb("", "map"),
		Color:         color.RGBA{0x80, 0x80, 0x80, 0xff},
		Opacity:       1,
	}
	disp := svgtree.FeDisplacementMap{
		PrimitiveBase: pb(svgtree.InSourceGraphic, ""),
		Scale:         10,
		XChannel:      svgtree.ChannelR,
		YChannel:      svgtree.ChannelG,
	}
	disp.In2 = "map"
	out := run(src, gray, disp)
	require.Equal(t, src.Pix, out.Pix)
}

// turbulence is deterministic for a fixed seed, and its output stays
// premultiplied
func TestTurbulence(t *testing.T) {
	src := NewBuffer(8, 8)
	turb := svgtree.FeTurbulence{
		PrimitiveBase: pb("", ""),
		BaseFreqX:     0.2, BaseFreqY: 0.2,
		Octaves: 2,
		Seed:    7,
		Fractal: true,
	}
	first := run(src, turb)
	second := run(src, turb)
	require.Equal(t, first.Pix, second.Pix)

	nonZero := false
	for i := 0; i < len(first.Pix); i += 4 {
		a := first.Pix[i+3]
		require.LessOrEqual(t, first.Pix[i], a)
		require.LessOrEqual(t, first.Pix[i+1], a)
		require.LessOrEqual(t, first.Pix[i+2], a)
		if a > 0 {
			nonZero = true
		}
	}
	require.True(t, nonZero)
}

func TestNamedResults(t *testing.T) {
	src := testSource(3, 3)
	// reference an earlier result by name, skipping the in-between one
	flood := svgtree.FeFlood{PrimitiveBase: pb("", "red"), Color: color.RGBA{0xff, 0, 0, 0xff}, Opacity: 1}
	blur := svgtree.FeGaussianBlur{PrimitiveBase: pb("red", "soft"), StdX: 2, StdY: 2}
	offset := svgtree.FeOffset{PrimitiveBase: pb("red", "")}
	out := run(src, flood, blur, offset)
	for i := 0; i < len(out.Pix); i += 4 {
		require.Equal(t, []uint8{0xff, 0, 0, 0xff}, out.Pix[i:i+4])
	}
}

func TestSourceAlpha(t *testing.T) {
	src := testSource(3, 3)
	out := run(src, svgtree.FeOffset{PrimitiveBase: pb(svgtree.InSourceAlpha, "")})
	for i := 0; i < len(out.Pix); i += 4 {
		require.Zero(t, out.Pix[i])
		require.Zero(t, out.Pix[i+1])
		require.Zero(t, out.Pix[i+2])
		require.Equal(t, src.Pix[i+3], out.Pix[i+3])
	}
}
