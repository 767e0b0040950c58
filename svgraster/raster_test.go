package svgraster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/svgrender/svgpath"
	"github.com/benoitkugler/svgrender/svgtree"
)

func render(t *testing.T, src string) *image.RGBA {
	t.Helper()
	img, err := RasterSVGToImage(strings.NewReader(src), nil)
	require.NoError(t, err)
	return img
}

// the output pixmap matches the declared document size
func TestDeclaredSize(t *testing.T) {
	img := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="8">
	  <rect width="10" height="8" fill="#ff0000"/>
	</svg>`)
	require.Equal(t, 10, img.Bounds().Dx())
	require.Equal(t, 8, img.Bounds().Dy())
	require.Equal(t, color.RGBA{0xff, 0, 0, 0xff}, img.RGBAAt(5, 4))
}

func TestCircleAntialiasing(t *testing.T) {
	img := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <circle cx="10" cy="10" r="6" fill="#0000ff"/>
	</svg>`)
	require.Equal(t, color.RGBA{0, 0, 0xff, 0xff}, img.RGBAAt(10, 10))
	require.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))

	// the circle edge must carry partial coverage
	partial := false
	for y := 0; y < 20 && !partial; y++ {
		for x := 0; x < 20; x++ {
			if a := img.RGBAAt(x, y).A; a > 0 && a < 255 {
				partial = true
				break
			}
		}
	}
	require.True(t, partial)
}

// fill-opacity stores premultiplied pixels
func TestFillOpacityPremultiplied(t *testing.T) {
	img := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">
	  <rect width="10" height="10" fill="#000000" fill-opacity="0.5"/>
	</svg>`)
	px := img.RGBAAt(5, 5)
	require.Zero(t, px.R)
	require.Zero(t, px.G)
	require.Zero(t, px.B)
	require.InDelta(t, 128, px.A, 2)
}

func TestGroupOpacity(t *testing.T) {
	img := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">
	  <g opacity="0.5"><rect width="10" height="10" fill="#ff0000"/></g>
	</svg>`)
	px := img.RGBAAt(5, 5)
	require.InDelta(t, 128, px.R, 1)
	require.Zero(t, px.G)
	require.Zero(t, px.B)
	require.InDelta(t, 128, px.A, 1)
}

// a zero-scale transform collapses its subtree to nothing
func TestZeroScaleTransform(t *testing.T) {
	img := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">
	  <rect transform="scale(0)" width="10" height="10" fill="#ff0000"/>
	</svg>`)
	for _, p := range img.Pix {
		require.Zero(t, p)
	}
}

func TestClipPath(t *testing.T) {
	img := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">
	  <clipPath id="cp"><rect width="5" height="10"/></clipPath>
	  <g clip-path="url(#cp)"><rect width="10" height="10" fill="#00ff00"/></g>
	</svg>`)
	require.Equal(t, color.RGBA{0, 0xff, 0, 0xff}, img.RGBAAt(2, 5))
	require.Equal(t, color.RGBA{}, img.RGBAAt(7, 5))
}

func TestMaskLuminance(t *testing.T) {
	img := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">
	  <mask id="m"><rect width="10" height="5" fill="#ffffff"/></mask>
	  <rect width="10" height="10" fill="#000000" mask="url(#m)"/>
	</svg>`)
	require.Equal(t, color.RGBA{0, 0, 0, 0xff}, img.RGBAAt(5, 2))
	require.Equal(t, color.RGBA{}, img.RGBAAt(5, 8))
}

// expanding a use must paint exactly like the inlined equivalent
func TestUseMatchesInlined(t *testing.T) {
	withUse := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <defs><circle id="c" cx="5" cy="5" r="4" fill="#123456"/></defs>
	  <use href="#c" x="6" y="3"/>
	</svg>`)
	inlined := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <g transform="translate(6 3)"><circle cx="5" cy="5" r="4" fill="#123456"/></g>
	</svg>`)
	require.Equal(t, inlined.Pix, withUse.Pix)
}

// forcing a layer on an otherwise plain group must not change a
// single pixel
func TestLayerTransparency(t *testing.T) {
	path, err := svgpath.ParsePath("M2 2L9 3 5 8Z")
	require.NoError(t, err)
	node := func() *svgtree.PathNode {
		n := &svgtree.PathNode{
			Path:    path,
			Fill:    &svgtree.Fill{Paint: svgtree.NewPlainColor(10, 200, 30, 0xff), Opacity: 1},
			Visible: true,
			BBox:    path.BoundingBox(),
		}
		n.StrokeBBox = n.BBox
		return n
	}
	makeTree := func(isolate bool) *svgtree.Tree {
		inner := &svgtree.Group{
			Transform: svgpath.Identity, Opacity: 1, Isolate: isolate,
			Children: []svgtree.Node{node()},
		}
		return &svgtree.Tree{
			Width: 12, Height: 12,
			Root: &svgtree.Group{
				Transform: svgpath.Identity, Opacity: 1,
				Children: []svgtree.Node{inner},
			},
		}
	}

	direct := NewPixmap(12, 12)
	Render(makeTree(false), svgpath.Identity, direct)
	layered := NewPixmap(12, 12)
	Render(makeTree(true), svgpath.Identity, layered)
	require.Equal(t, direct.Pix, layered.Pix)
}

// the pad spread extends the terminal stop colors beyond the axis
func TestGradientPadSpread(t *testing.T) {
	path, err := svgpath.ParsePath("M0 0L30 0 30 10 0 10Z")
	require.NoError(t, err)
	node := &svgtree.PathNode{
		Path:    path,
		Fill:    &svgtree.Fill{Paint: svgtree.GradientRef("lg"), Opacity: 1},
		Visible: true,
		BBox:    path.BoundingBox(),
	}
	node.StrokeBBox = node.BBox
	tree := &svgtree.Tree{
		Width: 30, Height: 10,
		Root: &svgtree.Group{Transform: svgpath.Identity, Opacity: 1, Children: []svgtree.Node{node}},
		Defs: svgtree.Defs{
			Gradients: map[string]*svgtree.Gradient{
				"lg": {
					Direction: svgtree.Linear{0, 0, 10, 0},
					Stops: []svgtree.GradStop{
						{StopColor: svgtree.NewPlainColor(0xff, 0, 0, 0xff), Offset: 0, Opacity: 1},
						{StopColor: svgtree.NewPlainColor(0, 0, 0xff, 0xff), Offset: 1, Opacity: 1},
					},
					Matrix: svgpath.Identity,
					Units:  svgtree.UserSpaceOnUse,
					Spread: svgtree.PadSpread,
				},
			},
		},
	}
	pix := NewPixmap(30, 10)
	Render(tree, svgpath.Identity, pix)

	// left end near the first stop, far right pinned at the last one
	left := pix.At(1, 5)
	require.Greater(t, int(left.R), 200)
	require.Equal(t, uint8(0xff), left.A)

	right := pix.At(25, 5)
	require.InDelta(t, 0, right.R, 3)
	require.InDelta(t, 255, right.B, 3)
	require.Equal(t, uint8(0xff), right.A)
}

// a rotated patternTransform carries through to the tiling: the
// striped tile paints vertical stripes after rotate(90)
func TestPatternTransformRotation(t *testing.T) {
	const tile = `<pattern id="p" width="4" height="4" patternUnits="userSpaceOnUse"%s>
	    <rect width="4" height="2" fill="#ff0000"/>
	    <rect y="2" width="4" height="2" fill="#0000ff"/>
	  </pattern>
	  <rect width="8" height="8" fill="url(#p)"/>`
	const doc = `<svg xmlns="http://www.w3.org/2000/svg" width="8" height="8">%s</svg>`

	red := color.RGBA{0xff, 0, 0, 0xff}
	blue := color.RGBA{0, 0, 0xff, 0xff}

	plain := render(t, fmt.Sprintf(doc, fmt.Sprintf(tile, "")))
	require.Equal(t, red, plain.RGBAAt(0, 0))
	require.Equal(t, blue, plain.RGBAAt(0, 2))
	require.Equal(t, red, plain.RGBAAt(5, 4))

	rotated := render(t, fmt.Sprintf(doc, fmt.Sprintf(tile, ` patternTransform="rotate(90)"`)))
	require.Equal(t, blue, rotated.RGBAAt(0, 0))
	require.Equal(t, red, rotated.RGBAAt(3, 0))
	require.Equal(t, red, rotated.RGBAAt(2, 5))
	require.Equal(t, blue, rotated.RGBAAt(1, 5))
}

func TestStroke(t *testing.T) {
	img := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="10">
	  <line x1="0" y1="5" x2="20" y2="5" stroke="#ff00ff" stroke-width="4"/>
	</svg>`)
	require.Equal(t, color.RGBA{0xff, 0, 0xff, 0xff}, img.RGBAAt(10, 5))
	require.Equal(t, color.RGBA{}, img.RGBAAt(10, 1))
}

func TestRenderContextCancelled(t *testing.T) {
	tree := &svgtree.Tree{
		Width: 4, Height: 4,
		Root: &svgtree.Group{Transform: svgpath.Identity, Opacity: 1},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pix := NewPixmap(4, 4)
	RenderContext(ctx, tree, svgpath.Identity, pix)
	for _, p := range pix.Pix {
		require.Zero(t, p)
	}
}

// a filter without primitives erases its subject entirely
func TestEmptyFilterErasesGroup(t *testing.T) {
	img := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">
	  <filter id="f"></filter>
	  <rect width="10" height="10" fill="#ff0000" filter="url(#f)"/>
	</svg>`)
	for _, p := range img.Pix {
		require.Zero(t, p)
	}
}

func TestGaussianBlurFilter(t *testing.T) {
	img := render(t, `<svg xmlns="http://www.w3.org/2000/svg" width="30" height="30">
	  <filter id="b"><feGaussianBlur stdDeviation="2"/></filter>
	  <rect x="10" y="10" width="10" height="10" fill="#ff0000" filter="url(#b)"/>
	</svg>`)
	// solid in the middle, faded but present just outside the rect
	require.Equal(t, uint8(0xff), img.RGBAAt(15, 15).A)
	edge := img.RGBAAt(20, 15).A
	require.Greater(t, int(edge), 0)
	require.Less(t, int(edge), 255)
}
