package svgtree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svgpath"
)

func buildSVG(t *testing.T, src string) *Tree {
	t.Helper()
	doc, err := svgdom.Parse(strings.NewReader(src), svgdom.IgnoreErrorMode)
	require.NoError(t, err)
	tree, err := Build(doc, &Options{})
	require.NoError(t, err)
	return tree
}

// collectPaths flattens the tree into its path nodes.
func collectPaths(g *Group) []*PathNode {
	var out []*PathNode
	for _, child := range g.Children {
		switch child := child.(type) {
		case *Group:
			out = append(out, collectPaths(child)...)
		case *PathNode:
			out = append(out, child)
		}
	}
	return out
}

func TestBuildViewport(t *testing.T) {
	tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="40" height="30" viewBox="0 0 20 15"></svg>`)
	require.Equal(t, 40.0, tree.Width)
	require.Equal(t, 30.0, tree.Height)
	// the root transform maps viewBox to pixels
	x, y := tree.Root.Transform.Transform(20, 15)
	require.InDelta(t, 40, x, 1e-9)
	require.InDelta(t, 30, y, 1e-9)

	_, err := Build(mustParse(t, `<svg xmlns="http://www.w3.org/2000/svg"></svg>`), &Options{})
	require.ErrorIs(t, err, ErrInvalidSize)
}

func mustParse(t *testing.T, src string) *svgdom.Document {
	t.Helper()
	doc, err := svgdom.Parse(strings.NewReader(src), svgdom.IgnoreErrorMode)
	require.NoError(t, err)
	return doc
}

func TestShapeLowering(t *testing.T) {
	tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <rect x="2" y="3" width="10" height="5" fill="#102030"/>
	  <circle cx="10" cy="10" r="0" fill="red"/>
	  <line x1="0" y1="0" x2="5" y2="5" stroke="black"/>
	</svg>`)
	paths := collectPaths(tree.Root)
	// the zero-radius circle is dropped
	require.Len(t, paths, 2)

	rect := paths[0]
	require.NotNil(t, rect.Fill)
	require.Equal(t, NewPlainColor(0x10, 0x20, 0x30, 0xff), rect.Fill.Paint)
	require.Nil(t, rect.Stroke)
	require.Equal(t, svgpath.Bounds{X: 2, Y: 3, W: 10, H: 5}, rect.BBox)

	line := paths[1]
	require.NotNil(t, line.Stroke)
	require.Equal(t, NewPlainColor(0, 0, 0, 0xff), line.Stroke.Paint)
	require.Equal(t, 1.0, line.Stroke.Width)
}

func TestStyleInheritance(t *testing.T) {
	tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <g fill="#ff0000" fill-opacity="0.5" stroke-width="3" color="#0000ff">
	    <rect width="10" height="10" style="fill:#00ff00"/>
	    <rect width="10" height="10" fill="none" stroke="currentColor"/>
	  </g>
	</svg>`)
	paths := collectPaths(tree.Root)
	require.Len(t, paths, 2)

	require.Equal(t, NewPlainColor(0, 0xff, 0, 0xff), paths[0].Fill.Paint)
	require.Equal(t, 0.5, paths[0].Fill.Opacity)

	require.Nil(t, paths[1].Fill)
	require.Equal(t, NewPlainColor(0, 0, 0xff, 0xff), paths[1].Stroke.Paint)
	require.Equal(t, 3.0, paths[1].Stroke.Width)
}

// currentColor resolves against the color property of the element
// itself, whatever the order the attributes are visited in
func TestCurrentColorSameElement(t *testing.T) {
	for i := 0; i < 25; i++ {
		tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
		  <rect width="10" height="10" color="#0000ff" fill="currentColor" stroke="currentColor"/>
		</svg>`)
		paths := collectPaths(tree.Root)
		require.Len(t, paths, 1)
		require.Equal(t, NewPlainColor(0, 0, 0xff, 0xff), paths[0].Fill.Paint)
		require.Equal(t, NewPlainColor(0, 0, 0xff, 0xff), paths[0].Stroke.Paint)
	}
}

// presentation attributes on the root svg element inherit like on any
// container
func TestRootStyleInheritance(t *testing.T) {
	tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20" fill="#ff0000" fill-opacity="0.5">
	  <rect width="10" height="10"/>
	</svg>`)
	paths := collectPaths(tree.Root)
	require.Len(t, paths, 1)
	require.Equal(t, NewPlainColor(0xff, 0, 0, 0xff), paths[0].Fill.Paint)
	require.Equal(t, 0.5, paths[0].Fill.Opacity)
}

// under StrictErrorMode, malformed attributes and unsupported
// elements fail the lowering; IgnoreErrorMode degrades silently
func TestStrictModeErrors(t *testing.T) {
	for _, src := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20"><rect width="abc" height="5"/></svg>`,
		`<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20"><video/></svg>`,
	} {
		doc := mustParseMode(t, src, svgdom.StrictErrorMode)
		_, err := Build(doc, &Options{})
		require.Error(t, err, src)

		doc = mustParseMode(t, src, svgdom.IgnoreErrorMode)
		_, err = Build(doc, &Options{})
		require.NoError(t, err, src)
	}
}

func mustParseMode(t *testing.T, src string, mode svgdom.ErrorMode) *svgdom.Document {
	t.Helper()
	doc, err := svgdom.Parse(strings.NewReader(src), mode)
	require.NoError(t, err)
	return doc
}

// transforms on shapes are folded into the outline, with stroke
// geometry compensated
func TestTransformFolding(t *testing.T) {
	tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <rect transform="translate(5 5) scale(2)" width="4" height="4" stroke="black" stroke-width="1" fill="none"/>
	</svg>`)
	paths := collectPaths(tree.Root)
	require.Len(t, paths, 1)
	require.Equal(t, svgpath.Bounds{X: 5, Y: 5, W: 8, H: 8}, paths[0].BBox)
	require.InDelta(t, 2.0, paths[0].Stroke.Width, 1e-9)
}

func TestGradientInterning(t *testing.T) {
	tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <defs>
	    <linearGradient id="g" x1="0" y1="0" x2="1" y2="0" spreadMethod="reflect">
	      <stop offset="0.8" stop-color="red"/>
	      <stop offset="0.2" stop-color="blue" stop-opacity="0.5"/>
	    </linearGradient>
	  </defs>
	  <rect width="10" height="10" fill="url(#g)"/>
	  <rect y="10" width="10" height="10" fill="url(#g)"/>
	</svg>`)
	paths := collectPaths(tree.Root)
	require.Len(t, paths, 2)
	require.Equal(t, GradientRef("g"), paths[0].Fill.Paint)
	require.Equal(t, paths[0].Fill.Paint, paths[1].Fill.Paint)

	// interned once, stops normalized ascending
	require.Len(t, tree.Defs.Gradients, 1)
	grad := tree.Defs.Gradients["g"]
	require.NotNil(t, grad)
	require.Equal(t, ReflectSpread, grad.Spread)
	require.Len(t, grad.Stops, 2)
	require.Equal(t, 0.8, grad.Stops[0].Offset)
	require.Equal(t, 0.8, grad.Stops[1].Offset) // clamped against the previous stop
	require.Equal(t, 0.5, grad.Stops[1].Opacity)
}

// every reference held by a node resolves in the defs table
func TestDefsClosure(t *testing.T) {
	tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <defs>
	    <clipPath id="c"><rect width="5" height="5"/></clipPath>
	    <mask id="m"><rect width="5" height="5" fill="white"/></mask>
	    <filter id="f"><feGaussianBlur stdDeviation="1"/></filter>
	  </defs>
	  <g clip-path="url(#c)" mask="url(#m)" filter="url(#f)">
	    <rect width="10" height="10"/>
	  </g>
	</svg>`)
	var check func(g *Group)
	check = func(g *Group) {
		if g.ClipPath != "" {
			require.Contains(t, tree.Defs.ClipPaths, g.ClipPath)
		}
		if g.Mask != "" {
			require.Contains(t, tree.Defs.Masks, g.Mask)
		}
		for _, id := range g.Filters {
			require.Contains(t, tree.Defs.Filters, id)
		}
		for _, child := range g.Children {
			if sub, ok := child.(*Group); ok {
				check(sub)
			}
		}
	}
	check(tree.Root)
	require.Len(t, tree.Defs.ClipPaths, 1)
	require.Len(t, tree.Defs.Masks, 1)
	require.Len(t, tree.Defs.Filters, 1)
	require.Len(t, tree.Defs.Filters["f"].Primitives, 1)
}

// a reference to a missing or cyclic paint server falls back cleanly
func TestBrokenPaintReferences(t *testing.T) {
	tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <defs>
	    <linearGradient id="loop" href="#loop"><stop offset="0" stop-color="red"/></linearGradient>
	  </defs>
	  <rect width="10" height="10" fill="url(#missing) #00ff00"/>
	  <rect y="10" width="10" height="10" fill="url(#nothing)"/>
	  <rect x="10" width="10" height="10" fill="url(#loop)"/>
	</svg>`)
	paths := collectPaths(tree.Root)
	// the second rect has no fallback and no paint at all
	require.Len(t, paths, 2)
	require.Equal(t, NewPlainColor(0, 0xff, 0, 0xff), paths[0].Fill.Paint)
	// the self referencing gradient still resolves through its stops
	require.Equal(t, NewPlainColor(0xff, 0, 0, 0xff), paths[1].Fill.Paint)
}

func TestDegenerateGradients(t *testing.T) {
	tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <defs>
	    <linearGradient id="single"><stop offset="0" stop-color="#aabbcc"/></linearGradient>
	    <linearGradient id="flat" x1="3" y1="3" x2="3" y2="3" gradientUnits="userSpaceOnUse">
	      <stop offset="0" stop-color="red"/><stop offset="1" stop-color="#112233"/>
	    </linearGradient>
	  </defs>
	  <rect width="10" height="10" fill="url(#single)"/>
	  <rect y="10" width="10" height="10" fill="url(#flat)"/>
	</svg>`)
	paths := collectPaths(tree.Root)
	require.Len(t, paths, 2)
	// one stop: the stop color
	require.Equal(t, NewPlainColor(0xaa, 0xbb, 0xcc, 0xff), paths[0].Fill.Paint)
	// zero length axis: the last stop color
	require.Equal(t, NewPlainColor(0x11, 0x22, 0x33, 0xff), paths[1].Fill.Paint)
	require.Empty(t, tree.Defs.Gradients)
}

func TestGroupWrapping(t *testing.T) {
	tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <rect width="10" height="10" opacity="0.25"/>
	</svg>`)
	require.Len(t, tree.Root.Children, 1)
	g, ok := tree.Root.Children[0].(*Group)
	require.True(t, ok)
	require.Equal(t, 0.25, g.Opacity)
	require.True(t, g.NeedsLayer())
	require.Len(t, g.Children, 1)
}

func TestVisibilityHidden(t *testing.T) {
	tree := buildSVG(t, `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="20">
	  <rect width="10" height="10" visibility="hidden"/>
	</svg>`)
	paths := collectPaths(tree.Root)
	require.Len(t, paths, 1)
	require.False(t, paths[0].Visible)
}
