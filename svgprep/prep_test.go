package svgprep

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svgtree"
)

func parse(t *testing.T, src string) *svgdom.Document {
	t.Helper()
	doc, err := svgdom.Parse(strings.NewReader(src), svgdom.IgnoreErrorMode)
	require.NoError(t, err)
	return doc
}

// dump serializes the element tree into a canonical string, ignoring
// generated ids.
func dump(e *svgdom.Element) string {
	var sb strings.Builder
	var walk func(e *svgdom.Element, depth int)
	walk = func(e *svgdom.Element, depth int) {
		names := e.AttrNames()
		sort.Strings(names)
		fmt.Fprintf(&sb, "%s%s", strings.Repeat(" ", depth), e.Tag)
		for _, n := range names {
			v, _ := e.Attr(n)
			if n == "id" || strings.Contains(v, "svgrender-viewport-clip") {
				continue
			}
			fmt.Fprintf(&sb, " %s=%q", n, v)
		}
		sb.WriteByte('\n')
		for _, c := range e.Children() {
			walk(c, depth+1)
		}
	}
	walk(e, 0)
	return sb.String()
}

func TestPrepareIdempotent(t *testing.T) {
	src := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 40 40">
	  <defs>
	    <linearGradient id="g"><stop offset="0" stop-color="red"/></linearGradient>
	    <circle id="dot" r="3"/>
	  </defs>
	  <rect width="40" height="40" fill="url(#g)"/>
	  <use href="#dot" x="5" y="5"/>
	  <g display="none"><rect width="1" height="1"/></g>
	</svg>`
	opts := &svgtree.Options{}

	doc := parse(t, src)
	require.NoError(t, Prepare(doc, opts))
	first := dump(doc.Root)

	require.NoError(t, Prepare(doc, opts))
	second := dump(doc.Root)
	require.Equal(t, first, second)
}

func TestRootSize(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg" width="50%" height="10"></svg>`)
	err := Prepare(doc, &svgtree.Options{})
	require.ErrorIs(t, err, ErrSizeUndetermined)

	doc = parse(t, `<svg xmlns="http://www.w3.org/2000/svg" width="50%" viewBox="0 0 200 100"></svg>`)
	require.NoError(t, Prepare(doc, &svgtree.Options{}))
	w, ok := doc.Root.Number("width")
	require.True(t, ok)
	require.Equal(t, 100.0, w)
	h, ok := doc.Root.Number("height")
	require.True(t, ok)
	require.Equal(t, 100.0, h)

	doc = parse(t, `<svg xmlns="http://www.w3.org/2000/svg" width="0" height="10" viewBox="0 0 1 1"></svg>`)
	require.ErrorIs(t, Prepare(doc, &svgtree.Options{}), ErrSizeUndetermined)
}

// using a hidden element must render it: the copy loses the display
// property, the original is dropped with its defs
func TestUseOfHiddenElement(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
	  <defs><rect id="r" width="4" height="4" display="none"/></defs>
	  <use href="#r" x="2"/>
	</svg>`)
	require.NoError(t, Prepare(doc, &svgtree.Options{}))

	rects := doc.Root.FindByTag("rect")
	require.Len(t, rects, 1)
	require.False(t, rects[0].HasAttr("display"))
	require.Empty(t, doc.Root.FindByTag("use"))
	require.Empty(t, doc.Root.FindByTag("defs"))
}

func TestUseExpansion(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
	  <circle id="c" r="2"/>
	  <use href="#c" x="3" y="4"/>
	</svg>`)
	require.NoError(t, Prepare(doc, &svgtree.Options{}))

	circles := doc.Root.FindByTag("circle")
	require.Len(t, circles, 2)
	// the copy is wrapped in a translated group and keeps no id
	cp := circles[1]
	require.False(t, cp.HasAttr("id"))
	g := cp.Parent()
	require.Equal(t, "g", g.Tag)
	tr, ok := g.Transform("transform")
	require.True(t, ok)
	x, y := tr.Transform(0, 0)
	require.Equal(t, 3.0, x)
	require.Equal(t, 4.0, y)
}

func TestUseCycleCut(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
	  <g id="a"><use href="#b"/></g>
	  <g id="b"><use href="#a"/></g>
	</svg>`)
	require.NoError(t, Prepare(doc, &svgtree.Options{}))
	require.Empty(t, doc.Root.FindByTag("use"))
}

func TestResolveDisplay(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
	  <rect width="1" height="1" display="none"/>
	  <g style="display: none"><circle r="1"/></g>
	  <rect width="2" height="2"/>
	</svg>`)
	require.NoError(t, Prepare(doc, &svgtree.Options{}))
	require.Empty(t, doc.Root.FindByTag("circle"))
	require.Len(t, doc.Root.FindByTag("rect"), 1)
}

func TestSwitchResolution(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
	  <switch>
	    <rect id="de" systemLanguage="de" width="1" height="1"/>
	    <rect id="fr" systemLanguage="fr,en" width="1" height="1"/>
	    <rect id="fallback" width="1" height="1"/>
	  </switch>
	</svg>`)
	require.NoError(t, Prepare(doc, &svgtree.Options{Languages: []string{"en-US"}}))

	rects := doc.Root.FindByTag("rect")
	require.Len(t, rects, 1)
	require.Equal(t, "fr", rects[0].AttrOr("id", ""))
	require.Empty(t, doc.Root.FindByTag("switch"))
}

func TestPruneInvalidTransforms(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
	  <g transform="scale(0)"><rect width="1" height="1"/></g>
	  <rect transform="scale(1 0)" width="1" height="1"/>
	  <rect width="2" height="2"/>
	</svg>`)
	require.NoError(t, Prepare(doc, &svgtree.Options{}))
	require.Len(t, doc.Root.FindByTag("rect"), 1)
	require.Empty(t, doc.Root.FindByTag("g"))
}

func TestPruneUnusedDefs(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
	  <defs>
	    <linearGradient id="used"><stop offset="0"/></linearGradient>
	    <linearGradient id="unused"><stop offset="0"/></linearGradient>
	    <g id="holder"><radialGradient id="nested"><stop offset="0"/></radialGradient></g>
	  </defs>
	  <rect width="1" height="1" fill="url(#used)"/>
	  <rect width="1" height="1" stroke="url(#nested)"/>
	</svg>`)
	require.NoError(t, Prepare(doc, &svgtree.Options{}))

	require.NotNil(t, doc.ElementByID("used"))
	require.Nil(t, doc.ElementByID("unused"))
	// the nested gradient survives its pruned holder
	require.NotNil(t, doc.ElementByID("nested"))
}

func TestFlattenNestedSVG(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
	  <svg x="10" y="20" width="50" height="50" viewBox="0 0 25 25">
	    <rect width="25" height="25"/>
	  </svg>
	</svg>`)
	require.NoError(t, Prepare(doc, &svgtree.Options{}))

	// exactly one svg element remains: the root
	svgs := 0
	doc.Root.Descend(func(e *svgdom.Element) bool {
		if e.Tag == "svg" {
			svgs++
		}
		return true
	})
	require.Equal(t, 1, svgs)

	rects := doc.Root.FindByTag("rect")
	require.NotEmpty(t, rects)
	inner := rects[0].Parent()
	tr, ok := inner.Transform("transform")
	require.True(t, ok)
	// (0,0) of the nested viewport lands at (10,20), scaled by 2
	x, y := tr.Transform(0, 0)
	require.Equal(t, 10.0, x)
	require.Equal(t, 20.0, y)
	x, y = tr.Transform(25, 25)
	require.Equal(t, 60.0, x)
	require.Equal(t, 70.0, y)
}
