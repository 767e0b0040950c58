package svgdom

import (
	"bytes"
	"image/color"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/svgrender/svglog"
)

const sample = `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink"
     width="100" height="50" viewBox="0 0 100 50">
  <defs>
    <linearGradient id="grad"><stop offset="0" stop-color="red"/></linearGradient>
  </defs>
  <g id="layer">
    <rect id="box" x="10" y="10" width="30" height="20" fill="url(#grad)"/>
    <use xlink:href="#box"/>
  </g>
</svg>`

func TestParseDocument(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample), StrictErrorMode)
	require.NoError(t, err)
	require.Equal(t, "svg", doc.Root.Tag)

	layer := doc.ElementByID("layer")
	require.NotNil(t, layer)
	require.Equal(t, "g", layer.Tag)
	require.Len(t, layer.Children(), 2)

	box := doc.ElementByID("box")
	require.NotNil(t, box)
	require.Equal(t, layer, box.Parent())

	use := layer.Children()[1]
	id, ok := use.HrefID()
	require.True(t, ok)
	require.Equal(t, "box", id)
}

func TestParseRejectsNonSVGRoot(t *testing.T) {
	_, err := Parse(strings.NewReader(`<html></html>`), StrictErrorMode)
	require.ErrorIs(t, err, ErrParse)
}

func TestElementMutation(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample), IgnoreErrorMode)
	require.NoError(t, err)
	box := doc.ElementByID("box")

	w, ok := box.Number("width")
	require.True(t, ok)
	require.Equal(t, 30.0, w)

	// memoized values must be invalidated on write
	box.SetAttr("width", "42")
	w, ok = box.Number("width")
	require.True(t, ok)
	require.Equal(t, 42.0, w)

	box.Detach()
	require.Nil(t, doc.ElementByID("box"))
	require.Nil(t, box.Parent())
}

// a malformed attribute is recorded in strict mode, logged in warn
// mode and dropped in ignore mode
func TestErrorModes(t *testing.T) {
	const src = `<svg xmlns="http://www.w3.org/2000/svg"><g transform="frob(1)"/></svg>`

	doc, err := Parse(strings.NewReader(src), StrictErrorMode)
	require.NoError(t, err)
	_, ok := doc.Root.Children()[0].Transform("transform")
	require.False(t, ok)
	require.Error(t, doc.Err())

	doc, err = Parse(strings.NewReader(src), IgnoreErrorMode)
	require.NoError(t, err)
	_, ok = doc.Root.Children()[0].Transform("transform")
	require.False(t, ok)
	require.NoError(t, doc.Err())

	var buf bytes.Buffer
	svglog.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer svglog.SetLogger(nil)
	doc, err = Parse(strings.NewReader(src), WarnErrorMode)
	require.NoError(t, err)
	_, ok = doc.Root.Children()[0].Transform("transform")
	require.False(t, ok)
	require.NoError(t, doc.Err())
	require.Contains(t, buf.String(), "transform")
}

func TestParseLength(t *testing.T) {
	lc := LengthContext{DPI: 96, FontSize: 12, Ref: 200}
	for _, tc := range []struct {
		in   string
		want float64
	}{
		{"10", 10},
		{"10px", 10},
		{"1in", 96},
		{"72pt", 96},
		{"50%", 100},
		{"2em", 24},
		{"10mm", 96 * 10 / 25.4},
	} {
		got, ok := ParseLength(tc.in, lc)
		require.True(t, ok, tc.in)
		require.InDelta(t, tc.want, got, 1e-9, tc.in)
	}
	_, ok := ParseLength("abc", lc)
	require.False(t, ok)
}

func TestParseColor(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want color.RGBA
	}{
		{"#f00", color.RGBA{0xff, 0, 0, 0xff}},
		{"#00ff00", color.RGBA{0, 0xff, 0, 0xff}},
		{"rgb(1, 2, 3)", color.RGBA{1, 2, 3, 0xff}},
		{"rgb(100%, 0%, 0%)", color.RGBA{0xff, 0, 0, 0xff}},
		{"red", color.RGBA{0xff, 0, 0, 0xff}},
		{"steelblue", color.RGBA{0x46, 0x82, 0xb4, 0xff}},
	} {
		got, ok := ParseColor(tc.in)
		require.True(t, ok, tc.in)
		require.False(t, got.None)
		require.Equal(t, tc.want, got.Color, tc.in)
	}

	none, ok := ParseColor("none")
	require.True(t, ok)
	require.True(t, none.None)

	cur, ok := ParseColor("currentColor")
	require.True(t, ok)
	require.True(t, cur.CurrentColor)

	_, ok = ParseColor("#12345")
	require.False(t, ok)
}

func TestParseTransform(t *testing.T) {
	for _, tc := range []struct {
		in   string
		x, y float64 // image of point (1, 1)
	}{
		{"translate(2 3)", 3, 4},
		{"translate(5)", 6, 1},
		{"scale(2)", 2, 2},
		{"scale(2 3)", 2, 3},
		{"rotate(90)", -1, 1},
		{"rotate(180 1 1)", 1, 1},
		{"skewX(45)", 2, 1},
		{"matrix(1 0 0 1 10 20)", 11, 21},
		{"translate(10 0) scale(2)", 12, 2},
	} {
		m, err := ParseTransform(tc.in)
		require.NoError(t, err, tc.in)
		x, y := m.Transform(1, 1)
		require.InDelta(t, tc.x, x, 1e-9, tc.in)
		require.InDelta(t, tc.y, y, 1e-9, tc.in)
	}

	for _, bad := range []string{"rotate(1 2)", "frob(1)", "scale(1 2 3)", "matrix(1 2 3)"} {
		_, err := ParseTransform(bad)
		require.Error(t, err, bad)
	}
}
