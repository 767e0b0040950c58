package svgtree

import (
	"image"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svgpath"
)

// Options tune the whole pipeline, from simplification to
// rasterization. The zero value is usable; see the field defaults.
// There is no ambient state: everything flows through this record.
type Options struct {
	// ResourcesDir is the base directory for relative href resolution.
	ResourcesDir string

	// DPI converts physical length units (mm, in, pt, pc) to user
	// units. Defaults to 96.
	DPI float64

	// FontFamily and FontSize are the defaults for text lowering.
	FontFamily string
	FontSize   float64

	// Languages is the ordered preference list for <switch> selection.
	Languages []string

	// Rendering hints, passed through to the rasterizer.
	ShapeRendering string
	TextRendering  string
	ImageRendering ImageRendering

	// KeepNamedGroups prevents groups carrying an id from being
	// optimized away.
	KeepNamedGroups bool

	// ImageHrefResolver loads the image behind an href. When nil,
	// inline data URIs and files under ResourcesDir are tried.
	ImageHrefResolver func(href string, opts *Options) (image.Image, error)

	// FontDB is an opaque handle forwarded to the Outliner.
	FontDB any

	// Outliner is the external text-layout collaborator: it converts
	// a text element into outlined paths, one per glyph run. When
	// nil, text elements are skipped with a warning.
	Outliner Outliner
}

// Outliner is implemented by the text-layout collaborator.
type Outliner interface {
	Outline(text *svgdom.Element, opts *Options) ([]svgpath.Path, error)
}

// Dpi returns the configured DPI, defaulted.
func (o *Options) Dpi() float64 {
	if o == nil || o.DPI == 0 {
		return 96
	}
	return o.DPI
}

// DefaultFontSize returns the configured font size, defaulted to 12.
func (o *Options) DefaultFontSize() float64 {
	if o == nil || o.FontSize == 0 {
		return 12
	}
	return o.FontSize
}
