package svgraster

import (
	"image"
	"io"
	"math"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svgpath"
	"github.com/benoitkugler/svgrender/svgprep"
	"github.com/benoitkugler/svgrender/svgtree"
)

// RasterSVGToImage runs the whole pipeline with default settings:
// parse, simplify, lower and render at the document's declared size.
func RasterSVGToImage(svg io.Reader, opts *svgtree.Options) (*image.RGBA, error) {
	if opts == nil {
		opts = &svgtree.Options{}
	}
	doc, err := svgdom.Parse(svg, svgdom.IgnoreErrorMode)
	if err != nil {
		return nil, err
	}
	if err := svgprep.Prepare(doc, opts); err != nil {
		return nil, err
	}
	tree, err := svgtree.Build(doc, opts)
	if err != nil {
		return nil, err
	}
	pix := NewPixmap(int(math.Ceil(tree.Width)), int(math.Ceil(tree.Height)))
	Render(tree, svgpath.Identity, pix)
	return pix.Image(), nil
}
