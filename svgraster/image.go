package svgraster

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svgpath"
	"github.com/benoitkugler/svgrender/svgtree"
)

// image draws a decoded raster into its destination rectangle,
// honoring the preserveAspectRatio policy.
func (r *renderer) image(n *svgtree.ImageNode, m svgpath.Matrix2D, dst *Pixmap) {
	if n.Image == nil || n.Rect.IsEmpty() {
		return
	}
	m = m.Mult(n.Transform)
	sb := n.Image.Bounds()
	iw, ih := float64(sb.Dx()), float64(sb.Dy())
	if iw == 0 || ih == 0 {
		return
	}

	sx := n.Rect.W / iw
	sy := n.Rect.H / ih
	tx, ty := n.Rect.X, n.Rect.Y
	if n.Aspect.Align != svgdom.AlignNone {
		s := math.Min(sx, sy)
		if n.Aspect.Slice {
			s = math.Max(sx, sy)
		}
		tx += (n.Rect.W - iw*s) * n.Aspect.Align.HorizFactor()
		ty += (n.Rect.H - ih*s) * n.Aspect.Align.VertFactor()
		sx, sy = s, s
	}

	// image pixel to device
	im := m.Mult(svgpath.Identity.Translate(tx, ty).Scale(sx, sy))
	aff := f64.Aff3{im.A, im.C, im.E, im.B, im.D, im.F}

	target := dst.Image()
	if n.Aspect.Slice {
		// slice overflow is cut at the viewport rectangle
		clip := deviceRect(n.Rect, m, dst)
		if clip.Empty() {
			return
		}
		target = target.SubImage(clip).(*image.RGBA)
	}

	kernel := xdraw.Interpolator(xdraw.BiLinear)
	if n.Rendering == svgtree.RenderingPixelated {
		kernel = xdraw.NearestNeighbor
	}
	kernel.Transform(target, aff, n.Image, sb, xdraw.Over, nil)
}
