package svgprep

import (
	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svglog"
	"github.com/benoitkugler/svgrender/svgpath"
)

// maxUseDepth bounds nested use expansion; chains deeper than this
// are almost certainly cyclic.
const maxUseDepth = 10

// expandUse replaces every <use> with a group holding a deep copy of
// its target. Copies lose their ids (references keep resolving to the
// originals) and the display property on the copy root, so that using
// a hidden element renders it.
func (p *prepper) expandUse() {
	for depth := 0; depth < maxUseDepth; depth++ {
		uses := p.doc.Root.FindByTag("use")
		if len(uses) == 0 {
			return
		}
		for _, use := range uses {
			p.expandOne(use)
		}
	}
	if leftover := p.doc.Root.FindByTag("use"); len(leftover) > 0 {
		svglog.Logger().Warn("dropping unresolvable use elements", "count", len(leftover))
		for _, use := range leftover {
			use.Detach()
		}
	}
}

func (p *prepper) expandOne(use *svgdom.Element) {
	id, ok := use.HrefID()
	if !ok {
		use.Detach()
		return
	}
	target := p.doc.ElementByID(id)
	if target == nil || target == use || target.IsAncestorOf(use) {
		use.Detach()
		return
	}

	cp := target.Clone()
	cp.RemoveAttr("display")
	cp.Descend(func(e *svgdom.Element) bool {
		e.RemoveAttr("id")
		return true
	})

	x, _ := use.Length("x", p.lengthCtx(0))
	y, _ := use.Length("y", p.lengthCtx(0))

	if cp.Tag == "symbol" || cp.Tag == "svg" {
		// a symbol instantiates as a nested viewport whose size comes
		// from the use element
		cp.Tag = "svg"
		cp.RemoveAttr("x")
		cp.RemoveAttr("y")
		if w, ok := use.Attr("width"); ok {
			cp.SetAttr("width", w)
		}
		if h, ok := use.Attr("height"); ok {
			cp.SetAttr("height", h)
		}
		defer p.flattenOne(cp)
	}

	use.Tag = "g"
	for _, name := range []string{"href", "xlink:href", "x", "y", "width", "height"} {
		use.RemoveAttr(name)
	}
	if x != 0 || y != 0 {
		m := svgpath.Identity.Translate(x, y)
		if t, ok := use.Transform("transform"); ok {
			m = t.Mult(m)
		}
		use.SetAttr("transform", formatMatrix(m))
	}
	use.AppendChild(cp)
}
