package svgprep

import (
	"math"
	"strings"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svgpath"
)

// fuzzyZero reports whether v is at most 4 ULPs away from zero.
func fuzzyZero(v float64) bool {
	lim := 0.0
	for i := 0; i < 4; i++ {
		lim = math.Nextafter(lim, 1)
	}
	return math.Abs(v) <= lim
}

// pruneInvalidTransforms drops subtrees whose cumulative transform
// collapses an axis: nothing below them can produce pixels, and the
// rasterizer must never see a non-invertible matrix.
func pruneInvalidTransforms(doc *svgdom.Document) {
	var walk func(e *svgdom.Element, m svgpath.Matrix2D)
	walk = func(e *svgdom.Element, m svgpath.Matrix2D) {
		if t, ok := e.Transform("transform"); ok {
			m = m.Mult(t)
		}
		sx, sy := m.ScaleFactors()
		if fuzzyZero(sx) || fuzzyZero(sy) {
			e.Detach()
			return
		}
		for _, c := range append([]*svgdom.Element(nil), e.Children()...) {
			walk(c, m)
		}
	}
	for _, c := range append([]*svgdom.Element(nil), doc.Root.Children()...) {
		walk(c, svgpath.Identity)
	}
}

// referenceable lists the tags that only take effect through an id
// reference.
var referenceable = map[string]bool{
	"linearGradient": true, "radialGradient": true, "pattern": true,
	"clipPath": true, "mask": true, "filter": true,
	"symbol": true, "marker": true,
}

// pruneUnusedDefs removes definitions nothing references, iterating
// until a fixed point since a removal may orphan further definitions.
// A definition about to be removed first hands its referenced
// descendants to its parent.
func (p *prepper) pruneUnusedDefs() {
	keepNamed := p.opts != nil && p.opts.KeepNamedGroups
	for {
		used := collectRefs(p.doc)
		removed := false
		p.doc.Root.Descend(func(e *svgdom.Element) bool {
			if e == p.doc.Root {
				return true
			}
			parent := e.Parent()
			candidate := referenceable[e.Tag] || (parent != nil && parent.Tag == "defs")
			if !candidate {
				return true
			}
			if keepNamed && e.Tag == "g" {
				return true
			}
			id, _ := e.Attr("id")
			if id != "" && used[id] {
				return true
			}
			rescueUsed(e, used)
			e.Detach()
			removed = true
			return true
		})
		// drained containers
		for _, defs := range p.doc.Root.FindByTag("defs") {
			if len(defs.Children()) == 0 {
				defs.Detach()
				removed = true
			}
		}
		if !removed {
			return
		}
	}
}

// rescueUsed moves referenced descendants of a doomed definition up
// to its parent, keeping them resolvable.
func rescueUsed(e *svgdom.Element, used map[string]bool) {
	parent := e.Parent()
	if parent == nil {
		return
	}
	var saved []*svgdom.Element
	e.Descend(func(d *svgdom.Element) bool {
		if d == e {
			return true
		}
		if id, _ := d.Attr("id"); id != "" && used[id] {
			saved = append(saved, d)
			return true
		}
		return true
	})
	for _, d := range saved {
		// skip descendants of an already saved element
		nested := false
		for _, s := range saved {
			if s != d && s.IsAncestorOf(d) {
				nested = true
				break
			}
		}
		if nested {
			continue
		}
		d.Detach()
		parent.InsertBefore(d, e)
	}
}

// collectRefs gathers every id the document references, through href
// links or url(#...) values.
func collectRefs(doc *svgdom.Document) map[string]bool {
	used := map[string]bool{}
	doc.Root.Descend(func(e *svgdom.Element) bool {
		if id, ok := e.HrefID(); ok {
			used[id] = true
		}
		for _, name := range e.AttrNames() {
			v, _ := e.Attr(name)
			for {
				i := strings.Index(v, "url(")
				if i < 0 {
					break
				}
				v = v[i+4:]
				j := strings.IndexByte(v, ')')
				if j < 0 {
					break
				}
				ref := strings.Trim(strings.TrimSpace(v[:j]), "'\"")
				if strings.HasPrefix(ref, "#") {
					used[ref[1:]] = true
				}
				v = v[j:]
			}
		}
		return true
	})
	return used
}
