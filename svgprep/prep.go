// Package svgprep simplifies a freshly parsed document so that the
// lowering step only ever sees a small, regular dialect: resolved
// root size, no nested viewports, no <use>, no display:none subtrees,
// no unused definitions.
//
// Prepare is idempotent: running it twice leaves the document
// unchanged (up to generated identifiers).
package svgprep

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/benoitkugler/svgrender/svgdom"
	"github.com/benoitkugler/svgrender/svgpath"
	"github.com/benoitkugler/svgrender/svgtree"
)

// ErrSizeUndetermined is returned when the root size can be resolved
// neither from width/height nor from the viewBox.
var ErrSizeUndetermined = errors.New("root size cannot be determined")

// Prepare runs the simplification passes, in order, mutating doc.
func Prepare(doc *svgdom.Document, opts *svgtree.Options) error {
	p := prepper{doc: doc, opts: opts}
	fixLinks(doc)
	defaultSVGAttrs(doc.Root)
	if err := p.resolveRootSize(); err != nil {
		return err
	}
	p.flattenNestedSVG()
	scrubMarkers(doc)
	ungroupAnchors(doc)
	resolveTref(doc)
	p.resolveSwitch()
	p.expandUse()
	resolveDisplay(doc)
	pruneInvalidTransforms(doc)
	p.pruneUnusedDefs()
	return nil
}

type prepper struct {
	doc  *svgdom.Document
	opts *svgtree.Options

	genID int // counter for synthesized clip ids
}

func (p *prepper) lengthCtx(ref float64) svgdom.LengthContext {
	return svgdom.LengthContext{DPI: p.opts.Dpi(), FontSize: p.opts.DefaultFontSize(), Ref: ref}
}

// fixLinks drops href attributes that do not point at an element of
// this document; <image> keeps its external references.
func fixLinks(doc *svgdom.Document) {
	doc.Root.Descend(func(e *svgdom.Element) bool {
		if e.Tag == "image" {
			return true
		}
		if href, ok := e.Href(); ok && !strings.HasPrefix(href, "#") {
			e.RemoveAttr("href")
			e.RemoveAttr("xlink:href")
		}
		return true
	})
}

// defaultSVGAttrs fills the root geometry defaults mandated by the
// SVG spec, so later passes never see an absent attribute.
func defaultSVGAttrs(root *svgdom.Element) {
	if !root.HasAttr("x") {
		root.SetAttr("x", "0")
	}
	if !root.HasAttr("y") {
		root.SetAttr("y", "0")
	}
	if !root.HasAttr("width") {
		root.SetAttr("width", "100%")
	}
	if !root.HasAttr("height") {
		root.SetAttr("height", "100%")
	}
}

// resolveRootSize rewrites the root width/height to plain pixel
// numbers. Percentages resolve against the viewBox.
func (p *prepper) resolveRootSize() error {
	root := p.doc.Root
	var vbW, vbH float64
	hasVB := false
	if vb, ok := root.NumberList("viewBox"); ok && len(vb) == 4 {
		vbW, vbH, hasVB = vb[2], vb[3], true
	}
	resolve := func(name string, ref float64) (float64, error) {
		raw := root.AttrOr(name, "100%")
		if strings.HasSuffix(strings.TrimSpace(raw), "%") {
			if !hasVB {
				return 0, fmt.Errorf("%w: %s is %q without a viewBox", ErrSizeUndetermined, name, raw)
			}
			f, ok := svgdom.ParseFraction(raw)
			if !ok {
				return 0, fmt.Errorf("%w: invalid %s %q", ErrSizeUndetermined, name, raw)
			}
			return f * ref, nil
		}
		f, ok := svgdom.ParseLength(raw, p.lengthCtx(ref))
		if !ok {
			return 0, fmt.Errorf("%w: invalid %s %q", ErrSizeUndetermined, name, raw)
		}
		return f, nil
	}
	w, err := resolve("width", vbW)
	if err != nil {
		return err
	}
	h, err := resolve("height", vbH)
	if err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %g x %g", ErrSizeUndetermined, w, h)
	}
	root.SetAttr("width", formatNum(w))
	root.SetAttr("height", formatNum(h))
	return nil
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatMatrix(m svgpath.Matrix2D) string {
	return fmt.Sprintf("matrix(%s %s %s %s %s %s)",
		formatNum(m.A), formatNum(m.B), formatNum(m.C),
		formatNum(m.D), formatNum(m.E), formatNum(m.F))
}

// flattenNestedSVG rewrites non-root <svg> elements into groups
// carrying the equivalent transform, clipped to their viewport.
func (p *prepper) flattenNestedSVG() {
	root := p.doc.Root
	for {
		var nested *svgdom.Element
		root.Descend(func(e *svgdom.Element) bool {
			if e.Tag == "svg" && e != root {
				nested = e
				return false
			}
			return true
		})
		if nested == nil {
			return
		}
		p.flattenOne(nested)
	}
}

func (p *prepper) flattenOne(e *svgdom.Element) {
	x, _ := e.Length("x", p.lengthCtx(0))
	y, _ := e.Length("y", p.lengthCtx(0))
	w, okW := e.Length("width", p.lengthCtx(0))
	h, okH := e.Length("height", p.lengthCtx(0))

	m := svgpath.Identity.Translate(x, y)
	if vb, ok := e.NumberList("viewBox"); ok && len(vb) == 4 && vb[2] > 0 && vb[3] > 0 && okW && okH {
		m = m.Scale(w/vb[2], h/vb[3]).Translate(-vb[0], -vb[1])
	}

	e.Tag = "g"
	for _, name := range []string{"x", "y", "width", "height", "viewBox", "preserveAspectRatio"} {
		e.RemoveAttr(name)
	}
	if okW && okH && w > 0 && h > 0 {
		e.SetAttr("clip-path", "url(#"+p.synthClipRect(x, y, w, h)+")")
	}
	if m != svgpath.Identity {
		// the transform must apply after the clip: move the children
		// into an inner group carrying it
		inner := p.doc.NewElement("g")
		inner.SetAttr("transform", formatMatrix(m))
		for _, c := range append([]*svgdom.Element(nil), e.Children()...) {
			c.Detach()
			inner.AppendChild(c)
		}
		e.AppendChild(inner)
	}
}

// synthClipRect registers a clipPath holding the viewport rectangle
// and returns its id.
func (p *prepper) synthClipRect(x, y, w, h float64) string {
	p.genID++
	id := fmt.Sprintf("svgrender-viewport-clip-%d", p.genID)
	clip := p.doc.NewElement("clipPath")
	clip.SetAttr("id", id)
	rect := p.doc.NewElement("rect")
	rect.SetAttr("x", formatNum(x))
	rect.SetAttr("y", formatNum(y))
	rect.SetAttr("width", formatNum(w))
	rect.SetAttr("height", formatNum(h))
	clip.AppendChild(rect)
	p.doc.Root.AppendChild(clip)
	return id
}

var markerTargets = map[string]bool{"path": true, "line": true, "polyline": true, "polygon": true}

// scrubMarkers removes marker properties where they can have no
// effect: non-shape elements and clip path content.
func scrubMarkers(doc *svgdom.Document) {
	doc.Root.Descend(func(e *svgdom.Element) bool {
		inClip := false
		for up := e.Parent(); up != nil; up = up.Parent() {
			if up.Tag == "clipPath" {
				inClip = true
				break
			}
		}
		if !markerTargets[e.Tag] || inClip {
			for _, name := range []string{"marker-start", "marker-mid", "marker-end", "marker"} {
				e.RemoveAttr(name)
			}
		}
		return true
	})
}

// ungroupAnchors demotes <a> to a plain container: a group, or a
// tspan inside text content.
func ungroupAnchors(doc *svgdom.Document) {
	doc.Root.Descend(func(e *svgdom.Element) bool {
		if e.Tag != "a" {
			return true
		}
		parent := e.Parent()
		if parent != nil && (parent.Tag == "text" || parent.Tag == "tspan") {
			e.Tag = "tspan"
		} else {
			e.Tag = "g"
		}
		e.RemoveAttr("href")
		e.RemoveAttr("xlink:href")
		return true
	})
}

// resolveTref copies the referenced character data into the element
// and promotes it to a tspan.
func resolveTref(doc *svgdom.Document) {
	doc.Root.Descend(func(e *svgdom.Element) bool {
		if e.Tag != "tref" {
			return true
		}
		if id, ok := e.HrefID(); ok {
			if target := doc.ElementByID(id); target != nil {
				e.Text = target.Text
				for _, name := range target.AttrNames() {
					if name == "id" || e.HasAttr(name) {
						continue
					}
					v, _ := target.Attr(name)
					e.SetAttr(name, v)
				}
			}
		}
		e.Tag = "tspan"
		e.RemoveAttr("href")
		e.RemoveAttr("xlink:href")
		return true
	})
}

// resolveSwitch keeps the first <switch> child whose conditional
// attributes pass, dropping the others.
func (p *prepper) resolveSwitch() {
	p.doc.Root.Descend(func(e *svgdom.Element) bool {
		if e.Tag != "switch" {
			return true
		}
		var chosen *svgdom.Element
		for _, c := range e.Children() {
			if p.conditionsPass(c) {
				chosen = c
				break
			}
		}
		for _, c := range append([]*svgdom.Element(nil), e.Children()...) {
			if c != chosen {
				c.Detach()
			}
		}
		e.Tag = "g"
		return true
	})
}

// conditionsPass evaluates requiredFeatures, requiredExtensions and
// systemLanguage. Features and extensions pass only when absent or
// empty; languages match by primary subtag.
func (p *prepper) conditionsPass(e *svgdom.Element) bool {
	if v, ok := e.Attr("requiredFeatures"); ok && strings.TrimSpace(v) != "" {
		return false
	}
	if v, ok := e.Attr("requiredExtensions"); ok && strings.TrimSpace(v) != "" {
		return false
	}
	v, ok := e.Attr("systemLanguage")
	if !ok {
		return true
	}
	langs := p.opts.Languages
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	for _, want := range langs {
		wantPrimary, _, _ := strings.Cut(want, "-")
		for _, have := range strings.Split(v, ",") {
			havePrimary, _, _ := strings.Cut(strings.TrimSpace(have), "-")
			if strings.EqualFold(wantPrimary, havePrimary) {
				return true
			}
		}
	}
	return false
}

// resolveDisplay drains display:none subtrees. Copies produced by
// use expansion had display stripped from their root beforehand, so
// referencing a hidden element still renders it.
func resolveDisplay(doc *svgdom.Document) {
	doc.Root.Descend(func(e *svgdom.Element) bool {
		if e == doc.Root {
			return true
		}
		if displayNone(e) {
			e.Detach()
		}
		return true
	})
}

func displayNone(e *svgdom.Element) bool {
	if v, ok := e.Attr("display"); ok && strings.TrimSpace(v) == "none" {
		return true
	}
	if css, ok := e.Attr("style"); ok {
		for _, decl := range strings.Split(css, ";") {
			k, v, found := strings.Cut(decl, ":")
			if found && strings.TrimSpace(k) == "display" && strings.TrimSpace(v) == "none" {
				return true
			}
		}
	}
	return false
}
