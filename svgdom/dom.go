// Package svgdom provides an indexed view over a parsed SVG document,
// with SVG-aware typed attribute accessors.
// The tree is mutable until simplification completes, and read-only
// afterwards.
package svgdom

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"

	"github.com/benoitkugler/svgrender/svglog"
)

// ErrorMode determines if the parser ignores, errors out, or logs a
// warning when it finds an element or attribute it does not handle.
type ErrorMode uint8

const (
	IgnoreErrorMode ErrorMode = iota
	WarnErrorMode
	StrictErrorMode
)

// ErrParse wraps XML tokenization failures.
var ErrParse = errors.New("malformed xml document")

// Document is a parsed SVG document.
type Document struct {
	Root *Element

	errMode ErrorMode
	invalid error // first invalid construct, recorded in strict mode
	nextID  int
}

// ErrorMode returns the mode the document was parsed with.
func (doc *Document) ErrorMode() ErrorMode { return doc.errMode }

// ReportInvalid applies the error mode to an invalid construct found
// after parsing: strict mode records it (see Err), warn mode logs it,
// ignore mode drops it.
func (doc *Document) ReportInvalid(err error) {
	switch doc.errMode {
	case StrictErrorMode:
		if doc.invalid == nil {
			doc.invalid = err
		}
	case WarnErrorMode:
		svglog.Logger().Warn("invalid svg content", "err", err)
	}
}

// Err returns the first invalid construct recorded under
// StrictErrorMode, nil otherwise.
func (doc *Document) Err() error { return doc.invalid }

// Element is one node of the document tree.
type Element struct {
	Tag  string
	Text string // accumulated character data

	doc      *Document
	id       int
	parent   *Element
	children []*Element
	attrs    map[string]string

	memo map[string]any // lazily parsed attributes, see attr.go
}

// Parse reads an SVG document from the given reader.
// The charset of the underlying XML is honored (utf-8 assumed when
// unlabelled).
func Parse(stream io.Reader, errMode ErrorMode) (*Document, error) {
	doc := &Document{errMode: errMode}
	decoder := xml.NewDecoder(stream)
	decoder.CharsetReader = charset.NewReaderLabel

	var stack []*Element
	seenTag := false
	for {
		t, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				if !seenTag {
					return nil, fmt.Errorf("%w: empty document", ErrParse)
				}
				break
			}
			return nil, fmt.Errorf("%w: %s", ErrParse, err)
		}
		switch se := t.(type) {
		case xml.StartElement:
			seenTag = true
			el := doc.newElement(se.Name.Local)
			for _, attr := range se.Attr {
				name := attr.Name.Local
				if attr.Name.Space == "http://www.w3.org/1999/xlink" {
					name = "xlink:" + name
				}
				el.attrs[name] = attr.Value
			}
			if len(stack) == 0 {
				if doc.Root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", ErrParse)
				}
				doc.Root = el
			} else {
				stack[len(stack)-1].AppendChild(el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(se)
			}
		}
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrParse)
	}
	if doc.Root.Tag != "svg" {
		return nil, fmt.Errorf("%w: root element is <%s>, not <svg>", ErrParse, doc.Root.Tag)
	}
	return doc, nil
}

func (doc *Document) newElement(tag string) *Element {
	doc.nextID++
	return &Element{
		Tag:   tag,
		doc:   doc,
		id:    doc.nextID,
		attrs: map[string]string{},
	}
}

// NewElement creates a detached element belonging to the document.
// It is used by the simplification passes to synthesize wrappers.
func (doc *Document) NewElement(tag string) *Element { return doc.newElement(tag) }

// ElementByID walks the tree for the element carrying the given id
// attribute, or nil.
func (doc *Document) ElementByID(id string) *Element {
	var found *Element
	doc.Root.Descend(func(e *Element) bool {
		if v, ok := e.Attr("id"); ok && v == id {
			found = e
			return false
		}
		return true
	})
	return found
}

// ID returns a stable node identifier, assigned in document order.
func (e *Element) ID() int { return e.id }

// Parent returns the parent element, nil for the root.
func (e *Element) Parent() *Element { return e.parent }

// Children returns the child elements, in document order.
func (e *Element) Children() []*Element { return e.children }

// PrevSibling returns the preceding sibling, or nil.
func (e *Element) PrevSibling() *Element {
	if e.parent == nil {
		return nil
	}
	for i, c := range e.parent.children {
		if c == e && i > 0 {
			return e.parent.children[i-1]
		}
	}
	return nil
}

// NextSibling returns the following sibling, or nil.
func (e *Element) NextSibling() *Element {
	if e.parent == nil {
		return nil
	}
	for i, c := range e.parent.children {
		if c == e && i+1 < len(e.parent.children) {
			return e.parent.children[i+1]
		}
	}
	return nil
}

// Attr returns the raw value of the attribute.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// AttrOr returns the raw value of the attribute, or def when absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.attrs[name]; ok {
		return v
	}
	return def
}

// SetAttr sets an attribute, invalidating its memoized parse.
func (e *Element) SetAttr(name, value string) {
	e.attrs[name] = value
	e.invalidate(name)
}

// RemoveAttr deletes an attribute.
func (e *Element) RemoveAttr(name string) {
	delete(e.attrs, name)
	e.invalidate(name)
}

// HasAttr reports whether the attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.attrs[name]
	return ok
}

// AttrNames returns the names of the present attributes, in no
// particular order.
func (e *Element) AttrNames() []string {
	out := make([]string, 0, len(e.attrs))
	for k := range e.attrs {
		out = append(out, k)
	}
	return out
}

// AppendChild adds `child` as the last child, detaching it from any
// previous parent.
func (e *Element) AppendChild(child *Element) {
	child.Detach()
	child.parent = e
	e.children = append(e.children, child)
}

// InsertBefore inserts `child` just before `ref`, which must be a
// child of e.
func (e *Element) InsertBefore(child, ref *Element) {
	child.Detach()
	child.parent = e
	for i, c := range e.children {
		if c == ref {
			e.children = append(e.children[:i], append([]*Element{child}, e.children[i:]...)...)
			return
		}
	}
	e.children = append(e.children, child)
}

// Detach removes the element from its parent, keeping its subtree.
func (e *Element) Detach() {
	if e.parent == nil {
		return
	}
	for i, c := range e.parent.children {
		if c == e {
			e.parent.children = append(e.parent.children[:i], e.parent.children[i+1:]...)
			break
		}
	}
	e.parent = nil
}

// ReplaceWith substitutes `repl` at the element's position.
func (e *Element) ReplaceWith(repl *Element) {
	if e.parent == nil {
		return
	}
	parent := e.parent
	for i, c := range parent.children {
		if c == e {
			repl.Detach()
			repl.parent = parent
			parent.children[i] = repl
			e.parent = nil
			return
		}
	}
}

// Clone deep-copies the element subtree. Identifiers are reassigned;
// memoized attributes are not carried over.
func (e *Element) Clone() *Element {
	cp := e.doc.newElement(e.Tag)
	cp.Text = e.Text
	for k, v := range e.attrs {
		cp.attrs[k] = v
	}
	for _, c := range e.children {
		cp.AppendChild(c.Clone())
	}
	return cp
}

// Descend walks the subtree depth-first, e included. The visit
// callback returns false to terminate the walk early.
func (e *Element) Descend(visit func(*Element) bool) bool {
	if !visit(e) {
		return false
	}
	// children may be mutated by the caller: iterate over a snapshot
	snapshot := append([]*Element(nil), e.children...)
	for _, c := range snapshot {
		if c.parent != e {
			continue // removed during the walk
		}
		if !c.Descend(visit) {
			return false
		}
	}
	return true
}

// FindByTag collects the elements with the given tag in the subtree,
// in document order.
func (e *Element) FindByTag(tag string) []*Element {
	var out []*Element
	e.Descend(func(el *Element) bool {
		if el.Tag == tag {
			out = append(out, el)
		}
		return true
	})
	return out
}

// IsAncestorOf reports whether e is a strict ancestor of other.
func (e *Element) IsAncestorOf(other *Element) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == e {
			return true
		}
	}
	return false
}
