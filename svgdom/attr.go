package svgdom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benoitkugler/svgrender/svgpath"
)

// Typed attribute accessors. Each parse is memoized on the element;
// the memo is invalidated when the attribute is rewritten and
// discarded with the DOM after lowering.
// Unknown or malformed values are reported as absent, never as errors.

// LengthContext resolves relative length units.
type LengthContext struct {
	DPI      float64 // dots per inch, converts physical units
	FontSize float64 // resolves em / ex
	Ref      float64 // resolves percentages
}

func (e *Element) memoized(key string, parse func() (any, bool)) (any, bool) {
	if v, ok := e.memo[key]; ok {
		if v == nil {
			return nil, false
		}
		return v, true
	}
	v, ok := parse()
	if e.memo == nil {
		e.memo = map[string]any{}
	}
	if !ok {
		e.memo[key] = nil
		return nil, false
	}
	e.memo[key] = v
	return v, true
}

func (e *Element) invalidate(name string) {
	for k := range e.memo {
		if strings.HasSuffix(k, "\x00"+name) {
			delete(e.memo, k)
		}
	}
}

func memoKey(kind, name string) string { return kind + "\x00" + name }

// Number parses the attribute as a plain float.
func (e *Element) Number(name string) (float64, bool) {
	v, ok := e.memoized(memoKey("num", name), func() (any, bool) {
		raw, ok := e.Attr(name)
		if !ok {
			return nil, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			e.doc.ReportInvalid(fmt.Errorf("invalid number %q in attribute %q", raw, name))
			return nil, false
		}
		return f, true
	})
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

// NumberList parses the attribute as comma/space separated floats.
func (e *Element) NumberList(name string) ([]float64, bool) {
	v, ok := e.memoized(memoKey("numlist", name), func() (any, bool) {
		raw, ok := e.Attr(name)
		if !ok {
			return nil, false
		}
		out, ok := ParseNumberList(raw)
		if !ok {
			e.doc.ReportInvalid(fmt.Errorf("invalid number list %q in attribute %q", raw, name))
			return nil, false
		}
		return out, true
	})
	if !ok {
		return nil, false
	}
	return v.([]float64), true
}

// ParseNumberList parses comma/space separated floats.
func ParseNumberList(raw string) ([]float64, bool) {
	fields := splitOnCommaOrSpace(raw)
	out := make([]float64, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// Length parses the attribute as an SVG length, resolving units
// against the context. Percentages resolve against lc.Ref.
func (e *Element) Length(name string, lc LengthContext) (float64, bool) {
	raw, ok := e.Attr(name)
	if !ok {
		return 0, false
	}
	f, ok := ParseLength(raw, lc)
	if !ok {
		e.doc.ReportInvalid(fmt.Errorf("invalid length %q in attribute %q", raw, name))
	}
	return f, ok
}

// ParseLength resolves an SVG length literal.
func ParseLength(raw string, lc LengthContext) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	unit := ""
	cut := len(raw)
	for cut > 0 {
		b := raw[cut-1]
		if (b >= 'a' && b <= 'z') || b == '%' {
			cut--
		} else {
			break
		}
	}
	unit = raw[cut:]
	f, err := strconv.ParseFloat(raw[:cut], 64)
	if err != nil {
		return 0, false
	}
	dpi := lc.DPI
	if dpi == 0 {
		dpi = 96
	}
	switch unit {
	case "", "px":
		return f, true
	case "%":
		return f / 100 * lc.Ref, true
	case "mm":
		return f * dpi / 25.4, true
	case "cm":
		return f * dpi / 2.54, true
	case "in":
		return f * dpi, true
	case "pt":
		return f * dpi / 72, true
	case "pc":
		return f * dpi / 6, true
	case "em":
		return f * lc.FontSize, true
	case "ex":
		return f * lc.FontSize / 2, true
	}
	return 0, false
}

// Fraction parses a number or percentage as a fraction (50% -> 0.5).
func (e *Element) Fraction(name string) (float64, bool) {
	raw, ok := e.Attr(name)
	if !ok {
		return 0, false
	}
	f, ok := ParseFraction(raw)
	if !ok {
		e.doc.ReportInvalid(fmt.Errorf("invalid fraction %q in attribute %q", raw, name))
	}
	return f, ok
}

// ParseFraction resolves a number-or-percentage literal.
func ParseFraction(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	d := 1.0
	if strings.HasSuffix(raw, "%") {
		d = 100
		raw = strings.TrimSuffix(raw, "%")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f / d, true
}

// Transform parses the attribute as a transform list.
func (e *Element) Transform(name string) (svgpath.Matrix2D, bool) {
	v, ok := e.memoized(memoKey("transform", name), func() (any, bool) {
		raw, ok := e.Attr(name)
		if !ok {
			return nil, false
		}
		m, err := ParseTransform(raw)
		if err != nil {
			e.doc.ReportInvalid(fmt.Errorf("invalid transform in attribute %q: %s", name, err))
			return nil, false
		}
		return m, true
	})
	if !ok {
		return svgpath.Identity, false
	}
	return v.(svgpath.Matrix2D), true
}

// Href returns the plain or xlink form of the href attribute.
func (e *Element) Href() (string, bool) {
	if v, ok := e.Attr("href"); ok {
		return v, true
	}
	return e.Attr("xlink:href")
}

// HrefID returns the target id of a local (#id) reference.
func (e *Element) HrefID() (string, bool) {
	href, ok := e.Href()
	if !ok || !strings.HasPrefix(href, "#") || len(href) < 2 {
		return "", false
	}
	return href[1:], true
}

// splitOnCommaOrSpace returns a list of strings after splitting the input on comma and space delimiters
func splitOnCommaOrSpace(s string) []string {
	return strings.FieldsFunc(s,
		func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
		})
}
