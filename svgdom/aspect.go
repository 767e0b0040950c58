package svgdom

import "strings"

// Align places the viewBox within the viewport when aspect is
// preserved.
type Align uint8

const (
	AlignNone Align = iota
	AlignXMinYMin
	AlignXMidYMin
	AlignXMaxYMin
	AlignXMinYMid
	AlignXMidYMid
	AlignXMaxYMid
	AlignXMinYMax
	AlignXMidYMax
	AlignXMaxYMax
)

// AspectRatio is a parsed preserveAspectRatio attribute.
type AspectRatio struct {
	Align Align
	Slice bool // meet when false
}

var alignNames = map[string]Align{
	"none":     AlignNone,
	"xminymin": AlignXMinYMin,
	"xmidymin": AlignXMidYMin,
	"xmaxymin": AlignXMaxYMin,
	"xminymid": AlignXMinYMid,
	"xmidymid": AlignXMidYMid,
	"xmaxymid": AlignXMaxYMid,
	"xminymax": AlignXMinYMax,
	"xmidymax": AlignXMidYMax,
	"xmaxymax": AlignXMaxYMax,
}

// AspectRatio parses the preserveAspectRatio attribute; the default is
// xMidYMid meet.
func (e *Element) AspectRatio(name string) (AspectRatio, bool) {
	raw, ok := e.Attr(name)
	if !ok {
		return AspectRatio{Align: AlignXMidYMid}, false
	}
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	out := AspectRatio{Align: AlignXMidYMid}
	if len(fields) == 0 {
		return out, false
	}
	a, known := alignNames[fields[0]]
	if !known {
		return out, false
	}
	out.Align = a
	if len(fields) > 1 {
		out.Slice = fields[1] == "slice"
	}
	return out, true
}

// HorizFactor returns the horizontal alignment fraction: 0, 0.5 or 1.
func (a Align) HorizFactor() float64 {
	switch a {
	case AlignXMidYMin, AlignXMidYMid, AlignXMidYMax:
		return 0.5
	case AlignXMaxYMin, AlignXMaxYMid, AlignXMaxYMax:
		return 1
	}
	return 0
}

// VertFactor returns the vertical alignment fraction: 0, 0.5 or 1.
func (a Align) VertFactor() float64 {
	switch a {
	case AlignXMinYMid, AlignXMidYMid, AlignXMaxYMid:
		return 0.5
	case AlignXMinYMax, AlignXMidYMax, AlignXMaxYMax:
		return 1
	}
	return 0
}
