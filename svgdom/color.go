package svgdom

import (
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ColorValue is the result of parsing a color-valued attribute:
// either a plain color, none, or currentColor.
type ColorValue struct {
	Color        color.RGBA
	None         bool
	CurrentColor bool
}

// Color parses the attribute as an SVG color value.
func (e *Element) Color(name string) (ColorValue, bool) {
	raw, ok := e.Attr(name)
	if !ok {
		return ColorValue{}, false
	}
	return ParseColor(raw)
}

// ParseColor resolves an SVG color literal: #rgb, #rrggbb,
// rgb(...) with integers or percentages, the CSS color keywords,
// and the none / transparent / currentColor keywords.
func ParseColor(raw string) (ColorValue, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "":
		return ColorValue{}, false
	case "none":
		return ColorValue{None: true}, true
	case "transparent":
		return ColorValue{Color: color.RGBA{}}, true
	case "currentcolor":
		return ColorValue{CurrentColor: true}, true
	}
	if strings.HasPrefix(v, "#") {
		c, ok := parseHexColor(v[1:])
		return ColorValue{Color: c}, ok
	}
	if strings.HasPrefix(v, "rgb(") && strings.HasSuffix(v, ")") {
		c, ok := parseRGBFunc(v[4 : len(v)-1])
		return ColorValue{Color: c}, ok
	}
	if c, ok := colornames.Map[v]; ok {
		return ColorValue{Color: c}, true
	}
	return ColorValue{}, false
}

func parseHexColor(hex string) (color.RGBA, bool) {
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return color.RGBA{}, false
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{
		R: uint8(n >> 16),
		G: uint8(n >> 8),
		B: uint8(n),
		A: 0xff,
	}, true
}

func parseRGBFunc(body string) (color.RGBA, bool) {
	fields := splitOnCommaOrSpace(body)
	if len(fields) != 3 {
		return color.RGBA{}, false
	}
	var ch [3]uint8
	for i, f := range fields {
		if strings.HasSuffix(f, "%") {
			p, err := strconv.ParseFloat(strings.TrimSuffix(f, "%"), 64)
			if err != nil {
				return color.RGBA{}, false
			}
			ch[i] = uint8(clamp255(p / 100 * 255))
		} else {
			n, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return color.RGBA{}, false
			}
			ch[i] = uint8(clamp255(n))
		}
	}
	return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: 0xff}, true
}

func clamp255(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return f
}
