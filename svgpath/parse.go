package svgpath

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// This file compiles the SVG path data microsyntax (the `d` attribute)
// into a Path.

var (
	errCommand = errors.New("invalid path command")
	errNumber  = errors.New("invalid number in path data")
)

// ParsePath compiles SVG path data into a Path.
// All forms of the grammar are supported: relative and absolute
// commands, implicit repetitions, smooth curves and elliptical arcs
// (lowered to cubic beziers).
func ParsePath(d string) (Path, error) {
	c := &pathCursor{data: d}
	for c.skipSeparators(); c.pos < len(c.data); c.skipSeparators() {
		cmd := c.data[c.pos]
		c.pos++
		if err := c.command(cmd); err != nil {
			return nil, fmt.Errorf("path data %q at byte %d: %w", d, c.pos, err)
		}
	}
	return c.path, nil
}

type pathCursor struct {
	data string
	pos  int
	path Path

	placeX, placeY float64 // current point
	startX, startY float64 // start of the current subpath
	cntlX, cntlY   float64 // last cubic control point
	qntlX, qntlY   float64 // last quadratic control point
	lastCmd        byte
	inPath         bool
}

func isSep(b byte) bool { return b == ' ' || b == ',' || b == '\t' || b == '\n' || b == '\r' }

func (c *pathCursor) skipSeparators() {
	for c.pos < len(c.data) && isSep(c.data[c.pos]) {
		c.pos++
	}
}

// number scans one float, accepting signs, a fractional part and an
// exponent. Two numbers may abut on a second dot ("0.5.5") or a sign.
func (c *pathCursor) number() (float64, error) {
	c.skipSeparators()
	start := c.pos
	seenDot, seenExp := false, false
	for c.pos < len(c.data) {
		b := c.data[c.pos]
		switch {
		case b >= '0' && b <= '9':
		case b == '.':
			if seenDot || seenExp {
				goto done
			}
			seenDot = true
		case b == 'e' || b == 'E':
			if seenExp {
				goto done
			}
			seenExp = true
		case b == '+' || b == '-':
			if c.pos != start && (c.data[c.pos-1] != 'e' && c.data[c.pos-1] != 'E') {
				goto done
			}
		default:
			goto done
		}
		c.pos++
	}
done:
	if c.pos == start {
		return 0, errNumber
	}
	f, err := strconv.ParseFloat(c.data[start:c.pos], 64)
	if err != nil {
		return 0, errNumber
	}
	return f, nil
}

// flag scans an arc flag, a bare 0 or 1 possibly glued to the next
// number.
func (c *pathCursor) flag() (bool, error) {
	c.skipSeparators()
	if c.pos >= len(c.data) {
		return false, errNumber
	}
	switch c.data[c.pos] {
	case '0':
		c.pos++
		return false, nil
	case '1':
		c.pos++
		return true, nil
	}
	return false, errNumber
}

func (c *pathCursor) numbers(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		f, err := c.number()
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// hasMore reports whether another argument group follows (implicit
// command repetition).
func (c *pathCursor) hasMore() bool {
	c.skipSeparators()
	if c.pos >= len(c.data) {
		return false
	}
	b := c.data[c.pos]
	return b == '-' || b == '+' || b == '.' || (b >= '0' && b <= '9')
}

func (c *pathCursor) moveTo(x, y float64) {
	c.placeX, c.placeY = x, y
	c.startX, c.startY = x, y
	c.path.Start(toFixedP(x, y))
	c.inPath = true
}

func (c *pathCursor) lineTo(x, y float64) {
	if !c.inPath {
		c.moveTo(x, y)
		return
	}
	c.placeX, c.placeY = x, y
	c.path.Line(toFixedP(x, y))
}

func (c *pathCursor) cubicTo(x1, y1, x2, y2, x, y float64) {
	c.path.CubeBezier(toFixedP(x1, y1), toFixedP(x2, y2), toFixedP(x, y))
	c.cntlX, c.cntlY = x2, y2
	c.placeX, c.placeY = x, y
}

func (c *pathCursor) quadTo(x1, y1, x, y float64) {
	c.path.QuadBezier(toFixedP(x1, y1), toFixedP(x, y))
	c.qntlX, c.qntlY = x1, y1
	c.placeX, c.placeY = x, y
}

func (c *pathCursor) close() {
	c.path.Stop(true)
	c.placeX, c.placeY = c.startX, c.startY
	c.inPath = false
}

// reflectCubic returns the first control point of a smooth cubic.
func (c *pathCursor) reflectCubic() (float64, float64) {
	switch c.lastCmd {
	case 'c', 'C', 's', 'S':
		return 2*c.placeX - c.cntlX, 2*c.placeY - c.cntlY
	}
	return c.placeX, c.placeY
}

// reflectQuad returns the control point of a smooth quadratic.
func (c *pathCursor) reflectQuad() (float64, float64) {
	switch c.lastCmd {
	case 'q', 'Q', 't', 'T':
		return 2*c.placeX - c.qntlX, 2*c.placeY - c.qntlY
	}
	return c.placeX, c.placeY
}

func (c *pathCursor) arcTo(rel bool) error {
	for first := true; first || c.hasMore(); first = false {
		rxy, err := c.numbers(3)
		if err != nil {
			return err
		}
		laf, err := c.flag()
		if err != nil {
			return err
		}
		sf, err := c.flag()
		if err != nil {
			return err
		}
		end, err := c.numbers(2)
		if err != nil {
			return err
		}
		if rel {
			end[0] += c.placeX
			end[1] += c.placeY
		}
		rx, ry := math.Abs(rxy[0]), math.Abs(rxy[1])
		if rx == 0 || ry == 0 {
			// degenerate radius: the arc collapses to a line
			c.lineTo(end[0], end[1])
			continue
		}
		if !c.inPath {
			c.moveTo(c.placeX, c.placeY)
		}
		points := []float64{rx, ry, rxy[2], b2f(laf), b2f(sf), end[0], end[1]}
		cx, cy := findEllipseCenter(&points[0], &points[1], rxy[2]*math.Pi/180,
			c.placeX, c.placeY, end[0], end[1], sf, laf)
		c.placeX, c.placeY = c.path.addArc(points, cx, cy, c.placeX, c.placeY)
	}
	return nil
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (c *pathCursor) command(cmd byte) error {
	rel := cmd >= 'a' && cmd <= 'z'
	switch cmd {
	case 'M', 'm':
		for first := true; first || c.hasMore(); first = false {
			pt, err := c.numbers(2)
			if err != nil {
				return err
			}
			if rel {
				pt[0] += c.placeX
				pt[1] += c.placeY
			}
			if first {
				c.moveTo(pt[0], pt[1])
			} else {
				c.lineTo(pt[0], pt[1]) // subsequent pairs are implicit linetos
			}
		}
	case 'L', 'l':
		for first := true; first || c.hasMore(); first = false {
			pt, err := c.numbers(2)
			if err != nil {
				return err
			}
			if rel {
				pt[0] += c.placeX
				pt[1] += c.placeY
			}
			c.lineTo(pt[0], pt[1])
		}
	case 'H', 'h':
		for first := true; first || c.hasMore(); first = false {
			x, err := c.number()
			if err != nil {
				return err
			}
			if rel {
				x += c.placeX
			}
			c.lineTo(x, c.placeY)
		}
	case 'V', 'v':
		for first := true; first || c.hasMore(); first = false {
			y, err := c.number()
			if err != nil {
				return err
			}
			if rel {
				y += c.placeY
			}
			c.lineTo(c.placeX, y)
		}
	case 'C', 'c':
		for first := true; first || c.hasMore(); first = false {
			pt, err := c.numbers(6)
			if err != nil {
				return err
			}
			if rel {
				for i := 0; i < 6; i += 2 {
					pt[i] += c.placeX
					pt[i+1] += c.placeY
				}
			}
			c.cubicTo(pt[0], pt[1], pt[2], pt[3], pt[4], pt[5])
			c.lastCmd = cmd
		}
	case 'S', 's':
		for first := true; first || c.hasMore(); first = false {
			pt, err := c.numbers(4)
			if err != nil {
				return err
			}
			if rel {
				for i := 0; i < 4; i += 2 {
					pt[i] += c.placeX
					pt[i+1] += c.placeY
				}
			}
			x1, y1 := c.reflectCubic()
			c.cubicTo(x1, y1, pt[0], pt[1], pt[2], pt[3])
			c.lastCmd = cmd
		}
	case 'Q', 'q':
		for first := true; first || c.hasMore(); first = false {
			pt, err := c.numbers(4)
			if err != nil {
				return err
			}
			if rel {
				for i := 0; i < 4; i += 2 {
					pt[i] += c.placeX
					pt[i+1] += c.placeY
				}
			}
			c.quadTo(pt[0], pt[1], pt[2], pt[3])
			c.lastCmd = cmd
		}
	case 'T', 't':
		for first := true; first || c.hasMore(); first = false {
			pt, err := c.numbers(2)
			if err != nil {
				return err
			}
			if rel {
				pt[0] += c.placeX
				pt[1] += c.placeY
			}
			x1, y1 := c.reflectQuad()
			c.quadTo(x1, y1, pt[0], pt[1])
			c.lastCmd = cmd
		}
	case 'A', 'a':
		if err := c.arcTo(rel); err != nil {
			return err
		}
	case 'Z', 'z':
		c.close()
	default:
		return fmt.Errorf("%w: %q", errCommand, cmd)
	}
	c.lastCmd = cmd
	return nil
}
