package svgfilter

import (
	"github.com/chewxy/math32"

	"github.com/benoitkugler/svgrender/svgtree"
)

// Perlin noise with the exact pseudo-random generator the SVG
// specification defines, so outputs are reproducible across
// implementations.
const (
	bSize   = 0x100
	bMask   = 0xff
	perlinN = 0x1000

	randM = 2147483647 // 2**31 - 1
	randA = 16807      // 7**5, primitive root of m
	randQ = 127773     // m / a
	randR = 2836       // m % a
)

func setupSeed(seed int32) int32 {
	if seed <= 0 {
		seed = -(seed % (randM - 1)) + 1
	}
	if seed > randM-1 {
		seed = randM - 1
	}
	return seed
}

func nextRand(seed int32) int32 {
	result := randA*(seed%randQ) - randR*(seed/randQ)
	if result <= 0 {
		result += randM
	}
	return result
}

type turbGen struct {
	lattice  [bSize + bSize + 2]int
	gradient [4][bSize + bSize + 2][2]float32
}

func newTurbGen(seed int32) *turbGen {
	t := &turbGen{}
	s := setupSeed(seed)
	for k := 0; k < 4; k++ {
		for i := 0; i < bSize; i++ {
			if k == 0 {
				t.lattice[i] = i
			}
			var g [2]float32
			for j := 0; j < 2; j++ {
				s = nextRand(s)
				g[j] = float32((int(s)%(bSize+bSize))-bSize) / bSize
			}
			if n := math32.Sqrt(g[0]*g[0] + g[1]*g[1]); n != 0 {
				g[0] /= n
				g[1] /= n
			}
			t.gradient[k][i] = g
		}
	}
	for i := bSize - 1; i > 0; i-- {
		s = nextRand(s)
		j := int(s) % bSize
		t.lattice[i], t.lattice[j] = t.lattice[j], t.lattice[i]
	}
	for i := 0; i < bSize+2; i++ {
		t.lattice[bSize+i] = t.lattice[i]
		for k := 0; k < 4; k++ {
			t.gradient[k][bSize+i] = t.gradient[k][i]
		}
	}
	return t
}

type stitchInfo struct {
	width, height int
	wrapX, wrapY  int
}

func sCurve(t float32) float32     { return t * t * (3 - 2*t) }
func lerp(t, a, b float32) float32 { return a + t*(b-a) }

func (tg *turbGen) noise2(channel int, vx, vy float32, stitch *stitchInfo) float32 {
	t := vx + perlinN
	bx0 := int(t) & bMask
	bx1 := (bx0 + 1) & bMask
	rx0 := t - math32.Floor(t)
	rx1 := rx0 - 1

	t = vy + perlinN
	by0 := int(t) & bMask
	by1 := (by0 + 1) & bMask
	ry0 := t - math32.Floor(t)
	ry1 := ry0 - 1

	if stitch != nil {
		if int(vx+perlinN) >= stitch.wrapX {
			bx0 = int(vx+perlinN) - stitch.width
		}
		if int(vx+perlinN)+1 >= stitch.wrapX {
			bx1 = int(vx+perlinN) + 1 - stitch.width
		}
		if int(vy+perlinN) >= stitch.wrapY {
			by0 = int(vy+perlinN) - stitch.height
		}
		if int(vy+perlinN)+1 >= stitch.wrapY {
			by1 = int(vy+perlinN) + 1 - stitch.height
		}
		bx0 &= bMask
		bx1 &= bMask
		by0 &= bMask
		by1 &= bMask
	}

	i := tg.lattice[bx0]
	j := tg.lattice[bx1]
	b00 := tg.lattice[i+by0]
	b10 := tg.lattice[j+by0]
	b01 := tg.lattice[i+by1]
	b11 := tg.lattice[j+by1]

	sx := sCurve(rx0)
	sy := sCurve(ry0)

	q := tg.gradient[channel][b00]
	u := rx0*q[0] + ry0*q[1]
	q = tg.gradient[channel][b10]
	v := rx1*q[0] + ry0*q[1]
	a := lerp(sx, u, v)

	q = tg.gradient[channel][b01]
	u = rx0*q[0] + ry1*q[1]
	q = tg.gradient[channel][b11]
	v = rx1*q[0] + ry1*q[1]
	b := lerp(sx, u, v)

	return lerp(sy, a, b)
}

// eval sums the octaves at point (x, y) in user space.
func (tg *turbGen) eval(channel int, x, y, freqX, freqY float32, octaves int, fractal bool, stitch *stitchInfo) float32 {
	var st stitchInfo
	var sp *stitchInfo
	if stitch != nil {
		st = *stitch
		sp = &st
	}
	var sum float32
	vx := x * freqX
	vy := y * freqY
	ratio := float32(1)
	for o := 0; o < octaves; o++ {
		n := tg.noise2(channel, vx, vy, sp)
		if !fractal {
			n = math32.Abs(n)
		}
		sum += n / ratio
		vx *= 2
		vy *= 2
		ratio *= 2
		if sp != nil {
			// the lattice doubles with the frequency
			sp.width *= 2
			sp.height *= 2
			sp.wrapX = 2*sp.wrapX - perlinN
			sp.wrapY = 2*sp.wrapY - perlinN
		}
	}
	return sum
}

// adjustFrequency nudges a base frequency so that an integral number
// of periods fits the tile, as stitching requires.
func adjustFrequency(freq, span float32) float32 {
	if freq == 0 || span == 0 {
		return freq
	}
	lo := math32.Floor(span*freq) / span
	hi := math32.Ceil(span*freq) / span
	if lo > 0 && freq/lo < hi/freq {
		return lo
	}
	return hi
}

func (st *state) turbulence(p svgtree.FeTurbulence) *Buffer {
	out := NewBuffer(st.src.W, st.src.H)
	if p.Octaves <= 0 || (p.BaseFreqX == 0 && p.BaseFreqY == 0) {
		// zero frequency noise is a constant mid-gray; the reference
		// generator never gets consulted
		return out
	}
	tg := newTurbGen(p.Seed)

	freqX := float32(p.BaseFreqX)
	freqY := float32(p.BaseFreqY)
	var stitch *stitchInfo
	if p.Stitch {
		tileW := float32(st.region.W)
		tileH := float32(st.region.H)
		freqX = adjustFrequency(freqX, tileW)
		freqY = adjustFrequency(freqY, tileH)
		stitch = &stitchInfo{
			width:  int(tileW*freqX + 0.5),
			height: int(tileH*freqY + 0.5),
		}
		stitch.wrapX = int(float32(st.region.X)*freqX) + perlinN + stitch.width
		stitch.wrapY = int(float32(st.region.Y)*freqY) + perlinN + stitch.height
	}

	for y := 0; y < out.H; y++ {
		uy := float32(st.region.Y) + float32(y)/st.scaleY
		for x := 0; x < out.W; x++ {
			ux := float32(st.region.X) + float32(x)/st.scaleX
			var ch [4]float32
			for c := 0; c < 4; c++ {
				v := tg.eval(c, ux, uy, freqX, freqY, p.Octaves, p.Fractal, stitch)
				if p.Fractal {
					v = (v + 1) / 2
				}
				ch[c] = clampF(v)
			}
			out.storeF32(out.offset(x, y), ch[0]*ch[3], ch[1]*ch[3], ch[2]*ch[3], ch[3])
		}
	}
	return out
}
