package svgfilter

import (
	"github.com/chewxy/math32"

	"github.com/benoitkugler/svgrender/svgtree"
)

// vec3 is a small helper for lighting math.
type vec3 struct{ x, y, z float32 }

func (v vec3) add(o vec3) vec3 { return vec3{v.x + o.x, v.y + o.y, v.z + o.z} }

func (v vec3) dot(o vec3) float32 { return v.x*o.x + v.y*o.y + v.z*o.z }

func (v vec3) normalize() vec3 {
	n := math32.Sqrt(v.dot(v))
	if n == 0 {
		return vec3{0, 0, 1}
	}
	return vec3{v.x / n, v.y / n, v.z / n}
}

// alphaAt reads the clamped alpha channel as a height sample.
func alphaAt(b *Buffer, x, y int) float32 {
	x = clampInt(x, 0, b.W-1)
	y = clampInt(y, 0, b.H-1)
	return float32(b.Pix[b.offset(x, y)+3]) / 255
}

// surfaceNormal derives the normal from the alpha heightfield with
// Sobel factors.
func surfaceNormal(in *Buffer, x, y int, ss float32) vec3 {
	nx := (alphaAt(in, x+1, y-1) + 2*alphaAt(in, x+1, y) + alphaAt(in, x+1, y+1)) -
		(alphaAt(in, x-1, y-1) + 2*alphaAt(in, x-1, y) + alphaAt(in, x-1, y+1))
	ny := (alphaAt(in, x-1, y+1) + 2*alphaAt(in, x, y+1) + alphaAt(in, x+1, y+1)) -
		(alphaAt(in, x-1, y-1) + 2*alphaAt(in, x, y-1) + alphaAt(in, x+1, y-1))
	return vec3{-ss * nx / 4, -ss * ny / 4, 1}.normalize()
}

// lightAt computes the unit vector towards the light and its color
// scale at the surface point.
func (st *state) lightAt(light svgtree.Light, px, py, pz float32) (dir vec3, atten float32) {
	switch l := light.(type) {
	case svgtree.DistantLight:
		az := float32(l.Azimuth) * math32.Pi / 180
		el := float32(l.Elevation) * math32.Pi / 180
		return vec3{math32.Cos(az) * math32.Cos(el), math32.Sin(az) * math32.Cos(el), math32.Sin(el)}, 1
	case svgtree.PointLight:
		return vec3{float32(l.X) - px, float32(l.Y) - py, float32(l.Z) - pz}.normalize(), 1
	case svgtree.SpotLight:
		dir := vec3{float32(l.X) - px, float32(l.Y) - py, float32(l.Z) - pz}.normalize()
		s := vec3{
			float32(l.PointsAtX - l.X),
			float32(l.PointsAtY - l.Y),
			float32(l.PointsAtZ - l.Z),
		}.normalize()
		minusLS := -dir.dot(s)
		if minusLS <= 0 {
			return dir, 0
		}
		if l.HasConeAngle {
			if minusLS < math32.Cos(float32(l.ConeAngle)*math32.Pi/180) {
				return dir, 0
			}
		}
		return dir, math32.Pow(minusLS, float32(l.SpecularExponent))
	}
	return vec3{0, 0, 1}, 1
}

// pointAt maps a buffer pixel to its user-space position and height.
func (st *state) pointAt(in *Buffer, x, y int, ss float32) (px, py, pz float32) {
	px = float32(st.region.X) + float32(x)/st.scaleX
	py = float32(st.region.Y) + float32(y)/st.scaleY
	pz = ss * alphaAt(in, x, y)
	return
}

func (st *state) diffuseLighting(p svgtree.FeDiffuseLighting) *Buffer {
	in := st.input(p.In).buf
	out := NewBuffer(in.W, in.H)
	ss := float32(p.SurfaceScale)
	kd := float32(p.DiffuseConstant)
	lr := float32(p.Color.R) / 255
	lg := float32(p.Color.G) / 255
	lb := float32(p.Color.B) / 255

	for y := 0; y < in.H; y++ {
		for x := 0; x < in.W; x++ {
			n := surfaceNormal(in, x, y, ss)
			px, py, pz := st.pointAt(in, x, y, ss)
			l, atten := st.lightAt(p.Light, px, py, pz)
			d := n.dot(l)
			if d < 0 {
				d = 0
			}
			f := kd * d * atten
			// diffuse output is opaque
			out.storeF32(out.offset(x, y), clampF(f*lr), clampF(f*lg), clampF(f*lb), 1)
		}
	}
	return out
}

func (st *state) specularLighting(p svgtree.FeSpecularLighting) *Buffer {
	in := st.input(p.In).buf
	out := NewBuffer(in.W, in.H)
	ss := float32(p.SurfaceScale)
	ks := float32(p.SpecularConstant)
	exp := float32(p.SpecularExponent)
	lr := float32(p.Color.R) / 255
	lg := float32(p.Color.G) / 255
	lb := float32(p.Color.B) / 255
	eye := vec3{0, 0, 1}

	for y := 0; y < in.H; y++ {
		for x := 0; x < in.W; x++ {
			n := surfaceNormal(in, x, y, ss)
			px, py, pz := st.pointAt(in, x, y, ss)
			l, atten := st.lightAt(p.Light, px, py, pz)
			h := l.add(eye).normalize()
			d := n.dot(h)
			if d < 0 {
				d = 0
			}
			f := ks * math32.Pow(d, exp) * atten
			r := clampF(f * lr)
			g := clampF(f * lg)
			b := clampF(f * lb)
			a := r
			if g > a {
				a = g
			}
			if b > a {
				a = b
			}
			// specular output is premultiplied against its own max
			out.storeF32(out.offset(x, y), r*a, g*a, b*a, a)
		}
	}
	return out
}
