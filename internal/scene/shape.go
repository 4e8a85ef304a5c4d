package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gearxr/gear/pkg/core"
)

// Shape is geometry in an object's local space.
type Shape interface {
	// Intersect returns the smallest t >= 0 such that origin + t*dir lies on
	// the surface.
	Intersect(origin, dir mgl64.Vec3) (float64, bool)
	// Bounds is the local-space bounding box.
	Bounds() core.Box
}

// Sphere is centred on the local origin.
type Sphere struct {
	Radius float64
}

func (s Sphere) Intersect(origin, dir mgl64.Vec3) (float64, bool) {
	a := dir.Dot(dir)
	b := 2 * origin.Dot(dir)
	c := origin.Dot(origin) - s.Radius*s.Radius
	disc := b*b - 4*a*c
	if disc < 0 || a == 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t0 := (-b - sq) / (2 * a)
	t1 := (-b + sq) / (2 * a)
	if t0 >= 0 {
		return t0, true
	}
	if t1 >= 0 {
		return t1, true
	}
	return 0, false
}

func (s Sphere) Bounds() core.Box {
	r := core.Vec3{X: s.Radius, Y: s.Radius, Z: s.Radius}
	return core.Box{Min: r.Scale(-1), Max: r}
}

// Cuboid is an axis-aligned box centred on the local origin.
type Cuboid struct {
	Size core.Vec3
}

func (c Cuboid) Intersect(origin, dir mgl64.Vec3) (float64, bool) {
	b := c.Bounds()
	return slab(toMgl(b.Min), toMgl(b.Max), origin, dir)
}

func (c Cuboid) Bounds() core.Box {
	h := c.Size.Scale(0.5)
	return core.Box{Min: h.Scale(-1), Max: h}
}

func slab(lo, hi, origin, dir mgl64.Vec3) (float64, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for i := range 3 {
		if dir[i] == 0 {
			if origin[i] < lo[i] || origin[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - origin[i]) / dir[i]
		t2 := (hi[i] - origin[i]) / dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	if tmin >= 0 {
		return tmin, true
	}
	return tmax, true
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Positions []mgl64.Vec3
	Indices   []uint32
	bounds    core.Box
	sealed    bool
}

// NewMesh builds a mesh. With no indices the positions are read as a plain
// triangle list.
func NewMesh(positions []mgl64.Vec3, indices []uint32) *Mesh {
	if len(indices) == 0 {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	m := &Mesh{Positions: positions, Indices: indices}
	m.bounds = m.computeBounds()
	m.sealed = true
	return m
}

// Triangles returns the number of complete triangles.
func (m *Mesh) Triangles() int {
	return len(m.Indices) / 3
}

func (m *Mesh) Intersect(origin, dir mgl64.Vec3) (float64, bool) {
	b := m.Bounds()
	if b.IsEmpty() {
		return 0, false
	}
	if _, ok := slab(toMgl(b.Min), toMgl(b.Max), origin, dir); !ok {
		return 0, false
	}

	best, hit := math.Inf(1), false
	n := len(m.Positions)
	for i := 0; i+2 < len(m.Indices); i += 3 {
		ia, ib, ic := int(m.Indices[i]), int(m.Indices[i+1]), int(m.Indices[i+2])
		if ia >= n || ib >= n || ic >= n {
			continue
		}
		if t, ok := triangle(m.Positions[ia], m.Positions[ib], m.Positions[ic], origin, dir); ok && t < best {
			best, hit = t, true
		}
	}
	return best, hit
}

func (m *Mesh) Bounds() core.Box {
	if m.sealed {
		return m.bounds
	}
	return m.computeBounds()
}

func (m *Mesh) computeBounds() core.Box {
	b := core.EmptyBox()
	for _, p := range m.Positions {
		b = b.ExpandPoint(fromMgl(p))
	}
	return b
}

// triangle is the Möller-Trumbore ray/triangle test, double sided.
func triangle(a, b, c, origin, dir mgl64.Vec3) (float64, bool) {
	const eps = 1e-12
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det
	s := origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}
