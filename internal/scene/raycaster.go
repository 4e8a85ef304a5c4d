package scene

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gearxr/gear/pkg/core"
)

// Ray is a half line with a unit direction.
type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Intersection is a hit of the ray against an object.
type Intersection struct {
	Distance float64
	Point    core.Vec3
	Object   *Object
}

// Raycaster picks objects along a ray.
type Raycaster struct {
	Ray  Ray
	Near float64
	Far  float64
}

// NewRaycaster creates a raycaster accepting hits at any distance.
func NewRaycaster() *Raycaster {
	return &Raycaster{Far: math.Inf(1)}
}

// SetFromCamera aims the ray from the camera through an NDC point.
func (r *Raycaster) SetFromCamera(ndcX, ndcY float64, cam *PerspectiveCamera) {
	r.Ray = cam.Ray(ndcX, ndcY)
}

// IntersectObject tests o and, when recursive, its descendants. Hits are
// sorted nearest first.
func (r *Raycaster) IntersectObject(o *Object, recursive bool) []Intersection {
	var hits []Intersection
	r.collect(o, recursive, &hits)
	sortHits(hits)
	return hits
}

// IntersectObjects tests each object in turn. Hits are sorted nearest first.
func (r *Raycaster) IntersectObjects(objs []*Object, recursive bool) []Intersection {
	var hits []Intersection
	for _, o := range objs {
		r.collect(o, recursive, &hits)
	}
	sortHits(hits)
	return hits
}

func (r *Raycaster) collect(o *Object, recursive bool, hits *[]Intersection) {
	if o == nil || !o.Visible || o.disposed {
		return
	}
	if o.Shape != nil {
		if hit, ok := r.intersect(o); ok {
			*hits = append(*hits, hit)
		}
	}
	if recursive {
		for _, c := range o.children {
			r.collect(c, true, hits)
		}
	}
}

func (r *Raycaster) intersect(o *Object) (Intersection, bool) {
	world := o.WorldMatrix()
	if world.Det() == 0 {
		return Intersection{}, false
	}
	inv := world.Inv()

	origin := transformPoint(inv, r.Ray.Origin)
	dir := transformDir(inv, r.Ray.Direction)

	// An affine map keeps the ray parameter, so t is also the world distance
	// along the unit world direction.
	t, ok := o.Shape.Intersect(origin, dir)
	if !ok || t < r.Near || t > r.Far {
		return Intersection{}, false
	}
	return Intersection{
		Distance: t,
		Point:    fromMgl(r.Ray.At(t)),
		Object:   o,
	}, true
}

func sortHits(hits []Intersection) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
}
