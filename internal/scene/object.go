// Package scene is a small retained-mode scene graph: objects with local
// transforms, a perspective camera, orbit controls and a raycaster that
// returns hits sorted by distance.
//
// Nothing in this package is safe for concurrent use; callers serialise
// access to a graph.
package scene

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gearxr/gear/pkg/core"
)

// Kind tags what an object stands for.
type Kind string

const (
	KindGroup       Kind = "group"
	KindMesh        Kind = "mesh"
	KindLight       Kind = "light"
	KindMarker      Kind = "marker"
	KindAvatar      Kind = "avatar"
	KindPlaceholder Kind = "placeholder"
	KindAudio       Kind = "audio"
)

// Material is the surface appearance of a mesh.
type Material struct {
	Color       uint32
	Opacity     float64
	Transparent bool
}

var lastObjectID atomic.Uint64

// Object is a node of the scene graph.
type Object struct {
	ID       uint64
	Name     string
	Kind     Kind
	Position core.Vec3
	Rotation core.Euler
	Scale    core.Vec3
	Visible  bool

	Shape    Shape
	Material Material
	Light    *core.Light

	// RefID points at the record this node presents, such as a hotspot id
	// or a participant's user id. The node never owns the record.
	RefID int64

	parent   *Object
	children []*Object
	disposed bool
}

// NewObject creates an empty node with unit scale.
func NewObject(name string, kind Kind) *Object {
	return &Object{
		ID:      lastObjectID.Add(1),
		Name:    name,
		Kind:    kind,
		Scale:   core.Vec3{X: 1, Y: 1, Z: 1},
		Visible: true,
	}
}

// NewGroup creates a node used only to hold children.
func NewGroup(name string) *Object {
	return NewObject(name, KindGroup)
}

// NewMeshObject creates a node with geometry.
func NewMeshObject(name string, kind Kind, shape Shape, mat Material) *Object {
	o := NewObject(name, kind)
	o.Shape = shape
	o.Material = mat
	return o
}

// NewLightObject creates a node for a light of the rig.
func NewLightObject(l core.Light) *Object {
	o := NewObject(l.Name, KindLight)
	o.Position = l.Position
	light := l
	o.Light = &light
	return o
}

// Add attaches children, detaching them from any previous parent.
func (o *Object) Add(children ...*Object) {
	for _, c := range children {
		if c == nil || c == o {
			continue
		}
		if c.parent != nil {
			c.parent.Remove(c)
		}
		c.parent = o
		o.children = append(o.children, c)
	}
}

// Remove detaches a direct child. It reports whether c was a child.
func (o *Object) Remove(c *Object) bool {
	for i, child := range o.children {
		if child == c {
			o.children = append(o.children[:i:i], o.children[i+1:]...)
			c.parent = nil
			return true
		}
	}
	return false
}

// Parent returns the node's parent or nil.
func (o *Object) Parent() *Object { return o.parent }

// Children returns a copy of the direct children.
func (o *Object) Children() []*Object {
	return append([]*Object(nil), o.children...)
}

// Traverse calls fn for o and every descendant, depth first.
func (o *Object) Traverse(fn func(*Object)) {
	fn(o)
	for _, c := range o.children {
		c.Traverse(fn)
	}
}

// Dispose detaches the node and marks it and its subtree released.
func (o *Object) Dispose() {
	if o.parent != nil {
		o.parent.Remove(o)
	}
	o.Traverse(func(n *Object) { n.disposed = true })
}

// Disposed reports whether Dispose was called.
func (o *Object) Disposed() bool { return o.disposed }

// LocalMatrix is translation * rotation * scale.
func (o *Object) LocalMatrix() mgl64.Mat4 {
	t := mgl64.Translate3D(o.Position.X, o.Position.Y, o.Position.Z)
	r := quatFromEuler(o.Rotation).Mat4()
	s := mgl64.Scale3D(o.Scale.X, o.Scale.Y, o.Scale.Z)
	return t.Mul4(r).Mul4(s)
}

// WorldMatrix composes the local matrices from the root down.
func (o *Object) WorldMatrix() mgl64.Mat4 {
	m := o.LocalMatrix()
	for p := o.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// WorldPosition is the node origin in world space.
func (o *Object) WorldPosition() core.Vec3 {
	return fromMgl(transformPoint(o.WorldMatrix(), mgl64.Vec3{}))
}

// WorldBounds is the world-space box around every shape in the subtree.
func (o *Object) WorldBounds() core.Box {
	box := core.EmptyBox()
	o.Traverse(func(n *Object) {
		if n.Shape == nil {
			return
		}
		b := n.Shape.Bounds()
		if b.IsEmpty() {
			return
		}
		m := n.WorldMatrix()
		for _, x := range [2]float64{b.Min.X, b.Max.X} {
			for _, y := range [2]float64{b.Min.Y, b.Max.Y} {
				for _, z := range [2]float64{b.Min.Z, b.Max.Z} {
					box = box.ExpandPoint(fromMgl(transformPoint(m, mgl64.Vec3{x, y, z})))
				}
			}
		}
	})
	return box
}
