package scene

import "github.com/gearxr/gear/pkg/core"

// Scene is the root of a graph plus its clear colour.
type Scene struct {
	Background string
	root       *Object
}

// New creates an empty scene.
func New(background string) *Scene {
	if background == "" {
		background = core.DefaultBackground
	}
	return &Scene{Background: background, root: NewGroup("scene")}
}

// Root returns the scene's root node.
func (s *Scene) Root() *Object { return s.root }

// Add attaches objects to the root.
func (s *Scene) Add(objs ...*Object) { s.root.Add(objs...) }

// Remove detaches a top-level object.
func (s *Scene) Remove(o *Object) bool { return s.root.Remove(o) }

// Contains reports whether o is attached anywhere under the root.
func (s *Scene) Contains(o *Object) bool {
	for p := o; p != nil; p = p.parent {
		if p == s.root {
			return true
		}
	}
	return false
}

// Objects returns the top-level objects.
func (s *Scene) Objects() []*Object { return s.root.Children() }

// FindKind returns every node of the given kind, depth first.
func (s *Scene) FindKind(kind Kind) []*Object {
	var out []*Object
	s.root.Traverse(func(o *Object) {
		if o.Kind == kind {
			out = append(out, o)
		}
	})
	return out
}

// Lights returns the lights attached to the scene.
func (s *Scene) Lights() []core.Light {
	var out []core.Light
	s.root.Traverse(func(o *Object) {
		if o.Light != nil {
			out = append(out, *o.Light)
		}
	})
	return out
}
