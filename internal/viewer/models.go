package viewer

import (
	"context"

	"github.com/gearxr/gear/internal/scene"
	"github.com/gearxr/gear/pkg/core"
)

// Placeholder appearance.
const PlaceholderColor = 0x4a90d9

// loadModels loads every configured model in order. Any failure adds the
// placeholder and stops loading; the viewer is marked loaded either way.
func (s *Session) loadModels(ctx context.Context) {
	defer close(s.loadDone)

	if len(s.boot.Models) == 0 {
		s.addPlaceholder()
		s.markLoaded()
		return
	}

	for _, ref := range s.boot.Models {
		obj, err := s.eng.Loader.Load(ctx, ref.URL)
		if err != nil {
			s.logger.Error("Error loading model", "url", ref.URL, "error", err)
			s.addPlaceholder()
			s.markLoaded()
			return
		}

		s.mu.Lock()
		if !s.alive.Load() {
			s.mu.Unlock()
			return
		}
		obj.Name = ref.Name
		obj.Scale = core.Vec3{X: 1, Y: 1, Z: 1}
		s.scene.Add(obj)
		s.model = obj
		s.centerCameraLocked(obj)
		s.mu.Unlock()

		s.logger.Info("Loaded model", "name", ref.Name, "url", ref.URL)
	}
	s.markLoaded()
}

func (s *Session) addPlaceholder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive.Load() {
		return
	}
	box := scene.NewMeshObject("placeholder", scene.KindPlaceholder,
		scene.Cuboid{Size: core.Vec3{X: 1, Y: 1, Z: 1}},
		scene.Material{Color: PlaceholderColor, Opacity: 1})
	s.scene.Add(box)
	s.model = box
	s.placeholder = box
}

func (s *Session) markLoaded() {
	s.mu.Lock()
	if !s.alive.Load() {
		s.mu.Unlock()
		return
	}
	s.loaded = true
	s.mu.Unlock()
	s.deps.UI.MarkLoaded()
}

// centerCameraLocked frames the object: the camera moves in front of its
// bounding box centre and the controls orbit that centre.
func (s *Session) centerCameraLocked(obj *scene.Object) {
	box := obj.WorldBounds()
	if box.IsEmpty() {
		return
	}
	center := box.Center()
	dist := s.camera.FitDistance(box.Size().MaxComponent())

	s.camera.Position = core.Vec3{X: center.X, Y: center.Y, Z: center.Z + dist}
	s.controls.Target = center
	s.controls.Update()
}

// WaitLoaded blocks until model loading finishes or ctx is done.
func (s *Session) WaitLoaded(ctx context.Context) error {
	select {
	case <-s.loadDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loaded reports whether the scene has been marked loaded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Model returns the most recently added model or placeholder.
func (s *Session) Model() *scene.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// HasPlaceholder reports whether the placeholder primitive is in the scene.
func (s *Session) HasPlaceholder() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeholder != nil && s.scene.Contains(s.placeholder)
}
