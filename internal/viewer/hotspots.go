package viewer

import (
	"context"

	"github.com/gearxr/gear/internal/scene"
	"github.com/gearxr/gear/pkg/core"
)

// Marker appearance.
const (
	MarkerRadius  = 0.08
	MarkerColor   = 0x6366f1
	MarkerOpacity = 0.9
)

// Click is a pointer click over the render surface.
type Click struct {
	ClientX float64
	ClientY float64
	Surface scene.Rect
	// Author is the author-mode modifier (shift).
	Author bool
}

func newMarker(h *core.Hotspot) *scene.Object {
	m := scene.NewMeshObject("hotspot", scene.KindMarker,
		scene.Sphere{Radius: MarkerRadius},
		scene.Material{Color: MarkerColor, Opacity: MarkerOpacity, Transparent: true})
	m.Position = h.Position
	m.RefID = h.ID
	return m
}

func (s *Session) loadHotspotsLocked() {
	for i := range s.boot.Hotspots {
		h := s.boot.Hotspots[i].Clone()
		if !h.Type.Valid() {
			h.Type = core.HotspotInfo
		}
		s.addMarkerLocked(&h)
	}
}

// addMarkerLocked stores the record in the side table and places a marker
// that refers to it by id.
func (s *Session) addMarkerLocked(h *core.Hotspot) *scene.Object {
	s.hotspots[h.ID] = h
	m := newMarker(h)
	s.scene.Add(m)
	s.markers = append(s.markers, m)
	return m
}

func (s *Session) markerLocked(id int64) *scene.Object {
	for _, m := range s.markers {
		if m.RefID == id {
			return m
		}
	}
	return nil
}

func (s *Session) removeHotspotLocked(id int64) {
	delete(s.hotspots, id)
	kept := s.markers[:0]
	for _, m := range s.markers {
		if m.RefID == id {
			m.Dispose()
			continue
		}
		kept = append(kept, m)
	}
	clear(s.markers[len(kept):])
	s.markers = kept
}

// Hotspot returns a copy of the record for id.
func (s *Session) Hotspot(id int64) (core.Hotspot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hotspots[id]
	if !ok {
		return core.Hotspot{}, false
	}
	return h.Clone(), true
}

// Hotspots returns copies of the records behind every marker, in marker order.
func (s *Session) Hotspots() []core.Hotspot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Hotspot, 0, len(s.markers))
	for _, m := range s.markers {
		if h, ok := s.hotspots[m.RefID]; ok {
			out = append(out, h.Clone())
		}
	}
	return out
}

// MarkerCount returns the number of hotspot markers in the scene.
func (s *Session) MarkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

// HandleClick dispatches a click. In author mode a manager's click on the
// model opens the create form; otherwise the nearest marker under the
// pointer opens its popup. A miss does nothing.
func (s *Session) HandleClick(ctx context.Context, c Click) {
	s.mu.Lock()
	if !s.alive.Load() {
		s.mu.Unlock()
		return
	}

	x, y := scene.NDC(c.ClientX, c.ClientY, c.Surface)
	s.raycaster.SetFromCamera(x, y, s.camera)

	if c.Author && s.boot.CanManage && s.boot.Config.Hotspots.Enabled && s.model != nil {
		if hits := s.raycaster.IntersectObject(s.model, true); len(hits) > 0 {
			view := s.openFormLocked(FormCreate, hits[0].Point, nil)
			s.mu.Unlock()
			s.deps.UI.ShowForm(view)
			return
		}
	}

	hits := s.raycaster.IntersectObjects(s.markers, false)
	if len(hits) == 0 {
		s.mu.Unlock()
		return
	}
	h, ok := s.hotspots[hits[0].Object.RefID]
	if !ok {
		s.mu.Unlock()
		return
	}
	view := s.openPopupLocked(h)
	event := map[string]any{"hotspotId": h.ID, "title": h.Title}
	s.mu.Unlock()

	s.deps.UI.ShowPopup(view)
	s.track("hotspot_click", event)
}
