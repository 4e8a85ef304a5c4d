// Package memory implements the host stores in process memory. It backs the
// tests and the host when no database is wanted.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gearxr/gear/internal/storage"
	"github.com/gearxr/gear/pkg/core"
)

type presenceKey struct {
	gearID int64
	userID int64
}

// Backend keeps every record in maps guarded by one lock.
type Backend struct {
	activities map[int64]storage.Activity
	users      map[int64]storage.User
	hotspots   map[int64]core.Hotspot
	tracking   []storage.TrackingRecord
	presence   map[presenceKey]storage.PresenceRecord

	idCounter int64
	mu        sync.RWMutex
}

var (
	_ storage.Store         = (*Backend)(nil)
	_ storage.PresenceStore = (*Backend)(nil)
)

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		activities: make(map[int64]storage.Activity),
		users:      make(map[int64]storage.User),
		hotspots:   make(map[int64]core.Hotspot),
		presence:   make(map[presenceKey]storage.PresenceRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init(context.Context) error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) nextID() int64 {
	b.idCounter++
	return b.idCounter
}

// SaveActivity inserts or replaces an activity.
func (b *Backend) SaveActivity(_ context.Context, a *storage.Activity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a.ID == 0 {
		a.ID = b.nextID()
	}
	stored := *a
	stored.Models = append([]core.ModelRef(nil), a.Models...)
	b.activities[a.ID] = stored
	return nil
}

// Activity returns the activity with the given gear id.
func (b *Backend) Activity(_ context.Context, gearID int64) (storage.Activity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.activities[gearID]
	if !ok {
		return storage.Activity{}, storage.ErrNotFound
	}
	return a, nil
}

// ActivityByCMID returns the activity embedded by the given course module.
func (b *Backend) ActivityByCMID(_ context.Context, cmid int64) (storage.Activity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.activities {
		if a.CMID == cmid {
			return a, nil
		}
	}
	return storage.Activity{}, storage.ErrNotFound
}

// SaveUser inserts or replaces a user.
func (b *Backend) SaveUser(_ context.Context, u *storage.User) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u.ID == 0 {
		u.ID = b.nextID()
	}
	b.users[u.ID] = *u
	return nil
}

// UserByToken looks a user up by bearer token.
func (b *Backend) UserByToken(_ context.Context, token string) (storage.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, u := range b.users {
		if token != "" && u.Token == token {
			return u, nil
		}
	}
	return storage.User{}, storage.ErrNotFound
}

// UsersByID returns the known users among ids.
func (b *Backend) UsersByID(_ context.Context, ids []int64) (map[int64]storage.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[int64]storage.User, len(ids))
	for _, id := range ids {
		if u, ok := b.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// Hotspots returns the hotspots of an activity ordered by sort order.
func (b *Backend) Hotspots(_ context.Context, gearID int64) ([]core.Hotspot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hotspotsLocked(gearID), nil
}

func (b *Backend) hotspotsLocked(gearID int64) []core.Hotspot {
	out := make([]core.Hotspot, 0)
	for _, h := range b.hotspots {
		if h.GearID == gearID {
			out = append(out, h.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Hotspot returns one hotspot.
func (b *Backend) Hotspot(_ context.Context, id int64) (core.Hotspot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.hotspots[id]
	if !ok {
		return core.Hotspot{}, storage.ErrNotFound
	}
	return h.Clone(), nil
}

// SaveHotspot inserts (ID 0) or updates a hotspot.
func (b *Backend) SaveHotspot(_ context.Context, h *core.Hotspot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h.ID == 0 {
		h.SortOrder = storage.NextSortOrder(b.hotspotsLocked(h.GearID))
		h.ID = b.nextID()
		b.hotspots[h.ID] = h.Clone()
		return nil
	}

	existing, ok := b.hotspots[h.ID]
	if !ok {
		return storage.ErrNotFound
	}
	h.SortOrder = existing.SortOrder
	b.hotspots[h.ID] = h.Clone()
	return nil
}

// DeleteHotspot removes a hotspot.
func (b *Backend) DeleteHotspot(_ context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.hotspots[id]; !ok {
		return storage.ErrNotFound
	}
	delete(b.hotspots, id)
	return nil
}

// AddTracking appends tracking rows.
func (b *Backend) AddTracking(_ context.Context, recs ...storage.TrackingRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range recs {
		r.ID = b.nextID()
		r.Data = append(json.RawMessage(nil), r.Data...)
		b.tracking = append(b.tracking, r)
	}
	return nil
}

// Tracking returns the rows of an activity with the given action, oldest first.
// An empty action matches every row.
func (b *Backend) Tracking(_ context.Context, gearID int64, action string) ([]storage.TrackingRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]storage.TrackingRecord, 0)
	for _, r := range b.tracking {
		if r.GearID == gearID && (action == "" || r.Action == action) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Touch upserts a participant pose.
func (b *Backend) Touch(_ context.Context, rec storage.PresenceRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presence[presenceKey{rec.GearID, rec.UserID}] = rec
	return nil
}

// Active returns the poses of gearID seen after since, ordered by user id.
func (b *Backend) Active(_ context.Context, gearID int64, since time.Time) ([]storage.PresenceRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]storage.PresenceRecord, 0)
	for k, r := range b.presence {
		if k.gearID == gearID && r.LastSeen.After(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Sweep drops poses last seen before the cutoff.
func (b *Backend) Sweep(_ context.Context, before time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for k, r := range b.presence {
		if r.LastSeen.Before(before) {
			delete(b.presence, k)
			n++
		}
	}
	return n, nil
}
