// Package storage defines the persistence contracts of the reference host:
// activities, users, hotspots and tracking rows in Store, participant poses
// in PresenceStore.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gearxr/gear/pkg/core"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Activity is one configured scene, addressed by its gear id or by the
// course-module id of the page embedding it.
type Activity struct {
	ID        int64
	CMID      int64
	Name      string
	Config    core.SceneConfig
	AREnabled bool
	VREnabled bool
	Models    []core.ModelRef
}

// User is a host account. Token is the bearer credential.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Token     string
	CanManage bool
}

// TrackingRecord is one analytics row.
type TrackingRecord struct {
	ID     int64
	GearID int64
	UserID int64
	Action string
	Data   json.RawMessage
	Time   time.Time
}

// PresenceRecord is the last pose a participant reported for an activity.
// Position and Rotation are kept as the raw JSON the participant sent.
type PresenceRecord struct {
	GearID   int64     `json:"gearid"`
	UserID   int64     `json:"userid"`
	Position string    `json:"position"`
	Rotation string    `json:"rotation"`
	LastSeen time.Time `json:"lastseen"`
}

// MarshalBinary encodes the record for key-value stores.
func (r PresenceRecord) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalBinary decodes a record written by MarshalBinary.
func (r *PresenceRecord) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, r)
}

// Store is the interface all host storage implementations must satisfy.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error

	// Activities and users
	SaveActivity(ctx context.Context, a *Activity) error
	Activity(ctx context.Context, gearID int64) (Activity, error)
	ActivityByCMID(ctx context.Context, cmid int64) (Activity, error)
	SaveUser(ctx context.Context, u *User) error
	UserByToken(ctx context.Context, token string) (User, error)
	UsersByID(ctx context.Context, ids []int64) (map[int64]User, error)

	// Hotspots. SaveHotspot inserts when h.ID is 0, assigning the id and the
	// next sort order of the activity; otherwise it updates the existing row.
	Hotspots(ctx context.Context, gearID int64) ([]core.Hotspot, error)
	Hotspot(ctx context.Context, id int64) (core.Hotspot, error)
	SaveHotspot(ctx context.Context, h *core.Hotspot) error
	DeleteHotspot(ctx context.Context, id int64) error

	// Tracking
	AddTracking(ctx context.Context, recs ...TrackingRecord) error
	Tracking(ctx context.Context, gearID int64, action string) ([]TrackingRecord, error)
}

// PresenceStore keeps the latest pose of each participant.
type PresenceStore interface {
	Touch(ctx context.Context, rec PresenceRecord) error
	// Active returns the records of gearID seen strictly after since.
	Active(ctx context.Context, gearID int64, since time.Time) ([]PresenceRecord, error)
	// Sweep removes records last seen before the cutoff and reports how many.
	Sweep(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// NextSortOrder returns the sort order for a new hotspot given the existing
// ones: one past the maximum, or 0 for the first.
func NextSortOrder(existing []core.Hotspot) int {
	if len(existing) == 0 {
		return 0
	}
	max := existing[0].SortOrder
	for _, h := range existing[1:] {
		if h.SortOrder > max {
			max = h.SortOrder
		}
	}
	return max + 1
}
