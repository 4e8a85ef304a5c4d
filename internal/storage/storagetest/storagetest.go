// Package storagetest holds behaviour checks shared by every storage
// implementation.
package storagetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearxr/gear/internal/storage"
	"github.com/gearxr/gear/pkg/core"
)

// RunStore exercises a Store created fresh by newStore for each subtest.
func RunStore(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("activities", func(t *testing.T) {
		s := newStore(t)
		a := storage.Activity{
			CMID:      7,
			Name:      "Engine room",
			Config:    core.DefaultSceneConfig(),
			AREnabled: true,
			Models:    []core.ModelRef{{ID: 1, Name: "engine", URL: "https://example.org/engine.glb"}},
		}
		a.Config.Lighting = core.LightingDark
		require.NoError(t, s.SaveActivity(ctx, &a))
		require.NotZero(t, a.ID)

		got, err := s.Activity(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a, got)

		byCM, err := s.ActivityByCMID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, a.ID, byCM.ID)

		_, err = s.Activity(ctx, a.ID+100)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.ActivityByCMID(ctx, 99)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("users", func(t *testing.T) {
		s := newStore(t)
		ada := storage.User{FirstName: "Ada", LastName: "Lovelace", Token: "tok-ada", CanManage: true}
		bob := storage.User{FirstName: "Bob", Token: "tok-bob"}
		require.NoError(t, s.SaveUser(ctx, &ada))
		require.NoError(t, s.SaveUser(ctx, &bob))

		got, err := s.UserByToken(ctx, "tok-ada")
		require.NoError(t, err)
		assert.Equal(t, ada, got)

		_, err = s.UserByToken(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.UserByToken(ctx, "")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		users, err := s.UsersByID(ctx, []int64{ada.ID, bob.ID, 4242})
		require.NoError(t, err)
		assert.Len(t, users, 2)
		assert.Equal(t, "Bob", users[bob.ID].FirstName)
	})

	t.Run("hotspots", func(t *testing.T) {
		s := newStore(t)
		correct, points := 1, 20
		first := core.Hotspot{
			GearID:   3,
			Type:     core.HotspotQuiz,
			Title:    "Which valve?",
			Position: core.Vec3{X: 0.5, Y: 1.25, Z: -2},
			Icon:     "quiz",
			Config:   core.HotspotConfig{Options: []string{"A", "B"}, CorrectAnswer: &correct, Points: &points},
		}
		require.NoError(t, s.SaveHotspot(ctx, &first))
		require.NotZero(t, first.ID)
		assert.Equal(t, 0, first.SortOrder)

		second := core.Hotspot{GearID: 3, Type: core.HotspotInfo, Title: "Pump", Icon: "info"}
		require.NoError(t, s.SaveHotspot(ctx, &second))
		assert.Equal(t, 1, second.SortOrder)

		other := core.Hotspot{GearID: 4, Type: core.HotspotInfo, Title: "Elsewhere"}
		require.NoError(t, s.SaveHotspot(ctx, &other))
		assert.Equal(t, 0, other.SortOrder)

		list, err := s.Hotspots(ctx, 3)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, first.Position, list[0].Position)
		assert.Equal(t, first.Config, list[0].Config)
		assert.Equal(t, second.ID, list[1].ID)

		second.Title = "Main pump"
		require.NoError(t, s.SaveHotspot(ctx, &second))
		got, err := s.Hotspot(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, "Main pump", got.Title)
		assert.Equal(t, 1, got.SortOrder)

		missing := core.Hotspot{ID: 9999, GearID: 3}
		assert.ErrorIs(t, s.SaveHotspot(ctx, &missing), storage.ErrNotFound)

		require.NoError(t, s.DeleteHotspot(ctx, first.ID))
		assert.ErrorIs(t, s.DeleteHotspot(ctx, first.ID), storage.ErrNotFound)
		_, err = s.Hotspot(ctx, first.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		empty, err := s.Hotspots(ctx, 42)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("tracking", func(t *testing.T) {
		s := newStore(t)
		now := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, s.AddTracking(ctx,
			storage.TrackingRecord{GearID: 3, UserID: 1, Action: "quiz_submit", Data: json.RawMessage(`{"score":10}`), Time: now},
			storage.TrackingRecord{GearID: 3, UserID: 1, Action: "hotspot_click", Data: json.RawMessage(`{}`), Time: now},
			storage.TrackingRecord{GearID: 4, UserID: 2, Action: "quiz_submit", Data: json.RawMessage(`{"score":5}`), Time: now},
		))

		quiz, err := s.Tracking(ctx, 3, "quiz_submit")
		require.NoError(t, err)
		require.Len(t, quiz, 1)
		assert.JSONEq(t, `{"score":10}`, string(quiz[0].Data))
		assert.True(t, now.Equal(quiz[0].Time))

		all, err := s.Tracking(ctx, 3, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

// RunPresence exercises a PresenceStore.
func RunPresence(t *testing.T, newStore func(t *testing.T) storage.PresenceStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("touch and active", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Touch(ctx, storage.PresenceRecord{GearID: 3, UserID: 2, Position: `{"x":1,"y":2,"z":3}`, LastSeen: now}))
		require.NoError(t, s.Touch(ctx, storage.PresenceRecord{GearID: 3, UserID: 1, Position: `{"x":0}`, LastSeen: now}))
		require.NoError(t, s.Touch(ctx, storage.PresenceRecord{GearID: 3, UserID: 5, LastSeen: now.Add(-time.Minute)}))
		require.NoError(t, s.Touch(ctx, storage.PresenceRecord{GearID: 4, UserID: 6, LastSeen: now}))

		active, err := s.Active(ctx, 3, now.Add(-10*time.Second))
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, int64(1), active[0].UserID)
		assert.Equal(t, int64(2), active[1].UserID)
		assert.Equal(t, `{"x":1,"y":2,"z":3}`, active[1].Position)

		// second touch replaces the pose
		require.NoError(t, s.Touch(ctx, storage.PresenceRecord{GearID: 3, UserID: 2, Position: `{"x":9,"y":9,"z":9}`, LastSeen: now}))
		active, err = s.Active(ctx, 3, now.Add(-10*time.Second))
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, `{"x":9,"y":9,"z":9}`, active[1].Position)
	})

	t.Run("sweep", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Touch(ctx, storage.PresenceRecord{GearID: 3, UserID: 1, LastSeen: now.Add(-2 * time.Minute)}))
		require.NoError(t, s.Touch(ctx, storage.PresenceRecord{GearID: 3, UserID: 2, LastSeen: now}))

		n, err := s.Sweep(ctx, now.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		active, err := s.Active(ctx, 3, time.Time{})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, int64(2), active[0].UserID)
	})
}
