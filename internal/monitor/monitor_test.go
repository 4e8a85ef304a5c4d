package monitor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gearxr/gear/internal/storage"
	"github.com/gearxr/gear/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct{}

func (fakeStats) QueueLen() int                         { return 4 }
func (fakeStats) Dropped() int64                        { return 1 }
func (fakeStats) Written() int64                        { return 20 }
func (fakeStats) GetLastDBWriteDuration() time.Duration { return 1500 * time.Microsecond }

func TestTick_SweepsAndWritesStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.New()
	require.NoError(t, store.Touch(ctx, storage.PresenceRecord{GearID: 1, UserID: 1, LastSeen: now.Add(-time.Minute)}))
	require.NoError(t, store.Touch(ctx, storage.PresenceRecord{GearID: 1, UserID: 2, LastSeen: now}))

	dir := t.TempDir()
	s := NewService(Dependencies{
		Presence:  store,
		Worker:    fakeStats{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		DataDir:   dir,
		Retention: 10 * time.Second,
		Now:       func() time.Time { return now },
	})

	st, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.PresenceSwept)
	assert.Equal(t, 4, st.TrackingQueue)
	assert.Equal(t, float32(1.5), st.LastWriteDurationMs)

	active, err := store.Active(ctx, 1, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(2), active[0].UserID)

	data, err := os.ReadFile(filepath.Join(dir, StatusFileName))
	require.NoError(t, err)
	var onDisk Status
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, st, onDisk)
}

func TestTick_NoDataDir(t *testing.T) {
	s := NewService(Dependencies{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	st, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.TrackingQueue)
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	s := NewService(Dependencies{
		Presence: memory.New(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		DataDir:  dir,
		Interval: 10 * time.Millisecond,
	})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, StatusFileName))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}
