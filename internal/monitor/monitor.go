// Package monitor periodically sweeps stale presence rows and publishes the
// host's queue status.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gearxr/gear/internal/storage"
)

// StatusFileName is written into the data directory on every tick.
const StatusFileName = "status.json"

// QueueStats is implemented by the tracking worker.
type QueueStats interface {
	QueueLen() int
	Dropped() int64
	Written() int64
	GetLastDBWriteDuration() time.Duration
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Presence storage.PresenceStore
	Worker   QueueStats
	Logger   *slog.Logger
	DataDir  string
	// Interval between ticks; defaults to one minute.
	Interval time.Duration
	// Retention is how long a presence row survives without a heartbeat.
	Retention time.Duration
	Now       func() time.Time
}

// Status is one snapshot of the host.
type Status struct {
	Time                time.Time `json:"time"`
	TrackingQueue       int       `json:"trackingQueue"`
	TrackingDropped     int64     `json:"trackingDropped"`
	TrackingWritten     int64     `json:"trackingWritten"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
	PresenceSwept       int       `json:"presenceSwept"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}

	swept int
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Minute
	}
	if deps.Retention <= 0 {
		deps.Retention = 10 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current program status
func (s *Service) GetProgramStatus() Status {
	s.mu.RLock()
	swept := s.swept
	s.mu.RUnlock()

	st := Status{
		Time:          s.deps.Now().UTC(),
		PresenceSwept: swept,
	}
	if s.deps.Worker != nil {
		st.TrackingQueue = s.deps.Worker.QueueLen()
		st.TrackingDropped = s.deps.Worker.Dropped()
		st.TrackingWritten = s.deps.Worker.Written()
		st.LastWriteDurationMs = float32(s.deps.Worker.GetLastDBWriteDuration().Microseconds()) / 1000
	}
	return st
}

// Tick sweeps presence and writes the status file once.
func (s *Service) Tick(ctx context.Context) (Status, error) {
	if s.deps.Presence != nil {
		n, err := s.deps.Presence.Sweep(ctx, s.deps.Now().Add(-s.deps.Retention))
		if err != nil {
			s.deps.Logger.Error("Presence sweep failed", "error", err)
		} else {
			s.mu.Lock()
			s.swept += n
			s.mu.Unlock()
			if n > 0 {
				s.deps.Logger.Debug("Swept stale presence", "count", n)
			}
		}
	}

	st := s.GetProgramStatus()
	if s.deps.DataDir == "" {
		return st, nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return st, err
	}
	if err := os.MkdirAll(s.deps.DataDir, 0o755); err != nil {
		return st, fmt.Errorf("creating data dir: %w", err)
	}
	path := filepath.Join(s.deps.DataDir, StatusFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return st, fmt.Errorf("writing status file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return st, fmt.Errorf("writing status file: %w", err)
	}
	return st, nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		logger := s.deps.Logger
		logger.Debug("Starting status monitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if _, err := s.Tick(context.Background()); err != nil {
					logger.Error("Error writing status", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
