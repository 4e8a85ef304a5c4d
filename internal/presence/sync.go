// Package presence shows the other viewers of a scene as avatars. A Sync
// loop sends the local camera pose to the host on a fixed interval and
// reconciles the avatar set against the participants the host reports.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gearxr/gear/internal/parser"
	"github.com/gearxr/gear/internal/scene"
	"github.com/gearxr/gear/pkg/core"
)

// DefaultInterval is the heartbeat period.
const DefaultInterval = 2 * time.Second

// Source is the viewer session a Sync follows. Pose and WithScene report
// false once the session is torn down.
type Source interface {
	CMID() int64
	GearID() int64
	Pose() (core.Pose, bool)
	WithScene(fn func(*scene.Scene, *scene.PerspectiveCamera)) bool
}

// Syncer is the remote side of the heartbeat.
type Syncer interface {
	SyncSession(ctx context.Context, gearID int64, pose core.Pose) ([]core.Participant, error)
}

// Dependencies holds all dependencies of a Sync.
type Dependencies struct {
	Source   Source
	Syncer   Syncer
	Logger   *slog.Logger
	Interval time.Duration
}

// Sync is the heartbeat-and-reconcile loop of one viewer.
type Sync struct {
	deps    Dependencies
	logger  *slog.Logger
	avatars *AvatarSet

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
	cancel    context.CancelFunc

	polls       metric.Int64Counter
	avatarGauge metric.Int64UpDownCounter
	attrs       metric.MeasurementOption
}

// New creates a stopped Sync. Uses the global OTel meter for metrics (no-op
// if not configured).
func New(deps Dependencies) (*Sync, error) {
	if deps.Source == nil || deps.Syncer == nil {
		return nil, fmt.Errorf("presence: source and syncer are required")
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "presence", "gearid", deps.Source.GearID())

	s := &Sync{
		deps:    deps,
		logger:  logger,
		avatars: NewAvatarSet(parser.NewParser(logger)),
		attrs:   metric.WithAttributes(attribute.Int64("gearid", deps.Source.GearID())),
	}

	m := meter()
	var err error
	s.polls, err = m.Int64Counter(
		"presence.polls",
		metric.WithDescription("Presence heartbeats by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating poll counter: %w", err)
	}
	s.avatarGauge, err = m.Int64UpDownCounter(
		"presence.avatars",
		metric.WithDescription("Avatars currently shown"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating avatar gauge: %w", err)
	}
	return s, nil
}

// Avatars returns the avatar set.
func (s *Sync) Avatars() *AvatarSet { return s.avatars }

// IsRunning returns whether the loop is running.
func (s *Sync) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Start launches the loop. The first heartbeat is sent right away rather than
// after a full interval. Starting a running Sync does nothing.
func (s *Sync) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go func(stop, done chan struct{}) {
		defer close(done)
		s.run(loopCtx, stop)
	}(s.stopChan, s.done)

	s.logger.Debug("Presence sync started", "interval", s.deps.Interval)
	return nil
}

// Stop cancels an in-flight heartbeat and waits for the loop to exit. It is
// safe to call before Start and more than once.
func (s *Sync) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cancel()
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Debug("Presence sync stopped")
}

func (s *Sync) run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	s.Poll(ctx)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll sends one heartbeat and reconciles the avatars against the reply.
// Failures are logged and reported as false; they never end the loop.
func (s *Sync) Poll(ctx context.Context) bool {
	pose, ok := s.deps.Source.Pose()
	if !ok {
		s.logger.Debug("Skipping heartbeat, scene is gone")
		return false
	}

	participants, err := s.deps.Syncer.SyncSession(ctx, s.deps.Source.GearID(), pose)
	if err != nil {
		s.polls.Add(ctx, 1, s.attrs, metric.WithAttributes(attribute.String("outcome", "failed")))
		s.logger.Warn("Presence heartbeat failed", "error", err)
		return false
	}
	s.polls.Add(ctx, 1, s.attrs, metric.WithAttributes(attribute.String("outcome", "ok")))

	var diff Diff
	applied := s.deps.Source.WithScene(func(sc *scene.Scene, _ *scene.PerspectiveCamera) {
		diff = s.avatars.Reconcile(sc, participants)
	})
	if !applied {
		s.logger.Debug("Dropping heartbeat reply, scene is gone")
		return false
	}

	if delta := int64(len(diff.Created) - len(diff.Removed)); delta != 0 {
		s.avatarGauge.Add(ctx, delta, s.attrs)
	}
	if len(diff.Created) > 0 || len(diff.Removed) > 0 {
		s.logger.Debug("Participants changed", "joined", diff.Created, "left", diff.Removed)
	}
	return true
}
