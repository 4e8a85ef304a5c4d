// Package worker persists tracked viewer events in batches and mirrors them
// to the analytics sink.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gearxr/gear/internal/influx"
	"github.com/gearxr/gear/internal/queue"
	"github.com/gearxr/gear/internal/storage"
)

const (
	DefaultBatchSize     = 500
	DefaultFlushInterval = 2 * time.Second
	DefaultQueueLimit    = 100000
)

// Sink receives every tracked event once it is persisted.
type Sink interface {
	WriteEvent(e influx.Event) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Store  storage.Store
	Sink   Sink
	Logger *slog.Logger

	BatchSize     int
	FlushInterval time.Duration
	QueueLimit    int
}

// Manager drains the tracking queue into storage.
type Manager struct {
	deps  Dependencies
	queue *queue.Queue[storage.TrackingRecord]

	lastWrite atomic.Int64
	written   atomic.Int64

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.QueueLimit <= 0 {
		deps.QueueLimit = DefaultQueueLimit
	}
	return &Manager{
		deps:  deps,
		queue: queue.New[storage.TrackingRecord](deps.QueueLimit),
	}
}

// Enqueue schedules a row for the next flush.
func (m *Manager) Enqueue(rec storage.TrackingRecord) {
	if dropped := m.queue.Push(rec); dropped > 0 {
		m.deps.Logger.Warn("Tracking queue full, dropped oldest rows", "dropped", dropped)
	}
}

// Mirror forwards a row that is already persisted to the sink only.
func (m *Manager) Mirror(rec storage.TrackingRecord) {
	m.mirror(rec)
}

func (m *Manager) mirror(rec storage.TrackingRecord) {
	if m.deps.Sink == nil {
		return
	}
	err := m.deps.Sink.WriteEvent(influx.Event{
		GearID: rec.GearID,
		UserID: rec.UserID,
		Action: rec.Action,
		Data:   rec.Data,
		Time:   rec.Time,
	})
	if err != nil {
		m.deps.Logger.Debug("Analytics sink rejected event", "action", rec.Action, "error", err)
	}
}

// Flush writes queued rows in batches until the queue is empty. A failed
// batch is put back at the front of the queue.
func (m *Manager) Flush(ctx context.Context) error {
	start := time.Now()
	defer func() { m.lastWrite.Store(int64(time.Since(start))) }()

	for {
		batch := m.queue.Drain(m.deps.BatchSize)
		if len(batch) == 0 {
			return nil
		}
		if err := m.deps.Store.AddTracking(ctx, batch...); err != nil {
			m.queue.Requeue(batch)
			return fmt.Errorf("writing %d tracking rows: %w", len(batch), err)
		}
		m.written.Add(int64(len(batch)))
		for _, rec := range batch {
			m.mirror(rec)
		}
	}
}

// QueueLen returns the number of rows waiting for a flush.
func (m *Manager) QueueLen() int {
	return m.queue.Len()
}

// Dropped returns how many rows were discarded by the queue limit.
func (m *Manager) Dropped() int64 {
	return m.queue.Dropped()
}

// Written returns how many rows were persisted.
func (m *Manager) Written() int64 {
	return m.written.Load()
}

// GetLastDBWriteDuration returns the duration of the last flush.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	return time.Duration(m.lastWrite.Load())
}

// IsRunning returns whether the flush loop is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isRunning
}

// Start runs the flush loop until Stop. Rows are flushed when a batch is
// full or the flush interval elapses.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = true
	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stopChan, m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.deps.FlushInterval)
		defer ticker.Stop()

		flush := func() {
			if err := m.Flush(context.Background()); err != nil {
				m.deps.Logger.Error("Failed to flush tracking rows", "error", err)
			}
		}

		for {
			select {
			case <-stop:
				flush()
				return
			case <-ticker.C:
				flush()
			case <-m.queue.Ready():
				if m.queue.Len() >= m.deps.BatchSize {
					flush()
				}
			}
		}
	}()
}

// Stop ends the flush loop after a final flush and waits for it.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	close(m.stopChan)
	done := m.done
	m.mu.Unlock()
	<-done
}
