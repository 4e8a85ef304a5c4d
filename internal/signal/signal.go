// Package signal carries the viewer's custom signals to any number of listeners.
package signal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Signal names emitted by the viewer.
const (
	SceneLoaded = "gear:scene:loaded"
	ARStarted   = "gear:ar:started"
	VRStarted   = "gear:vr:started"
)

// Signal is one emitted occurrence.
type Signal struct {
	Name      string
	CMID      int64
	GearID    int64
	Timestamp time.Time
}

// Handler reacts to a signal.
type Handler func(context.Context, Signal) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a subscription.
type Option func(*subConfig)

type subConfig struct {
	bufferSize int
	logged     bool
	once       bool
	cmid       int64
}

// Buffered delivers signals to the handler from its own goroutine through a
// queue of the given size. Signals are dropped when the queue is full.
func Buffered(size int) Option {
	return func(c *subConfig) {
		c.bufferSize = size
	}
}

// Logged adds debug logging around the handler.
func Logged() Option {
	return func(c *subConfig) {
		c.logged = true
	}
}

// Once removes the subscription after its first delivery.
func Once() Option {
	return func(c *subConfig) {
		c.once = true
	}
}

// ForCMID restricts delivery to signals of one course module. Other
// signals neither reach the handler nor count as a delivery for Once.
func ForCMID(cmid int64) Option {
	return func(c *subConfig) {
		c.cmid = cmid
	}
}

type subscription struct {
	id      uint64
	handler Handler
	once    bool
	cmid    int64
	buffer  chan deliveredSignal
	stop    chan struct{}
	stopped sync.Once
}

func (s *subscription) close() {
	if s.buffer != nil {
		s.stopped.Do(func() { close(s.stop) })
	}
}

type deliveredSignal struct {
	ctx context.Context
	sig Signal
}

// Bus fans signals out to subscribers in subscription order.
type Bus struct {
	logger Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[string][]*subscription
	closed bool

	emitted metric.Int64Counter
	dropped metric.Int64Counter
	failed  metric.Int64Counter
}

// New creates a Bus. Uses the global OTel meter for metrics (no-op if not configured).
// A nil logger falls back to slog.Default.
func New(logger Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		logger: logger,
		subs:   make(map[string][]*subscription),
	}

	m := meter()

	var err error
	b.emitted, err = m.Int64Counter(
		"signal.emitted",
		metric.WithDescription("Total signals emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating emitted counter: %w", err)
	}

	b.dropped, err = m.Int64Counter(
		"signal.dropped",
		metric.WithDescription("Signals dropped because a subscriber queue was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	b.failed, err = m.Int64Counter(
		"signal.handler.failed",
		metric.WithDescription("Subscriber handlers that returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return b, nil
}

// Subscribe registers h for the named signal and returns a function removing it.
func (b *Bus) Subscribe(name string, h Handler, opts ...Option) (unsubscribe func()) {
	cfg := &subConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = b.withLogging(name, handler)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{id: b.nextID, handler: handler, once: cfg.once, cmid: cfg.cmid}

	if cfg.bufferSize > 0 {
		sub.buffer = make(chan deliveredSignal, cfg.bufferSize)
		sub.stop = make(chan struct{})
		go b.drain(name, sub)
	}

	b.subs[name] = append(b.subs[name], sub)

	return func() { b.remove(name, sub.id) }
}

// Emit delivers sig to every subscriber of sig.Name. Unbuffered handlers run on
// the caller's goroutine; their errors are logged and do not stop delivery.
func (b *Bus) Emit(ctx context.Context, sig Signal) {
	if sig.Timestamp.IsZero() {
		sig.Timestamp = time.Now()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	var subs []*subscription
	for _, s := range b.subs[sig.Name] {
		if s.cmid == 0 || s.cmid == sig.CMID {
			subs = append(subs, s)
		}
	}
	for _, s := range subs {
		if s.once {
			b.detachLocked(sig.Name, s.id)
		}
	}
	b.mu.Unlock()

	nameAttr := metric.WithAttributes(attribute.String("signal", sig.Name))
	b.emitted.Add(ctx, 1, nameAttr)

	for _, s := range subs {
		if s.buffer != nil {
			select {
			case s.buffer <- deliveredSignal{ctx: ctx, sig: sig}:
			case <-s.stop:
			default:
				b.dropped.Add(ctx, 1, nameAttr)
				b.logger.Error("signal dropped", "signal", sig.Name)
			}
			continue
		}
		if err := s.handler(ctx, sig); err != nil {
			b.failed.Add(ctx, 1, nameAttr)
			b.logger.Error("signal handler failed", "signal", sig.Name, "error", err)
		}
	}
}

// Subscribers returns the number of subscribers for a signal.
func (b *Bus) Subscribers(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}

// Close stops every buffered subscriber. Emit after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for name, subs := range b.subs {
		for _, s := range subs {
			s.close()
		}
		delete(b.subs, name)
	}
}

func (b *Bus) drain(name string, s *subscription) {
	attr := metric.WithAttributes(attribute.String("signal", name))
	for {
		select {
		case <-s.stop:
			return
		case d := <-s.buffer:
			if err := s.handler(d.ctx, d.sig); err != nil {
				b.failed.Add(d.ctx, 1, attr)
				b.logger.Error("signal handler failed", "signal", name, "error", err)
			}
			if s.once {
				s.close()
			}
		}
	}
}

func (b *Bus) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(name, id)
}

func (b *Bus) removeLocked(name string, id uint64) {
	if s := b.detachLocked(name, id); s != nil {
		s.close()
	}
}

// detachLocked drops the subscription from the table but leaves its queue
// running so a signal already handed to it is still delivered.
func (b *Bus) detachLocked(name string, id uint64) *subscription {
	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			return s
		}
	}
	return nil
}

func (b *Bus) withLogging(name string, h Handler) Handler {
	return func(ctx context.Context, sig Signal) error {
		start := time.Now()
		b.logger.Debug("handling signal", "signal", name, "cmid", sig.CMID, "gearid", sig.GearID)

		err := h(ctx, sig)

		if err != nil {
			b.logger.Error("signal failed", "signal", name, "duration", time.Since(start), "error", err)
		} else {
			b.logger.Debug("signal complete", "signal", name, "duration", time.Since(start))
		}
		return err
	}
}
