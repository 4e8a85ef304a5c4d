// Package dispatcher routes named remote calls to registered handlers.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrUnknownMethod is returned for a call no handler is registered for.
var ErrUnknownMethod = errors.New("unknown method")

// ArgsError wraps a failure to decode call arguments.
type ArgsError struct {
	Method string
	Err    error
}

func (e *ArgsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Method, e.Err)
}

func (e *ArgsError) Unwrap() error { return e.Err }

// Call is one incoming method invocation.
type Call struct {
	Method    string
	Args      json.RawMessage
	Timestamp time.Time
}

// HandlerFunc processes a call and returns its result.
type HandlerFunc func(ctx context.Context, c Call) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	logged  bool
	guard   func(ctx context.Context) error
	timeout time.Duration
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(o *options) {
		o.logged = true
	}
}

// Guarded runs check before the handler; a non-nil error rejects the call.
func Guarded(check func(ctx context.Context) error) Option {
	return func(o *options) {
		o.guard = check
	}
}

// Timeout bounds the handler's context.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Typed adapts a handler taking decoded arguments. Empty arguments decode
// to the zero value of A.
func Typed[A any](fn func(ctx context.Context, args A) (any, error)) HandlerFunc {
	return func(ctx context.Context, c Call) (any, error) {
		var args A
		if len(c.Args) > 0 && string(c.Args) != "null" {
			if err := json.Unmarshal(c.Args, &args); err != nil {
				return nil, &ArgsError{Method: c.Method, Err: err}
			}
		}
		return fn(ctx, args)
	}
}

// Dispatcher routes calls to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   Logger

	inflight      atomic.Int64
	inflightGauge metric.Int64ObservableGauge
	processed     metric.Int64Counter
	failed        metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}

	m := meter()

	var err error

	d.inflightGauge, err = m.Int64ObservableGauge(
		"dispatcher.calls.inflight",
		metric.WithDescription("Calls currently being handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating inflight gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.inflightGauge, d.inflight.Load())
			return nil
		},
		d.inflightGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering inflight callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.calls.processed",
		metric.WithDescription("Total calls handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.calls.failed",
		metric.WithDescription("Total calls that returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given method with optional configuration.
// Options wrap in order: guard, timeout, then logging outermost.
func (d *Dispatcher) Register(method string, h HandlerFunc, opts ...Option) {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.guard != nil {
		handler = withGuard(cfg.guard, handler)
	}

	if cfg.timeout > 0 {
		handler = withTimeout(cfg.timeout, handler)
	}

	if cfg.logged {
		handler = d.withLogging(method, handler)
	}

	d.mu.Lock()
	d.handlers[method] = handler
	d.mu.Unlock()
}

// Dispatch routes a call to its registered handler.
func (d *Dispatcher) Dispatch(ctx context.Context, c Call) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[c.Method]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, c.Method)
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}

	d.inflight.Add(1)
	defer d.inflight.Add(-1)

	result, err := h(ctx, c)

	attrs := metric.WithAttributes(attribute.String("method", c.Method))
	d.processed.Add(ctx, 1, attrs)
	if err != nil {
		d.failed.Add(ctx, 1, attrs)
	}
	return result, err
}

// HasHandler returns true if a handler is registered for the method.
func (d *Dispatcher) HasHandler(method string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[method]
	return ok
}

// Methods returns the registered method names, sorted.
func (d *Dispatcher) Methods() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for m := range d.handlers {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func withGuard(check func(ctx context.Context) error, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, c Call) (any, error) {
		if err := check(ctx); err != nil {
			return nil, err
		}
		return h(ctx, c)
	}
}

func withTimeout(d time.Duration, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, c Call) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return h(ctx, c)
	}
}

func (d *Dispatcher) withLogging(method string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, c Call) (any, error) {
		start := time.Now()
		d.logger.Debug("handling call", "method", method, "args", len(c.Args))

		result, err := h(ctx, c)

		if err != nil {
			d.logger.Error("call failed", "method", method, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("call complete", "method", method, "duration", time.Since(start))
		}

		return result, err
	}
}
