package headless

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gearxr/gear/internal/engine"
)

// XR is an XR runtime that supports a fixed set of modes and features.
type XR struct {
	mu        sync.Mutex
	modes     map[engine.SessionMode]bool
	features  []string
	requested []engine.SessionMode
}

// NewXR creates a runtime supporting the given modes. Every feature is
// available unless restricted with WithFeatures.
func NewXR(modes ...engine.SessionMode) *XR {
	x := &XR{modes: make(map[engine.SessionMode]bool)}
	for _, m := range modes {
		x.modes[m] = true
	}
	return x
}

// WithFeatures restricts the features the runtime can grant.
func (x *XR) WithFeatures(features ...string) *XR {
	x.features = features
	return x
}

// IsSessionSupported implements engine.XR.
func (x *XR) IsSessionSupported(_ context.Context, mode engine.SessionMode) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.modes[mode], nil
}

// RequestSession implements engine.XR.
func (x *XR) RequestSession(_ context.Context, mode engine.SessionMode, opts engine.SessionOptions) (engine.XRSession, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.modes[mode] {
		return nil, fmt.Errorf("session mode %s not supported", mode)
	}
	if x.features != nil {
		for _, f := range opts.RequiredFeatures {
			if !slices.Contains(x.features, f) {
				return nil, fmt.Errorf("required feature %s not available", f)
			}
		}
	}
	x.requested = append(x.requested, mode)
	return &session{mode: mode}, nil
}

// Requested lists the modes of every granted session.
func (x *XR) Requested() []engine.SessionMode {
	x.mu.Lock()
	defer x.mu.Unlock()
	return slices.Clone(x.requested)
}

type session struct {
	mode  engine.SessionMode
	ended bool
}

func (s *session) Mode() engine.SessionMode { return s.mode }

func (s *session) End() error {
	s.ended = true
	return nil
}
