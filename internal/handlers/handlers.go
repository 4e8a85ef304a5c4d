// Package handlers implements the host side of the remote procedure methods.
// Every handler reads the authenticated caller from the context and applies
// the capability checks of its method.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gearxr/gear/internal/dispatcher"
	"github.com/gearxr/gear/internal/parser"
	"github.com/gearxr/gear/internal/storage"
	"github.com/gearxr/gear/pkg/rpc"
)

// DefaultFreshness is how recently a participant must have synced to be
// reported to others.
const DefaultFreshness = 10 * time.Second

// DefaultLeaderboardLimit applies when a request asks for no limit.
const DefaultLeaderboardLimit = 10

var (
	// ErrRequireLogin is returned for calls without an authenticated caller.
	ErrRequireLogin = errors.New("login required")
	// ErrForbidden is returned when the caller lacks the method's capability.
	ErrForbidden = errors.New("capability missing")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = storage.ErrNotFound
	// ErrInvalidParam is returned for arguments that fail validation.
	ErrInvalidParam = errors.New("invalid parameter")
)

// Generator produces AI-assisted hotspot content.
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, prompt, kind string) (string, error)
}

// Tracker accepts analytics rows. Enqueue persists asynchronously; Mirror
// only forwards to the analytics sink for rows already persisted.
type Tracker interface {
	Enqueue(rec storage.TrackingRecord)
	Mirror(rec storage.TrackingRecord)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Store     storage.Store
	Presence  storage.PresenceStore
	Generator Generator
	Tracker   Tracker
	Logger    *slog.Logger
	// Freshness defaults to DefaultFreshness.
	Freshness time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service provides the method handlers.
type Service struct {
	deps   Dependencies
	logger *slog.Logger
	parser *parser.Parser
}

// NewService creates a handler service.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Freshness <= 0 {
		deps.Freshness = DefaultFreshness
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		deps:   deps,
		logger: deps.Logger,
		parser: parser.NewParser(deps.Logger),
	}
}

// Register adds every method to the dispatcher. All methods require a
// logged-in caller.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	login := dispatcher.Guarded(RequireLogin)

	d.Register(rpc.MethodGetHotspots, dispatcher.Typed(s.GetHotspots), login, dispatcher.Logged())
	d.Register(rpc.MethodSaveHotspot, dispatcher.Typed(s.SaveHotspot), login, dispatcher.Logged())
	d.Register(rpc.MethodDeleteHotspot, dispatcher.Typed(s.DeleteHotspot), login, dispatcher.Logged())
	d.Register(rpc.MethodSubmitQuiz, dispatcher.Typed(s.SubmitQuiz), login, dispatcher.Logged())
	d.Register(rpc.MethodGetLeaderboard, dispatcher.Typed(s.GetLeaderboard), login, dispatcher.Logged())
	d.Register(rpc.MethodGenerateContent, dispatcher.Typed(s.GenerateContent), login, dispatcher.Logged())
	d.Register(rpc.MethodSyncSession, dispatcher.Typed(s.SyncSession), login)
	d.Register(rpc.MethodTrackEvent, dispatcher.Typed(s.TrackEvent), login)
}

type callerKey struct{}

// WithCaller attaches the authenticated user to ctx.
func WithCaller(ctx context.Context, u storage.User) context.Context {
	return context.WithValue(ctx, callerKey{}, u)
}

// CallerFrom returns the authenticated user, if any.
func CallerFrom(ctx context.Context) (storage.User, bool) {
	u, ok := ctx.Value(callerKey{}).(storage.User)
	return u, ok && u.ID != 0
}

// RequireLogin rejects contexts without a caller.
func RequireLogin(ctx context.Context) error {
	if _, ok := CallerFrom(ctx); !ok {
		return ErrRequireLogin
	}
	return nil
}

// requireManage returns the caller when it holds the manage capability.
func requireManage(ctx context.Context) (storage.User, error) {
	u, ok := CallerFrom(ctx)
	if !ok {
		return u, ErrRequireLogin
	}
	if !u.CanManage {
		return u, ErrForbidden
	}
	return u, nil
}
