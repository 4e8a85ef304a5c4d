// Package viewer runs one interactive 3D scene: it builds the scene graph,
// loads models, places hotspot markers and drives the popup, authoring form,
// quiz and leaderboard flows against a remote gateway.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gearxr/gear/internal/engine"
	"github.com/gearxr/gear/internal/gateway"
	"github.com/gearxr/gear/internal/parser"
	"github.com/gearxr/gear/internal/scene"
	"github.com/gearxr/gear/internal/signal"
	"github.com/gearxr/gear/pkg/core"
)

var (
	// ErrEngineUnavailable is returned by Init when the engine never resolves.
	ErrEngineUnavailable = errors.New("rendering engine not loaded")
	// ErrNotInitialized is returned by operations that need a built scene.
	ErrNotInitialized = errors.New("viewer not initialized")
	// ErrAlreadyInitialized is returned by a second Init call.
	ErrAlreadyInitialized = errors.New("viewer already initialized")
	// ErrClosed is returned once the session has been torn down.
	ErrClosed = errors.New("viewer closed")
)

// Defaults of the session.
const (
	DefaultEngineRetryDelay = 500 * time.Millisecond
	DefaultLeaderboardLimit = 10
	AutoRotateStep          = 0.005
)

// Emitter publishes the viewer's custom signals.
type Emitter interface {
	Emit(ctx context.Context, sig signal.Signal)
}

// Deps are the collaborators of a session.
type Deps struct {
	Engine   engine.Provider
	Gateway  gateway.Gateway
	UI       UI
	Notifier Notifier
	Signals  Emitter
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithEngineRetryDelay sets how long Init waits before its second attempt
// to resolve the engine.
func WithEngineRetryDelay(d time.Duration) Option {
	return func(s *Session) { s.retryDelay = d }
}

// WithLeaderboardLimit sets how many leaderboard rows are requested.
func WithLeaderboardLimit(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.leaderboardLimit = n
		}
	}
}

// Session is one viewer instance bound to a course module.
//
// All scene state is guarded by mu. alive is the liveness guard every
// asynchronous continuation checks before touching the scene.
type Session struct {
	id    uuid.UUID
	boot  core.Bootstrap
	deps  Deps
	alive atomic.Bool

	logger           *slog.Logger
	parser           *parser.Parser
	retryDelay       time.Duration
	leaderboardLimit int

	mu          sync.Mutex
	initialized bool
	eng         *engine.Engine
	scene       *scene.Scene
	camera      *scene.PerspectiveCamera
	controls    *scene.OrbitControls
	raycaster   *scene.Raycaster
	model       *scene.Object
	placeholder *scene.Object

	hotspots map[int64]*core.Hotspot
	markers  []*scene.Object

	popup       popupContext
	form        formContext
	leaderboard LeaderboardView
	controlsUI  ControlsView
	fullscreen  bool
	autoRotate  bool
	loaded      bool

	loadDone   chan struct{}
	cancelLoad context.CancelFunc
	bg         sync.WaitGroup
}

// New creates a session for a bootstrap bundle. Nothing is built until Init.
func New(boot core.Bootstrap, deps Deps, opts ...Option) *Session {
	s := &Session{
		id:               uuid.New(),
		boot:             boot,
		deps:             deps,
		logger:           slog.Default(),
		retryDelay:       DefaultEngineRetryDelay,
		leaderboardLimit: DefaultLeaderboardLimit,
		hotspots:         make(map[int64]*core.Hotspot),
		loadDone:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("cmid", boot.CMID, "gearid", boot.GearID, "session", s.id.String())
	s.parser = parser.NewParser(s.logger)
	s.popup = popupContext{state: PopupClosed}
	s.form = formContext{state: FormHidden}
	return s
}

// ID identifies this viewer instance in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// CMID returns the course module id.
func (s *Session) CMID() int64 { return s.boot.CMID }

// GearID returns the activity id.
func (s *Session) GearID() int64 { return s.boot.GearID }

// Alive reports whether the session is initialized and not closed.
func (s *Session) Alive() bool { return s.alive.Load() }

// Init builds the scene and starts the render loop. On failure the error is
// reported through the notifier and nothing is left running.
func (s *Session) Init(ctx context.Context) error {
	err := s.init(ctx)
	if err != nil {
		s.logger.Error("Viewer initialization failed", "error", err)
		if s.deps.Notifier != nil {
			s.deps.Notifier.Exception(err)
		}
	}
	return err
}

func (s *Session) init(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.initialized = true
	s.mu.Unlock()

	if s.deps.Gateway == nil || s.deps.UI == nil || s.deps.Notifier == nil {
		return fmt.Errorf("viewer: gateway, ui and notifier are required")
	}

	eng, err := s.resolveEngine(ctx)
	if err != nil {
		return err
	}
	if eng.Renderer == nil || eng.Loader == nil {
		return fmt.Errorf("viewer: engine has no renderer or loader")
	}

	s.mu.Lock()
	s.eng = eng
	s.setupScene()
	s.setupControls()
	s.raycaster = scene.NewRaycaster()
	s.mu.Unlock()

	s.setupButtons(ctx)

	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	s.cancelLoad = cancel
	s.alive.Store(true)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.loadModels(loadCtx)
	}()
	if s.boot.Config.Hotspots.Enabled {
		s.loadHotspotsLocked()
	}
	s.mu.Unlock()

	eng.Renderer.SetAnimationLoop(s.frame)

	if s.deps.Signals != nil {
		s.deps.Signals.Emit(ctx, signal.Signal{Name: signal.SceneLoaded, CMID: s.boot.CMID, GearID: s.boot.GearID})
	}
	s.logger.Info("Scene ready", "models", len(s.boot.Models), "hotspots", len(s.boot.Hotspots))
	return nil
}

// resolveEngine tries the provider, waits once, and tries again.
func (s *Session) resolveEngine(ctx context.Context) (*engine.Engine, error) {
	if s.deps.Engine == nil {
		return nil, ErrEngineUnavailable
	}
	if eng, ok := s.deps.Engine(); ok {
		return eng, nil
	}

	timer := time.NewTimer(s.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for engine: %w", ctx.Err())
	case <-timer.C:
	}

	if eng, ok := s.deps.Engine(); ok {
		return eng, nil
	}
	return nil, ErrEngineUnavailable
}

func (s *Session) setupScene() {
	cfg := s.boot.Config
	s.scene = scene.New(cfg.Background)

	w, h := s.eng.Renderer.Size()
	aspect := 1.0
	if w > 0 && h > 0 {
		aspect = w / h
	}
	s.camera = scene.NewPerspectiveCamera(scene.DefaultFOV, aspect, scene.DefaultNear, scene.DefaultFar)
	s.camera.Position = cfg.CameraPosition

	for _, l := range core.LightRig(cfg.Lighting) {
		s.scene.Add(scene.NewLightObject(l))
	}
}

func (s *Session) setupControls() {
	s.controls = scene.NewOrbitControls(s.camera)
	s.controls.Update()
}

// frame is the render loop body.
func (s *Session) frame(time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive.Load() {
		return
	}
	if s.autoRotate && s.model != nil {
		s.model.Rotation.Y += AutoRotateStep
	}
	s.controls.Update()
	s.eng.Renderer.Render(s.scene, s.camera)
}

// Close stops the render loop and invalidates every in-flight continuation.
// It is safe to call more than once.
func (s *Session) Close() {
	// background work is only added under mu while alive, so once alive is
	// cleared here bg.Wait cannot race a new Add
	s.mu.Lock()
	if !s.alive.CompareAndSwap(true, false) {
		s.mu.Unlock()
		return
	}
	cancelLoad := s.cancelLoad
	s.mu.Unlock()

	if cancelLoad != nil {
		cancelLoad()
	}

	// the frame callback takes mu, so the loop is stopped without holding it
	s.eng.Renderer.SetAnimationLoop(nil)

	s.mu.Lock()
	s.stopAudioLocked()
	s.mu.Unlock()

	s.bg.Wait()
	s.logger.Info("Viewer closed")
}

// WithScene runs fn against the live scene and camera. It reports false,
// without calling fn, once the session is closed or before it is built.
func (s *Session) WithScene(fn func(*scene.Scene, *scene.PerspectiveCamera)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive.Load() || s.scene == nil || s.camera == nil {
		return false
	}
	fn(s.scene, s.camera)
	return true
}

// Pose returns the camera's current pose.
func (s *Session) Pose() (core.Pose, bool) {
	var pose core.Pose
	ok := s.WithScene(func(_ *scene.Scene, cam *scene.PerspectiveCamera) {
		pose = cam.Pose()
	})
	return pose, ok
}

// track records an analytics event without waiting for the reply. It does
// nothing once the session is closed.
func (s *Session) track(action string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive.Load() {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.deps.Gateway.TrackEvent(ctx, s.boot.GearID, action, data); err != nil {
			s.logger.Debug("Event tracking failed", "action", action, "error", err)
		}
	}()
}
