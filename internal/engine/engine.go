// Package engine defines the graphics collaborator the viewer drives: a
// renderer with an animation loop, a model loader, positional audio and an
// immersive XR session API.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/gearxr/gear/internal/scene"
	"github.com/gearxr/gear/pkg/core"
)

// ErrXRUnavailable is returned when the platform has no XR runtime at all.
var ErrXRUnavailable = errors.New("xr not available")

// FrameFunc is called once per display refresh.
type FrameFunc func(dt time.Duration)

// Renderer draws a scene and owns the animation loop.
type Renderer interface {
	// SetAnimationLoop replaces the frame callback; nil stops the loop.
	SetAnimationLoop(fn FrameFunc)
	Render(s *scene.Scene, cam *scene.PerspectiveCamera)
	SetSize(width, height float64)
	Size() (width, height float64)
	// SetXRSession routes rendering into an immersive session.
	SetXRSession(s XRSession)
	Dispose()
}

// Loader turns a model URL into a scene graph.
type Loader interface {
	Load(ctx context.Context, url string) (*scene.Object, error)
}

// Playback is a running audio clip.
type Playback interface {
	Stop()
}

// Audio plays clips anchored at a world position.
type Audio interface {
	PlayAt(ctx context.Context, url string, at core.Vec3) (Playback, error)
}

// SessionMode is an immersive session kind.
type SessionMode string

const (
	ImmersiveAR SessionMode = "immersive-ar"
	ImmersiveVR SessionMode = "immersive-vr"
)

// SessionOptions lists the XR features a session needs or would like.
type SessionOptions struct {
	RequiredFeatures []string
	OptionalFeatures []string
}

// ARSessionOptions are the features requested for augmented reality.
func ARSessionOptions() SessionOptions {
	return SessionOptions{RequiredFeatures: []string{"hit-test", "local-floor"}}
}

// VRSessionOptions are the features requested for virtual reality.
func VRSessionOptions() SessionOptions {
	return SessionOptions{OptionalFeatures: []string{"local-floor", "bounded-floor"}}
}

// XRSession is an active immersive session.
type XRSession interface {
	Mode() SessionMode
	End() error
}

// XR answers support queries and starts sessions.
type XR interface {
	IsSessionSupported(ctx context.Context, mode SessionMode) (bool, error)
	RequestSession(ctx context.Context, mode SessionMode, opts SessionOptions) (XRSession, error)
}

// Engine bundles the collaborators. XR and Audio may be nil when the
// platform lacks them.
type Engine struct {
	Renderer Renderer
	Loader   Loader
	Audio    Audio
	XR       XR
}

// Provider resolves the engine, reporting false while it is not available.
type Provider func() (*Engine, bool)

// Static returns a provider that always resolves to e.
func Static(e *Engine) Provider {
	return func() (*Engine, bool) { return e, e != nil }
}
