// Package headless provides engine collaborators that run without a display:
// a ticker-driven renderer, a scripted XR runtime and an audio recorder.
package headless

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gearxr/gear/internal/engine"
	"github.com/gearxr/gear/internal/scene"
)

// Renderer counts frames instead of drawing them. With a zero interval the
// loop only advances through Step.
type Renderer struct {
	interval time.Duration

	mu      sync.Mutex
	width   float64
	height  float64
	loop    engine.FrameFunc
	stop    chan struct{}
	done    chan struct{}
	session engine.XRSession

	frames   atomic.Int64
	lastSeen atomic.Int64
	disposed atomic.Bool
}

// NewRenderer creates a renderer for a surface of the given size.
func NewRenderer(interval time.Duration, width, height float64) *Renderer {
	return &Renderer{interval: interval, width: width, height: height}
}

// SetAnimationLoop implements engine.Renderer.
func (r *Renderer) SetAnimationLoop(fn engine.FrameFunc) {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.loop = fn
	r.stop, r.done = nil, nil
	if fn != nil && r.interval > 0 && !r.disposed.Load() {
		r.stop = make(chan struct{})
		r.done = make(chan struct{})
		go r.run(fn, r.stop, r.done)
	}
	r.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (r *Renderer) run(fn engine.FrameFunc, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			fn(now.Sub(last))
			last = now
		}
	}
}

// Step runs one frame of the current loop on the caller's goroutine.
func (r *Renderer) Step(dt time.Duration) bool {
	r.mu.Lock()
	fn := r.loop
	r.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(dt)
	return true
}

// Looping reports whether an animation loop is installed.
func (r *Renderer) Looping() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loop != nil
}

// Render implements engine.Renderer.
func (r *Renderer) Render(s *scene.Scene, _ *scene.PerspectiveCamera) {
	n := 0
	s.Root().Traverse(func(*scene.Object) { n++ })
	r.lastSeen.Store(int64(n))
	r.frames.Add(1)
}

// Frames is the number of Render calls so far.
func (r *Renderer) Frames() int64 { return r.frames.Load() }

// LastObjectCount is the node count of the last rendered scene.
func (r *Renderer) LastObjectCount() int64 { return r.lastSeen.Load() }

// SetSize implements engine.Renderer.
func (r *Renderer) SetSize(width, height float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
}

// Size implements engine.Renderer.
func (r *Renderer) Size() (float64, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// SetXRSession implements engine.Renderer.
func (r *Renderer) SetXRSession(s engine.XRSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = s
}

// XRSession returns the attached session, if any.
func (r *Renderer) XRSession() engine.XRSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Dispose stops the loop.
func (r *Renderer) Dispose() {
	r.disposed.Store(true)
	r.SetAnimationLoop(nil)
}
