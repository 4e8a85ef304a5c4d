package viewer

import (
	"context"
	"fmt"

	"github.com/gearxr/gear/internal/engine"
	"github.com/gearxr/gear/internal/signal"
)

// Reasons shown on disabled immersive buttons.
const (
	ReasonARNotSupported = "arnotsupported"
	ReasonXRNotSupported = "webxrnotsupported"
)

// setupButtons decides the initial control bar. AR and VR buttons exist only
// when the activity enables them and are disabled when the device cannot
// start that kind of session.
func (s *Session) setupButtons(ctx context.Context) {
	v := ControlsView{
		Fullscreen:  ButtonView{Visible: true, Enabled: true},
		AutoRotate:  ButtonView{Visible: true, Enabled: true},
		Leaderboard: ButtonView{Visible: true, Enabled: true},
	}
	if s.boot.AREnabled {
		v.AR = s.xrButton(ctx, engine.ImmersiveAR, ReasonARNotSupported)
	}
	if s.boot.VREnabled {
		v.VR = s.xrButton(ctx, engine.ImmersiveVR, ReasonXRNotSupported)
	}

	s.mu.Lock()
	s.controlsUI = v
	s.mu.Unlock()
	s.deps.UI.SetControls(v)
}

func (s *Session) xrButton(ctx context.Context, mode engine.SessionMode, reason string) ButtonView {
	b := ButtonView{Visible: true}
	xr := s.eng.XR
	if xr == nil {
		b.Reason = ReasonXRNotSupported
		return b
	}
	ok, err := xr.IsSessionSupported(ctx, mode)
	if err != nil {
		s.logger.Debug("XR support query failed", "mode", mode, "error", err)
	}
	if !ok {
		b.Reason = reason
		return b
	}
	b.Enabled = true
	return b
}

// Controls returns the current control bar render.
func (s *Session) Controls() ControlsView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlsUI
}

func (s *Session) publishControlsLocked() ControlsView {
	s.controlsUI.Fullscreen.Active = s.fullscreen
	s.controlsUI.AutoRotate.Active = s.autoRotate
	return s.controlsUI
}

// ToggleFullscreen flips the fullscreen state of the viewer container.
func (s *Session) ToggleFullscreen() bool {
	s.mu.Lock()
	s.fullscreen = !s.fullscreen
	on := s.fullscreen
	v := s.publishControlsLocked()
	s.mu.Unlock()
	s.deps.UI.SetControls(v)
	return on
}

// ToggleAutoRotate flips model autorotation.
func (s *Session) ToggleAutoRotate() bool {
	s.mu.Lock()
	s.autoRotate = !s.autoRotate
	on := s.autoRotate
	v := s.publishControlsLocked()
	s.mu.Unlock()
	s.deps.UI.SetControls(v)
	return on
}

// Resize matches the camera and renderer to a new container size.
func (s *Session) Resize(width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid size %vx%v", width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive.Load() {
		return ErrClosed
	}
	s.camera.SetSize(width, height)
	s.eng.Renderer.SetSize(width, height)
	return nil
}

// StartAR requests an immersive AR session and hands it to the renderer.
func (s *Session) StartAR(ctx context.Context) error {
	return s.startXR(ctx, engine.ImmersiveAR, engine.ARSessionOptions(), signal.ARStarted, "ar_start")
}

// StartVR requests an immersive VR session and hands it to the renderer.
func (s *Session) StartVR(ctx context.Context) error {
	return s.startXR(ctx, engine.ImmersiveVR, engine.VRSessionOptions(), signal.VRStarted, "vr_start")
}

func (s *Session) startXR(ctx context.Context, mode engine.SessionMode, opts engine.SessionOptions, name, action string) error {
	s.mu.Lock()
	if !s.alive.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	xr := s.eng.XR
	s.mu.Unlock()

	if xr == nil {
		err := fmt.Errorf("%s: %w", mode, engine.ErrXRUnavailable)
		s.deps.Notifier.Exception(err)
		return err
	}

	sess, err := xr.RequestSession(ctx, mode, opts)
	if err != nil {
		err = fmt.Errorf("starting %s session: %w", mode, err)
		s.logger.Error("XR session failed", "mode", mode, "error", err)
		s.deps.Notifier.Exception(err)
		return err
	}

	s.mu.Lock()
	if !s.alive.Load() {
		s.mu.Unlock()
		_ = sess.End()
		return ErrClosed
	}
	s.eng.Renderer.SetXRSession(sess)
	s.mu.Unlock()

	if s.deps.Signals != nil {
		s.deps.Signals.Emit(ctx, signal.Signal{Name: name, CMID: s.boot.CMID, GearID: s.boot.GearID})
	}
	s.track(action, nil)
	return nil
}
