package viewer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gearxr/gear/internal/engine"
	"github.com/gearxr/gear/pkg/core"
)

// ErrNoPopup is returned by popup actions when no matching popup is open.
var ErrNoPopup = errors.New("no matching popup open")

// popupContext is the popup's state. hotspot is a snapshot taken at open
// time; every render is derived from it.
type popupContext struct {
	state    PopupState
	hotspot  core.Hotspot
	gen      uint64
	selected int

	submitted bool
	pending   bool
	result    *core.QuizResult
	playback  engine.Playback
}

// staleLocked reports why a reply for popup generation gen must be dropped.
func (s *Session) staleLocked(gen uint64) error {
	switch {
	case !s.alive.Load():
		return ErrClosed
	case s.popup.gen != gen:
		return ErrNoPopup
	}
	return nil
}

func (s *Session) canEditLocked() bool {
	return s.boot.CanManage && s.boot.Config.Hotspots.Edit
}

func (s *Session) openPopupLocked(h *core.Hotspot) PopupView {
	s.stopAudioLocked()
	s.popup = popupContext{
		state:    popupStateFor(h.Type),
		hotspot:  h.Clone(),
		gen:      s.popup.gen + 1,
		selected: -1,
	}
	return s.popupViewLocked()
}

func (s *Session) closePopupLocked() {
	s.stopAudioLocked()
	s.popup = popupContext{state: PopupClosed, gen: s.popup.gen + 1, selected: -1}
}

func (s *Session) stopAudioLocked() {
	if s.popup.playback != nil {
		s.popup.playback.Stop()
		s.popup.playback = nil
	}
}

func (s *Session) popupViewLocked() PopupView {
	p := s.popup
	if p.state == PopupClosed {
		return PopupView{State: PopupClosed}
	}

	h := p.hotspot
	v := PopupView{
		State:     p.state,
		HotspotID: h.ID,
		Type:      h.Type,
		Title:     h.Title,
		Content:   h.Content,
		Position:  h.Position.Round(core.PositionPrecision),
		URL:       h.Config.URL,
		AudioURL:  h.Config.AudioURL,
		Playing:   p.playback != nil,
		CanEdit:   s.canEditLocked(),
	}
	if v.Title == "" {
		v.Title = "Info"
	}
	if p.state == PopupOpenQuiz {
		q := &QuizView{
			Options:       append([]string(nil), h.Config.Options...),
			Selected:      p.selected,
			SubmitEnabled: !p.submitted && !p.pending,
			Pending:       p.pending,
		}
		if p.result != nil {
			r := *p.result
			q.Result = &r
		}
		v.Quiz = q
	}
	return v
}

// Popup returns the current popup render.
func (s *Session) Popup() PopupView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popupViewLocked()
}

// ClosePopup closes the popup.
func (s *Session) ClosePopup() {
	s.mu.Lock()
	s.closePopupLocked()
	v := s.popupViewLocked()
	s.mu.Unlock()
	s.deps.UI.ShowPopup(v)
}

// SelectQuizOption marks an answer in the open quiz popup.
func (s *Session) SelectQuizOption(index int) error {
	s.mu.Lock()
	p := &s.popup
	if p.state != PopupOpenQuiz || p.submitted {
		s.mu.Unlock()
		return ErrNoPopup
	}
	if index < 0 || index >= len(p.hotspot.Config.Options) {
		s.mu.Unlock()
		return fmt.Errorf("quiz option %d out of range", index)
	}
	p.selected = index
	v := s.popupViewLocked()
	s.mu.Unlock()

	s.deps.UI.ShowPopup(v)
	return nil
}

// SubmitQuiz sends the selected answer for scoring and shows the result in
// the same popup. The submit control stays disabled for the rest of this
// popup's life.
func (s *Session) SubmitQuiz(ctx context.Context) error {
	s.mu.Lock()
	p := &s.popup
	if p.state != PopupOpenQuiz || p.submitted || p.pending {
		s.mu.Unlock()
		return ErrNoPopup
	}
	if p.selected < 0 {
		s.mu.Unlock()
		s.deps.Notifier.Alert("Error", "Please select an answer")
		return &ValidationError{Field: "answer", Message: "Please select an answer"}
	}
	p.pending = true
	gen, hotspotID, answer := p.gen, p.hotspot.ID, p.selected
	v := s.popupViewLocked()
	s.mu.Unlock()
	s.deps.UI.ShowPopup(v)

	res, err := s.deps.Gateway.SubmitQuiz(ctx, s.boot.GearID, hotspotID, answer)

	s.mu.Lock()
	if err := s.staleLocked(gen); err != nil {
		s.mu.Unlock()
		return err
	}
	s.popup.pending = false
	if err == nil {
		s.popup.submitted = true
		s.popup.result = &res
	}
	v = s.popupViewLocked()
	s.mu.Unlock()

	s.deps.UI.ShowPopup(v)
	if err != nil {
		s.deps.Notifier.Error("Could not submit answer", err)
		return fmt.Errorf("submitting quiz answer: %w", err)
	}
	return nil
}

// EditFromPopup turns the open popup into the edit form for its hotspot.
func (s *Session) EditFromPopup() error {
	s.mu.Lock()
	if s.popup.state == PopupClosed || !s.canEditLocked() {
		s.mu.Unlock()
		return ErrNoPopup
	}
	h, ok := s.hotspots[s.popup.hotspot.ID]
	if !ok {
		snapshot := s.popup.hotspot
		h = &snapshot
	}
	form := s.openFormLocked(FormEdit, h.Position, h)
	s.closePopupLocked()
	popup := s.popupViewLocked()
	s.mu.Unlock()

	s.deps.UI.ShowPopup(popup)
	s.deps.UI.ShowForm(form)
	return nil
}

// DeleteFromPopup deletes the open popup's hotspot on the host and, once
// the host confirms, removes its marker.
func (s *Session) DeleteFromPopup(ctx context.Context) error {
	s.mu.Lock()
	if s.popup.state == PopupClosed || !s.canEditLocked() {
		s.mu.Unlock()
		return ErrNoPopup
	}
	id := s.popup.hotspot.ID
	s.mu.Unlock()

	err := s.deps.Gateway.DeleteHotspot(ctx, id)
	if err != nil {
		s.deps.Notifier.Error("Could not delete hotspot", err)
		return fmt.Errorf("deleting hotspot %d: %w", id, err)
	}

	s.mu.Lock()
	if !s.alive.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	s.removeHotspotLocked(id)
	closed := false
	if s.popup.state != PopupClosed && s.popup.hotspot.ID == id {
		s.closePopupLocked()
		closed = true
	}
	v := s.popupViewLocked()
	s.mu.Unlock()

	if closed {
		s.deps.UI.ShowPopup(v)
	}
	s.deps.Notifier.Success("Hotspot deleted")
	return nil
}

// PlayAudio plays the open audio hotspot's clip at the hotspot position.
func (s *Session) PlayAudio(ctx context.Context) error {
	s.mu.Lock()
	if s.popup.state != PopupOpenAudio {
		s.mu.Unlock()
		return ErrNoPopup
	}
	if s.eng.Audio == nil || s.popup.hotspot.Config.AudioURL == "" {
		s.mu.Unlock()
		err := errors.New("audio not available")
		s.deps.Notifier.Error("Could not play audio", err)
		return err
	}
	s.stopAudioLocked()
	gen := s.popup.gen
	url, at := s.popup.hotspot.Config.AudioURL, s.popup.hotspot.Position
	audio := s.eng.Audio
	s.mu.Unlock()

	pb, err := audio.PlayAt(ctx, url, at)
	if err != nil {
		s.deps.Notifier.Error("Could not play audio", err)
		return fmt.Errorf("playing %s: %w", url, err)
	}

	s.mu.Lock()
	if err := s.staleLocked(gen); err != nil {
		s.mu.Unlock()
		pb.Stop()
		return err
	}
	s.popup.playback = pb
	v := s.popupViewLocked()
	s.mu.Unlock()

	s.deps.UI.ShowPopup(v)
	return nil
}

// StopAudio stops the open popup's clip.
func (s *Session) StopAudio() {
	s.mu.Lock()
	s.stopAudioLocked()
	v := s.popupViewLocked()
	s.mu.Unlock()
	s.deps.UI.ShowPopup(v)
}
