package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gearxr/gear/internal/parser"
	"github.com/gearxr/gear/pkg/core"
)

// ErrFormHidden is returned by form actions while the form is hidden.
var ErrFormHidden = errors.New("hotspot form is not open")

// ValidationError is a local input problem. It never reaches the host.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation messages.
const (
	MsgTitleRequired  = "Please enter a title"
	MsgQuizOptions    = "Quiz hotspots need at least two comma-separated options"
	MsgCorrectAnswer  = "The correct answer must be one of the options"
	MsgPromptRequired = "Please enter a prompt"
	MsgQuizParse      = "Could not parse the generated quiz"
	MsgOptionComma    = "Quiz options cannot contain commas"
)

// formContext is the authoring form's state. gen changes on every open so
// replies for an earlier open are dropped.
type formContext struct {
	state     FormState
	gen       uint64
	hotspotID int64
	position  core.Vec3
	input     FormInput
	message   string
	saving    bool
	aiBusy    bool
}

func defaultInput() FormInput {
	return FormInput{Type: core.HotspotInfo, Points: core.DefaultQuizPoints}
}

// optionsFitField reports whether opts survive the comma-separated options
// field unchanged.
func optionsFitField(opts []string) bool {
	for _, o := range opts {
		if strings.Contains(o, ",") {
			return false
		}
	}
	return true
}

func inputFromHotspot(h *core.Hotspot) FormInput {
	in := FormInput{
		Type:     h.Type,
		Title:    h.Title,
		Content:  h.Content,
		Options:  strings.Join(h.Config.Options, ", "),
		Points:   h.Config.QuizPoints(),
		AudioURL: h.Config.AudioURL,
	}
	if !in.Type.Valid() {
		in.Type = core.HotspotInfo
	}
	if h.Config.CorrectAnswer != nil {
		in.CorrectAnswer = *h.Config.CorrectAnswer
	}
	if in.Points <= 0 {
		in.Points = core.DefaultQuizPoints
	}
	return in
}

// openFormLocked resets the form for a create at point, or fills it from h
// for an edit. Positions are kept at the stored precision.
func (s *Session) openFormLocked(state FormState, point core.Vec3, h *core.Hotspot) FormView {
	f := formContext{
		state:    state,
		gen:      s.form.gen + 1,
		position: point.Round(core.PositionPrecision),
		input:    defaultInput(),
	}
	if h != nil {
		f.hotspotID = h.ID
		f.position = h.Position.Round(core.PositionPrecision)
		f.input = inputFromHotspot(h)
		if !optionsFitField(h.Config.Options) {
			f.input.Options = ""
			f.message = MsgOptionComma
		}
	}
	s.form = f
	return s.formViewLocked()
}

func (s *Session) formViewLocked() FormView {
	f := s.form
	if f.state == FormHidden {
		return FormView{State: FormHidden, AILabel: AIButtonLabel}
	}
	v := FormView{
		State:           f.state,
		Heading:         "Add Hotspot",
		HotspotID:       f.hotspotID,
		Position:        f.position,
		Input:           f.input,
		ShowQuizFields:  f.input.Type == core.HotspotQuiz,
		ShowAudioFields: f.input.Type == core.HotspotAudio,
		Message:         f.message,
		Saving:          f.saving,
		AILabel:         AIButtonLabel,
		AIEnable:        !f.aiBusy,
	}
	if f.state == FormEdit {
		v.Heading = "Edit Hotspot"
	}
	if f.aiBusy {
		v.AILabel = AIButtonBusyLabel
	}
	return v
}

// Form returns the current form render.
func (s *Session) Form() FormView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formViewLocked()
}

// OpenCreateForm opens the create form at a point, as an author-mode click on
// the model would.
func (s *Session) OpenCreateForm(point core.Vec3) error {
	s.mu.Lock()
	if !s.boot.CanManage || !s.boot.Config.Hotspots.Enabled {
		s.mu.Unlock()
		return fmt.Errorf("creating hotspots is not allowed")
	}
	v := s.openFormLocked(FormCreate, point, nil)
	s.mu.Unlock()
	s.deps.UI.ShowForm(v)
	return nil
}

// UpdateForm replaces the form's editable fields, as typed by the author.
func (s *Session) UpdateForm(in FormInput) error {
	s.mu.Lock()
	if s.form.state == FormHidden {
		s.mu.Unlock()
		return ErrFormHidden
	}
	if !in.Type.Valid() {
		in.Type = core.HotspotInfo
	}
	s.form.input = in
	s.form.message = ""
	v := s.formViewLocked()
	s.mu.Unlock()
	s.deps.UI.ShowForm(v)
	return nil
}

// CancelForm hides the form.
func (s *Session) CancelForm() {
	s.mu.Lock()
	s.form = formContext{state: FormHidden, gen: s.form.gen + 1}
	v := s.formViewLocked()
	s.mu.Unlock()
	s.deps.UI.ShowForm(v)
}

// Validate checks form input the way SaveForm does.
func Validate(in FormInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Message: MsgTitleRequired}
	}
	if in.Type == core.HotspotQuiz {
		opts := parser.SplitOptions(in.Options)
		if len(opts) < 2 {
			return &ValidationError{Field: "options", Message: MsgQuizOptions}
		}
		if in.CorrectAnswer < 0 || in.CorrectAnswer >= len(opts) {
			return &ValidationError{Field: "correctAnswer", Message: MsgCorrectAnswer}
		}
	}
	return nil
}

func buildRequest(gearID, id int64, pos core.Vec3, in FormInput) core.SaveHotspotRequest {
	req := core.SaveHotspotRequest{
		ID:       id,
		GearID:   gearID,
		Type:     in.Type,
		Title:    strings.TrimSpace(in.Title),
		Content:  strings.TrimSpace(in.Content),
		Position: pos,
		Icon:     string(in.Type),
	}
	switch in.Type {
	case core.HotspotQuiz:
		answer := in.CorrectAnswer
		points := in.Points
		if points <= 0 {
			points = core.DefaultQuizPoints
		}
		req.Config = core.HotspotConfig{
			Options:       parser.SplitOptions(in.Options),
			CorrectAnswer: &answer,
			Points:        &points,
		}
	case core.HotspotAudio:
		req.Config = core.HotspotConfig{AudioURL: strings.TrimSpace(in.AudioURL)}
	}
	return req
}

// SaveForm validates the form and saves it through the gateway. A create
// appends a new marker; an edit updates the matching marker in place.
func (s *Session) SaveForm(ctx context.Context) error {
	s.mu.Lock()
	if s.form.state == FormHidden || s.form.saving {
		s.mu.Unlock()
		return ErrFormHidden
	}
	if err := Validate(s.form.input); err != nil {
		s.form.message = err.Error()
		v := s.formViewLocked()
		s.mu.Unlock()
		s.deps.UI.ShowForm(v)
		s.deps.Notifier.Alert("Error", err.Error())
		return err
	}
	req := buildRequest(s.boot.GearID, s.form.hotspotID, s.form.position, s.form.input)
	gen := s.form.gen
	s.form.saving = true
	s.form.message = ""
	v := s.formViewLocked()
	s.mu.Unlock()
	s.deps.UI.ShowForm(v)

	res, err := s.deps.Gateway.SaveHotspot(ctx, req)

	s.mu.Lock()
	if !s.alive.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	if err == nil && !res.Success {
		err = errors.New("host reported failure")
	}
	current := s.form.gen == gen
	if current {
		s.form.saving = false
	}
	if err != nil {
		v = s.formViewLocked()
		s.mu.Unlock()
		if current {
			s.deps.UI.ShowForm(v)
		}
		s.deps.Notifier.Error("Could not save hotspot", err)
		return fmt.Errorf("saving hotspot: %w", err)
	}

	s.mergeSavedLocked(req, res.ID)
	if current {
		s.form = formContext{state: FormHidden, gen: s.form.gen + 1}
	}
	v = s.formViewLocked()
	s.mu.Unlock()

	if current {
		s.deps.UI.ShowForm(v)
	}
	s.deps.Notifier.Success("Hotspot saved successfully")
	return nil
}

// mergeSavedLocked applies a saved hotspot to the local set without asking
// the host again.
func (s *Session) mergeSavedLocked(req core.SaveHotspotRequest, newID int64) {
	rec := core.Hotspot{
		ID:       newID,
		GearID:   req.GearID,
		ModelID:  req.ModelID,
		Type:     req.Type,
		Title:    req.Title,
		Content:  req.Content,
		Position: req.Position,
		Icon:     req.Icon,
		Config:   req.Config.Clone(),
	}

	if req.ID > 0 {
		if m := s.markerLocked(req.ID); m != nil {
			rec.ID = req.ID
			if old, ok := s.hotspots[req.ID]; ok {
				rec.SortOrder = old.SortOrder
			}
			s.hotspots[req.ID] = &rec
			m.Position = rec.Position
			return
		}
	}
	s.addMarkerLocked(&rec)
}

// GenerateContent asks the host to draft the form's content from a prompt.
// Quiz replies fill the question, options, answer and points; any other type
// uses the reply as the content text. A failure leaves the form untouched.
func (s *Session) GenerateContent(ctx context.Context, prompt string) error {
	s.mu.Lock()
	if s.form.state == FormHidden || s.form.aiBusy {
		s.mu.Unlock()
		return ErrFormHidden
	}
	if strings.TrimSpace(prompt) == "" {
		s.mu.Unlock()
		s.deps.Notifier.Alert("Error", MsgPromptRequired)
		return &ValidationError{Field: "prompt", Message: MsgPromptRequired}
	}
	kind := s.form.input.Type
	gen := s.form.gen
	s.form.aiBusy = true
	v := s.formViewLocked()
	s.mu.Unlock()
	s.deps.UI.ShowForm(v)

	res, err := s.deps.Gateway.GenerateContent(ctx, s.boot.GearID, prompt, kind)
	if err == nil && !res.Success {
		err = errors.New("host reported failure")
	}

	var quiz core.GeneratedQuiz
	var quizErr error
	quizMsg := MsgQuizParse
	if err == nil && kind == core.HotspotQuiz {
		quiz, quizErr = parser.ParseGeneratedQuiz(res.Content)
		if quizErr == nil && !optionsFitField(quiz.Options) {
			quizMsg = MsgOptionComma
			quizErr = &ValidationError{Field: "options", Message: quizMsg}
		}
	}

	s.mu.Lock()
	if !s.alive.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.form.gen != gen {
		s.mu.Unlock()
		return ErrFormHidden
	}
	s.form.aiBusy = false

	switch {
	case err != nil:
	case quizErr != nil:
		s.form.message = quizMsg
	case kind == core.HotspotQuiz:
		in := s.form.input
		in.Title = quiz.Question
		in.Options = strings.Join(quiz.Options, ", ")
		in.CorrectAnswer = quiz.Correct
		if quiz.Points > 0 {
			in.Points = quiz.Points
		}
		s.form.input = in
		s.form.message = ""
	default:
		s.form.input.Content = res.Content
		s.form.message = ""
	}
	v = s.formViewLocked()
	s.mu.Unlock()
	s.deps.UI.ShowForm(v)

	switch {
	case err != nil:
		s.deps.Notifier.Error("Content generation failed", err)
		return fmt.Errorf("generating content: %w", err)
	case quizErr != nil:
		s.deps.Notifier.Alert("Error", quizMsg)
		return quizErr
	}
	return nil
}
