package viewer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearxr/gear/pkg/core"
)

func intPtr(v int) *int { return &v }

func bootWith(hotspots ...core.Hotspot) core.Bootstrap {
	boot := testBoot()
	boot.Hotspots = hotspots
	return boot
}

func quizHotspot() core.Hotspot {
	return core.Hotspot{
		ID: 5, Type: core.HotspotQuiz, Title: "Which gear?", Position: onCentreRay,
		Config: core.HotspotConfig{Options: []string{"a", "b", "c"}, CorrectAnswer: intPtr(1)},
	}
}

func infoHotspot() core.Hotspot {
	return core.Hotspot{ID: 5, Type: core.HotspotInfo, Title: "Valve", Content: "Opens at 3 bar", Position: onCentreRay}
}

func TestHandleClick_OpensPopup(t *testing.T) {
	h := newHarness(t, bootWith(infoHotspot()), nil)
	h.start(t)

	h.session.HandleClick(context.Background(), centre)

	v := h.ui.lastPopup()
	assert.Equal(t, PopupOpenInfo, v.State)
	assert.Equal(t, int64(5), v.HotspotID)
	assert.Equal(t, "Valve", v.Title)
	assert.True(t, v.CanEdit)

	h.session.Close()
	assert.Equal(t, []string{"hotspot_click"}, h.gateway.trackedEvents())
}

func TestHandleClick_Miss(t *testing.T) {
	h := newHarness(t, bootWith(infoHotspot()), nil)
	h.start(t)

	h.session.HandleClick(context.Background(), Click{ClientX: 5, ClientY: 5, Surface: centre.Surface})

	assert.Equal(t, PopupClosed, h.session.Popup().State)
	assert.Empty(t, h.ui.popups)
}

func TestHandleClick_UntitledDefaultsToInfo(t *testing.T) {
	hs := infoHotspot()
	hs.Title = ""
	h := newHarness(t, bootWith(hs), nil)
	h.start(t)

	h.session.HandleClick(context.Background(), centre)
	assert.Equal(t, "Info", h.ui.lastPopup().Title)
}

func TestHandleClick_AuthorWithoutCapability(t *testing.T) {
	boot := bootWith(infoHotspot())
	boot.CanManage = false
	h := newHarness(t, boot, nil)
	h.start(t)

	click := centre
	click.Author = true
	h.session.HandleClick(context.Background(), click)

	assert.Zero(t, h.ui.formCount())
	v := h.ui.lastPopup()
	assert.Equal(t, PopupOpenInfo, v.State)
	assert.False(t, v.CanEdit)
}

func TestHandleClick_AuthorOpensCreateForm(t *testing.T) {
	h := newHarness(t, bootWith(infoHotspot()), nil)
	h.start(t)

	click := centre
	click.Author = true
	h.session.HandleClick(context.Background(), click)

	f := h.ui.lastForm()
	assert.Equal(t, FormCreate, f.State)
	assert.Equal(t, "Add Hotspot", f.Heading)
	assert.InDelta(t, 0.5, f.Position.Z, 1e-9)
	assert.Equal(t, core.HotspotInfo, f.Input.Type)
	assert.Equal(t, core.DefaultQuizPoints, f.Input.Points)
	assert.Empty(t, h.ui.popups)
}

func TestSaveForm_CreateAppendsMarker(t *testing.T) {
	h := newHarness(t, bootWith(infoHotspot()), nil)
	h.start(t)

	require.NoError(t, h.session.OpenCreateForm(core.Vec3{X: 1.2344, Y: 0.5, Z: -2.0}))
	require.NoError(t, h.session.UpdateForm(FormInput{Type: core.HotspotInfo, Title: " Pump ", Content: "Main pump"}))
	require.NoError(t, h.session.SaveForm(context.Background()))

	require.Len(t, h.gateway.saves, 1)
	req := h.gateway.saves[0]
	assert.Zero(t, req.ID)
	assert.Equal(t, int64(3), req.GearID)
	assert.Equal(t, core.Vec3{X: 1.234, Y: 0.5, Z: -2}, req.Position)
	assert.Equal(t, "Pump", req.Title)

	assert.Equal(t, 2, h.session.MarkerCount())
	saved, ok := h.session.Hotspot(101)
	require.True(t, ok)
	assert.Equal(t, "Pump", saved.Title)
	assert.Equal(t, "Main pump", saved.Content)
	assert.Equal(t, core.HotspotInfo, saved.Type)

	assert.Equal(t, FormHidden, h.ui.lastForm().State)
	assert.Equal(t, []string{"Hotspot saved successfully"}, h.notifier.successes)
}

func TestSaveForm_PositionRoundTripsToPopup(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	require.NoError(t, h.session.OpenCreateForm(core.Vec3{X: 0.0004, Y: 0.8, Z: 1.5}))
	require.NoError(t, h.session.UpdateForm(FormInput{Type: core.HotspotInfo, Title: "Gauge"}))
	require.NoError(t, h.session.SaveForm(context.Background()))

	h.session.HandleClick(context.Background(), centre)

	v := h.ui.lastPopup()
	assert.Equal(t, int64(101), v.HotspotID)
	assert.Equal(t, core.Vec3{X: 0, Y: 0.8, Z: 1.5}, v.Position)
}

func TestSaveForm_EditUpdatesInPlace(t *testing.T) {
	h := newHarness(t, bootWith(infoHotspot()), nil)
	h.start(t)

	h.session.HandleClick(context.Background(), centre)
	require.NoError(t, h.session.EditFromPopup())
	assert.Equal(t, PopupClosed, h.ui.lastPopup().State)

	f := h.ui.lastForm()
	require.Equal(t, FormEdit, f.State)
	assert.Equal(t, "Edit Hotspot", f.Heading)
	assert.Equal(t, "Valve", f.Input.Title)

	in := f.Input
	in.Title = "Relief valve"
	require.NoError(t, h.session.UpdateForm(in))
	require.NoError(t, h.session.SaveForm(context.Background()))

	require.Len(t, h.gateway.saves, 1)
	assert.Equal(t, int64(5), h.gateway.saves[0].ID)
	assert.Equal(t, 1, h.session.MarkerCount())

	got, ok := h.session.Hotspot(5)
	require.True(t, ok)
	assert.Equal(t, "Relief valve", got.Title)
	assert.Equal(t, onCentreRay, got.Position)
}

func TestEditFromPopup_PopulatesQuizFields(t *testing.T) {
	h := newHarness(t, bootWith(quizHotspot()), nil)
	h.start(t)

	h.session.HandleClick(context.Background(), centre)
	require.NoError(t, h.session.EditFromPopup())

	f := h.ui.lastForm()
	assert.True(t, f.ShowQuizFields)
	assert.False(t, f.ShowAudioFields)
	assert.Equal(t, "a, b, c", f.Input.Options)
	assert.Equal(t, 1, f.Input.CorrectAnswer)
	assert.Equal(t, core.DefaultQuizPoints, f.Input.Points)
}

func TestEditFromPopup_OptionWithComma(t *testing.T) {
	hs := quizHotspot()
	hs.Config.Options = []string{"1,000", "2,000"}
	h := newHarness(t, bootWith(hs), nil)
	h.start(t)

	h.session.HandleClick(context.Background(), centre)
	require.NoError(t, h.session.EditFromPopup())

	f := h.ui.lastForm()
	assert.Empty(t, f.Input.Options)
	assert.Equal(t, MsgOptionComma, f.Message)
}

func TestEditFromPopup_NeedsEditFlag(t *testing.T) {
	boot := bootWith(infoHotspot())
	boot.Config.Hotspots.Edit = false
	h := newHarness(t, boot, nil)
	h.start(t)

	h.session.HandleClick(context.Background(), centre)
	assert.ErrorIs(t, h.session.EditFromPopup(), ErrNoPopup)
	assert.ErrorIs(t, h.session.DeleteFromPopup(context.Background()), ErrNoPopup)
}

func TestSaveForm_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input FormInput
		field string
	}{
		{"empty title", FormInput{Type: core.HotspotInfo, Title: "  "}, "title"},
		{"quiz with one option", FormInput{Type: core.HotspotQuiz, Title: "Q", Options: "only, ,"}, "options"},
		{"quiz answer out of range", FormInput{Type: core.HotspotQuiz, Title: "Q", Options: "a,b", CorrectAnswer: 2}, "correctAnswer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testBoot(), nil)
			h.start(t)

			require.NoError(t, h.session.OpenCreateForm(core.Vec3{}))
			require.NoError(t, h.session.UpdateForm(tt.input))

			err := h.session.SaveForm(context.Background())
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)

			assert.Zero(t, h.gateway.saveCount())
			assert.Equal(t, FormCreate, h.ui.lastForm().State)
			assert.Equal(t, ve.Message, h.ui.lastForm().Message)
			assert.Equal(t, []string{ve.Message}, h.notifier.alerts)
		})
	}
}

func TestSaveForm_QuizMessageMentionsOptions(t *testing.T) {
	err := Validate(FormInput{Type: core.HotspotQuiz, Title: "Q", Options: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "options")

	assert.NoError(t, Validate(FormInput{Type: core.HotspotQuiz, Title: "Q", Options: "a, b", CorrectAnswer: 1}))
	assert.NoError(t, Validate(FormInput{Type: core.HotspotAudio, Title: "A"}))
}

func TestSaveForm_QuizConfig(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	require.NoError(t, h.session.OpenCreateForm(core.Vec3{}))
	require.NoError(t, h.session.UpdateForm(FormInput{Type: core.HotspotQuiz, Title: "Q", Options: "x, y ,z", CorrectAnswer: 2}))
	require.NoError(t, h.session.SaveForm(context.Background()))

	cfg := h.gateway.saves[0].Config
	assert.Equal(t, []string{"x", "y", "z"}, cfg.Options)
	require.NotNil(t, cfg.CorrectAnswer)
	assert.Equal(t, 2, *cfg.CorrectAnswer)
	require.NotNil(t, cfg.Points)
	assert.Equal(t, core.DefaultQuizPoints, *cfg.Points)
	assert.Equal(t, "quiz", h.gateway.saves[0].Icon)
}

func TestSaveForm_RemoteFailure(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)
	h.gateway.saveErr = errors.New("nopermissions")

	require.NoError(t, h.session.OpenCreateForm(core.Vec3{}))
	require.NoError(t, h.session.UpdateForm(FormInput{Type: core.HotspotInfo, Title: "T"}))
	require.Error(t, h.session.SaveForm(context.Background()))

	assert.Zero(t, h.session.MarkerCount())
	assert.Equal(t, []string{"Could not save hotspot"}, h.notifier.errors)
	f := h.ui.lastForm()
	assert.Equal(t, FormCreate, f.State)
	assert.False(t, f.Saving)
}

func TestCancelForm(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	require.NoError(t, h.session.OpenCreateForm(core.Vec3{}))
	h.session.CancelForm()

	assert.Equal(t, FormHidden, h.session.Form().State)
	assert.ErrorIs(t, h.session.SaveForm(context.Background()), ErrFormHidden)
	assert.ErrorIs(t, h.session.UpdateForm(FormInput{}), ErrFormHidden)
}

func TestGenerateContent_QuizNotJSON(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)
	h.gateway.generated = core.GeneratedContent{Success: true, Content: "Sure! Here is a quiz about gears."}

	before := FormInput{Type: core.HotspotQuiz, Title: "Original", Options: "a, b", Points: 10}
	require.NoError(t, h.session.OpenCreateForm(core.Vec3{}))
	require.NoError(t, h.session.UpdateForm(before))

	require.Error(t, h.session.GenerateContent(context.Background(), "gear ratios"))

	f := h.ui.lastForm()
	assert.Equal(t, before, f.Input)
	assert.Equal(t, MsgQuizParse, f.Message)
	assert.Equal(t, AIButtonLabel, f.AILabel)
	assert.True(t, f.AIEnable)
	assert.Equal(t, []string{MsgQuizParse}, h.notifier.alerts)
}

func TestGenerateContent_BusyLabel(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)
	h.gateway.generated = core.GeneratedContent{Success: true, Content: "text"}

	require.NoError(t, h.session.OpenCreateForm(core.Vec3{}))
	require.NoError(t, h.session.GenerateContent(context.Background(), "p"))

	var sawBusy bool
	for _, f := range h.ui.forms {
		if f.AILabel == AIButtonBusyLabel && !f.AIEnable {
			sawBusy = true
		}
	}
	assert.True(t, sawBusy)
	assert.Equal(t, AIButtonLabel, h.ui.lastForm().AILabel)
}

func TestGenerateContent_QuizFillsForm(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)
	h.gateway.generated = core.GeneratedContent{
		Success: true,
		Content: "```json\n{\"question\":\"Which gear turns faster?\",\"options\":[\"Large\",\"Small\"],\"correct\":1,\"points\":15}\n```",
	}

	require.NoError(t, h.session.OpenCreateForm(core.Vec3{}))
	require.NoError(t, h.session.UpdateForm(FormInput{Type: core.HotspotQuiz}))
	require.NoError(t, h.session.GenerateContent(context.Background(), "gear trains"))

	in := h.ui.lastForm().Input
	assert.Equal(t, "Which gear turns faster?", in.Title)
	assert.Equal(t, "Large, Small", in.Options)
	assert.Equal(t, 1, in.CorrectAnswer)
	assert.Equal(t, 15, in.Points)
	assert.NoError(t, Validate(in))
}

func TestGenerateContent_QuizOptionWithComma(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)
	h.gateway.generated = core.GeneratedContent{
		Success: true,
		Content: `{"question":"How many teeth?","options":["1,000","2,000","3,000"],"correct":1}`,
	}

	before := FormInput{Type: core.HotspotQuiz, Title: "Original", Options: "a, b", Points: 10}
	require.NoError(t, h.session.OpenCreateForm(core.Vec3{}))
	require.NoError(t, h.session.UpdateForm(before))

	err := h.session.GenerateContent(context.Background(), "gear teeth")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "options", ve.Field)

	f := h.ui.lastForm()
	assert.Equal(t, before, f.Input)
	assert.Equal(t, MsgOptionComma, f.Message)
	assert.Equal(t, []string{MsgOptionComma}, h.notifier.alerts)
	assert.Zero(t, h.gateway.saveCount())
}

func TestGenerateContent_InfoVerbatim(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)
	text := "A gear is a rotating machine part.\n\nIt has teeth."
	h.gateway.generated = core.GeneratedContent{Success: true, Content: text}

	require.NoError(t, h.session.OpenCreateForm(core.Vec3{}))
	require.NoError(t, h.session.UpdateForm(FormInput{Type: core.HotspotInfo, Title: "Gear"}))
	require.NoError(t, h.session.GenerateContent(context.Background(), "what is a gear"))

	in := h.ui.lastForm().Input
	assert.Equal(t, text, in.Content)
	assert.Equal(t, "Gear", in.Title)
}

func TestGenerateContent_Failures(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)
	require.NoError(t, h.session.OpenCreateForm(core.Vec3{}))

	var ve *ValidationError
	require.ErrorAs(t, h.session.GenerateContent(context.Background(), "  "), &ve)
	assert.Empty(t, h.gateway.prompts)

	h.gateway.generateErr = errors.New("error:ainotconfigured")
	require.Error(t, h.session.GenerateContent(context.Background(), "p"))
	assert.Equal(t, []string{"Content generation failed"}, h.notifier.errors)
	assert.True(t, h.ui.lastForm().AIEnable)

	// manual completion still works
	require.NoError(t, h.session.UpdateForm(FormInput{Type: core.HotspotInfo, Title: "Manual"}))
	require.NoError(t, h.session.SaveForm(context.Background()))
}

func TestSubmitQuiz(t *testing.T) {
	h := newHarness(t, bootWith(quizHotspot()), nil)
	h.start(t)
	h.gateway.quizResult = core.QuizResult{Correct: true, Score: 10, Feedback: "Correct!"}

	h.session.HandleClick(context.Background(), centre)
	v := h.ui.lastPopup()
	require.Equal(t, PopupOpenQuiz, v.State)
	require.NotNil(t, v.Quiz)
	assert.Equal(t, -1, v.Quiz.Selected)
	assert.Equal(t, []string{"a", "b", "c"}, v.Quiz.Options)

	var ve *ValidationError
	require.ErrorAs(t, h.session.SubmitQuiz(context.Background()), &ve)
	assert.Empty(t, h.gateway.submits)

	assert.Error(t, h.session.SelectQuizOption(3))
	require.NoError(t, h.session.SelectQuizOption(1))
	require.NoError(t, h.session.SubmitQuiz(context.Background()))

	assert.Equal(t, []int{1}, h.gateway.submits)
	v = h.ui.lastPopup()
	require.NotNil(t, v.Quiz.Result)
	assert.True(t, v.Quiz.Result.Correct)
	assert.Equal(t, 10, v.Quiz.Result.Score)
	assert.False(t, v.Quiz.SubmitEnabled)

	assert.ErrorIs(t, h.session.SubmitQuiz(context.Background()), ErrNoPopup)

	// reopening re-enables submission
	h.session.ClosePopup()
	h.session.HandleClick(context.Background(), centre)
	assert.True(t, h.ui.lastPopup().Quiz.SubmitEnabled)
}

func TestSubmitQuiz_ReplyAfterPopupClosed(t *testing.T) {
	h := newHarness(t, bootWith(quizHotspot()), nil)
	h.start(t)
	h.gateway.quizBlock = make(chan struct{})

	h.session.HandleClick(context.Background(), centre)
	require.NoError(t, h.session.SelectQuizOption(0))

	done := make(chan error, 1)
	go func() { done <- h.session.SubmitQuiz(context.Background()) }()

	require.Eventually(t, func() bool {
		h.gateway.mu.Lock()
		defer h.gateway.mu.Unlock()
		return len(h.gateway.submits) == 1
	}, time.Second, time.Millisecond)

	h.session.ClosePopup()
	close(h.gateway.quizBlock)

	assert.ErrorIs(t, <-done, ErrNoPopup)
	assert.Equal(t, PopupClosed, h.session.Popup().State)
}

func TestSubmitQuiz_RemoteFailure(t *testing.T) {
	h := newHarness(t, bootWith(quizHotspot()), nil)
	h.start(t)
	h.gateway.quizErr = errors.New("boom")

	h.session.HandleClick(context.Background(), centre)
	require.NoError(t, h.session.SelectQuizOption(2))
	require.Error(t, h.session.SubmitQuiz(context.Background()))

	v := h.ui.lastPopup()
	assert.True(t, v.Quiz.SubmitEnabled)
	assert.Nil(t, v.Quiz.Result)
	assert.Equal(t, []string{"Could not submit answer"}, h.notifier.errors)
}

func TestDeleteFromPopup(t *testing.T) {
	h := newHarness(t, bootWith(infoHotspot()), nil)
	h.start(t)

	h.session.HandleClick(context.Background(), centre)
	require.NoError(t, h.session.DeleteFromPopup(context.Background()))

	assert.Equal(t, []int64{5}, h.gateway.deletes)
	assert.Zero(t, h.session.MarkerCount())
	assert.Equal(t, PopupClosed, h.ui.lastPopup().State)
	assert.Equal(t, []string{"Hotspot deleted"}, h.notifier.successes)
}

func TestDeleteFromPopup_RemoteFailureKeepsMarker(t *testing.T) {
	h := newHarness(t, bootWith(infoHotspot()), nil)
	h.start(t)
	h.gateway.deleteErr = errors.New("nopermissions")

	h.session.HandleClick(context.Background(), centre)
	require.Error(t, h.session.DeleteFromPopup(context.Background()))

	assert.Equal(t, 1, h.session.MarkerCount())
	assert.Equal(t, PopupOpenInfo, h.session.Popup().State)
}

func TestAudioHotspot(t *testing.T) {
	hs := core.Hotspot{
		ID: 9, Type: core.HotspotAudio, Title: "Engine hum", Position: onCentreRay,
		Config: core.HotspotConfig{AudioURL: "https://example.test/hum.mp3"},
	}
	h := newHarness(t, bootWith(hs), nil)
	h.start(t)

	h.session.HandleClick(context.Background(), centre)
	require.Equal(t, PopupOpenAudio, h.ui.lastPopup().State)

	require.NoError(t, h.session.PlayAudio(context.Background()))
	assert.True(t, h.ui.lastPopup().Playing)

	clips := h.audio.Clips()
	require.Len(t, clips, 1)
	assert.Equal(t, "https://example.test/hum.mp3", clips[0].URL)
	assert.Equal(t, onCentreRay, clips[0].At)

	h.session.ClosePopup()
	assert.True(t, h.audio.Clips()[0].Stopped)
}
