package viewer

import "github.com/gearxr/gear/pkg/core"

// Notifier is the user-visible notification channel.
type Notifier interface {
	// Exception reports a failure that stops the viewer.
	Exception(err error)
	// Alert shows a local problem the user can fix, such as a missing title.
	Alert(title, message string)
	// Error reports a failed remote action without blocking the viewer.
	Error(message string, err error)
	Success(message string)
}

// UI receives complete views to draw. Every call carries the whole state of
// its element so nothing from a previous render has to be cleared.
type UI interface {
	ShowPopup(PopupView)
	ShowForm(FormView)
	ShowLeaderboard(LeaderboardView)
	SetControls(ControlsView)
	MarkLoaded()
}

// PopupState is the state of the hotspot popup.
type PopupState string

const (
	PopupClosed    PopupState = "closed"
	PopupOpenInfo  PopupState = "open-info"
	PopupOpenQuiz  PopupState = "open-quiz"
	PopupOpenAudio PopupState = "open-audio"
)

func popupStateFor(t core.HotspotType) PopupState {
	switch t {
	case core.HotspotQuiz:
		return PopupOpenQuiz
	case core.HotspotAudio:
		return PopupOpenAudio
	default:
		return PopupOpenInfo
	}
}

// QuizView is the quiz part of an open quiz popup.
type QuizView struct {
	Options       []string
	Selected      int // -1 when nothing is selected
	SubmitEnabled bool
	Pending       bool
	Result        *core.QuizResult
}

// PopupView is a full render of the popup.
type PopupView struct {
	State     PopupState
	HotspotID int64
	Type      core.HotspotType
	Title     string
	Content   string
	Position  core.Vec3
	URL       string
	AudioURL  string
	Playing   bool
	CanEdit   bool
	Quiz      *QuizView
}

// FormState is the state of the authoring form.
type FormState string

const (
	FormHidden FormState = "hidden"
	FormCreate FormState = "create"
	FormEdit   FormState = "edit"
)

// FormInput holds the user-editable fields of the authoring form. Options is
// the comma-separated list typed by the author.
type FormInput struct {
	Type          core.HotspotType
	Title         string
	Content       string
	Options       string
	CorrectAnswer int
	Points        int
	AudioURL      string
}

// AI button labels.
const (
	AIButtonLabel     = "Generate with AI"
	AIButtonBusyLabel = "Generating..."
)

// FormView is a full render of the authoring form.
type FormView struct {
	State     FormState
	Heading   string
	HotspotID int64
	Position  core.Vec3
	Input     FormInput

	ShowQuizFields  bool
	ShowAudioFields bool

	Message  string
	Saving   bool
	AILabel  string
	AIEnable bool
}

// LeaderboardRow is one ranked line.
type LeaderboardRow struct {
	Rank   int
	Badge  string
	UserID int64
	Name   string
	Score  int
}

// NoScoresMessage is shown instead of an empty table.
const NoScoresMessage = "No scores yet"

// LeaderboardView is a full render of the leaderboard modal.
type LeaderboardView struct {
	Open    bool
	Rows    []LeaderboardRow
	Message string
}

// ButtonView is the state of one control button.
type ButtonView struct {
	Visible bool
	Enabled bool
	Active  bool
	Reason  string
}

// ControlsView is the state of the control bar.
type ControlsView struct {
	Fullscreen  ButtonView
	AutoRotate  ButtonView
	AR          ButtonView
	VR          ButtonView
	Leaderboard ButtonView
}
