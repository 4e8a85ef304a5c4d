package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gearxr/gear/internal/engine"
	"github.com/gearxr/gear/internal/engine/headless"
	"github.com/gearxr/gear/internal/scene"
	"github.com/gearxr/gear/internal/signal"
	"github.com/gearxr/gear/pkg/core"
)

type fakeGateway struct {
	mu sync.Mutex

	saves    []core.SaveHotspotRequest
	deletes  []int64
	submits  []int
	prompts  []string
	events   []string
	lbLimits []int

	nextID      int64
	saveErr     error
	deleteErr   error
	quizResult  core.QuizResult
	quizErr     error
	quizBlock   chan struct{}
	leaderboard []core.LeaderboardEntry
	generated   core.GeneratedContent
	generateErr error
}

func (g *fakeGateway) GetHotspots(context.Context, int64) ([]core.Hotspot, error) {
	return nil, nil
}

func (g *fakeGateway) SaveHotspot(_ context.Context, req core.SaveHotspotRequest) (core.SaveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves = append(g.saves, req)
	if g.saveErr != nil {
		return core.SaveResult{}, g.saveErr
	}
	id := req.ID
	if id == 0 {
		g.nextID++
		id = 100 + g.nextID
	}
	return core.SaveResult{Success: true, ID: id}, nil
}

func (g *fakeGateway) DeleteHotspot(_ context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletes = append(g.deletes, id)
	return g.deleteErr
}

func (g *fakeGateway) SubmitQuiz(_ context.Context, _, _ int64, answer int) (core.QuizResult, error) {
	g.mu.Lock()
	block := g.quizBlock
	g.submits = append(g.submits, answer)
	g.mu.Unlock()
	if block != nil {
		<-block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.quizResult, g.quizErr
}

func (g *fakeGateway) GetLeaderboard(_ context.Context, _ int64, limit int) ([]core.LeaderboardEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lbLimits = append(g.lbLimits, limit)
	return g.leaderboard, nil
}

func (g *fakeGateway) GenerateContent(_ context.Context, _ int64, prompt string, _ core.HotspotType) (core.GeneratedContent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.generated, g.generateErr
}

func (g *fakeGateway) SyncSession(context.Context, int64, core.Pose) ([]core.Participant, error) {
	return nil, nil
}

func (g *fakeGateway) TrackEvent(_ context.Context, _ int64, action string, _ map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, action)
	return nil
}

func (g *fakeGateway) saveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.saves)
}

func (g *fakeGateway) trackedEvents() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.events...)
}

type fakeUI struct {
	mu          sync.Mutex
	popups      []PopupView
	forms       []FormView
	boards      []LeaderboardView
	controls    []ControlsView
	loadedCalls int
}

func (u *fakeUI) ShowPopup(v PopupView) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.popups = append(u.popups, v)
}

func (u *fakeUI) ShowForm(v FormView) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.forms = append(u.forms, v)
}

func (u *fakeUI) ShowLeaderboard(v LeaderboardView) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.boards = append(u.boards, v)
}

func (u *fakeUI) SetControls(v ControlsView) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.controls = append(u.controls, v)
}

func (u *fakeUI) MarkLoaded() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.loadedCalls++
}

func (u *fakeUI) lastForm() FormView {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.forms) == 0 {
		return FormView{}
	}
	return u.forms[len(u.forms)-1]
}

func (u *fakeUI) formCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.forms)
}

func (u *fakeUI) lastPopup() PopupView {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.popups) == 0 {
		return PopupView{}
	}
	return u.popups[len(u.popups)-1]
}

func (u *fakeUI) lastBoard() LeaderboardView {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.boards) == 0 {
		return LeaderboardView{}
	}
	return u.boards[len(u.boards)-1]
}

type fakeNotifier struct {
	mu         sync.Mutex
	exceptions []error
	alerts     []string
	errors     []string
	successes  []string
}

func (n *fakeNotifier) Exception(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.exceptions = append(n.exceptions, err)
}

func (n *fakeNotifier) Alert(_, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, message)
}

func (n *fakeNotifier) Error(message string, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

func (n *fakeNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

type fakeEmitter struct {
	mu      sync.Mutex
	signals []signal.Signal
}

func (e *fakeEmitter) Emit(_ context.Context, sig signal.Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.signals = append(e.signals, sig)
}

func (e *fakeEmitter) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, s := range e.signals {
		out = append(out, s.Name)
	}
	return out
}

// cubeLoader returns a unit cube for every URL except those in fail.
type cubeLoader struct {
	fail map[string]bool
}

func (l cubeLoader) Load(_ context.Context, url string) (*scene.Object, error) {
	if l.fail[url] {
		return nil, errors.New("404 not found")
	}
	return scene.NewMeshObject("cube", scene.KindMesh,
		scene.Cuboid{Size: core.Vec3{X: 1, Y: 1, Z: 1}},
		scene.Material{Color: 0xffffff, Opacity: 1}), nil
}

type harness struct {
	session  *Session
	gateway  *fakeGateway
	ui       *fakeUI
	notifier *fakeNotifier
	signals  *fakeEmitter
	renderer *headless.Renderer
	xr       *headless.XR
	audio    *headless.Audio
}

// centre is a click through the middle of the 800x600 surface.
var centre = Click{ClientX: 400, ClientY: 300, Surface: scene.Rect{Width: 800, Height: 600}}

// onCentreRay lies on the default camera's view ray towards the origin,
// in front of the placeholder.
var onCentreRay = core.Vec3{X: 0, Y: 0.8, Z: 1.5}

func testBoot() core.Bootstrap {
	cfg := core.DefaultSceneConfig()
	cfg.Hotspots.Edit = true
	return core.Bootstrap{CMID: 7, GearID: 3, Config: cfg, CanManage: true}
}

func newHarness(t *testing.T, boot core.Bootstrap, loader engine.Loader) *harness {
	t.Helper()
	h := &harness{
		gateway:  &fakeGateway{},
		ui:       &fakeUI{},
		notifier: &fakeNotifier{},
		signals:  &fakeEmitter{},
		renderer: headless.NewRenderer(0, 800, 600),
		xr:       headless.NewXR(engine.ImmersiveVR),
		audio:    headless.NewAudio(),
	}
	if loader == nil {
		loader = cubeLoader{}
	}
	eng := &engine.Engine{Renderer: h.renderer, Loader: loader, Audio: h.audio, XR: h.xr}
	h.session = New(boot, Deps{
		Engine:   engine.Static(eng),
		Gateway:  h.gateway,
		UI:       h.ui,
		Notifier: h.notifier,
		Signals:  h.signals,
	}, WithEngineRetryDelay(time.Millisecond))
	return h
}

// start initializes the session and waits for model loading.
func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.session.Init(context.Background()))
	t.Cleanup(h.session.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.session.WaitLoaded(ctx))
}
