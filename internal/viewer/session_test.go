package viewer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearxr/gear/internal/engine"
	"github.com/gearxr/gear/internal/scene"
	"github.com/gearxr/gear/internal/signal"
	"github.com/gearxr/gear/pkg/core"
)

func TestInit_EngineUnavailable(t *testing.T) {
	var calls atomic.Int32
	n := &fakeNotifier{}
	s := New(testBoot(), Deps{
		Engine: func() (*engine.Engine, bool) {
			calls.Add(1)
			return nil, false
		},
		Gateway:  &fakeGateway{},
		UI:       &fakeUI{},
		Notifier: n,
	}, WithEngineRetryDelay(time.Millisecond))

	err := s.Init(context.Background())
	require.ErrorIs(t, err, ErrEngineUnavailable)

	assert.Equal(t, int32(2), calls.Load(), "provider is retried exactly once")
	require.Len(t, n.exceptions, 1)
	assert.ErrorIs(t, n.exceptions[0], ErrEngineUnavailable)
	assert.False(t, s.Alive())
}

func TestInit_EngineResolvesOnRetry(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	eng := &engine.Engine{Renderer: h.renderer, Loader: cubeLoader{}}
	var calls atomic.Int32
	h.session.deps.Engine = func() (*engine.Engine, bool) {
		return eng, calls.Add(1) > 1
	}

	h.start(t)
	assert.True(t, h.session.Alive())
	assert.Equal(t, int32(2), calls.Load())
}

func TestInit_Twice(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	assert.ErrorIs(t, h.session.Init(context.Background()), ErrAlreadyInitialized)
}

func TestInit_ZeroModelsAddsPlaceholder(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	assert.True(t, h.session.HasPlaceholder())
	assert.True(t, h.session.Loaded())
	assert.Equal(t, 1, h.ui.loadedCalls)
	assert.Empty(t, h.notifier.exceptions)
	assert.True(t, h.renderer.Looping())
}

func TestInit_ModelFailureFallsBackToPlaceholder(t *testing.T) {
	boot := testBoot()
	boot.Models = []core.ModelRef{{ID: 1, Name: "broken", URL: "https://example.test/broken.glb"}}
	h := newHarness(t, boot, cubeLoader{fail: map[string]bool{"https://example.test/broken.glb": true}})
	h.start(t)

	assert.True(t, h.session.HasPlaceholder())
	assert.True(t, h.session.Loaded())
	assert.Empty(t, h.notifier.exceptions)
}

func TestInit_ModelCentersCamera(t *testing.T) {
	boot := testBoot()
	boot.Models = []core.ModelRef{{ID: 1, Name: "engine", URL: "engine.glb"}}
	h := newHarness(t, boot, nil)
	h.start(t)

	model := h.session.Model()
	require.NotNil(t, model)
	assert.Equal(t, "engine", model.Name)
	assert.False(t, h.session.HasPlaceholder())

	pose, ok := h.session.Pose()
	require.True(t, ok)
	cam := scene.NewPerspectiveCamera(scene.DefaultFOV, 1, scene.DefaultNear, scene.DefaultFar)
	assert.InDelta(t, 0, pose.Position.X, 1e-6)
	assert.InDelta(t, 0, pose.Position.Y, 1e-6)
	assert.InDelta(t, cam.FitDistance(1), pose.Position.Z, 1e-6)
}

func TestInit_LightsAndMarkers(t *testing.T) {
	boot := testBoot()
	boot.Config.Lighting = core.LightingOutdoor
	boot.Hotspots = []core.Hotspot{
		{ID: 1, Type: core.HotspotInfo, Title: "A"},
		{ID: 2, Type: "bogus", Title: "B"},
	}
	h := newHarness(t, boot, nil)
	h.start(t)

	assert.Equal(t, 2, h.session.MarkerCount())
	got, ok := h.session.Hotspot(2)
	require.True(t, ok)
	assert.Equal(t, core.HotspotInfo, got.Type)

	var lights int
	h.session.WithScene(func(sc *scene.Scene, _ *scene.PerspectiveCamera) {
		lights = len(sc.Lights())
	})
	assert.Equal(t, len(core.LightRig(core.LightingOutdoor)), lights)
}

func TestInit_HotspotsDisabled(t *testing.T) {
	boot := testBoot()
	boot.Config.Hotspots.Enabled = false
	boot.Hotspots = []core.Hotspot{{ID: 1, Type: core.HotspotInfo}}
	h := newHarness(t, boot, nil)
	h.start(t)

	assert.Zero(t, h.session.MarkerCount())
}

func TestInit_EmitsSceneLoaded(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	require.Equal(t, []string{signal.SceneLoaded}, h.signals.names())
	assert.Equal(t, int64(7), h.signals.signals[0].CMID)
	assert.Equal(t, int64(3), h.signals.signals[0].GearID)
}

func TestFrame_AutoRotate(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	model := h.session.Model()
	require.NotNil(t, model)

	require.True(t, h.renderer.Step(16*time.Millisecond))
	assert.Zero(t, model.Rotation.Y)

	assert.True(t, h.session.ToggleAutoRotate())
	h.renderer.Step(16 * time.Millisecond)
	h.renderer.Step(16 * time.Millisecond)
	assert.InDelta(t, 2*AutoRotateStep, model.Rotation.Y, 1e-12)
	assert.Equal(t, int64(3), h.renderer.Frames())
}

func TestClose(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	h.session.Close()
	h.session.Close()

	assert.False(t, h.session.Alive())
	assert.False(t, h.renderer.Looping())
	_, ok := h.session.Pose()
	assert.False(t, ok)
	assert.False(t, h.session.WithScene(func(*scene.Scene, *scene.PerspectiveCamera) {
		t.Fatal("scene used after close")
	}))

	// clicks after teardown are ignored
	h.session.HandleClick(context.Background(), centre)
	assert.Equal(t, PopupClosed, h.session.Popup().State)
}

func TestClose_ConcurrentWithClicks(t *testing.T) {
	for i := 0; i < 50; i++ {
		h := newHarness(t, bootWith(infoHotspot()), nil)
		h.start(t)

		var wg sync.WaitGroup
		var afterClose []string
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.session.HandleClick(context.Background(), centre)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.session.Close()
			afterClose = h.gateway.trackedEvents()
		}()
		wg.Wait()

		// nothing is tracked once Close has returned
		assert.Equal(t, afterClose, h.gateway.trackedEvents())
		assert.False(t, h.session.Alive())
	}
}

func TestControls(t *testing.T) {
	boot := testBoot()
	boot.AREnabled = true
	boot.VREnabled = true
	h := newHarness(t, boot, nil)
	h.start(t)

	c := h.session.Controls()
	assert.True(t, c.AR.Visible)
	assert.False(t, c.AR.Enabled)
	assert.Equal(t, ReasonARNotSupported, c.AR.Reason)
	assert.True(t, c.VR.Visible)
	assert.True(t, c.VR.Enabled)
	assert.True(t, c.Leaderboard.Enabled)

	assert.True(t, h.session.ToggleFullscreen())
	assert.True(t, h.session.Controls().Fullscreen.Active)
	assert.False(t, h.session.ToggleFullscreen())
}

func TestControls_XRDisabledByActivity(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	c := h.session.Controls()
	assert.False(t, c.AR.Visible)
	assert.False(t, c.VR.Visible)
}

func TestStartVR(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	require.NoError(t, h.session.StartVR(context.Background()))

	require.NotNil(t, h.renderer.XRSession())
	assert.Equal(t, engine.ImmersiveVR, h.renderer.XRSession().Mode())
	assert.Contains(t, h.signals.names(), signal.VRStarted)

	h.session.Close()
	assert.Contains(t, h.gateway.trackedEvents(), "vr_start")
}

func TestStartAR_Unsupported(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	err := h.session.StartAR(context.Background())
	require.Error(t, err)
	assert.Len(t, h.notifier.exceptions, 1)
	assert.NotContains(t, h.signals.names(), signal.ARStarted)
	assert.Nil(t, h.renderer.XRSession())
}

func TestResize(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	require.NoError(t, h.session.Resize(1000, 500))
	w, hh := h.renderer.Size()
	assert.Equal(t, 1000.0, w)
	assert.Equal(t, 500.0, hh)
	h.session.WithScene(func(_ *scene.Scene, cam *scene.PerspectiveCamera) {
		assert.Equal(t, 2.0, cam.Aspect)
	})

	assert.Error(t, h.session.Resize(0, 10))
}

func TestLeaderboard(t *testing.T) {
	h := newHarness(t, testBoot(), nil)
	h.start(t)

	t.Run("empty", func(t *testing.T) {
		require.NoError(t, h.session.ShowLeaderboard(context.Background()))
		v := h.ui.lastBoard()
		assert.True(t, v.Open)
		assert.Empty(t, v.Rows)
		assert.Equal(t, NoScoresMessage, v.Message)
	})

	t.Run("ranked", func(t *testing.T) {
		h.gateway.mu.Lock()
		h.gateway.leaderboard = []core.LeaderboardEntry{
			{UserID: 1, FullName: "Ada Lovelace", Score: 40},
			{UserID: 2, FullName: "Alan Turing", Score: 30},
			{UserID: 3, FullName: "Grace Hopper", Score: 20},
			{UserID: 4, FullName: "Edsger Dijkstra", Score: 10},
		}
		h.gateway.mu.Unlock()

		require.NoError(t, h.session.ShowLeaderboard(context.Background()))
		v := h.ui.lastBoard()
		require.Len(t, v.Rows, 4)
		assert.Empty(t, v.Message)
		assert.Equal(t, "🥇", v.Rows[0].Badge)
		assert.Equal(t, "🥉", v.Rows[2].Badge)
		assert.Equal(t, "4", v.Rows[3].Badge)
		assert.Equal(t, "Alan Turing", v.Rows[1].Name)
	})

	h.session.CloseLeaderboard()
	assert.False(t, h.session.Leaderboard().Open)
	assert.Equal(t, []int{DefaultLeaderboardLimit, DefaultLeaderboardLimit}, h.gateway.lbLimits)
}
