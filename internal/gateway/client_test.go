package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearxr/gear/pkg/core"
	"github.com/gearxr/gear/pkg/rpc"
)

// fakeHost answers every batch with reply(call).
func fakeHost(t *testing.T, reply func(call rpc.Call) rpc.Result) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthcheck" {
			w.WriteHeader(http.StatusOK)
			return
		}
		require.Equal(t, ServicePath, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var calls []rpc.Call
		require.NoError(t, json.NewDecoder(r.Body).Decode(&calls))
		out := make([]rpc.Result, 0, len(calls))
		for _, c := range calls {
			out = append(out, reply(c))
		}
		json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func ok(t *testing.T, v any) rpc.Result {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return rpc.Result{Data: raw}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:8080/", "", nil)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck(t *testing.T) {
	srv := fakeHost(t, nil)
	assert.NoError(t, New(srv.URL, "tok", nil).Healthcheck(context.Background()))
	assert.Error(t, New("http://localhost:59999", "", nil).Healthcheck(context.Background()))
}

func TestSaveHotspot_EncodesPositionAndConfig(t *testing.T) {
	var got rpc.SaveHotspotArgs
	srv := fakeHost(t, func(c rpc.Call) rpc.Result {
		assert.Equal(t, rpc.MethodSaveHotspot, c.MethodName)
		require.NoError(t, json.Unmarshal(c.Args, &got))
		return ok(t, core.SaveResult{Success: true, ID: 42})
	})

	answer, points := 1, 10
	res, err := New(srv.URL, "tok", nil).SaveHotspot(context.Background(), core.SaveHotspotRequest{
		GearID:   3,
		Type:     core.HotspotQuiz,
		Title:    "Q",
		Position: core.Vec3{X: 1.234, Y: 0.5, Z: -2},
		Config:   core.HotspotConfig{Options: []string{"a", "b"}, CorrectAnswer: &answer, Points: &points},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.ID)

	assert.JSONEq(t, `{"x":1.234,"y":0.5,"z":-2}`, got.Position)
	assert.JSONEq(t, `{"options":["a","b"],"correctAnswer":1,"points":10}`, got.Config)
	assert.Equal(t, "quiz", got.Type)
}

func TestGetHotspots_TolerantRecords(t *testing.T) {
	srv := fakeHost(t, func(c rpc.Call) rpc.Result {
		return ok(t, rpc.GetHotspotsResult{Hotspots: []rpc.HotspotRecord{
			{ID: 1, Type: "quiz", Title: "A", Position: `{"x":1,"y":2,"z":3}`, Config: `{"options":["x","y"],"correctAnswer":"0"}`},
			{ID: 2, Type: "hologram", Title: "B", Position: `broken`, Config: `{`},
		}})
	})

	hs, err := New(srv.URL, "tok", nil).GetHotspots(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, hs, 2)

	assert.Equal(t, core.Vec3{X: 1, Y: 2, Z: 3}, hs[0].Position)
	require.NotNil(t, hs[0].Config.CorrectAnswer)
	assert.Equal(t, 0, *hs[0].Config.CorrectAnswer)
	assert.Equal(t, int64(9), hs[0].GearID)

	assert.Equal(t, core.HotspotInfo, hs[1].Type)
	assert.Equal(t, core.Vec3{}, hs[1].Position)
	assert.True(t, hs[1].Config.IsZero())
}

func TestSubmitQuiz_SendsIndexAsString(t *testing.T) {
	srv := fakeHost(t, func(c rpc.Call) rpc.Result {
		var a rpc.SubmitQuizArgs
		require.NoError(t, json.Unmarshal(c.Args, &a))
		assert.Equal(t, "2", a.Answer)
		assert.Equal(t, int64(5), a.HotspotID)
		return ok(t, core.QuizResult{Correct: true, Score: 10, Feedback: "Correct"})
	})

	res, err := New(srv.URL, "tok", nil).SubmitQuiz(context.Background(), 1, 5, 2)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 10, res.Score)
}

func TestSyncSession(t *testing.T) {
	srv := fakeHost(t, func(c rpc.Call) rpc.Result {
		var a rpc.SyncSessionArgs
		require.NoError(t, json.Unmarshal(c.Args, &a))
		assert.JSONEq(t, `{"x":0,"y":1.6,"z":3}`, a.Position)
		assert.JSONEq(t, `{"x":0.1,"y":0,"z":0}`, a.Rotation)
		return ok(t, []core.Participant{{UserID: 7, FirstName: "Ada", Position: `{"x":1,"y":1,"z":1}`}})
	})

	ps, err := New(srv.URL, "tok", nil).SyncSession(context.Background(), 1, core.Pose{
		Position: core.Vec3{Y: 1.6, Z: 3},
		Rotation: core.Euler{X: 0.1},
	})
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, int64(7), ps[0].UserID)
}

func TestTrackEvent_NilDataIsObject(t *testing.T) {
	srv := fakeHost(t, func(c rpc.Call) rpc.Result {
		var a rpc.TrackEventArgs
		require.NoError(t, json.Unmarshal(c.Args, &a))
		assert.Equal(t, "ar_start", a.Action)
		assert.Equal(t, "{}", a.Data)
		return ok(t, rpc.DeleteResult{Success: true})
	})

	assert.NoError(t, New(srv.URL, "tok", nil).TrackEvent(context.Background(), 1, "ar_start", nil))
}

func TestRemoteErrors(t *testing.T) {
	srv := fakeHost(t, func(c rpc.Call) rpc.Result {
		switch c.MethodName {
		case rpc.MethodDeleteHotspot:
			return rpc.Result{Error: true, Exception: &rpc.Exception{Message: "no", ErrorCode: rpc.CodeNoPermissions}}
		case rpc.MethodGenerateContent:
			return rpc.Result{Error: true, Exception: &rpc.Exception{Message: "AI off", ErrorCode: rpc.CodeAINotConfigured}}
		}
		return rpc.Result{Error: true}
	})
	c := New(srv.URL, "tok", nil)

	err := c.DeleteHotspot(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = c.GenerateContent(context.Background(), 1, "planets", core.HotspotInfo)
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, rpc.CodeAINotConfigured, re.Code)
	assert.NotErrorIs(t, err, ErrAccessDenied)

	_, err = c.GetLeaderboard(context.Background(), 1, 10)
	require.True(t, errors.As(err, &re))
	assert.Equal(t, rpc.CodeInternal, re.Code)
}

func TestHTTPStatusErrors(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()
	c := New(srv.URL, "", nil)

	_, err := c.SyncSession(context.Background(), 1, core.Pose{})
	assert.ErrorIs(t, err, ErrAccessDenied)

	status = http.StatusForbidden
	_, err = c.FetchBootstrap(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAccessDenied)

	status = http.StatusInternalServerError
	_, err = c.SyncSession(context.Background(), 1, core.Pose{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccessDenied)
}

func TestFetchBootstrap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/view/12/bootstrap", r.URL.Path)
		w.Write([]byte(`{"cmid":12,"gearid":3,"config":{"lighting":"dark"},"canmanage":true}`))
	}))
	defer srv.Close()

	b, err := New(srv.URL, "", nil).FetchBootstrap(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, int64(3), b.GearID)
	assert.True(t, b.CanManage)
	assert.Equal(t, core.LightingDark, b.Config.Lighting)
	assert.Equal(t, core.DefaultBackground, b.Config.Background)
}
