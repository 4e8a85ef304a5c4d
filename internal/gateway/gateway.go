// Package gateway is the viewer's remote procedure collaborator: typed calls
// to the host's capability-gated methods.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/gearxr/gear/pkg/core"
	"github.com/gearxr/gear/pkg/rpc"
)

// ErrAccessDenied is returned when the host rejects the caller's credentials
// or capabilities.
var ErrAccessDenied = errors.New("access denied")

// Gateway is the set of remote calls the viewer makes.
type Gateway interface {
	GetHotspots(ctx context.Context, gearID int64) ([]core.Hotspot, error)
	SaveHotspot(ctx context.Context, req core.SaveHotspotRequest) (core.SaveResult, error)
	DeleteHotspot(ctx context.Context, id int64) error
	SubmitQuiz(ctx context.Context, gearID, hotspotID int64, answer int) (core.QuizResult, error)
	GetLeaderboard(ctx context.Context, gearID int64, limit int) ([]core.LeaderboardEntry, error)
	GenerateContent(ctx context.Context, gearID int64, prompt string, kind core.HotspotType) (core.GeneratedContent, error)
	SyncSession(ctx context.Context, gearID int64, pose core.Pose) ([]core.Participant, error)
	TrackEvent(ctx context.Context, gearID int64, action string, data map[string]any) error
}

// RemoteError is an exception reported by the host for one call.
type RemoteError struct {
	Method  string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Method, e.Message, e.Code)
}

// Is matches ErrAccessDenied for permission and login failures.
func (e *RemoteError) Is(target error) bool {
	if target != ErrAccessDenied {
		return false
	}
	return e.Code == rpc.CodeNoPermissions || e.Code == rpc.CodeRequireLogin
}
