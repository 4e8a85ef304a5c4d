// Package rpc defines the wire format spoken between the viewer and its host.
//
// A request is a JSON array of calls, each naming a method and carrying its
// arguments; the reply is an array of results in the same order.
package rpc

import "encoding/json"

// Method name constants of the remote procedure gateway.
const (
	MethodGetHotspots     = "mod_gear_get_hotspots"
	MethodSaveHotspot     = "mod_gear_save_hotspot"
	MethodDeleteHotspot   = "mod_gear_delete_hotspot"
	MethodSubmitQuiz      = "mod_gear_submit_quiz"
	MethodGetLeaderboard  = "mod_gear_get_leaderboard"
	MethodGenerateContent = "mod_gear_generate_content"
	MethodSyncSession     = "mod_gear_sync_session"
	MethodTrackEvent      = "mod_gear_track_event"
)

// Error codes carried in Exception.ErrorCode.
const (
	CodeNoPermissions   = "nopermissions"
	CodeRequireLogin    = "requireloginerror"
	CodeInvalidRecord   = "invalidrecord"
	CodeInvalidParam    = "invalidparameter"
	CodeUnknownMethod   = "unknownmethod"
	CodeAINotConfigured = "error:ainotconfigured"
	CodeAPIError        = "error:apierror"
	CodeInvalidJSON     = "error:invalidjson"
	CodeInternal        = "internalerror"
)

// Call is one method invocation inside a batch.
type Call struct {
	Index      int             `json:"index"`
	MethodName string          `json:"methodname"`
	Args       json.RawMessage `json:"args"`
}

// Result is the reply to one Call.
type Result struct {
	Error     bool            `json:"error"`
	Data      json.RawMessage `json:"data,omitempty"`
	Exception *Exception      `json:"exception,omitempty"`
}

// Exception describes a failed call.
type Exception struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorcode"`
}

// GetHotspotsArgs are the arguments of MethodGetHotspots.
type GetHotspotsArgs struct {
	GearID int64 `json:"gearid"`
}

// SaveHotspotArgs are the arguments of MethodSaveHotspot. Position and Config are
// JSON-encoded objects.
type SaveHotspotArgs struct {
	ID       int64  `json:"id"`
	GearID   int64  `json:"gearid"`
	ModelID  int64  `json:"modelid"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Position string `json:"position"`
	Icon     string `json:"icon"`
	Config   string `json:"config"`
}

// DeleteHotspotArgs are the arguments of MethodDeleteHotspot.
type DeleteHotspotArgs struct {
	ID int64 `json:"id"`
}

// SubmitQuizArgs are the arguments of MethodSubmitQuiz.
type SubmitQuizArgs struct {
	GearID    int64  `json:"gearid"`
	HotspotID int64  `json:"hotspotid"`
	Answer    string `json:"answer"`
}

// GetLeaderboardArgs are the arguments of MethodGetLeaderboard.
type GetLeaderboardArgs struct {
	GearID int64 `json:"gearid"`
	Limit  int   `json:"limit"`
}

// GenerateContentArgs are the arguments of MethodGenerateContent.
type GenerateContentArgs struct {
	GearID int64  `json:"gearid"`
	Prompt string `json:"prompt"`
	Type   string `json:"type"`
}

// SyncSessionArgs are the arguments of MethodSyncSession. Position and Rotation
// are JSON-encoded {x,y,z} objects.
type SyncSessionArgs struct {
	GearID   int64  `json:"gearid"`
	Position string `json:"position"`
	Rotation string `json:"rotation"`
}

// TrackEventArgs are the arguments of MethodTrackEvent. Data is a JSON object.
type TrackEventArgs struct {
	GearID int64  `json:"gearid"`
	Action string `json:"action"`
	Data   string `json:"data"`
}

// DeleteResult is the reply of MethodDeleteHotspot and MethodTrackEvent.
type DeleteResult struct {
	Success bool `json:"success"`
}

// HotspotRecord is a persisted hotspot as returned by MethodGetHotspots.
// Position and Config are JSON-encoded objects.
type HotspotRecord struct {
	ID        int64  `json:"id"`
	ModelID   int64  `json:"modelid"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Position  string `json:"position"`
	Icon      string `json:"icon"`
	Config    string `json:"config"`
	SortOrder int    `json:"sortorder"`
}

// GetHotspotsResult is the reply of MethodGetHotspots.
type GetHotspotsResult struct {
	Hotspots []HotspotRecord `json:"hotspots"`
}
