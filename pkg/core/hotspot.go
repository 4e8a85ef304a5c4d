// pkg/core/hotspot.go
package core

// HotspotType determines popup rendering and config schema.
type HotspotType string

const (
	HotspotInfo  HotspotType = "info"
	HotspotQuiz  HotspotType = "quiz"
	HotspotAudio HotspotType = "audio"
	HotspotLink  HotspotType = "link"
)

// Valid reports whether t is one of the known hotspot types.
func (t HotspotType) Valid() bool {
	switch t {
	case HotspotInfo, HotspotQuiz, HotspotAudio, HotspotLink:
		return true
	}
	return false
}

// DefaultQuizPoints is awarded for a correct answer when the quiz config has no points.
const DefaultQuizPoints = 10

// HotspotConfig is the type-specific payload of a hotspot.
// Quiz hotspots use Options, CorrectAnswer and Points; audio hotspots use AudioURL;
// link hotspots use URL.
type HotspotConfig struct {
	Options       []string `json:"options,omitempty"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
	Points        *int     `json:"points,omitempty"`
	AudioURL      string   `json:"audioUrl,omitempty"`
	URL           string   `json:"url,omitempty"`
}

// IsZero reports whether no field of the config is set.
func (c HotspotConfig) IsZero() bool {
	return len(c.Options) == 0 && c.CorrectAnswer == nil && c.Points == nil && c.AudioURL == "" && c.URL == ""
}

// Clone returns a deep copy of the config.
func (c HotspotConfig) Clone() HotspotConfig {
	out := c
	if c.Options != nil {
		out.Options = append([]string(nil), c.Options...)
	}
	if c.CorrectAnswer != nil {
		v := *c.CorrectAnswer
		out.CorrectAnswer = &v
	}
	if c.Points != nil {
		v := *c.Points
		out.Points = &v
	}
	return out
}

// QuizPoints is the score for a correct answer. An explicit 0 is kept.
func (c HotspotConfig) QuizPoints() int {
	if c.Points == nil {
		return DefaultQuizPoints
	}
	return *c.Points
}

// Hotspot is a point of interest anchored to a 3D position.
// ID 0 means the hotspot has not been persisted yet.
type Hotspot struct {
	ID        int64         `json:"id"`
	GearID    int64         `json:"gearid,omitempty"`
	ModelID   int64         `json:"modelid,omitempty"`
	Type      HotspotType   `json:"type"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Position  Vec3          `json:"position"`
	Icon      string        `json:"icon"`
	Config    HotspotConfig `json:"config"`
	SortOrder int           `json:"sortorder,omitempty"`
}

// Clone returns a deep copy of the hotspot.
func (h Hotspot) Clone() Hotspot {
	out := h
	out.Config = h.Config.Clone()
	return out
}

// SaveHotspotRequest creates (ID 0) or updates a hotspot.
type SaveHotspotRequest struct {
	ID       int64
	GearID   int64
	ModelID  int64
	Type     HotspotType
	Title    string
	Content  string
	Position Vec3
	Icon     string
	Config   HotspotConfig
}

// SaveResult is the host reply to a save call.
type SaveResult struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}
