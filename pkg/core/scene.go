// pkg/core/scene.go
package core

import "encoding/json"

// LightingPreset selects one of the fixed light rigs.
type LightingPreset string

const (
	LightingStudio  LightingPreset = "studio"
	LightingOutdoor LightingPreset = "outdoor"
	LightingDark    LightingPreset = "dark"
)

// Scene defaults applied when the load-time config omits a value.
const (
	DefaultBackground = "#1a1a2e"
	DefaultLighting   = LightingStudio
)

// DefaultCameraPosition is the initial camera placement at standing eye height.
var DefaultCameraPosition = Vec3{X: 0, Y: 1.6, Z: 3}

// HotspotFlags are the hotspot feature switches of a scene.
type HotspotFlags struct {
	Enabled bool `json:"enabled"`
	Edit    bool `json:"edit"`
}

// SceneConfig is the immutable load-time snapshot of a scene.
//
// The JSON form follows the host page payload:
//
//	{"background":"#000","lighting":"outdoor","camera":{"position":[0,1.6,3]},"hotspots":{"enabled":true,"edit":false}}
//
// Missing values take the defaults; hotspots are enabled unless explicitly disabled.
type SceneConfig struct {
	Background     string
	Lighting       LightingPreset
	CameraPosition Vec3
	Hotspots       HotspotFlags
}

// DefaultSceneConfig returns the config used when the host sends none.
func DefaultSceneConfig() SceneConfig {
	return SceneConfig{
		Background:     DefaultBackground,
		Lighting:       DefaultLighting,
		CameraPosition: DefaultCameraPosition,
		Hotspots:       HotspotFlags{Enabled: true},
	}
}

type sceneConfigJSON struct {
	Background string         `json:"background,omitempty"`
	Lighting   LightingPreset `json:"lighting,omitempty"`
	Camera     struct {
		Position []float64 `json:"position,omitempty"`
	} `json:"camera"`
	Hotspots struct {
		Enabled *bool `json:"enabled,omitempty"`
		Edit    bool  `json:"edit"`
	} `json:"hotspots"`
}

// UnmarshalJSON applies defaults for every missing field.
func (c *SceneConfig) UnmarshalJSON(data []byte) error {
	var raw sceneConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := DefaultSceneConfig()
	if raw.Background != "" {
		out.Background = raw.Background
	}
	if raw.Lighting != "" {
		out.Lighting = raw.Lighting
	}
	if len(raw.Camera.Position) == 3 {
		out.CameraPosition = Vec3{X: raw.Camera.Position[0], Y: raw.Camera.Position[1], Z: raw.Camera.Position[2]}
	}
	if raw.Hotspots.Enabled != nil {
		out.Hotspots.Enabled = *raw.Hotspots.Enabled
	}
	out.Hotspots.Edit = raw.Hotspots.Edit

	*c = out
	return nil
}

// MarshalJSON writes the host page form read by UnmarshalJSON.
func (c SceneConfig) MarshalJSON() ([]byte, error) {
	var raw sceneConfigJSON
	raw.Background = c.Background
	raw.Lighting = c.Lighting
	raw.Camera.Position = []float64{c.CameraPosition.X, c.CameraPosition.Y, c.CameraPosition.Z}
	enabled := c.Hotspots.Enabled
	raw.Hotspots.Enabled = &enabled
	raw.Hotspots.Edit = c.Hotspots.Edit
	return json.Marshal(raw)
}

// ModelRef points at one configured model file.
type ModelRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Bootstrap is the configuration bundle the host page hands to the viewer.
type Bootstrap struct {
	CMID      int64       `json:"cmid"`
	GearID    int64       `json:"gearid"`
	Config    SceneConfig `json:"config"`
	AREnabled bool        `json:"ar_enabled"`
	VREnabled bool        `json:"vr_enabled"`
	Models    []ModelRef  `json:"models"`
	Hotspots  []Hotspot   `json:"hotspots"`
	CanManage bool        `json:"canmanage"`
}

// LightKind enumerates the light primitives used by the rigs.
type LightKind string

const (
	LightAmbient     LightKind = "ambient"
	LightDirectional LightKind = "directional"
	LightHemisphere  LightKind = "hemisphere"
	LightSpot        LightKind = "spot"
)

// Light describes one light of a rig.
type Light struct {
	Name        string
	Kind        LightKind
	Color       uint32
	GroundColor uint32
	Intensity   float64
	Position    Vec3
}

// LightRig returns the lights for a preset. Every rig starts with the same ambient
// light; unknown presets get the studio rig.
func LightRig(preset LightingPreset) []Light {
	lights := []Light{{Name: "ambient", Kind: LightAmbient, Color: 0xffffff, Intensity: 0.5}}

	switch preset {
	case LightingOutdoor:
		lights = append(lights,
			Light{Name: "sun", Kind: LightDirectional, Color: 0xffffcc, Intensity: 1.2, Position: Vec3{X: 10, Y: 10, Z: 5}},
			Light{Name: "sky", Kind: LightHemisphere, Color: 0x87ceeb, GroundColor: 0x3d5c5c, Intensity: 0.6},
		)
	case LightingDark:
		lights = append(lights,
			Light{Name: "spot", Kind: LightSpot, Color: 0xffffff, Intensity: 0.8, Position: Vec3{X: 0, Y: 5, Z: 0}},
		)
	default:
		lights = append(lights,
			Light{Name: "key", Kind: LightDirectional, Color: 0xffffff, Intensity: 1, Position: Vec3{X: 5, Y: 5, Z: 5}},
			Light{Name: "fill", Kind: LightDirectional, Color: 0xffffff, Intensity: 0.5, Position: Vec3{X: -5, Y: 0, Z: 5}},
			Light{Name: "rim", Kind: LightDirectional, Color: 0xffffff, Intensity: 0.3, Position: Vec3{X: 0, Y: 5, Z: -5}},
		)
	}
	return lights
}

// UnmarshalJSON keeps the default scene config when the bundle has none.
func (b *Bootstrap) UnmarshalJSON(data []byte) error {
	type alias Bootstrap
	out := alias{Config: DefaultSceneConfig()}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*b = Bootstrap(out)
	return nil
}
