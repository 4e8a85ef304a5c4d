package gormstorage

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/gearxr/gear/internal/geo"
	"github.com/gearxr/gear/internal/storage"
	"github.com/gearxr/gear/pkg/core"
)

// toJSON marshals v, falling back to fallback for values that cannot be encoded.
func toJSON(v any, fallback string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON(fallback)
	}
	return datatypes.JSON(data)
}

func activityToModel(a storage.Activity) ActivityModel {
	models := a.Models
	if models == nil {
		models = []core.ModelRef{}
	}
	return ActivityModel{
		ID:        a.ID,
		CMID:      a.CMID,
		Name:      a.Name,
		Config:    toJSON(a.Config, "{}"),
		AREnabled: a.AREnabled,
		VREnabled: a.VREnabled,
		Models:    toJSON(models, "[]"),
	}
}

// modelToActivity decodes the JSON columns; unreadable columns leave the
// defaults in place.
func modelToActivity(m ActivityModel) storage.Activity {
	a := storage.Activity{
		ID:        m.ID,
		CMID:      m.CMID,
		Name:      m.Name,
		Config:    core.DefaultSceneConfig(),
		AREnabled: m.AREnabled,
		VREnabled: m.VREnabled,
	}
	if len(m.Config) > 0 {
		var cfg core.SceneConfig
		if err := json.Unmarshal(m.Config, &cfg); err == nil {
			a.Config = cfg
		}
	}
	if len(m.Models) > 0 {
		_ = json.Unmarshal(m.Models, &a.Models)
	}
	if len(a.Models) == 0 {
		a.Models = nil
	}
	return a
}

func userToModel(u storage.User) UserModel {
	return UserModel{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Token:     u.Token,
		CanManage: u.CanManage,
	}
}

func modelToUser(m UserModel) storage.User {
	return storage.User{
		ID:        m.ID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Token:     m.Token,
		CanManage: m.CanManage,
	}
}

func hotspotToModel(h core.Hotspot) HotspotModel {
	return HotspotModel{
		ID:        h.ID,
		GearID:    h.GearID,
		ModelID:   h.ModelID,
		Type:      string(h.Type),
		Title:     h.Title,
		Content:   h.Content,
		Position:  geo.PointFromVec3(h.Position),
		Icon:      h.Icon,
		Config:    toJSON(h.Config, "{}"),
		SortOrder: h.SortOrder,
	}
}

func modelToHotspot(m HotspotModel) core.Hotspot {
	h := core.Hotspot{
		ID:        m.ID,
		GearID:    m.GearID,
		ModelID:   m.ModelID,
		Type:      core.HotspotType(m.Type),
		Title:     m.Title,
		Content:   m.Content,
		Icon:      m.Icon,
		SortOrder: m.SortOrder,
	}
	if pos, err := geo.Vec3FromPoint(m.Position); err == nil {
		h.Position = pos
	}
	if len(m.Config) > 0 {
		_ = json.Unmarshal(m.Config, &h.Config)
	}
	return h
}

func trackingToModel(r storage.TrackingRecord) TrackingModel {
	data := datatypes.JSON(r.Data)
	if len(data) == 0 || !json.Valid(data) {
		data = datatypes.JSON("{}")
	}
	return TrackingModel{
		GearID:      r.GearID,
		UserID:      r.UserID,
		Action:      r.Action,
		Data:        data,
		TimeCreated: r.Time.UTC(),
	}
}

func modelToTracking(m TrackingModel) storage.TrackingRecord {
	return storage.TrackingRecord{
		ID:     m.ID,
		GearID: m.GearID,
		UserID: m.UserID,
		Action: m.Action,
		Data:   json.RawMessage(m.Data),
		Time:   m.TimeCreated,
	}
}

func modelToPresence(m SessionModel) storage.PresenceRecord {
	return storage.PresenceRecord{
		GearID:   m.GearID,
		UserID:   m.UserID,
		Position: m.Position,
		Rotation: m.Rotation,
		LastSeen: m.TimeModified,
	}
}
