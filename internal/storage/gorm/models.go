package gormstorage

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// Models lists every table of the store in migration order.
func Models() []any {
	return []any{
		&ActivityModel{},
		&UserModel{},
		&HotspotModel{},
		&TrackingModel{},
		&SessionModel{},
	}
}

// ActivityModel is one configured scene.
type ActivityModel struct {
	ID        int64          `json:"id" gorm:"primarykey"`
	CMID      int64          `json:"cmid" gorm:"column:cmid;index:idx_gear_cmid"`
	Name      string         `json:"name" gorm:"size:255"`
	Config    datatypes.JSON `json:"config"`
	AREnabled bool           `json:"arEnabled" gorm:"column:ar_enabled"`
	VREnabled bool           `json:"vrEnabled" gorm:"column:vr_enabled"`
	Models    datatypes.JSON `json:"models"`
}

func (*ActivityModel) TableName() string { return "gear" }

// UserModel is a host account.
type UserModel struct {
	ID        int64  `json:"id" gorm:"primarykey"`
	FirstName string `json:"firstName" gorm:"size:100"`
	LastName  string `json:"lastName" gorm:"size:100"`
	Token     string `json:"-" gorm:"size:64;index:idx_user_token"`
	CanManage bool   `json:"canManage"`
}

func (*UserModel) TableName() string { return "gear_users" }

// HotspotModel is a persisted hotspot. Position is an XYZ point in the
// model's local frame.
type HotspotModel struct {
	ID        int64          `json:"id" gorm:"primarykey"`
	GearID    int64          `json:"gearId" gorm:"index:idx_hotspot_gear_order"`
	ModelID   int64          `json:"modelId"`
	Type      string         `json:"type" gorm:"size:16"`
	Title     string         `json:"title" gorm:"size:255"`
	Content   string         `json:"content"`
	Position  geom.Point     `json:"position"`
	Icon      string         `json:"icon" gorm:"size:32"`
	Config    datatypes.JSON `json:"config"`
	SortOrder int            `json:"sortOrder" gorm:"index:idx_hotspot_gear_order"`
}

func (*HotspotModel) TableName() string { return "gear_hotspots" }

// TrackingModel is one analytics row.
type TrackingModel struct {
	ID          int64          `json:"id" gorm:"primarykey"`
	GearID      int64          `json:"gearId" gorm:"index:idx_tracking_gear_action"`
	UserID      int64          `json:"userId" gorm:"index:idx_tracking_user"`
	Action      string         `json:"action" gorm:"size:64;index:idx_tracking_gear_action"`
	Data        datatypes.JSON `json:"data"`
	TimeCreated time.Time      `json:"timeCreated"`
}

func (*TrackingModel) TableName() string { return "gear_tracking" }

// SessionModel is the last pose of a participant. Position and Rotation keep
// the raw payload; Location is the parsed position.
type SessionModel struct {
	ID           int64      `json:"id" gorm:"primarykey"`
	GearID       int64      `json:"gearId" gorm:"uniqueIndex:idx_session_gear_user"`
	UserID       int64      `json:"userId" gorm:"uniqueIndex:idx_session_gear_user"`
	Position     string     `json:"position"`
	Rotation     string     `json:"rotation"`
	Location     geom.Point `json:"location"`
	TimeModified time.Time  `json:"timeModified" gorm:"index:idx_session_modified"`
}

func (*SessionModel) TableName() string { return "gear_sessions" }
