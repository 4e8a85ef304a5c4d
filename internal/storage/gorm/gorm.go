// Package gormstorage implements the host stores on GORM. The same code
// serves SQLite and Postgres; the connection comes from internal/database.
package gormstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gearxr/gear/internal/geo"
	"github.com/gearxr/gear/internal/parser"
	"github.com/gearxr/gear/internal/storage"
	"github.com/gearxr/gear/pkg/core"
)

// Dependencies holds all dependencies for the GORM backend
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// Backend implements storage.Store and storage.PresenceStore.
type Backend struct {
	db     *gorm.DB
	logger *slog.Logger
	parser *parser.Parser
}

var (
	_ storage.Store         = (*Backend)(nil)
	_ storage.PresenceStore = (*Backend)(nil)
)

// New creates a new GORM storage backend
func New(deps Dependencies) *Backend {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		db:     deps.DB,
		logger: logger,
		parser: parser.NewParser(logger),
	}
}

// Init migrates the schema.
func (b *Backend) Init(ctx context.Context) error {
	if err := b.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.logger.Info("Storage schema ready", "dialect", b.db.Dialector.Name())
	return nil
}

// Close is a no-op; the connection belongs to the database manager.
func (b *Backend) Close() error {
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// SaveActivity inserts (ID 0) or replaces an activity.
func (b *Backend) SaveActivity(ctx context.Context, a *storage.Activity) error {
	m := activityToModel(*a)
	if err := b.db.WithContext(ctx).Save(&m).Error; err != nil {
		return fmt.Errorf("saving activity: %w", err)
	}
	a.ID = m.ID
	return nil
}

// Activity returns the activity with the given gear id.
func (b *Backend) Activity(ctx context.Context, gearID int64) (storage.Activity, error) {
	var m ActivityModel
	if err := b.db.WithContext(ctx).First(&m, gearID).Error; err != nil {
		return storage.Activity{}, notFound(err)
	}
	return modelToActivity(m), nil
}

// ActivityByCMID returns the activity embedded by the given course module.
func (b *Backend) ActivityByCMID(ctx context.Context, cmid int64) (storage.Activity, error) {
	var m ActivityModel
	if err := b.db.WithContext(ctx).Where("cmid = ?", cmid).First(&m).Error; err != nil {
		return storage.Activity{}, notFound(err)
	}
	return modelToActivity(m), nil
}

// SaveUser inserts (ID 0) or replaces a user.
func (b *Backend) SaveUser(ctx context.Context, u *storage.User) error {
	m := userToModel(*u)
	if err := b.db.WithContext(ctx).Save(&m).Error; err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	u.ID = m.ID
	return nil
}

// UserByToken looks a user up by bearer token.
func (b *Backend) UserByToken(ctx context.Context, token string) (storage.User, error) {
	if token == "" {
		return storage.User{}, storage.ErrNotFound
	}
	var m UserModel
	if err := b.db.WithContext(ctx).Where("token = ?", token).First(&m).Error; err != nil {
		return storage.User{}, notFound(err)
	}
	return modelToUser(m), nil
}

// UsersByID returns the known users among ids.
func (b *Backend) UsersByID(ctx context.Context, ids []int64) (map[int64]storage.User, error) {
	out := make(map[int64]storage.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []UserModel
	if err := b.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	for _, m := range rows {
		out[m.ID] = modelToUser(m)
	}
	return out, nil
}

// Hotspots returns the hotspots of an activity ordered by sort order.
func (b *Backend) Hotspots(ctx context.Context, gearID int64) ([]core.Hotspot, error) {
	var rows []HotspotModel
	err := b.db.WithContext(ctx).
		Where("gear_id = ?", gearID).
		Order("sort_order ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading hotspots: %w", err)
	}
	out := make([]core.Hotspot, 0, len(rows))
	for _, m := range rows {
		out = append(out, modelToHotspot(m))
	}
	return out, nil
}

// Hotspot returns one hotspot.
func (b *Backend) Hotspot(ctx context.Context, id int64) (core.Hotspot, error) {
	var m HotspotModel
	if err := b.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return core.Hotspot{}, notFound(err)
	}
	return modelToHotspot(m), nil
}

// SaveHotspot inserts (ID 0) or updates a hotspot. Inserts take the next sort
// order of the activity inside the same transaction.
func (b *Backend) SaveHotspot(ctx context.Context, h *core.Hotspot) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := hotspotToModel(*h)

		if h.ID == 0 {
			var maxOrder sql.NullInt64
			err := tx.Model(&HotspotModel{}).
				Where("gear_id = ?", h.GearID).
				Select("MAX(sort_order)").
				Row().Scan(&maxOrder)
			if err != nil {
				return fmt.Errorf("reading sort order: %w", err)
			}
			m.SortOrder = 0
			if maxOrder.Valid {
				m.SortOrder = int(maxOrder.Int64) + 1
			}
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("inserting hotspot: %w", err)
			}
			h.ID = m.ID
			h.SortOrder = m.SortOrder
			return nil
		}

		var existing HotspotModel
		if err := tx.Select("id", "sort_order").First(&existing, h.ID).Error; err != nil {
			return notFound(err)
		}
		err := tx.Model(&existing).
			Select("gear_id", "model_id", "type", "title", "content", "position", "icon", "config").
			Updates(&m).Error
		if err != nil {
			return fmt.Errorf("updating hotspot: %w", err)
		}
		h.SortOrder = existing.SortOrder
		return nil
	})
}

// DeleteHotspot removes a hotspot.
func (b *Backend) DeleteHotspot(ctx context.Context, id int64) error {
	res := b.db.WithContext(ctx).Delete(&HotspotModel{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting hotspot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddTracking inserts tracking rows in batches.
func (b *Backend) AddTracking(ctx context.Context, recs ...storage.TrackingRecord) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]TrackingModel, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, trackingToModel(r))
	}
	if err := b.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("inserting tracking rows: %w", err)
	}
	return nil
}

// Tracking returns the rows of an activity with the given action, oldest
// first. An empty action matches every row.
func (b *Backend) Tracking(ctx context.Context, gearID int64, action string) ([]storage.TrackingRecord, error) {
	q := b.db.WithContext(ctx).Where("gear_id = ?", gearID)
	if action != "" {
		q = q.Where("action = ?", action)
	}
	var rows []TrackingModel
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading tracking rows: %w", err)
	}
	out := make([]storage.TrackingRecord, 0, len(rows))
	for _, m := range rows {
		out = append(out, modelToTracking(m))
	}
	return out, nil
}

// Touch upserts the caller's session row.
func (b *Backend) Touch(ctx context.Context, rec storage.PresenceRecord) error {
	pos, _ := b.parser.ParseVec3(rec.Position, core.Vec3{})
	m := SessionModel{
		GearID:       rec.GearID,
		UserID:       rec.UserID,
		Position:     rec.Position,
		Rotation:     rec.Rotation,
		Location:     geo.PointFromVec3(pos),
		TimeModified: rec.LastSeen.UTC(),
	}
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gear_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"position", "rotation", "location", "time_modified"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	return nil
}

// Active returns the sessions of gearID modified after since, ordered by user id.
func (b *Backend) Active(ctx context.Context, gearID int64, since time.Time) ([]storage.PresenceRecord, error) {
	var rows []SessionModel
	err := b.db.WithContext(ctx).
		Where("gear_id = ? AND time_modified > ?", gearID, since.UTC()).
		Order("user_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}
	out := make([]storage.PresenceRecord, 0, len(rows))
	for _, m := range rows {
		out = append(out, modelToPresence(m))
	}
	return out, nil
}

// Sweep deletes sessions last modified before the cutoff.
func (b *Backend) Sweep(ctx context.Context, before time.Time) (int, error) {
	res := b.db.WithContext(ctx).Where("time_modified < ?", before.UTC()).Delete(&SessionModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweeping sessions: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
