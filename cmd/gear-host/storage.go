package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gearxr/gear/internal/config"
	"github.com/gearxr/gear/internal/database"
	"github.com/gearxr/gear/internal/storage"
	gormstorage "github.com/gearxr/gear/internal/storage/gorm"
	redisstorage "github.com/gearxr/gear/internal/storage/redis"
)

// openStore connects the configured database and migrates it.
func openStore(ctx context.Context) (*database.Manager, *gormstorage.Backend, error) {
	dbm := database.NewManager(ZLog)
	if err := dbm.Connect(config.GetStorageConfig(), config.GetPostgresConfig()); err != nil {
		return nil, nil, err
	}

	store := gormstorage.New(gormstorage.Dependencies{DB: dbm.DB, Logger: Logger})
	if err := store.Init(ctx); err != nil {
		_ = dbm.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	return dbm, store, nil
}

// createPresenceStore selects the presence backend. The database backend
// doubles as the presence store unless redis is configured.
func createPresenceStore(ctx context.Context, store *gormstorage.Backend, cfg config.PresenceConfig, freshness time.Duration) (storage.PresenceStore, error) {
	switch strings.ToLower(cfg.Store) {
	case "", "gorm":
		Logger.Info("Presence stored in the database")
		return store, nil
	case "redis":
		// records outlive the freshness window so a late sweep still sees them
		b, err := redisstorage.New(ctx, config.GetRedisConfig(), 3*freshness)
		if err != nil {
			return nil, err
		}
		Logger.Info("Presence stored in redis", "addr", config.GetRedisConfig().Addr)
		return b, nil
	default:
		return nil, fmt.Errorf("unknown presence store %q", cfg.Store)
	}
}
