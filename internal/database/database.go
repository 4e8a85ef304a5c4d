// Package database opens the host's GORM connection: Postgres when
// configured, otherwise SQLite on disk or in shared memory with a periodic
// dump to disk.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gearxr/gear/internal/config"
)

// Manager handles database connections and operations.
type Manager struct {
	DB     *gorm.DB
	SqlDB  *sql.DB
	Logger zerolog.Logger

	// InMemory is set when the database lives in shared memory and must be
	// dumped to DumpPath to survive a restart.
	InMemory bool
	DumpPath string
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// Connect opens the configured database. A Postgres connection that fails
// to open or ping falls back to in-memory SQLite.
func (m *Manager) Connect(storage config.StorageConfig, pg config.PostgresConfig) error {
	var err error

	if storage.Type == "postgres" {
		m.DB, err = OpenPostgres(pg)
		if err == nil {
			m.SqlDB, err = m.DB.DB()
		}
		if err == nil {
			err = m.SqlDB.Ping()
		}
		if err == nil {
			m.SqlDB.SetMaxOpenConns(10)
			m.Logger.Info().Str("host", pg.Host).Msg("Connected to Postgres")
			return nil
		}
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		storage.SQLite.Path = ""
	}

	m.DB, err = OpenSQLite(storage.SQLite.Path)
	if err != nil {
		return fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}

	if storage.SQLite.Path == "" {
		m.InMemory = true
		// a shared-memory database disappears with its last connection
		m.SqlDB.SetMaxOpenConns(1)
		m.SqlDB.SetConnMaxIdleTime(0)
		if storage.SQLite.DumpDir != "" {
			m.DumpPath = filepath.Join(storage.SQLite.DumpDir, fmt.Sprintf("gear_%s.db", time.Now().UTC().Format("20060102_150405")))
		}
		m.Logger.Info().Str("dump", m.DumpPath).Msg("Using local SQLite DB in memory with periodic disk dump")
	} else {
		m.Logger.Info().Str("path", storage.SQLite.Path).Msg("Using local SQLite DB")
	}
	return nil
}

// OpenPostgres returns a connection to the Postgres database.
func OpenPostgres(pg config.PostgresConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  pg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// OpenSQLite returns a connection to a SQLite database.
// If path is empty, a fresh shared in-memory database is used.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:gear-%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// DumpMemoryToDisk vacuums the in-memory database to DumpPath.
func (m *Manager) DumpMemoryToDisk() error {
	if m.DumpPath == "" {
		return fmt.Errorf("sqlite dump path not set")
	}
	start := time.Now()
	if err := DumpSQLite(m.DB, m.DumpPath); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Str("path", m.DumpPath).Msg("Dumped memory DB to disk")
	return nil
}

// RunDumpLoop dumps the in-memory database every interval until ctx is done,
// and once more on the way out. Failures are logged and the loop continues.
func (m *Manager) RunDumpLoop(ctx context.Context, interval time.Duration) {
	if !m.InMemory || m.DumpPath == "" || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := m.DumpMemoryToDisk(); err != nil {
				m.Logger.Error().Err(err).Msg("Final memory DB dump failed")
			}
			return
		case <-ticker.C:
			if err := m.DumpMemoryToDisk(); err != nil {
				m.Logger.Error().Err(err).Msg("Memory DB dump failed")
			}
		}
	}
}

// Close closes the underlying connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}

// DumpSQLite vacuums db into a file, replacing any previous dump.
func DumpSQLite(db *gorm.DB, path string) error {
	if path == "" {
		return fmt.Errorf("sqlite file path not set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating dump directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}
	if err := db.Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}
