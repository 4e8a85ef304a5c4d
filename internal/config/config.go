// Package config loads gear.cfg.json through viper and exposes typed views
// of its sections.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "gear.cfg.json"

// HostConfig holds the reference host settings.
type HostConfig struct {
	Listen        string        `json:"listen" mapstructure:"listen"`
	Freshness     time.Duration `json:"freshness" mapstructure:"freshness"`
	SweepInterval time.Duration `json:"sweepInterval" mapstructure:"sweepInterval"`
	DataDir       string        `json:"dataDir" mapstructure:"dataDir"`
}

// ViewerConfig holds the headless viewer settings.
type ViewerConfig struct {
	ServerURL        string        `json:"serverUrl" mapstructure:"serverUrl"`
	Token            string        `json:"token" mapstructure:"token"`
	LeaderboardLimit int           `json:"leaderboardLimit" mapstructure:"leaderboardLimit"`
	FrameInterval    time.Duration `json:"frameInterval" mapstructure:"frameInterval"`
}

// PresenceConfig holds the heartbeat settings of both sides.
type PresenceConfig struct {
	Interval time.Duration `json:"interval" mapstructure:"interval"`
	// Store selects the host presence backend: gorm or redis.
	Store string `json:"store" mapstructure:"store"`
}

// SQLiteConfig holds SQLite storage settings. An empty Path keeps the
// database in shared memory and dumps it to DumpDir every DumpInterval.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpDir      string        `json:"dumpDir" mapstructure:"dumpDir"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects the host database.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// PostgresConfig holds the Postgres connection settings.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN returns the Postgres connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// RedisConfig holds the Redis presence store settings.
type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
}

// InfluxConfig holds the analytics sink settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// ServerURL returns protocol://host:port.
func (c InfluxConfig) ServerURL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// AIConfig holds the content generation settings.
type AIConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	APIKey   string        `json:"apiKey" mapstructure:"apiKey"`
	Model    string        `json:"model" mapstructure:"model"`
	Endpoint string        `json:"endpoint" mapstructure:"endpoint"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// OTelConfig holds OpenTelemetry configuration.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GraylogConfig holds the GELF log destination.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./gearlogs")

	viper.SetDefault("host.listen", ":8080")
	viper.SetDefault("host.freshness", "10s")
	viper.SetDefault("host.sweepInterval", "1m")
	viper.SetDefault("host.dataDir", "./geardata")

	viper.SetDefault("viewer.serverUrl", "http://localhost:8080")
	viper.SetDefault("viewer.token", "")
	viper.SetDefault("viewer.leaderboardLimit", 10)
	viper.SetDefault("viewer.frameInterval", "16ms")

	viper.SetDefault("presence.interval", "2s")
	viper.SetDefault("presence.store", "gorm")

	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpDir", "./geardata")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "gear")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "gear")
	viper.SetDefault("influx.bucket", "gear-events")

	viper.SetDefault("ai.enabled", false)
	viper.SetDefault("ai.apiKey", "")
	viper.SetDefault("ai.model", "gpt-3.5-turbo")
	viper.SetDefault("ai.endpoint", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("ai.timeout", "60s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "gear")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetHostConfig returns the host section.
func GetHostConfig() HostConfig {
	return HostConfig{
		Listen:        viper.GetString("host.listen"),
		Freshness:     viper.GetDuration("host.freshness"),
		SweepInterval: viper.GetDuration("host.sweepInterval"),
		DataDir:       viper.GetString("host.dataDir"),
	}
}

// GetViewerConfig returns the viewer section.
func GetViewerConfig() ViewerConfig {
	return ViewerConfig{
		ServerURL:        viper.GetString("viewer.serverUrl"),
		Token:            viper.GetString("viewer.token"),
		LeaderboardLimit: viper.GetInt("viewer.leaderboardLimit"),
		FrameInterval:    viper.GetDuration("viewer.frameInterval"),
	}
}

// GetPresenceConfig returns the presence section.
func GetPresenceConfig() PresenceConfig {
	return PresenceConfig{
		Interval: viper.GetDuration("presence.interval"),
		Store:    viper.GetString("presence.store"),
	}
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpDir:      viper.GetString("storage.sqlite.dumpDir"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetPostgresConfig returns the db section.
func GetPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetRedisConfig returns the redis section.
func GetRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	}
}

// GetInfluxConfig returns the influx section.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetAIConfig returns the ai section.
func GetAIConfig() AIConfig {
	return AIConfig{
		Enabled:  viper.GetBool("ai.enabled"),
		APIKey:   viper.GetString("ai.apiKey"),
		Model:    viper.GetString("ai.model"),
		Endpoint: viper.GetString("ai.endpoint"),
		Timeout:  viper.GetDuration("ai.timeout"),
	}
}

// GetOTelConfig returns the OpenTelemetry section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the graylog section.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
