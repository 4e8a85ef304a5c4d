package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"host": { "listen": ":9090" },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, ":9090", GetHostConfig().Listen)

	pg := GetPostgresConfig()
	assert.Equal(t, "10.0.0.1", pg.Host)
	assert.Equal(t, "5433", pg.Port)
	assert.Equal(t, "gear", pg.Database, "unset keys of a partial section keep defaults")
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./gearlogs", viper.GetString("logsDir"))

	host := GetHostConfig()
	assert.Equal(t, ":8080", host.Listen)
	assert.Equal(t, 10*time.Second, host.Freshness)
	assert.Equal(t, time.Minute, host.SweepInterval)

	viewer := GetViewerConfig()
	assert.Equal(t, "http://localhost:8080", viewer.ServerURL)
	assert.Empty(t, viewer.Token)
	assert.Equal(t, 10, viewer.LeaderboardLimit)

	presence := GetPresenceConfig()
	assert.Equal(t, 2*time.Second, presence.Interval)
	assert.Equal(t, "gorm", presence.Store)

	storage := GetStorageConfig()
	assert.Equal(t, "sqlite", storage.Type)
	assert.Empty(t, storage.SQLite.Path)
	assert.Equal(t, 3*time.Minute, storage.SQLite.DumpInterval)

	redis := GetRedisConfig()
	assert.Equal(t, "localhost:6379", redis.Addr)
	assert.Zero(t, redis.DB)

	influx := GetInfluxConfig()
	assert.False(t, influx.Enabled)
	assert.Equal(t, "http://localhost:8086", influx.ServerURL())

	ai := GetAIConfig()
	assert.False(t, ai.Enabled)
	assert.Equal(t, "gpt-3.5-turbo", ai.Model)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", ai.Endpoint)

	gl := GetGraylogConfig()
	assert.False(t, gl.Enabled)
	assert.Equal(t, "localhost:12201", gl.Address)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestPostgresConfig_DSN(t *testing.T) {
	pg := PostgresConfig{Host: "db", Port: "5432", Username: "u", Password: "p", Database: "gear"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=gear sslmode=disable", pg.DSN())
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "postgres",
			"sqlite": { "path": "/var/lib/gear.db", "dumpInterval": "10m" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "postgres", sc.Type)
	assert.Equal(t, "/var/lib/gear.db", sc.SQLite.Path)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "gear", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "gear-host",
			"batchTimeout": "30s",
			"endpoint": "localhost:4318",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "gear-host", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetAIConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{"ai": {"enabled": true, "apiKey": "sk-test", "model": "gpt-4o-mini"}}`)))

	ai := GetAIConfig()
	assert.True(t, ai.Enabled)
	assert.Equal(t, "sk-test", ai.APIKey)
	assert.Equal(t, "gpt-4o-mini", ai.Model)
	assert.Equal(t, time.Minute, ai.Timeout)
}
