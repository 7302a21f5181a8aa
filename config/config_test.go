package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "progress.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 3*time.Second, cfg.HTTP.HealthTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Redis.SnapshotTTL)
	assert.Equal(t, 5*time.Second, cfg.Progression.SaveTimeout)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
	assert.Empty(t, cfg.Progression.CatalogPath)
	assert.Equal(t, 30*time.Minute, cfg.Progression.SessionIdleTimeout)
	assert.Equal(t, time.Minute, cfg.Progression.EvictInterval)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"APP_ENV":            "production",
		"STORAGE_DRIVER":     "postgres",
		"DATABASE_URL":       "postgres://u:p@db:5432/progress",
		"REDIS_DISABLED":     "true",
		"REDIS_SNAPSHOT_TTL": "30m",
		"HTTP_PORT":          "9000",
		"CATALOG_PATH":       "/etc/progress/catalog.yaml",
		"LOG_LEVEL":          "debug",
		"LOG_FORMAT":         "text",
	})
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.True(t, cfg.Redis.Disabled)
	assert.Equal(t, 30*time.Minute, cfg.Redis.SnapshotTTL)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, "/etc/progress/catalog.yaml", cfg.Progression.CatalogPath)
}

func TestLoadFrom_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without url": {"STORAGE_DRIVER": "postgres"},
		"unknown driver":       {"STORAGE_DRIVER": "mongo"},
		"sqlite in production": {"APP_ENV": "production"},
		"bad env":              {"APP_ENV": "qa"},
		"bad port":             {"HTTP_PORT": "0"},
		"bad duration":         {"SAVE_TIMEOUT": "soon"},
		"bad log level":        {"LOG_LEVEL": "trace"},
		"negative idle":        {"SESSION_IDLE_TIMEOUT": "-1m"},
		"zero evict interval":  {"SESSION_EVICT_INTERVAL": "0s"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(vars)
			assert.Error(t, err)
		})
	}
}
