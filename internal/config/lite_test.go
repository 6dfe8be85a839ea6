package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var liteEnvVars = []string{
	"ONCOVISTA_DATA_DIR",
	"ONCOVISTA_CACHE_MAX_ITEMS",
	"ONCOVISTA_CACHE_TTL",
	"ONCOVISTA_REDIS_URL",
	"ONCOVISTA_TRANSPORT",
	"ONCOVISTA_LOG_LEVEL",
	"ONCOVISTA_LOG_FORMAT",
}

func clearLiteEnv(t *testing.T) {
	t.Helper()
	for _, v := range liteEnvVars {
		t.Setenv(v, "")
	}
}

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.Equal(t, ".oncovista-opd", filepath.Base(cfg.DataDir))
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearLiteEnv(t)
	t.Setenv("ONCOVISTA_DATA_DIR", "/tmp/opd")
	t.Setenv("ONCOVISTA_CACHE_MAX_ITEMS", "500")
	t.Setenv("ONCOVISTA_CACHE_TTL", "12h")
	t.Setenv("ONCOVISTA_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("ONCOVISTA_LOG_LEVEL", "debug")
	t.Setenv("ONCOVISTA_LOG_FORMAT", "text")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/opd", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_InvalidValuesKeepDefaults(t *testing.T) {
	clearLiteEnv(t)
	t.Setenv("ONCOVISTA_CACHE_MAX_ITEMS", "-3")
	t.Setenv("ONCOVISTA_CACHE_TTL", "forever")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.oncovista-opd"}

	assert.Equal(t, "/home/user/.oncovista-opd/feedback.db", cfg.FeedbackDBPath())
	assert.Equal(t, "/home/user/.oncovista-opd/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "opd")}

	require.NoError(t, cfg.EnsureDataDir())
	assert.DirExists(t, cfg.DataDir)
	assert.DirExists(t, cfg.ExportDir())
}

func TestLiteConfig_Derived(t *testing.T) {
	cfg := &LiteConfig{CacheMaxItems: 10, CacheTTL: time.Hour, RedisURL: "redis://x:6379", LogLevel: "warn", LogFormat: "text"}

	cache := cfg.CacheConfig()
	assert.True(t, cache.Enabled)
	assert.Equal(t, 10, cache.LocalSize)
	assert.Equal(t, time.Hour, cache.DefaultTTL)
	assert.Equal(t, "redis://x:6379", cache.RedisURL)

	logging := cfg.LoggingConfig()
	assert.Equal(t, "stderr", logging.Output)
	assert.Equal(t, "warn", logging.Level)
}
