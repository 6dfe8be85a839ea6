package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/oncovista-opd-server/internal/domain"
)

// LiteConfig is the environment-only configuration of the MCP binary and the
// CLI. It needs no database: results are cached in memory and feedback goes to
// SQLite under DataDir.
type LiteConfig struct {
	DataDir string

	CacheMaxItems int
	CacheTTL      time.Duration
	RedisURL      string // optional shared cache tier

	Transport string // only "stdio" is served

	LogLevel  string
	LogFormat string
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()

	return &LiteConfig{
		DataDir:       filepath.Join(homeDir, ".oncovista-opd"),
		CacheMaxItems: 1000,
		CacheTTL:      24 * time.Hour,
		Transport:     "stdio",
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig reads ONCOVISTA_* environment variables over the defaults.
// Unparseable numbers and durations keep the default.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("ONCOVISTA_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ONCOVISTA_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("ONCOVISTA_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	cfg.RedisURL = os.Getenv("ONCOVISTA_REDIS_URL")

	if v := os.Getenv("ONCOVISTA_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("ONCOVISTA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ONCOVISTA_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// FeedbackDBPath returns the path to the feedback SQLite database.
func (c *LiteConfig) FeedbackDBPath() string {
	return filepath.Join(c.DataDir, "feedback.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// CacheConfig maps the lite settings onto the result cache settings
func (c *LiteConfig) CacheConfig() domain.CacheConfig {
	return domain.CacheConfig{
		Enabled:    true,
		LocalSize:  c.CacheMaxItems,
		RedisURL:   c.RedisURL,
		DefaultTTL: c.CacheTTL,
	}
}

// LoggingConfig logs to stderr since stdout carries the MCP stream
func (c *LiteConfig) LoggingConfig() domain.LoggingConfig {
	return domain.LoggingConfig{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Output: "stderr",
	}
}
