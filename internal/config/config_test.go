package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
logging:
  level: debug
  format: json
retention:
  max_age: 30m
  sweep_interval: 1m
events:
  audit_db: ":memory:"
  nats:
    enabled: true
    url: nats://localhost:4222
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 30*time.Minute, cfg.Retention.MaxAge)
	assert.Equal(t, ":memory:", cfg.Events.AuditDB)
	assert.True(t, cfg.Events.NATS.Enabled)
	// Untouched sections keep defaults.
	assert.Equal(t, "linear", cfg.Retry.Mode)
	assert.Equal(t, "foliobuilder.builds", cfg.Events.NATS.SubjectPrefix)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FOLIOBUILDER_PORT", "7777")
	t.Setenv("FOLIOBUILDER_LOG_LEVEL", "warn")
	t.Setenv("FOLIOBUILDER_NATS_URL", "nats://example:4222")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Events.NATS.Enabled)
	assert.Equal(t, "nats://example:4222", cfg.Events.NATS.URL)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }},
		{"zero sweep interval", func(c *Config) { c.Retention.SweepInterval = 0 }},
		{"zero max age", func(c *Config) { c.Retention.MaxAge = 0 }},
		{"nats enabled without url", func(c *Config) { c.Events.NATS.Enabled = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("  WARN "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
