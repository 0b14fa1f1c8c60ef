// Package config loads and validates the server configuration from YAML,
// with environment variable overrides for deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retry     RetryConfig     `yaml:"retry"`
	Retention RetentionConfig `yaml:"retention"`
	Events    EventsConfig    `yaml:"events"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// RetryConfig configures worker retry behavior for transient failures.
type RetryConfig struct {
	Mode       string        `yaml:"mode"` // fixed|linear|exponential
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	MaxRetries int           `yaml:"max_retries"`
}

// RetentionConfig configures how long finished builds are kept in memory.
type RetentionConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxAge        time.Duration `yaml:"max_age"`
}

// EventsConfig configures optional event mirroring.
type EventsConfig struct {
	// AuditDB is the SQLite path for the event audit log. Empty disables
	// persistence; ":memory:" keeps it per-process.
	AuditDB string `yaml:"audit_db"`

	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig configures the optional NATS event bridge.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Stream        string `yaml:"stream"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0, // streaming endpoints need an open write side
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Retry: RetryConfig{
			Mode:       "linear",
			Initial:    500 * time.Millisecond,
			Max:        10 * time.Second,
			MaxRetries: 2,
		},
		Retention: RetentionConfig{
			SweepInterval: 10 * time.Minute,
			MaxAge:        2 * time.Hour,
		},
		Events: EventsConfig{
			NATS: NATSConfig{
				SubjectPrefix: "foliobuilder.builds",
				Stream:        "FOLIOBUILDER_EVENTS",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads the configuration file, falling back to defaults when the path
// does not exist. A .env file next to the working directory is loaded first;
// existing process environment wins over .env contents.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus env overrides are a complete configuration.
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps FOLIOBUILDER_* variables onto the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FOLIOBUILDER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FOLIOBUILDER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FOLIOBUILDER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FOLIOBUILDER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FOLIOBUILDER_AUDIT_DB"); v != "" {
		cfg.Events.AuditDB = v
	}
	if v := os.Getenv("FOLIOBUILDER_NATS_URL"); v != "" {
		cfg.Events.NATS.Enabled = true
		cfg.Events.NATS.URL = v
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max_retries must not be negative")
	}
	if c.Retention.SweepInterval <= 0 {
		return fmt.Errorf("retention sweep_interval must be positive")
	}
	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention max_age must be positive")
	}
	if c.Events.NATS.Enabled && c.Events.NATS.URL == "" {
		return fmt.Errorf("events.nats.url is required when the NATS bridge is enabled")
	}
	return nil
}
