// Package config loads folio settings from defaults, an optional YAML file,
// a .env file and FOLIO_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mycelica/folio/internal/logging"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "folio.yaml"

// Config holds all runtime settings.
type Config struct {
	Database         string        `yaml:"database"`
	Principal        string        `yaml:"principal"`
	SlugMaxAttempts  int           `yaml:"slug_max_attempts"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	StaleDays        int64         `yaml:"stale_days"`
	Log              LogConfig     `yaml:"log"`
	Metrics          MetricsConfig `yaml:"metrics"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in settings.
func Default() *Config {
	principal := os.Getenv("USER")
	if principal == "" {
		principal = "anonymous"
	}
	return &Config{
		Principal:        principal,
		SlugMaxAttempts:  100,
		AutosaveInterval: time.Second,
		StaleDays:        90,
		Log: LogConfig{
			Level:  "warn",
			Format: logging.FormatConsole,
		},
	}
}

// Load builds the configuration. path may be empty; then FOLIO_CONFIG and
// DefaultFile are tried, and a missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv("FOLIO_CONFIG"); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultFile
		}
	}
	if err := cfg.readFile(path, explicit); err != nil {
		return nil, err
	}

	// .env never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FOLIO_DB"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("FOLIO_PRINCIPAL"); v != "" {
		c.Principal = v
	}
	if v := os.Getenv("FOLIO_SLUG_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FOLIO_SLUG_MAX_ATTEMPTS: %w", err)
		}
		c.SlugMaxAttempts = n
	}
	if v := os.Getenv("FOLIO_AUTOSAVE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FOLIO_AUTOSAVE_INTERVAL: %w", err)
		}
		c.AutosaveInterval = d
	}
	if v := os.Getenv("FOLIO_STALE_DAYS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FOLIO_STALE_DAYS: %w", err)
		}
		c.StaleDays = n
	}
	if v := os.Getenv("FOLIO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FOLIO_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("FOLIO_METRICS_TEXTFILE"); v != "" {
		c.Metrics.Textfile = v
	}
	return nil
}

// Validate rejects settings the components cannot work with.
func (c *Config) Validate() error {
	if c.SlugMaxAttempts <= 0 {
		return fmt.Errorf("slug_max_attempts must be positive, got %d", c.SlugMaxAttempts)
	}
	if c.AutosaveInterval <= 0 {
		return fmt.Errorf("autosave_interval must be positive, got %s", c.AutosaveInterval)
	}
	if c.StaleDays <= 0 {
		return fmt.Errorf("stale_days must be positive, got %d", c.StaleDays)
	}
	switch c.Log.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("log.format must be %q or %q, got %q", logging.FormatConsole, logging.FormatJSON, c.Log.Format)
	}
	return nil
}
