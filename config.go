package factsync

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hyperengineering/factsync/internal/store"
	"gopkg.in/yaml.v3"
)

// Config configures the factsync client.
type Config struct {
	// BaseURL is the root of the remote fact feed (e.g. https://catfact.ninja).
	// If empty, operates in offline-only mode.
	BaseURL string `env:"FACTSYNC_BASE_URL" yaml:"api_base_url"`

	// Environment names the deployment and selects the default database directory.
	// Defaults to "dev".
	Environment string `env:"FACTSYNC_ENVIRONMENT" yaml:"environment"`

	// LocalPath is the path to the local SQLite database.
	// If empty, derived from Environment.
	LocalPath string `env:"FACTSYNC_DB_PATH" yaml:"db_path"`

	// PageSize is the number of facts requested per remote page.
	// Defaults to 20.
	PageSize int `env:"FACTSYNC_PAGE_SIZE" yaml:"page_size"`

	// Timeout bounds each remote request. Defaults to 30 seconds.
	Timeout time.Duration `env:"FACTSYNC_TIMEOUT" yaml:"timeout"`

	// LogLevel is one of debug, info, error, off. Defaults to info.
	LogLevel string `env:"FACTSYNC_LOG_LEVEL" yaml:"log_level"`

	// LogPath is the file to write logs to. Defaults to stderr if empty.
	LogPath string `env:"FACTSYNC_LOG_PATH" yaml:"log_path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Environment: store.DefaultEnvironment,
		LocalPath:   store.EnvironmentDBPath(store.DefaultEnvironment),
		PageSize:    DefaultPageSize,
		Timeout:     30 * time.Second,
		LogLevel:    "info",
	}
}

// ConfigFromEnv reads configuration from environment variables.
//
//	FACTSYNC_BASE_URL     → BaseURL
//	FACTSYNC_ENVIRONMENT  → Environment
//	FACTSYNC_DB_PATH      → LocalPath
//	FACTSYNC_PAGE_SIZE    → PageSize
//	FACTSYNC_TIMEOUT      → Timeout (Go duration, e.g. "10s")
//	FACTSYNC_LOG_LEVEL    → LogLevel
//	FACTSYNC_LOG_PATH     → LogPath
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ConfigFromFile reads a YAML configuration file.
// A missing file yields an empty Config and no error.
func ConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Merge returns c with every non-zero field of override applied on top.
func (c Config) Merge(override Config) Config {
	if override.BaseURL != "" {
		c.BaseURL = override.BaseURL
	}
	if override.Environment != "" {
		c.Environment = override.Environment
	}
	if override.LocalPath != "" {
		c.LocalPath = override.LocalPath
	}
	if override.PageSize != 0 {
		c.PageSize = override.PageSize
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.LogPath != "" {
		c.LogPath = override.LogPath
	}
	return c
}

// Validate checks the configuration for errors.
// Returns *ValidationError for invalid fields.
func (c *Config) Validate() error {
	if c.LocalPath == "" {
		return &ValidationError{Field: "LocalPath", Message: "required: path to SQLite database"}
	}

	if c.Environment != "" {
		if err := store.ValidateEnvironment(c.Environment); err != nil {
			return &ValidationError{Field: "Environment", Message: err.Error()}
		}
	}

	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return &ValidationError{Field: "BaseURL", Message: "must be an absolute http(s) URL"}
		}
	}

	if c.PageSize < 0 {
		return &ValidationError{Field: "PageSize", Message: "must be non-negative"}
	}

	if c.Timeout < 0 {
		return &ValidationError{Field: "Timeout", Message: "must be non-negative"}
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Field: "LogLevel", Message: err.Error()}
	}

	return nil
}

// WithDefaults fills in default values for unset fields.
// LocalPath is derived from the resolved Environment if not explicitly set.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.Environment == "" {
		resolved, err := store.ResolveEnvironment("")
		if err == nil {
			c.Environment = resolved
		} else {
			c.Environment = defaults.Environment
		}
	}
	if c.LocalPath == "" {
		c.LocalPath = store.EnvironmentDBPath(c.Environment)
	}
	if c.PageSize == 0 {
		c.PageSize = defaults.PageSize
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}

	return c
}
