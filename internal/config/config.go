package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arcdump/arcdump/pkg/arcgis"
)

// Config defines configuration for the arcdump CLI.
type Config struct {
	// URL is the feature service base URL.
	URL string `yaml:"url"`

	// Destination is the output directory (or bucket URL).
	Destination string `yaml:"destination"`

	// Format selects csv or geojson output.
	Format arcgis.Format `yaml:"format"`

	// SpatialRef overrides the output spatial reference WKID.
	SpatialRef int64 `yaml:"spatial_ref"`

	// Concurrency is the chunk fetch worker ceiling.
	Concurrency int `yaml:"concurrency"`

	// MaxTries is the attempt budget per chunk.
	MaxTries int `yaml:"max_tries"`

	// RetryDelay is the fixed delay between attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// HTTPTimeout bounds each fetch attempt.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogPretty enables human-readable console logs.
	LogPretty bool `yaml:"log_pretty"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Format:      arcgis.FormatCSV,
		Concurrency: 10,
		MaxTries:    5,
		RetryDelay:  10 * time.Second,
		HTTPTimeout: 30 * time.Second,
		LogLevel:    "info",
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	URL         string `yaml:"url"`
	Destination string `yaml:"destination"`
	Format      string `yaml:"format"`
	SpatialRef  int64  `yaml:"spatial_ref"`
	Concurrency int    `yaml:"concurrency"`
	MaxTries    int    `yaml:"max_tries"`
	RetryDelay  string `yaml:"retry_delay"`
	HTTPTimeout string `yaml:"http_timeout"`
	LogLevel    string `yaml:"log_level"`
	LogPretty   bool   `yaml:"log_pretty"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.URL != "" {
		cfg.URL = yc.URL
	}
	if yc.Destination != "" {
		cfg.Destination = yc.Destination
	}
	if yc.Format != "" {
		format, err := ParseFormat(yc.Format)
		if err != nil {
			return Config{}, fmt.Errorf("parse format: %w", err)
		}
		cfg.Format = format
	}
	if yc.SpatialRef != 0 {
		cfg.SpatialRef = yc.SpatialRef
	}
	if yc.Concurrency != 0 {
		cfg.Concurrency = yc.Concurrency
	}
	if yc.MaxTries != 0 {
		cfg.MaxTries = yc.MaxTries
	}
	if yc.RetryDelay != "" {
		d, err := time.ParseDuration(yc.RetryDelay)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry_delay: %w", err)
		}
		cfg.RetryDelay = d
	}
	if yc.HTTPTimeout != "" {
		d, err := time.ParseDuration(yc.HTTPTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse http_timeout: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	cfg.LogPretty = yc.LogPretty

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the ARCDUMP_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("ARCDUMP_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("ARCDUMP_DESTINATION"); v != "" {
		c.Destination = v
	}
	if v := os.Getenv("ARCDUMP_FORMAT"); v != "" {
		format, err := ParseFormat(v)
		if err != nil {
			return fmt.Errorf("parse ARCDUMP_FORMAT: %w", err)
		}
		c.Format = format
	}
	if v := os.Getenv("ARCDUMP_SPATIAL_REF"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse ARCDUMP_SPATIAL_REF: %w", err)
		}
		c.SpatialRef = n
	}
	if v := os.Getenv("ARCDUMP_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ARCDUMP_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	if v := os.Getenv("ARCDUMP_MAX_TRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ARCDUMP_MAX_TRIES: %w", err)
		}
		c.MaxTries = n
	}
	if v := os.Getenv("ARCDUMP_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ARCDUMP_RETRY_DELAY: %w", err)
		}
		c.RetryDelay = d
	}
	if v := os.Getenv("ARCDUMP_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ARCDUMP_HTTP_TIMEOUT: %w", err)
		}
		c.HTTPTimeout = d
	}
	if v := os.Getenv("ARCDUMP_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ARCDUMP_LOG_PRETTY"); v != "" {
		c.LogPretty = v == "true" || v == "1"
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("config: url is required")
	}
	if c.Destination == "" {
		return errors.New("config: destination is required")
	}
	if c.Format != arcgis.FormatCSV && c.Format != arcgis.FormatGeoJSON {
		return fmt.Errorf("config: unknown format %q", c.Format)
	}
	if c.Concurrency <= 0 {
		return errors.New("config: concurrency must be positive")
	}
	if c.MaxTries <= 0 {
		return errors.New("config: max_tries must be positive")
	}
	if c.RetryDelay < 0 {
		return errors.New("config: retry_delay must not be negative")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("config: http_timeout must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.URL != "" {
		c.URL = override.URL
	}
	if override.Destination != "" {
		c.Destination = override.Destination
	}
	if override.Format != "" {
		c.Format = override.Format
	}
	if override.SpatialRef != 0 {
		c.SpatialRef = override.SpatialRef
	}
	if override.Concurrency != 0 {
		c.Concurrency = override.Concurrency
	}
	if override.MaxTries != 0 {
		c.MaxTries = override.MaxTries
	}
	if override.RetryDelay != 0 {
		c.RetryDelay = override.RetryDelay
	}
	if override.HTTPTimeout != 0 {
		c.HTTPTimeout = override.HTTPTimeout
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.LogPretty {
		c.LogPretty = override.LogPretty
	}
	return c
}

// ParseFormat decodes an output format name.
func ParseFormat(s string) (arcgis.Format, error) {
	switch arcgis.Format(s) {
	case arcgis.FormatCSV, arcgis.FormatGeoJSON:
		return arcgis.Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (expected csv or geojson)", s)
	}
}
