// Package config provides configuration loading and management for dicomsync.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the complete dicomsync configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Scratch ScratchConfig `yaml:"scratch"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// ScratchConfig configures where probe writes and archive extraction land.
type ScratchConfig struct {
	// Dir is the scratch root (default: system temp directory).
	Dir string `yaml:"dir"`
}

// MetricsConfig configures the Prometheus counters.
type MetricsConfig struct {
	// Enabled registers the updater counters when true.
	Enabled bool `yaml:"enabled"`
	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log:     LogConfig{Level: "info"},
		Scratch: ScratchConfig{Dir: ""}, // system temp
		Metrics: MetricsConfig{Enabled: false, Namespace: "dicomsync"},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required when metrics are enabled")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, layered over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Scratch.Dir != "" {
		c.Scratch.Dir = other.Scratch.Dir
	}
	if other.Metrics.Enabled {
		c.Metrics.Enabled = true
	}
	if other.Metrics.Namespace != "" {
		c.Metrics.Namespace = other.Metrics.Namespace
	}
}
