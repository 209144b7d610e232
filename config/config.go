// Package config loads config.yaml and exposes the handful of values the
// server core consumes, plus an observer-style registry (Manager) whose
// watchers are notified when a key's value changes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort             = 10000
	DefaultAssetFolder      = "assets"
	DefaultIdleAliveSeconds = 60
)

// LogAppenderConfig configures one appender of the hierarchical logger.
type LogAppenderConfig struct {
	Type string `yaml:"type"` // "stdout" or "file"
	Path string `yaml:"path"` // used when Type == "file"
}

// LogConfig is the ambient logging block; the core never reads it directly.
type LogConfig struct {
	Level    string              `yaml:"level"`
	Pattern  string              `yaml:"pattern"`
	Appender []LogAppenderConfig `yaml:"appenders"`
}

// Config holds every value read from config.yaml.
type Config struct {
	Port             int       `yaml:"port"`
	AssetFolder      string    `yaml:"asset_folder"`
	IdleAliveSeconds int       `yaml:"idle_alive_seconds"`
	Logging          LogConfig `yaml:"logging"`
}

// IdleTimeout returns the configured idle time as a time.Duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleAliveSeconds) * time.Second
}

// Default returns a Config populated with documented defaults.
func Default() *Config {
	return &Config{
		Port:             DefaultPort,
		AssetFolder:      DefaultAssetFolder,
		IdleAliveSeconds: DefaultIdleAliveSeconds,
		Logging: LogConfig{
			Level:   "info",
			Pattern: "%d [%p] %c - %m%n",
			Appender: []LogAppenderConfig{
				{Type: "stdout"},
			},
		},
	}
}

// Load reads path as YAML into a Config seeded with defaults, so a
// partially-specified file only overrides the keys it mentions. A missing
// file or a parse failure falls back to Default() entirely; the caller is
// expected to log the error rather than refuse to start.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default(), fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.AssetFolder == "" {
		cfg.AssetFolder = DefaultAssetFolder
	}
	if cfg.IdleAliveSeconds == 0 {
		cfg.IdleAliveSeconds = DefaultIdleAliveSeconds
	}
	return cfg, nil
}

// Registry wraps a loaded Config in a Manager so callers can Watch
// individual keys ("port", "asset_folder", "idle_alive_seconds") for
// runtime reconfiguration.
func Registry(cfg *Config) *Manager {
	m := NewManager()
	m.Set("port", cfg.Port)
	m.Set("asset_folder", cfg.AssetFolder)
	m.Set("idle_alive_seconds", cfg.IdleAliveSeconds)
	m.Set("logging.level", cfg.Logging.Level)
	return m
}
