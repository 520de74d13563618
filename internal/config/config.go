// Package config loads postcache settings from YAML, environment and flags.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rcliao/postcache/internal/remote"
	"gopkg.in/yaml.v3"
)

// Config holds all postcache configuration.
type Config struct {
	Endpoint string        `yaml:"endpoint"`
	DBPath   string        `yaml:"db_path"`
	Timeout  time.Duration `yaml:"timeout"` // 0 keeps the http client default (none)
	Listen   string        `yaml:"listen"`
	LogLevel string        `yaml:"log_level"` // debug | info | warn | error
}

// Default returns a Config with every field defaulted.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Load resolves the config file (explicit path, then $POSTCACHE_CONFIG) and
// overlays environment variables. A missing implicit file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("POSTCACHE_CONFIG")
	}

	cfg := Default()
	if path != "" {
		var err error
		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("POSTCACHE_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("POSTCACHE_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("POSTCACHE_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("POSTCACHE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = remote.DefaultEndpoint
	}
	if c.DBPath == "" {
		home, _ := os.UserHomeDir()
		c.DBPath = filepath.Join(home, ".postcache", "posts.db")
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Level maps LogLevel onto a slog level. Unknown values mean info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
