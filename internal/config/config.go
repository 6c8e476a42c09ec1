// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type PollConfig struct {
	Interval time.Duration `yaml:"interval"` // between status queries
	MaxWait  time.Duration `yaml:"max_wait"` // budget before a local timeout failure
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type SessionConfig struct {
	Path string `yaml:"path"`
	// Token is an environment-supplied bearer credential (CHOPSHOP_TOKEN).
	// When set it takes precedence over the session file, which is what lets
	// scripts and CI run authenticated commands without a login step.
	Token string `yaml:"-"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type StagingConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the listener
}

type Config struct {
	API     APIConfig     `yaml:"api"`
	Poll    PollConfig    `yaml:"poll"`
	Log     LogConfig     `yaml:"log"`
	Session SessionConfig `yaml:"session"`
	History HistoryConfig `yaml:"history"`
	Staging StagingConfig `yaml:"staging"`
	Metrics MetricsConfig `yaml:"metrics"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Load reads the YAML config at path (a missing file falls back to defaults
// unless the path was set explicitly), overlays .env / environment
// variables, and normalizes defaults.
func Load(path string, explicit, dev bool) (*Config, error) {
	var cfg Config

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	// .env is optional; the real environment always wins.
	_ = godotenv.Load()
	if v := os.Getenv("CHOPSHOP_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("CHOPSHOP_TOKEN"); v != "" {
		cfg.Session.Token = v
	}

	applyDefaults(&cfg)

	if _, err := url.Parse(cfg.API.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid api.base_url: %w", err)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:3000"
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = 15 * time.Second
	}
	if cfg.Poll.Interval <= 0 {
		cfg.Poll.Interval = 2 * time.Second
	}
	if cfg.Poll.MaxWait <= 0 {
		cfg.Poll.MaxWait = 5 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = filepath.Join(stateDir(), "session.json")
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(stateDir(), "history.db")
	}
	if cfg.Staging.MaxBytes <= 0 {
		cfg.Staging.MaxBytes = 10 << 20
	}
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return filepath.Join(stateDir(), "config.yaml")
}

func stateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chopshop"
	}
	return filepath.Join(home, ".chopshop")
}
