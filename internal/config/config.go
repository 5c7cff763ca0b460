// Package config loads console configuration from yaml with
// environment overrides for the upstream endpoint and credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values. They are also the
// only way to pass credentials without writing them to disk.
const (
	EnvBaseURL = "BRAINZ_API_URL"
	EnvAPIKey  = "BRAINZ_API_KEY"
)

// Config represents configuration data for the console.
type Config struct {
	API      API      `yaml:"api"`
	Monitor  Monitor  `yaml:"monitor"`
	Query    Query    `yaml:"query"`
	Training Training `yaml:"training"`
	Console  Console  `yaml:"console"`
	Drafts   Drafts   `yaml:"drafts"`
}

// API locates the upstream brainz OS service.
type API struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// Monitor tunes the connection status poller.
type Monitor struct {
	BasePollMs         int `yaml:"base_poll_ms"`
	MaxPollMs          int `yaml:"max_poll_ms"`
	DegradedAboveMs    int `yaml:"degraded_threshold_ms"`
	OfflineAfter       int `yaml:"offline_failure_threshold"`
	ProbeTimeoutSec    int `yaml:"probe_timeout_seconds"`
	HistoryLimit       int `yaml:"history_limit"`
	PushIntervalSec    int `yaml:"push_interval_seconds"`
	TimelinePoints     int `yaml:"timeline_points"`
	TimelineWindowMins int `yaml:"timeline_window_minutes"`
}

// Query tunes inference requests.
type Query struct {
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	Retries        int     `yaml:"retries"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	HistoryLimit   int     `yaml:"history_limit"`
}

// Training tunes batch submission.
type Training struct {
	MinWords       int    `yaml:"min_words"`
	Dedupe         bool   `yaml:"dedupe"`
	Retries        int    `yaml:"retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	HistoryLimit   int    `yaml:"history_limit"`
	Source         string `yaml:"source"`
}

// Console configures the local HTTP server.
type Console struct {
	Addr          string `yaml:"addr"`
	AllowedOrigin string `yaml:"allowed_origin"`
}

// Drafts configures local draft persistence.
type Drafts struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns sensible defaults in case no configuration file
// is provided.
func DefaultConfig() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:8000",
		},
		Monitor: Monitor{
			BasePollMs:         3000,
			MaxPollMs:          60000,
			DegradedAboveMs:    800,
			OfflineAfter:       2,
			ProbeTimeoutSec:    4,
			HistoryLimit:       512,
			PushIntervalSec:    3,
			TimelinePoints:     80,
			TimelineWindowMins: 60,
		},
		Query: Query{
			MaxTokens:      100,
			Temperature:    0.7,
			TimeoutSeconds: 60,
			HistoryLimit:   20,
		},
		Training: Training{
			MinWords:       1,
			TimeoutSeconds: 30,
			HistoryLimit:   20,
			Source:         "console",
		},
		Console: Console{
			Addr: ":8080",
		},
		Drafts: Drafts{
			Path: filepath.Join(".dist", "data", "drafts.json"),
		},
	}
}

// Load reads configuration from a yaml file. Missing files fall back to
// defaults. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.API.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = def.API.BaseURL
	}
	if cfg.Monitor.BasePollMs <= 0 {
		cfg.Monitor.BasePollMs = def.Monitor.BasePollMs
	}
	if cfg.Monitor.MaxPollMs <= 0 {
		cfg.Monitor.MaxPollMs = def.Monitor.MaxPollMs
	}
	if cfg.Monitor.DegradedAboveMs <= 0 {
		cfg.Monitor.DegradedAboveMs = def.Monitor.DegradedAboveMs
	}
	if cfg.Monitor.OfflineAfter <= 0 {
		cfg.Monitor.OfflineAfter = def.Monitor.OfflineAfter
	}
	if cfg.Monitor.ProbeTimeoutSec <= 0 {
		cfg.Monitor.ProbeTimeoutSec = def.Monitor.ProbeTimeoutSec
	}
	if cfg.Monitor.HistoryLimit <= 0 {
		cfg.Monitor.HistoryLimit = def.Monitor.HistoryLimit
	}
	if cfg.Monitor.PushIntervalSec <= 0 {
		cfg.Monitor.PushIntervalSec = def.Monitor.PushIntervalSec
	}
	if cfg.Monitor.TimelinePoints <= 0 {
		cfg.Monitor.TimelinePoints = def.Monitor.TimelinePoints
	}
	if cfg.Monitor.TimelineWindowMins <= 0 {
		cfg.Monitor.TimelineWindowMins = def.Monitor.TimelineWindowMins
	}
	if cfg.Query.MaxTokens <= 0 {
		cfg.Query.MaxTokens = def.Query.MaxTokens
	}
	if cfg.Query.Temperature <= 0 {
		cfg.Query.Temperature = def.Query.Temperature
	}
	if cfg.Query.TimeoutSeconds <= 0 {
		cfg.Query.TimeoutSeconds = def.Query.TimeoutSeconds
	}
	if cfg.Query.HistoryLimit <= 0 {
		cfg.Query.HistoryLimit = def.Query.HistoryLimit
	}
	if cfg.Training.MinWords <= 0 {
		cfg.Training.MinWords = def.Training.MinWords
	}
	if cfg.Training.TimeoutSeconds <= 0 {
		cfg.Training.TimeoutSeconds = def.Training.TimeoutSeconds
	}
	if cfg.Training.HistoryLimit <= 0 {
		cfg.Training.HistoryLimit = def.Training.HistoryLimit
	}
	if cfg.Training.Source == "" {
		cfg.Training.Source = def.Training.Source
	}
	if cfg.Console.Addr == "" {
		cfg.Console.Addr = def.Console.Addr
	}
	if cfg.Drafts.Path == "" {
		cfg.Drafts.Path = def.Drafts.Path
	}
}

func validate(cfg Config) error {
	if cfg.Monitor.MaxPollMs < cfg.Monitor.BasePollMs {
		return fmt.Errorf("monitor max_poll_ms (%d) must not be below base_poll_ms (%d)",
			cfg.Monitor.MaxPollMs, cfg.Monitor.BasePollMs)
	}
	if cfg.Query.Retries < 0 || cfg.Training.Retries < 0 {
		return errors.New("retries must not be negative")
	}
	return nil
}
