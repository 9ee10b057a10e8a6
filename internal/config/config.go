// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `json:"server" koanf:"server"`
	Logging    LoggingConfig    `json:"logging" koanf:"logging"`
	Storage    StorageConfig    `json:"storage" koanf:"storage"`
	Scoring    ScoringConfig    `json:"scoring" koanf:"scoring"`
	Detector   DetectorConfig   `json:"detector" koanf:"detector"`
	Reputation ReputationConfig `json:"reputation" koanf:"reputation"`
	Fanout     FanoutConfig     `json:"fanout" koanf:"fanout"`
	Audit      AuditConfig      `json:"audit" koanf:"audit"`
	Security   SecurityConfig   `json:"security" koanf:"security"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `json:"host" koanf:"host"`
	Port            int           `json:"port" koanf:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" koanf:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" koanf:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" koanf:"shutdown_timeout"`
}

// LoggingConfig controls structured logging output.
type LoggingConfig struct {
	Level  string `json:"level" koanf:"level"`
	Format string `json:"format" koanf:"format"`
	Caller bool   `json:"caller" koanf:"caller"`
}

// StorageConfig holds the embedded database settings.
type StorageConfig struct {
	// Path is the Badger data directory. Ignored when InMemory is set.
	Path     string `json:"path" koanf:"path"`
	InMemory bool   `json:"in_memory" koanf:"in_memory"`
}

// ScoringConfig tunes the scoring pipeline.
type ScoringConfig struct {
	// KeySalt is mixed into resource key derivation. Changing it
	// invalidates all cached verdicts.
	KeySalt string `json:"key_salt" koanf:"key_salt"`

	// CacheTTL is how long a cached verdict stays fresh.
	CacheTTL time.Duration `json:"cache_ttl" koanf:"cache_ttl"`
}

// DetectorConfig holds the external AI image detector settings.
type DetectorConfig struct {
	Enabled bool   `json:"enabled" koanf:"enabled"`
	BaseURL string `json:"base_url" koanf:"base_url"`
	APIKey  string `json:"api_key" koanf:"api_key"`

	// WaitTimeout bounds how long a scoring request waits for a
	// detector result before degrading.
	WaitTimeout time.Duration `json:"wait_timeout" koanf:"wait_timeout"`

	// PollInterval is the delay between result polls.
	PollInterval time.Duration `json:"poll_interval" koanf:"poll_interval"`
}

// ReputationConfig holds the URL reputation lookup settings.
type ReputationConfig struct {
	Enabled  bool          `json:"enabled" koanf:"enabled"`
	BaseURL  string        `json:"base_url" koanf:"base_url"`
	APIKey   string        `json:"api_key" koanf:"api_key"`
	Timeout  time.Duration `json:"timeout" koanf:"timeout"`
	CacheTTL time.Duration `json:"cache_ttl" koanf:"cache_ttl"`
}

// FanoutConfig tunes the background persistence worker.
type FanoutConfig struct {
	QueueSize         int           `json:"queue_size" koanf:"queue_size"`
	WriteTimeout      time.Duration `json:"write_timeout" koanf:"write_timeout"`
	HighRiskThreshold int           `json:"high_risk_threshold" koanf:"high_risk_threshold"`
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	Enabled         bool          `json:"enabled" koanf:"enabled"`
	RetentionDays   int           `json:"retention_days" koanf:"retention_days"`
	BufferSize      int           `json:"buffer_size" koanf:"buffer_size"`
	CleanupInterval time.Duration `json:"cleanup_interval" koanf:"cleanup_interval"`
	LogToStdout     bool          `json:"log_to_stdout" koanf:"log_to_stdout"`
}

// SecurityConfig holds HTTP-facing security settings.
type SecurityConfig struct {
	CORSOrigins     []string      `json:"cors_origins" koanf:"cors_origins"`
	RateLimitReqs   int           `json:"rate_limit_reqs" koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `json:"rate_limit_window" koanf:"rate_limit_window"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8742,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Storage: StorageConfig{
			Path:     "/data/sitewarden",
			InMemory: false,
		},
		Scoring: ScoringConfig{
			KeySalt:  "",
			CacheTTL: 24 * time.Hour,
		},
		Detector: DetectorConfig{
			Enabled:      false,
			BaseURL:      "",
			APIKey:       "",
			WaitTimeout:  25 * time.Second,
			PollInterval: 2 * time.Second,
		},
		Reputation: ReputationConfig{
			Enabled:  false,
			BaseURL:  "",
			APIKey:   "",
			Timeout:  5 * time.Second,
			CacheTTL: 15 * time.Minute,
		},
		Fanout: FanoutConfig{
			QueueSize:         1024,
			WriteTimeout:      5 * time.Second,
			HighRiskThreshold: 90,
		},
		Audit: AuditConfig{
			Enabled:         true,
			RetentionDays:   90,
			BufferSize:      1000,
			CleanupInterval: 24 * time.Hour,
			LogToStdout:     false,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
	}
}
