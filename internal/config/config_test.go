// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 8742 {
		t.Errorf("Server.Port = %d, want 8742", cfg.Server.Port)
	}
	if cfg.Scoring.CacheTTL != 24*time.Hour {
		t.Errorf("Scoring.CacheTTL = %v, want 24h", cfg.Scoring.CacheTTL)
	}
	if cfg.Fanout.HighRiskThreshold != 90 {
		t.Errorf("Fanout.HighRiskThreshold = %d, want 90", cfg.Fanout.HighRiskThreshold)
	}
	if cfg.Detector.Enabled {
		t.Error("Detector should be disabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("SCORING_CACHE_TTL", "1h")
	t.Setenv("LOGGING_LEVEL", "debug")
	t.Setenv("SECURITY_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Scoring.CacheTTL != time.Hour {
		t.Errorf("Scoring.CacheTTL = %v, want 1h", cfg.Scoring.CacheTTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[0] != "https://a.example" {
		t.Errorf("Security.CORSOrigins = %v, want two trimmed origins", cfg.Security.CORSOrigins)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "server:\n  port: 9100\nstorage:\n  path: /tmp/sitewarden-test\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100 from file", cfg.Server.Port)
	}
	if cfg.Storage.Path != "/tmp/sitewarden-test" {
		t.Errorf("Storage.Path = %q, want /tmp/sitewarden-test", cfg.Storage.Path)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SERVER_PORT", "9200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9200 {
		t.Errorf("Server.Port = %d, want env override 9200", cfg.Server.Port)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = 0

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("Validate() = %v, want SERVER_PORT error", err)
	}
}

func TestValidateRequiresDetectorURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.Detector.Enabled = true

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DETECTOR_BASE_URL") {
		t.Errorf("Validate() = %v, want DETECTOR_BASE_URL error", err)
	}

	cfg.Detector.BaseURL = "ftp://detector.example"
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "http or https") {
		t.Errorf("Validate() = %v, want scheme error", err)
	}

	cfg.Detector.BaseURL = "https://detector.example"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with valid detector URL failed: %v", err)
	}
}

func TestValidateRequiresReputationKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.Reputation.Enabled = true

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "REPUTATION_API_KEY") {
		t.Errorf("Validate() = %v, want REPUTATION_API_KEY error", err)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := defaultConfig()
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "LOGGING_LEVEL") {
		t.Errorf("Validate() = %v, want LOGGING_LEVEL error", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"SERVER_PORT", "server.port"},
		{"DETECTOR_POLL_INTERVAL", "detector.poll_interval"},
		{"SCORING_CACHE_TTL", "scoring.cache_ttl"},
		{"PATH", ""},
		{"HOME", ""},
		{"SERVER_", ""},
	}
	for _, tc := range cases {
		if got := envTransformFunc(tc.in); got != tc.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
