// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateScoring(); err != nil {
		return err
	}

	if err := c.validateDetector(); err != nil {
		return err
	}

	if err := c.validateReputation(); err != nil {
		return err
	}

	if err := c.validateFanout(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("SERVER_READ_TIMEOUT must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("SERVER_WRITE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("STORAGE_PATH is required unless STORAGE_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateScoring() error {
	if c.Scoring.CacheTTL <= 0 {
		return fmt.Errorf("SCORING_CACHE_TTL must be positive")
	}
	return nil
}

// validateDetector checks detector configuration (only if enabled).
func (c *Config) validateDetector() error {
	if !c.Detector.Enabled {
		return nil
	}

	if c.Detector.BaseURL == "" {
		return fmt.Errorf("DETECTOR_BASE_URL is required when DETECTOR_ENABLED=true")
	}
	if err := validateHTTPURL(c.Detector.BaseURL, "DETECTOR_BASE_URL"); err != nil {
		return err
	}
	if c.Detector.WaitTimeout <= 0 {
		return fmt.Errorf("DETECTOR_WAIT_TIMEOUT must be positive")
	}
	if c.Detector.PollInterval <= 0 {
		return fmt.Errorf("DETECTOR_POLL_INTERVAL must be positive")
	}
	return nil
}

// validateReputation checks reputation configuration (only if enabled).
func (c *Config) validateReputation() error {
	if !c.Reputation.Enabled {
		return nil
	}

	if c.Reputation.APIKey == "" {
		return fmt.Errorf("REPUTATION_API_KEY is required when REPUTATION_ENABLED=true")
	}
	if c.Reputation.BaseURL != "" {
		if err := validateHTTPURL(c.Reputation.BaseURL, "REPUTATION_BASE_URL"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateFanout() error {
	if c.Fanout.QueueSize < 1 {
		return fmt.Errorf("FANOUT_QUEUE_SIZE must be at least 1, got %d", c.Fanout.QueueSize)
	}
	if c.Fanout.HighRiskThreshold < 0 || c.Fanout.HighRiskThreshold > 100 {
		return fmt.Errorf("FANOUT_HIGH_RISK_THRESHOLD must be between 0 and 100, got %d", c.Fanout.HighRiskThreshold)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("LOGGING_LEVEL must be one of trace, debug, info, warn, error, fatal; got %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOGGING_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL checks that a value is a well-formed http or https URL.
func validateHTTPURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}
