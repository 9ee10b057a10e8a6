// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package reputation checks URLs against a third-party blocklist.
//
// The lookup is advisory: an unreachable, misconfigured, or tripped-open
// service degrades to an unflagged verdict and never fails the scoring
// path. Recent verdicts are memoized in-process to keep repeated scoring
// of popular domains cheap.
package reputation

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sitewarden/sitewarden/internal/cache"
	"github.com/sitewarden/sitewarden/internal/logging"
	"github.com/sitewarden/sitewarden/internal/metrics"
)

// Verdict is the outcome of one blocklist lookup.
type Verdict struct {
	// Flagged is true when the URL matches a known threat entry.
	Flagged bool

	// Degraded is true when the lookup could not be performed and the
	// verdict defaulted to unflagged.
	Degraded bool
}

// Checker is the reputation lookup contract consumed by the aggregator.
type Checker interface {
	Check(ctx context.Context, rawURL string) Verdict
}

// Config holds reputation client configuration.
type Config struct {
	// Endpoint is the threat-match lookup URL.
	Endpoint string

	// APIKey authenticates the lookup. Empty disables the client.
	APIKey string

	// ClientID identifies this deployment to the provider.
	ClientID string

	// CacheTTL is how long verdicts are memoized.
	// Default: 15m
	CacheTTL time.Duration
}

// Client implements Checker against a Safe-Browsing-style JSON API.
type Client struct {
	cfg     Config
	httpc   *http.Client
	memo    *cache.Cache
	breaker *gobreaker.CircuitBreaker[bool]
}

// NewClient creates a reputation client.
func NewClient(cfg Config) *Client {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "sitewarden"
	}

	name := "reputation-api"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state transition")
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: 5 * time.Second},
		memo:    cache.New(cfg.CacheTTL),
		breaker: cb,
	}
}

// Close releases the memoization cache's background resources.
func (c *Client) Close() {
	c.memo.Close()
}

// threatRequest is the lookup request body.
type threatRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string            `json:"threatTypes"`
		PlatformTypes    []string            `json:"platformTypes"`
		ThreatEntryTypes []string            `json:"threatEntryTypes"`
		ThreatEntries    []map[string]string `json:"threatEntries"`
	} `json:"threatInfo"`
}

// threatResponse is the lookup response body.
type threatResponse struct {
	Matches []json.RawMessage `json:"matches"`
}

// Check looks up rawURL against the blocklist. It never returns an error:
// any failure degrades to an unflagged verdict.
func (c *Client) Check(ctx context.Context, rawURL string) Verdict {
	if c.cfg.APIKey == "" || c.cfg.Endpoint == "" {
		return Verdict{Degraded: true}
	}

	if v, ok := c.memo.Get(rawURL); ok {
		metrics.ReputationLookups.WithLabelValues("cached").Inc()
		return v.(Verdict)
	}

	flagged, err := c.breaker.Execute(func() (bool, error) {
		return c.lookup(ctx, rawURL)
	})
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Msg("reputation lookup degraded")
		metrics.ReputationLookups.WithLabelValues("degraded").Inc()
		return Verdict{Degraded: true}
	}

	verdict := Verdict{Flagged: flagged}
	c.memo.Set(rawURL, verdict)

	if flagged {
		metrics.ReputationLookups.WithLabelValues("flagged").Inc()
	} else {
		metrics.ReputationLookups.WithLabelValues("clean").Inc()
	}

	return verdict
}

// lookup performs the HTTP round trip.
func (c *Client) lookup(ctx context.Context, rawURL string) (bool, error) {
	var reqBody threatRequest
	reqBody.Client.ClientID = c.cfg.ClientID
	reqBody.Client.ClientVersion = "1.0.0"
	reqBody.ThreatInfo.ThreatTypes = []string{
		"MALWARE",
		"SOCIAL_ENGINEERING",
		"UNWANTED_SOFTWARE",
		"POTENTIALLY_HARMFUL_APPLICATION",
	}
	reqBody.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	reqBody.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	reqBody.ThreatInfo.ThreatEntries = []map[string]string{{"url": rawURL}}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return false, fmt.Errorf("marshal threat request: %w", err)
	}

	endpoint := c.cfg.Endpoint + "?key=" + c.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("build threat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, fmt.Errorf("reputation lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("reputation lookup: unexpected status %d", resp.StatusCode)
	}

	var result threatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("reputation lookup: decode response: %w", err)
	}

	return len(result.Matches) > 0, nil
}

// Disabled is a Checker that always degrades. Used when no provider is
// configured.
type Disabled struct{}

// Check implements Checker.
func (Disabled) Check(ctx context.Context, rawURL string) Verdict {
	return Verdict{Degraded: true}
}
