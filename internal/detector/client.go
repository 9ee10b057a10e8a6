// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package detector

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/sitewarden/sitewarden/internal/logging"
	"github.com/sitewarden/sitewarden/internal/metrics"
)

// Config holds detector client configuration.
type Config struct {
	// BaseURL is the classifier API root, e.g. https://api.detector.example.
	BaseURL string

	// APIKey authenticates requests via the X-Api-Key header.
	APIKey string

	// PollInterval is the delay between result polls.
	// Default: 3s
	PollInterval time.Duration

	// WaitTimeout is the local deadline for AwaitResult.
	// Default: 30s
	WaitTimeout time.Duration
}

// withDefaults fills zero values with production defaults.
func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 30 * time.Second
	}
	return c
}

// pollGracePeriod is how long the background poller keeps polling past the
// local deadline before giving up on its own. The late verdict, if any, is
// discarded unobserved.
const pollGracePeriod = 5 * time.Second

// Client performs the upload-then-poll interaction with the classifier.
// Safe for concurrent use.
type Client struct {
	cfg     Config
	httpc   *http.Client
	breaker *submitBreaker
}

// NewClient creates a detector client.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		breaker: newSubmitBreaker(),
	}
}

// submitResponse is the upload acknowledgement.
type submitResponse struct {
	RequestID string `json:"request_id"`
}

// resultResponse is one poll's view of the classification.
type resultResponse struct {
	Status  string  `json:"status"` // analyzing | scored | not_applicable | error
	Score   float64 `json:"score"`
	Reasons []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"reasons"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Submit uploads content for classification and returns the correlation id.
// The call is guarded by a circuit breaker; an open circuit fails fast.
func (c *Client) Submit(ctx context.Context, content []byte, contentType string) (string, error) {
	id, err := c.breaker.execute(func() (string, error) {
		return c.upload(ctx, content, contentType)
	})
	if err != nil {
		return "", err
	}

	metrics.DetectorSubmissions.Inc()
	logger := logging.Ctx(ctx)
	logger.Debug().Str("request_id", id).Int("bytes", len(content)).Msg("detector submission accepted")
	return id, nil
}

// upload performs the multipart POST.
func (c *Client) upload(ctx context.Context, content []byte, contentType string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "upload"+extensionFor(contentType))
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/files", &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Api-Key", c.cfg.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("detector upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("detector upload: unexpected status %d", resp.StatusCode)
	}

	var ack submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("detector upload: decode response: %w", err)
	}
	if ack.RequestID == "" {
		return "", fmt.Errorf("detector upload: empty request id")
	}

	return ack.RequestID, nil
}

// AwaitResult waits for the classification correlated by requestID to
// complete, or for the local deadline, whichever occurs first.
//
// The first event to occur settles the wait exactly once; the settle guard
// ensures the loser of the race has no observable effect. On timeout the
// outbound classification is not cancelled: the poller lingers briefly in
// the background and then exits, discarding any late verdict.
func (c *Client) AwaitResult(ctx context.Context, requestID string) Outcome {
	started := time.Now()

	var settled atomic.Bool
	resultCh := make(chan Outcome, 1)

	go c.poll(requestID, &settled, resultCh)

	timer := time.NewTimer(c.cfg.WaitTimeout)
	defer timer.Stop()

	var outcome Outcome
	select {
	case outcome = <-resultCh:
		settled.Store(true)
	case <-timer.C:
		settled.Store(true)
		outcome = timedOut()
	case <-ctx.Done():
		settled.Store(true)
		outcome = timedOut()
	}

	metrics.DetectorOutcomes.WithLabelValues(string(outcome.Status)).Inc()
	metrics.DetectorWaitDuration.Observe(time.Since(started).Seconds())

	logger := logging.Ctx(ctx)
	logger.Debug().
		Str("request_id", requestID).
		Str("status", string(outcome.Status)).
		Dur("waited", time.Since(started)).
		Msg("detector wait settled")

	return outcome
}

// poll drives the background result loop. It runs detached from the
// caller's context so a local timeout does not cancel the outbound work,
// and stops on its own once settled or past the grace window.
func (c *Client) poll(requestID string, settled *atomic.Bool, resultCh chan<- Outcome) {
	deadline := time.Now().Add(c.cfg.WaitTimeout + pollGracePeriod)

	for {
		time.Sleep(c.cfg.PollInterval)

		if settled.Load() || time.Now().After(deadline) {
			return
		}

		outcome, terminal := c.fetchResult(requestID)
		if !terminal {
			continue
		}

		if settled.Load() {
			// Lost the race: the waiter already timed out. Discard.
			return
		}
		resultCh <- outcome
		return
	}
}

// fetchResult performs one poll. terminal is false while the classifier is
// still analyzing or the poll itself failed transiently.
func (c *Client) fetchResult(requestID string) (Outcome, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/results/"+requestID, nil)
	if err != nil {
		return Outcome{}, false
	}
	req.Header.Set("X-Api-Key", c.cfg.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		logging.Warn().Err(err).Str("request_id", requestID).Msg("detector poll failed")
		return Outcome{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warn().Int("status", resp.StatusCode).Str("request_id", requestID).Msg("detector poll rejected")
		return Outcome{}, false
	}

	var res resultResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		logging.Warn().Err(err).Str("request_id", requestID).Msg("detector poll decode failed")
		return Outcome{}, false
	}

	return mapResult(res)
}

// mapResult converts a wire response to an Outcome.
func mapResult(res resultResponse) (Outcome, bool) {
	switch res.Status {
	case "scored":
		return Outcome{
			Status: StatusComplete,
			Score:  clampPercent(int(math.Round(res.Score * 100))),
		}, true

	case "not_applicable":
		reasons := make([]string, 0, len(res.Reasons))
		for _, r := range res.Reasons {
			if r.Message != "" {
				reasons = append(reasons, r.Message)
			}
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "classifier declined to evaluate the content")
		}
		return Outcome{Status: StatusUnevaluable, Reasons: reasons}, true

	case "error":
		reason := "classifier reported an internal failure"
		if res.Error != nil && res.Error.Message != "" {
			reason = res.Error.Message
		}
		return Outcome{Status: StatusErrored, Reasons: []string{reason}}, true

	default:
		// "analyzing" or anything unrecognized: keep polling.
		return Outcome{}, false
	}
}

// clampPercent bounds v to [0,100].
func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// extensionFor picks an upload filename extension from the content type.
func extensionFor(contentType string) string {
	switch {
	case contentType == "image/png":
		return ".png"
	case contentType == "image/webp":
		return ".webp"
	case contentType == "image/gif":
		return ".gif"
	case contentType == "image/jpeg" || contentType == "image/jpg":
		return ".jpg"
	default:
		return ".img"
	}
}

// Classify submits content and waits for the verdict in one call.
// Submission failures fold into an Errored outcome rather than an error so
// the aggregator can degrade gracefully.
func (c *Client) Classify(ctx context.Context, content []byte, contentType string) Outcome {
	requestID, err := c.Submit(ctx, content, contentType)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Msg("detector submission failed")
		metrics.DetectorOutcomes.WithLabelValues(string(StatusErrored)).Inc()
		return Outcome{Status: StatusErrored, Reasons: []string{"could not submit image for AI analysis"}}
	}

	return c.AwaitResult(ctx, requestID)
}
