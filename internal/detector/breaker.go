// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package detector

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sitewarden/sitewarden/internal/logging"
	"github.com/sitewarden/sitewarden/internal/metrics"
)

// submitBreaker guards the upload path against a failing classifier.
// Polls are not guarded: they are cheap GETs and already bounded by the
// wait deadline.
type submitBreaker struct {
	cb   *gobreaker.CircuitBreaker[string]
	name string
}

// newSubmitBreaker creates the breaker with the standard settings:
// 3 concurrent probes in half-open, 1 minute measurement window, 2 minute
// recovery timeout, trips at a 60% failure rate over at least 10 requests.
func newSubmitBreaker() *submitBreaker {
	name := "detector-api"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := breakerStateString(from)
			toStr := breakerStateString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &submitBreaker{cb: cb, name: name}
}

// execute wraps fn with circuit breaker protection.
func (b *submitBreaker) execute(fn func() (string, error)) (string, error) {
	return b.cb.Execute(fn)
}

// breakerStateFloat converts state to a numeric gauge value.
func breakerStateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// breakerStateString converts state to a label value.
func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
