// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Verdict cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verdict_cache_hits_total",
			Help: "Total number of verdict cache hits",
		},
		[]string{"scope"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verdict_cache_misses_total",
			Help: "Total number of verdict cache misses (includes stale entries)",
		},
		[]string{"scope"},
	)

	CacheWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verdict_cache_write_failures_total",
			Help: "Total number of dropped verdict cache writes",
		},
		[]string{"scope"},
	)

	// Single-flight coalescing metrics
	SingleFlightRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "singleflight_runs_total",
			Help: "Total number of initiated single-flight executions",
		},
		[]string{"scope"},
	)

	SingleFlightJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "singleflight_joins_total",
			Help: "Total number of callers that joined an in-flight execution",
		},
		[]string{"scope"},
	)

	// Detector client metrics
	DetectorSubmissions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "detector_submissions_total",
			Help: "Total number of uploads submitted to the external detector",
		},
	)

	DetectorOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detector_outcomes_total",
			Help: "Detector outcomes by terminal status",
		},
		[]string{"status"}, // "complete", "unevaluable", "errored", "timed_out"
	)

	DetectorWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detector_wait_duration_seconds",
			Help:    "Time spent waiting for a detector verdict",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 15, 30, 60},
		},
	)

	// Reputation client metrics
	ReputationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reputation_lookups_total",
			Help: "Reputation lookups by result",
		},
		[]string{"result"}, // "flagged", "clean", "degraded", "cached"
	)

	// Fan-out metrics
	FanoutWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_writes_total",
			Help: "Fan-out writes by target and outcome",
		},
		[]string{"target", "outcome"}, // target: "verdict", "audit", "assessment", "intel"
	)

	FanoutDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_dropped_total",
			Help: "Fan-out tasks dropped because the submission buffer was full",
		},
	)

	FanoutQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanout_queue_depth",
			Help: "Current number of queued fan-out tasks",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	RiskScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "risk_scores",
			Help:    "Distribution of final risk scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)
)

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		ActiveRequests.Inc()
		return
	}
	ActiveRequests.Dec()
}

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
