// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package fanout performs best-effort background persistence of scan
// results. Writes never block or fail the scoring path: when the queue
// is full the record is dropped with a log line, and a failed write is
// logged once and never retried.
package fanout

import (
	"context"
	"time"

	"github.com/sitewarden/sitewarden/internal/audit"
	"github.com/sitewarden/sitewarden/internal/intel"
	"github.com/sitewarden/sitewarden/internal/logging"
	"github.com/sitewarden/sitewarden/internal/metrics"
	"github.com/sitewarden/sitewarden/internal/scoring"
	"github.com/sitewarden/sitewarden/internal/verdict"
)

// Fan-out target names used in logs and metrics.
const (
	targetVerdict    = "verdict"
	targetAudit      = "audit"
	targetAssessment = "assessment"
	targetIntel      = "intel"
)

// Config holds fan-out worker settings.
type Config struct {
	// QueueSize is the record buffer; submissions beyond it are dropped.
	QueueSize int `koanf:"queue_size"`

	// WriteTimeout bounds each downstream write.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// HighRiskThreshold is the score at or above which a scan feeds the
	// intelligence aggregate.
	HighRiskThreshold int `koanf:"high_risk_threshold"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:         1024,
		WriteTimeout:      5 * time.Second,
		HighRiskThreshold: 90,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.HighRiskThreshold <= 0 {
		c.HighRiskThreshold = def.HighRiskThreshold
	}
	return c
}

// Worker drains scan records to the downstream stores. It implements
// scoring.Recorder for submission and suture's Service for supervision.
type Worker struct {
	cfg   Config
	cache *verdict.Cache
	audit *audit.Logger
	intel intel.Store
	tasks chan scoring.Record
}

// NewWorker creates a fan-out worker. Any downstream may be nil; its
// writes are skipped.
func NewWorker(cfg Config, cache *verdict.Cache, auditLog *audit.Logger, intelStore intel.Store) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		cfg:   cfg,
		cache: cache,
		audit: auditLog,
		intel: intelStore,
		tasks: make(chan scoring.Record, cfg.QueueSize),
	}
}

// Record queues a scan record for background persistence. Never blocks:
// a full queue drops the record.
func (w *Worker) Record(rec scoring.Record) {
	select {
	case w.tasks <- rec:
		metrics.FanoutQueueDepth.Set(float64(len(w.tasks)))
	default:
		metrics.FanoutDropped.Inc()
		logging.Warn().
			Str("key", string(rec.Key)).
			Str("scope", string(rec.Scope)).
			Msg("fanout queue full, dropping record")
	}
}

// Serve drains the queue until ctx is cancelled, then flushes whatever
// is already queued.
func (w *Worker) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case rec := <-w.tasks:
					w.process(rec)
				default:
					return ctx.Err()
				}
			}
		case rec := <-w.tasks:
			w.process(rec)
			metrics.FanoutQueueDepth.Set(float64(len(w.tasks)))
		}
	}
}

// String names the worker for supervisor logs.
func (w *Worker) String() string {
	return "fanout-worker"
}

// process performs the independent downstream writes for one record.
// Each write is isolated: one failure never stops the others.
func (w *Worker) process(rec scoring.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.WriteTimeout)
	defer cancel()

	if !rec.Cached {
		w.refreshVerdict(ctx, rec)
		w.appendAssessment(ctx, rec)
	}

	w.writeAudit(ctx, rec)

	if !rec.Cached && (rec.RiskScore >= w.cfg.HighRiskThreshold || rec.Flagged) {
		w.recordSighting(ctx, rec)
	}
}

func (w *Worker) refreshVerdict(ctx context.Context, rec scoring.Record) {
	if w.cache == nil {
		return
	}
	// Cache.Refresh logs and counts its own failures.
	w.cache.Refresh(ctx, &verdict.Entry{
		Key:       rec.Key,
		Scope:     rec.Scope,
		Domain:    rec.Domain,
		RiskScore: rec.RiskScore,
		Reasons:   rec.Reasons,
		CheckedAt: rec.CheckedAt,
	})
	metrics.FanoutWrites.WithLabelValues(targetVerdict, "ok").Inc()
}

func (w *Worker) appendAssessment(ctx context.Context, rec scoring.Record) {
	if w.intel == nil {
		return
	}
	err := w.intel.AppendAssessment(ctx, &intel.Assessment{
		Key:          rec.Key,
		Scope:        rec.Scope,
		Domain:       rec.Domain,
		CanonicalURL: rec.CanonicalURL,
		RiskScore:    rec.RiskScore,
		Confidence:   rec.Confidence,
		Reasons:      rec.Reasons,
		Flagged:      rec.Flagged,
		CheckedAt:    rec.CheckedAt,
	})
	if err != nil {
		metrics.FanoutWrites.WithLabelValues(targetAssessment, "error").Inc()
		logging.Warn().Err(err).Str("key", string(rec.Key)).Msg("assessment write failed")
		return
	}
	metrics.FanoutWrites.WithLabelValues(targetAssessment, "ok").Inc()
}

func (w *Worker) writeAudit(ctx context.Context, rec scoring.Record) {
	if w.audit == nil {
		return
	}
	w.audit.LogScanCompleted(ctx, string(rec.Key), rec.Domain, rec.RiskScore, rec.Reasons, rec.Cached)
	if !rec.Cached && rec.Flagged {
		w.audit.LogDetectionFlagged(ctx, string(rec.Key), rec.Domain, rec.RiskScore, "reputation")
	}
	metrics.FanoutWrites.WithLabelValues(targetAudit, "ok").Inc()
}

func (w *Worker) recordSighting(ctx context.Context, rec scoring.Record) {
	if w.intel == nil || rec.Domain == "" {
		return
	}
	err := w.intel.RecordSighting(ctx, intel.Sighting{
		Domain:    rec.Domain,
		RiskScore: rec.RiskScore,
		Flagged:   rec.Flagged,
		Reasons:   rec.Reasons,
		SeenAt:    rec.CheckedAt,
	})
	if err != nil {
		metrics.FanoutWrites.WithLabelValues(targetIntel, "error").Inc()
		logging.Warn().Err(err).Str("domain", rec.Domain).Msg("intel sighting write failed")
		return
	}
	metrics.FanoutWrites.WithLabelValues(targetIntel, "ok").Inc()
}
