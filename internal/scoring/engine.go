// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sitewarden/sitewarden/internal/coalesce"
	"github.com/sitewarden/sitewarden/internal/detector"
	"github.com/sitewarden/sitewarden/internal/identity"
	"github.com/sitewarden/sitewarden/internal/images"
	"github.com/sitewarden/sitewarden/internal/logging"
	"github.com/sitewarden/sitewarden/internal/metrics"
	"github.com/sitewarden/sitewarden/internal/reputation"
	"github.com/sitewarden/sitewarden/internal/rules"
	"github.com/sitewarden/sitewarden/internal/verdict"
)

// ErrInvalidImage indicates the submitted content is not a scoreable image.
var ErrInvalidImage = errors.New("invalid image content")

// ErrNoSignals indicates every scoring signal failed to produce a result.
var ErrNoSignals = errors.New("no scoring signal produced a result")

// Options modify one scoring request.
type Options struct {
	// ForceRefresh bypasses the verdict cache for this request.
	ForceRefresh bool
}

// Result is the externally visible outcome of one scoring request.
type Result struct {
	RiskScore  int      `json:"risk_score"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
	Signals    []string `json:"signals,omitempty"`
	Cached     bool     `json:"cached"`
}

// Record is what the engine hands to the Recorder after each scan.
type Record struct {
	Key          identity.Key
	Scope        verdict.Scope
	Domain       string
	CanonicalURL string
	RiskScore    int
	Confidence   float64
	Reasons      []string
	Flagged      bool
	Cached       bool
	CheckedAt    time.Time
}

// ReputationChecker is the blocklist lookup the engine consults.
type ReputationChecker interface {
	Check(ctx context.Context, rawURL string) reputation.Verdict
}

// ImageLocator supplies a candidate image to classify for a page.
type ImageLocator interface {
	Locate(ctx context.Context, pageURL string) (images.Candidate, error)
}

// ImageFetcher downloads a candidate image.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (*images.Image, error)
}

// ImageClassifier scores image content for AI generation likelihood.
type ImageClassifier interface {
	Classify(ctx context.Context, content []byte, contentType string) detector.Outcome
}

// Recorder receives completed scan records for background persistence.
// Implementations must not block.
type Recorder interface {
	Record(rec Record)
}

type nopRecorder struct{}

func (nopRecorder) Record(Record) {}

// Deps wires the engine's collaborators. Deriver and Cache are required;
// everything else degrades to a no-op when nil.
type Deps struct {
	Deriver     *identity.Deriver
	Cache       *verdict.Cache
	Coordinator *coalesce.Coordinator
	Reputation  ReputationChecker
	Locator     ImageLocator
	Fetcher     ImageFetcher
	Classifier  ImageClassifier
	Recorder    Recorder
}

// Engine runs the scoring pipeline.
type Engine struct {
	deriver    *identity.Deriver
	cache      *verdict.Cache
	coord      *coalesce.Coordinator
	reputation ReputationChecker
	locator    ImageLocator
	fetcher    ImageFetcher
	classifier ImageClassifier
	recorder   Recorder
	now        func() time.Time
}

// NewEngine creates an engine from its dependencies.
func NewEngine(deps Deps) *Engine {
	e := &Engine{
		deriver:    deps.Deriver,
		cache:      deps.Cache,
		coord:      deps.Coordinator,
		reputation: deps.Reputation,
		locator:    deps.Locator,
		fetcher:    deps.Fetcher,
		classifier: deps.Classifier,
		recorder:   deps.Recorder,
		now:        time.Now,
	}
	if e.coord == nil {
		e.coord = coalesce.NewCoordinator()
	}
	if e.reputation == nil {
		e.reputation = reputation.Disabled{}
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}
	return e
}

// urlComputation carries a fresh URL scan through the single-flight group.
type urlComputation struct {
	agg     Aggregate
	flagged bool
}

// ScoreURL scores a page URL. Validation errors surface to the caller;
// collaborator failures degrade into the result's reasons instead.
func (e *Engine) ScoreURL(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	res, err := e.deriver.DeriveURL(rawURL)
	if err != nil {
		return nil, err
	}

	if !opts.ForceRefresh {
		if entry, ok := e.cache.Lookup(ctx, res.Key, verdict.ScopeSite); ok {
			return e.cachedResult(entry, res), nil
		}
	}

	comp, joined, err := coalesce.Do(e.coord.Resource, res.Key, func() (urlComputation, error) {
		return e.computeURL(ctx, res, opts.ForceRefresh), nil
	})
	if err != nil {
		return nil, err
	}

	if !joined {
		e.recorder.Record(Record{
			Key:          res.Key,
			Scope:        verdict.ScopeSite,
			Domain:       res.Domain,
			CanonicalURL: res.CanonicalURL,
			RiskScore:    comp.agg.RiskScore,
			Confidence:   comp.agg.Confidence,
			Reasons:      comp.agg.Reasons,
			Flagged:      comp.flagged,
			CheckedAt:    e.now(),
		})
	}

	metrics.RiskScores.Observe(float64(comp.agg.RiskScore))
	return &Result{
		RiskScore:  comp.agg.RiskScore,
		Confidence: comp.agg.Confidence,
		Reasons:    comp.agg.Reasons,
		Signals:    comp.agg.Signals,
		Cached:     false,
	}, nil
}

// computeURL collects all signals for one page and aggregates them.
// Runs inside the resource-scope single-flight group.
func (e *Engine) computeURL(ctx context.Context, res *identity.Resource, force bool) urlComputation {
	rule := rules.Score(res)
	rep := e.reputation.Check(ctx, res.CanonicalURL)
	out := e.detectPageImage(ctx, res, force)

	agg := Combine(Signals{
		Rule:       &rule,
		Reputation: &rep,
		Detector:   out,
	})

	return urlComputation{agg: agg, flagged: rep.Flagged}
}

// detectPageImage locates, downloads, and classifies the page's candidate
// image. A nil return means the detector signal is absent for this page.
func (e *Engine) detectPageImage(ctx context.Context, res *identity.Resource, force bool) *detector.Outcome {
	if e.locator == nil || e.classifier == nil || e.fetcher == nil {
		return nil
	}

	logger := logging.Ctx(ctx)

	cand, err := e.locator.Locate(ctx, res.CanonicalURL)
	if err != nil {
		logger.Debug().Err(err).Str("domain", res.Domain).Msg("image discovery failed")
		return nil
	}
	if cand.ImageURL == "" {
		logger.Debug().Str("domain", res.Domain).Str("reason", cand.DebugReason).Msg("no candidate image")
		return nil
	}

	img, err := e.fetcher.Fetch(ctx, cand.ImageURL)
	if err != nil {
		logger.Warn().Err(err).Str("image_url", cand.ImageURL).Msg("candidate image fetch failed")
		return &detector.Outcome{
			Status:  detector.StatusErrored,
			Reasons: []string{"could not retrieve candidate image"},
		}
	}

	_, out, _ := e.classifyContent(ctx, img.Content, img.ContentType, force)
	return out
}

// classifyContent runs the detector for a piece of content through the
// content-scope single-flight group, consulting and feeding the
// image-scope verdict cache.
func (e *Engine) classifyContent(ctx context.Context, content []byte, contentType string, force bool) (identity.Key, *detector.Outcome, bool) {
	key := e.deriver.DeriveBytes(content)

	if !force {
		if entry, ok := e.cache.Lookup(ctx, key, verdict.ScopeImage); ok {
			return key, &detector.Outcome{Status: detector.StatusComplete, Score: entry.RiskScore}, true
		}
	}

	out, joined, err := coalesce.Do(e.coord.Content, key, func() (detector.Outcome, error) {
		return e.classifier.Classify(ctx, content, contentType), nil
	})
	if err != nil {
		return key, &detector.Outcome{Status: detector.StatusErrored, Reasons: []string{"classification failed"}}, false
	}

	if !joined && out.Scored() {
		agg := Combine(Signals{Detector: &out})
		e.recorder.Record(Record{
			Key:        key,
			Scope:      verdict.ScopeImage,
			RiskScore:  agg.RiskScore,
			Confidence: agg.Confidence,
			Reasons:    agg.Reasons,
			CheckedAt:  e.now(),
		})
	}

	return key, &out, false
}

// ScoreImage scores raw image content. The detector is the only signal,
// so a classifier error surfaces as ErrNoSignals; a timeout degrades to
// a zero-confidence pending result instead.
func (e *Engine) ScoreImage(ctx context.Context, content []byte, contentType string, opts Options) (*Result, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidImage)
	}
	if len(content) > images.MaxImageBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrInvalidImage, images.MaxImageBytes)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: content type %q", ErrInvalidImage, contentType)
	}
	if e.classifier == nil {
		return nil, fmt.Errorf("%w: no classifier configured", ErrNoSignals)
	}

	if !opts.ForceRefresh {
		key := e.deriver.DeriveBytes(content)
		if entry, ok := e.cache.Lookup(ctx, key, verdict.ScopeImage); ok {
			return e.cachedResult(entry, nil), nil
		}
	}

	_, out, cached := e.classifyContent(ctx, content, contentType, opts.ForceRefresh)
	if out.Status == detector.StatusErrored {
		return nil, fmt.Errorf("%w: %s", ErrNoSignals, strings.Join(out.Reasons, "; "))
	}

	agg := Combine(Signals{Detector: out})
	metrics.RiskScores.Observe(float64(agg.RiskScore))
	return &Result{
		RiskScore:  agg.RiskScore,
		Confidence: agg.Confidence,
		Reasons:    agg.Reasons,
		Signals:    agg.Signals,
		Cached:     cached,
	}, nil
}

// cachedResult rebuilds a Result from a stored verdict entry.
func (e *Engine) cachedResult(entry *verdict.Entry, res *identity.Resource) *Result {
	confidence := 0.0
	if entry.RiskScore > 0 || len(entry.Reasons) > 0 {
		confidence = clampConfidence(float64(entry.RiskScore) / 100)
	}

	rec := Record{
		Key:        entry.Key,
		Scope:      entry.Scope,
		Domain:     entry.Domain,
		RiskScore:  entry.RiskScore,
		Confidence: confidence,
		Reasons:    entry.Reasons,
		Cached:     true,
		CheckedAt:  e.now(),
	}
	if res != nil {
		rec.CanonicalURL = res.CanonicalURL
	}
	e.recorder.Record(rec)

	metrics.RiskScores.Observe(float64(entry.RiskScore))
	return &Result{
		RiskScore:  entry.RiskScore,
		Confidence: confidence,
		Reasons:    entry.Reasons,
		Cached:     true,
	}
}
