// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package scoring

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sitewarden/sitewarden/internal/coalesce"
	"github.com/sitewarden/sitewarden/internal/detector"
	"github.com/sitewarden/sitewarden/internal/identity"
	"github.com/sitewarden/sitewarden/internal/images"
	"github.com/sitewarden/sitewarden/internal/reputation"
	"github.com/sitewarden/sitewarden/internal/verdict"
)

type stubReputation struct {
	verdict reputation.Verdict
}

func (s stubReputation) Check(ctx context.Context, rawURL string) reputation.Verdict {
	return s.verdict
}

type stubLocator struct {
	candidate images.Candidate
	err       error
}

func (s stubLocator) Locate(ctx context.Context, pageURL string) (images.Candidate, error) {
	return s.candidate, s.err
}

type stubFetcher struct {
	image *images.Image
	err   error
}

func (s stubFetcher) Fetch(ctx context.Context, imageURL string) (*images.Image, error) {
	return s.image, s.err
}

// countingClassifier counts invocations and optionally blocks on a gate.
type countingClassifier struct {
	calls   atomic.Int32
	outcome detector.Outcome
	gate    chan struct{}
}

func (c *countingClassifier) Classify(ctx context.Context, content []byte, contentType string) detector.Outcome {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	return c.outcome
}

// cacheRecorder applies records to the verdict cache synchronously so
// tests can observe the persisted state immediately.
type cacheRecorder struct {
	cache *verdict.Cache
	mu    sync.Mutex
	recs  []Record
}

func (r *cacheRecorder) Record(rec Record) {
	r.mu.Lock()
	r.recs = append(r.recs, rec)
	r.mu.Unlock()

	if rec.Cached {
		return
	}
	r.cache.Refresh(context.Background(), &verdict.Entry{
		Key:       rec.Key,
		Scope:     rec.Scope,
		Domain:    rec.Domain,
		RiskScore: rec.RiskScore,
		Reasons:   rec.Reasons,
		CheckedAt: rec.CheckedAt,
	})
}

func (r *cacheRecorder) records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.recs))
	copy(out, r.recs)
	return out
}

func newTestEngine(t *testing.T, deps Deps) (*Engine, *cacheRecorder) {
	t.Helper()
	if deps.Deriver == nil {
		deps.Deriver = identity.NewDeriver("test-salt")
	}
	cache := verdict.NewCache(verdict.NewMemoryStore(), verdict.DefaultTTL)
	if deps.Cache == nil {
		deps.Cache = cache
	}
	rec := &cacheRecorder{cache: deps.Cache}
	if deps.Recorder == nil {
		deps.Recorder = rec
	}
	return NewEngine(deps), rec
}

func TestScoreURLInvalid(t *testing.T) {
	e, _ := newTestEngine(t, Deps{})

	for _, raw := range []string{"", "not a url", "ftp://example.com/file", "http://"} {
		_, err := e.ScoreURL(context.Background(), raw, Options{})
		if !errors.Is(err, identity.ErrInvalidResource) {
			t.Errorf("ScoreURL(%q) error = %v, want ErrInvalidResource", raw, err)
		}
	}
}

func TestPhishingScenario(t *testing.T) {
	e, _ := newTestEngine(t, Deps{})

	res, err := e.ScoreURL(context.Background(), "http://free-giftcard-verify.zip/login", Options{})
	if err != nil {
		t.Fatalf("ScoreURL() error = %v", err)
	}
	if res.RiskScore < 60 {
		t.Errorf("RiskScore = %d, want >= 60", res.RiskScore)
	}
	if len(res.Reasons) != 3 {
		t.Errorf("len(Reasons) = %d, want 3: %v", len(res.Reasons), res.Reasons)
	}
	if res.Cached {
		t.Error("first scan reported cached")
	}
}

func TestCacheIdempotence(t *testing.T) {
	classifier := &countingClassifier{outcome: detector.Outcome{Status: detector.StatusComplete, Score: 75}}
	e, _ := newTestEngine(t, Deps{
		Locator:    stubLocator{candidate: images.Candidate{ImageURL: "https://cdn.example.com/a.jpg"}},
		Fetcher:    stubFetcher{image: &images.Image{Content: []byte("imgbytes"), ContentType: "image/jpeg"}},
		Classifier: classifier,
	})

	ctx := context.Background()
	first, err := e.ScoreURL(ctx, "https://shop.example.com/deal", Options{})
	if err != nil {
		t.Fatalf("first ScoreURL() error = %v", err)
	}

	second, err := e.ScoreURL(ctx, "https://shop.example.com/deal", Options{})
	if err != nil {
		t.Fatalf("second ScoreURL() error = %v", err)
	}

	if !second.Cached {
		t.Error("second call not served from cache")
	}
	if second.RiskScore != first.RiskScore {
		t.Errorf("cached RiskScore = %d, want %d", second.RiskScore, first.RiskScore)
	}
	if !reflect.DeepEqual(second.Reasons, first.Reasons) {
		t.Errorf("cached Reasons = %v, want %v", second.Reasons, first.Reasons)
	}
	if got := classifier.calls.Load(); got != 1 {
		t.Errorf("classifier calls = %d, want 1", got)
	}
}

func TestForceRefreshBypassesCache(t *testing.T) {
	classifier := &countingClassifier{outcome: detector.Outcome{Status: detector.StatusComplete, Score: 75}}
	e, _ := newTestEngine(t, Deps{
		Locator:    stubLocator{candidate: images.Candidate{ImageURL: "https://cdn.example.com/a.jpg"}},
		Fetcher:    stubFetcher{image: &images.Image{Content: []byte("imgbytes"), ContentType: "image/jpeg"}},
		Classifier: classifier,
	})

	ctx := context.Background()
	if _, err := e.ScoreURL(ctx, "https://shop.example.com/deal", Options{}); err != nil {
		t.Fatalf("ScoreURL() error = %v", err)
	}

	res, err := e.ScoreURL(ctx, "https://shop.example.com/deal", Options{ForceRefresh: true})
	if err != nil {
		t.Fatalf("ScoreURL(force) error = %v", err)
	}
	if res.Cached {
		t.Error("forced refresh reported cached")
	}
	if got := classifier.calls.Load(); got != 2 {
		t.Errorf("classifier calls = %d, want 2", got)
	}
}

func TestConcurrentCallsCollapseToOneSubmission(t *testing.T) {
	classifier := &countingClassifier{
		outcome: detector.Outcome{Status: detector.StatusComplete, Score: 80},
		gate:    make(chan struct{}),
	}
	e, _ := newTestEngine(t, Deps{
		Coordinator: coalesce.NewCoordinator(),
		Locator:     stubLocator{candidate: images.Candidate{ImageURL: "https://cdn.example.com/a.jpg"}},
		Fetcher:     stubFetcher{image: &images.Image{Content: []byte("imgbytes"), ContentType: "image/jpeg"}},
		Classifier:  classifier,
	})

	const callers = 8
	results := make([]*Result, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.ScoreURL(context.Background(), "https://shop.example.com/deal", Options{})
		}(i)
	}

	// Let all callers reach the single-flight group before the
	// classifier is allowed to finish.
	time.Sleep(100 * time.Millisecond)
	close(classifier.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if results[i].RiskScore != results[0].RiskScore {
			t.Errorf("caller %d RiskScore = %d, want %d", i, results[i].RiskScore, results[0].RiskScore)
		}
	}
	if got := classifier.calls.Load(); got != 1 {
		t.Errorf("classifier calls = %d, want 1", got)
	}
}

func TestReputationDominatesEndToEnd(t *testing.T) {
	e, rec := newTestEngine(t, Deps{
		Reputation: stubReputation{verdict: reputation.Verdict{Flagged: true}},
	})

	res, err := e.ScoreURL(context.Background(), "https://innocuous-looking.example.com/", Options{})
	if err != nil {
		t.Fatalf("ScoreURL() error = %v", err)
	}
	if res.RiskScore < 90 {
		t.Errorf("RiskScore = %d, want >= 90", res.RiskScore)
	}
	if len(res.Reasons) == 0 || res.Reasons[0] != ReasonReputationFlagged {
		t.Errorf("Reasons = %v, want reputation reason first", res.Reasons)
	}

	recs := rec.records()
	if len(recs) != 1 || !recs[0].Flagged {
		t.Errorf("records = %+v, want one flagged record", recs)
	}
}

func TestImageFetchFailureDegrades(t *testing.T) {
	e, _ := newTestEngine(t, Deps{
		Locator:    stubLocator{candidate: images.Candidate{ImageURL: "https://cdn.example.com/gone.jpg"}},
		Fetcher:    stubFetcher{err: errors.New("connection refused")},
		Classifier: &countingClassifier{},
	})

	res, err := e.ScoreURL(context.Background(), "http://free-giftcard-verify.zip/login", Options{})
	if err != nil {
		t.Fatalf("ScoreURL() error = %v", err)
	}
	if res.RiskScore < 60 {
		t.Errorf("RiskScore = %d, want rule score preserved", res.RiskScore)
	}
	found := false
	for _, r := range res.Reasons {
		if r == "could not retrieve candidate image" {
			found = true
		}
	}
	if !found {
		t.Errorf("Reasons = %v, missing fetch failure explanation", res.Reasons)
	}
}

func TestScoreImageValidation(t *testing.T) {
	e, _ := newTestEngine(t, Deps{Classifier: &countingClassifier{}})
	ctx := context.Background()

	if _, err := e.ScoreImage(ctx, nil, "image/png", Options{}); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("empty content error = %v, want ErrInvalidImage", err)
	}
	if _, err := e.ScoreImage(ctx, []byte("data"), "text/html", Options{}); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("bad content type error = %v, want ErrInvalidImage", err)
	}
}

func TestScoreImageTimeoutDegrades(t *testing.T) {
	e, _ := newTestEngine(t, Deps{
		Classifier: &countingClassifier{outcome: detector.Outcome{Status: detector.StatusTimedOut}},
	})

	res, err := e.ScoreImage(context.Background(), []byte("imgbytes"), "image/png", Options{})
	if err != nil {
		t.Fatalf("ScoreImage() error = %v", err)
	}
	if res.RiskScore != 0 || res.Confidence != 0 {
		t.Errorf("score/confidence = %d/%v, want 0/0", res.RiskScore, res.Confidence)
	}
	if len(res.Reasons) != 1 || res.Reasons[0] != ReasonDetectorTimeout {
		t.Errorf("Reasons = %v", res.Reasons)
	}
}

func TestScoreImageErroredSurfaces(t *testing.T) {
	e, _ := newTestEngine(t, Deps{
		Classifier: &countingClassifier{outcome: detector.Outcome{
			Status:  detector.StatusErrored,
			Reasons: []string{"classifier unavailable"},
		}},
	})

	_, err := e.ScoreImage(context.Background(), []byte("imgbytes"), "image/png", Options{})
	if !errors.Is(err, ErrNoSignals) {
		t.Errorf("ScoreImage() error = %v, want ErrNoSignals", err)
	}
}

func TestScoreImageCached(t *testing.T) {
	classifier := &countingClassifier{outcome: detector.Outcome{Status: detector.StatusComplete, Score: 88}}
	e, _ := newTestEngine(t, Deps{Classifier: classifier})

	ctx := context.Background()
	first, err := e.ScoreImage(ctx, []byte("imgbytes"), "image/png", Options{})
	if err != nil {
		t.Fatalf("first ScoreImage() error = %v", err)
	}
	second, err := e.ScoreImage(ctx, []byte("imgbytes"), "image/png", Options{})
	if err != nil {
		t.Fatalf("second ScoreImage() error = %v", err)
	}

	if !second.Cached {
		t.Error("second call not served from cache")
	}
	if second.RiskScore != first.RiskScore {
		t.Errorf("cached RiskScore = %d, want %d", second.RiskScore, first.RiskScore)
	}
	if got := classifier.calls.Load(); got != 1 {
		t.Errorf("classifier calls = %d, want 1", got)
	}
}
