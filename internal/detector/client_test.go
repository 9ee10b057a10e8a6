// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package detector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// fakeClassifier simulates the external detector API.
type fakeClassifier struct {
	mux         *http.ServeMux
	submissions atomic.Int32
	polls       atomic.Int32

	// results returned per poll, in order; the last repeats forever.
	results []string
}

func newFakeClassifier(results ...string) *fakeClassifier {
	f := &fakeClassifier{results: results}
	f.mux = http.NewServeMux()

	f.mux.HandleFunc("POST /v1/files", func(w http.ResponseWriter, r *http.Request) {
		f.submissions.Add(1)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"request_id": "req-123"})
	})

	f.mux.HandleFunc("GET /v1/results/", func(w http.ResponseWriter, r *http.Request) {
		n := int(f.polls.Add(1)) - 1
		if n >= len(f.results) {
			n = len(f.results) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.results[n]))
	})

	return f
}

func testClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		PollInterval: 10 * time.Millisecond,
		WaitTimeout:  2 * time.Second,
	})
}

func TestClassifyCompleteScore(t *testing.T) {
	fake := newFakeClassifier(
		`{"status":"analyzing"}`,
		`{"status":"scored","score":0.87}`,
	)
	srv := httptest.NewServer(fake.mux)
	defer srv.Close()

	outcome := testClient(srv.URL).Classify(context.Background(), []byte("img"), "image/jpeg")

	if outcome.Status != StatusComplete {
		t.Fatalf("status = %s, want complete", outcome.Status)
	}
	if outcome.Score != 87 {
		t.Errorf("score = %d, want 87", outcome.Score)
	}
	if fake.submissions.Load() != 1 {
		t.Errorf("submissions = %d, want 1", fake.submissions.Load())
	}
}

func TestClassifyScoreRoundingAndClamping(t *testing.T) {
	tests := []struct {
		raw  float64
		want int
	}{
		{0.0, 0},
		{0.004, 0},
		{0.005, 1},
		{0.5, 50},
		{0.996, 100},
		{1.0, 100},
		{1.7, 100},
		{-0.2, 0},
	}

	for _, tt := range tests {
		outcome, terminal := mapResult(resultResponse{Status: "scored", Score: tt.raw})
		if !terminal {
			t.Fatalf("scored response not terminal for %v", tt.raw)
		}
		if outcome.Score != tt.want {
			t.Errorf("mapResult(%v) score = %d, want %d", tt.raw, outcome.Score, tt.want)
		}
	}
}

func TestClassifyUnevaluable(t *testing.T) {
	fake := newFakeClassifier(
		`{"status":"not_applicable","reasons":[{"code":"small","message":"image too small"},{"code":"fmt","message":"unsupported format"}]}`,
	)
	srv := httptest.NewServer(fake.mux)
	defer srv.Close()

	outcome := testClient(srv.URL).Classify(context.Background(), []byte("img"), "image/png")

	if outcome.Status != StatusUnevaluable {
		t.Fatalf("status = %s, want unevaluable", outcome.Status)
	}
	if len(outcome.Reasons) != 2 || outcome.Reasons[0] != "image too small" {
		t.Errorf("reasons = %v", outcome.Reasons)
	}
	if outcome.Scored() {
		t.Error("unevaluable outcome must not report a score")
	}
}

func TestClassifyErrored(t *testing.T) {
	fake := newFakeClassifier(`{"status":"error","error":{"code":"internal","message":"model offline"}}`)
	srv := httptest.NewServer(fake.mux)
	defer srv.Close()

	outcome := testClient(srv.URL).Classify(context.Background(), []byte("img"), "image/png")

	if outcome.Status != StatusErrored {
		t.Fatalf("status = %s, want errored", outcome.Status)
	}
	if len(outcome.Reasons) != 1 || outcome.Reasons[0] != "model offline" {
		t.Errorf("reasons = %v", outcome.Reasons)
	}
}

func TestAwaitResultTimesOutWithoutBlocking(t *testing.T) {
	fake := newFakeClassifier(`{"status":"analyzing"}`)
	srv := httptest.NewServer(fake.mux)
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:      srv.URL,
		PollInterval: 10 * time.Millisecond,
		WaitTimeout:  80 * time.Millisecond,
	})

	started := time.Now()
	outcome := client.AwaitResult(context.Background(), "req-123")
	elapsed := time.Since(started)

	if outcome.Status != StatusTimedOut {
		t.Fatalf("status = %s, want timed_out", outcome.Status)
	}
	if elapsed > time.Second {
		t.Errorf("wait took %v, expected prompt timeout", elapsed)
	}
}

func TestLateResultAfterTimeoutHasNoEffect(t *testing.T) {
	// The classifier only completes after the local deadline has fired.
	fake := newFakeClassifier(
		`{"status":"analyzing"}`,
		`{"status":"analyzing"}`,
		`{"status":"analyzing"}`,
		`{"status":"scored","score":0.99}`,
	)
	srv := httptest.NewServer(fake.mux)
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:      srv.URL,
		PollInterval: 20 * time.Millisecond,
		WaitTimeout:  30 * time.Millisecond,
	})

	outcome := client.AwaitResult(context.Background(), "req-123")
	if outcome.Status != StatusTimedOut {
		t.Fatalf("status = %s, want timed_out", outcome.Status)
	}

	// Give the background poller time to observe the late verdict and exit.
	time.Sleep(200 * time.Millisecond)
}

func TestClassifySubmitFailureDegradesToErrored(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/files", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	outcome := testClient(srv.URL).Classify(context.Background(), []byte("img"), "image/png")

	if outcome.Status != StatusErrored {
		t.Fatalf("status = %s, want errored", outcome.Status)
	}
	if len(outcome.Reasons) == 0 || !strings.Contains(outcome.Reasons[0], "could not submit") {
		t.Errorf("reasons = %v", outcome.Reasons)
	}
}

func TestSubmitSendsAPIKey(t *testing.T) {
	var gotKey string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/files", func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		_ = json.NewEncoder(w).Encode(map[string]string{"request_id": "req-9"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	id, err := testClient(srv.URL).Submit(context.Background(), []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if id != "req-9" {
		t.Errorf("request id = %q", id)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
}
