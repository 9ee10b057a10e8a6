// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sitewarden/sitewarden/internal/intel"
	"github.com/sitewarden/sitewarden/internal/scoring"
	"github.com/sitewarden/sitewarden/internal/verdict"
)

func startWorker(t *testing.T, w *Worker) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWorkerRefreshesVerdictAndAssessment(t *testing.T) {
	store := verdict.NewMemoryStore()
	cache := verdict.NewCache(store, verdict.DefaultTTL)
	intelStore := intel.NewMemoryStore()

	w := NewWorker(Config{}, cache, nil, intelStore)
	startWorker(t, w)

	w.Record(scoring.Record{
		Key:       "k1",
		Scope:     verdict.ScopeSite,
		Domain:    "shop.example",
		RiskScore: 35,
		Reasons:   []string{"Site is not using HTTPS"},
		CheckedAt: time.Now(),
	})

	waitFor(t, func() bool { return store.Len() == 1 })
	waitFor(t, func() bool { return len(intelStore.Assessments()) == 1 })

	entry, ok := cache.Lookup(context.Background(), "k1", verdict.ScopeSite)
	if !ok {
		t.Fatal("verdict not refreshed")
	}
	if entry.RiskScore != 35 {
		t.Errorf("RiskScore = %d, want 35", entry.RiskScore)
	}

	// Below threshold and unflagged: no indicator.
	if _, err := intelStore.GetIndicator(context.Background(), "shop.example"); !errors.Is(err, intel.ErrNotFound) {
		t.Errorf("GetIndicator() error = %v, want ErrNotFound", err)
	}
}

func TestHighRiskRecordFeedsIntel(t *testing.T) {
	intelStore := intel.NewMemoryStore()
	w := NewWorker(Config{}, nil, nil, intelStore)
	startWorker(t, w)

	w.Record(scoring.Record{
		Key:       "k2",
		Scope:     verdict.ScopeSite,
		Domain:    "bad.example",
		RiskScore: 95,
		Flagged:   true,
		Reasons:   []string{"Flagged as dangerous by reputation service"},
		CheckedAt: time.Now(),
	})

	waitFor(t, func() bool {
		_, err := intelStore.GetIndicator(context.Background(), "bad.example")
		return err == nil
	})

	ind, _ := intelStore.GetIndicator(context.Background(), "bad.example")
	if ind.MaxRiskScore != 95 || ind.FlaggedCount != 1 {
		t.Errorf("indicator = %+v", ind)
	}
}

func TestCachedRecordSkipsWrites(t *testing.T) {
	store := verdict.NewMemoryStore()
	cache := verdict.NewCache(store, verdict.DefaultTTL)
	intelStore := intel.NewMemoryStore()
	w := NewWorker(Config{}, cache, nil, intelStore)
	startWorker(t, w)

	w.Record(scoring.Record{
		Key:       "k3",
		Scope:     verdict.ScopeSite,
		Domain:    "bad.example",
		RiskScore: 95,
		Flagged:   true,
		Cached:    true,
		CheckedAt: time.Now(),
	})

	// Give the worker time to process.
	time.Sleep(100 * time.Millisecond)

	if store.Len() != 0 {
		t.Errorf("verdict store has %d entries, want 0 for cache hit", store.Len())
	}
	if len(intelStore.Assessments()) != 0 {
		t.Error("cache hit appended an assessment")
	}
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	w := NewWorker(Config{QueueSize: 1}, nil, nil, nil)
	// Worker not started: the queue cannot drain.

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			w.Record(scoring.Record{Key: "k", Scope: verdict.ScopeSite})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on full queue")
	}
}

func TestServeDrainsOnShutdown(t *testing.T) {
	intelStore := intel.NewMemoryStore()
	w := NewWorker(Config{}, nil, nil, intelStore)

	for i := 0; i < 5; i++ {
		w.Record(scoring.Record{
			Key:       "k",
			Scope:     verdict.ScopeSite,
			Domain:    "d.example",
			RiskScore: 10,
			CheckedAt: time.Now(),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}

	if got := len(intelStore.Assessments()); got != 5 {
		t.Errorf("drained %d assessments, want 5", got)
	}
}
