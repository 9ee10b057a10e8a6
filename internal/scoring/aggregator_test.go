// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package scoring

import (
	"testing"

	"github.com/sitewarden/sitewarden/internal/detector"
	"github.com/sitewarden/sitewarden/internal/reputation"
	"github.com/sitewarden/sitewarden/internal/rules"
)

func TestCombineNoSignals(t *testing.T) {
	agg := Combine(Signals{})
	if agg.RiskScore != 0 {
		t.Errorf("RiskScore = %d, want 0", agg.RiskScore)
	}
	if agg.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", agg.Confidence)
	}
	if len(agg.Reasons) != 0 {
		t.Errorf("Reasons = %v, want empty", agg.Reasons)
	}
}

func TestCombineRuleOnly(t *testing.T) {
	agg := Combine(Signals{
		Rule: &rules.Result{RiskScore: 35, Reasons: []string{"Site is not using HTTPS"}},
	})
	if agg.RiskScore != 35 {
		t.Errorf("RiskScore = %d, want 35", agg.RiskScore)
	}
	if agg.Confidence != 0.35 {
		t.Errorf("Confidence = %v, want 0.35", agg.Confidence)
	}
	if len(agg.Signals) != 1 || agg.Signals[0] != SignalRule {
		t.Errorf("Signals = %v", agg.Signals)
	}
}

func TestReputationDominates(t *testing.T) {
	agg := Combine(Signals{
		Rule:       &rules.Result{RiskScore: 20, Reasons: []string{"Site is not using HTTPS"}},
		Reputation: &reputation.Verdict{Flagged: true},
		Detector:   &detector.Outcome{Status: detector.StatusComplete, Score: 40},
	})
	if agg.RiskScore < 90 {
		t.Errorf("RiskScore = %d, want >= 90", agg.RiskScore)
	}
	if agg.Reasons[0] != ReasonReputationFlagged {
		t.Errorf("first reason = %q, want reputation reason first", agg.Reasons[0])
	}
}

func TestDetectorRaisesViaMax(t *testing.T) {
	agg := Combine(Signals{
		Rule:     &rules.Result{RiskScore: 40, Reasons: []string{"r"}},
		Detector: &detector.Outcome{Status: detector.StatusComplete, Score: 85},
	})
	if agg.RiskScore != 85 {
		t.Errorf("RiskScore = %d, want 85", agg.RiskScore)
	}
}

func TestWeakDetectorDoesNotLower(t *testing.T) {
	agg := Combine(Signals{
		Rule:     &rules.Result{RiskScore: 70, Reasons: []string{"r"}},
		Detector: &detector.Outcome{Status: detector.StatusComplete, Score: 10},
	})
	if agg.RiskScore != 70 {
		t.Errorf("RiskScore = %d, want 70", agg.RiskScore)
	}
	// Score of 10 is below the reason threshold, no detector reason added.
	for _, r := range agg.Reasons {
		if r != "r" {
			t.Errorf("unexpected reason %q", r)
		}
	}
}

func TestConfidenceClamps(t *testing.T) {
	low := Combine(Signals{Rule: &rules.Result{RiskScore: 5, Reasons: []string{"r"}}})
	if low.Confidence != confidenceFloor {
		t.Errorf("low Confidence = %v, want %v", low.Confidence, confidenceFloor)
	}

	high := Combine(Signals{
		Reputation: &reputation.Verdict{Flagged: true},
		Detector:   &detector.Outcome{Status: detector.StatusComplete, Score: 100},
	})
	if high.Confidence != confidenceCeiling {
		t.Errorf("high Confidence = %v, want %v", high.Confidence, confidenceCeiling)
	}
	if high.RiskScore != 100 {
		t.Errorf("RiskScore = %d, want 100", high.RiskScore)
	}
}

func TestTimeoutYieldsLowConfidenceReason(t *testing.T) {
	agg := Combine(Signals{
		Detector: &detector.Outcome{Status: detector.StatusTimedOut},
	})
	if agg.RiskScore != 0 || agg.Confidence != 0 {
		t.Errorf("score/confidence = %d/%v, want 0/0", agg.RiskScore, agg.Confidence)
	}
	if len(agg.Reasons) != 1 || agg.Reasons[0] != ReasonDetectorTimeout {
		t.Errorf("Reasons = %v", agg.Reasons)
	}
}

func TestUnevaluableReasonSurvivesWithRuleScore(t *testing.T) {
	agg := Combine(Signals{
		Rule:     &rules.Result{RiskScore: 45, Reasons: []string{"URL contains high-risk keywords"}},
		Detector: &detector.Outcome{Status: detector.StatusUnevaluable, Reasons: []string{"classifier declined to evaluate the content"}},
	})
	if agg.RiskScore != 45 {
		t.Errorf("RiskScore = %d, want 45", agg.RiskScore)
	}
	found := false
	for _, r := range agg.Reasons {
		if r == "classifier declined to evaluate the content" {
			found = true
		}
	}
	if !found {
		t.Errorf("detector reason missing from %v", agg.Reasons)
	}
}

func TestReasonsDedupedAndBounded(t *testing.T) {
	agg := Combine(Signals{
		Rule: &rules.Result{
			RiskScore: 50,
			Reasons:   []string{"a", "b", "a", "c", "d", "e", "f", "g"},
		},
		Reputation: &reputation.Verdict{Flagged: true},
	})
	if len(agg.Reasons) > maxReasons {
		t.Errorf("len(Reasons) = %d, want <= %d", len(agg.Reasons), maxReasons)
	}
	seen := map[string]bool{}
	for _, r := range agg.Reasons {
		if seen[r] {
			t.Errorf("duplicate reason %q", r)
		}
		seen[r] = true
	}
	if agg.Reasons[0] != ReasonReputationFlagged {
		t.Errorf("first reason = %q", agg.Reasons[0])
	}
}

func TestScoreBounds(t *testing.T) {
	cases := []Signals{
		{},
		{Rule: &rules.Result{RiskScore: 100, Reasons: []string{"x"}}},
		{Rule: &rules.Result{RiskScore: 0}},
		{Reputation: &reputation.Verdict{Flagged: true}},
		{Detector: &detector.Outcome{Status: detector.StatusComplete, Score: 100}},
		{Detector: &detector.Outcome{Status: detector.StatusErrored, Reasons: []string{"boom"}}},
	}
	for i, sig := range cases {
		agg := Combine(sig)
		if agg.RiskScore < 0 || agg.RiskScore > 100 {
			t.Errorf("case %d: RiskScore = %d out of bounds", i, agg.RiskScore)
		}
		if agg.Confidence < 0 || agg.Confidence > 1 {
			t.Errorf("case %d: Confidence = %v out of bounds", i, agg.Confidence)
		}
		if len(agg.Reasons) > maxReasons {
			t.Errorf("case %d: too many reasons", i)
		}
	}
}
