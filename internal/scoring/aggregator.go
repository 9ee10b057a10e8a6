// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package scoring

import (
	"fmt"

	"github.com/sitewarden/sitewarden/internal/detector"
	"github.com/sitewarden/sitewarden/internal/reputation"
	"github.com/sitewarden/sitewarden/internal/rules"
)

// Signal source names, reported so callers can see which inputs fired.
const (
	SignalRule       = "rule"
	SignalReputation = "reputation"
	SignalDetector   = "detector"
)

// ReasonReputationFlagged dominates all other reasons when present.
const ReasonReputationFlagged = "Flagged as dangerous by reputation service"

// Detector-derived reason texts.
const (
	ReasonDetectorTimeout = "AI image analysis did not complete in time"
	ReasonDetectorPending = "AI image analysis is still in progress"
)

// maxReasons bounds the explanation list on every result.
const maxReasons = 6

// detectorReasonThreshold is the minimum detector score that earns its
// own reason entry; weak detector scores raise the number silently.
const detectorReasonThreshold = 50

// reputationFloor is the minimum score once the reputation flag fires.
const reputationFloor = 90

// Confidence bounds for score-derived confidence.
const (
	confidenceFloor   = 0.2
	confidenceCeiling = 0.95
)

// Signals are the inputs to one aggregation. Any field may be absent.
type Signals struct {
	Rule       *rules.Result
	Reputation *reputation.Verdict
	Detector   *detector.Outcome
}

// Aggregate is the combined risk assessment.
type Aggregate struct {
	// RiskScore is in [0,100].
	RiskScore int

	// Confidence is 0 when no signal fired, otherwise in
	// [confidenceFloor, confidenceCeiling].
	Confidence float64

	// Reasons explains the score, most authoritative signal first.
	// At most maxReasons entries, no duplicates.
	Reasons []string

	// Signals names the inputs that produced a usable result.
	Signals []string
}

// Combine merges the signals under the most-alarming-signal-wins policy:
// the rule score is the baseline, a reputation flag forces the score to
// at least reputationFloor, and a detector score raises via max. Scores
// never average; a weak signal cannot lower a strong one.
func Combine(sig Signals) Aggregate {
	score := 0
	fired := false
	var reasons []string
	var sources []string

	// Reputation dominates: its reason leads the list.
	if sig.Reputation != nil && sig.Reputation.Flagged {
		score = reputationFloor
		fired = true
		reasons = append(reasons, ReasonReputationFlagged)
		sources = append(sources, SignalReputation)
	}

	if sig.Rule != nil && (sig.Rule.RiskScore > 0 || len(sig.Rule.Reasons) > 0) {
		if sig.Rule.RiskScore > score {
			score = sig.Rule.RiskScore
		}
		fired = true
		reasons = append(reasons, sig.Rule.Reasons...)
		sources = append(sources, SignalRule)
	}

	if sig.Detector != nil {
		detectorFired, detectorReasons := foldDetector(sig.Detector, &score)
		if detectorFired {
			fired = true
			sources = append(sources, SignalDetector)
		}
		reasons = append(reasons, detectorReasons...)
	}

	if !fired {
		// Explanatory reasons (timeouts, unevaluable content) survive
		// even when nothing scored.
		return Aggregate{
			RiskScore:  0,
			Confidence: 0,
			Reasons:    dedupeReasons(reasons),
		}
	}

	score = clampScore(score)
	return Aggregate{
		RiskScore:  score,
		Confidence: clampConfidence(float64(score) / 100),
		Reasons:    dedupeReasons(reasons),
		Signals:    sources,
	}
}

// foldDetector applies a detector outcome to the running score and
// returns whether it produced a usable score plus its reason entries.
func foldDetector(out *detector.Outcome, score *int) (bool, []string) {
	switch out.Status {
	case detector.StatusComplete:
		if out.Score > *score {
			*score = out.Score
		}
		if out.Score >= detectorReasonThreshold {
			return true, []string{fmt.Sprintf("AI-generated imagery detected (%d%% likelihood)", out.Score)}
		}
		return true, nil

	case detector.StatusTimedOut:
		return false, []string{ReasonDetectorTimeout}

	case detector.StatusPending:
		return false, []string{ReasonDetectorPending}

	case detector.StatusUnevaluable, detector.StatusErrored:
		return false, out.Reasons

	default:
		return false, nil
	}
}

// dedupeReasons removes duplicates preserving first occurrence and
// truncates to maxReasons.
func dedupeReasons(reasons []string) []string {
	if len(reasons) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(reasons))
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
		if len(out) == maxReasons {
			break
		}
	}
	return out
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func clampConfidence(c float64) float64 {
	if c < confidenceFloor {
		return confidenceFloor
	}
	if c > confidenceCeiling {
		return confidenceCeiling
	}
	return c
}
