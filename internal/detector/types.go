// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package detector

// Status is the terminal (or pending) state of one classification attempt.
type Status string

const (
	// StatusPending means no verdict arrived before the local deadline.
	StatusPending Status = "pending"

	// StatusComplete means the classifier produced a numeric score.
	StatusComplete Status = "complete"

	// StatusUnevaluable means the classifier declined to score the content.
	StatusUnevaluable Status = "unevaluable"

	// StatusErrored means the classifier reported an internal failure.
	StatusErrored Status = "errored"

	// StatusTimedOut means the local deadline fired before any verdict.
	StatusTimedOut Status = "timed_out"
)

// Outcome is the result of one classification attempt.
//
// Score is an integer percentage in [0,100] and is meaningful only when
// Status is StatusComplete. Reasons carries classifier-provided
// explanations for unevaluable or errored outcomes.
type Outcome struct {
	Status  Status
	Score   int
	Reasons []string
}

// Scored reports whether the outcome carries a usable score.
func (o Outcome) Scored() bool {
	return o.Status == StatusComplete
}

// timedOut is the shared no-verdict outcome.
func timedOut() Outcome {
	return Outcome{Status: StatusTimedOut}
}
