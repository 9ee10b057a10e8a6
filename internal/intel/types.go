// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package intel accumulates cross-resource threat intelligence: an
// append-only assessment trail plus per-domain indicator aggregates fed
// by high-risk detections.
package intel

import (
	"context"
	"errors"
	"time"

	"github.com/sitewarden/sitewarden/internal/identity"
	"github.com/sitewarden/sitewarden/internal/verdict"
)

// ErrNotFound indicates no indicator exists for the requested domain.
var ErrNotFound = errors.New("indicator not found")

// maxIndicatorReasons bounds the reason sample kept per indicator.
const maxIndicatorReasons = 10

// Assessment is one completed scan, appended per fresh computation.
type Assessment struct {
	ID           string        `json:"id"`
	Key          identity.Key  `json:"key"`
	Scope        verdict.Scope `json:"scope"`
	Domain       string        `json:"domain,omitempty"`
	CanonicalURL string        `json:"canonical_url,omitempty"`
	RiskScore    int           `json:"risk_score"`
	Confidence   float64       `json:"confidence"`
	Reasons      []string      `json:"reasons,omitempty"`
	Flagged      bool          `json:"flagged"`
	CheckedAt    time.Time     `json:"checked_at"`
}

// Indicator is the rolling aggregate for one domain.
type Indicator struct {
	Domain       string    `json:"domain"`
	Sightings    int64     `json:"sightings"`
	MaxRiskScore int       `json:"max_risk_score"`
	LastRisk     int       `json:"last_risk_score"`
	FlaggedCount int64     `json:"flagged_count"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`

	// Reasons is a bounded sample of distinct reasons observed.
	Reasons []string `json:"reasons,omitempty"`
}

// Sighting is one high-risk observation folded into an Indicator.
type Sighting struct {
	Domain    string
	RiskScore int
	Flagged   bool
	Reasons   []string
	SeenAt    time.Time
}

// Store persists assessments and indicators.
type Store interface {
	// AppendAssessment records one completed scan.
	AppendAssessment(ctx context.Context, a *Assessment) error

	// RecordSighting folds a high-risk observation into the domain's
	// indicator, creating it on first sight.
	RecordSighting(ctx context.Context, s Sighting) error

	// GetIndicator retrieves the aggregate for a domain.
	GetIndicator(ctx context.Context, domain string) (*Indicator, error)

	// ListIndicators returns up to limit indicators, most recently
	// seen first.
	ListIndicators(ctx context.Context, limit int) ([]Indicator, error)
}

// fold merges a sighting into an indicator in place.
func fold(ind *Indicator, s Sighting) {
	if ind.Domain == "" {
		ind.Domain = s.Domain
		ind.FirstSeen = s.SeenAt
	}
	ind.Sightings++
	ind.LastRisk = s.RiskScore
	ind.LastSeen = s.SeenAt
	if s.RiskScore > ind.MaxRiskScore {
		ind.MaxRiskScore = s.RiskScore
	}
	if s.Flagged {
		ind.FlaggedCount++
	}

	for _, r := range s.Reasons {
		if len(ind.Reasons) >= maxIndicatorReasons {
			break
		}
		dup := false
		for _, have := range ind.Reasons {
			if have == r {
				dup = true
				break
			}
		}
		if !dup {
			ind.Reasons = append(ind.Reasons, r)
		}
	}
}
