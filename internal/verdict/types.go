// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package verdict

import (
	"context"
	"errors"
	"time"

	"github.com/sitewarden/sitewarden/internal/identity"
)

// Scope separates verdicts computed for different target kinds.
// A page verdict and an image verdict for the same bytes never collide.
type Scope string

const (
	// ScopeSite is a verdict for a canonicalized page URL.
	ScopeSite Scope = "site"

	// ScopeImage is a verdict for raw image content.
	ScopeImage Scope = "image"
)

// DefaultTTL is how long a verdict is served before re-scoring.
const DefaultTTL = 24 * time.Hour

// ErrNotFound indicates no entry exists for the requested key and scope.
var ErrNotFound = errors.New("verdict not found")

// Entry is a persisted verdict. Immutable once written; replaced whole on
// re-scoring.
type Entry struct {
	Key       identity.Key `json:"key"`
	Scope     Scope        `json:"scope"`
	Domain    string       `json:"domain,omitempty"`
	RiskScore int          `json:"risk_score"`
	Reasons   []string     `json:"reasons"`
	CheckedAt time.Time    `json:"checked_at"`
}

// Fresh reports whether the entry is within ttl as of now.
func (e *Entry) Fresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.CheckedAt) < ttl
}

// Store is the persistence contract for verdicts.
//
// Get returns ErrNotFound when no entry exists. Put upserts by (key, scope)
// with last-writer-wins semantics; writes are idempotent re-scorings, not
// conflicting edits, so no optimistic concurrency control is applied.
type Store interface {
	Get(ctx context.Context, key identity.Key, scope Scope) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
}
