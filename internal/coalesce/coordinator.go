// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package coalesce

import (
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/sitewarden/sitewarden/internal/identity"
	"github.com/sitewarden/sitewarden/internal/metrics"
)

// Group collapses concurrent calls for the same key into one execution.
// The zero value is not usable; construct via NewCoordinator.
type Group struct {
	name string
	sf   singleflight.Group
}

// do executes fn under single-flight semantics for key.
// Returns fn's result, whether this caller joined an execution initiated by
// another caller, and fn's error (delivered identically to all callers).
func (g *Group) do(key identity.Key, fn func() (interface{}, error)) (interface{}, bool, error) {
	executed := false

	v, err, _ := g.sf.Do(string(key), func() (interface{}, error) {
		executed = true
		metrics.SingleFlightRuns.WithLabelValues(g.name).Inc()
		return fn()
	})

	joined := !executed
	if joined {
		metrics.SingleFlightJoins.WithLabelValues(g.name).Inc()
	}

	return v, joined, err
}

// Coordinator owns the in-flight ticket tables for both coalescing scopes.
// It is an explicitly constructed, injectable component; all mutation of
// the ticket tables happens through Do, guarded internally by the
// singleflight group's mutex.
type Coordinator struct {
	// Resource coalesces URL-keyed work: page fetch, rule scoring,
	// candidate image download.
	Resource *Group

	// Content coalesces content-hash-keyed work: the expensive external
	// classification of image bytes.
	Content *Group
}

// NewCoordinator creates a Coordinator with empty ticket tables.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		Resource: &Group{name: "resource"},
		Content:  &Group{name: "content"},
	}
}

// Do runs fn at most once per in-flight key within g; concurrent callers
// for the same key receive the same value or the same error. The joined
// return reports whether this caller attached to an execution started by
// another caller.
func Do[T any](g *Group, key identity.Key, fn func() (T, error)) (result T, joined bool, err error) {
	v, joined, err := g.do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return result, joined, err
	}

	typed, ok := v.(T)
	if !ok {
		return result, joined, fmt.Errorf("coalesce: unexpected result type %T", v)
	}
	return typed, joined, nil
}
