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
	"github.com/sitewarden/sitewarden/internal/logging"
	"github.com/sitewarden/sitewarden/internal/metrics"
)

// Cache applies the TTL and degradation policy on top of a Store.
//
// Lookup and Refresh never fail the scoring path: a broken store degrades
// reads to misses and drops writes, both logged and counted.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewCache creates a Cache over store. A non-positive ttl falls back to
// DefaultTTL.
func NewCache(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// Lookup returns a fresh entry, or (nil, false) on miss, staleness, or
// store failure. Stale entries are left in place for the next write to
// replace.
func (c *Cache) Lookup(ctx context.Context, key identity.Key, scope Scope) (*Entry, bool) {
	entry, err := c.store.Get(ctx, key, scope)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger := logging.Ctx(ctx)
			logger.Warn().Err(err).Str("scope", string(scope)).Msg("verdict lookup degraded to miss")
		}
		metrics.CacheMisses.WithLabelValues(string(scope)).Inc()
		return nil, false
	}

	if !entry.Fresh(c.ttl, c.now()) {
		metrics.CacheMisses.WithLabelValues(string(scope)).Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues(string(scope)).Inc()
	return entry, true
}

// Refresh upserts entry, dropping the write on failure.
func (c *Cache) Refresh(ctx context.Context, entry *Entry) {
	if entry.CheckedAt.IsZero() {
		entry.CheckedAt = c.now()
	}

	if err := c.store.Put(ctx, entry); err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Str("scope", string(entry.Scope)).Msg("verdict write dropped")
		metrics.CacheWriteFailures.WithLabelValues(string(entry.Scope)).Inc()
	}
}
