// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package verdict stores previously computed risk verdicts keyed by
// (resource key, scope) with a read-time TTL.
//
// Staleness is checked on read: an expired entry behaves as a miss but is
// not deleted, and is overwritten by the next successful write for the same
// key. Store unavailability degrades reads to misses and drops writes; the
// scoring path is never blocked on cache durability.
package verdict
