// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package scoring combines rule heuristics, reputation lookups, and AI
// image detection into one bounded, explainable risk result.
//
// The Engine owns the request pipeline: identity derivation, cache
// lookup, single-flight coalescing, signal collection, aggregation, and
// background persistence. Aggregation is monotonic, most-alarming-signal
// wins; a false negative from one signal never suppresses a true
// positive from another.
package scoring
