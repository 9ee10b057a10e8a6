// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package coalesce collapses concurrent identical detection work into a
// single execution per key.
//
// Two independent scopes exist: resource-keyed work (fetching and
// scoring a URL) and content-keyed work (classifying image bytes). Two
// different URLs can serve byte-identical images, so collapsing each scope
// separately avoids both duplicate downloads and duplicate external
// classifications.
//
// Tickets live only for the duration of one execution: the underlying
// singleflight group removes the call the instant its outcome settles, so a
// caller arriving after settlement starts a fresh execution instead of
// observing a stale result. A failed execution propagates its error to every
// joined caller and does not poison the next attempt on the same key.
package coalesce
