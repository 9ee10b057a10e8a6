// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package api provides the HTTP surface of the scoring service using the
// Chi router. Routes, middleware wiring, request decoding, and the
// standardized response envelope live here; all scoring logic stays in
// internal/scoring.
package api
