// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package metrics provides Prometheus instrumentation for the scoring
// pipeline: verdict cache efficiency, single-flight coalescing, detector
// round-trips, fan-out write health, and the HTTP surface.
package metrics
