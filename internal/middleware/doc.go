// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package middleware provides HTTP middleware shared by all API routes:
// Prometheus instrumentation and gzip compression. Request IDs, rate
// limiting, and CORS come from the chi ecosystem and are wired directly
// in the router.
package middleware
