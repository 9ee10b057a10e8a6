// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package audit records scan and detection events for compliance and
// forensic analysis.
//
// Events flow through a buffered async writer so the scoring path never
// blocks on audit persistence; when the buffer is full, events are
// dropped with a log line rather than applying backpressure. Two Store
// implementations are provided: MemoryStore for development and tests,
// and BadgerStore for durable timestamp-ordered storage.
package audit
