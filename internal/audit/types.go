// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package audit records scan and detection events for compliance and
// forensic analysis.
package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	// Scan events
	EventTypeScanCompleted EventType = "scan.completed"
	EventTypeScanFailed    EventType = "scan.failed"
	EventTypeScanCached    EventType = "scan.cache_hit"

	// Detection events
	EventTypeDetectionFlagged EventType = "detection.flagged"
	EventTypeDetectionErrored EventType = "detection.errored"

	// Configuration events
	EventTypeConfigChanged EventType = "config.changed"
)

// Severity indicates the severity level of an audit event.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeUnknown Outcome = "unknown"
)

// Event represents one audited scan or detection.
type Event struct {
	// ID is a unique identifier for this event.
	ID string `json:"id"`

	// Timestamp when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// Severity of the event.
	Severity Severity `json:"severity"`

	// Outcome indicates success or failure.
	Outcome Outcome `json:"outcome"`

	// ResourceKey is the hashed identity of the scanned resource.
	ResourceKey string `json:"resource_key,omitempty"`

	// Domain is the registrable host of the scanned URL, when known.
	Domain string `json:"domain,omitempty"`

	// RiskScore is the score produced by the scan, when the scan completed.
	RiskScore int `json:"risk_score"`

	// Source of the request.
	Source Source `json:"source"`

	// Action describes what was done.
	Action string `json:"action"`

	// Description provides human-readable details.
	Description string `json:"description"`

	// Metadata contains event-specific details.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	// RequestID from the originating HTTP request.
	RequestID string `json:"request_id,omitempty"`
}

// Source describes where a request originated.
type Source struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
}

// QueryFilter selects events for retrieval.
type QueryFilter struct {
	Types       []EventType `json:"types,omitempty"`
	Severities  []Severity  `json:"severities,omitempty"`
	Outcomes    []Outcome   `json:"outcomes,omitempty"`
	ResourceKey string      `json:"resource_key,omitempty"`
	Domain      string      `json:"domain,omitempty"`
	SourceIP    string      `json:"source_ip,omitempty"`
	StartTime   *time.Time  `json:"start_time,omitempty"`
	EndTime     *time.Time  `json:"end_time,omitempty"`
	RequestID   string      `json:"request_id,omitempty"`
	SearchText  string      `json:"search_text,omitempty"`
	Limit       int         `json:"limit,omitempty"`
	Offset      int         `json:"offset,omitempty"`
}

// Store persists audit events.
type Store interface {
	// Save persists an audit event.
	Save(ctx context.Context, event *Event) error

	// Get retrieves an event by ID.
	Get(ctx context.Context, id string) (*Event, error)

	// Query retrieves events matching the filter, most recent first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// Delete removes events older than the given time and reports how
	// many were removed.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}
