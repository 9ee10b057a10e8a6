// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with custom validators and user-friendly error
// messages. It integrates with the application's API error format for consistent
// error responses.
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - An imagemime validator for detector-supported image MIME types
//   - Error translation to human-readable messages
//   - APIError conversion matching the application's error format
//
// Quick start:
//
//	type ScoreRequest struct {
//	    URL          string `validate:"required,max=2048"`
//	    ForceRefresh bool
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    // respond with 400 and apiErr
//	}
package validation
