// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package logging provides centralized zerolog-based logging for SiteWarden.
//
// The package exposes a process-wide logger configured once at startup plus
// context helpers for propagating correlation and request IDs through the
// scoring pipeline.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("component", "detector").Msg("client ready")
//	logging.Ctx(ctx).Warn().Err(err).Msg("reputation lookup degraded")
//
// Always terminate log chains with .Msg() or .Send(); a chain without a
// terminator is never emitted.
package logging
