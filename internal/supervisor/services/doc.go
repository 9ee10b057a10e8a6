// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package services provides suture.Service wrappers for components that
// do not natively implement the supervised Serve(ctx) pattern.
package services
