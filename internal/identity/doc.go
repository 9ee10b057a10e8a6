// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package identity derives stable, opaque cache keys for scoring targets.
//
// A URL is canonicalized to scheme+host+path (query and fragment dropped,
// host lowercased) before hashing; raw image bytes are hashed directly.
// Both forms are salted with a process-wide secret so keys cannot be
// reconstructed from public URLs alone.
package identity
