// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package detector talks to the external AI-image classifier.
//
// The classifier is asynchronous: an upload returns a correlation id, and
// the verdict arrives some time later via polling. AwaitResult races the
// completion against a local deadline with an atomic settle guard, so the
// wait resolves exactly once no matter which event fires first. A local
// timeout does not cancel the outbound classification; it may still finish
// in the background, in which case nothing observes its result.
package detector
