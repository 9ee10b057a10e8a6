// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package config loads application configuration from layered sources
// using Koanf v2: built-in defaults, then an optional YAML file, then
// environment variables. Env vars win, so a container deployment can
// override any setting without shipping a config file.
//
// Environment variables map to config paths through their section
// prefix: SERVER_PORT becomes server.port, DETECTOR_POLL_INTERVAL
// becomes detector.poll_interval. Variables that do not start with a
// known section name are ignored.
package config
