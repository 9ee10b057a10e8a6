// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

/*
Package supervisor provides process supervision for SiteWarden using
suture v4.

The tree organizes long-running services into three layers for failure
isolation:

	RootSupervisor ("sitewarden")
	├── StorageSupervisor ("storage-layer")
	│   └── AuditCleanupService
	├── PipelineSupervisor ("pipeline-layer")
	│   └── fanout.Worker
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crash in the fan-out worker does not take down the HTTP server, and
storage maintenance restarts independently of both. Crashed services
are restarted with exponential backoff; supervisor events are logged
through sutureslog into the application's structured logger.
*/
package supervisor
