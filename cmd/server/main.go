// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Command server runs the SiteWarden scoring service.
//
// Startup sequence:
//  1. Configuration: layered load (defaults, YAML file, env vars)
//  2. Logging: structured zerolog output
//  3. Storage: embedded Badger database for verdicts, audit, and intel
//  4. Pipeline: scoring engine with reputation and detector clients
//  5. Supervision: suture tree running the fan-out worker, audit
//     cleanup, and the HTTP server
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/sitewarden/sitewarden/internal/api"
	"github.com/sitewarden/sitewarden/internal/audit"
	"github.com/sitewarden/sitewarden/internal/coalesce"
	"github.com/sitewarden/sitewarden/internal/config"
	"github.com/sitewarden/sitewarden/internal/detector"
	"github.com/sitewarden/sitewarden/internal/fanout"
	"github.com/sitewarden/sitewarden/internal/identity"
	"github.com/sitewarden/sitewarden/internal/images"
	"github.com/sitewarden/sitewarden/internal/intel"
	"github.com/sitewarden/sitewarden/internal/logging"
	"github.com/sitewarden/sitewarden/internal/reputation"
	"github.com/sitewarden/sitewarden/internal/scoring"
	"github.com/sitewarden/sitewarden/internal/supervisor"
	"github.com/sitewarden/sitewarden/internal/supervisor/services"
	"github.com/sitewarden/sitewarden/internal/verdict"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Int("port", cfg.Server.Port).
		Bool("detector", cfg.Detector.Enabled).
		Bool("reputation", cfg.Reputation.Enabled).
		Msg("Starting SiteWarden")

	db, err := openStorage(&cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Storage close failed")
		}
	}()

	// Persistence layers share the one Badger instance.
	cache := verdict.NewCache(verdict.NewBadgerStore(db), cfg.Scoring.CacheTTL)
	intelStore := intel.NewBadgerStore(db)
	auditLog := audit.NewLogger(audit.NewBadgerStore(db), &audit.Config{
		Enabled:         cfg.Audit.Enabled,
		LogLevel:        audit.SeverityInfo,
		RetentionDays:   cfg.Audit.RetentionDays,
		CleanupInterval: cfg.Audit.CleanupInterval,
		BufferSize:      cfg.Audit.BufferSize,
		LogToStdout:     cfg.Audit.LogToStdout,
	})
	defer func() {
		if err := auditLog.Close(); err != nil {
			logging.Error().Err(err).Msg("Audit logger close failed")
		}
	}()

	worker := fanout.NewWorker(fanout.Config{
		QueueSize:         cfg.Fanout.QueueSize,
		WriteTimeout:      cfg.Fanout.WriteTimeout,
		HighRiskThreshold: cfg.Fanout.HighRiskThreshold,
	}, cache, auditLog, intelStore)

	engine := scoring.NewEngine(scoring.Deps{
		Deriver:     identity.NewDeriver(cfg.Scoring.KeySalt),
		Cache:       cache,
		Coordinator: coalesce.NewCoordinator(),
		Reputation:  buildReputation(&cfg.Reputation),
		Locator:     images.NewHTMLLocator(),
		Fetcher:     images.NewFetcher(),
		Classifier:  buildClassifier(&cfg.Detector),
		Recorder:    worker,
	})

	ready := func() error {
		if db.IsClosed() {
			return errors.New("storage is closed")
		}
		return nil
	}
	handler := api.NewHandler(engine, auditLog, intelStore, ready)
	router := api.NewRouter(handler, &api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Security.RateLimitReqs,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if cfg.Audit.Enabled {
		tree.AddStorageService(services.NewAuditCleanupService(auditLog))
	}
	tree.AddPipelineService(worker)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	logging.Info().Msg("Shutdown complete")
}

// openStorage opens the embedded Badger database.
func openStorage(cfg *config.StorageConfig) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	// Badger's own logger is too chatty for production JSON logs.
	opts = opts.WithLogger(nil)

	return badger.Open(opts)
}

// buildReputation returns the configured reputation checker, or the
// disabled no-op when the feature is off.
func buildReputation(cfg *config.ReputationConfig) scoring.ReputationChecker {
	if !cfg.Enabled {
		return reputation.Disabled{}
	}
	return reputation.NewClient(reputation.Config{
		Endpoint: cfg.BaseURL,
		APIKey:   cfg.APIKey,
		CacheTTL: cfg.CacheTTL,
	})
}

// buildClassifier returns the detector client, or nil when scoring
// should proceed without AI image analysis.
func buildClassifier(cfg *config.DetectorConfig) scoring.ImageClassifier {
	if !cfg.Enabled {
		return nil
	}
	return detector.NewClient(detector.Config{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		PollInterval: cfg.PollInterval,
		WaitTimeout:  cfg.WaitTimeout,
	})
}
