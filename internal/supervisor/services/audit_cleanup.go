// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package services

import (
	"context"
	"time"

	"github.com/sitewarden/sitewarden/internal/logging"
)

// AuditCleaner removes expired audit events. Satisfied by audit.Logger.
type AuditCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
	CleanupInterval() time.Duration
}

// AuditCleanupService runs retention cleanup on a fixed interval as a
// supervised service.
type AuditCleanupService struct {
	cleaner AuditCleaner
}

// NewAuditCleanupService creates the cleanup service.
func NewAuditCleanupService(cleaner AuditCleaner) *AuditCleanupService {
	return &AuditCleanupService{cleaner: cleaner}
}

// Serve implements suture.Service.
func (s *AuditCleanupService) Serve(ctx context.Context) error {
	interval := s.cleaner.CleanupInterval()
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := s.cleaner.Cleanup(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("Audit cleanup error")
			} else if count > 0 {
				logging.Info().Int64("count", count).Msg("Cleaned up old audit events")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *AuditCleanupService) String() string {
	return "audit-cleanup"
}
