// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package intel

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Store using in-memory maps.
// Suitable for development and testing. Data is lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments []Assessment
	indicators  map[string]*Indicator
}

// NewMemoryStore creates a new in-memory intelligence store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{indicators: make(map[string]*Indicator)}
}

// AppendAssessment records one completed scan.
func (s *MemoryStore) AppendAssessment(ctx context.Context, a *Assessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, *a)
	return nil
}

// RecordSighting folds a sighting into its domain indicator.
func (s *MemoryStore) RecordSighting(ctx context.Context, sight Sighting) error {
	if sight.Domain == "" {
		return errors.New("sighting has no domain")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ind, ok := s.indicators[sight.Domain]
	if !ok {
		ind = &Indicator{}
		s.indicators[sight.Domain] = ind
	}
	fold(ind, sight)
	return nil
}

// GetIndicator retrieves the aggregate for a domain.
func (s *MemoryStore) GetIndicator(ctx context.Context, domain string) (*Indicator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ind, ok := s.indicators[domain]
	if !ok {
		return nil, ErrNotFound
	}
	out := *ind
	return &out, nil
}

// ListIndicators returns up to limit indicators, most recently seen first.
func (s *MemoryStore) ListIndicators(ctx context.Context, limit int) ([]Indicator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indicators := make([]Indicator, 0, len(s.indicators))
	for _, ind := range s.indicators {
		indicators = append(indicators, *ind)
	}

	sort.Slice(indicators, func(i, j int) bool {
		return indicators[i].LastSeen.After(indicators[j].LastSeen)
	})
	if limit > 0 && len(indicators) > limit {
		indicators = indicators[:limit]
	}
	return indicators, nil
}

// Assessments returns a copy of all recorded assessments (for testing).
func (s *MemoryStore) Assessments() []Assessment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Assessment, len(s.assessments))
	copy(out, s.assessments)
	return out
}
