// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package intel

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Key prefixes inside the shared Badger DB. Assessment keys embed the
// timestamp so chronological iteration falls out of key order.
const (
	assessmentKeyPrefix = "assessment:"
	indicatorKeyPrefix  = "indicator:"
)

// BadgerStore implements Store using BadgerDB for durable storage.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a BadgerDB-backed intelligence store.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// AppendAssessment records one completed scan.
func (s *BadgerStore) AppendAssessment(ctx context.Context, a *Assessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}

	key := fmt.Sprintf("%s%020d:%s", assessmentKeyPrefix, a.CheckedAt.UnixNano(), a.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// RecordSighting folds a sighting into its domain indicator inside one
// read-modify-write transaction.
func (s *BadgerStore) RecordSighting(ctx context.Context, sight Sighting) error {
	if sight.Domain == "" {
		return errors.New("sighting has no domain")
	}

	key := []byte(indicatorKeyPrefix + sight.Domain)
	return s.db.Update(func(txn *badger.Txn) error {
		var ind Indicator

		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// first sighting for this domain
		case err != nil:
			return fmt.Errorf("get indicator: %w", err)
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &ind)
			}); err != nil {
				return fmt.Errorf("decode indicator: %w", err)
			}
		}

		fold(&ind, sight)

		data, err := json.Marshal(&ind)
		if err != nil {
			return fmt.Errorf("marshal indicator: %w", err)
		}
		return txn.Set(key, data)
	})
}

// GetIndicator retrieves the aggregate for a domain.
func (s *BadgerStore) GetIndicator(ctx context.Context, domain string) (*Indicator, error) {
	var ind Indicator

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(indicatorKeyPrefix + domain))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get indicator: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ind)
		})
	})
	if err != nil {
		return nil, err
	}

	return &ind, nil
}

// ListIndicators returns up to limit indicators, most recently seen first.
func (s *BadgerStore) ListIndicators(ctx context.Context, limit int) ([]Indicator, error) {
	var indicators []Indicator

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(indicatorKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var ind Indicator
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ind)
			})
			if err != nil {
				return err
			}
			indicators = append(indicators, ind)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(indicators, func(i, j int) bool {
		return indicators[i].LastSeen.After(indicators[j].LastSeen)
	})
	if limit > 0 && len(indicators) > limit {
		indicators = indicators[:limit]
	}

	return indicators, nil
}
