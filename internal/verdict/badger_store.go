// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package verdict

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/sitewarden/sitewarden/internal/identity"
)

// verdictKeyPrefix namespaces verdict entries inside the shared Badger DB.
const verdictKeyPrefix = "verdict:"

// BadgerStore implements Store using BadgerDB for durable storage.
// Suitable for production use with persistence across restarts.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a BadgerDB-backed verdict store.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// storageKey builds the composite Badger key for (key, scope).
func storageKey(key identity.Key, scope Scope) []byte {
	return []byte(verdictKeyPrefix + string(scope) + ":" + string(key))
}

// Get retrieves an entry by key and scope.
func (s *BadgerStore) Get(ctx context.Context, key identity.Key, scope Scope) (*Entry, error) {
	var entry Entry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storageKey(key, scope))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get verdict: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// Put upserts an entry. Last writer wins.
func (s *BadgerStore) Put(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storageKey(entry.Key, entry.Scope), data)
	})
}
