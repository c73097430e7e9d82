// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package profile

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/gvarikaa/reelfeed/internal/config"
)

// profileKeyPrefix namespaces profile entries in BadgerDB.
const profileKeyPrefix = "profile:"

// ErrProfileNotFound is returned when no cached profile exists.
var ErrProfileNotFound = errors.New("profile not found")

// Store is the BadgerDB-backed profile cache. Entries survive restarts
// when a path is configured; tests use the in-memory mode.
type Store struct {
	db *badger.DB
}

// OpenStore opens the profile cache per configuration.
func OpenStore(cfg *config.ProfileCacheConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open profile cache: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-open Badger handle.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Healthy reports whether the underlying database is open.
func (s *Store) Healthy() bool {
	return !s.db.IsClosed()
}

// Get retrieves a cached profile, or ErrProfileNotFound.
func (s *Store) Get(userID string) (*InterestProfile, error) {
	var p InterestProfile

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profileKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrProfileNotFound
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Set stores a profile, replacing any existing entry.
func (s *Store) Set(p *InterestProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(profileKeyPrefix+p.UserID), data)
	})
}

// Delete removes a cached profile. Deleting a missing entry is not an
// error.
func (s *Store) Delete(userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(profileKeyPrefix + userID))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	})
}
