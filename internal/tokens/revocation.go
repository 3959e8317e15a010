// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package tokens

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrRevocationStoreClosed is returned after Close.
var ErrRevocationStoreClosed = errors.New("revocation store is closed")

// RevocationStore holds the fingerprints of revoked tokens.
type RevocationStore interface {
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
	Revoke(ctx context.Context, tokenHash string) error
}

// MemoryRevocationStore is the default process-local revoked set.
// A zero TTL keeps entries for the life of the process.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryRevocationStore creates an empty store.
func NewMemoryRevocationStore(ttl time.Duration) *MemoryRevocationStore {
	return &MemoryRevocationStore{
		revoked: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// IsRevoked reports whether tokenHash is in the set.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenHash string) (bool, error) {
	if tokenHash == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, ok := s.revoked[tokenHash]
	if !ok {
		return false, nil
	}
	return expiresAt.IsZero() || s.now().Before(expiresAt), nil
}

// Revoke adds tokenHash to the set.
func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenHash string) error {
	if tokenHash == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}
	s.revoked[tokenHash] = expiresAt
	return nil
}

// CleanupExpired drops expired entries and returns how many were dropped.
func (s *MemoryRevocationStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for hash, expiresAt := range s.revoked {
		if !expiresAt.IsZero() && !now.Before(expiresAt) {
			delete(s.revoked, hash)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired or not.
func (s *MemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.revoked)
}

// BadgerRevocationStore persists the revoked set so revocations survive a
// restart. Entries expire through badger's native TTL.
type BadgerRevocationStore struct {
	db     *badger.DB
	prefix []byte
	ttl    time.Duration
	closed bool
	mu     sync.RWMutex
}

// NewBadgerRevocationStore wraps an open badger database. prefix defaults
// to "revoked:".
func NewBadgerRevocationStore(db *badger.DB, prefix string, ttl time.Duration) *BadgerRevocationStore {
	if prefix == "" {
		prefix = "revoked:"
	}
	return &BadgerRevocationStore{db: db, prefix: []byte(prefix), ttl: ttl}
}

// OpenBadgerRevocationStore opens (or creates) a badger database at path.
// The store owns the database and closes it on Close.
func OpenBadgerRevocationStore(path string, ttl time.Duration) (*BadgerRevocationStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return NewBadgerRevocationStore(db, "", ttl), nil
}

func (s *BadgerRevocationStore) makeKey(tokenHash string) []byte {
	key := make([]byte, 0, len(s.prefix)+len(tokenHash))
	key = append(key, s.prefix...)
	return append(key, tokenHash...)
}

// IsRevoked reports whether tokenHash is in the set.
func (s *BadgerRevocationStore) IsRevoked(_ context.Context, tokenHash string) (bool, error) {
	if tokenHash == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrRevocationStoreClosed
	}

	revoked := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(s.makeKey(tokenHash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		revoked = true
		return nil
	})
	return revoked, err
}

// Revoke adds tokenHash to the set.
func (s *BadgerRevocationStore) Revoke(_ context.Context, tokenHash string) error {
	if tokenHash == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrRevocationStoreClosed
	}

	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(s.makeKey(tokenHash), stamp)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Close closes the underlying database.
func (s *BadgerRevocationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
