// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"sync"
	"time"
)

// DefaultStateTTL bounds how long an authorization state stays redeemable.
const DefaultStateTTL = 10 * time.Minute

type stateEntry struct {
	userID    string
	expiresAt time.Time
}

// StateStore records issued OAuth state values. Each value is single-use.
type StateStore struct {
	mu     sync.Mutex
	states map[string]stateEntry
	ttl    time.Duration
	now    func() time.Time
}

// NewStateStore creates a store whose states expire after ttl.
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{
		states: make(map[string]stateEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates and records a state of the form "<userID>.<random>".
func (s *StateStore) Issue(userID string) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := userID + "." + base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.states[state] = stateEntry{userID: userID, expiresAt: s.now().Add(s.ttl)}
	return state, nil
}

// Consume redeems state and returns the user it was issued to.
func (s *StateStore) Consume(state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.states[state]
	if !ok {
		return "", &InvalidStateError{Reason: "unknown or already used OAuth state"}
	}
	delete(s.states, state)
	if !s.now().Before(entry.expiresAt) {
		return "", &InvalidStateError{Reason: "OAuth state expired"}
	}
	return entry.userID, nil
}

// Len returns the number of outstanding states.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// CleanupExpired drops states past their TTL and returns how many it dropped.
func (s *StateStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked()
}

func (s *StateStore) pruneLocked() int {
	now := s.now()
	removed := 0
	for k, e := range s.states {
		if !now.Before(e.expiresAt) {
			delete(s.states, k)
			removed++
		}
	}
	return removed
}

// UserIDFromState returns the user id prefix of a state value.
func UserIDFromState(state string) string {
	if i := strings.LastIndexByte(state, '.'); i > 0 {
		return state[:i]
	}
	return ""
}
