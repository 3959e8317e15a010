// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package cache

import (
	"sync"
	"time"
)

// SlidingWindowLog limits events per key to limit within any window-long
// interval. It keeps the timestamps of accepted events, so the boundary is
// exact rather than bucketed.
//
//	log := NewSlidingWindowLog(5, time.Minute)
//	if !log.Allow("user:123") {
//	    // rejected, and the rejection is not recorded
//	}
type SlidingWindowLog struct {
	mu     sync.Mutex
	events map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewSlidingWindowLog creates a log with the given policy.
func NewSlidingWindowLog(limit int, window time.Duration) *SlidingWindowLog {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingWindowLog{
		events: make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// SetClock overrides the clock. Intended for tests.
func (l *SlidingWindowLog) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Allow records an event for key and returns true if fewer than limit
// events were accepted in the trailing window. Rejected calls are not
// recorded.
func (l *SlidingWindowLog) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.prune(key, now)
	if len(kept) >= l.limit {
		return false
	}
	l.events[key] = append(kept, now)
	return true
}

// Count returns the number of accepted events for key in the window.
func (l *SlidingWindowLog) Count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key, l.now()))
}

// RetryAfter returns how long until key may be allowed again, or 0.
func (l *SlidingWindowLog) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.prune(key, now)
	if len(kept) < l.limit {
		return 0
	}
	return kept[len(kept)-l.limit].Add(l.window).Sub(now)
}

// CleanupInactive drops keys with no events in the window and returns how
// many were dropped.
func (l *SlidingWindowLog) CleanupInactive() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key := range l.events {
		if len(l.prune(key, now)) == 0 {
			delete(l.events, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *SlidingWindowLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// prune drops timestamps at or before now-window. Must be called with mu held.
func (l *SlidingWindowLog) prune(key string, now time.Time) []time.Time {
	ts := l.events[key]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i > 0 {
		ts = append(ts[:0], ts[i:]...)
		l.events[key] = ts
	}
	return ts
}
