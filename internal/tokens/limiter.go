// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package tokens

import (
	"time"

	"github.com/tomtom215/adledger/internal/cache"
)

// Default token access policy: five retrievals per user per minute.
const (
	DefaultAccessLimit  = 5
	DefaultAccessWindow = time.Minute
)

// AccessLimiter decides whether a token retrieval may proceed.
type AccessLimiter interface {
	Allow(key string) bool
}

// retryAfterer is implemented by limiters that know when a key frees up.
type retryAfterer interface {
	RetryAfter(key string) time.Duration
}

// NewAccessLimiter returns the exact sliding-window limiter.
func NewAccessLimiter(limit int, window time.Duration) *cache.SlidingWindowLog {
	if limit <= 0 {
		limit = DefaultAccessLimit
	}
	if window <= 0 {
		window = DefaultAccessWindow
	}
	return cache.NewSlidingWindowLog(limit, window)
}

func limiterKey(accountID, requestingUserID string) string {
	if requestingUserID != "" {
		return "user:" + requestingUserID
	}
	return "account:" + accountID
}
