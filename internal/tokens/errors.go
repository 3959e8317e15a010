// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package tokens

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrAuthentication is matched by every error that requires the user to
	// reconnect the account.
	ErrAuthentication = errors.New("authentication failed")

	ErrTokenExchange    = errors.New("token exchange failed")
	ErrAccountDiscovery = errors.New("account discovery failed")
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrRevoked          = errors.New("token revoked")
	ErrExpiredNoRefresh = errors.New("access token expired and no refresh token stored")

	ErrRateLimit    = errors.New("token access rate limit exceeded")
	ErrNotFound     = errors.New("connected account not found")
	ErrInvalidState = errors.New("invalid credential state")
)

// TokenExchangeError wraps a provider rejection of an authorization code.
type TokenExchangeError struct {
	Err error
}

func (e *TokenExchangeError) Error() string { return "token exchange failed: " + e.Err.Error() }
func (e *TokenExchangeError) Unwrap() error { return e.Err }
func (e *TokenExchangeError) Is(target error) bool {
	return target == ErrTokenExchange || target == ErrAuthentication
}

// StrategyFailure is one failed discovery attempt.
type StrategyFailure struct {
	Strategy string
	Err      error
}

// AccountDiscoveryError lists every discovery strategy tried.
type AccountDiscoveryError struct {
	Attempts []StrategyFailure

	// ShortCircuited is set when a permission error stopped the chain.
	ShortCircuited bool
}

func (e *AccountDiscoveryError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Strategy, a.Err)
	}
	msg := "account discovery failed"
	if e.ShortCircuited {
		msg += " (permission denied, remaining strategies skipped)"
	}
	return msg + ": " + strings.Join(parts, "; ")
}

// Unwrap exposes every strategy failure to errors.Is and errors.As.
func (e *AccountDiscoveryError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

func (e *AccountDiscoveryError) Is(target error) bool {
	return target == ErrAccountDiscovery || target == ErrAuthentication
}

// Strategies returns the names of the strategies tried, in order.
func (e *AccountDiscoveryError) Strategies() []string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Strategy
	}
	return names
}

// RefreshFailedError reports a rejected refresh. The account has been
// deactivated.
type RefreshFailedError struct {
	AccountID string
	Err       error
}

func (e *RefreshFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("account %s is inactive after a failed refresh", e.AccountID)
	}
	return fmt.Sprintf("token refresh failed for account %s: %v", e.AccountID, e.Err)
}
func (e *RefreshFailedError) Unwrap() error { return e.Err }
func (e *RefreshFailedError) Is(target error) bool {
	return target == ErrRefreshFailed || target == ErrAuthentication
}

// RevokedError reports an access token whose fingerprint was revoked.
type RevokedError struct {
	AccountID string
}

func (e *RevokedError) Error() string { return fmt.Sprintf("token for account %s has been revoked", e.AccountID) }
func (e *RevokedError) Is(target error) bool {
	return target == ErrRevoked || target == ErrAuthentication
}

// ExpiredNoRefreshError reports an expired access token with nothing to
// refresh it with.
type ExpiredNoRefreshError struct {
	AccountID string
	ExpiredAt time.Time
}

func (e *ExpiredNoRefreshError) Error() string {
	return fmt.Sprintf("access token for account %s expired at %s and no refresh token is stored",
		e.AccountID, e.ExpiredAt.UTC().Format(time.RFC3339))
}
func (e *ExpiredNoRefreshError) Is(target error) bool {
	return target == ErrExpiredNoRefresh || target == ErrAuthentication
}

// RateLimitError reports a rejected token retrieval.
type RateLimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("token access rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimit }

// NotFoundError reports a missing account, or one the requester does not own.
type NotFoundError struct {
	AccountID string
}

func (e *NotFoundError) Error() string     { return fmt.Sprintf("connected account %s not found", e.AccountID) }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidStateError reports stored credentials or an OAuth state value that
// cannot be used.
type InvalidStateError struct {
	AccountID string
	Reason    string
}

func (e *InvalidStateError) Error() string {
	if e.AccountID == "" {
		return "invalid state: " + e.Reason
	}
	return fmt.Sprintf("account %s is in an invalid state: %s", e.AccountID, e.Reason)
}
func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// IsReconnectRequired reports whether err means the user must re-authorize.
func IsReconnectRequired(err error) bool {
	return errors.Is(err, ErrAuthentication)
}
