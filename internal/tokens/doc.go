// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

// Package tokens owns the OAuth credential lifecycle of connected accounts.
//
// The Manager is the only code that sees token plaintext. It encrypts
// tokens through the encryption.FieldGuard before they reach the store,
// fingerprints them for revocation checks, refreshes expired access tokens
// and deactivates accounts whose refresh token is rejected.
//
// # States
//
//	NoToken ──store──▶ Valid ──expiry──▶ Expired ──refresh ok──▶ Valid
//	                     │                  │
//	                   revoke          refresh fails
//	                     ▼                  ▼
//	                  Revoked         RefreshFailed (inactive until re-consent)
//
// # Access limits
//
// RetrieveTokens is limited per requesting user by an exact sliding window
// (five calls per sixty seconds by default). Rejected calls do not count
// against the window.
//
// # Errors
//
// Authentication-family errors (TokenExchangeError, AccountDiscoveryError,
// RefreshFailedError, RevokedError, ExpiredNoRefreshError) all match
// ErrAuthentication; IsReconnectRequired reports that to callers.
// RateLimitError, NotFoundError and InvalidStateError are distinct.
package tokens
