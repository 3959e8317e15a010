// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

// Package googleads talks to the Google Ads REST API and Google's OAuth2
// endpoints.
//
// Components:
//   - OAuthClient: consent URL, code exchange, refresh and revoke through
//     golang.org/x/oauth2 with the Google endpoint
//   - Client: listAccessibleCustomers and googleAds:search with GAQL,
//     paced by a golang.org/x/time/rate limiter
//   - BreakerClient: wraps Client with a sony/gobreaker circuit breaker so
//     an upstream outage fails fast instead of piling up retries
//
// Errors from the API are returned as *APIError. Use IsAuthError,
// IsRateLimitError and IsPermissionError to classify them; the sync and
// token packages decide retry policy from those predicates.
//
// Int64 values arrive as JSON strings ("costMicros": "2500000") and are
// decoded through the Int64 type.
package googleads
