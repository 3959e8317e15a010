// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

/*
Package api is adledger's HTTP surface: connect Google Ads accounts, list
and disconnect them, trigger syncs and read stored campaign performance.

Every /api/v1 route except the OAuth callback requires an HS256 bearer
token whose subject is the user id. The callback is authenticated by the
single-use state value issued by /api/v1/connect/google.

Responses share one envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "RECONNECT_REQUIRED", "message": "...", "reconnect_required": true}}

Service errors are mapped by ResponseWriter.DomainError:

	validation failure                         400 VALIDATION_FAILED
	OAuth state unknown, expired or reused     400 INVALID_STATE
	credentials revoked, expired or rejected   401 RECONNECT_REQUIRED
	account missing or owned by someone else   404 NOT_FOUND
	token retrieval or upstream rate limit     429 TOO_MANY_REQUESTS (+ Retry-After)
	sync failure after retries                 502 SYNC_FAILED
	circuit breaker open                       503 SERVICE_UNAVAILABLE

Routing uses chi with go-chi/cors and go-chi/httprate; request and
correlation ids are attached to the logging context for every request.
*/
package api
