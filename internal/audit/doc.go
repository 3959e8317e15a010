// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

// Package audit records security-relevant events about credentials and
// connected accounts: token access, refresh, revocation, disconnects and
// sync outcomes.
//
// # Architecture
//
// The audit sink is fire-and-forget:
//
//	Logger.LogSecurityEvent() -> Event Buffer (chan) -> Async Writer -> Store
//	                                   |                      |
//	                              Non-blocking         Background goroutine
//
// When the buffer is full the event is dropped with a warning. Callers never
// block on the audit trail and never see an error from it.
//
// # Stores
//
//   - MemoryStore: bounded in-process slice, for tests and development
//   - DuckDBStore: the audit_events table next to the account data
//
// # Usage
//
//	store := audit.NewDuckDBStore(db.Conn())
//	if err := store.CreateTable(ctx); err != nil { ... }
//	logger := audit.NewLogger(store, audit.DefaultConfig())
//	defer logger.Close()
//
//	logger.LogSecurityEvent(ctx, audit.EventTypeTokenAccessed,
//	    map[string]interface{}{"refreshed": false},
//	    userID, accountID, ip, userAgent)
//
// Event details must never carry token material. Only fingerprints and
// redacted values belong in Metadata.
package audit
