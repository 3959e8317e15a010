// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

// Package models defines the domain records shared by the store, the token
// manager, the sync orchestrator and the HTTP API.
//
// Token fields on ConnectedAccount always hold ciphertext. Plaintext tokens
// only exist inside the tokens package and in the TokenPair it returns.
package models
