// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package tokens

import (
	"time"

	"github.com/tomtom215/adledger/internal/models"
)

// State is the credential state of a connected account.
type State string

const (
	StateNoToken       State = "no_token"
	StateValid         State = "valid"
	StateExpired       State = "expired"
	StateRefreshFailed State = "refresh_failed"
	StateRevoked       State = "revoked"
)

// ClassifyState derives the state of acc at now. revoked reports whether
// the access-token fingerprint is in the revoked set.
func ClassifyState(acc *models.ConnectedAccount, now time.Time, revoked bool) State {
	switch {
	case acc == nil || acc.AccessToken == "":
		return StateNoToken
	case revoked:
		return StateRevoked
	case !acc.IsActive:
		return StateRefreshFailed
	case acc.IsExpired(now):
		return StateExpired
	default:
		return StateValid
	}
}
