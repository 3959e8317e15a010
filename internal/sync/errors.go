// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package sync

import (
	"errors"
	"fmt"

	"github.com/tomtom215/adledger/internal/googleads"
	"github.com/tomtom215/adledger/internal/tokens"
)

// ErrSync is matched by every *SyncError.
var ErrSync = errors.New("sync failed")

// Sync stages reported in SyncError.Stage.
const (
	StageLoad      = "load"
	StageFetch     = "fetch"
	StagePersist   = "persist"
	StageWatermark = "watermark"
)

// SyncError reports a failed sync. Persisted counts rows committed before
// the failure; they are not rolled back.
type SyncError struct {
	AccountID string
	Stage     string
	Persisted int
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync of account %s failed at %s (%d rows already persisted): %v",
		e.AccountID, e.Stage, e.Persisted, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func (e *SyncError) Is(target error) bool { return target == ErrSync }

// IsReconnectRequired reports whether err means the account owner must
// re-authorize: a token-lifecycle authentication error, or an upstream
// credential rejection that survived the retry budget.
func IsReconnectRequired(err error) bool {
	if tokens.IsReconnectRequired(err) {
		return true
	}
	var se *SyncError
	if errors.As(err, &se) && se.Stage == StageFetch {
		return googleads.IsAuthError(se.Err) && !googleads.IsRateLimitError(se.Err)
	}
	return false
}

// errorType labels a failure for metrics.
func errorType(err error) string {
	var se *SyncError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, tokens.ErrRateLimit), googleads.IsRateLimitError(err):
		return "rate_limit"
	case IsReconnectRequired(err):
		return "auth"
	case errors.As(err, &se):
		return se.Stage
	default:
		return "other"
	}
}
