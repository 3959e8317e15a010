// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/adledger/internal/encryption"
	"github.com/tomtom215/adledger/internal/googleads"
	"github.com/tomtom215/adledger/internal/logging"
	adsync "github.com/tomtom215/adledger/internal/sync"
	"github.com/tomtom215/adledger/internal/tokens"
	"github.com/tomtom215/adledger/internal/validation"
)

// ErrMalformedBody is returned when a JSON request body cannot be decoded.
var ErrMalformedBody = errors.New("malformed request body")

// DomainError maps a service error to a response. Checks run from the most
// specific family to the least: a fetch-stage SyncError caused by a rejected
// credential is a reconnect, not a 502.
func (rw *ResponseWriter) DomainError(err error) {
	var (
		verr      *validation.RequestValidationError
		rateErr   *tokens.RateLimitError
		discovery *tokens.AccountDiscoveryError
		syncErr   *adsync.SyncError
	)

	switch {
	case errors.As(err, &verr):
		rw.ValidationError(verr.Error(), verr.Details())

	case errors.Is(err, ErrMalformedBody):
		rw.BadRequest(err.Error())

	case errors.Is(err, tokens.ErrNotFound):
		rw.NotFound("Connected account not found")

	case errors.As(err, &rateErr):
		rw.TooManyRequests("Too many token requests for this account", rateErr.RetryAfter)

	case errors.As(err, &discovery):
		rw.writeError(http.StatusUnauthorized, &APIError{
			Code:              ErrCodeReconnectRequired,
			Message:           "No usable Google Ads customer account was found for this authorization",
			Details:           map[string]interface{}{"strategies": discovery.Strategies()},
			ReconnectRequired: true,
		})

	case adsync.IsReconnectRequired(err):
		rw.ReconnectRequired(reconnectMessage(err))

	case errors.Is(err, tokens.ErrInvalidState):
		rw.Error(http.StatusBadRequest, ErrCodeInvalidState, err.Error())

	case errors.Is(err, encryption.ErrDecryption):
		logging.Ctx(rw.r.Context()).Error().Str("error", logging.RedactError(err.Error())).
			Msg("Stored ciphertext could not be decrypted")
		rw.Error(http.StatusInternalServerError, ErrCodeDataIntegrity,
			"Stored data could not be decrypted with the configured keys")

	case googleads.IsRateLimitError(err):
		rw.TooManyRequests("Google Ads API rate limit reached, try again later", 0)

	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		rw.ServiceUnavailable("Google Ads API is temporarily unavailable")

	case errors.As(err, &syncErr):
		logging.Ctx(rw.r.Context()).Error().
			Str("account_id", syncErr.AccountID).
			Str("stage", syncErr.Stage).
			Int("persisted", syncErr.Persisted).
			Str("error", logging.RedactError(syncErr.Error())).
			Msg("Sync failed")
		rw.ErrorWithDetails(http.StatusBadGateway, ErrCodeSyncFailed, "Campaign sync failed", map[string]interface{}{
			"stage":     syncErr.Stage,
			"persisted": syncErr.Persisted,
		})

	case errors.Is(err, context.DeadlineExceeded):
		rw.Error(http.StatusGatewayTimeout, ErrCodeServiceUnavailable, "Request timed out")

	default:
		logging.Ctx(rw.r.Context()).Error().Str("error", logging.RedactError(err.Error())).Msg("Request failed")
		rw.InternalError("An internal error occurred")
	}
}

func reconnectMessage(err error) string {
	switch {
	case errors.Is(err, tokens.ErrRevoked):
		return "The stored Google credentials were revoked; reconnect the account"
	case errors.Is(err, tokens.ErrExpiredNoRefresh):
		return "The stored Google credentials expired; reconnect the account"
	case errors.Is(err, tokens.ErrRefreshFailed):
		return "Google rejected the stored refresh token; reconnect the account"
	case errors.Is(err, tokens.ErrTokenExchange):
		return "Google rejected the authorization code; start the connect flow again"
	default:
		return "Google rejected the stored credentials; reconnect the account"
	}
}
