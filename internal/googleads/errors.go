// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package googleads

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

var (
	// ErrUnauthorized matches 401 responses and rejected OAuth grants.
	ErrUnauthorized = errors.New("googleads: unauthorized")

	// ErrPermissionDenied matches 403 responses.
	ErrPermissionDenied = errors.New("googleads: permission denied")

	// ErrRateLimited matches 429 responses.
	ErrRateLimited = errors.New("googleads: rate limited")
)

// APIError is a non-2xx response from the Ads API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Status     string // gRPC status name, e.g. PERMISSION_DENIED
	Message    string
	Details    string // raw error details, used only for classification
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Status != "" {
		return fmt.Sprintf("googleads %s: %d %s: %s", e.Endpoint, e.StatusCode, e.Status, msg)
	}
	return fmt.Sprintf("googleads %s: %d: %s", e.Endpoint, e.StatusCode, msg)
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.Status == "UNAUTHENTICATED"
	case ErrPermissionDenied:
		return e.StatusCode == http.StatusForbidden || e.Status == "PERMISSION_DENIED"
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
	}
	return false
}

// Temporary reports whether the failure is an upstream fault rather than a
// problem with the request or its credentials.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

var authMarkers = []string{"invalid_grant", "token", "unauthenticated", "unauthorized", "invalid_client"}

// IsAuthError reports whether err is an authentication-class failure:
// 401, 403, or a message naming a token or invalid_grant.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrPermissionDenied) {
		return true
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return true
	}
	if IsRateLimitError(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range authMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsRateLimitError reports whether err is a 429-class failure.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "rate limit")
}

// IsPermissionError reports whether err is categorical: the credentials are
// valid but lack access. Retrying with another strategy cannot help.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Is(ErrPermissionDenied) {
			return true
		}
		return strings.Contains(apiErr.Details, "PERMISSION_DENIED") ||
			strings.Contains(apiErr.Details, "DEVELOPER_TOKEN_NOT_APPROVED")
	}
	return strings.Contains(strings.ToLower(err.Error()), "permission denied")
}
