// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package validation

import "github.com/tomtom215/adledger/internal/models"

// DateRangeRequest is an optional inclusive window. Both ends or neither.
type DateRangeRequest struct {
	StartDate string `json:"start_date" validate:"required_with=EndDate,ymd"`
	EndDate   string `json:"end_date" validate:"required_with=StartDate,ymd"`
}

// Window returns the parsed window, or nil when both ends are empty. Call
// it only after ValidateStruct succeeded.
func (r DateRangeRequest) Window() (*models.DateRange, error) {
	if r.StartDate == "" && r.EndDate == "" {
		return nil, nil
	}
	window, err := models.ParseDateRange(r.StartDate, r.EndDate)
	if err != nil {
		return nil, err
	}
	return &window, nil
}

// CallbackRequest carries the OAuth redirect parameters.
type CallbackRequest struct {
	Code  string `json:"code" validate:"required,max=2048"`
	State string `json:"state" validate:"required,max=512"`
}

// RevokeTokenRequest names a token by its SHA-256 fingerprint.
type RevokeTokenRequest struct {
	TokenHash string `json:"token_hash" validate:"required,token_hash"`
}

// AccountIDRequest validates a connected account id path parameter.
type AccountIDRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
}
