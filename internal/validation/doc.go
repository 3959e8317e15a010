// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

// Package validation checks API request structs with go-playground/validator.
//
// Custom tags:
//   - ymd: a YYYY-MM-DD calendar date
//   - customer_id: ten digits, dashes allowed
//   - token_hash: a lowercase hex SHA-256 digest
//
// Field names in errors are the json tag names, so messages match the wire
// format the caller sent:
//
//	req := validation.DateRangeRequest{StartDate: r.URL.Query().Get("start_date")}
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    rw.ValidationError(verr.Error(), verr.Details())
//	    return
//	}
package validation
