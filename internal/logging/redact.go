// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package logging

import "strings"

// RedactToken masks a token. Tokens must never be logged in full, so short
// values are replaced entirely and long values keep only the first and last
// four characters.
//
//	"ya29.a0AfH6SMBx...Qw12" -> "ya29...Qw12"
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// RedactUserID masks a user identifier for log output.
func RedactUserID(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) <= 8 {
		return "***"
	}
	return userID[:4] + "..." + userID[len(userID)-4:]
}

var sensitiveKeys = map[string]bool{
	"access_token":    true,
	"refresh_token":   true,
	"token":           true,
	"code":            true,
	"client_secret":   true,
	"developer_token": true,
	"encryption_key":  true,
	"authorization":   true,
	"state":           true,
}

// RedactValue masks value when key names a credential field.
func RedactValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return RedactToken(value)
	}
	return value
}

// RedactError collapses error text that mentions credential material into a
// generic message and truncates the rest.
func RedactError(msg string) string {
	lower := strings.ToLower(msg)
	for _, p := range []string{"bearer", "secret", "refresh_token", "access_token", "authorization"} {
		if strings.Contains(lower, p) {
			return "credential error (redacted)"
		}
	}
	if len(msg) > 200 {
		return msg[:200] + "..."
	}
	return msg
}
