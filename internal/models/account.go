// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package models

import "time"

// Platform identifies the ad network an account belongs to.
type Platform string

const (
	PlatformGoogleAds Platform = "google_ads"
	PlatformMetaAds   Platform = "meta_ads"
	PlatformTikTokAds Platform = "tiktok_ads"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformGoogleAds, PlatformMetaAds, PlatformTikTokAds:
		return true
	}
	return false
}

// ConnectedAccount links one external ad account to one local user.
// Exactly one row exists per (UserID, Platform, ExternalAccountID).
type ConnectedAccount struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Platform          Platform   `json:"platform"`
	ExternalAccountID string     `json:"external_account_id"`
	AccessToken       string     `json:"-"` // ciphertext
	RefreshToken      string     `json:"-"` // ciphertext, empty when none was issued
	AccessTokenHash   string     `json:"-"`
	RefreshTokenHash  string     `json:"-"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"` // incremental sync watermark
	IsActive          bool       `json:"is_active"`
	DisplayName       string     `json:"display_name,omitempty"` // ciphertext at rest
	IsManager         bool       `json:"is_manager"`
	TimeZone          string     `json:"time_zone,omitempty"`
	IsTestAccount     bool       `json:"is_test_account"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsExpired reports whether the access token expiry is before now.
// An account without an expiry never expires.
func (a *ConnectedAccount) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

// AccountMetadata is the descriptive part of an account returned by the
// provider during discovery.
type AccountMetadata struct {
	DisplayName   string
	IsManager     bool
	TimeZone      string
	IsTestAccount bool
}
