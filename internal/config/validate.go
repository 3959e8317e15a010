// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if _, _, err := c.Encryption.ParseEncryptionKeys(); err != nil {
		return err
	}
	if err := c.validateGoogleAds(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateTokens(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateGoogleAds() error {
	required := map[string]string{
		"GOOGLE_ADS_CLIENT_ID":       c.GoogleAds.ClientID,
		"GOOGLE_ADS_CLIENT_SECRET":   c.GoogleAds.ClientSecret,
		"GOOGLE_ADS_DEVELOPER_TOKEN": c.GoogleAds.DeveloperToken,
	}
	for _, name := range []string{"GOOGLE_ADS_CLIENT_ID", "GOOGLE_ADS_CLIENT_SECRET", "GOOGLE_ADS_DEVELOPER_TOKEN"} {
		if strings.TrimSpace(required[name]) == "" {
			return &ConfigurationError{Setting: name, Reason: "is required"}
		}
	}
	if c.GoogleAds.APIVersion == "" {
		return fmt.Errorf("GOOGLE_ADS_API_VERSION must not be empty")
	}
	if c.GoogleAds.RequestsPerSecond <= 0 {
		return fmt.Errorf("GOOGLE_ADS_REQUESTS_PER_SECOND must be positive, got %v", c.GoogleAds.RequestsPerSecond)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.BatchSize < 1 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be at least 1, got %d", c.Sync.BatchSize)
	}
	if c.Sync.BootstrapDays < 1 {
		return fmt.Errorf("SYNC_BOOTSTRAP_DAYS must be at least 1, got %d", c.Sync.BootstrapDays)
	}
	if c.Sync.MaxAuthRetries < 0 || c.Sync.MaxRateLimitRetries < 0 {
		return fmt.Errorf("sync retry budgets must not be negative")
	}
	return nil
}

func (c *Config) validateTokens() error {
	if c.Tokens.AccessLimit < 1 {
		return fmt.Errorf("TOKEN_ACCESS_LIMIT must be at least 1, got %d", c.Tokens.AccessLimit)
	}
	if c.Tokens.AccessWindow <= 0 {
		return fmt.Errorf("TOKEN_ACCESS_WINDOW must be positive")
	}
	if c.Tokens.RevocationTTL < 0 {
		return fmt.Errorf("TOKEN_REVOCATION_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < 32 {
		return &ConfigurationError{Setting: "JWT_SECRET", Reason: "must be at least 32 characters"}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}
