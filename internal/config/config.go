// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

// Package config loads adledger configuration from struct defaults, an
// optional YAML file and environment variables, in that order of precedence
// (environment wins).
//
// Secrets (encryption keys, OAuth client secret, developer token) are read
// once at start. A missing or malformed encryption key is reported as a
// *ConfigurationError and the process must refuse to start.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	GoogleAds  GoogleAdsConfig  `koanf:"google_ads"`
	Encryption EncryptionConfig `koanf:"encryption"`
	Database   DatabaseConfig   `koanf:"database"`
	Sync       SyncConfig       `koanf:"sync"`
	Tokens     TokensConfig     `koanf:"tokens"`
	Cache      CacheConfig      `koanf:"cache"`
	Audit      AuditConfig      `koanf:"audit"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// GoogleAdsConfig holds OAuth client credentials and API client settings.
type GoogleAdsConfig struct {
	ClientID        string `koanf:"client_id"`
	ClientSecret    string `koanf:"client_secret"`
	DeveloperToken  string `koanf:"developer_token"`
	RedirectURL     string `koanf:"redirect_url"`
	LoginCustomerID string `koanf:"login_customer_id"`

	// BaseURL is the REST root. Tests point it at an httptest server.
	BaseURL string `koanf:"base_url"`

	// APIVersion is used first during account discovery and for reporting.
	// FallbackAPIVersion is tried when the primary version is rejected.
	APIVersion         string `koanf:"api_version"`
	FallbackAPIVersion string `koanf:"fallback_api_version"`

	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`

	// Circuit breaker around the reporting client.
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
}

// EncryptionConfig holds the hex-encoded field encryption keys.
type EncryptionConfig struct {
	// Key is the current 256-bit key as 64 hex characters.
	Key string `koanf:"key"`

	// PreviousKeys are retired keys still accepted for decryption,
	// most recent first.
	PreviousKeys []string `koanf:"previous_keys"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// SyncConfig controls the sync orchestrator and its scheduler.
type SyncConfig struct {
	// Schedule is a six-field cron expression (with seconds). Empty disables
	// scheduled syncs.
	Schedule string `koanf:"schedule"`

	BootstrapDays       int           `koanf:"bootstrap_days"`
	BatchSize           int           `koanf:"batch_size"`
	MaxAuthRetries      int           `koanf:"max_auth_retries"`
	MaxRateLimitRetries int           `koanf:"max_rate_limit_retries"`
	BackoffBase         time.Duration `koanf:"backoff_base"`
	Timeout             time.Duration `koanf:"timeout"`
}

// TokensConfig controls the token lifecycle manager.
type TokensConfig struct {
	AccessLimit  int           `koanf:"access_limit"`
	AccessWindow time.Duration `koanf:"access_window"`
	StateTTL     time.Duration `koanf:"state_ttl"`

	// RevocationPath enables the badger-backed revocation set when set.
	RevocationPath string `koanf:"revocation_path"`
	// RevocationTTL bounds how long a revoked fingerprint is kept. Zero keeps
	// it for the life of the store.
	RevocationTTL time.Duration `koanf:"revocation_ttl"`
}

// CacheConfig controls the upstream result cache.
type CacheConfig struct {
	TTLMinutes      int           `koanf:"ttl_minutes"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// AuditConfig controls the security audit sink.
type AuditConfig struct {
	Enabled       bool `koanf:"enabled"`
	BufferSize    int  `koanf:"buffer_size"`
	RetentionDays int  `koanf:"retention_days"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds API authentication and throttling settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
