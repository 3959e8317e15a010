// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/adledger/config.yaml",
	"/etc/adledger/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		GoogleAds: GoogleAdsConfig{
			BaseURL:                 "https://googleads.googleapis.com",
			APIVersion:              "v18",
			FallbackAPIVersion:      "v17",
			RedirectURL:             "http://localhost:3857/api/v1/connect/google/callback",
			RequestsPerSecond:       5,
			Burst:                   10,
			RequestTimeout:          30 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          60 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/adledger.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Sync: SyncConfig{
			Schedule:            "0 0 */6 * * *",
			BootstrapDays:       30,
			BatchSize:           100,
			MaxAuthRetries:      3,
			MaxRateLimitRetries: 3,
			BackoffBase:         time.Second,
			Timeout:             10 * time.Minute,
		},
		Tokens: TokensConfig{
			AccessLimit:   5,
			AccessWindow:  60 * time.Second,
			StateTTL:      10 * time.Minute,
			RevocationTTL: 0,
		},
		Cache: CacheConfig{
			TTLMinutes:      15,
			CleanupInterval: time.Minute,
		},
		Audit: AuditConfig{
			Enabled:       true,
			BufferSize:    1000,
			RetentionDays: 90,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3857,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration in three layers:
//
//  1. Defaults from defaultConfig
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables mapped by envTransformFunc
//
// The result is validated before it is returned.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"encryption.previous_keys",
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"google_ads_client_id":                 "google_ads.client_id",
	"google_ads_client_secret":             "google_ads.client_secret",
	"google_ads_developer_token":           "google_ads.developer_token",
	"google_ads_redirect_url":              "google_ads.redirect_url",
	"google_ads_login_customer_id":         "google_ads.login_customer_id",
	"google_ads_base_url":                  "google_ads.base_url",
	"google_ads_api_version":               "google_ads.api_version",
	"google_ads_fallback_api_version":      "google_ads.fallback_api_version",
	"google_ads_requests_per_second":       "google_ads.requests_per_second",
	"google_ads_burst":                     "google_ads.burst",
	"google_ads_request_timeout":           "google_ads.request_timeout",
	"google_ads_breaker_failure_threshold": "google_ads.breaker_failure_threshold",
	"google_ads_breaker_timeout":           "google_ads.breaker_timeout",

	"encryption_key":           "encryption.key",
	"encryption_previous_keys": "encryption.previous_keys",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"sync_schedule":               "sync.schedule",
	"sync_bootstrap_days":         "sync.bootstrap_days",
	"sync_batch_size":             "sync.batch_size",
	"sync_max_auth_retries":       "sync.max_auth_retries",
	"sync_max_rate_limit_retries": "sync.max_rate_limit_retries",
	"sync_backoff_base":           "sync.backoff_base",
	"sync_timeout":                "sync.timeout",

	"token_access_limit":     "tokens.access_limit",
	"token_access_window":    "tokens.access_window",
	"token_state_ttl":        "tokens.state_ttl",
	"token_revocation_path":  "tokens.revocation_path",
	"token_revocation_ttl":   "tokens.revocation_ttl",
	"cache_ttl_minutes":      "cache.ttl_minutes",
	"cache_cleanup_interval": "cache.cleanup_interval",

	"audit_enabled":        "audit.enabled",
	"audit_buffer_size":    "audit.buffer_size",
	"audit_retention_days": "audit.retention_days",

	"http_host":        "server.host",
	"http_port":        "server.port",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	"jwt_secret":          "security.jwt_secret",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path, or
// "" to skip it.
//
//	ENCRYPTION_KEY -> encryption.key
//	DUCKDB_PATH    -> database.path
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
