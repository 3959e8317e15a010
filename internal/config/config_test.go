// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	testKey1 = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testKey2 = "1f1e1d1c1b1a191817161514131211100f0e0d0c0b0a09080706050403020100"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENCRYPTION_KEY", testKey1)
	t.Setenv("GOOGLE_ADS_CLIENT_ID", "client-id.apps.googleusercontent.com")
	t.Setenv("GOOGLE_ADS_CLIENT_SECRET", "client-secret")
	t.Setenv("GOOGLE_ADS_DEVELOPER_TOKEN", "dev-token")
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Sync.BatchSize != 100 {
		t.Errorf("Sync.BatchSize = %d, want 100", cfg.Sync.BatchSize)
	}
	if cfg.Sync.BootstrapDays != 30 {
		t.Errorf("Sync.BootstrapDays = %d, want 30", cfg.Sync.BootstrapDays)
	}
	if cfg.Sync.MaxAuthRetries != 3 || cfg.Sync.MaxRateLimitRetries != 3 {
		t.Errorf("retry budgets = %d/%d, want 3/3", cfg.Sync.MaxAuthRetries, cfg.Sync.MaxRateLimitRetries)
	}
	if cfg.Tokens.AccessLimit != 5 || cfg.Tokens.AccessWindow != 60*time.Second {
		t.Errorf("access policy = %d per %v, want 5 per 60s", cfg.Tokens.AccessLimit, cfg.Tokens.AccessWindow)
	}
	if cfg.Tokens.RevocationTTL != 0 {
		t.Errorf("Tokens.RevocationTTL = %v, want 0 (revocations never lapse)", cfg.Tokens.RevocationTTL)
	}
	if cfg.Database.Path != "/data/adledger.duckdb" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENCRYPTION_PREVIOUS_KEYS", testKey2+", "+testKey1)
	t.Setenv("DUCKDB_PATH", ":memory:")
	t.Setenv("SYNC_BATCH_SIZE", "50")
	t.Setenv("TOKEN_ACCESS_WINDOW", "2m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Database.Path != ":memory:" {
		t.Errorf("Database.Path = %q, want :memory:", cfg.Database.Path)
	}
	if cfg.Sync.BatchSize != 50 {
		t.Errorf("Sync.BatchSize = %d, want 50", cfg.Sync.BatchSize)
	}
	if cfg.Tokens.AccessWindow != 2*time.Minute {
		t.Errorf("Tokens.AccessWindow = %v, want 2m", cfg.Tokens.AccessWindow)
	}
	if len(cfg.Encryption.PreviousKeys) != 2 || cfg.Encryption.PreviousKeys[0] != testKey2 {
		t.Errorf("Encryption.PreviousKeys = %v", cfg.Encryption.PreviousKeys)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Security.CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "sync:\n  bootstrap_days: 14\nserver:\n  port: 9090\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9191")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Sync.BootstrapDays != 14 {
		t.Errorf("Sync.BootstrapDays = %d, want 14 from file", cfg.Sync.BootstrapDays)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want env to win over file", cfg.Server.Port)
	}
}

func TestLoadWithKoanf_MissingKeyIsConfigurationError(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENCRYPTION_KEY", "")

	_, err := LoadWithKoanf()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestParseEncryptionKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      EncryptionConfig
		wantErr  bool
		wantPrev int
	}{
		{"valid current only", EncryptionConfig{Key: testKey1}, false, 0},
		{"valid with previous", EncryptionConfig{Key: testKey1, PreviousKeys: []string{testKey2}}, false, 1},
		{"empty", EncryptionConfig{}, true, 0},
		{"short", EncryptionConfig{Key: "abcd"}, true, 0},
		{"not hex", EncryptionConfig{Key: strings.Repeat("zz", 32)}, true, 0},
		{"bad previous", EncryptionConfig{Key: testKey1, PreviousKeys: []string{"00"}}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cur, prev, err := tt.cfg.ParseEncryptionKeys()
			if tt.wantErr {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected *ConfigurationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(cur) != KeySize {
				t.Errorf("current key length = %d", len(cur))
			}
			if len(prev) != tt.wantPrev {
				t.Errorf("previous keys = %d, want %d", len(prev), tt.wantPrev)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	if got := envTransformFunc("ENCRYPTION_KEY"); got != "encryption.key" {
		t.Errorf("ENCRYPTION_KEY -> %q", got)
	}
	if got := envTransformFunc("HOME"); got != "" {
		t.Errorf("unmapped variable should be skipped, got %q", got)
	}
}

func TestServerAddr(t *testing.T) {
	t.Parallel()

	s := ServerConfig{Host: "127.0.0.1", Port: 3857}
	if s.Addr() != "127.0.0.1:3857" {
		t.Errorf("Addr() = %q", s.Addr())
	}
}
