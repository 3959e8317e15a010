// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the raw encryption key length in bytes (AES-256).
const KeySize = 32

// ErrConfiguration is matched by every *ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a missing or malformed startup setting.
// It is fatal: the process must refuse to start.
type ConfigurationError struct {
	Setting string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %s: %v", e.Setting, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConfiguration) match any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ParseEncryptionKeys decodes the current and previous hex keys. Each key
// must be exactly 64 hex characters.
func (e EncryptionConfig) ParseEncryptionKeys() (current []byte, previous [][]byte, err error) {
	if strings.TrimSpace(e.Key) == "" {
		return nil, nil, &ConfigurationError{Setting: "ENCRYPTION_KEY", Reason: "is required"}
	}
	current, err = decodeKey("ENCRYPTION_KEY", e.Key)
	if err != nil {
		return nil, nil, err
	}

	previous = make([][]byte, 0, len(e.PreviousKeys))
	for i, k := range e.PreviousKeys {
		pk, err := decodeKey(fmt.Sprintf("ENCRYPTION_PREVIOUS_KEYS[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		previous = append(previous, pk)
	}
	return current, previous, nil
}

func decodeKey(setting, value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if len(value) != KeySize*2 {
		return nil, &ConfigurationError{
			Setting: setting,
			Reason:  fmt.Sprintf("must be %d hex characters, got %d", KeySize*2, len(value)),
		}
	}
	raw, err := hex.DecodeString(value)
	if err != nil {
		return nil, &ConfigurationError{Setting: setting, Reason: "is not valid hex", Err: err}
	}
	return raw, nil
}
