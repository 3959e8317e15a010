// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package encryption

import (
	"errors"
	"fmt"
)

var (
	// ErrEncryption is matched by every *EncryptionError.
	ErrEncryption = errors.New("encryption failed")

	// ErrDecryption is matched by every *DecryptionError.
	ErrDecryption = errors.New("decryption failed")

	// ErrInvalidKeyLength is wrapped when a raw key is not KeySize bytes.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrCiphertextTooShort is wrapped when a blob cannot hold a nonce and tag.
	ErrCiphertextTooShort = errors.New("ciphertext too short")

	// ErrAuthentication is wrapped when no known key authenticates a blob.
	ErrAuthentication = errors.New("authentication failed against every known key")
)

// EncryptionError reports a failure to produce ciphertext, including a bad key.
type EncryptionError struct {
	Op  string
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encryption failed: %s: %v", e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error        { return e.Err }
func (e *EncryptionError) Is(target error) bool { return target == ErrEncryption }

// DecryptionError reports a data-integrity failure. Callers must surface it
// and never fall back to the raw stored value.
type DecryptionError struct {
	// Field is set when the failure came through the FieldGuard.
	Field string

	// KeysTried is the number of keys attempted before giving up.
	KeysTried int

	Err error
}

func (e *DecryptionError) Error() string {
	msg := "decryption failed"
	if e.Field != "" {
		msg += " for field " + e.Field
	}
	if e.KeysTried > 0 {
		msg += fmt.Sprintf(" (%d keys tried)", e.KeysTried)
	}
	return msg + ": " + e.Err.Error()
}

func (e *DecryptionError) Unwrap() error        { return e.Err }
func (e *DecryptionError) Is(target error) bool { return target == ErrDecryption }
