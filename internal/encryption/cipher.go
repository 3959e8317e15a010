// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

// Package encryption implements field-level encryption for OAuth tokens and
// sensitive campaign data at rest.
//
// Cipher is AES-256-GCM over a versioned keyring: one current key used for
// every new encryption and zero or more previous keys accepted on decrypt.
// Each raw key is expanded with HKDF-SHA256 before use, so the same raw key
// never directly keys two different purposes.
//
// Blob format (base64 standard encoding):
//
//	nonce (12 bytes) || tag (16 bytes) || ciphertext
//
// FieldGuard decides by field name whether a value passes through the Cipher.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required raw key length in bytes.
	KeySize = 32

	nonceSize = 12
	tagSize   = 16

	hkdfSalt = "adledger-field-encryption"
	hkdfInfo = "field-encryption-v1"
)

type keyEntry struct {
	aead cipher.AEAD
}

// Cipher encrypts and decrypts strings under a rotating keyring.
// It is safe for concurrent use.
type Cipher struct {
	mu       sync.RWMutex
	current  keyEntry
	previous []keyEntry

	random io.Reader
}

// NewCipher builds a Cipher from a current key and previous keys, most
// recent first. Every key must be exactly KeySize bytes.
func NewCipher(current []byte, previous ...[]byte) (*Cipher, error) {
	cur, err := newKeyEntry(current)
	if err != nil {
		return nil, err
	}
	c := &Cipher{current: cur, random: rand.Reader}
	for _, raw := range previous {
		entry, err := newKeyEntry(raw)
		if err != nil {
			return nil, err
		}
		c.previous = append(c.previous, entry)
	}
	return c, nil
}

func newKeyEntry(raw []byte) (keyEntry, error) {
	if len(raw) != KeySize {
		return keyEntry{}, &EncryptionError{
			Op:  "load key",
			Err: fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKeyLength, KeySize, len(raw)),
		}
	}

	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, raw, []byte(hkdfSalt), []byte(hkdfInfo)), derived); err != nil {
		return keyEntry{}, &EncryptionError{Op: "derive key", Err: err}
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return keyEntry{}, &EncryptionError{Op: "create block cipher", Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return keyEntry{}, &EncryptionError{Op: "create GCM", Err: err}
	}
	return keyEntry{aead: gcm}, nil
}

// Encrypt seals plaintext under the current key with a fresh random nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	c.mu.RLock()
	aead := c.current.aead
	c.mu.RUnlock()

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", &EncryptionError{Op: "generate nonce", Err: err}
	}

	// Seal returns ciphertext||tag; the blob stores the tag ahead of the body.
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	body, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, nonceSize+len(sealed))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, body...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob, trying the current key and then each previous key
// in order.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	plaintext, _, err := c.open(ciphertext)
	return plaintext, err
}

// open returns the plaintext and the index of the key that authenticated it
// (0 is the current key).
func (c *Cipher) open(ciphertext string) (string, int, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", -1, &DecryptionError{Err: fmt.Errorf("invalid base64: %w", err)}
	}
	if len(data) < nonceSize+tagSize {
		return "", -1, &DecryptionError{Err: ErrCiphertextTooShort}
	}

	nonce := data[:nonceSize]
	tag := data[nonceSize : nonceSize+tagSize]
	body := data[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(body)+tagSize)
	sealed = append(sealed, body...)
	sealed = append(sealed, tag...)

	c.mu.RLock()
	keys := make([]keyEntry, 0, 1+len(c.previous))
	keys = append(keys, c.current)
	keys = append(keys, c.previous...)
	c.mu.RUnlock()

	for i, k := range keys {
		plaintext, err := k.aead.Open(nil, nonce, sealed, nil)
		if err == nil {
			return string(plaintext), i, nil
		}
	}
	return "", -1, &DecryptionError{KeysTried: len(keys), Err: ErrAuthentication}
}

// RotateKey installs newKey as the current key and moves the old current
// key to the front of the previous list.
func (c *Cipher) RotateKey(newKey []byte) error {
	entry, err := newKeyEntry(newKey)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.previous = append([]keyEntry{c.current}, c.previous...)
	c.current = entry
	return nil
}

// Reencrypt decrypts with whichever key authenticates and, when that was not
// the current key, seals the plaintext again under the current key. The
// boolean reports whether the blob changed.
func (c *Cipher) Reencrypt(ciphertext string) (string, bool, error) {
	plaintext, idx, err := c.open(ciphertext)
	if err != nil {
		return "", false, err
	}
	if idx == 0 {
		return ciphertext, false, nil
	}
	fresh, err := c.Encrypt(plaintext)
	if err != nil {
		return "", false, err
	}
	return fresh, true, nil
}

// KeyCount returns the number of keys in the ring, current included.
func (c *Cipher) KeyCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return 1 + len(c.previous)
}

// Hash returns the hex SHA-256 fingerprint of data. Fingerprints are used
// for equality and revocation checks only.
func Hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// CompareHash compares two fingerprints in constant time.
func CompareHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Hash is the method form of the package-level Hash.
func (c *Cipher) Hash(data string) string { return Hash(data) }

// CompareHash is the method form of the package-level CompareHash.
func (c *Cipher) CompareHash(a, b string) bool { return CompareHash(a, b) }
