// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package encryption

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Field names routed through the Cipher.
const (
	FieldAccessToken  = "access_token"
	FieldRefreshToken = "refresh_token"
	FieldCampaignName = "campaign_name"
	FieldDisplayName  = "display_name"
	FieldEmail        = "email"
)

var encryptedFields = map[string]bool{
	FieldAccessToken:  true,
	FieldRefreshToken: true,
	FieldCampaignName: true,
}

var piiFields = map[string]bool{
	FieldDisplayName: true,
	FieldEmail:       true,
	"phone":          true,
}

// minEncryptedLen is the base64 length of the smallest possible blob
// (nonce and tag around an empty body).
const minEncryptedLen = ((nonceSize + tagSize + 2) / 3) * 4

// plaintextPrefixes are prefixes of provider tokens that are base64-safe
// enough to pass the alphabet check.
var plaintextPrefixes = []string{
	"ya29.", // Google access token
	"1//",   // Google refresh token
	"EAA",   // Meta access token
	"act.",  // TikTok access token
}

// FieldGuard applies the Cipher to protected fields by name.
//
// Encoding skips values that already look encrypted and decoding passes
// through values that do not, so any number of encode passes followed by a
// single decode yields the plaintext. The check is a heuristic: a plaintext
// value shaped like a blob is stored unencrypted and then fails to decode.
type FieldGuard struct {
	cipher *Cipher
}

// NewFieldGuard returns a guard backed by c.
func NewFieldGuard(c *Cipher) *FieldGuard {
	return &FieldGuard{cipher: c}
}

// Cipher returns the underlying Cipher.
func (g *FieldGuard) Cipher() *Cipher { return g.cipher }

// IsProtected reports whether field belongs to the encrypted or PII set.
func IsProtected(field string) bool {
	return encryptedFields[field] || piiFields[field]
}

// IsProtected is the method form of the package-level IsProtected.
func (g *FieldGuard) IsProtected(field string) bool { return IsProtected(field) }

// LooksEncrypted reports whether value has the shape of a Cipher blob.
func LooksEncrypted(value string) bool {
	if len(value) < minEncryptedLen || len(value)%4 != 0 {
		return false
	}
	for _, p := range plaintextPrefixes {
		if strings.HasPrefix(value, p) {
			return false
		}
	}
	for i := 0; i < len(value); i++ {
		if !isBase64Char(value[i]) {
			return false
		}
	}
	_, err := base64.StdEncoding.DecodeString(value)
	return err == nil
}

func isBase64Char(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') || c == '+' || c == '/' || c == '='
}

// Encode prepares value for storage. Unprotected fields, empty values and
// values that already look encrypted are returned unchanged.
func (g *FieldGuard) Encode(field, value string) (string, error) {
	if !IsProtected(field) || value == "" || LooksEncrypted(value) {
		return value, nil
	}
	return g.cipher.Encrypt(value)
}

// Decode reverses Encode. Values that do not look encrypted are returned
// unchanged. A blob that fails to authenticate is a *DecryptionError.
func (g *FieldGuard) Decode(field, value string) (string, error) {
	if !IsProtected(field) || value == "" || !LooksEncrypted(value) {
		return value, nil
	}
	plaintext, err := g.cipher.Decrypt(value)
	if err != nil {
		var de *DecryptionError
		if errors.As(err, &de) {
			de.Field = field
		}
		return "", err
	}
	return plaintext, nil
}

// EncodeRecord applies Encode to every field of record and returns a new map.
func (g *FieldGuard) EncodeRecord(record map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(record))
	for k, v := range record {
		enc, err := g.Encode(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = enc
	}
	return out, nil
}

// DecodeRecord applies Decode to every field of record and returns a new map.
func (g *FieldGuard) DecodeRecord(record map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(record))
	for k, v := range record {
		dec, err := g.Decode(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = dec
	}
	return out, nil
}
