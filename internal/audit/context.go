// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package audit

import "context"

type sourceKey struct{}

// ContextWithSource attaches the caller's address and user agent so that
// events logged further down the call chain carry them.
func ContextWithSource(ctx context.Context, ipAddress, userAgent string) context.Context {
	return context.WithValue(ctx, sourceKey{}, Source{IPAddress: ipAddress, UserAgent: userAgent})
}

// SourceFromContext returns the source attached by ContextWithSource.
func SourceFromContext(ctx context.Context) Source {
	if ctx == nil {
		return Source{}
	}
	if s, ok := ctx.Value(sourceKey{}).(Source); ok {
		return s
	}
	return Source{}
}
