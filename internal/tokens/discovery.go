// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package tokens

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/adledger/internal/googleads"
	"github.com/tomtom215/adledger/internal/logging"
)

// Discovery strategy names, in the order they run.
const (
	StrategyAdsClient         = "ads_client"
	StrategyAdsClientFallback = "ads_client_fallback_version"
	StrategyRawHTTP           = "raw_http"
)

var errNoCustomerID = errors.New("no valid 10-digit customer id returned")

// DiscoveryStrategy lists the customer resource names visible to a token.
type DiscoveryStrategy struct {
	Name string
	List func(ctx context.Context, accessToken string) ([]string, error)
}

// RawDiscovery configures the bare HTTP strategy.
type RawDiscovery struct {
	HTTPClient     *http.Client
	BaseURL        string
	Version        string
	DeveloperToken string
}

// DefaultStrategies builds the ads_client, ads_client_fallback_version and
// raw_http chain. Strategies whose inputs are missing are left out.
func DefaultStrategies(reporter googleads.Reporter, raw RawDiscovery) []DiscoveryStrategy {
	var out []DiscoveryStrategy
	if reporter != nil {
		primary := reporter.Version()
		out = append(out, DiscoveryStrategy{
			Name: StrategyAdsClient,
			List: func(ctx context.Context, accessToken string) ([]string, error) {
				return reporter.ListAccessibleCustomers(ctx, primary, accessToken)
			},
		})
		if fb := reporter.FallbackVersion(); fb != "" && fb != primary {
			out = append(out, DiscoveryStrategy{
				Name: StrategyAdsClientFallback,
				List: func(ctx context.Context, accessToken string) ([]string, error) {
					return reporter.ListAccessibleCustomers(ctx, fb, accessToken)
				},
			})
		}
	}
	if raw.BaseURL != "" && raw.Version != "" {
		hc := raw.HTTPClient
		if hc == nil {
			hc = &http.Client{Timeout: 30 * time.Second}
		}
		out = append(out, DiscoveryStrategy{
			Name: StrategyRawHTTP,
			List: func(ctx context.Context, accessToken string) ([]string, error) {
				return googleads.ListAccessibleCustomersRaw(ctx, hc, raw.BaseURL, raw.Version, raw.DeveloperToken, accessToken)
			},
		})
	}
	return out
}

// discoveryResult is the outcome of a successful discovery. Refreshed is
// non-nil when the chain had to refresh the access token on the way.
type discoveryResult struct {
	CustomerID string
	Strategy   string
	Refreshed  *TokenSet
}

// refreshFunc mints a new token set from a refresh token.
type refreshFunc func(ctx context.Context, refreshToken string) (*TokenSet, error)

// discover runs the strategies in order and returns the first valid id.
// A permission error stops the chain. The first authentication error
// triggers a single refresh when a refresh token is available, and the
// chain continues with the new access token.
func discover(ctx context.Context, strategies []DiscoveryStrategy, accessToken, refreshToken string, refresh refreshFunc) (*discoveryResult, error) {
	logger := logging.Ctx(ctx)
	derr := &AccountDiscoveryError{}
	var refreshed *TokenSet
	refreshTried := false

	if len(strategies) == 0 {
		derr.Attempts = append(derr.Attempts, StrategyFailure{Strategy: "none", Err: errors.New("no discovery strategies configured")})
		return nil, derr
	}

	for _, s := range strategies {
		names, err := s.List(ctx, accessToken)
		if err == nil {
			if id, ok := googleads.FirstValidCustomerID(names); ok {
				logger.Debug().Str("strategy", s.Name).Msg("Resolved external account id")
				return &discoveryResult{CustomerID: id, Strategy: s.Name, Refreshed: refreshed}, nil
			}
			err = errNoCustomerID
		}
		derr.Attempts = append(derr.Attempts, StrategyFailure{Strategy: s.Name, Err: err})
		logger.Debug().Str("strategy", s.Name).Str("error", logging.RedactError(err.Error())).Msg("Discovery strategy failed")

		if googleads.IsPermissionError(err) {
			derr.ShortCircuited = true
			return nil, derr
		}
		if ctx.Err() != nil {
			return nil, derr
		}
		if !refreshTried && refreshToken != "" && refresh != nil && googleads.IsAuthError(err) {
			refreshTried = true
			ts, rerr := refresh(ctx, refreshToken)
			if rerr != nil {
				derr.Attempts = append(derr.Attempts, StrategyFailure{Strategy: "token_refresh", Err: rerr})
				continue
			}
			refreshed = ts
			accessToken = ts.AccessToken
		}
	}
	return nil, derr
}
