// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package googleads

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/tomtom215/adledger/internal/config"
)

// AdWordsScope is the OAuth scope for the Ads API.
const AdWordsScope = "https://www.googleapis.com/auth/adwords"

// DefaultRevokeURL is Google's token revocation endpoint.
const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// OAuthClient wraps the provider's OAuth2 endpoints.
type OAuthClient struct {
	config     *oauth2.Config
	httpClient *http.Client
	revokeURL  string
}

// NewOAuthClient builds a client against Google's production endpoints.
func NewOAuthClient(cfg *config.GoogleAdsConfig) *OAuthClient {
	return NewOAuthClientWithEndpoint(cfg, endpoints.Google, DefaultRevokeURL)
}

// NewOAuthClientWithEndpoint builds a client against explicit endpoints.
func NewOAuthClientWithEndpoint(cfg *config.GoogleAdsConfig, endpoint oauth2.Endpoint, revokeURL string) *OAuthClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OAuthClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{AdWordsScope},
			Endpoint:     endpoint,
		},
		httpClient: &http.Client{Timeout: timeout},
		revokeURL:  revokeURL,
	}
}

// AuthCodeURL returns the consent screen URL. Offline access with a forced
// prompt makes Google issue a refresh token on every consent.
func (c *OAuthClient) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (c *OAuthClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// Exchange trades an authorization code for tokens.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.config.Exchange(c.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// Refresh mints a new access token from a refresh token. The returned token
// keeps the original refresh token when the provider does not rotate it.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := c.config.TokenSource(c.withClient(ctx), &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// Revoke invalidates a token at the provider.
func (c *OAuthClient) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Endpoint: "revoke", StatusCode: resp.StatusCode, Message: string(readBodyForError(resp.Body))}
	}
	return nil
}
