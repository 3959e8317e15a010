// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/tomtom215/adledger/internal/audit"
	"github.com/tomtom215/adledger/internal/database"
	"github.com/tomtom215/adledger/internal/encryption"
	"github.com/tomtom215/adledger/internal/events"
	"github.com/tomtom215/adledger/internal/googleads"
	"github.com/tomtom215/adledger/internal/logging"
	"github.com/tomtom215/adledger/internal/metrics"
	"github.com/tomtom215/adledger/internal/models"
)

// CredentialStore is the part of the database the manager needs.
type CredentialStore interface {
	UpsertAccount(ctx context.Context, acc *models.ConnectedAccount) (*models.ConnectedAccount, bool, error)
	GetAccount(ctx context.Context, id string) (*models.ConnectedAccount, error)
	ListAccounts(ctx context.Context, f database.AccountFilter) ([]*models.ConnectedAccount, error)
	UpdateTokens(ctx context.Context, id string, u database.TokenUpdate) error
	UpdateCiphertexts(ctx context.Context, id, accessToken, refreshToken, displayName string) error
	ListCampaignNames(ctx context.Context, accountID string) ([]database.CampaignName, error)
	UpdateCampaignNames(ctx context.Context, names []database.CampaignName) error
	SetActive(ctx context.Context, id string, active bool) error
	DeleteAccount(ctx context.Context, id string) (int64, error)
}

// OAuthProvider is the OAuth client of the ad platform.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Revoke(ctx context.Context, token string) error
}

// TokenSet is the plaintext result of an exchange or refresh.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

func tokenSetFromOAuth(tok *oauth2.Token) *TokenSet {
	ts := &TokenSet{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		ts.ExpiresAt = &exp
	}
	return ts
}

// TokenPair is what RetrieveTokens hands to callers. It holds plaintext and
// must not be logged or stored.
type TokenPair struct {
	AccountID         string
	ExternalAccountID string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
	Refreshed         bool
}

// AccountView is a connected account without token material.
type AccountView struct {
	ID                string          `json:"id"`
	Platform          models.Platform `json:"platform"`
	ExternalAccountID string          `json:"external_account_id"`
	DisplayName       string          `json:"display_name,omitempty"`
	IsActive          bool            `json:"is_active"`
	IsManager         bool            `json:"is_manager"`
	TimeZone          string          `json:"time_zone,omitempty"`
	IsTestAccount     bool            `json:"is_test_account"`
	State             State           `json:"state"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	LastSyncAt        *time.Time      `json:"last_sync_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ManagerConfig wires a Manager. Store, Guard and OAuth are required.
type ManagerConfig struct {
	Store CredentialStore
	Guard *encryption.FieldGuard
	OAuth OAuthProvider

	// Reporter fetches account metadata after discovery. Optional.
	Reporter   googleads.Reporter
	Strategies []DiscoveryStrategy

	Revocations RevocationStore
	Limiter     AccessLimiter
	States      *StateStore
	Audit       audit.SecuritySink
	Events      events.Publisher

	Platform models.Platform
	Now      func() time.Time
}

// Manager owns token storage, retrieval, refresh and revocation.
type Manager struct {
	store      CredentialStore
	guard      *encryption.FieldGuard
	oauth      OAuthProvider
	reporter   googleads.Reporter
	strategies []DiscoveryStrategy
	revoked    RevocationStore
	limiter    AccessLimiter
	states     *StateStore
	audit      audit.SecuritySink
	events     events.Publisher
	platform   models.Platform
	now        func() time.Time
}

// NewManager validates cfg and fills defaults for optional parts.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("tokens: credential store is required")
	}
	if cfg.Guard == nil {
		return nil, errors.New("tokens: field guard is required")
	}
	if cfg.OAuth == nil {
		return nil, errors.New("tokens: oauth provider is required")
	}

	m := &Manager{
		store:      cfg.Store,
		guard:      cfg.Guard,
		oauth:      cfg.OAuth,
		reporter:   cfg.Reporter,
		strategies: cfg.Strategies,
		revoked:    cfg.Revocations,
		limiter:    cfg.Limiter,
		states:     cfg.States,
		audit:      cfg.Audit,
		events:     cfg.Events,
		platform:   cfg.Platform,
		now:        cfg.Now,
	}
	if m.revoked == nil {
		m.revoked = NewMemoryRevocationStore(0)
	}
	if m.limiter == nil {
		m.limiter = NewAccessLimiter(DefaultAccessLimit, DefaultAccessWindow)
	}
	if m.states == nil {
		m.states = NewStateStore(DefaultStateTTL)
	}
	if m.audit == nil {
		m.audit = audit.Nop{}
	}
	if m.events == nil {
		m.events = events.Nop{}
	}
	if m.platform == "" {
		m.platform = models.PlatformGoogleAds
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

func (m *Manager) logAudit(ctx context.Context, t audit.EventType, details map[string]interface{}, userID, accountID string) {
	src := audit.SourceFromContext(ctx)
	m.audit.LogSecurityEvent(ctx, t, details, userID, accountID, src.IPAddress, src.UserAgent)
}

// GenerateAuthorizationURL returns the consent URL and the state value the
// callback must present.
func (m *Manager) GenerateAuthorizationURL(userID string) (authURL, state string, err error) {
	if userID == "" {
		return "", "", &InvalidStateError{Reason: "user id is required"}
	}
	state, err = m.states.Issue(userID)
	if err != nil {
		return "", "", fmt.Errorf("generate state: %w", err)
	}
	return m.oauth.AuthCodeURL(state), state, nil
}

// ConsumeState redeems a state issued by GenerateAuthorizationURL.
func (m *Manager) ConsumeState(ctx context.Context, state string) (string, error) {
	userID, err := m.states.Consume(state)
	if err != nil {
		m.logAudit(ctx, audit.EventTypeStateMismatch, map[string]interface{}{"reason": err.Error()}, UserIDFromState(state), "")
		return "", err
	}
	return userID, nil
}

// ExchangeCode trades an authorization code for tokens.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	if code == "" {
		err := &TokenExchangeError{Err: errors.New("authorization code is empty")}
		metrics.RecordTokenOperation("exchange", err)
		return nil, err
	}
	tok, err := m.oauth.Exchange(ctx, code)
	metrics.RecordTokenOperation("exchange", err)
	if err != nil {
		return nil, &TokenExchangeError{Err: err}
	}
	return tokenSetFromOAuth(tok), nil
}

func (m *Manager) refreshWithProvider(ctx context.Context, refreshToken string) (*TokenSet, error) {
	start := time.Now()
	tok, err := m.oauth.Refresh(ctx, refreshToken)
	metrics.TokenRefreshDuration.Observe(time.Since(start).Seconds())
	metrics.RecordTokenOperation("refresh", err)
	if err != nil {
		return nil, err
	}
	return tokenSetFromOAuth(tok), nil
}

// ResolveExternalAccountID finds the first customer id visible to the
// token by running the discovery strategies in order.
func (m *Manager) ResolveExternalAccountID(ctx context.Context, accessToken, refreshToken string) (string, error) {
	res, err := discover(ctx, m.strategies, accessToken, refreshToken, m.refreshWithProvider)
	metrics.RecordTokenOperation("discover", err)
	if err != nil {
		return "", err
	}
	return res.CustomerID, nil
}

// StoreTokens encrypts and upserts the tokens of one account. An empty
// externalID is resolved through discovery. An existing row for the same
// user and account is updated and reactivated.
func (m *Manager) StoreTokens(ctx context.Context, userID, externalID, accessToken, refreshToken string, expiresAt *time.Time) (*models.ConnectedAccount, error) {
	logger := logging.Ctx(ctx)
	if userID == "" || accessToken == "" {
		return nil, &InvalidStateError{Reason: "user id and access token are required"}
	}

	if externalID == "" {
		res, err := discover(ctx, m.strategies, accessToken, refreshToken, m.refreshWithProvider)
		metrics.RecordTokenOperation("discover", err)
		if err != nil {
			return nil, err
		}
		externalID = res.CustomerID
		if res.Refreshed != nil {
			accessToken = res.Refreshed.AccessToken
			refreshToken = res.Refreshed.RefreshToken
			expiresAt = res.Refreshed.ExpiresAt
		}
	} else {
		externalID = googleads.CustomerIDFromResourceName(externalID)
		if !googleads.ValidCustomerID(externalID) {
			return nil, &InvalidStateError{Reason: "external account id must be 10 digits"}
		}
	}

	var meta models.AccountMetadata
	if m.reporter != nil {
		md, err := m.reporter.CustomerMetadata(ctx, accessToken, externalID)
		if err != nil {
			logger.Warn().Str("external_account_id", externalID).
				Str("error", logging.RedactError(err.Error())).
				Msg("Could not fetch account metadata, storing without it")
		} else if md != nil {
			meta = *md
		}
	}

	acc := &models.ConnectedAccount{
		UserID:            userID,
		Platform:          m.platform,
		ExternalAccountID: externalID,
		ExpiresAt:         expiresAt,
		IsManager:         meta.IsManager,
		TimeZone:          meta.TimeZone,
		IsTestAccount:     meta.IsTestAccount,
		AccessTokenHash:   encryption.Hash(accessToken),
	}
	var err error
	if acc.AccessToken, err = m.guard.Encode(encryption.FieldAccessToken, accessToken); err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	if refreshToken != "" {
		if acc.RefreshToken, err = m.guard.Encode(encryption.FieldRefreshToken, refreshToken); err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
		acc.RefreshTokenHash = encryption.Hash(refreshToken)
	}
	if meta.DisplayName != "" {
		if acc.DisplayName, err = m.guard.Encode(encryption.FieldDisplayName, meta.DisplayName); err != nil {
			return nil, fmt.Errorf("encrypt display name: %w", err)
		}
	}

	stored, created, err := m.store.UpsertAccount(ctx, acc)
	metrics.RecordTokenOperation("store", err)
	if err != nil {
		return nil, fmt.Errorf("store tokens: %w", err)
	}

	details := map[string]interface{}{
		"external_account_id": externalID,
		"has_refresh_token":   refreshToken != "",
		"created":             created,
	}
	m.logAudit(ctx, audit.EventTypeTokenStored, details, userID, stored.ID)
	if created {
		m.logAudit(ctx, audit.EventTypeAccountConnected, details, userID, stored.ID)
	}
	logger.Info().Str("account_id", stored.ID).Str("user", logging.RedactUserID(userID)).
		Bool("created", created).Msg("Stored account tokens")
	return stored, nil
}

// Connect completes an authorization callback: it redeems state, exchanges
// code and stores the resulting tokens.
func (m *Manager) Connect(ctx context.Context, code, state string) (*models.ConnectedAccount, error) {
	userID, err := m.ConsumeState(ctx, state)
	if err != nil {
		return nil, err
	}
	ts, err := m.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return m.StoreTokens(ctx, userID, "", ts.AccessToken, ts.RefreshToken, ts.ExpiresAt)
}

// RetrieveTokens returns plaintext tokens for an account, refreshing an
// expired access token first. Calls are limited per requesting user; an
// empty requestingUserID is a system call limited per account.
func (m *Manager) RetrieveTokens(ctx context.Context, accountID, requestingUserID string) (*TokenPair, error) {
	return m.retrieve(ctx, accountID, requestingUserID, false)
}

// ForceRefresh behaves like RetrieveTokens but refreshes the access token
// even when it has not expired. The sync retry path uses it after the
// provider rejects a token.
func (m *Manager) ForceRefresh(ctx context.Context, accountID, requestingUserID string) (*TokenPair, error) {
	return m.retrieve(ctx, accountID, requestingUserID, true)
}

func (m *Manager) retrieve(ctx context.Context, accountID, requestingUserID string, force bool) (*TokenPair, error) {
	key := limiterKey(accountID, requestingUserID)
	if !m.limiter.Allow(key) {
		metrics.TokenAccessRateLimited.Inc()
		rl := &RateLimitError{Key: key}
		if ra, ok := m.limiter.(retryAfterer); ok {
			rl.RetryAfter = ra.RetryAfter(key)
		}
		m.logAudit(ctx, audit.EventTypeRateLimited, map[string]interface{}{
			"retry_after_seconds": rl.RetryAfter.Seconds(),
		}, requestingUserID, accountID)
		return nil, rl
	}

	acc, err := m.loadOwned(ctx, accountID, requestingUserID)
	if err != nil {
		return nil, err
	}

	if acc.AccessToken == "" {
		return nil, &InvalidStateError{AccountID: accountID, Reason: "no access token stored"}
	}
	revoked, err := m.revoked.IsRevoked(ctx, acc.AccessTokenHash)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		m.logAudit(ctx, audit.EventTypeAccessDenied, map[string]interface{}{"reason": "token revoked"}, acc.UserID, acc.ID)
		metrics.RecordTokenOperation("retrieve", ErrRevoked)
		return nil, &RevokedError{AccountID: acc.ID}
	}
	if !acc.IsActive {
		metrics.RecordTokenOperation("retrieve", ErrRefreshFailed)
		return nil, &RefreshFailedError{AccountID: acc.ID}
	}

	accessToken, err := m.guard.Decode(encryption.FieldAccessToken, acc.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	var refreshToken string
	if acc.RefreshToken != "" {
		if refreshToken, err = m.guard.Decode(encryption.FieldRefreshToken, acc.RefreshToken); err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}

	pair := &TokenPair{
		AccountID:         acc.ID,
		ExternalAccountID: acc.ExternalAccountID,
		AccessToken:       accessToken,
		RefreshToken:      refreshToken,
		ExpiresAt:         acc.ExpiresAt,
	}

	if force || acc.IsExpired(m.now()) {
		if refreshToken == "" {
			var expiredAt time.Time
			if acc.ExpiresAt != nil {
				expiredAt = *acc.ExpiresAt
			}
			metrics.RecordTokenOperation("retrieve", ErrExpiredNoRefresh)
			return nil, &ExpiredNoRefreshError{AccountID: acc.ID, ExpiredAt: expiredAt}
		}
		ts, err := m.refreshAccount(ctx, acc, refreshToken)
		if err != nil {
			return nil, err
		}
		pair.AccessToken = ts.AccessToken
		pair.RefreshToken = ts.RefreshToken
		pair.ExpiresAt = ts.ExpiresAt
		pair.Refreshed = true
	}

	m.logAudit(ctx, audit.EventTypeTokenAccessed, map[string]interface{}{"refreshed": pair.Refreshed}, acc.UserID, acc.ID)
	metrics.RecordTokenOperation("retrieve", nil)
	return pair, nil
}

// refreshAccount refreshes and persists new tokens. On a provider
// rejection the account is deactivated.
func (m *Manager) refreshAccount(ctx context.Context, acc *models.ConnectedAccount, refreshToken string) (*TokenSet, error) {
	logger := logging.Ctx(ctx)

	ts, err := m.refreshWithProvider(ctx, refreshToken)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("refresh cancelled: %w", ctx.Err())
		}
		m.deactivate(ctx, acc, err)
		return nil, &RefreshFailedError{AccountID: acc.ID, Err: err}
	}

	update := database.TokenUpdate{
		AccessTokenHash: encryption.Hash(ts.AccessToken),
		ExpiresAt:       ts.ExpiresAt,
	}
	if update.AccessToken, err = m.guard.Encode(encryption.FieldAccessToken, ts.AccessToken); err != nil {
		return nil, fmt.Errorf("encrypt refreshed access token: %w", err)
	}
	if ts.RefreshToken != "" && ts.RefreshToken != refreshToken {
		if update.RefreshToken, err = m.guard.Encode(encryption.FieldRefreshToken, ts.RefreshToken); err != nil {
			return nil, fmt.Errorf("encrypt rotated refresh token: %w", err)
		}
		update.RefreshTokenHash = encryption.Hash(ts.RefreshToken)
	}
	if err := m.store.UpdateTokens(ctx, acc.ID, update); err != nil {
		return nil, fmt.Errorf("persist refreshed tokens: %w", err)
	}

	m.logAudit(ctx, audit.EventTypeTokenRefreshed, map[string]interface{}{
		"rotated_refresh_token": update.RefreshToken != "",
	}, acc.UserID, acc.ID)
	logger.Info().Str("account_id", acc.ID).Msg("Refreshed access token")
	return ts, nil
}

func (m *Manager) deactivate(ctx context.Context, acc *models.ConnectedAccount, cause error) {
	logger := logging.Ctx(ctx)
	reason := logging.RedactError(cause.Error())

	if err := m.store.SetActive(ctx, acc.ID, false); err != nil {
		logger.Error().Err(err).Str("account_id", acc.ID).Msg("Failed to deactivate account after refresh failure")
	}
	m.logAudit(ctx, audit.EventTypeTokenRefreshFailed, map[string]interface{}{"error": reason}, acc.UserID, acc.ID)

	if err := m.events.Publish(ctx, events.TopicAccountDeactivated, events.AccountDeactivated{
		AccountID:     acc.ID,
		UserID:        acc.UserID,
		Reason:        reason,
		DeactivatedAt: m.now().UTC(),
	}); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish account deactivation")
	}
	logger.Warn().Str("account_id", acc.ID).Str("error", reason).Msg("Token refresh failed, account deactivated")
}

// loadOwned fetches an account and hides accounts the requester does not
// own behind NotFoundError.
func (m *Manager) loadOwned(ctx context.Context, accountID, requestingUserID string) (*models.ConnectedAccount, error) {
	acc, err := m.store.GetAccount(ctx, accountID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &NotFoundError{AccountID: accountID}
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if requestingUserID != "" && acc.UserID != requestingUserID {
		m.logAudit(ctx, audit.EventTypeAccessDenied, map[string]interface{}{"reason": "not owner"}, requestingUserID, accountID)
		return nil, &NotFoundError{AccountID: accountID}
	}
	return acc, nil
}

// RevokeToken adds a token fingerprint to the revoked set.
func (m *Manager) RevokeToken(ctx context.Context, tokenHash string) error {
	if tokenHash == "" {
		return &InvalidStateError{Reason: "token hash is required"}
	}
	err := m.revoked.Revoke(ctx, tokenHash)
	metrics.RecordTokenOperation("revoke", err)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	m.logAudit(ctx, audit.EventTypeTokenRevoked, map[string]interface{}{"token_hash": logging.RedactToken(tokenHash)}, "", "")
	return nil
}

// Disconnect revokes both fingerprints, asks the provider to revoke the
// grant and deletes the account with its campaign rows. Provider revocation
// is best-effort.
func (m *Manager) Disconnect(ctx context.Context, accountID, userID string) error {
	logger := logging.Ctx(ctx)

	acc, err := m.loadOwned(ctx, accountID, userID)
	if err != nil {
		return err
	}

	for _, h := range []string{acc.AccessTokenHash, acc.RefreshTokenHash} {
		if err := m.revoked.Revoke(ctx, h); err != nil {
			return fmt.Errorf("revoke token fingerprint: %w", err)
		}
	}

	grant, field := acc.RefreshToken, encryption.FieldRefreshToken
	if grant == "" {
		grant, field = acc.AccessToken, encryption.FieldAccessToken
	}
	if grant != "" {
		if plain, err := m.guard.Decode(field, grant); err != nil {
			logger.Warn().Err(err).Str("account_id", acc.ID).Msg("Could not decrypt token for provider revocation")
		} else if err := m.oauth.Revoke(ctx, plain); err != nil {
			logger.Warn().Str("account_id", acc.ID).Str("error", logging.RedactError(err.Error())).
				Msg("Provider token revocation failed")
		}
	}

	removed, err := m.store.DeleteAccount(ctx, acc.ID)
	metrics.RecordTokenOperation("disconnect", err)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	m.logAudit(ctx, audit.EventTypeAccountDisconnected, map[string]interface{}{
		"external_account_id": acc.ExternalAccountID,
		"campaign_rows":       removed,
	}, acc.UserID, acc.ID)
	logger.Info().Str("account_id", acc.ID).Int64("campaign_rows", removed).Msg("Disconnected account")
	return nil
}

// ReencryptAccount rewrites the account's token, display-name and
// campaign-name ciphertexts under the current key. It reports whether
// anything changed.
func (m *Manager) ReencryptAccount(ctx context.Context, accountID string) (bool, error) {
	acc, err := m.loadOwned(ctx, accountID, "")
	if err != nil {
		return false, err
	}

	c := m.guard.Cipher()
	rewrite := func(ct string) (string, bool, error) {
		if ct == "" || !encryption.LooksEncrypted(ct) {
			return ct, false, nil
		}
		return c.Reencrypt(ct)
	}

	access, didAccess, err := rewrite(acc.AccessToken)
	if err != nil {
		return false, fmt.Errorf("reencrypt access token: %w", err)
	}
	refresh, didRefresh, err := rewrite(acc.RefreshToken)
	if err != nil {
		return false, fmt.Errorf("reencrypt refresh token: %w", err)
	}
	display, didDisplay, err := rewrite(acc.DisplayName)
	if err != nil {
		return false, fmt.Errorf("reencrypt display name: %w", err)
	}
	tokensChanged := didAccess || didRefresh || didDisplay
	if tokensChanged {
		err = m.store.UpdateCiphertexts(ctx, acc.ID, access, refresh, display)
		metrics.RecordTokenOperation("reencrypt", err)
		if err != nil {
			return false, fmt.Errorf("persist reencrypted tokens: %w", err)
		}
	}

	names, err := m.store.ListCampaignNames(ctx, acc.ID)
	if err != nil {
		return tokensChanged, fmt.Errorf("list campaign names: %w", err)
	}
	var stale []database.CampaignName
	for _, n := range names {
		out, did, err := rewrite(n.Name)
		if err != nil {
			return tokensChanged, fmt.Errorf("reencrypt campaign name %s: %w", n.ID, err)
		}
		if did {
			stale = append(stale, database.CampaignName{ID: n.ID, Name: out})
		}
	}
	if len(stale) > 0 {
		if err := m.store.UpdateCampaignNames(ctx, stale); err != nil {
			return tokensChanged, fmt.Errorf("persist reencrypted campaign names: %w", err)
		}
	}

	if !tokensChanged && len(stale) == 0 {
		return false, nil
	}
	m.logAudit(ctx, audit.EventTypeTokenReencrypted, map[string]interface{}{
		"tokens":         tokensChanged,
		"campaign_names": len(stale),
	}, acc.UserID, acc.ID)
	return true, nil
}

// ReencryptAll runs ReencryptAccount over every account and returns how
// many were rewritten.
func (m *Manager) ReencryptAll(ctx context.Context) (int, error) {
	accounts, err := m.store.ListAccounts(ctx, database.AccountFilter{})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, acc := range accounts {
		changed, err := m.ReencryptAccount(ctx, acc.ID)
		if err != nil {
			return n, err
		}
		if changed {
			n++
		}
	}
	return n, nil
}

// StateOf returns the credential state of an account.
func (m *Manager) StateOf(ctx context.Context, accountID string) (State, error) {
	acc, err := m.store.GetAccount(ctx, accountID)
	if errors.Is(err, database.ErrNotFound) {
		return StateNoToken, nil
	}
	if err != nil {
		return "", err
	}
	return m.stateOf(ctx, acc)
}

func (m *Manager) stateOf(ctx context.Context, acc *models.ConnectedAccount) (State, error) {
	revoked, err := m.revoked.IsRevoked(ctx, acc.AccessTokenHash)
	if err != nil {
		return "", err
	}
	return ClassifyState(acc, m.now(), revoked), nil
}

// ListAccounts returns the user's accounts with display names decrypted.
func (m *Manager) ListAccounts(ctx context.Context, userID string) ([]AccountView, error) {
	accounts, err := m.store.ListAccounts(ctx, database.AccountFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	views := make([]AccountView, 0, len(accounts))
	for _, acc := range accounts {
		v, err := m.view(ctx, acc)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// GetAccount returns one owned account view.
func (m *Manager) GetAccount(ctx context.Context, accountID, userID string) (*AccountView, error) {
	acc, err := m.loadOwned(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	v, err := m.view(ctx, acc)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (m *Manager) view(ctx context.Context, acc *models.ConnectedAccount) (AccountView, error) {
	name, err := m.guard.Decode(encryption.FieldDisplayName, acc.DisplayName)
	if err != nil {
		return AccountView{}, fmt.Errorf("decrypt display name: %w", err)
	}
	state, err := m.stateOf(ctx, acc)
	if err != nil {
		return AccountView{}, err
	}
	return AccountView{
		ID:                acc.ID,
		Platform:          acc.Platform,
		ExternalAccountID: acc.ExternalAccountID,
		DisplayName:       name,
		IsActive:          acc.IsActive,
		IsManager:         acc.IsManager,
		TimeZone:          acc.TimeZone,
		IsTestAccount:     acc.IsTestAccount,
		State:             state,
		ExpiresAt:         acc.ExpiresAt,
		LastSyncAt:        acc.LastSyncAt,
		CreatedAt:         acc.CreatedAt,
	}, nil
}
