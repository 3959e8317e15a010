// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package tokens

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/tomtom215/adledger/internal/audit"
	"github.com/tomtom215/adledger/internal/database"
	"github.com/tomtom215/adledger/internal/encryption"
	"github.com/tomtom215/adledger/internal/events"
	"github.com/tomtom215/adledger/internal/models"
)

const (
	testUser     = "user-1"
	testExternal = "1234567890"
	testAccess   = "ya29.access-token-one"
	testRefresh  = "1//refresh-token-one"
)

func (env *testEnv) store(t *testing.T, expiresIn time.Duration, refresh string) *models.ConnectedAccount {
	t.Helper()
	exp := env.clock.now().Add(expiresIn)
	acc, err := env.mgr.StoreTokens(context.Background(), testUser, testExternal, testAccess, refresh, &exp)
	if err != nil {
		t.Fatalf("StoreTokens() error = %v", err)
	}
	return acc
}

func TestManager_StoreTokensEncryptsAtRest(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	acc := env.store(t, time.Hour, testRefresh)

	row, err := env.db.GetAccount(ctx, acc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.AccessToken == testAccess || strings.Contains(row.AccessToken, "access-token") {
		t.Error("access token stored in plaintext")
	}
	if row.RefreshToken == testRefresh {
		t.Error("refresh token stored in plaintext")
	}
	if !encryption.CompareHash(row.AccessTokenHash, encryption.Hash(testAccess)) {
		t.Error("access token hash mismatch")
	}
	if !encryption.CompareHash(row.RefreshTokenHash, encryption.Hash(testRefresh)) {
		t.Error("refresh token hash mismatch")
	}
	if !env.sink.has(audit.EventTypeTokenStored) || !env.sink.has(audit.EventTypeAccountConnected) {
		t.Errorf("audit events = %v, want token.stored and account.connected", env.sink.events)
	}
}

func TestManager_StoreTokensUpsertReactivates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.store(t, time.Hour, testRefresh)
	if err := env.db.SetActive(ctx, first.ID, false); err != nil {
		t.Fatal(err)
	}

	second, err := env.mgr.StoreTokens(ctx, testUser, "123-456-7890", "ya29.access-token-two", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a new row: %s != %s", second.ID, first.ID)
	}
	if !second.IsActive {
		t.Error("re-stored account should be active")
	}

	pair, err := env.mgr.RetrieveTokens(ctx, first.ID, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if pair.AccessToken != "ya29.access-token-two" {
		t.Errorf("AccessToken = %q", pair.AccessToken)
	}
	if pair.RefreshToken != testRefresh {
		t.Errorf("RefreshToken = %q, want the original to be kept", pair.RefreshToken)
	}
}

func TestManager_StoreTokensRejectsBadExternalID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.mgr.StoreTokens(context.Background(), testUser, "12345", testAccess, "", nil)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState", err)
	}
}

func TestManager_RetrieveTokensValid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	acc := env.store(t, time.Hour, testRefresh)

	pair, err := env.mgr.RetrieveTokens(context.Background(), acc.ID, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if pair.AccessToken != testAccess || pair.RefreshToken != testRefresh {
		t.Errorf("pair = %+v", pair)
	}
	if pair.Refreshed {
		t.Error("valid token should not be refreshed")
	}
	if env.oauth.calls() != 0 {
		t.Errorf("refresh calls = %d, want 0", env.oauth.calls())
	}
	if !env.sink.has(audit.EventTypeTokenAccessed) {
		t.Error("missing token.accessed audit event")
	}
}

func TestManager_RetrieveTokensRefreshesExpired(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.store(t, -time.Minute, testRefresh)

	newExpiry := env.clock.now().Add(time.Hour)
	env.oauth.refreshed = &oauth2.Token{AccessToken: "ya29.refreshed-access", Expiry: newExpiry}

	pair, err := env.mgr.RetrieveTokens(ctx, acc.ID, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if !pair.Refreshed || pair.AccessToken != "ya29.refreshed-access" {
		t.Errorf("pair = %+v, want refreshed access token", pair)
	}

	row, err := env.db.GetAccount(ctx, acc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.ExpiresAt == nil || !row.ExpiresAt.After(env.clock.now()) {
		t.Errorf("ExpiresAt = %v, want after %v", row.ExpiresAt, env.clock.now())
	}
	if !encryption.CompareHash(row.AccessTokenHash, encryption.Hash("ya29.refreshed-access")) {
		t.Error("access token hash not updated")
	}
	if !encryption.CompareHash(row.RefreshTokenHash, encryption.Hash(testRefresh)) {
		t.Error("refresh token should be unchanged when the provider does not rotate it")
	}
	if !env.sink.has(audit.EventTypeTokenRefreshed) {
		t.Error("missing token.refreshed audit event")
	}

	// The new token is valid, so the next call does not refresh.
	if _, err := env.mgr.RetrieveTokens(ctx, acc.ID, testUser); err != nil {
		t.Fatal(err)
	}
	if env.oauth.calls() != 1 {
		t.Errorf("refresh calls = %d, want 1", env.oauth.calls())
	}
}

func TestManager_RefreshFailureDeactivates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.store(t, -time.Minute, testRefresh)

	env.oauth.refreshErr = &oauth2.RetrieveError{ErrorCode: "invalid_grant"}

	_, err := env.mgr.RetrieveTokens(ctx, acc.ID, testUser)
	var rf *RefreshFailedError
	if !errors.As(err, &rf) {
		t.Fatalf("error = %v, want *RefreshFailedError", err)
	}
	if !IsReconnectRequired(err) {
		t.Error("refresh failure should require reconnect")
	}

	row, err := env.db.GetAccount(ctx, acc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.IsActive {
		t.Error("account should be deactivated")
	}
	if !env.sink.has(audit.EventTypeTokenRefreshFailed) {
		t.Error("missing token.refresh_failed audit event")
	}
	if len(env.pub.topics) != 1 || env.pub.topics[0] != events.TopicAccountDeactivated {
		t.Errorf("published = %v", env.pub.topics)
	}

	// An inactive account fails without calling the provider again.
	_, err = env.mgr.RetrieveTokens(ctx, acc.ID, testUser)
	if !errors.Is(err, ErrRefreshFailed) {
		t.Errorf("second call error = %v, want ErrRefreshFailed", err)
	}
	if env.oauth.calls() != 1 {
		t.Errorf("refresh calls = %d, want 1", env.oauth.calls())
	}

	state, err := env.mgr.StateOf(ctx, acc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if state != StateRefreshFailed {
		t.Errorf("StateOf() = %s, want %s", state, StateRefreshFailed)
	}
}

func TestManager_ExpiredWithoutRefreshToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	acc := env.store(t, -time.Minute, "")

	_, err := env.mgr.RetrieveTokens(context.Background(), acc.ID, testUser)
	var en *ExpiredNoRefreshError
	if !errors.As(err, &en) {
		t.Fatalf("error = %v, want *ExpiredNoRefreshError", err)
	}
	if !IsReconnectRequired(err) {
		t.Error("expired without refresh should require reconnect")
	}
}

func TestManager_RateLimit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.store(t, time.Hour, testRefresh)

	for i := 0; i < DefaultAccessLimit; i++ {
		if _, err := env.mgr.RetrieveTokens(ctx, acc.ID, testUser); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
		env.clock.advance(time.Second)
	}

	_, err := env.mgr.RetrieveTokens(ctx, acc.ID, testUser)
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("6th call error = %v, want *RateLimitError", err)
	}
	if rl.RetryAfter <= 0 || rl.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v", rl.RetryAfter)
	}
	if IsReconnectRequired(err) {
		t.Error("rate limit must not require reconnect")
	}
	if !env.sink.has(audit.EventTypeRateLimited) {
		t.Error("missing access.rate_limited audit event")
	}

	env.clock.advance(61 * time.Second)
	if _, err := env.mgr.RetrieveTokens(ctx, acc.ID, testUser); err != nil {
		t.Errorf("call after window: %v", err)
	}
}

func TestManager_RevokedToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.store(t, time.Hour, testRefresh)

	if err := env.mgr.RevokeToken(ctx, encryption.Hash(testAccess)); err != nil {
		t.Fatal(err)
	}

	_, err := env.mgr.RetrieveTokens(ctx, acc.ID, testUser)
	var rv *RevokedError
	if !errors.As(err, &rv) {
		t.Fatalf("error = %v, want *RevokedError", err)
	}
	if !IsReconnectRequired(err) {
		t.Error("revoked token should require reconnect")
	}
	if state, _ := env.mgr.StateOf(ctx, acc.ID); state != StateRevoked {
		t.Errorf("StateOf() = %s, want %s", state, StateRevoked)
	}
}

func TestManager_NotFoundAndOwnership(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.store(t, time.Hour, testRefresh)

	tests := []struct {
		name      string
		accountID string
		userID    string
	}{
		{"missing account", "00000000-0000-0000-0000-000000000000", testUser},
		{"other user", acc.ID, "user-2"},
	}
	for _, tt := range tests {
		_, err := env.mgr.RetrieveTokens(ctx, tt.accountID, tt.userID)
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("%s: error = %v, want *NotFoundError", tt.name, err)
		}
		if IsReconnectRequired(err) {
			t.Errorf("%s: not found must not require reconnect", tt.name)
		}
	}
	if !env.sink.has(audit.EventTypeAccessDenied) {
		t.Error("missing access.denied audit event for the ownership mismatch")
	}
}

func TestManager_ForceRefresh(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	acc := env.store(t, time.Hour, testRefresh)
	env.oauth.refreshed = &oauth2.Token{AccessToken: "ya29.forced", Expiry: env.clock.now().Add(time.Hour)}

	pair, err := env.mgr.ForceRefresh(context.Background(), acc.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if !pair.Refreshed || pair.AccessToken != "ya29.forced" {
		t.Errorf("pair = %+v", pair)
	}
}

func TestManager_ConnectFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.mgr.strategies = []DiscoveryStrategy{{
		Name: StrategyAdsClient,
		List: func(context.Context, string) ([]string, error) {
			return []string{"customers/9876543210"}, nil
		},
	}}
	env.oauth.exchanged = &oauth2.Token{AccessToken: testAccess, RefreshToken: testRefresh, Expiry: env.clock.now().Add(time.Hour)}

	authURL, state, err := env.mgr.GenerateAuthorizationURL(testUser)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(state, testUser+".") {
		t.Errorf("state = %q, want %q prefix", state, testUser+".")
	}
	if !strings.Contains(authURL, state) {
		t.Errorf("auth URL %q does not carry state", authURL)
	}

	acc, err := env.mgr.Connect(ctx, "auth-code", state)
	if err != nil {
		t.Fatal(err)
	}
	if acc.ExternalAccountID != "9876543210" || acc.UserID != testUser {
		t.Errorf("account = %+v", acc)
	}

	// State is single-use.
	_, err = env.mgr.Connect(ctx, "auth-code", state)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("replayed state error = %v, want ErrInvalidState", err)
	}
	if !env.sink.has(audit.EventTypeStateMismatch) {
		t.Error("missing access.state_mismatch audit event")
	}
}

func TestManager_ExchangeCodeFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.oauth.exchangeErr = &oauth2.RetrieveError{ErrorCode: "invalid_grant"}

	_, err := env.mgr.ExchangeCode(context.Background(), "bad-code")
	var te *TokenExchangeError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TokenExchangeError", err)
	}
	if !IsReconnectRequired(err) {
		t.Error("exchange failure should require reconnect")
	}

	if _, err := env.mgr.ExchangeCode(context.Background(), ""); !errors.Is(err, ErrTokenExchange) {
		t.Errorf("empty code error = %v, want ErrTokenExchange", err)
	}
}

func TestManager_Disconnect(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.store(t, time.Hour, testRefresh)

	if err := env.mgr.Disconnect(ctx, acc.ID, "user-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign disconnect error = %v, want ErrNotFound", err)
	}
	if err := env.mgr.Disconnect(ctx, acc.ID, testUser); err != nil {
		t.Fatal(err)
	}

	if _, err := env.db.GetAccount(ctx, acc.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetAccount() after disconnect error = %v", err)
	}
	if len(env.oauth.revoked) != 1 || env.oauth.revoked[0] != testRefresh {
		t.Errorf("provider revoked = %v, want the refresh token", env.oauth.revoked)
	}
	revoked, err := env.mgr.revoked.IsRevoked(ctx, encryption.Hash(testAccess))
	if err != nil || !revoked {
		t.Errorf("access fingerprint revoked = %v, %v", revoked, err)
	}
	if !env.sink.has(audit.EventTypeAccountDisconnected) {
		t.Error("missing account.disconnected audit event")
	}
}

func TestManager_ReencryptAccount(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.store(t, time.Hour, testRefresh)

	changed, err := env.mgr.ReencryptAccount(ctx, acc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("nothing to re-encrypt under the current key")
	}

	if err := env.guard.Cipher().RotateKey(bytes.Repeat([]byte{0x43}, encryption.KeySize)); err != nil {
		t.Fatal(err)
	}
	before, _ := env.db.GetAccount(ctx, acc.ID)

	n, err := env.mgr.ReencryptAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("ReencryptAll() = %d, want 1", n)
	}
	after, _ := env.db.GetAccount(ctx, acc.ID)
	if after.AccessToken == before.AccessToken {
		t.Error("access token ciphertext unchanged after rotation")
	}

	pair, err := env.mgr.RetrieveTokens(ctx, acc.ID, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if pair.AccessToken != testAccess {
		t.Errorf("AccessToken = %q after re-encryption", pair.AccessToken)
	}
}

func TestManager_ReencryptAccountRewritesCampaignNames(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.store(t, time.Hour, testRefresh)

	plain := []string{"Spring Sale", "Brand Search"}
	rows := make([]models.CampaignData, len(plain))
	for i, name := range plain {
		enc, err := env.guard.Encode(encryption.FieldCampaignName, name)
		if err != nil {
			t.Fatal(err)
		}
		rows[i] = models.CampaignData{
			ConnectedAccountID: acc.ID,
			CampaignID:         name,
			CampaignName:       enc,
			Date:               time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	if _, err := env.db.InsertCampaignBatch(ctx, rows); err != nil {
		t.Fatal(err)
	}

	newKey := bytes.Repeat([]byte{0x44}, encryption.KeySize)
	if err := env.guard.Cipher().RotateKey(newKey); err != nil {
		t.Fatal(err)
	}
	if _, err := env.mgr.ReencryptAll(ctx); err != nil {
		t.Fatal(err)
	}

	// The old key can now be dropped.
	c, err := encryption.NewCipher(newKey)
	if err != nil {
		t.Fatal(err)
	}
	currentOnly := encryption.NewFieldGuard(c)
	stored, err := env.db.ListCampaignData(ctx, acc.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]bool)
	for _, r := range stored {
		name, err := currentOnly.Decode(encryption.FieldCampaignName, r.CampaignName)
		if err != nil {
			t.Fatalf("campaign %s not readable under the current key: %v", r.CampaignID, err)
		}
		got[name] = true
	}
	for _, name := range plain {
		if !got[name] {
			t.Errorf("missing campaign name %q after re-encryption, got %v", name, got)
		}
	}

	changed, err := env.mgr.ReencryptAccount(ctx, acc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("second pass should find nothing to rewrite")
	}
}

func TestManager_ListAccountsHidesTokens(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.store(t, time.Hour, testRefresh)

	views, err := env.mgr.ListAccounts(context.Background(), testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 {
		t.Fatalf("len = %d, want 1", len(views))
	}
	if views[0].State != StateValid || views[0].ExternalAccountID != testExternal {
		t.Errorf("view = %+v", views[0])
	}

	other, err := env.mgr.ListAccounts(context.Background(), "user-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("other user sees %d accounts", len(other))
	}
}

func TestNewManager_RequiresDependencies(t *testing.T) {
	t.Parallel()
	if _, err := NewManager(ManagerConfig{}); err == nil {
		t.Error("NewManager() with no store should fail")
	}
}
