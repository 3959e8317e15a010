// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/adledger/internal/auth"
	"github.com/tomtom215/adledger/internal/encryption"
	"github.com/tomtom215/adledger/internal/models"
	adsync "github.com/tomtom215/adledger/internal/sync"
	"github.com/tomtom215/adledger/internal/tokens"
)

const (
	testSecret  = "api-test-secret-with-at-least-32-characters"
	testUser    = "user-1"
	testAccount = "6f1c3c9e-8f2a-4d53-9c1e-2b7f1d9a0c11"
)

type fakeTokens struct {
	mu         sync.Mutex
	accounts   map[string]tokens.AccountView // id -> view
	owners     map[string]string             // id -> user id
	connectErr error
	revoked    []string
	disconnect []string
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{
		accounts: map[string]tokens.AccountView{
			testAccount: {ID: testAccount, Platform: models.PlatformGoogleAds, ExternalAccountID: "1234567890", DisplayName: "Acme Ads", IsActive: true, State: tokens.StateValid},
		},
		owners: map[string]string{testAccount: testUser},
	}
}

func (f *fakeTokens) GenerateAuthorizationURL(userID string) (string, string, error) {
	return "https://accounts.google.com/o/oauth2/auth?state=" + userID + ".xyz", userID + ".xyz", nil
}

func (f *fakeTokens) Connect(_ context.Context, code, state string) (*models.ConnectedAccount, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	if state != testUser+".xyz" {
		return nil, &tokens.InvalidStateError{Reason: "unknown OAuth state"}
	}
	return &models.ConnectedAccount{ID: testAccount, UserID: tokens.UserIDFromState(state)}, nil
}

func (f *fakeTokens) ListAccounts(_ context.Context, userID string) ([]tokens.AccountView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tokens.AccountView
	for id, v := range f.accounts {
		if f.owners[id] == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeTokens) GetAccount(_ context.Context, accountID, userID string) (*tokens.AccountView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.accounts[accountID]
	if !ok || f.owners[accountID] != userID {
		return nil, &tokens.NotFoundError{AccountID: accountID}
	}
	return &v, nil
}

func (f *fakeTokens) Disconnect(ctx context.Context, accountID, userID string) error {
	if _, err := f.GetAccount(ctx, accountID, userID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnect = append(f.disconnect, accountID)
	delete(f.accounts, accountID)
	return nil
}

func (f *fakeTokens) RevokeToken(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, tokenHash)
	return nil
}

type fakeSyncer struct {
	mu      sync.Mutex
	err     error
	rows    int
	windows []*models.DateRange
	users   []string
}

func (f *fakeSyncer) SyncAccount(_ context.Context, accountID, userID string, window *models.DateRange) ([]models.CampaignData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, window)
	f.users = append(f.users, userID)
	if f.err != nil {
		return nil, f.err
	}
	return make([]models.CampaignData, f.rows), nil
}

type fakeCampaigns struct {
	rows   []models.CampaignData
	window *models.DateRange
}

func (f *fakeCampaigns) ListCampaignData(_ context.Context, _ string, window *models.DateRange) ([]models.CampaignData, error) {
	f.window = window
	out := make([]models.CampaignData, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(context.Context) error { return f.err }

type testServer struct {
	router    http.Handler
	tokens    *fakeTokens
	syncer    *fakeSyncer
	campaigns *fakeCampaigns
	guard     *encryption.FieldGuard
	jwt       *auth.JWTManager
}

func newTestServer(t *testing.T, health HealthChecker) *testServer {
	t.Helper()

	c, err := encryption.NewCipher(bytes.Repeat([]byte{0x24}, encryption.KeySize))
	if err != nil {
		t.Fatal(err)
	}
	guard := encryption.NewFieldGuard(c)
	jwtManager, err := auth.NewJWTManager(testSecret)
	if err != nil {
		t.Fatal(err)
	}

	ts := &testServer{
		tokens:    newFakeTokens(),
		syncer:    &fakeSyncer{rows: 3},
		campaigns: &fakeCampaigns{},
		guard:     guard,
		jwt:       jwtManager,
	}
	h, err := NewHandler(HandlerDeps{
		Tokens:    ts.tokens,
		Syncer:    ts.syncer,
		Campaigns: ts.campaigns,
		Guard:     guard,
		Health:    health,
		Version:   "test",
	})
	if err != nil {
		t.Fatal(err)
	}

	mw := DefaultMiddlewareConfig()
	mw.RateLimitRequests = 0
	ts.router = NewRouter(RouterConfig{Handler: h, JWT: jwtManager, Middleware: mw})
	return ts
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := ts.jwt.GenerateToken(userID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, body, token string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	var req *http.Request
	if reader != nil {
		req = httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var resp APIResponse
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, resp
}

func decodeData(t *testing.T, resp APIResponse, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatal(err)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t, fakeHealth{})
		rec, resp := ts.do(t, http.MethodGet, "/health", "", "")
		if rec.Code != http.StatusOK || !resp.Success {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var body HealthResponse
		decodeData(t, resp, &body)
		if body.Status != "ok" || body.Version != "test" {
			t.Errorf("health = %+v", body)
		}
	})

	t.Run("database down", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t, fakeHealth{err: errors.New("connection refused")})
		rec, resp := ts.do(t, http.MethodGet, "/health", "", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		var body HealthResponse
		decodeData(t, resp, &body)
		if body.Database != "unreachable" {
			t.Errorf("database = %q", body.Database)
		}
	})
}

func TestAuthenticationRequired(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/connect/google"},
		{http.MethodGet, "/api/v1/accounts"},
		{http.MethodDelete, "/api/v1/accounts/" + testAccount},
		{http.MethodPost, "/api/v1/accounts/" + testAccount + "/sync"},
		{http.MethodGet, "/api/v1/accounts/" + testAccount + "/campaigns"},
		{http.MethodPost, "/api/v1/tokens/revoke"},
	}
	for _, p := range paths {
		rec, resp := ts.do(t, p.method, p.path, "", "")
		if rec.Code != http.StatusUnauthorized || resp.Error == nil || resp.Error.Code != ErrCodeUnauthorized {
			t.Errorf("%s %s without token: status %d, body %s", p.method, p.path, rec.Code, rec.Body.String())
		}
		rec, _ = ts.do(t, p.method, p.path, "", "not-a-jwt")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: status %d", p.method, p.path, rec.Code)
		}
	}
}

func TestConnectFlow(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	token := ts.token(t, testUser)

	rec, resp := ts.do(t, http.MethodGet, "/api/v1/connect/google", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("connect status = %d", rec.Code)
	}
	var connect ConnectResponse
	decodeData(t, resp, &connect)
	if !strings.HasPrefix(connect.State, testUser+".") || connect.URL == "" {
		t.Fatalf("connect = %+v", connect)
	}

	// The callback arrives from the browser without a caller token.
	rec, resp = ts.do(t, http.MethodGet, "/api/v1/connect/google/callback?code=4/abc&state="+connect.State, "", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("callback status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var view tokens.AccountView
	decodeData(t, resp, &view)
	if view.ID != testAccount || view.ExternalAccountID != "1234567890" {
		t.Errorf("view = %+v", view)
	}
}

func TestConnectCallbackErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		connectErr error
		wantStatus int
		wantCode   string
		reconnect  bool
	}{
		{"missing code and state", "", nil, http.StatusBadRequest, ErrCodeValidationFailed, false},
		{"consent denied", "?error=access_denied", nil, http.StatusBadRequest, ErrCodeBadRequest, false},
		{"unknown state", "?code=c&state=someone.else", nil, http.StatusBadRequest, ErrCodeInvalidState, false},
		{"exchange rejected", "?code=c&state=" + testUser + ".xyz",
			&tokens.TokenExchangeError{Err: errors.New("invalid_grant")}, http.StatusUnauthorized, ErrCodeReconnectRequired, true},
		{"no customer found", "?code=c&state=" + testUser + ".xyz",
			&tokens.AccountDiscoveryError{Attempts: []tokens.StrategyFailure{{Strategy: tokens.StrategyAdsClient, Err: errors.New("empty")}}},
			http.StatusUnauthorized, ErrCodeReconnectRequired, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t, nil)
			ts.tokens.connectErr = tt.connectErr
			rec, resp := ts.do(t, http.MethodGet, "/api/v1/connect/google/callback"+tt.query, "", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Fatalf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
			if resp.Error.ReconnectRequired != tt.reconnect {
				t.Errorf("reconnect_required = %v, want %v", resp.Error.ReconnectRequired, tt.reconnect)
			}
		})
	}
}

func TestListAccountsScopedToCaller(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	rec, resp := ts.do(t, http.MethodGet, "/api/v1/accounts", "", ts.token(t, testUser))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var views []tokens.AccountView
	decodeData(t, resp, &views)
	if len(views) != 1 || views[0].DisplayName != "Acme Ads" {
		t.Errorf("views = %+v", views)
	}
	if resp.Meta == nil || resp.Meta.Count == nil || *resp.Meta.Count != 1 {
		t.Errorf("meta = %+v", resp.Meta)
	}
	if strings.Contains(rec.Body.String(), "access_token") {
		t.Error("account listing leaked token fields")
	}

	_, resp = ts.do(t, http.MethodGet, "/api/v1/accounts", "", ts.token(t, "user-2"))
	var none []tokens.AccountView
	decodeData(t, resp, &none)
	if len(none) != 0 {
		t.Errorf("other user sees %d accounts", len(none))
	}
}

func TestDisconnectAccount(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	path := "/api/v1/accounts/" + testAccount

	rec, _ := ts.do(t, http.MethodDelete, "/api/v1/accounts/not-a-uuid", "", ts.token(t, testUser))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}

	rec, _ = ts.do(t, http.MethodDelete, path, "", ts.token(t, "user-2"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign account status = %d, want 404", rec.Code)
	}

	rec, _ = ts.do(t, http.MethodDelete, path, "", ts.token(t, testUser))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("disconnect status = %d, want 204", rec.Code)
	}
	if len(ts.tokens.disconnect) != 1 {
		t.Errorf("disconnect calls = %v", ts.tokens.disconnect)
	}

	rec, _ = ts.do(t, http.MethodDelete, path, "", ts.token(t, testUser))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second disconnect status = %d, want 404", rec.Code)
	}
}

func TestSyncAccount(t *testing.T) {
	t.Parallel()
	path := "/api/v1/accounts/" + testAccount + "/sync"

	t.Run("incremental with empty body", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t, nil)
		rec, resp := ts.do(t, http.MethodPost, path, "", ts.token(t, testUser))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var out SyncResponse
		decodeData(t, resp, &out)
		if out.RowsSynced != 3 || out.AccountID != testAccount {
			t.Errorf("response = %+v", out)
		}
		if ts.syncer.windows[0] != nil {
			t.Errorf("window = %v, want nil", ts.syncer.windows[0])
		}
		if ts.syncer.users[0] != testUser {
			t.Errorf("sync user = %q", ts.syncer.users[0])
		}
	})

	t.Run("explicit window", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t, nil)
		rec, _ := ts.do(t, http.MethodPost, path, `{"start_date":"2026-03-01","end_date":"2026-03-07"}`, ts.token(t, testUser))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		w := ts.syncer.windows[0]
		if w == nil || w.StartString() != "2026-03-01" || w.EndString() != "2026-03-07" {
			t.Errorf("window = %v", w)
		}
	})

	t.Run("invalid bodies", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t, nil)
		for _, body := range []string{
			`{"start_date":"2026-03-07","end_date":"2026-03-01"}`,
			`{"start_date":"2026-03-01"}`,
			`{"start":"2026-03-01"}`,
			`{not json`,
		} {
			rec, _ := ts.do(t, http.MethodPost, path, body, ts.token(t, testUser))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %s: status = %d, want 400", body, rec.Code)
			}
		}
		if len(ts.syncer.windows) != 0 {
			t.Error("syncer called for an invalid request")
		}
	})
}

func TestSyncAccountErrorMapping(t *testing.T) {
	t.Parallel()
	path := "/api/v1/accounts/" + testAccount + "/sync"

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		reconnect  bool
		retryAfter string
	}{
		{"revoked", &tokens.RevokedError{AccountID: testAccount}, http.StatusUnauthorized, ErrCodeReconnectRequired, true, ""},
		{"refresh failed", &tokens.RefreshFailedError{AccountID: testAccount, Err: errors.New("invalid_grant")}, http.StatusUnauthorized, ErrCodeReconnectRequired, true, ""},
		{"token rate limit", &tokens.RateLimitError{Key: "account:x", RetryAfter: 42 * time.Second}, http.StatusTooManyRequests, ErrCodeTooManyRequests, false, "42"},
		{"not found", &adsync.SyncError{AccountID: testAccount, Stage: adsync.StageLoad, Err: &tokens.NotFoundError{AccountID: testAccount}}, http.StatusNotFound, ErrCodeNotFound, false, ""},
		{"persist failure", &adsync.SyncError{AccountID: testAccount, Stage: adsync.StagePersist, Persisted: 200, Err: errors.New("disk full")}, http.StatusBadGateway, ErrCodeSyncFailed, false, ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t, nil)
			ts.syncer.err = tt.err
			rec, resp := ts.do(t, http.MethodPost, path, "", ts.token(t, testUser))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Fatalf("error = %+v, want %s", resp.Error, tt.wantCode)
			}
			if resp.Error.ReconnectRequired != tt.reconnect {
				t.Errorf("reconnect_required = %v", resp.Error.ReconnectRequired)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.retryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tt.retryAfter)
			}
		})
	}
}

func TestListCampaigns(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	enc := func(name string) string {
		v, err := ts.guard.Encode(encryption.FieldCampaignName, name)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	ts.campaigns.rows = []models.CampaignData{
		{ID: "r1", ConnectedAccountID: testAccount, CampaignID: "11", CampaignName: enc("Brand"), Date: day(1), Spend: 10, Impressions: 1000, Clicks: 50, Conversions: 5, ConversionValue: 40},
		{ID: "r2", ConnectedAccountID: testAccount, CampaignID: "11", CampaignName: enc("Brand"), Date: day(2), Spend: 20, Impressions: 1000, Clicks: 50, Conversions: 5, ConversionValue: 40},
		{ID: "r3", ConnectedAccountID: testAccount, CampaignID: "22", CampaignName: enc("Generic"), Date: day(1), Spend: 5, Impressions: 500, Clicks: 0},
	}

	path := "/api/v1/accounts/" + testAccount + "/campaigns?start_date=2026-03-01&end_date=2026-03-02"
	rec, resp := ts.do(t, http.MethodGet, path, "", ts.token(t, testUser))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out CampaignsResponse
	decodeData(t, resp, &out)

	if len(out.Rows) != 3 || out.Rows[0].CampaignName != "Brand" || out.Rows[2].CampaignName != "Generic" {
		t.Fatalf("rows = %+v", out.Rows)
	}
	if out.Rows[0].Metrics.CTR != 5 {
		t.Errorf("CTR = %v, want 5", out.Rows[0].Metrics.CTR)
	}
	if len(out.Summary) != 2 || out.Summary[0].CampaignID != "11" || out.Summary[0].Spend != 30 || out.Summary[0].Days != 2 {
		t.Errorf("summary = %+v", out.Summary)
	}
	if ts.campaigns.window == nil || ts.campaigns.window.EndString() != "2026-03-02" {
		t.Errorf("window = %v", ts.campaigns.window)
	}
	if strings.Contains(rec.Body.String(), ts.campaigns.rows[0].CampaignName) {
		t.Error("response still carries ciphertext")
	}

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/accounts/"+testAccount+"/campaigns", "", ts.token(t, "user-2"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign account status = %d, want 404", rec.Code)
	}
}

func TestListCampaignsUndecryptableName(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	retired, err := encryption.NewCipher(bytes.Repeat([]byte{0x99}, encryption.KeySize))
	if err != nil {
		t.Fatal(err)
	}
	stale, err := encryption.NewFieldGuard(retired).Encode(encryption.FieldCampaignName, "Brand")
	if err != nil {
		t.Fatal(err)
	}
	ts.campaigns.rows = []models.CampaignData{
		{ID: "r1", ConnectedAccountID: testAccount, CampaignID: "11", CampaignName: stale, Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	rec, resp := ts.do(t, http.MethodGet, "/api/v1/accounts/"+testAccount+"/campaigns", "", ts.token(t, testUser))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeDataIntegrity {
		t.Errorf("error = %+v, want %s", resp.Error, ErrCodeDataIntegrity)
	}
	if strings.Contains(rec.Body.String(), stale) {
		t.Error("response leaks the stored ciphertext")
	}
}

func TestRevokeToken(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	token := ts.token(t, testUser)
	hash := encryption.Hash("ya29.some-access-token")

	rec, _ := ts.do(t, http.MethodPost, "/api/v1/tokens/revoke", `{"token_hash":"`+hash+`"}`, token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(ts.tokens.revoked) != 1 || ts.tokens.revoked[0] != hash {
		t.Errorf("revoked = %v", ts.tokens.revoked)
	}

	for _, body := range []string{`{"token_hash":"abc"}`, `{}`, ``} {
		rec, _ := ts.do(t, http.MethodPost, "/api/v1/tokens/revoke", body, token)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", http.NoBody)
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-abc" {
		t.Errorf("X-Request-ID = %q", got)
	}
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.RequestID != "req-abc" {
		t.Errorf("error request id = %+v", resp.Error)
	}
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	rec, resp := ts.do(t, http.MethodGet, "/api/v2/nothing", "", "")
	if rec.Code != http.StatusNotFound || resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}
