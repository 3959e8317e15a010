// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/adledger/internal/auth"
	"github.com/tomtom215/adledger/internal/encryption"
	"github.com/tomtom215/adledger/internal/logging"
	"github.com/tomtom215/adledger/internal/models"
	"github.com/tomtom215/adledger/internal/tokens"
	"github.com/tomtom215/adledger/internal/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// TokenService is the part of tokens.Manager the API uses.
type TokenService interface {
	GenerateAuthorizationURL(userID string) (authURL, state string, err error)
	Connect(ctx context.Context, code, state string) (*models.ConnectedAccount, error)
	ListAccounts(ctx context.Context, userID string) ([]tokens.AccountView, error)
	GetAccount(ctx context.Context, accountID, userID string) (*tokens.AccountView, error)
	Disconnect(ctx context.Context, accountID, userID string) error
	RevokeToken(ctx context.Context, tokenHash string) error
}

// SyncService runs an on-demand sync.
type SyncService interface {
	SyncAccount(ctx context.Context, accountID, userID string, window *models.DateRange) ([]models.CampaignData, error)
}

// CampaignReader reads stored campaign rows.
type CampaignReader interface {
	ListCampaignData(ctx context.Context, accountID string, window *models.DateRange) ([]models.CampaignData, error)
}

// HealthChecker reports store availability.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler serves the adledger HTTP API.
type Handler struct {
	tokens    TokenService
	syncer    SyncService
	campaigns CampaignReader
	guard     *encryption.FieldGuard
	health    HealthChecker
	startTime time.Time
	version   string
}

// HandlerDeps wires a Handler. Health is optional.
type HandlerDeps struct {
	Tokens    TokenService
	Syncer    SyncService
	Campaigns CampaignReader
	Guard     *encryption.FieldGuard
	Health    HealthChecker
	Version   string
}

// NewHandler creates a Handler.
func NewHandler(deps HandlerDeps) (*Handler, error) {
	if deps.Tokens == nil || deps.Syncer == nil || deps.Campaigns == nil || deps.Guard == nil {
		return nil, errors.New("api: tokens, syncer, campaigns and guard are required")
	}
	return &Handler{
		tokens:    deps.Tokens,
		syncer:    deps.Syncer,
		campaigns: deps.Campaigns,
		guard:     deps.Guard,
		health:    deps.Health,
		startTime: time.Now(),
		version:   deps.Version,
	}, nil
}

// ConnectResponse starts the Google consent flow.
type ConnectResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// SyncResponse reports an on-demand sync.
type SyncResponse struct {
	AccountID  string `json:"account_id"`
	RowsSynced int    `json:"rows_synced"`
}

// CampaignsResponse is an account's stored performance with derived metrics.
type CampaignsResponse struct {
	AccountID string                   `json:"account_id"`
	StartDate string                   `json:"start_date,omitempty"`
	EndDate   string                   `json:"end_date,omitempty"`
	Rows      []models.CampaignRow     `json:"rows"`
	Summary   []models.CampaignSummary `json:"summary"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version,omitempty"`
	Uptime   string `json:"uptime"`
}

// ConnectGoogle returns the consent URL and records its state.
func (h *Handler) ConnectGoogle(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := auth.UserIDFromContext(r.Context())

	authURL, state, err := h.tokens.GenerateAuthorizationURL(userID)
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Success(ConnectResponse{URL: authURL, State: state})
}

// ConnectGoogleCallback completes the consent flow. The state value
// identifies the user, so this route carries no caller token.
func (h *Handler) ConnectGoogleCallback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()

	if oauthErr := q.Get("error"); oauthErr != "" {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeBadRequest, "Google authorization was not granted",
			map[string]string{"error": oauthErr})
		return
	}

	req := validation.CallbackRequest{Code: q.Get("code"), State: q.Get("state")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.DomainError(verr)
		return
	}

	acc, err := h.tokens.Connect(r.Context(), req.Code, req.State)
	if err != nil {
		rw.DomainError(err)
		return
	}
	view, err := h.tokens.GetAccount(r.Context(), acc.ID, acc.UserID)
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Created(view)
}

// ListAccounts returns the caller's connected accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	accounts, err := h.tokens.ListAccounts(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		rw.DomainError(err)
		return
	}
	if accounts == nil {
		accounts = []tokens.AccountView{}
	}
	rw.SuccessWithCount(accounts, len(accounts))
}

// DisconnectAccount revokes and deletes one of the caller's accounts.
func (h *Handler) DisconnectAccount(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	accountID, ok := accountIDParam(rw, r)
	if !ok {
		return
	}
	if err := h.tokens.Disconnect(r.Context(), accountID, auth.UserIDFromContext(r.Context())); err != nil {
		rw.DomainError(err)
		return
	}
	rw.NoContent()
}

// SyncAccount runs a sync for one of the caller's accounts. An empty body
// syncs incrementally from the last watermark.
func (h *Handler) SyncAccount(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	accountID, ok := accountIDParam(rw, r)
	if !ok {
		return
	}

	var req validation.DateRangeRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		rw.DomainError(err)
		return
	}
	window, ok := validWindow(rw, req)
	if !ok {
		return
	}

	rows, err := h.syncer.SyncAccount(r.Context(), accountID, auth.UserIDFromContext(r.Context()), window)
	if err != nil {
		rw.DomainError(err)
		return
	}
	rw.Success(SyncResponse{AccountID: accountID, RowsSynced: len(rows)})
}

// ListCampaigns returns stored rows with derived metrics and a per-campaign
// summary. Names are decrypted for the response only.
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	accountID, ok := accountIDParam(rw, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := validation.DateRangeRequest{StartDate: q.Get("start_date"), EndDate: q.Get("end_date")}
	window, ok := validWindow(rw, req)
	if !ok {
		return
	}

	// Ownership check; a foreign account reads as not found.
	if _, err := h.tokens.GetAccount(r.Context(), accountID, auth.UserIDFromContext(r.Context())); err != nil {
		rw.DomainError(err)
		return
	}

	rows, err := h.campaigns.ListCampaignData(r.Context(), accountID, window)
	if err != nil {
		rw.DomainError(err)
		return
	}
	for i := range rows {
		name, err := h.guard.Decode(encryption.FieldCampaignName, rows[i].CampaignName)
		if err != nil {
			rw.DomainError(fmt.Errorf("decode campaign %s name: %w", rows[i].CampaignID, err))
			return
		}
		rows[i].CampaignName = name
	}

	resp := CampaignsResponse{
		AccountID: accountID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Rows:      models.WithMetrics(rows),
		Summary:   models.SummarizeCampaigns(rows),
	}
	rw.SuccessWithCount(resp, len(rows))
}

// RevokeToken adds a token fingerprint to the revoked set.
func (h *Handler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req validation.RevokeTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.DomainError(err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.DomainError(verr)
		return
	}
	if err := h.tokens.RevokeToken(r.Context(), req.TokenHash); err != nil {
		rw.DomainError(err)
		return
	}
	rw.NoContent()
}

// Health reports liveness and store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	resp := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Version:  h.version,
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
	}

	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check: database unreachable")
			resp.Status = "degraded"
			resp.Database = "unreachable"
			rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: resp, Meta: rw.meta()})
			return
		}
	}
	rw.Success(resp)
}

func accountIDParam(rw *ResponseWriter, r *http.Request) (string, bool) {
	req := validation.AccountIDRequest{AccountID: chi.URLParam(r, "id")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.DomainError(verr)
		return "", false
	}
	return req.AccountID, true
}

func validWindow(rw *ResponseWriter, req validation.DateRangeRequest) (*models.DateRange, bool) {
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.DomainError(verr)
		return nil, false
	}
	window, err := req.Window()
	if err != nil {
		rw.BadRequest(err.Error())
		return nil, false
	}
	return window, true
}

func decodeJSON(r *http.Request, v interface{}) error {
	return decodeBody(r, v, false)
}

// decodeOptionalJSON treats an empty body as the zero value.
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	return decodeBody(r, v, true)
}

func decodeBody(r *http.Request, v interface{}, optional bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return nil
		}
		return fmt.Errorf("%w: empty body", ErrMalformedBody)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}
