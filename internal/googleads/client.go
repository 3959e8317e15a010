// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package googleads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/adledger/internal/config"
	"github.com/tomtom215/adledger/internal/logging"
	"github.com/tomtom215/adledger/internal/metrics"
	"github.com/tomtom215/adledger/internal/models"
)

// maxErrorBodySize limits how much of an error response is read.
const maxErrorBodySize = 64 * 1024

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// Reporter is the subset of the Ads API the sync and token layers use.
type Reporter interface {
	ListAccessibleCustomers(ctx context.Context, version, accessToken string) ([]string, error)
	SearchAll(ctx context.Context, accessToken, customerID, query string) ([]SearchRow, error)
	CustomerMetadata(ctx context.Context, accessToken, customerID string) (*models.AccountMetadata, error)
	Version() string
	FallbackVersion() string
}

// Client calls the Google Ads REST API.
type Client struct {
	baseURL         string
	version         string
	fallbackVersion string
	developerToken  string
	loginCustomerID string
	pageSize        int
	httpClient      *http.Client
	limiter         *rate.Limiter
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.GoogleAdsConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		version:         cfg.APIVersion,
		fallbackVersion: cfg.FallbackAPIVersion,
		developerToken:  cfg.DeveloperToken,
		loginCustomerID: cfg.LoginCustomerID,
		httpClient:      &http.Client{Timeout: timeout},
		limiter:         rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Version returns the primary API version.
func (c *Client) Version() string { return c.version }

// FallbackVersion returns the version tried when the primary is rejected.
func (c *Client) FallbackVersion() string { return c.fallbackVersion }

// SetPageSize sets the search page size. Zero leaves it to the server.
func (c *Client) SetPageSize(n int) { c.pageSize = n }

type errorEnvelope struct {
	Error struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Status  string          `json:"status"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// do executes one API call and decodes a 2xx body into result.
func (c *Client) do(ctx context.Context, endpoint, method, url, accessToken string, body, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("developer-token", c.developerToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.loginCustomerID != "" {
		req.Header.Set("login-customer-id", c.loginCustomerID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(endpoint, "error", time.Since(start))
		return fmt.Errorf("googleads %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstreamRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(endpoint, resp.StatusCode, readBodyForError(resp.Body))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode %s response: %w", endpoint, err)
		}
	}
	return nil
}

func parseAPIError(endpoint string, status int, body []byte) *APIError {
	apiErr := &APIError{Endpoint: endpoint, StatusCode: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != 0 {
		apiErr.Message = env.Error.Message
		apiErr.Status = env.Error.Status
		apiErr.Details = string(env.Error.Details)
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(logging.RedactError(string(body)))
	return apiErr
}

type listAccessibleResponse struct {
	ResourceNames []string `json:"resourceNames"`
}

// ListAccessibleCustomers returns the customer resource names reachable with
// the token, e.g. "customers/1234567890". An empty version uses the
// client's primary version.
func (c *Client) ListAccessibleCustomers(ctx context.Context, version, accessToken string) ([]string, error) {
	if version == "" {
		version = c.version
	}
	url := fmt.Sprintf("%s/%s/customers:listAccessibleCustomers", c.baseURL, version)

	var out listAccessibleResponse
	if err := c.do(ctx, "list_accessible_customers", http.MethodGet, url, accessToken, nil, &out); err != nil {
		return nil, err
	}
	return out.ResourceNames, nil
}

type searchRequest struct {
	Query     string `json:"query"`
	PageToken string `json:"pageToken,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
}

// SearchResponse is one page of googleAds:search results.
type SearchResponse struct {
	Results       []SearchRow `json:"results"`
	NextPageToken string      `json:"nextPageToken"`
}

// Search fetches one page of GAQL results.
func (c *Client) Search(ctx context.Context, accessToken, customerID, query, pageToken string) (*SearchResponse, error) {
	url := fmt.Sprintf("%s/%s/customers/%s/googleAds:search", c.baseURL, c.version, customerID)

	var out SearchResponse
	req := searchRequest{Query: query, PageToken: pageToken, PageSize: c.pageSize}
	if err := c.do(ctx, "search", http.MethodPost, url, accessToken, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchAll follows nextPageToken until the result set is exhausted.
func (c *Client) SearchAll(ctx context.Context, accessToken, customerID, query string) ([]SearchRow, error) {
	var (
		rows      []SearchRow
		pageToken string
		pages     int
	)
	for {
		page, err := c.Search(ctx, accessToken, customerID, query, pageToken)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page.Results...)
		pages++
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	logging.Debug().Str("customer_id", customerID).Int("pages", pages).Int("rows", len(rows)).Msg("Search complete")
	return rows, nil
}

// CustomerMetadata reads the descriptive fields of one customer.
func (c *Client) CustomerMetadata(ctx context.Context, accessToken, customerID string) (*models.AccountMetadata, error) {
	page, err := c.Search(ctx, accessToken, customerID, CustomerMetadataQuery, "")
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return &models.AccountMetadata{}, nil
	}
	md := MetadataFromRow(page.Results[0])
	return &md, nil
}

// ListAccessibleCustomersRaw performs the listAccessibleCustomers call with
// a bare HTTP client, outside the limiter and breaker.
func ListAccessibleCustomersRaw(ctx context.Context, hc *http.Client, baseURL, version, developerToken, accessToken string) ([]string, error) {
	url := fmt.Sprintf("%s/%s/customers:listAccessibleCustomers", strings.TrimRight(baseURL, "/"), version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("developer-token", developerToken)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("raw list accessible customers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError("list_accessible_customers_raw", resp.StatusCode, readBodyForError(resp.Body))
	}
	var out listAccessibleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode raw list response: %w", err)
	}
	return out.ResourceNames, nil
}
