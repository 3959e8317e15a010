// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package googleads

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/adledger/internal/config"
	"github.com/tomtom215/adledger/internal/models"
)

func testAdsConfig(baseURL string) *config.GoogleAdsConfig {
	return &config.GoogleAdsConfig{
		ClientID:                "client-id",
		ClientSecret:            "client-secret",
		DeveloperToken:          "dev-token",
		RedirectURL:             "http://localhost/callback",
		BaseURL:                 baseURL,
		APIVersion:              "v18",
		FallbackAPIVersion:      "v17",
		RequestsPerSecond:       1000,
		Burst:                   100,
		RequestTimeout:          5 * time.Second,
		BreakerFailureThreshold: 3,
		BreakerTimeout:          time.Minute,
	}
}

func TestClient_ListAccessibleCustomers(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v17/customers:listAccessibleCustomers" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer access" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("developer-token"); got != "dev-token" {
			t.Errorf("developer-token = %q", got)
		}
		_, _ = io.WriteString(w, `{"resourceNames":["customers/123","customers/1234567890"]}`)
	}))
	defer server.Close()

	c := NewClient(testAdsConfig(server.URL))
	names, err := c.ListAccessibleCustomers(context.Background(), "v17", "access")
	if err != nil {
		t.Fatalf("ListAccessibleCustomers: %v", err)
	}
	id, ok := FirstValidCustomerID(names)
	if !ok || id != "1234567890" {
		t.Errorf("FirstValidCustomerID = %q, %v", id, ok)
	}
}

func TestClient_SearchAllPaginates(t *testing.T) {
	t.Parallel()

	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v18/customers/1234567890/googleAds:search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !strings.Contains(req.Query, "FROM campaign") {
			t.Errorf("query = %q", req.Query)
		}
		switch req.PageToken {
		case "":
			_, _ = io.WriteString(w, `{"results":[{"campaign":{"id":"1","name":"Brand"},"segments":{"date":"2024-01-01"},`+
				`"metrics":{"costMicros":"2500000","impressions":"100","clicks":"10","conversions":1}}],"nextPageToken":"p2"}`)
		case "p2":
			_, _ = io.WriteString(w, `{"results":[{"campaign":{"id":2,"name":"Generic"},"segments":{"date":"2024-01-02"},`+
				`"metrics":{"costMicros":1000000,"impressions":"50","clicks":"5","conversions":0.5,"conversionsValue":12.5}}]}`)
		default:
			t.Errorf("unexpected page token %q", req.PageToken)
		}
	}))
	defer server.Close()

	c := NewClient(testAdsConfig(server.URL))
	window, _ := models.ParseDateRange("2024-01-01", "2024-01-31")
	rows, err := c.SearchAll(context.Background(), "access", "1234567890", CampaignReportQuery(window))
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Metrics.CostMicros != 2500000 || rows[0].Campaign.ID != 1 || rows[0].Metrics.Clicks != 10 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Metrics.CostMicros != 1000000 || rows[1].Metrics.ConversionsValue != 12.5 {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		auth       bool
		rateLimit  bool
		permission bool
	}{
		{
			name:   "unauthenticated",
			status: http.StatusUnauthorized,
			body:   `{"error":{"code":401,"message":"Request had invalid authentication credentials.","status":"UNAUTHENTICATED"}}`,
			auth:   true,
		},
		{
			name:       "permission denied",
			status:     http.StatusForbidden,
			body:       `{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED","details":[{"errors":[{"errorCode":{"authorizationError":"USER_PERMISSION_DENIED"}}]}]}}`,
			auth:       true,
			permission: true,
		},
		{
			name:      "quota",
			status:    http.StatusTooManyRequests,
			body:      `{"error":{"code":429,"message":"Too many requests","status":"RESOURCE_EXHAUSTED"}}`,
			rateLimit: true,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `oops`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c := NewClient(testAdsConfig(server.URL))
			_, err := c.ListAccessibleCustomers(context.Background(), "", "access")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d", apiErr.StatusCode)
			}
			if got := IsAuthError(err); got != tt.auth {
				t.Errorf("IsAuthError = %v, want %v", got, tt.auth)
			}
			if got := IsRateLimitError(err); got != tt.rateLimit {
				t.Errorf("IsRateLimitError = %v, want %v", got, tt.rateLimit)
			}
			if got := IsPermissionError(err); got != tt.permission {
				t.Errorf("IsPermissionError = %v, want %v", got, tt.permission)
			}
		})
	}
}

func TestIsAuthError_Messages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("oauth2: invalid_grant"), true},
		{errors.New("access token expired"), true},
		{errors.New("connection reset by peer"), false},
		{errors.New("429 rate limit exceeded for token"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsAuthError(tt.err); got != tt.want {
			t.Errorf("IsAuthError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestCustomerIDHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		names []string
		want  string
		ok    bool
	}{
		{[]string{"customers/1234567890"}, "1234567890", true},
		{[]string{"customers/123-456-7890"}, "1234567890", true},
		{[]string{"customers/12345", "customers/98765432101"}, "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := FirstValidCustomerID(tt.names)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FirstValidCustomerID(%v) = %q, %v", tt.names, got, ok)
		}
	}
}

func TestClient_CustomerMetadata(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":[{"customer":{"descriptiveName":"Acme","manager":true,"timeZone":"Europe/Berlin","testAccount":false}}]}`)
	}))
	defer server.Close()

	c := NewClient(testAdsConfig(server.URL))
	md, err := c.CustomerMetadata(context.Background(), "access", "1234567890")
	if err != nil {
		t.Fatalf("CustomerMetadata: %v", err)
	}
	if md.DisplayName != "Acme" || !md.IsManager || md.TimeZone != "Europe/Berlin" {
		t.Errorf("metadata = %+v", md)
	}
}
