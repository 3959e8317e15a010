// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package googleads

import (
	"context"
	"errors"
	"net/http"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/adledger/internal/models"
)

type stubReporter struct {
	err   error
	calls int
}

func (s *stubReporter) ListAccessibleCustomers(context.Context, string, string) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []string{"customers/1234567890"}, nil
}

func (s *stubReporter) SearchAll(context.Context, string, string, string) ([]SearchRow, error) {
	s.calls++
	return nil, s.err
}

func (s *stubReporter) CustomerMetadata(context.Context, string, string) (*models.AccountMetadata, error) {
	s.calls++
	return &models.AccountMetadata{}, s.err
}

func (s *stubReporter) Version() string         { return "v18" }
func (s *stubReporter) FallbackVersion() string { return "v17" }

func TestBreakerClient_OpensOnUpstreamFaults(t *testing.T) {
	stub := &stubReporter{err: &APIError{Endpoint: "search", StatusCode: http.StatusServiceUnavailable}}
	b := NewBreakerClient(stub, testAdsConfig("http://unused"))

	for i := 0; i < 3; i++ {
		if _, err := b.SearchAll(context.Background(), "a", "1234567890", "q"); err == nil {
			t.Fatal("expected upstream error")
		}
	}
	if b.State() != gobreaker.StateOpen.String() {
		t.Fatalf("state = %s, want open", b.State())
	}

	_, err := b.SearchAll(context.Background(), "a", "1234567890", "q")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if stub.calls != 3 {
		t.Errorf("calls = %d, open breaker must not reach upstream", stub.calls)
	}
}

func TestBreakerClient_IgnoresCredentialErrors(t *testing.T) {
	stub := &stubReporter{err: &APIError{Endpoint: "search", StatusCode: http.StatusUnauthorized}}
	b := NewBreakerClient(stub, testAdsConfig("http://unused"))

	for i := 0; i < 10; i++ {
		_, err := b.SearchAll(context.Background(), "a", "1234567890", "q")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("err = %v, want ErrUnauthorized", err)
		}
	}
	if b.State() != gobreaker.StateClosed.String() {
		t.Errorf("state = %s, credential errors must not trip the breaker", b.State())
	}
}

func TestBreakerClient_PassesResults(t *testing.T) {
	stub := &stubReporter{}
	b := NewBreakerClient(stub, testAdsConfig("http://unused"))

	names, err := b.ListAccessibleCustomers(context.Background(), "", "a")
	if err != nil {
		t.Fatalf("ListAccessibleCustomers: %v", err)
	}
	if len(names) != 1 {
		t.Errorf("names = %v", names)
	}
	if b.Version() != "v18" || b.FallbackVersion() != "v17" {
		t.Error("version passthrough broken")
	}
}
