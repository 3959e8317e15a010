// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package googleads

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/adledger/internal/config"
	"github.com/tomtom215/adledger/internal/logging"
	"github.com/tomtom215/adledger/internal/metrics"
	"github.com/tomtom215/adledger/internal/models"
)

// BreakerName labels the reporting client's breaker in metrics.
const BreakerName = "google-ads-api"

// BreakerClient wraps a Reporter with a circuit breaker.
//
// Only upstream faults (429, 5xx, transport errors) count as failures.
// Credential and permission errors pass through without tripping the
// breaker: they say nothing about the provider's health.
type BreakerClient struct {
	client Reporter
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewBreakerClient wraps client using the breaker settings in cfg.
func NewBreakerClient(client Reporter, cfg *config.GoogleAdsConfig) *BreakerClient {
	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	metrics.CircuitBreakerState.WithLabelValues(BreakerName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(BreakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("Opening circuit")
			}
			return trip
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) {
				return true
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerClient{client: client, cb: cb, name: BreakerName}
}

func (b *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, metrics.ResultRejected).Inc()
			return nil, fmt.Errorf("googleads: %w", err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, metrics.ResultFailure).Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, metrics.ResultSuccess).Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return result, nil
}

func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// State returns the breaker state name.
func (b *BreakerClient) State() string { return b.cb.State().String() }

// Version implements Reporter.
func (b *BreakerClient) Version() string { return b.client.Version() }

// FallbackVersion implements Reporter.
func (b *BreakerClient) FallbackVersion() string { return b.client.FallbackVersion() }

// ListAccessibleCustomers implements Reporter.
func (b *BreakerClient) ListAccessibleCustomers(ctx context.Context, version, accessToken string) ([]string, error) {
	return castResult[[]string](b.execute(func() (interface{}, error) {
		return b.client.ListAccessibleCustomers(ctx, version, accessToken)
	}))
}

// SearchAll implements Reporter.
func (b *BreakerClient) SearchAll(ctx context.Context, accessToken, customerID, query string) ([]SearchRow, error) {
	return castResult[[]SearchRow](b.execute(func() (interface{}, error) {
		return b.client.SearchAll(ctx, accessToken, customerID, query)
	}))
}

// CustomerMetadata implements Reporter.
func (b *BreakerClient) CustomerMetadata(ctx context.Context, accessToken, customerID string) (*models.AccountMetadata, error) {
	return castResult[*models.AccountMetadata](b.execute(func() (interface{}, error) {
		return b.client.CustomerMetadata(ctx, accessToken, customerID)
	}))
}
