// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

// Package metrics defines the Prometheus collectors exposed on /metrics.
//
// Collectors are registered with the default registry through promauto at
// package init, so importing the package is enough to make them visible.
//
// # Metric Families
//
// Token lifecycle:
//   - token_operations_total{operation,result}: store, retrieve, refresh, revoke, disconnect
//   - token_refresh_duration_seconds: provider refresh latency
//
// Sync:
//   - sync_duration_seconds, sync_rows_persisted_total, sync_rows_dropped_total
//   - sync_errors_total{error_type}, sync_retries_total{class}
//   - sync_last_success_timestamp
//
// Upstream API:
//   - upstream_requests_total{endpoint,status_code}
//   - upstream_request_duration_seconds{endpoint}
//   - circuit_breaker_* families for the reporting client
//
// Cache and API:
//   - cache_hits_total, cache_misses_total, cache_entries
//   - api_requests_total, api_request_duration_seconds, api_active_requests
//
// Tests use prometheus/testutil to read collector values.
package metrics
