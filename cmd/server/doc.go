// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

// Package main is the entry point for the adledger server.
//
// adledger connects Google Ads accounts over OAuth, keeps their tokens
// encrypted at rest, and syncs daily campaign performance into DuckDB.
//
// # Application Architecture
//
// Long-running work runs under a Suture v4 supervisor tree:
//
//	RootSupervisor ("adledger")
//	├── MaintenanceSupervisor ("maintenance-layer")
//	│   ├── credential-sweeper (OAuth states, limiter logs, revocations)
//	│   ├── audit-retention
//	│   └── key-rotation (only while ENCRYPTION_PREVIOUS_KEYS is set)
//	├── BackgroundSupervisor ("background-layer")
//	│   ├── audit-subscriber (sync and deactivation events)
//	│   └── sync-scheduler (cron, optional)
//	└── APISupervisor ("api-layer")
//	    └── http-server
//
// Startup order:
//
//  1. Configuration: Koanf v2 (defaults, config.yaml, environment)
//  2. Logging: zerolog, bridged to slog for the supervisor
//  3. Field encryption: AES-256-GCM keys; startup stops on a bad key
//  4. Database: DuckDB
//  5. Audit logger and event bus
//  6. Google Ads reporting client, circuit breaker and OAuth client
//  7. Token manager, sync orchestrator
//  8. Router and HTTP server
//  9. Supervisor tree
//
// # Configuration
//
//	# Required
//	ENCRYPTION_KEY=<64 hex chars>          # openssl rand -hex 32
//	JWT_SECRET=<32+ chars>
//	GOOGLE_ADS_CLIENT_ID=...
//	GOOGLE_ADS_CLIENT_SECRET=...
//	GOOGLE_ADS_DEVELOPER_TOKEN=...
//
//	# Common
//	HTTP_PORT=3857
//	DUCKDB_PATH=/data/adledger.duckdb
//	SYNC_SCHEDULE="0 0 */6 * * *"          # empty disables scheduled syncs
//	TOKEN_REVOCATION_PATH=/data/revoked    # badger; memory when unset
//	ENCRYPTION_PREVIOUS_KEYS=<hex>,<hex>   # key rotation
//	LOG_LEVEL=info
//	LOG_FORMAT=json
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains within
// SHUTDOWN_TIMEOUT, background services stop, and the audit logger flushes
// before the database closes.
package main
