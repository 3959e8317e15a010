// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package database

import (
	"context"
	"fmt"
	"time"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     int
	Name        string
	Description string
	SQL         string
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// migrations are append-only. Never edit or reorder an applied entry.
var migrations = []Migration{
	{
		Version:     1,
		Name:        "create_connected_accounts",
		Description: "Linked ad accounts with encrypted OAuth tokens",
		SQL: `CREATE TABLE IF NOT EXISTS connected_accounts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			external_account_id TEXT NOT NULL,
			access_token TEXT,
			refresh_token TEXT,
			access_token_hash TEXT,
			refresh_token_hash TEXT,
			expires_at TIMESTAMP,
			last_sync_at TIMESTAMP,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			display_name TEXT,
			is_manager BOOLEAN NOT NULL DEFAULT FALSE,
			time_zone TEXT,
			is_test_account BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, platform, external_account_id)
		)`,
	},
	{
		Version:     2,
		Name:        "create_campaign_data",
		Description: "Daily campaign performance rows; duplicates across overlapping syncs are allowed",
		SQL: `CREATE TABLE IF NOT EXISTS campaign_data (
			id TEXT PRIMARY KEY,
			connected_account_id TEXT NOT NULL,
			campaign_id TEXT NOT NULL,
			campaign_name TEXT NOT NULL,
			date DATE NOT NULL,
			spend DOUBLE NOT NULL DEFAULT 0,
			impressions BIGINT NOT NULL DEFAULT 0,
			clicks BIGINT NOT NULL DEFAULT 0,
			conversions DOUBLE NOT NULL DEFAULT 0,
			conversion_value DOUBLE NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
	},
	{
		Version:     3,
		Name:        "index_campaign_data_account_date",
		Description: "Range scans by account and date",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_campaign_data_account_date ON campaign_data(connected_account_id, date)`,
	},
	{
		Version:     4,
		Name:        "index_connected_accounts_user",
		Description: "Account listing by user",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_connected_accounts_user ON connected_accounts(user_id)`,
	},
}

func (db *DB) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return db.runMigrations(ctx)
}

func (db *DB) runMigrations(ctx context.Context) error {
	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if _, err := db.conn.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description) VALUES (?, ?, ?)`,
			m.Version, m.Name, m.Description); err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}
	}
	return nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var v int
	if err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}
