// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/adledger/internal/database/query"
	"github.com/tomtom215/adledger/internal/models"
)

// InsertCampaignBatch writes rows in a single transaction. Rows without an
// ID get one, and CreatedAt is stamped. Either every row of the batch is
// committed or none is. The returned slice holds the rows as stored.
func (db *DB) InsertCampaignBatch(ctx context.Context, rows []models.CampaignData) ([]models.CampaignData, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO campaign_data (
			id, connected_account_id, campaign_id, campaign_name, date,
			spend, impressions, clicks, conversions, conversion_value, created_at
		) VALUES (?, ?, ?, ?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare campaign insert: %w", err)
	}
	defer closeQuietly(stmt)

	now := db.now().UTC()
	stored := make([]models.CampaignData, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		r.CreatedAt = now
		r.Date = models.Day(r.Date)
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.ConnectedAccountID, r.CampaignID, r.CampaignName, r.Date.Format(models.DateLayout),
			r.Spend, r.Impressions, r.Clicks, r.Conversions, r.ConversionValue, r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to insert campaign %s on %s: %w",
				r.CampaignID, r.Date.Format(models.DateLayout), err)
		}
		stored = append(stored, r)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit campaign batch: %w", err)
	}
	return stored, nil
}

// ListCampaignData returns an account's rows ordered by date then campaign.
// A nil window returns every row.
func (db *DB) ListCampaignData(ctx context.Context, accountID string, window *models.DateRange) ([]models.CampaignData, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	wb := query.NewWhereBuilder().AddClause("connected_account_id = ?", accountID)
	if window != nil {
		wb.AddDateRange("date", window.StartString(), window.EndString())
	}
	where, args := wb.BuildWithPrefix()

	rows, err := db.conn.QueryContext(ctx, `SELECT id, connected_account_id, campaign_id, campaign_name, date,
			spend, impressions, clicks, conversions, conversion_value, created_at
		FROM campaign_data `+where+` ORDER BY date, campaign_id, created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign data: %w", err)
	}
	defer rows.Close()

	var out []models.CampaignData
	for rows.Next() {
		var r models.CampaignData
		if err := rows.Scan(&r.ID, &r.ConnectedAccountID, &r.CampaignID, &r.CampaignName, &r.Date,
			&r.Spend, &r.Impressions, &r.Clicks, &r.Conversions, &r.ConversionValue, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan campaign row: %w", err)
		}
		r.Date = models.Day(r.Date)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountCampaignData returns the number of stored rows for an account.
func (db *DB) CountCampaignData(ctx context.Context, accountID string) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaign_data WHERE connected_account_id = ?`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count campaign data: %w", err)
	}
	return n, nil
}

// CampaignName is a stored campaign-name ciphertext and the row it belongs to.
type CampaignName struct {
	ID   string
	Name string
}

// ListCampaignNames returns the id and campaign-name ciphertext of every
// row for an account.
func (db *DB) ListCampaignNames(ctx context.Context, accountID string) ([]CampaignName, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, campaign_name FROM campaign_data WHERE connected_account_id = ? ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign names: %w", err)
	}
	defer rows.Close()

	var out []CampaignName
	for rows.Next() {
		var n CampaignName
		if err := rows.Scan(&n.ID, &n.Name); err != nil {
			return nil, fmt.Errorf("failed to scan campaign name: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpdateCampaignNames rewrites campaign-name ciphertexts in one
// transaction. Used after a key rotation. Ids that no longer exist are
// skipped.
func (db *DB) UpdateCampaignNames(ctx context.Context, names []CampaignName) error {
	if len(names) == 0 {
		return nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `UPDATE campaign_data SET campaign_name = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare campaign name update: %w", err)
	}
	defer closeQuietly(stmt)

	for _, n := range names {
		if _, err := stmt.ExecContext(ctx, n.Name, n.ID); err != nil {
			return fmt.Errorf("failed to update campaign name %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit campaign name update: %w", err)
	}
	return nil
}
