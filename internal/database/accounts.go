// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/adledger/internal/database/query"
	"github.com/tomtom215/adledger/internal/models"
)

const accountColumns = `id, user_id, platform, external_account_id, access_token, refresh_token,
	access_token_hash, refresh_token_hash, expires_at, last_sync_at, is_active, display_name,
	is_manager, time_zone, is_test_account, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(s rowScanner) (*models.ConnectedAccount, error) {
	var (
		a                                  models.ConnectedAccount
		platform                           string
		access, refresh, accessH, refreshH sql.NullString
		displayName, timeZone              sql.NullString
		expiresAt, lastSyncAt              sql.NullTime
	)
	err := s.Scan(&a.ID, &a.UserID, &platform, &a.ExternalAccountID, &access, &refresh,
		&accessH, &refreshH, &expiresAt, &lastSyncAt, &a.IsActive, &displayName,
		&a.IsManager, &timeZone, &a.IsTestAccount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Platform = models.Platform(platform)
	a.AccessToken = access.String
	a.RefreshToken = refresh.String
	a.AccessTokenHash = accessH.String
	a.RefreshTokenHash = refreshH.String
	a.DisplayName = displayName.String
	a.TimeZone = timeZone.String
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		a.ExpiresAt = &t
	}
	if lastSyncAt.Valid {
		t := lastSyncAt.Time.UTC()
		a.LastSyncAt = &t
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// UpsertAccount inserts acc, or updates the existing row with the same
// (user, platform, external account) key. An updated row is reactivated.
// The stored row is returned with created reporting which path was taken.
func (db *DB) UpsertAccount(ctx context.Context, acc *models.ConnectedAccount) (stored *models.ConnectedAccount, created bool, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	now := db.now().UTC()
	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM connected_accounts WHERE user_id = ? AND platform = ? AND external_account_id = ?`,
		acc.UserID, string(acc.Platform), acc.ExternalAccountID).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
		existingID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `INSERT INTO connected_accounts (`+accountColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE, ?, ?, ?, ?, ?, ?)`,
			existingID, acc.UserID, string(acc.Platform), acc.ExternalAccountID,
			nullString(acc.AccessToken), nullString(acc.RefreshToken),
			nullString(acc.AccessTokenHash), nullString(acc.RefreshTokenHash),
			nullTime(acc.ExpiresAt), nullTime(acc.LastSyncAt),
			nullString(acc.DisplayName), acc.IsManager, nullString(acc.TimeZone), acc.IsTestAccount,
			now, now)
		if err != nil {
			return nil, false, fmt.Errorf("failed to insert account: %w", err)
		}
	case err != nil:
		return nil, false, fmt.Errorf("failed to look up account: %w", err)
	default:
		// A refresh token is only issued on first consent, so keep the stored
		// one when the provider omitted it.
		_, err = tx.ExecContext(ctx, `UPDATE connected_accounts SET
				access_token = ?, access_token_hash = ?,
				refresh_token = COALESCE(?, refresh_token),
				refresh_token_hash = COALESCE(?, refresh_token_hash),
				expires_at = ?, is_active = TRUE,
				display_name = COALESCE(?, display_name),
				is_manager = ?, time_zone = COALESCE(?, time_zone), is_test_account = ?,
				updated_at = ?
			WHERE id = ?`,
			nullString(acc.AccessToken), nullString(acc.AccessTokenHash),
			nullString(acc.RefreshToken), nullString(acc.RefreshTokenHash),
			nullTime(acc.ExpiresAt),
			nullString(acc.DisplayName), acc.IsManager, nullString(acc.TimeZone), acc.IsTestAccount,
			now, existingID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update account: %w", err)
		}
	}

	stored, err = scanAccount(tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM connected_accounts WHERE id = ?`, existingID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read back account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit account upsert: %w", err)
	}
	return stored, created, nil
}

// GetAccount returns the account with the given id or ErrNotFound.
func (db *DB) GetAccount(ctx context.Context, id string) (*models.ConnectedAccount, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	acc, err := scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM connected_accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// AccountFilter narrows ListAccounts. Zero values match everything.
type AccountFilter struct {
	UserID     string
	Platform   models.Platform
	ActiveOnly bool
}

// ListAccounts returns accounts ordered by creation time.
func (db *DB) ListAccounts(ctx context.Context, f AccountFilter) ([]*models.ConnectedAccount, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	wb := query.NewWhereBuilder().
		AddEquals("user_id", f.UserID).
		AddEquals("platform", string(f.Platform))
	if f.ActiveOnly {
		wb.AddClause("is_active = TRUE")
	}
	where, args := wb.BuildWithPrefix()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM connected_accounts `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*models.ConnectedAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

// TokenUpdate carries new token ciphertexts. Empty refresh fields keep the
// stored refresh token.
type TokenUpdate struct {
	AccessToken      string
	AccessTokenHash  string
	RefreshToken     string
	RefreshTokenHash string
	ExpiresAt        *time.Time
}

// UpdateTokens replaces the token fields of an account.
func (db *DB) UpdateTokens(ctx context.Context, id string, u TokenUpdate) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE connected_accounts SET
			access_token = ?, access_token_hash = ?,
			refresh_token = COALESCE(?, refresh_token),
			refresh_token_hash = COALESCE(?, refresh_token_hash),
			expires_at = ?, updated_at = ?
		WHERE id = ?`,
		nullString(u.AccessToken), nullString(u.AccessTokenHash),
		nullString(u.RefreshToken), nullString(u.RefreshTokenHash),
		nullTime(u.ExpiresAt), db.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	return requireOneRow(res, id)
}

// UpdateCiphertexts rewrites token and display-name ciphertexts without
// touching hashes or expiry. Used after a key rotation.
func (db *DB) UpdateCiphertexts(ctx context.Context, id, accessToken, refreshToken, displayName string) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE connected_accounts SET
			access_token = ?, refresh_token = ?, display_name = ?, updated_at = ?
		WHERE id = ?`,
		nullString(accessToken), nullString(refreshToken), nullString(displayName), db.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update ciphertexts: %w", err)
	}
	return requireOneRow(res, id)
}

// SetActive flips the is_active flag.
func (db *DB) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE connected_accounts SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, db.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}
	return requireOneRow(res, id)
}

// UpdateLastSyncAt advances the incremental sync watermark. Concurrent
// writers race and the last one wins.
func (db *DB) UpdateLastSyncAt(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE connected_accounts SET last_sync_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), db.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last_sync_at: %w", err)
	}
	return requireOneRow(res, id)
}

// DeleteAccount removes an account and all of its campaign rows in one
// transaction. It returns the number of campaign rows removed.
func (db *DB) DeleteAccount(ctx context.Context, id string) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	res, err := tx.ExecContext(ctx, `DELETE FROM campaign_data WHERE connected_account_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete campaign rows: %w", err)
	}
	removed, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM connected_accounts WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete account: %w", err)
	}
	if err := requireOneRow(res, id); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit account delete: %w", err)
	}
	return removed, nil
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}
