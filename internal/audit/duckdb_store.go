// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/adledger/internal/database/query"
	"github.com/tomtom215/adledger/internal/logging"
)

// DuckDBStore implements Store on the audit_events table.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a DuckDB-backed audit store. Call CreateTable
// before first use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

const auditColumns = `id, timestamp, type, severity, outcome, user_id, account_id,
	source_ip, source_user_agent, CAST(metadata AS VARCHAR), correlation_id, request_id`

// CreateTable creates the audit_events table if it doesn't exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			outcome TEXT NOT NULL,
			user_id TEXT,
			account_id TEXT,
			source_ip TEXT,
			source_user_agent TEXT,
			metadata JSON,
			correlation_id TEXT,
			request_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(type)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_account ON audit_events(account_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute audit schema statement: %w", err)
		}
	}

	logging.Debug().Msg("Audit events table created/verified")
	return nil
}

// Save persists an audit event.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	var metadata *string
	if len(event.Metadata) > 0 {
		m := string(event.Metadata)
		metadata = &m
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, timestamp, type, severity, outcome, user_id, account_id,
			source_ip, source_user_agent, metadata, correlation_id, request_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp, string(event.Type), string(event.Severity), string(event.Outcome),
		event.UserID, event.AccountID, event.Source.IPAddress, event.Source.UserAgent,
		metadata, event.CorrelationID, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// Get retrieves an event by ID.
func (s *DuckDBStore) Get(ctx context.Context, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+auditColumns+" FROM audit_events WHERE id = ?", id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
		}
		return nil, fmt.Errorf("failed to get audit event: %w", err)
	}
	return event, nil
}

// Query retrieves events matching the filter, most recent first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	where, args := buildWhere(filter)
	q := "SELECT " + auditColumns + " FROM audit_events WHERE " + where + " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to scan audit event row")
			continue
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}

// Count returns the number of events matching the filter.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args := buildWhere(filter)
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events WHERE "+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return count, nil
}

// Delete removes events older than the given time.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted count: %w", err)
	}
	return count, nil
}

func buildWhere(filter QueryFilter) (string, []interface{}) {
	wb := query.NewWhereBuilder()
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		wb.AddIn("type", types)
	}
	wb.AddEquals("user_id", filter.UserID)
	wb.AddEquals("account_id", filter.AccountID)
	if filter.StartTime != nil {
		wb.AddClause("timestamp >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		wb.AddClause("timestamp <= ?", *filter.EndTime)
	}
	return wb.Build()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		e                          Event
		typ, severity, outcome     string
		userID, accountID, ip, ua  sql.NullString
		metadata, corrID, reqID    sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Timestamp, &typ, &severity, &outcome, &userID, &accountID,
		&ip, &ua, &metadata, &corrID, &reqID); err != nil {
		return nil, err
	}
	e.Type = EventType(typ)
	e.Severity = Severity(severity)
	e.Outcome = Outcome(outcome)
	e.UserID = userID.String
	e.AccountID = accountID.String
	e.Source = Source{IPAddress: ip.String, UserAgent: ua.String}
	if metadata.Valid && strings.TrimSpace(metadata.String) != "" {
		e.Metadata = json.RawMessage(metadata.String)
	}
	e.CorrelationID = corrID.String
	e.RequestID = reqID.String
	return &e, nil
}
