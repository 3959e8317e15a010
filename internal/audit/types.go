// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package audit

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// ErrEventNotFound is returned by Store.Get for unknown ids.
var ErrEventNotFound = errors.New("audit event not found")

// EventType categorizes audit events.
type EventType string

const (
	// Credential events
	EventTypeTokenStored        EventType = "token.stored"
	EventTypeTokenAccessed      EventType = "token.accessed"
	EventTypeTokenRefreshed     EventType = "token.refreshed"
	EventTypeTokenRefreshFailed EventType = "token.refresh_failed"
	EventTypeTokenRevoked       EventType = "token.revoked"
	EventTypeTokenReencrypted   EventType = "token.reencrypted"

	// Access control events
	EventTypeRateLimited   EventType = "access.rate_limited"
	EventTypeAccessDenied  EventType = "access.denied"
	EventTypeStateMismatch EventType = "access.state_mismatch"

	// Account lifecycle events
	EventTypeAccountConnected    EventType = "account.connected"
	EventTypeAccountDeactivated  EventType = "account.deactivated"
	EventTypeAccountDisconnected EventType = "account.disconnected"

	// Sync events
	EventTypeSyncCompleted EventType = "sync.completed"
	EventTypeSyncFailed    EventType = "sync.failed"
)

// Severity indicates the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

var eventClass = map[EventType]struct {
	severity Severity
	outcome  Outcome
}{
	EventTypeTokenStored:         {SeverityInfo, OutcomeSuccess},
	EventTypeTokenAccessed:       {SeverityInfo, OutcomeSuccess},
	EventTypeTokenRefreshed:      {SeverityInfo, OutcomeSuccess},
	EventTypeTokenRefreshFailed:  {SeverityError, OutcomeFailure},
	EventTypeTokenRevoked:        {SeverityWarning, OutcomeSuccess},
	EventTypeTokenReencrypted:    {SeverityInfo, OutcomeSuccess},
	EventTypeRateLimited:         {SeverityWarning, OutcomeFailure},
	EventTypeAccessDenied:        {SeverityWarning, OutcomeFailure},
	EventTypeStateMismatch:       {SeverityCritical, OutcomeFailure},
	EventTypeAccountConnected:    {SeverityInfo, OutcomeSuccess},
	EventTypeAccountDeactivated:  {SeverityError, OutcomeFailure},
	EventTypeAccountDisconnected: {SeverityWarning, OutcomeSuccess},
	EventTypeSyncCompleted:       {SeverityInfo, OutcomeSuccess},
	EventTypeSyncFailed:          {SeverityError, OutcomeFailure},
}

// Classify returns the default severity and outcome for an event type.
func Classify(t EventType) (Severity, Outcome) {
	if c, ok := eventClass[t]; ok {
		return c.severity, c.outcome
	}
	return SeverityInfo, OutcomeSuccess
}

// Event represents a security audit event.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Outcome   Outcome   `json:"outcome"`

	// UserID is the owner the event concerns, if known.
	UserID string `json:"user_id,omitempty"`

	// AccountID is the connected account the event concerns, if any.
	AccountID string `json:"account_id,omitempty"`

	Source Source `json:"source"`

	// Metadata contains event-specific details. Never token material.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	CorrelationID string `json:"correlation_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// Source represents where a request originated.
type Source struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Store defines the interface for audit event persistence.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// Delete removes events older than the cutoff.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter defines filtering options for audit queries.
type QueryFilter struct {
	Types     []EventType `json:"types,omitempty"`
	UserID    string      `json:"user_id,omitempty"`
	AccountID string      `json:"account_id,omitempty"`
	StartTime *time.Time  `json:"start_time,omitempty"`
	EndTime   *time.Time  `json:"end_time,omitempty"`

	// Limit is the maximum number of results. Zero means no limit.
	Limit int `json:"limit,omitempty"`
}

// DefaultQueryFilter returns a filter for the 100 most recent events.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}

func (f *QueryFilter) matches(e *Event) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.AccountID != "" && e.AccountID != f.AccountID {
		return false
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}
