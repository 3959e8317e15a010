// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/adledger/internal/config"
	"github.com/tomtom215/adledger/internal/logging"
)

// SecuritySink is the narrow interface other packages log through.
type SecuritySink interface {
	LogSecurityEvent(ctx context.Context, eventType EventType, details map[string]interface{}, userID, accountID, ipAddress, userAgent string)
}

// Config holds configuration for the audit logger.
type Config struct {
	Enabled         bool
	RetentionDays   int
	CleanupInterval time.Duration
	BufferSize      int

	// LogToStdout also writes events through the application logger.
	LogToStdout bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      1000,
	}
}

// ConfigFromApp maps the application audit section.
func ConfigFromApp(cfg *config.AuditConfig) *Config {
	c := DefaultConfig()
	c.Enabled = cfg.Enabled
	if cfg.BufferSize > 0 {
		c.BufferSize = cfg.BufferSize
	}
	if cfg.RetentionDays > 0 {
		c.RetentionDays = cfg.RetentionDays
	}
	return c
}

// Logger is the audit logging service.
type Logger struct {
	config    *Config
	store     Store
	eventChan chan *Event
	mu        sync.RWMutex
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	now       func() time.Time
}

// NewLogger creates an audit logger and starts its writer.
func NewLogger(store Store, cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	l := &Logger{
		config:    cfg,
		store:     store,
		eventChan: make(chan *Event, cfg.BufferSize),
		stopChan:  make(chan struct{}),
		now:       time.Now,
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	l.mu.RLock()
	toStdout := l.config.LogToStdout
	l.mu.RUnlock()

	if toStdout {
		if data, err := json.Marshal(event); err == nil {
			logging.Info().RawJSON("event", data).Msg("Audit event")
		}
	}

	if l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.store.Save(ctx, event); err != nil {
			logging.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to save audit event")
		}
	}
}

// Log enqueues an event. It never blocks: a full buffer drops the event.
func (l *Logger) Log(event *Event) {
	if !l.Enabled() {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	if event.Severity == "" || event.Outcome == "" {
		sev, out := Classify(event.Type)
		if event.Severity == "" {
			event.Severity = sev
		}
		if event.Outcome == "" {
			event.Outcome = out
		}
	}

	select {
	case <-l.stopChan:
		return
	default:
	}

	select {
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_type", string(event.Type)).Msg("Audit event buffer full, dropping event")
	}
}

// LogSecurityEvent records a security event with free-form details.
func (l *Logger) LogSecurityEvent(ctx context.Context, eventType EventType, details map[string]interface{}, userID, accountID, ipAddress, userAgent string) {
	event := &Event{
		Type:      eventType,
		UserID:    userID,
		AccountID: accountID,
		Source:    Source{IPAddress: ipAddress, UserAgent: userAgent},
		Metadata:  mustJSON(details),
	}
	if ctx != nil {
		event.CorrelationID = logging.CorrelationIDFromContext(ctx)
		event.RequestID = logging.RequestIDFromContext(ctx)
	}
	l.Log(event)
}

// Close drains the buffer and stops the writer.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// Cleanup deletes events past the retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	if l.store == nil {
		return 0, nil
	}
	l.mu.RLock()
	retention := l.config.RetentionDays
	l.mu.RUnlock()

	cutoff := l.now().AddDate(0, 0, -retention)
	return l.store.Delete(ctx, cutoff)
}

// CleanupInterval returns how often Cleanup should run. Zero disables it.
func (l *Logger) CleanupInterval() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.CleanupInterval
}

// Query retrieves events matching the filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of events matching the filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// SetEnabled enables or disables audit logging.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Enabled = enabled
}

// Enabled reports whether audit logging is active.
func (l *Logger) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Enabled
}

func mustJSON(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// Nop discards every event.
type Nop struct{}

// LogSecurityEvent implements SecuritySink.
func (Nop) LogSecurityEvent(context.Context, EventType, map[string]interface{}, string, string, string, string) {
}
