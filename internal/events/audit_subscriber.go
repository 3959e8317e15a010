// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/adledger/internal/audit"
	"github.com/tomtom215/adledger/internal/logging"
)

// AuditSubscriber records bus events in the audit trail.
type AuditSubscriber struct {
	bus  *Bus
	sink audit.SecuritySink
}

// NewAuditSubscriber creates a subscriber writing to sink.
func NewAuditSubscriber(bus *Bus, sink audit.SecuritySink) *AuditSubscriber {
	return &AuditSubscriber{bus: bus, sink: sink}
}

func (s *AuditSubscriber) String() string { return "audit-subscriber" }

// Serve consumes until ctx is done. It has the suture.Service signature.
func (s *AuditSubscriber) Serve(ctx context.Context) error {
	topics := []string{TopicSyncCompleted, TopicSyncFailed, TopicAccountDeactivated}
	channels := make([]<-chan *message.Message, len(topics))
	for i, topic := range topics {
		ch, err := s.bus.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		channels[i] = ch
	}

	completed, failed, deactivated := channels[0], channels[1], channels[2]
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-completed:
			if !ok {
				return nil
			}
			s.handle(msg, s.onSyncCompleted)
		case msg, ok := <-failed:
			if !ok {
				return nil
			}
			s.handle(msg, s.onSyncFailed)
		case msg, ok := <-deactivated:
			if !ok {
				return nil
			}
			s.handle(msg, s.onAccountDeactivated)
		}
	}
}

func (s *AuditSubscriber) handle(msg *message.Message, fn func(context.Context, *message.Message) error) {
	ctx := context.Background()
	if id := msg.Metadata.Get(MetadataCorrelationID); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}
	if err := fn(ctx, msg); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable event")
	}
	// GoChannel redelivers on Nack; a bad payload would loop forever.
	msg.Ack()
}

func (s *AuditSubscriber) onSyncCompleted(ctx context.Context, msg *message.Message) error {
	var ev SyncCompleted
	if err := Decode(msg, &ev); err != nil {
		return err
	}
	s.sink.LogSecurityEvent(ctx, audit.EventTypeSyncCompleted, map[string]interface{}{
		"window_start": ev.WindowStart,
		"window_end":   ev.WindowEnd,
		"rows":         ev.Rows,
		"dropped":      ev.Dropped,
		"from_cache":   ev.FromCache,
	}, ev.UserID, ev.AccountID, "", "")
	return nil
}

func (s *AuditSubscriber) onSyncFailed(ctx context.Context, msg *message.Message) error {
	var ev SyncFailed
	if err := Decode(msg, &ev); err != nil {
		return err
	}
	s.sink.LogSecurityEvent(ctx, audit.EventTypeSyncFailed, map[string]interface{}{
		"stage": ev.Stage,
		"error": logging.RedactError(ev.Error),
	}, ev.UserID, ev.AccountID, "", "")
	return nil
}

func (s *AuditSubscriber) onAccountDeactivated(ctx context.Context, msg *message.Message) error {
	var ev AccountDeactivated
	if err := Decode(msg, &ev); err != nil {
		return err
	}
	s.sink.LogSecurityEvent(ctx, audit.EventTypeAccountDeactivated, map[string]interface{}{
		"reason": logging.RedactError(ev.Reason),
	}, ev.UserID, ev.AccountID, "", "")
	return nil
}
