// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

// Package events is the in-process event bus. Sync and token code publish
// domain events; subscribers such as the audit trail consume them without
// the publishers knowing about them.
//
// The bus is a watermill GoChannel: messages are delivered to subscribers
// that exist at publish time and are not persisted.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/adledger/internal/logging"
)

// Topics.
const (
	TopicSyncCompleted      = "sync.completed"
	TopicSyncFailed         = "sync.failed"
	TopicAccountDeactivated = "account.deactivated"
)

// Metadata keys set on every message.
const (
	MetadataCorrelationID = "correlation_id"
	MetadataPublishedAt   = "published_at"
)

// SyncCompleted is published after a successful account sync.
type SyncCompleted struct {
	AccountID   string    `json:"account_id"`
	UserID      string    `json:"user_id"`
	WindowStart string    `json:"window_start"`
	WindowEnd   string    `json:"window_end"`
	Rows        int       `json:"rows"`
	Dropped     int       `json:"dropped"`
	FromCache   bool      `json:"from_cache"`
	CompletedAt time.Time `json:"completed_at"`
}

// SyncFailed is published when an account sync aborts.
type SyncFailed struct {
	AccountID string    `json:"account_id"`
	UserID    string    `json:"user_id"`
	Stage     string    `json:"stage"`
	Error     string    `json:"error"`
	FailedAt  time.Time `json:"failed_at"`
}

// AccountDeactivated is published when a refresh fails irrecoverably.
type AccountDeactivated struct {
	AccountID     string    `json:"account_id"`
	UserID        string    `json:"user_id"`
	Reason        string    `json:"reason"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}

// Publisher is what producers depend on.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Bus is a GoChannel-backed publisher and subscriber.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

// NewBus creates a bus whose subscriber channels hold bufferSize messages.
func NewBus(bufferSize int64) *Bus {
	logger := NewLoggerAdapter()
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: bufferSize,
		}, logger),
		logger: logger,
	}
}

// Publish marshals payload and publishes it on topic.
func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(MetadataPublishedAt, time.Now().UTC().Format(time.RFC3339Nano))
	if ctx != nil {
		if id := logging.CorrelationIDFromContext(ctx); id != "" {
			msg.Metadata.Set(MetadataCorrelationID, id)
		}
	}

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns the message channel for topic. The channel closes when
// ctx ends or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close stops delivery and closes all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Decode unmarshals a message payload into v.
func Decode(msg *message.Message, v interface{}) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("decode message %s: %w", msg.UUID, err)
	}
	return nil
}

// Nop drops every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, interface{}) error { return nil }
