// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/tomtom215/adledger/internal/logging"
)

// LoggerAdapter routes watermill logs into the application zerolog logger.
type LoggerAdapter struct {
	fields watermill.LogFields
}

// NewLoggerAdapter creates an adapter tagged with component=events.
func NewLoggerAdapter() *LoggerAdapter {
	return &LoggerAdapter{fields: watermill.LogFields{"component": "events"}}
}

func (a *LoggerAdapter) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range a.fields {
		e = e.Interface(k, v)
	}
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

// Error implements watermill.LoggerAdapter.
func (a *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.event(logging.Error().Err(err), fields).Msg(msg)
}

// Info implements watermill.LoggerAdapter.
func (a *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.event(logging.Info(), fields).Msg(msg)
}

// Debug implements watermill.LoggerAdapter.
func (a *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.event(logging.Debug(), fields).Msg(msg)
}

// Trace implements watermill.LoggerAdapter. Trace maps to debug.
func (a *LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.event(logging.Debug(), fields).Msg(msg)
}

// With implements watermill.LoggerAdapter.
func (a *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LoggerAdapter{fields: a.fields.Add(fields)}
}
