// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillLogger adapts zerolog to watermill.LoggerAdapter.
type WatermillLogger struct {
	logger zerolog.Logger
	fields watermill.LogFields
}

// NewWatermillLogger returns an adapter over the global logger.
func NewWatermillLogger() *WatermillLogger {
	return &WatermillLogger{logger: WithComponent("events")}
}

func (w *WatermillLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range w.fields {
		e = e.Interface(k, v)
	}
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

// Error implements watermill.LoggerAdapter.
func (w *WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.event(w.logger.Error().Err(err), fields).Msg(msg)
}

// Info implements watermill.LoggerAdapter.
func (w *WatermillLogger) Info(msg string, fields watermill.LogFields) {
	w.event(w.logger.Info(), fields).Msg(msg)
}

// Debug implements watermill.LoggerAdapter.
func (w *WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.event(w.logger.Debug(), fields).Msg(msg)
}

// Trace implements watermill.LoggerAdapter.
func (w *WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.event(w.logger.Trace(), fields).Msg(msg)
}

// With implements watermill.LoggerAdapter.
func (w *WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillLogger{logger: w.logger, fields: w.fields.Add(fields)}
}
