// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/gvarikaa/reelfeed/internal/logging"
)

// wmLogger adapts zerolog to watermill.LoggerAdapter so pipeline logs
// land in the same structured stream as everything else.
type wmLogger struct {
	log zerolog.Logger
}

// NewWatermillLogger returns a Watermill logger backed by the service
// logger.
func NewWatermillLogger() watermill.LoggerAdapter {
	return &wmLogger{log: logging.WithComponent("events")}
}

func (l *wmLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.log.Error().Err(err), msg, fields)
}

func (l *wmLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.log.Info(), msg, fields)
}

func (l *wmLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.log.Debug(), msg, fields)
}

func (l *wmLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.log.Trace(), msg, fields)
}

func (l *wmLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &wmLogger{log: ctx.Logger()}
}

func (l *wmLogger) event(e *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}
