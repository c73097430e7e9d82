// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/gvarikaa/reelfeed/internal/logging"
	"github.com/gvarikaa/reelfeed/internal/metrics"
	"github.com/gvarikaa/reelfeed/internal/models"
)

// EventSink is the durable side of ingestion: append to the behavior
// log and maintain denormalized engagement counters.
type EventSink interface {
	AppendEvent(ctx context.Context, event *models.BehaviorEvent) error
	BumpEngagement(ctx context.Context, contentID string, bt models.BehaviorType) error
}

// ProfileInvalidator busts the cached interest profile for a user.
type ProfileInvalidator interface {
	Invalidate(userID string)
}

// IngestHandler consumes behavior events off the pipeline: appends to
// the log, bumps counters, and invalidates the actor's profile on
// strong engagement signals.
type IngestHandler struct {
	sink     EventSink
	profiles ProfileInvalidator
	log      zerolog.Logger
}

// NewIngestHandler creates the ingest handler.
func NewIngestHandler(sink EventSink, profiles ProfileInvalidator) *IngestHandler {
	return &IngestHandler{
		sink:     sink,
		profiles: profiles,
		log:      logging.WithComponent("events.ingest"),
	}
}

// Handle processes one message. A returned error triggers the router's
// retry middleware; a malformed payload is dropped instead, since
// retrying it can never succeed.
func (h *IngestHandler) Handle(msg *message.Message) error {
	var event models.BehaviorEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.log.Error().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable behavior event")
		return nil
	}
	if err := event.Validate(); err != nil {
		h.log.Error().Err(err).Str("message_id", msg.UUID).Msg("dropping invalid behavior event")
		return nil
	}

	ctx := msg.Context()
	if err := h.sink.AppendEvent(ctx, &event); err != nil {
		return fmt.Errorf("append event %s: %w", event.EventID, err)
	}

	// Counter updates are best-effort; the log row is the source of
	// truth.
	if err := h.sink.BumpEngagement(ctx, event.ContentID, event.Type); err != nil {
		h.log.Warn().Err(err).Str("content_id", event.ContentID).Msg("engagement counter update failed")
	}

	if event.Type.InvalidatesProfile() {
		h.profiles.Invalidate(event.UserID)
	}

	metrics.BehaviorEvents.WithLabelValues(string(event.Type)).Inc()
	return nil
}
