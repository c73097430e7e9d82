// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/gvarikaa/reelfeed/internal/models"
)

// BehaviorPublisher records behavior events onto the pipeline. From the
// caller's perspective this is fire-and-forget: publishing is quick and
// the durable append happens in the consumer.
type BehaviorPublisher struct {
	pub   message.Publisher
	topic string
}

// NewBehaviorPublisher creates a publisher for the given topic.
func NewBehaviorPublisher(pub message.Publisher, topic string) *BehaviorPublisher {
	return &BehaviorPublisher{pub: pub, topic: topic}
}

// Record validates the event, stamps missing fields, and publishes it.
func (p *BehaviorPublisher) Record(event *models.BehaviorEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal behavior event: %w", err)
	}

	msg := message.NewMessage(event.EventID, payload)
	msg.Metadata.Set("user_id", event.UserID)
	msg.Metadata.Set("behavior_type", string(event.Type))

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish behavior event: %w", err)
	}
	return nil
}
