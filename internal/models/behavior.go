// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

// Package models defines the shared domain types for the feed service:
// behavior events, content summaries, and their enumerations.
package models

import (
	"fmt"
	"time"
)

// BehaviorType classifies a logged user interaction.
type BehaviorType string

// Behavior types recorded in the append-only log.
const (
	BehaviorView      BehaviorType = "view"
	BehaviorLike      BehaviorType = "like"
	BehaviorComment   BehaviorType = "comment"
	BehaviorShare     BehaviorType = "share"
	BehaviorSave      BehaviorType = "save"
	BehaviorClick     BehaviorType = "click"
	BehaviorFollow    BehaviorType = "follow"
	BehaviorDwellTime BehaviorType = "dwell_time"
	BehaviorSearch    BehaviorType = "search"
)

// behaviorTypes is the set of valid behavior types for validation.
var behaviorTypes = map[BehaviorType]struct{}{
	BehaviorView: {}, BehaviorLike: {}, BehaviorComment: {},
	BehaviorShare: {}, BehaviorSave: {}, BehaviorClick: {},
	BehaviorFollow: {}, BehaviorDwellTime: {}, BehaviorSearch: {},
}

// Valid reports whether t is a known behavior type.
func (t BehaviorType) Valid() bool {
	_, ok := behaviorTypes[t]
	return ok
}

// InvalidatesProfile reports whether an event of this type should bust
// the cached interest profile of the acting user. Strong engagement
// signals (like, save, follow, share) change the profile enough that a
// stale copy is not worth serving for up to 24 hours.
func (t BehaviorType) InvalidatesProfile() bool {
	switch t {
	case BehaviorLike, BehaviorSave, BehaviorFollow, BehaviorShare:
		return true
	default:
		return false
	}
}

// ContentType classifies the content a behavior event refers to.
type ContentType string

// Content types known to the feed service.
const (
	ContentPost  ContentType = "post"
	ContentReel  ContentType = "reel"
	ContentGroup ContentType = "group"
	ContentEvent ContentType = "event"
	ContentUser  ContentType = "user"
	ContentTopic ContentType = "topic"
	ContentStory ContentType = "story"
)

var contentTypes = map[ContentType]struct{}{
	ContentPost: {}, ContentReel: {}, ContentGroup: {}, ContentEvent: {},
	ContentUser: {}, ContentTopic: {}, ContentStory: {},
}

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	_, ok := contentTypes[t]
	return ok
}

// BehaviorEvent is a single logged user interaction with a content item.
// Events are immutable once written; the log is append-only.
type BehaviorEvent struct {
	// EventID uniquely identifies the event (uuid).
	EventID string `json:"event_id"`

	// UserID is the acting user.
	UserID string `json:"user_id"`

	// Type is the kind of interaction.
	Type BehaviorType `json:"type"`

	// ContentID is the content the user interacted with.
	ContentID string `json:"content_id"`

	// ContentType is the kind of content referenced by ContentID.
	ContentType ContentType `json:"content_type"`

	// Timestamp is when the interaction occurred.
	Timestamp time.Time `json:"timestamp"`

	// DurationSec is the watch/dwell duration in seconds, when applicable.
	DurationSec float64 `json:"duration_sec,omitempty"`

	// Metadata carries free-form event details (completion rate, feed
	// mode, search query). Values must be JSON-serializable.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks required fields.
func (e *BehaviorEvent) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("behavior event: user id is required")
	}
	if e.ContentID == "" {
		return fmt.Errorf("behavior event: content id is required")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("behavior event: unknown behavior type %q", e.Type)
	}
	if !e.ContentType.Valid() {
		return fmt.Errorf("behavior event: unknown content type %q", e.ContentType)
	}
	return nil
}
