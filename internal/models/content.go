// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package models

import (
	"strings"
	"time"
)

// Content is the read-side projection of a content row the feed service
// consumes. The social platform owns the full schema; this carries only
// the fields the rankers and the feed assembly need.
type Content struct {
	// ID is the content identifier (cuid issued by the platform).
	ID string `json:"id"`

	// Type is the content type.
	Type ContentType `json:"type"`

	// CreatorID is the owning user.
	CreatorID string `json:"creator_id"`

	// CreatorName is the display name of the owner, when hydrated.
	CreatorName string `json:"creator_name,omitempty"`

	// ParentID references a containing entity (the group for a group
	// post). Empty for top-level content.
	ParentID string `json:"parent_id,omitempty"`

	// CreatedAt is the content creation time.
	CreatedAt time.Time `json:"created_at"`

	// Topics is the comma-separated AI-derived topic tag string as
	// stored upstream. Use TopicList for the parsed form.
	Topics string `json:"topics,omitempty"`

	// Caption is the post text or reel caption.
	Caption string `json:"caption,omitempty"`

	// Sentiment is the precomputed AI sentiment label for posts.
	Sentiment string `json:"sentiment,omitempty"`

	// Engagement counters maintained upstream.
	ViewCount    int64 `json:"view_count"`
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
	ShareCount   int64 `json:"share_count"`

	// MediaURL points at the playable asset for reels/stories.
	MediaURL string `json:"media_url,omitempty"`

	// DurationSec is the media duration in seconds for reels.
	DurationSec float64 `json:"duration_sec,omitempty"`
}

// TopicList parses the comma-separated topic tag string into a
// normalized (lowercased, trimmed) slice. Empty segments are dropped.
func (c *Content) TopicList() []string {
	if c.Topics == "" {
		return nil
	}
	parts := strings.Split(c.Topics, ",")
	topics := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			topics = append(topics, p)
		}
	}
	return topics
}

// InterestDeclaration is an explicit topic interest a user declared
// during onboarding or settings. Declarations seed the interest profile
// at full weight.
type InterestDeclaration struct {
	UserID    string `json:"user_id"`
	TopicID   string `json:"topic_id"`
	TopicName string `json:"topic_name"`
}
