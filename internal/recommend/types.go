// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

// Package recommend implements the recommendation scorers and the feed
// blender that combines their output into a single bounded feed.
package recommend

import (
	"context"
	"sort"
	"time"

	"github.com/gvarikaa/reelfeed/internal/models"
)

// Reason explains to the user why an item was recommended.
type Reason string

// Recommendation reasons.
const (
	ReasonFriendsEngaged   Reason = "friends_engaged"
	ReasonSimilarContent   Reason = "similar_content"
	ReasonTrendingNow      Reason = "trending_now"
	ReasonBasedOnInterests Reason = "based_on_interests"
	ReasonPopularInNetwork Reason = "popular_in_network"
	ReasonNewContent       Reason = "new_content"
	ReasonFollowedCreator  Reason = "followed_creator"
	ReasonSimilarUsers     Reason = "similar_users"
	ReasonTopicMatch       Reason = "topic_match"
)

// Source identifies which scorer produced an item.
type Source string

// Recommendation sources.
const (
	SourceCollaborative  Source = "collaborative_filtering"
	SourceContentBased   Source = "content_based"
	SourceTrending       Source = "trending"
	SourceAIPersonalized Source = "ai_personalized"
	SourceFollowing      Source = "following"
	SourcePopular        Source = "popular"
	SourceFallback       Source = "fallback"
)

// Metadata carries scorer-specific detail on an item. It is a sealed
// union: each scorer attaches its own shape, and consumers switch on
// the concrete type instead of probing a free-form map.
type Metadata interface {
	metadataSource() Source
}

// CollaborativeMetadata describes the similar-user signal behind a
// collaborative item.
type CollaborativeMetadata struct {
	// SimilarUsers is how many similar users were considered.
	SimilarUsers int `json:"similar_users"`
	// Overlap is the scoring user's shared-content count.
	Overlap int `json:"overlap"`
	// Interaction is the qualifying interaction type.
	Interaction models.BehaviorType `json:"interaction"`
}

func (CollaborativeMetadata) metadataSource() Source { return SourceCollaborative }

// ContentBasedMetadata lists the topics that matched the user's
// interest set.
type ContentBasedMetadata struct {
	MatchedTopics []string `json:"matched_topics"`
}

func (ContentBasedMetadata) metadataSource() Source { return SourceContentBased }

// TrendingMetadata describes the engagement aggregate behind a trending
// item.
type TrendingMetadata struct {
	Interactions int64  `json:"interactions,omitempty"`
	Views        int64  `json:"views,omitempty"`
	Likes        int64  `json:"likes,omitempty"`
	Timeframe    string `json:"timeframe"`
}

func (TrendingMetadata) metadataSource() Source { return SourceTrending }

// AIMetadata carries the model's free-text justification.
type AIMetadata struct {
	Explanation string `json:"explanation,omitempty"`
	Model       string `json:"model"`
}

func (AIMetadata) metadataSource() Source { return SourceAIPersonalized }

// Item is one scored candidate produced by a scorer. Items are
// transient: assembled per feed request, never persisted.
type Item struct {
	ID          string             `json:"id"`
	ContentType models.ContentType `json:"content_type"`

	// Score is scorer-specific and not comparable across sources until
	// the blender's allocation step.
	Score float64 `json:"score"`

	Reason Reason `json:"reason"`
	Source Source `json:"source"`

	// Timestamp is the content creation or interaction time, used for
	// recency.
	Timestamp time.Time `json:"timestamp"`

	Metadata Metadata `json:"metadata,omitempty"`
}

// Scorer produces ranked candidates for one recommendation source.
// Output is sorted descending by score and truncated to limit.
type Scorer interface {
	Source() Source
	Score(ctx context.Context, userID string, ct models.ContentType, limit int) ([]Item, error)
}

// sortAndTruncate orders items descending by score (ties broken by ID
// for determinism) and cuts the list to limit.
func sortAndTruncate(items []Item, limit int) []Item {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
