// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package recommend

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gvarikaa/reelfeed/internal/logging"
	"github.com/gvarikaa/reelfeed/internal/models"
)

const (
	// cbPositiveWindow is how many recent positive interactions seed
	// the topic set.
	cbPositiveWindow = 20

	// cbCandidateWindow is how many recent items are scanned for topic
	// overlap.
	cbCandidateWindow = 100
)

// positiveTypes are the interactions that signal topic interest.
var positiveTypes = []models.BehaviorType{
	models.BehaviorLike, models.BehaviorComment, models.BehaviorSave,
}

// ContentBasedScorer matches candidate topic tags against the topics of
// content the user recently engaged with. Never returns an error.
type ContentBasedScorer struct {
	store Store
	log   zerolog.Logger
}

// NewContentBasedScorer creates the content-based scorer.
func NewContentBasedScorer(store Store) *ContentBasedScorer {
	return &ContentBasedScorer{
		store: store,
		log:   logging.WithComponent("recommend.contentbased"),
	}
}

// Source implements Scorer.
func (s *ContentBasedScorer) Source() Source { return SourceContentBased }

// Score implements Scorer.
func (s *ContentBasedScorer) Score(ctx context.Context, userID string, ct models.ContentType, limit int) ([]Item, error) {
	engagedIDs, err := s.store.PositiveContentIDs(ctx, userID, ct, positiveTypes, cbPositiveWindow)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("positive interaction load failed")
		return nil, nil
	}
	if len(engagedIDs) == 0 {
		return nil, nil
	}

	engaged, err := s.store.ContentByIDs(ctx, engagedIDs)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("engaged content load failed")
		return nil, nil
	}

	// Topic weight = how many engaged items carried the topic.
	topicWeights := make(map[string]float64)
	totalWeight := 0.0
	for _, c := range engaged {
		for _, topic := range c.TopicList() {
			topicWeights[topic]++
			totalWeight++
		}
	}
	if totalWeight == 0 {
		return nil, nil
	}

	candidates, err := s.store.RecentContent(ctx, ct, engagedIDs, "", cbCandidateWindow)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("candidate load failed")
		return nil, nil
	}

	var items []Item
	for _, c := range candidates {
		topics := c.TopicList()
		if len(topics) == 0 {
			continue
		}

		matched := make([]string, 0, len(topics))
		matchedWeight := 0.0
		for _, topic := range topics {
			if w, ok := topicWeights[topic]; ok {
				matched = append(matched, topic)
				matchedWeight += w
			}
		}
		if len(matched) == 0 {
			continue
		}

		items = append(items, Item{
			ID:          c.ID,
			ContentType: ct,
			Score:       matchedWeight / totalWeight,
			Reason:      ReasonSimilarContent,
			Source:      SourceContentBased,
			Timestamp:   c.CreatedAt,
			Metadata:    ContentBasedMetadata{MatchedTopics: matched},
		})
	}
	return sortAndTruncate(items, limit), nil
}
