// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package recommend

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gvarikaa/reelfeed/internal/logging"
	"github.com/gvarikaa/reelfeed/internal/models"
)

// trendingPoolSize is how many aggregates are pulled before exclusion
// filtering.
const trendingPoolSize = 100

// TrendingScorer ranks content by recent engagement volume within the
// configured timeframe. Scoring differs per content type:
//
//   - posts: behavior-log interactions / 10, unclamped
//   - reels: 0.6 x normalized views + 0.4 x normalized likes
//   - groups: post creations / 20, clamped to 1
//
// Never returns an error.
type TrendingScorer struct {
	store     Store
	timeframe string
	log       zerolog.Logger
	now       func() time.Time
}

// NewTrendingScorer creates the trending scorer. Timeframe is "day" or
// "week".
func NewTrendingScorer(store Store, timeframe string) *TrendingScorer {
	return &TrendingScorer{
		store:     store,
		timeframe: timeframe,
		log:       logging.WithComponent("recommend.trending"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Source implements Scorer.
func (s *TrendingScorer) Source() Source { return SourceTrending }

// window returns the lookback start for the configured timeframe.
func (s *TrendingScorer) window() time.Time {
	if s.timeframe == "week" {
		return s.now().Add(-7 * 24 * time.Hour)
	}
	return s.now().Add(-24 * time.Hour)
}

// Score implements Scorer.
func (s *TrendingScorer) Score(ctx context.Context, userID string, ct models.ContentType, limit int) ([]Item, error) {
	since := s.window()

	interacted, err := s.store.InteractedContentIDs(ctx, userID, ct, since)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("interaction exclusion load failed")
		return nil, nil
	}
	exclude := make(map[string]struct{}, len(interacted))
	for _, id := range interacted {
		exclude[id] = struct{}{}
	}

	var items []Item
	switch ct {
	case models.ContentReel:
		items, err = s.scoreReels(ctx, since, exclude)
	case models.ContentGroup:
		items, err = s.scoreGroups(ctx, since, exclude)
	default:
		items, err = s.scoreByInteractions(ctx, ct, since, exclude)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("content_type", string(ct)).Msg("trending aggregation failed")
		return nil, nil
	}
	return sortAndTruncate(items, limit), nil
}

// scoreByInteractions handles posts (and other log-counted types):
// score is the raw interaction count over 10, deliberately unclamped so
// runaway posts rank above everything.
func (s *TrendingScorer) scoreByInteractions(ctx context.Context, ct models.ContentType, since time.Time, exclude map[string]struct{}) ([]Item, error) {
	counts, err := s.store.InteractionCounts(ctx, ct, since, trendingPoolSize)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(counts))
	for _, c := range counts {
		if _, skip := exclude[c.ContentID]; !skip {
			ids = append(ids, c.ContentID)
		}
	}
	createdAt, err := s.creationTimes(ctx, ids)
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, c := range counts {
		if _, skip := exclude[c.ContentID]; skip {
			continue
		}
		items = append(items, Item{
			ID:          c.ContentID,
			ContentType: ct,
			Score:       float64(c.Count) / 10,
			Reason:      ReasonTrendingNow,
			Source:      SourceTrending,
			Timestamp:   createdAt[c.ContentID],
			Metadata:    TrendingMetadata{Interactions: c.Count, Timeframe: s.timeframe},
		})
	}
	return items, nil
}

// scoreReels normalizes stored view/like counters against the maxima of
// the candidate set.
func (s *TrendingScorer) scoreReels(ctx context.Context, since time.Time, exclude map[string]struct{}) ([]Item, error) {
	reels, err := s.store.TopReelsByEngagement(ctx, since, 0, trendingPoolSize)
	if err != nil {
		return nil, err
	}

	var maxViews, maxLikes int64
	for _, r := range reels {
		if r.ViewCount > maxViews {
			maxViews = r.ViewCount
		}
		if r.LikeCount > maxLikes {
			maxLikes = r.LikeCount
		}
	}

	var items []Item
	for _, r := range reels {
		if _, skip := exclude[r.ID]; skip {
			continue
		}
		score := 0.0
		if maxViews > 0 {
			score += 0.6 * float64(r.ViewCount) / float64(maxViews)
		}
		if maxLikes > 0 {
			score += 0.4 * float64(r.LikeCount) / float64(maxLikes)
		}
		items = append(items, Item{
			ID:          r.ID,
			ContentType: models.ContentReel,
			Score:       score,
			Reason:      ReasonTrendingNow,
			Source:      SourceTrending,
			Timestamp:   r.CreatedAt,
			Metadata:    TrendingMetadata{Views: r.ViewCount, Likes: r.LikeCount, Timeframe: s.timeframe},
		})
	}
	return items, nil
}

// scoreGroups counts post creations per group, clamped at 20 posts.
func (s *TrendingScorer) scoreGroups(ctx context.Context, since time.Time, exclude map[string]struct{}) ([]Item, error) {
	counts, err := s.store.GroupPostCounts(ctx, since, trendingPoolSize)
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, c := range counts {
		if _, skip := exclude[c.ContentID]; skip {
			continue
		}
		score := float64(c.Count) / 20
		if score > 1 {
			score = 1
		}
		items = append(items, Item{
			ID:          c.ContentID,
			ContentType: models.ContentGroup,
			Score:       score,
			Reason:      ReasonTrendingNow,
			Source:      SourceTrending,
			Timestamp:   s.now(),
			Metadata:    TrendingMetadata{Interactions: c.Count, Timeframe: s.timeframe},
		})
	}
	return items, nil
}

// creationTimes hydrates content creation timestamps for the given IDs.
func (s *TrendingScorer) creationTimes(ctx context.Context, ids []string) (map[string]time.Time, error) {
	if len(ids) == 0 {
		return map[string]time.Time{}, nil
	}
	rows, err := s.store.ContentByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]time.Time, len(rows))
	for _, c := range rows {
		byID[c.ID] = c.CreatedAt
	}
	return byID, nil
}
