// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

// Package feed assembles reel pages per feed mode and tracks per-viewer
// session state: playback focus, view logging, and pagination.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gvarikaa/reelfeed/internal/config"
	"github.com/gvarikaa/reelfeed/internal/logging"
	"github.com/gvarikaa/reelfeed/internal/metrics"
	"github.com/gvarikaa/reelfeed/internal/models"
	"github.com/gvarikaa/reelfeed/internal/recommend"
)

// Mode selects the upstream query for a feed.
type Mode string

// Feed modes.
const (
	ModeForYou    Mode = "foryou"
	ModeFollowing Mode = "following"
	ModeTrending  Mode = "trending"
)

// Valid reports whether m is a known feed mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeForYou, ModeFollowing, ModeTrending:
		return true
	default:
		return false
	}
}

// Reel is one feed entry: the content snapshot plus the recommendation
// provenance when the for-you blender produced it.
type Reel struct {
	models.Content

	Reason recommend.Reason `json:"reason,omitempty"`
	Source recommend.Source `json:"source,omitempty"`
}

// Blender is the for-you feed upstream. Satisfied by
// *recommend.Blender.
type Blender interface {
	Feed(ctx context.Context, userID string, ct models.ContentType, limit int) []recommend.Item
}

// ContentSource is the store access the feed service needs.
type ContentSource interface {
	ContentByIDs(ctx context.Context, ids []string) ([]models.Content, error)
	ReelsByCreators(ctx context.Context, creatorIDs []string, before time.Time, limit int) ([]models.Content, error)
	TopReelsByEngagement(ctx context.Context, since time.Time, offset, limit int) ([]models.Content, error)
	PositiveContentIDs(ctx context.Context, userID string, ct models.ContentType, types []models.BehaviorType, limit int) ([]string, error)
}

// trendingModeWindow is the candidate window for the trending feed
// mode (distinct from the trending scorer's timeframe).
const trendingModeWindow = 7 * 24 * time.Hour

// maxFollowedCreators bounds the follow list consulted for the
// following mode.
const maxFollowedCreators = 200

// Service builds reel pages for each feed mode.
type Service struct {
	blender Blender
	store   ContentSource
	cfg     *config.FeedConfig
	log     zerolog.Logger
	now     func() time.Time
}

// NewService creates the feed service.
func NewService(blender Blender, store ContentSource, cfg *config.FeedConfig) *Service {
	return &Service{
		blender: blender,
		store:   store,
		cfg:     cfg,
		log:     logging.WithComponent("feed"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ForYouPage returns the next blended page, excluding reels already in
// the session. The blended stream is not cursor-paginated; each page is
// a fresh blend with session-level deduplication.
func (s *Service) ForYouPage(ctx context.Context, userID string, excludeIDs map[string]struct{}, limit int) ([]Reel, error) {
	items := s.blender.Feed(ctx, userID, models.ContentReel, limit)
	if len(items) == 0 {
		metrics.FeedRequests.WithLabelValues(string(ModeForYou), "empty").Inc()
		return nil, nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, seen := excludeIDs[it.ID]; seen {
			continue
		}
		ids = append(ids, it.ID)
	}

	rows, err := s.store.ContentByIDs(ctx, ids)
	if err != nil {
		metrics.FeedRequests.WithLabelValues(string(ModeForYou), "error").Inc()
		return nil, fmt.Errorf("hydrate for-you page: %w", err)
	}
	byID := make(map[string]models.Content, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}

	// Preserve the blender's ordering; drop items whose content row has
	// since disappeared.
	reels := make([]Reel, 0, len(ids))
	for _, it := range items {
		c, ok := byID[it.ID]
		if !ok {
			continue
		}
		reels = append(reels, Reel{Content: c, Reason: it.Reason, Source: it.Source})
	}

	metrics.FeedRequests.WithLabelValues(string(ModeForYou), "ok").Inc()
	return reels, nil
}

// FollowingPage returns reels from creators the user follows, newest
// first, created before the cursor time.
func (s *Service) FollowingPage(ctx context.Context, userID string, before time.Time, limit int) ([]Reel, error) {
	creatorIDs, err := s.store.PositiveContentIDs(ctx, userID, models.ContentUser,
		[]models.BehaviorType{models.BehaviorFollow}, maxFollowedCreators)
	if err != nil {
		metrics.FeedRequests.WithLabelValues(string(ModeFollowing), "error").Inc()
		return nil, fmt.Errorf("load followed creators: %w", err)
	}
	if len(creatorIDs) == 0 {
		metrics.FeedRequests.WithLabelValues(string(ModeFollowing), "empty").Inc()
		return nil, nil
	}

	if before.IsZero() {
		before = s.now()
	}
	rows, err := s.store.ReelsByCreators(ctx, creatorIDs, before, limit)
	if err != nil {
		metrics.FeedRequests.WithLabelValues(string(ModeFollowing), "error").Inc()
		return nil, fmt.Errorf("load following page: %w", err)
	}

	reels := make([]Reel, 0, len(rows))
	for _, c := range rows {
		reels = append(reels, Reel{Content: c, Source: recommend.SourceFollowing, Reason: recommend.ReasonFollowedCreator})
	}
	metrics.FeedRequests.WithLabelValues(string(ModeFollowing), "ok").Inc()
	return reels, nil
}

// TrendingPage returns globally popular recent reels, offset-paginated.
func (s *Service) TrendingPage(ctx context.Context, offset, limit int) ([]Reel, error) {
	rows, err := s.store.TopReelsByEngagement(ctx, s.now().Add(-trendingModeWindow), offset, limit)
	if err != nil {
		metrics.FeedRequests.WithLabelValues(string(ModeTrending), "error").Inc()
		return nil, fmt.Errorf("load trending page: %w", err)
	}

	reels := make([]Reel, 0, len(rows))
	for _, c := range rows {
		reels = append(reels, Reel{Content: c, Source: recommend.SourcePopular, Reason: recommend.ReasonTrendingNow})
	}
	metrics.FeedRequests.WithLabelValues(string(ModeTrending), "ok").Inc()
	return reels, nil
}
