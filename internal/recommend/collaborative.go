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

const (
	// collabHistoryWindow is how many of the user's own recent
	// interactions anchor the similarity search.
	collabHistoryWindow = 100

	// collabMaxSimilarUsers caps the similar-user set.
	collabMaxSimilarUsers = 20

	// collabCandidateWindow caps how many similar-user events feed
	// candidate scoring.
	collabCandidateWindow = 500

	// collabRecencyWindow is the linear decay horizon for a similar
	// user's interaction.
	collabRecencyWindow = 30 * 24 * time.Hour

	// Like and save interactions boost a candidate's score.
	likeBoost = 1.5
	saveBoost = 2.0
)

// CollaborativeScorer surfaces content engaged by users with
// overlapping interaction history. It never returns an error: on any
// store failure it logs and yields an empty list.
type CollaborativeScorer struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewCollaborativeScorer creates the collaborative-filtering scorer.
func NewCollaborativeScorer(store Store) *CollaborativeScorer {
	return &CollaborativeScorer{
		store: store,
		log:   logging.WithComponent("recommend.collaborative"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Source implements Scorer.
func (s *CollaborativeScorer) Source() Source { return SourceCollaborative }

// Score implements Scorer.
func (s *CollaborativeScorer) Score(ctx context.Context, userID string, ct models.ContentType, limit int) ([]Item, error) {
	history, err := s.store.RecentEventsByContentType(ctx, userID, ct, collabHistoryWindow)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("history load failed")
		return nil, nil
	}
	if len(history) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(history))
	ownContentIDs := make([]string, 0, len(history))
	for _, e := range history {
		if _, ok := seen[e.ContentID]; ok {
			continue
		}
		seen[e.ContentID] = struct{}{}
		ownContentIDs = append(ownContentIDs, e.ContentID)
	}

	similar, err := s.store.CoInteractors(ctx, ownContentIDs, userID, collabMaxSimilarUsers)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("co-interactor lookup failed")
		return nil, nil
	}
	if len(similar) == 0 {
		return nil, nil
	}

	maxOverlap := similar[0].Shared
	overlapByUser := make(map[string]int, len(similar))
	similarIDs := make([]string, 0, len(similar))
	for _, u := range similar {
		overlapByUser[u.UserID] = u.Shared
		similarIDs = append(similarIDs, u.UserID)
		if u.Shared > maxOverlap {
			maxOverlap = u.Shared
		}
	}

	candidates, err := s.store.EventsByUsers(ctx, similarIDs, ct, ownContentIDs, collabCandidateWindow)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("candidate load failed")
		return nil, nil
	}

	now := s.now()
	best := make(map[string]Item)
	for _, e := range candidates {
		age := now.Sub(e.Timestamp)
		recency := 1 - age.Seconds()/collabRecencyWindow.Seconds()
		if recency <= 0 {
			continue
		}

		similarity := float64(overlapByUser[e.UserID]) / float64(maxOverlap)
		score := recency * similarity
		switch e.Type {
		case models.BehaviorLike:
			score *= likeBoost
		case models.BehaviorSave:
			score *= saveBoost
		}

		// Multiple similar users may surface the same item; keep the
		// strongest signal.
		if prev, ok := best[e.ContentID]; ok && prev.Score >= score {
			continue
		}
		best[e.ContentID] = Item{
			ID:          e.ContentID,
			ContentType: ct,
			Score:       score,
			Reason:      ReasonFriendsEngaged,
			Source:      SourceCollaborative,
			Timestamp:   e.Timestamp,
			Metadata: CollaborativeMetadata{
				SimilarUsers: len(similar),
				Overlap:      overlapByUser[e.UserID],
				Interaction:  e.Type,
			},
		}
	}

	items := make([]Item, 0, len(best))
	for _, item := range best {
		items = append(items, item)
	}
	return sortAndTruncate(items, limit), nil
}
