// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package recommend

import (
	"context"
	"time"

	"github.com/gvarikaa/reelfeed/internal/database"
	"github.com/gvarikaa/reelfeed/internal/models"
)

// Store is the behavior-log and content access the scorers need. It is
// satisfied by *database.Store; tests substitute canned data.
type Store interface {
	RecentEvents(ctx context.Context, userID string, limit int) ([]models.BehaviorEvent, error)
	RecentEventsByContentType(ctx context.Context, userID string, ct models.ContentType, limit int) ([]models.BehaviorEvent, error)
	PositiveContentIDs(ctx context.Context, userID string, ct models.ContentType, types []models.BehaviorType, limit int) ([]string, error)
	CoInteractors(ctx context.Context, contentIDs []string, excludeUserID string, limit int) ([]database.UserOverlap, error)
	EventsByUsers(ctx context.Context, userIDs []string, ct models.ContentType, excludeContentIDs []string, limit int) ([]models.BehaviorEvent, error)
	InteractedContentIDs(ctx context.Context, userID string, ct models.ContentType, since time.Time) ([]string, error)
	InteractionCounts(ctx context.Context, ct models.ContentType, since time.Time, limit int) ([]database.ContentCount, error)
	Declarations(ctx context.Context, userID string) ([]models.InterestDeclaration, error)

	ContentByIDs(ctx context.Context, ids []string) ([]models.Content, error)
	RecentContent(ctx context.Context, ct models.ContentType, excludeIDs []string, excludeCreatorID string, limit int) ([]models.Content, error)
	TopReelsByEngagement(ctx context.Context, since time.Time, offset, limit int) ([]models.Content, error)
	GroupPostCounts(ctx context.Context, since time.Time, limit int) ([]database.ContentCount, error)
}

var _ Store = (*database.Store)(nil)
