// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gvarikaa/reelfeed/internal/models"
)

// UpsertContent inserts or refreshes a content projection row. The
// platform's content service is the source of truth; this mirror only
// carries what ranking needs.
func (s *Store) UpsertContent(ctx context.Context, c *models.Content) error {
	if c.ID == "" {
		return fmt.Errorf("content: id is required")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("content: unknown content type %q", c.Type)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO content
			(id, content_type, creator_id, creator_name, parent_id, created_at,
			 topics, caption, sentiment,
			 view_count, like_count, comment_count, share_count,
			 media_url, duration_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			creator_name  = excluded.creator_name,
			topics        = excluded.topics,
			caption       = excluded.caption,
			sentiment     = excluded.sentiment,
			view_count    = excluded.view_count,
			like_count    = excluded.like_count,
			comment_count = excluded.comment_count,
			share_count   = excluded.share_count,
			media_url     = excluded.media_url,
			duration_sec  = excluded.duration_sec`,
		c.ID, string(c.Type), c.CreatorID, c.CreatorName, c.ParentID, createdAt,
		c.Topics, c.Caption, c.Sentiment,
		c.ViewCount, c.LikeCount, c.CommentCount, c.ShareCount,
		c.MediaURL, c.DurationSec)
	if err != nil {
		return fmt.Errorf("upsert content: %w", err)
	}
	return nil
}

// ContentByIDs returns the content rows for the given IDs. Missing IDs
// are silently absent from the result.
func (s *Store) ContentByIDs(ctx context.Context, ids []string) ([]models.Content, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, content_type, creator_id, creator_name, parent_id, created_at,
		       topics, caption, sentiment,
		       view_count, like_count, comment_count, share_count,
		       media_url, duration_sec
		FROM content
		WHERE id IN (%s)`, placeholders(len(ids)))

	rows, err := s.conn.QueryContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query content by ids: %w", err)
	}
	defer rows.Close()

	return scanContent(rows)
}

// RecentContent returns the newest content of the given type, optionally
// excluding specific IDs and a creator (so users are not recommended
// their own uploads).
func (s *Store) RecentContent(ctx context.Context, ct models.ContentType, excludeIDs []string, excludeCreatorID string, limit int) ([]models.Content, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, content_type, creator_id, creator_name, parent_id, created_at,
		       topics, caption, sentiment,
		       view_count, like_count, comment_count, share_count,
		       media_url, duration_sec
		FROM content
		WHERE content_type = ?`
	args := []any{string(ct)}

	if len(excludeIDs) > 0 {
		query += fmt.Sprintf(` AND id NOT IN (%s)`, placeholders(len(excludeIDs)))
		args = append(args, toAnySlice(excludeIDs)...)
	}
	if excludeCreatorID != "" {
		query += ` AND creator_id != ?`
		args = append(args, excludeCreatorID)
	}

	query += `
		ORDER BY created_at DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent content: %w", err)
	}
	defer rows.Close()

	return scanContent(rows)
}

// ReelsByCreators returns the newest reels uploaded by any of the given
// creators, newest first. Used for the following feed mode.
func (s *Store) ReelsByCreators(ctx context.Context, creatorIDs []string, before time.Time, limit int) ([]models.Content, error) {
	if len(creatorIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, content_type, creator_id, creator_name, parent_id, created_at,
		       topics, caption, sentiment,
		       view_count, like_count, comment_count, share_count,
		       media_url, duration_sec
		FROM content
		WHERE content_type = ? AND creator_id IN (%s) AND created_at < ?
		ORDER BY created_at DESC
		LIMIT ?`, placeholders(len(creatorIDs)))

	args := []any{string(models.ContentReel)}
	args = append(args, toAnySlice(creatorIDs)...)
	args = append(args, before, limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reels by creators: %w", err)
	}
	defer rows.Close()

	return scanContent(rows)
}

// TopReelsByEngagement returns reels created since the given time,
// ordered by raw view count, then likes. Used as the trending reel
// candidate pool and the trending feed mode.
func (s *Store) TopReelsByEngagement(ctx context.Context, since time.Time, offset, limit int) ([]models.Content, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, content_type, creator_id, creator_name, parent_id, created_at,
		       topics, caption, sentiment,
		       view_count, like_count, comment_count, share_count,
		       media_url, duration_sec
		FROM content
		WHERE content_type = ? AND created_at >= ?
		ORDER BY view_count DESC, like_count DESC, id
		LIMIT ? OFFSET ?`,
		string(models.ContentReel), since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query top reels: %w", err)
	}
	defer rows.Close()

	return scanContent(rows)
}

// GroupPostCounts returns, per group, how many posts were created in it
// since the given time, busiest groups first. Group membership is
// expressed through the post's parent_id.
func (s *Store) GroupPostCounts(ctx context.Context, since time.Time, limit int) ([]ContentCount, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT parent_id, count(*) AS posts
		FROM content
		WHERE content_type = ? AND parent_id != '' AND created_at >= ?
		GROUP BY parent_id
		ORDER BY posts DESC
		LIMIT ?`,
		string(models.ContentPost), since, limit)
	if err != nil {
		return nil, fmt.Errorf("query group post counts: %w", err)
	}
	defer rows.Close()

	var counts []ContentCount
	for rows.Next() {
		var c ContentCount
		if err := rows.Scan(&c.ContentID, &c.Count); err != nil {
			return nil, fmt.Errorf("scan group post count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group post counts: %w", err)
	}
	return counts, nil
}

// BumpEngagement increments the denormalized counter on a content row
// for an engagement event. Unknown or counterless behavior types are
// ignored.
func (s *Store) BumpEngagement(ctx context.Context, contentID string, bt models.BehaviorType) error {
	var column string
	switch bt {
	case models.BehaviorView:
		column = "view_count"
	case models.BehaviorLike:
		column = "like_count"
	case models.BehaviorComment:
		column = "comment_count"
	case models.BehaviorShare:
		column = "share_count"
	default:
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// Column name comes from the switch above, never from input.
	query := fmt.Sprintf(`UPDATE content SET %s = %s + 1 WHERE id = ?`, column, column)
	if _, err := s.conn.ExecContext(ctx, query, contentID); err != nil {
		return fmt.Errorf("bump %s: %w", column, err)
	}
	return nil
}

// scanContent reads content rows.
func scanContent(rows *sql.Rows) ([]models.Content, error) {
	var items []models.Content
	for rows.Next() {
		var (
			c  models.Content
			ct string
		)
		if err := rows.Scan(&c.ID, &ct, &c.CreatorID, &c.CreatorName, &c.ParentID,
			&c.CreatedAt, &c.Topics, &c.Caption, &c.Sentiment,
			&c.ViewCount, &c.LikeCount, &c.CommentCount, &c.ShareCount,
			&c.MediaURL, &c.DurationSec); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		c.Type = models.ContentType(ct)
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content: %w", err)
	}
	return items, nil
}
