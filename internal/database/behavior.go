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

	json "github.com/goccy/go-json"

	"github.com/gvarikaa/reelfeed/internal/models"
)

// UserOverlap is a user together with how many content items they share
// with the reference user's interaction history.
type UserOverlap struct {
	UserID string
	Shared int
}

// ContentCount is a content item with an aggregate interaction count.
type ContentCount struct {
	ContentID string
	Count     int64
}

// AppendEvent writes a behavior event to the append-only log. The event
// must validate; metadata is serialized to JSON.
func (s *Store) AppendEvent(ctx context.Context, event *models.BehaviorEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	metadata := ""
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
		metadata = string(raw)
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO behavior_events
			(event_id, user_id, behavior_type, content_id, content_type, ts, duration_sec, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID, event.UserID, string(event.Type),
		event.ContentID, string(event.ContentType),
		ts, event.DurationSec, metadata)
	if err != nil {
		return fmt.Errorf("append behavior event: %w", err)
	}
	return nil
}

// RecentEvents returns the most recent events for a user, newest first.
func (s *Store) RecentEvents(ctx context.Context, userID string, limit int) ([]models.BehaviorEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT event_id, user_id, behavior_type, content_id, content_type, ts, duration_sec, metadata
		FROM behavior_events
		WHERE user_id = ?
		ORDER BY ts DESC
		LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// RecentEventsByContentType returns a user's most recent events that
// reference content of the given type, newest first.
func (s *Store) RecentEventsByContentType(ctx context.Context, userID string, ct models.ContentType, limit int) ([]models.BehaviorEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT event_id, user_id, behavior_type, content_id, content_type, ts, duration_sec, metadata
		FROM behavior_events
		WHERE user_id = ? AND content_type = ?
		ORDER BY ts DESC
		LIMIT ?`,
		userID, string(ct), limit)
	if err != nil {
		return nil, fmt.Errorf("query events by content type: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// PositiveContentIDs returns the distinct content IDs a user most
// recently interacted with via any of the given behavior types, newest
// interaction first.
func (s *Store) PositiveContentIDs(ctx context.Context, userID string, ct models.ContentType, types []models.BehaviorType, limit int) ([]string, error) {
	if len(types) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	args := make([]any, 0, len(types)+3)
	args = append(args, userID, string(ct))
	for _, t := range types {
		args = append(args, string(t))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT content_id
		FROM behavior_events
		WHERE user_id = ? AND content_type = ? AND behavior_type IN (%s)
		GROUP BY content_id
		ORDER BY max(ts) DESC
		LIMIT ?`, placeholders(len(types)))

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query positive content ids: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// CoInteractors returns users who interacted with any of the given
// content items, ranked by how many of those items they share, highest
// overlap first. The reference user is excluded.
func (s *Store) CoInteractors(ctx context.Context, contentIDs []string, excludeUserID string, limit int) ([]UserOverlap, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	args := toAnySlice(contentIDs)
	args = append(args, excludeUserID, limit)

	query := fmt.Sprintf(`
		SELECT user_id, count(DISTINCT content_id) AS shared
		FROM behavior_events
		WHERE content_id IN (%s) AND user_id != ?
		GROUP BY user_id
		ORDER BY shared DESC
		LIMIT ?`, placeholders(len(contentIDs)))

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query co-interactors: %w", err)
	}
	defer rows.Close()

	var overlaps []UserOverlap
	for rows.Next() {
		var o UserOverlap
		if err := rows.Scan(&o.UserID, &o.Shared); err != nil {
			return nil, fmt.Errorf("scan co-interactor: %w", err)
		}
		overlaps = append(overlaps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate co-interactors: %w", err)
	}
	return overlaps, nil
}

// EventsByUsers returns recent events by any of the given users that
// reference content of the given type, excluding the listed content
// IDs. Used to surface what similar users engaged with.
func (s *Store) EventsByUsers(ctx context.Context, userIDs []string, ct models.ContentType, excludeContentIDs []string, limit int) ([]models.BehaviorEvent, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT event_id, user_id, behavior_type, content_id, content_type, ts, duration_sec, metadata
		FROM behavior_events
		WHERE user_id IN (%s) AND content_type = ?`, placeholders(len(userIDs)))

	args := toAnySlice(userIDs)
	args = append(args, string(ct))

	if len(excludeContentIDs) > 0 {
		query += fmt.Sprintf(` AND content_id NOT IN (%s)`, placeholders(len(excludeContentIDs)))
		args = append(args, toAnySlice(excludeContentIDs)...)
	}

	query += `
		ORDER BY ts DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events by users: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// InteractedContentIDs returns the distinct content IDs of the given
// type a user interacted with since the given time.
func (s *Store) InteractedContentIDs(ctx context.Context, userID string, ct models.ContentType, since time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT DISTINCT content_id
		FROM behavior_events
		WHERE user_id = ? AND content_type = ? AND ts >= ?`,
		userID, string(ct), since)
	if err != nil {
		return nil, fmt.Errorf("query interacted content ids: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// InteractionCounts returns per-content interaction counts for content
// of the given type since the given time, highest count first.
func (s *Store) InteractionCounts(ctx context.Context, ct models.ContentType, since time.Time, limit int) ([]ContentCount, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT content_id, count(*) AS interactions
		FROM behavior_events
		WHERE content_type = ? AND ts >= ?
		GROUP BY content_id
		ORDER BY interactions DESC
		LIMIT ?`,
		string(ct), since, limit)
	if err != nil {
		return nil, fmt.Errorf("query interaction counts: %w", err)
	}
	defer rows.Close()

	var counts []ContentCount
	for rows.Next() {
		var c ContentCount
		if err := rows.Scan(&c.ContentID, &c.Count); err != nil {
			return nil, fmt.Errorf("scan interaction count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interaction counts: %w", err)
	}
	return counts, nil
}

// DeclareInterest records an explicit topic interest for a user.
// Re-declaring the same topic is a no-op.
func (s *Store) DeclareInterest(ctx context.Context, d *models.InterestDeclaration) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO interest_declarations (user_id, topic_id, topic_name)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`,
		d.UserID, d.TopicID, d.TopicName)
	if err != nil {
		return fmt.Errorf("declare interest: %w", err)
	}
	return nil
}

// Declarations returns a user's explicit topic interests.
func (s *Store) Declarations(ctx context.Context, userID string) ([]models.InterestDeclaration, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT user_id, topic_id, topic_name
		FROM interest_declarations
		WHERE user_id = ?
		ORDER BY topic_name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("query interest declarations: %w", err)
	}
	defer rows.Close()

	var decls []models.InterestDeclaration
	for rows.Next() {
		var d models.InterestDeclaration
		if err := rows.Scan(&d.UserID, &d.TopicID, &d.TopicName); err != nil {
			return nil, fmt.Errorf("scan interest declaration: %w", err)
		}
		decls = append(decls, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interest declarations: %w", err)
	}
	return decls, nil
}

// scanEvents reads behavior event rows.
func scanEvents(rows *sql.Rows) ([]models.BehaviorEvent, error) {
	var events []models.BehaviorEvent
	for rows.Next() {
		var (
			e        models.BehaviorEvent
			bt, ct   string
			metadata sql.NullString
		)
		if err := rows.Scan(&e.EventID, &e.UserID, &bt, &e.ContentID, &ct,
			&e.Timestamp, &e.DurationSec, &metadata); err != nil {
			return nil, fmt.Errorf("scan behavior event: %w", err)
		}
		e.Type = models.BehaviorType(bt)
		e.ContentType = models.ContentType(ct)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate behavior events: %w", err)
	}
	return events, nil
}

// scanIDs reads single-column string rows.
func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}
