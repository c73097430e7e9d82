// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gvarikaa/reelfeed/internal/config"
	"github.com/gvarikaa/reelfeed/internal/models"
)

// newTestStore opens an in-memory store.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(&config.DatabaseConfig{Threads: 2})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedEvent(t *testing.T, s *Store, userID string, bt models.BehaviorType, contentID string, ct models.ContentType, ts time.Time) {
	t.Helper()
	err := s.AppendEvent(context.Background(), &models.BehaviorEvent{
		EventID:     uuid.New().String(),
		UserID:      userID,
		Type:        bt,
		ContentID:   contentID,
		ContentType: ct,
		Timestamp:   ts,
	})
	if err != nil {
		t.Fatalf("append event: %v", err)
	}
}

func TestAppendAndRecentEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	seedEvent(t, s, "user-1", models.BehaviorView, "reel-a", models.ContentReel, now.Add(-2*time.Hour))
	seedEvent(t, s, "user-1", models.BehaviorLike, "reel-b", models.ContentReel, now.Add(-time.Hour))
	seedEvent(t, s, "user-2", models.BehaviorView, "reel-a", models.ContentReel, now)

	events, err := s.RecentEvents(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ContentID != "reel-b" {
		t.Errorf("newest event content = %q, want reel-b", events[0].ContentID)
	}
	if events[0].Type != models.BehaviorLike {
		t.Errorf("newest event type = %q, want like", events[0].Type)
	}
}

func TestAppendEventRejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name  string
		event models.BehaviorEvent
	}{
		{
			name:  "missing user",
			event: models.BehaviorEvent{Type: models.BehaviorView, ContentID: "c", ContentType: models.ContentReel},
		},
		{
			name:  "missing content",
			event: models.BehaviorEvent{UserID: "u", Type: models.BehaviorView, ContentType: models.ContentReel},
		},
		{
			name:  "unknown behavior type",
			event: models.BehaviorEvent{UserID: "u", Type: "teleport", ContentID: "c", ContentType: models.ContentReel},
		},
		{
			name:  "unknown content type",
			event: models.BehaviorEvent{UserID: "u", Type: models.BehaviorView, ContentID: "c", ContentType: "hologram"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.event.EventID = uuid.New().String()
			if err := s.AppendEvent(context.Background(), &tt.event); err == nil {
				t.Error("AppendEvent() = nil, want error")
			}
		})
	}
}

func TestEventMetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.AppendEvent(ctx, &models.BehaviorEvent{
		EventID:     uuid.New().String(),
		UserID:      "user-1",
		Type:        models.BehaviorView,
		ContentID:   "reel-a",
		ContentType: models.ContentReel,
		Timestamp:   time.Now().UTC(),
		DurationSec: 4.2,
		Metadata:    map[string]any{"completion_rate": 0.3, "feed_mode": "foryou"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := s.RecentEvents(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.DurationSec != 4.2 {
		t.Errorf("DurationSec = %v, want 4.2", e.DurationSec)
	}
	if mode, _ := e.Metadata["feed_mode"].(string); mode != "foryou" {
		t.Errorf("metadata feed_mode = %v, want foryou", e.Metadata["feed_mode"])
	}
}

func TestPositiveContentIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedEvent(t, s, "user-1", models.BehaviorView, "reel-viewed", models.ContentReel, now.Add(-3*time.Hour))
	seedEvent(t, s, "user-1", models.BehaviorLike, "reel-liked", models.ContentReel, now.Add(-2*time.Hour))
	seedEvent(t, s, "user-1", models.BehaviorSave, "reel-saved", models.ContentReel, now.Add(-time.Hour))
	seedEvent(t, s, "user-1", models.BehaviorLike, "post-liked", models.ContentPost, now)

	ids, err := s.PositiveContentIDs(ctx, "user-1", models.ContentReel,
		[]models.BehaviorType{models.BehaviorLike, models.BehaviorSave}, 10)
	if err != nil {
		t.Fatalf("PositiveContentIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2: %v", len(ids), ids)
	}
	if ids[0] != "reel-saved" || ids[1] != "reel-liked" {
		t.Errorf("ids = %v, want [reel-saved reel-liked]", ids)
	}
}

func TestCoInteractorsRankedByOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// user-2 shares two items with user-1's history, user-3 shares one.
	seedEvent(t, s, "user-2", models.BehaviorView, "reel-a", models.ContentReel, now)
	seedEvent(t, s, "user-2", models.BehaviorLike, "reel-b", models.ContentReel, now)
	seedEvent(t, s, "user-3", models.BehaviorView, "reel-a", models.ContentReel, now)
	seedEvent(t, s, "user-1", models.BehaviorView, "reel-a", models.ContentReel, now)

	overlaps, err := s.CoInteractors(ctx, []string{"reel-a", "reel-b"}, "user-1", 10)
	if err != nil {
		t.Fatalf("CoInteractors: %v", err)
	}
	if len(overlaps) != 2 {
		t.Fatalf("got %d users, want 2: %v", len(overlaps), overlaps)
	}
	if overlaps[0].UserID != "user-2" || overlaps[0].Shared != 2 {
		t.Errorf("top overlap = %+v, want user-2 with 2 shared", overlaps[0])
	}
	for _, o := range overlaps {
		if o.UserID == "user-1" {
			t.Error("reference user must be excluded from co-interactors")
		}
	}
}

func TestInteractionCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		seedEvent(t, s, fmt.Sprintf("user-%d", i), models.BehaviorLike, "post-hot", models.ContentPost, now)
	}
	seedEvent(t, s, "user-9", models.BehaviorLike, "post-cold", models.ContentPost, now)
	// Outside the window.
	seedEvent(t, s, "user-9", models.BehaviorLike, "post-old", models.ContentPost, now.Add(-48*time.Hour))

	counts, err := s.InteractionCounts(ctx, models.ContentPost, now.Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("InteractionCounts: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("got %d rows, want 2: %v", len(counts), counts)
	}
	if counts[0].ContentID != "post-hot" || counts[0].Count != 3 {
		t.Errorf("top = %+v, want post-hot with 3", counts[0])
	}
}

func seedContent(t *testing.T, s *Store, c models.Content) {
	t.Helper()
	if err := s.UpsertContent(context.Background(), &c); err != nil {
		t.Fatalf("upsert content %s: %v", c.ID, err)
	}
}

func TestContentUpsertAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	seedContent(t, s, models.Content{
		ID: "reel-a", Type: models.ContentReel, CreatorID: "creator-1",
		CreatedAt: now, Topics: "Fitness, Cooking", ViewCount: 100, LikeCount: 10,
	})
	// Second upsert refreshes counters.
	seedContent(t, s, models.Content{
		ID: "reel-a", Type: models.ContentReel, CreatorID: "creator-1",
		CreatedAt: now, Topics: "Fitness, Cooking", ViewCount: 150, LikeCount: 12,
	})

	items, err := s.ContentByIDs(ctx, []string{"reel-a", "missing"})
	if err != nil {
		t.Fatalf("ContentByIDs: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].ViewCount != 150 {
		t.Errorf("ViewCount = %d, want 150 after refresh", items[0].ViewCount)
	}
	if got := items[0].TopicList(); len(got) != 2 || got[0] != "fitness" {
		t.Errorf("TopicList = %v, want [fitness cooking]", got)
	}
}

func TestRecentContentExclusions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedContent(t, s, models.Content{ID: "reel-a", Type: models.ContentReel, CreatorID: "me", CreatedAt: now})
	seedContent(t, s, models.Content{ID: "reel-b", Type: models.ContentReel, CreatorID: "other", CreatedAt: now.Add(-time.Minute)})
	seedContent(t, s, models.Content{ID: "reel-c", Type: models.ContentReel, CreatorID: "other", CreatedAt: now.Add(-2 * time.Minute)})

	items, err := s.RecentContent(ctx, models.ContentReel, []string{"reel-b"}, "me", 10)
	if err != nil {
		t.Fatalf("RecentContent: %v", err)
	}
	if len(items) != 1 || items[0].ID != "reel-c" {
		t.Errorf("items = %v, want only reel-c", items)
	}
}

func TestTopReelsByEngagement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedContent(t, s, models.Content{ID: "reel-mid", Type: models.ContentReel, CreatorID: "c", CreatedAt: now, ViewCount: 50})
	seedContent(t, s, models.Content{ID: "reel-top", Type: models.ContentReel, CreatorID: "c", CreatedAt: now, ViewCount: 900})
	seedContent(t, s, models.Content{ID: "reel-stale", Type: models.ContentReel, CreatorID: "c", CreatedAt: now.Add(-72 * time.Hour), ViewCount: 9999})

	items, err := s.TopReelsByEngagement(ctx, now.Add(-24*time.Hour), 0, 10)
	if err != nil {
		t.Fatalf("TopReelsByEngagement: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d reels, want 2", len(items))
	}
	if items[0].ID != "reel-top" {
		t.Errorf("top reel = %s, want reel-top", items[0].ID)
	}
}

func TestGroupPostCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		seedContent(t, s, models.Content{
			ID: fmt.Sprintf("post-%d", i), Type: models.ContentPost,
			CreatorID: "c", ParentID: "group-busy", CreatedAt: now,
		})
	}
	seedContent(t, s, models.Content{ID: "post-x", Type: models.ContentPost, CreatorID: "c", ParentID: "group-quiet", CreatedAt: now})
	seedContent(t, s, models.Content{ID: "post-solo", Type: models.ContentPost, CreatorID: "c", CreatedAt: now})

	counts, err := s.GroupPostCounts(ctx, now.Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("GroupPostCounts: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("got %d groups, want 2: %v", len(counts), counts)
	}
	if counts[0].ContentID != "group-busy" || counts[0].Count != 3 {
		t.Errorf("busiest = %+v, want group-busy with 3", counts[0])
	}
}

func TestBumpEngagement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedContent(t, s, models.Content{ID: "reel-a", Type: models.ContentReel, CreatorID: "c", CreatedAt: time.Now().UTC()})

	if err := s.BumpEngagement(ctx, "reel-a", models.BehaviorLike); err != nil {
		t.Fatalf("BumpEngagement like: %v", err)
	}
	if err := s.BumpEngagement(ctx, "reel-a", models.BehaviorView); err != nil {
		t.Fatalf("BumpEngagement view: %v", err)
	}
	// Save has no counter; must be a no-op.
	if err := s.BumpEngagement(ctx, "reel-a", models.BehaviorSave); err != nil {
		t.Fatalf("BumpEngagement save: %v", err)
	}

	items, err := s.ContentByIDs(ctx, []string{"reel-a"})
	if err != nil {
		t.Fatalf("ContentByIDs: %v", err)
	}
	if items[0].LikeCount != 1 || items[0].ViewCount != 1 {
		t.Errorf("counters = views %d likes %d, want 1 and 1", items[0].ViewCount, items[0].LikeCount)
	}
}

func TestDeclarationsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := &models.InterestDeclaration{UserID: "user-1", TopicID: "t-fit", TopicName: "Fitness"}
	if err := s.DeclareInterest(ctx, d); err != nil {
		t.Fatalf("DeclareInterest: %v", err)
	}
	if err := s.DeclareInterest(ctx, d); err != nil {
		t.Fatalf("repeat DeclareInterest: %v", err)
	}

	decls, err := s.Declarations(ctx, "user-1")
	if err != nil {
		t.Fatalf("Declarations: %v", err)
	}
	if len(decls) != 1 {
		t.Errorf("got %d declarations, want 1", len(decls))
	}
}
