// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package profile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/gvarikaa/reelfeed/internal/config"
	"github.com/gvarikaa/reelfeed/internal/models"
)

// stubSource is a canned DataSource that counts calls.
type stubSource struct {
	events  []models.BehaviorEvent
	decls   []models.InterestDeclaration
	content []models.Content

	err        error
	eventCalls int
}

func (s *stubSource) RecentEvents(_ context.Context, _ string, limit int) ([]models.BehaviorEvent, error) {
	s.eventCalls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.events) > limit {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *stubSource) Declarations(context.Context, string) ([]models.InterestDeclaration, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.decls, nil
}

func (s *stubSource) ContentByIDs(_ context.Context, ids []string) ([]models.Content, error) {
	if s.err != nil {
		return nil, s.err
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []models.Content
	for _, c := range s.content {
		if _, ok := want[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func newTestBuilder(t *testing.T, src DataSource) *Builder {
	t.Helper()
	store, err := OpenStore(&config.ProfileCacheConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open profile store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewBuilder(src, store, 24*time.Hour)
}

func TestGetWithNoHistoryReturnsFallbackDistributions(t *testing.T) {
	src := &stubSource{
		decls: []models.InterestDeclaration{
			{UserID: "user-1", TopicID: "t-fit", TopicName: "fitness"},
		},
	}
	b := newTestBuilder(t, src)

	p := b.Get(context.Background(), "user-1")

	fallback := DefaultProfile("user-1")
	for ct, want := range fallback.ContentTypes {
		if p.ContentTypes[ct] != want {
			t.Errorf("ContentTypes[%s] = %v, want %v", ct, p.ContentTypes[ct], want)
		}
	}
	for bt, want := range fallback.EngagementPatterns {
		if p.EngagementPatterns[bt] != want {
			t.Errorf("EngagementPatterns[%s] = %v, want %v", bt, p.EngagementPatterns[bt], want)
		}
	}
	if len(p.Topics) != 1 || p.Topics[0].Weight != 1.0 {
		t.Errorf("Topics = %+v, want single declared topic at weight 1.0", p.Topics)
	}
	if len(p.Creators) != 0 {
		t.Errorf("Creators = %v, want empty", p.Creators)
	}
}

func TestDistributionsSumToOne(t *testing.T) {
	now := time.Now().UTC()
	src := &stubSource{
		events: []models.BehaviorEvent{
			{UserID: "u", Type: models.BehaviorView, ContentID: "a", ContentType: models.ContentReel, Timestamp: now},
			{UserID: "u", Type: models.BehaviorView, ContentID: "b", ContentType: models.ContentPost, Timestamp: now.Add(-time.Hour)},
			{UserID: "u", Type: models.BehaviorLike, ContentID: "c", ContentType: models.ContentReel, Timestamp: now.Add(-2 * time.Hour)},
			{UserID: "u", Type: models.BehaviorShare, ContentID: "d", ContentType: models.ContentGroup, Timestamp: now.Add(-26 * time.Hour)},
			{UserID: "u", Type: models.BehaviorComment, ContentID: "e", ContentType: models.ContentPost, Timestamp: now.Add(-30 * time.Hour)},
		},
	}
	b := newTestBuilder(t, src)

	p := b.Get(context.Background(), "u")

	const eps = 1e-9
	for name, m := range map[string]map[string]float64{
		"content_types":       p.ContentTypes,
		"engagement_patterns": p.EngagementPatterns,
		"time_patterns":       p.TimePatterns,
	} {
		sum := 0.0
		for _, v := range m {
			sum += v
		}
		if math.Abs(sum-1.0) > eps {
			t.Errorf("%s sums to %v, want 1.0", name, sum)
		}
	}

	for hour := range p.TimePatterns {
		if len(hour) != 2 {
			t.Errorf("time pattern key %q is not zero-padded", hour)
		}
	}
}

func TestCreatorAffinities(t *testing.T) {
	now := time.Now().UTC()
	src := &stubSource{
		events: []models.BehaviorEvent{
			{UserID: "u", Type: models.BehaviorLike, ContentID: "reel-1", ContentType: models.ContentReel, Timestamp: now},
			{UserID: "u", Type: models.BehaviorSave, ContentID: "reel-2", ContentType: models.ContentReel, Timestamp: now},
			{UserID: "u", Type: models.BehaviorFollow, ContentID: "creator-b", ContentType: models.ContentUser, Timestamp: now},
			{UserID: "u", Type: models.BehaviorView, ContentID: "reel-3", ContentType: models.ContentReel, Timestamp: now},
		},
		content: []models.Content{
			{ID: "reel-1", Type: models.ContentReel, CreatorID: "creator-a"},
			{ID: "reel-2", Type: models.ContentReel, CreatorID: "creator-a"},
			{ID: "reel-3", Type: models.ContentReel, CreatorID: "creator-c"},
		},
	}
	b := newTestBuilder(t, src)

	p := b.Get(context.Background(), "u")

	if len(p.Creators) != 2 {
		t.Fatalf("got %d creators, want 2 (views must not count): %+v", len(p.Creators), p.Creators)
	}
	if p.Creators[0].ID != "creator-a" {
		t.Errorf("top creator = %s, want creator-a", p.Creators[0].ID)
	}
	if math.Abs(p.Creators[0].Weight-2.0/3.0) > 1e-9 {
		t.Errorf("top creator weight = %v, want 2/3", p.Creators[0].Weight)
	}
}

func TestCreatorsCappedAtFifty(t *testing.T) {
	now := time.Now().UTC()
	src := &stubSource{}
	for i := 0; i < 60; i++ {
		src.events = append(src.events, models.BehaviorEvent{
			UserID: "u", Type: models.BehaviorFollow,
			ContentID:   fmt.Sprintf("creator-%02d", i),
			ContentType: models.ContentUser, Timestamp: now,
		})
	}
	b := newTestBuilder(t, src)

	p := b.Get(context.Background(), "u")
	if len(p.Creators) != 50 {
		t.Errorf("got %d creators, want cap of 50", len(p.Creators))
	}
}

func TestDerivedTopicsWeightedByEngagement(t *testing.T) {
	now := time.Now().UTC()
	src := &stubSource{
		events: []models.BehaviorEvent{
			{UserID: "u", Type: models.BehaviorLike, ContentID: "r1", ContentType: models.ContentReel, Timestamp: now},
			{UserID: "u", Type: models.BehaviorLike, ContentID: "r2", ContentType: models.ContentReel, Timestamp: now},
			{UserID: "u", Type: models.BehaviorSave, ContentID: "r3", ContentType: models.ContentReel, Timestamp: now},
		},
		content: []models.Content{
			{ID: "r1", Type: models.ContentReel, CreatorID: "c", Topics: "fitness, running"},
			{ID: "r2", Type: models.ContentReel, CreatorID: "c", Topics: "fitness"},
			{ID: "r3", Type: models.ContentReel, CreatorID: "c", Topics: "fitness"},
		},
	}
	b := newTestBuilder(t, src)

	p := b.Get(context.Background(), "u")

	byName := make(map[string]TopicInterest)
	for _, topic := range p.Topics {
		byName[topic.Name] = topic
	}
	if byName["fitness"].Weight != 1.0 {
		t.Errorf("fitness weight = %v, want 1.0 (most engaged)", byName["fitness"].Weight)
	}
	if math.Abs(byName["running"].Weight-1.0/3.0) > 1e-9 {
		t.Errorf("running weight = %v, want 1/3", byName["running"].Weight)
	}
	if byName["fitness"].LastEngagement.IsZero() {
		t.Error("derived topic missing last engagement time")
	}
}

func TestGetServesCachedProfileWithinTTL(t *testing.T) {
	src := &stubSource{
		events: []models.BehaviorEvent{
			{UserID: "u", Type: models.BehaviorView, ContentID: "a", ContentType: models.ContentReel, Timestamp: time.Now().UTC()},
		},
	}
	b := newTestBuilder(t, src)
	ctx := context.Background()

	b.Get(ctx, "u")
	b.Get(ctx, "u")

	if src.eventCalls != 1 {
		t.Errorf("event loads = %d, want 1 (second call must hit the cache)", src.eventCalls)
	}
}

func TestGetRecomputesStaleProfile(t *testing.T) {
	src := &stubSource{
		events: []models.BehaviorEvent{
			{UserID: "u", Type: models.BehaviorView, ContentID: "a", ContentType: models.ContentReel, Timestamp: time.Now().UTC()},
		},
	}
	b := newTestBuilder(t, src)
	ctx := context.Background()

	b.Get(ctx, "u")

	// Move the clock past the staleness window.
	b.now = func() time.Time { return time.Now().UTC().Add(25 * time.Hour) }
	b.Get(ctx, "u")

	if src.eventCalls != 2 {
		t.Errorf("event loads = %d, want 2 (stale profile must recompute)", src.eventCalls)
	}
}

func TestInvalidateForcesRecompute(t *testing.T) {
	src := &stubSource{
		events: []models.BehaviorEvent{
			{UserID: "u", Type: models.BehaviorLike, ContentID: "a", ContentType: models.ContentReel, Timestamp: time.Now().UTC()},
		},
	}
	b := newTestBuilder(t, src)
	ctx := context.Background()

	b.Get(ctx, "u")
	b.Invalidate("u")
	b.Get(ctx, "u")

	if src.eventCalls != 2 {
		t.Errorf("event loads = %d, want 2 after invalidation", src.eventCalls)
	}
}

func TestGetNeverFailsOnSourceError(t *testing.T) {
	src := &stubSource{err: errors.New("database unreachable")}
	b := newTestBuilder(t, src)

	p := b.Get(context.Background(), "user-1")
	if p == nil {
		t.Fatal("Get returned nil on source error, want default profile")
	}
	if p.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", p.UserID)
	}
	if p.ContentTypes[string(models.ContentPost)] != 0.5 {
		t.Errorf("fallback post share = %v, want 0.5", p.ContentTypes[string(models.ContentPost)])
	}
}
