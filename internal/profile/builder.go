// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/gvarikaa/reelfeed/internal/logging"
	"github.com/gvarikaa/reelfeed/internal/metrics"
	"github.com/gvarikaa/reelfeed/internal/models"
)

const (
	// profileEventWindow is how many recent events feed a profile build.
	profileEventWindow = 500

	// maxCreators bounds the creators list.
	maxCreators = 50
)

// DataSource is the behavior-log access the builder needs.
type DataSource interface {
	RecentEvents(ctx context.Context, userID string, limit int) ([]models.BehaviorEvent, error)
	Declarations(ctx context.Context, userID string) ([]models.InterestDeclaration, error)
	ContentByIDs(ctx context.Context, ids []string) ([]models.Content, error)
}

// Builder computes interest profiles on demand, backed by the cache
// store. Get never returns an error: on any failure it falls back to
// the default profile so feed assembly is never blocked on profile
// computation.
type Builder struct {
	data  DataSource
	cache *Store
	ttl   time.Duration
	log   zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewBuilder creates a profile builder with the given staleness window.
func NewBuilder(data DataSource, cache *Store, ttl time.Duration) *Builder {
	return &Builder{
		data:  data,
		cache: cache,
		ttl:   ttl,
		log:   logging.WithComponent("profile"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the user's interest profile, serving the cached copy when
// it is within the staleness window and recomputing otherwise.
func (b *Builder) Get(ctx context.Context, userID string) *InterestProfile {
	now := b.now()

	cached, err := b.cache.Get(userID)
	if err == nil && cached.Fresh(now, b.ttl) {
		metrics.ProfileBuilds.WithLabelValues("cached").Inc()
		return cached
	}
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		b.log.Warn().Err(err).Str("user_id", userID).Msg("profile cache read failed")
	}

	p, err := b.build(ctx, userID, now)
	if err != nil {
		b.log.Warn().Err(err).Str("user_id", userID).Msg("profile build failed, serving default")
		metrics.ProfileBuilds.WithLabelValues("fallback").Inc()
		return DefaultProfile(userID)
	}
	metrics.ProfileBuilds.WithLabelValues("built").Inc()

	// Persist failures must not fail the computation.
	if err := b.cache.Set(p); err != nil {
		b.log.Warn().Err(err).Str("user_id", userID).Msg("profile cache write failed")
	}

	return p
}

// Invalidate drops the cached profile so the next Get recomputes it.
// Called when a strong engagement signal (like, save, follow, share)
// lands for the user.
func (b *Builder) Invalidate(userID string) {
	if err := b.cache.Delete(userID); err != nil {
		b.log.Warn().Err(err).Str("user_id", userID).Msg("profile invalidation failed")
	}
}

// build computes a fresh profile from the behavior log.
func (b *Builder) build(ctx context.Context, userID string, now time.Time) (*InterestProfile, error) {
	events, err := b.data.RecentEvents(ctx, userID, profileEventWindow)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	decls, err := b.data.Declarations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load declarations: %w", err)
	}

	p := &InterestProfile{
		UserID:    userID,
		UpdatedAt: now,
	}

	if len(events) == 0 {
		fallback := DefaultProfile(userID)
		p.ContentTypes = fallback.ContentTypes
		p.EngagementPatterns = fallback.EngagementPatterns
		p.TimePatterns = map[string]float64{}
		p.Creators = []CreatorInterest{}
		p.Topics = declaredTopics(decls)
		return p, nil
	}

	p.ContentTypes, p.EngagementPatterns, p.TimePatterns = distributions(events)

	contentByID, err := b.resolveContent(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("resolve content: %w", err)
	}

	p.Creators = creatorAffinities(events, contentByID)
	p.Topics = topicInterests(decls, events, contentByID)

	return p, nil
}

// distributions computes the content-type, engagement-type, and
// hour-of-day frequency maps. Each map's values sum to 1.0.
func distributions(events []models.BehaviorEvent) (contentTypes, engagement, timeOfDay map[string]float64) {
	contentTypes = make(map[string]float64)
	engagement = make(map[string]float64)
	timeOfDay = make(map[string]float64)

	total := float64(len(events))
	for _, e := range events {
		contentTypes[string(e.ContentType)] += 1 / total
		engagement[string(e.Type)] += 1 / total
		timeOfDay[fmt.Sprintf("%02d", e.Timestamp.Hour())] += 1 / total
	}
	return contentTypes, engagement, timeOfDay
}

// resolveContent batch-loads the content rows referenced by events that
// contribute to creator or topic affinities.
func (b *Builder) resolveContent(ctx context.Context, events []models.BehaviorEvent) (map[string]models.Content, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range events {
		if e.ContentType == models.ContentUser {
			continue // Direct user reference, nothing to resolve.
		}
		if !affinityEvent(e.Type) {
			continue
		}
		if _, ok := seen[e.ContentID]; ok {
			continue
		}
		seen[e.ContentID] = struct{}{}
		ids = append(ids, e.ContentID)
	}
	if len(ids) == 0 {
		return map[string]models.Content{}, nil
	}

	rows, err := b.data.ContentByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Content, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	return byID, nil
}

// affinityEvent reports whether a behavior type contributes to creator
// or topic affinities.
func affinityEvent(t models.BehaviorType) bool {
	switch t {
	case models.BehaviorLike, models.BehaviorSave, models.BehaviorFollow, models.BehaviorComment:
		return true
	default:
		return false
	}
}

// creatorAffinities tallies creators across like/save/follow events and
// returns the top creators by normalized weight.
func creatorAffinities(events []models.BehaviorEvent, contentByID map[string]models.Content) []CreatorInterest {
	tally := make(map[string]int)
	total := 0
	for _, e := range events {
		switch e.Type {
		case models.BehaviorLike, models.BehaviorSave, models.BehaviorFollow:
		default:
			continue
		}

		creatorID := ""
		if e.ContentType == models.ContentUser {
			creatorID = e.ContentID
		} else if c, ok := contentByID[e.ContentID]; ok {
			creatorID = c.CreatorID
		}
		if creatorID == "" {
			continue
		}
		tally[creatorID]++
		total++
	}
	if total == 0 {
		return []CreatorInterest{}
	}

	creators := make([]CreatorInterest, 0, len(tally))
	for id, count := range tally {
		creators = append(creators, CreatorInterest{
			ID:     id,
			Weight: float64(count) / float64(total),
		})
	}
	sort.Slice(creators, func(i, j int) bool {
		if creators[i].Weight != creators[j].Weight {
			return creators[i].Weight > creators[j].Weight
		}
		return creators[i].ID < creators[j].ID
	})
	if len(creators) > maxCreators {
		creators = creators[:maxCreators]
	}
	return creators
}

// topicInterests merges explicit declarations (weight 1.0) with topics
// derived from engaged content, weighted by engagement frequency
// relative to the most-engaged topic.
func topicInterests(decls []models.InterestDeclaration, events []models.BehaviorEvent, contentByID map[string]models.Content) []TopicInterest {
	counts := make(map[string]int)
	lastSeen := make(map[string]time.Time)
	for _, e := range events {
		if !affinityEvent(e.Type) {
			continue
		}
		c, ok := contentByID[e.ContentID]
		if !ok {
			continue
		}
		for _, topic := range c.TopicList() {
			counts[topic]++
			if e.Timestamp.After(lastSeen[topic]) {
				lastSeen[topic] = e.Timestamp
			}
		}
	}

	maxCount := 0
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}

	declared := make(map[string]struct{}, len(decls))
	topics := declaredTopics(decls)
	for _, t := range topics {
		declared[t.Name] = struct{}{}
	}

	for topic, n := range counts {
		if _, ok := declared[topic]; ok {
			continue // Declared topics stay at full weight.
		}
		topics = append(topics, TopicInterest{
			ID:             topic,
			Name:           topic,
			Weight:         float64(n) / float64(maxCount),
			LastEngagement: lastSeen[topic],
		})
	}

	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Weight != topics[j].Weight {
			return topics[i].Weight > topics[j].Weight
		}
		return topics[i].Name < topics[j].Name
	})
	return topics
}

// declaredTopics converts explicit declarations to full-weight topics.
func declaredTopics(decls []models.InterestDeclaration) []TopicInterest {
	topics := make([]TopicInterest, 0, len(decls))
	for _, d := range decls {
		topics = append(topics, TopicInterest{
			ID:     d.TopicID,
			Name:   d.TopicName,
			Weight: 1.0,
		})
	}
	return topics
}
