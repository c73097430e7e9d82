// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

// Package profile derives and caches per-user interest profiles from
// the behavior log and explicit topic declarations.
package profile

import (
	"time"

	"github.com/gvarikaa/reelfeed/internal/models"
)

// TopicInterest is a weighted topic in a user's profile.
type TopicInterest struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`

	// LastEngagement is when the user last engaged with content
	// carrying this topic. Zero for declared-only topics.
	LastEngagement time.Time `json:"last_engagement,omitempty"`
}

// CreatorInterest is a weighted creator affinity.
type CreatorInterest struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// InterestProfile is the derived per-user interest summary consumed by
// the scorers. All distribution maps sum to 1.0 when history exists.
type InterestProfile struct {
	UserID string `json:"user_id"`

	// Topics combines explicit declarations (weight 1.0) with topics
	// derived from engaged content.
	Topics []TopicInterest `json:"topics"`

	// Creators is the top 50 creators by engagement weight.
	Creators []CreatorInterest `json:"creators"`

	// ContentTypes is the share of interactions per content type.
	ContentTypes map[string]float64 `json:"content_types"`

	// EngagementPatterns is the share of interactions per behavior type.
	EngagementPatterns map[string]float64 `json:"engagement_patterns"`

	// TimePatterns is the share of interactions per zero-padded
	// hour-of-day ("00".."23").
	TimePatterns map[string]float64 `json:"time_patterns"`

	UpdatedAt time.Time `json:"updated_at"`
}

// TopicNames returns the profile's topic names in weight order.
func (p *InterestProfile) TopicNames() []string {
	names := make([]string, 0, len(p.Topics))
	for _, t := range p.Topics {
		names = append(names, t.Name)
	}
	return names
}

// Fresh reports whether the profile is within the staleness window.
func (p *InterestProfile) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.UpdatedAt) < ttl
}

// DefaultProfile returns the fixed fallback profile served when a user
// has no history or computation fails. The distributions favor posts
// and passive viewing, matching how new accounts actually behave.
func DefaultProfile(userID string) *InterestProfile {
	return &InterestProfile{
		UserID:   userID,
		Topics:   []TopicInterest{},
		Creators: []CreatorInterest{},
		ContentTypes: map[string]float64{
			string(models.ContentPost):  0.5,
			string(models.ContentReel):  0.3,
			string(models.ContentGroup): 0.1,
			string(models.ContentEvent): 0.1,
		},
		EngagementPatterns: map[string]float64{
			string(models.BehaviorView):    0.6,
			string(models.BehaviorLike):    0.2,
			string(models.BehaviorComment): 0.1,
			string(models.BehaviorShare):   0.1,
		},
		TimePatterns: map[string]float64{},
		UpdatedAt:    time.Now().UTC(),
	}
}
