// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/gvarikaa/reelfeed/internal/llm"
	"github.com/gvarikaa/reelfeed/internal/models"
	"github.com/gvarikaa/reelfeed/internal/profile"
)

const (
	// aiEventWindow is how many recent events are summarized in the
	// prompt.
	aiEventWindow = 50

	// aiCandidateWindow is how many fresh candidates the model ranks.
	aiCandidateWindow = 50
)

// Completer is the generative-model call the scorer depends on.
// Satisfied by *llm.Client.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// ProfileSource supplies interest profiles. Satisfied by
// *profile.Builder.
type ProfileSource interface {
	Get(ctx context.Context, userID string) *profile.InterestProfile
}

// aiReasons are the reason strings the model is instructed to use,
// mapped to canonical reasons. Unknown strings fall back to
// similar_content.
var aiReasons = map[string]Reason{
	"based_on_interests": ReasonBasedOnInterests,
	"similar_content":    ReasonSimilarContent,
	"trending_now":       ReasonTrendingNow,
	"friends_engaged":    ReasonFriendsEngaged,
	"new_content":        ReasonNewContent,
	"followed_creator":   ReasonFollowedCreator,
}

// AIScorer asks a generative model to rank fresh candidates against a
// compact profile summary. Unlike the other scorers it DOES return
// errors: a malformed model response is surfaced to the blender, which
// treats this source as empty for the request. The scorer never
// retries.
type AIScorer struct {
	store    Store
	profiles ProfileSource
	model    Completer
	now      func() time.Time
}

// NewAIScorer creates the AI-personalized scorer.
func NewAIScorer(store Store, profiles ProfileSource, model Completer) *AIScorer {
	return &AIScorer{
		store:    store,
		profiles: profiles,
		model:    model,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Source implements Scorer.
func (s *AIScorer) Source() Source { return SourceAIPersonalized }

// promptProfile is the compact JSON profile embedded in the prompt.
type promptProfile struct {
	Topics             []string           `json:"topics"`
	DeclaredTopics     []string           `json:"declared_topics"`
	ContentTypes       map[string]float64 `json:"content_types"`
	EngagementPatterns map[string]float64 `json:"engagement_patterns"`
	RecentActivity     []promptEvent      `json:"recent_activity"`
}

type promptEvent struct {
	Type        string `json:"type"`
	ContentType string `json:"content_type"`
	Timestamp   string `json:"timestamp"`
}

// promptCandidate is one rankable item in the prompt.
type promptCandidate struct {
	ID        string `json:"id"`
	Creator   string `json:"creator"`
	CreatedAt string `json:"created_at"`
	Topics    string `json:"topics,omitempty"`
	Caption   string `json:"caption,omitempty"`
	Sentiment string `json:"sentiment,omitempty"`
}

// aiRecommendation is one entry of the model's JSON-array response.
type aiRecommendation struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
	Explanation string  `json:"explanation"`
}

// Score implements Scorer.
func (s *AIScorer) Score(ctx context.Context, userID string, ct models.ContentType, limit int) ([]Item, error) {
	prof := s.profiles.Get(ctx, userID)

	events, err := s.store.RecentEvents(ctx, userID, aiEventWindow)
	if err != nil {
		return nil, fmt.Errorf("load recent events: %w", err)
	}
	decls, err := s.store.Declarations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load declarations: %w", err)
	}
	candidates, err := s.store.RecentContent(ctx, ct, nil, userID, aiCandidateWindow)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	prompt, err := buildPrompt(prof, decls, events, candidates, limit)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	text, err := s.model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	raw, err := llm.ExtractJSONArray(text)
	if err != nil {
		return nil, fmt.Errorf("model response: %w", err)
	}
	var recs []aiRecommendation
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}

	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		known[c.ID] = struct{}{}
	}

	now := s.now()
	items := make([]Item, 0, len(recs))
	for _, r := range recs {
		// Drop hallucinated IDs the model was never shown.
		if _, ok := known[r.ID]; !ok {
			continue
		}
		reason, ok := aiReasons[strings.ToLower(strings.TrimSpace(r.Reason))]
		if !ok {
			reason = ReasonSimilarContent
		}
		items = append(items, Item{
			ID:          r.ID,
			ContentType: ct,
			Score:       clamp01(r.Score),
			Reason:      reason,
			Source:      SourceAIPersonalized,
			Timestamp:   now,
			Metadata:    AIMetadata{Explanation: r.Explanation, Model: s.model.Model()},
		})
	}
	return sortAndTruncate(items, limit), nil
}

// buildPrompt assembles the single ranking prompt.
func buildPrompt(prof *profile.InterestProfile, decls []models.InterestDeclaration, events []models.BehaviorEvent, candidates []models.Content, limit int) (string, error) {
	pp := promptProfile{
		Topics:             prof.TopicNames(),
		DeclaredTopics:     make([]string, 0, len(decls)),
		ContentTypes:       prof.ContentTypes,
		EngagementPatterns: prof.EngagementPatterns,
		RecentActivity:     make([]promptEvent, 0, len(events)),
	}
	for _, d := range decls {
		pp.DeclaredTopics = append(pp.DeclaredTopics, d.TopicName)
	}
	for _, e := range events {
		pp.RecentActivity = append(pp.RecentActivity, promptEvent{
			Type:        string(e.Type),
			ContentType: string(e.ContentType),
			Timestamp:   e.Timestamp.Format(time.RFC3339),
		})
	}

	pc := make([]promptCandidate, 0, len(candidates))
	for _, c := range candidates {
		pc = append(pc, promptCandidate{
			ID:        c.ID,
			Creator:   c.CreatorName,
			CreatedAt: c.CreatedAt.Format(time.RFC3339),
			Topics:    c.Topics,
			Caption:   c.Caption,
			Sentiment: c.Sentiment,
		})
	}

	profileJSON, err := json.Marshal(pp)
	if err != nil {
		return "", err
	}
	candidateJSON, err := json.Marshal(pc)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a recommendation engine for a short-video social feed.\n\n")
	b.WriteString("User profile:\n")
	b.Write(profileJSON)
	b.WriteString("\n\nCandidate content:\n")
	b.Write(candidateJSON)
	fmt.Fprintf(&b, "\n\nSelect the %d best candidates for this user. ", limit)
	b.WriteString("Respond with ONLY a JSON array, no other text, where each element is ")
	b.WriteString(`{"id": string, "score": number between 0 and 1, "reason": one of `)
	b.WriteString(`"based_on_interests", "similar_content", "trending_now", "friends_engaged", "new_content", "followed_creator"`)
	b.WriteString(`, "explanation": short string}.`)
	return b.String(), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
