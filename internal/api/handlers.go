// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/gvarikaa/reelfeed/internal/config"
	"github.com/gvarikaa/reelfeed/internal/feed"
	"github.com/gvarikaa/reelfeed/internal/logging"
	"github.com/gvarikaa/reelfeed/internal/models"
	"github.com/gvarikaa/reelfeed/internal/profile"
	"github.com/gvarikaa/reelfeed/internal/recommend"
)

// userIDHeader identifies the acting user. The platform gateway
// authenticates requests and forwards the resolved user ID here.
const userIDHeader = "X-User-ID"

// maxPageLimit caps the per-request page size.
const maxPageLimit = 50

// FeedService assembles reel pages per mode. Satisfied by
// *feed.Service.
type FeedService interface {
	ForYouPage(ctx context.Context, userID string, excludeIDs map[string]struct{}, limit int) ([]feed.Reel, error)
	FollowingPage(ctx context.Context, userID string, before time.Time, limit int) ([]feed.Reel, error)
	TrendingPage(ctx context.Context, offset, limit int) ([]feed.Reel, error)
}

// Recommender produces ranked recommendation items. Satisfied by
// *recommend.Blender.
type Recommender interface {
	Feed(ctx context.Context, userID string, ct models.ContentType, limit int) []recommend.Item
}

// ProfileProvider serves interest profiles. Satisfied by
// *profile.Builder.
type ProfileProvider interface {
	Get(ctx context.Context, userID string) *profile.InterestProfile
	Invalidate(userID string)
}

// BehaviorRecorder accepts behavior events for asynchronous ingestion.
// Satisfied by *events.BehaviorPublisher.
type BehaviorRecorder interface {
	Record(event *models.BehaviorEvent) error
}

// InterestStore persists explicit interest declarations. Satisfied by
// *database.Store.
type InterestStore interface {
	DeclareInterest(ctx context.Context, d *models.InterestDeclaration) error
	Declarations(ctx context.Context, userID string) ([]models.InterestDeclaration, error)
}

// HealthChecker reports storage reachability. Satisfied by
// *database.Store.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// CacheHealth reports profile-cache availability. Satisfied by
// *profile.Store.
type CacheHealth interface {
	Healthy() bool
}

// BreakerStatus exposes the LLM circuit-breaker state. Satisfied by
// *llm.Client.
type BreakerStatus interface {
	BreakerState() string
}

// Health bundles the component probes the readiness endpoint reports.
// Cache and Model are optional.
type Health struct {
	Store HealthChecker
	Cache CacheHealth
	Model BreakerStatus
}

// Handler holds the endpoint implementations.
type Handler struct {
	feeds     FeedService
	rec       Recommender
	profiles  ProfileProvider
	recorder  BehaviorRecorder
	interests InterestStore
	health    *Health
	cfg       *config.Config
	log       zerolog.Logger
}

// NewHandler creates the endpoint handler set.
func NewHandler(feeds FeedService, rec Recommender, profiles ProfileProvider,
	recorder BehaviorRecorder, interests InterestStore, health *Health,
	cfg *config.Config) *Handler {
	return &Handler{
		feeds:     feeds,
		rec:       rec,
		profiles:  profiles,
		recorder:  recorder,
		interests: interests,
		health:    health,
		cfg:       cfg,
		log:       logging.WithComponent("api"),
	}
}

// userID resolves the acting user from the gateway header, falling
// back to the user_id query parameter.
func userID(r *http.Request) string {
	if id := r.Header.Get(userIDHeader); id != "" {
		return id
	}
	return r.URL.Query().Get("user_id")
}

// pageLimit parses the limit parameter, bounded by maxPageLimit.
func (h *Handler) pageLimit(r *http.Request) int {
	limit := h.cfg.Feed.PageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return limit
}

// FeedReels serves GET /api/v1/feed/reels. The mode parameter selects
// the for-you blend, the following timeline, or the trending list;
// pagination is cursor-based for following and offset-based for
// trending.
func (h *Handler) FeedReels(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()

	mode := feed.Mode(q.Get("mode"))
	if mode == "" {
		mode = feed.ModeForYou
	}
	if !mode.Valid() {
		rw.BadRequest("unknown feed mode: " + string(mode))
		return
	}

	uid := userID(r)
	if uid == "" && mode != feed.ModeTrending {
		rw.BadRequest("user id is required")
		return
	}
	limit := h.pageLimit(r)

	var (
		reels []feed.Reel
		err   error
		meta  = &PaginationMeta{Limit: limit}
	)
	switch mode {
	case feed.ModeFollowing:
		var before time.Time
		if raw := q.Get("before"); raw != "" {
			before, err = time.Parse(time.RFC3339, raw)
			if err != nil {
				rw.BadRequest("before must be RFC3339")
				return
			}
		}
		reels, err = h.feeds.FollowingPage(r.Context(), uid, before, limit)
		if len(reels) > 0 {
			meta.NextCursor = reels[len(reels)-1].CreatedAt.Format(time.RFC3339Nano)
		}
	case feed.ModeTrending:
		offset, _ := strconv.Atoi(q.Get("offset"))
		if offset < 0 {
			offset = 0
		}
		reels, err = h.feeds.TrendingPage(r.Context(), offset, limit)
		meta.Offset = offset + len(reels)
	default:
		exclude := make(map[string]struct{})
		for _, id := range q["exclude"] {
			exclude[id] = struct{}{}
		}
		reels, err = h.feeds.ForYouPage(r.Context(), uid, exclude, limit)
	}
	if err != nil {
		h.log.Error().Err(err).Str("mode", string(mode)).Msg("feed page failed")
		rw.InternalError("failed to load feed page")
		return
	}

	meta.Count = len(reels)
	meta.HasMore = len(reels) == limit
	rw.SuccessWithPagination(reels, meta)
}

// Recommendations serves GET /api/v1/recommendations: the blended
// ranking for any content type, without feed hydration.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	uid := userID(r)
	if uid == "" {
		rw.BadRequest("user id is required")
		return
	}

	ct := models.ContentType(r.URL.Query().Get("content_type"))
	if ct == "" {
		ct = models.ContentPost
	}
	if !ct.Valid() {
		rw.BadRequest("unknown content type: " + string(ct))
		return
	}

	items := h.rec.Feed(r.Context(), uid, ct, h.pageLimit(r))
	if items == nil {
		items = []recommend.Item{}
	}
	rw.SuccessWithPagination(items, &PaginationMeta{Count: len(items)})
}

// RecordBehavior serves POST /api/v1/behavior: events are validated,
// published, and processed asynchronously.
func (h *Handler) RecordBehavior(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var event models.BehaviorEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		rw.BadRequest("invalid behavior event payload")
		return
	}
	if event.UserID == "" {
		event.UserID = userID(r)
	}

	if err := h.recorder.Record(&event); err != nil {
		if vErr := event.Validate(); vErr != nil {
			rw.ValidationFailed(vErr.Error())
			return
		}
		h.log.Error().Err(err).Msg("behavior publish failed")
		rw.InternalError("failed to record behavior event")
		return
	}
	rw.Accepted(map[string]string{"event_id": event.EventID})
}

// Profile serves GET /api/v1/profiles/{userID}. The profile is served
// from cache when fresh and falls back to baseline weights when the
// behavior log is unavailable, so this never fails.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	uid := chi.URLParam(r, "userID")
	rw.Success(h.profiles.Get(r.Context(), uid))
}

// declareInterestRequest is the POST /interests payload.
type declareInterestRequest struct {
	TopicID   string `json:"topic_id"`
	TopicName string `json:"topic_name"`
}

// DeclareInterest serves POST /api/v1/profiles/{userID}/interests.
// Declared topics enter the profile at full weight, so the cached
// profile is invalidated immediately.
func (h *Handler) DeclareInterest(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	uid := chi.URLParam(r, "userID")

	var req declareInterestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid interest payload")
		return
	}
	if req.TopicID == "" || req.TopicName == "" {
		rw.ValidationFailed("topic_id and topic_name are required")
		return
	}

	d := &models.InterestDeclaration{UserID: uid, TopicID: req.TopicID, TopicName: req.TopicName}
	if err := h.interests.DeclareInterest(r.Context(), d); err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("declare interest failed")
		rw.InternalError("failed to store interest declaration")
		return
	}
	h.profiles.Invalidate(uid)
	rw.Created(d)
}

// Interests serves GET /api/v1/profiles/{userID}/interests.
func (h *Handler) Interests(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	uid := chi.URLParam(r, "userID")

	decls, err := h.interests.Declarations(r.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("load declarations failed")
		rw.InternalError("failed to load interest declarations")
		return
	}
	if decls == nil {
		decls = []models.InterestDeclaration{}
	}
	rw.SuccessWithPagination(decls, &PaginationMeta{Count: len(decls)})
}

// HealthLive serves GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady serves GET /api/v1/health/ready. Readiness requires the
// behavior store and the profile cache; the LLM breaker state is
// reported but not gating, since the blender degrades without it.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	components := map[string]string{"database": "ok"}
	ready := true

	if err := h.health.Store.Ping(r.Context()); err != nil {
		components["database"] = err.Error()
		ready = false
	}
	if h.health.Cache != nil {
		components["profile_cache"] = "ok"
		if !h.health.Cache.Healthy() {
			components["profile_cache"] = "closed"
			ready = false
		}
	}
	if h.health.Model != nil {
		components["llm_breaker"] = h.health.Model.BreakerState()
	}

	if !ready {
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    map[string]any{"status": "unavailable", "components": components},
			Error:   &APIError{Code: ErrCodeUnavailable, Message: "dependency unavailable"},
		})
		return
	}
	rw.Success(map[string]any{"status": "ready", "components": components})
}
