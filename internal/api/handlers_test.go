// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/gvarikaa/reelfeed/internal/config"
	"github.com/gvarikaa/reelfeed/internal/feed"
	"github.com/gvarikaa/reelfeed/internal/models"
	"github.com/gvarikaa/reelfeed/internal/profile"
	"github.com/gvarikaa/reelfeed/internal/recommend"
)

type stubFeeds struct {
	reels     []feed.Reel
	err       error
	lastLimit int
	lastUser  string
	lastMode  feed.Mode
}

func (s *stubFeeds) ForYouPage(_ context.Context, userID string, _ map[string]struct{}, limit int) ([]feed.Reel, error) {
	s.lastMode, s.lastUser, s.lastLimit = feed.ModeForYou, userID, limit
	return s.reels, s.err
}

func (s *stubFeeds) FollowingPage(_ context.Context, userID string, _ time.Time, limit int) ([]feed.Reel, error) {
	s.lastMode, s.lastUser, s.lastLimit = feed.ModeFollowing, userID, limit
	return s.reels, s.err
}

func (s *stubFeeds) TrendingPage(_ context.Context, _, limit int) ([]feed.Reel, error) {
	s.lastMode, s.lastLimit = feed.ModeTrending, limit
	return s.reels, s.err
}

type stubRecommender struct {
	items  []recommend.Item
	lastCT models.ContentType
}

func (s *stubRecommender) Feed(_ context.Context, _ string, ct models.ContentType, _ int) []recommend.Item {
	s.lastCT = ct
	return s.items
}

type stubProfiles struct {
	invalidated []string
}

func (s *stubProfiles) Get(_ context.Context, userID string) *profile.InterestProfile {
	return profile.DefaultProfile(userID)
}

func (s *stubProfiles) Invalidate(userID string) {
	s.invalidated = append(s.invalidated, userID)
}

type stubRecorder struct {
	events []models.BehaviorEvent
	err    error
}

func (s *stubRecorder) Record(event *models.BehaviorEvent) error {
	if s.err != nil {
		return s.err
	}
	if err := event.Validate(); err != nil {
		return err
	}
	event.EventID = "evt-stamped"
	s.events = append(s.events, *event)
	return nil
}

type stubInterests struct {
	declared []models.InterestDeclaration
	err      error
}

func (s *stubInterests) DeclareInterest(_ context.Context, d *models.InterestDeclaration) error {
	if s.err != nil {
		return s.err
	}
	s.declared = append(s.declared, *d)
	return nil
}

func (s *stubInterests) Declarations(_ context.Context, userID string) ([]models.InterestDeclaration, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.InterestDeclaration, 0, len(s.declared))
	for _, d := range s.declared {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

type stubHealth struct {
	err    error
	closed bool
	state  string
}

func (s *stubHealth) Ping(context.Context) error { return s.err }

func (s *stubHealth) Healthy() bool { return !s.closed }

func (s *stubHealth) BreakerState() string { return s.state }

type deps struct {
	feeds     *stubFeeds
	rec       *stubRecommender
	profiles  *stubProfiles
	recorder  *stubRecorder
	interests *stubInterests
	health    *stubHealth
}

func newTestRouter(t *testing.T) (http.Handler, *deps) {
	t.Helper()
	d := &deps{
		feeds:     &stubFeeds{},
		rec:       &stubRecommender{},
		profiles:  &stubProfiles{},
		recorder:  &stubRecorder{},
		interests: &stubInterests{},
		health:    &stubHealth{state: "closed"},
	}
	cfg := &config.Config{
		Server: config.ServerConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   0,
			RateLimitWindow: time.Minute,
		},
		Feed: config.FeedConfig{PageSize: 10},
	}
	health := &Health{Store: d.health, Cache: d.health, Model: d.health}
	h := NewHandler(d.feeds, d.rec, d.profiles, d.recorder, d.interests, health, cfg)
	return NewRouter(h, &cfg.Server), d
}

func doRequest(t *testing.T, router http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func testReels(n int) []feed.Reel {
	now := time.Now().UTC()
	reels := make([]feed.Reel, 0, n)
	for i := 0; i < n; i++ {
		reels = append(reels, feed.Reel{
			Content: models.Content{
				ID:        "reel-" + string(rune('a'+i)),
				Type:      models.ContentReel,
				CreatorID: "creator",
				CreatedAt: now.Add(-time.Duration(i) * time.Hour),
			},
			Source: recommend.SourceTrending,
			Reason: recommend.ReasonTrendingNow,
		})
	}
	return reels
}

func TestFeedReelsForYou(t *testing.T) {
	router, d := newTestRouter(t)
	d.feeds.reels = testReels(3)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/feed/reels", "",
		map[string]string{userIDHeader: "user-1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Error("success = false, want true")
	}
	if d.feeds.lastMode != feed.ModeForYou {
		t.Errorf("mode = %s, want foryou default", d.feeds.lastMode)
	}
	if d.feeds.lastUser != "user-1" {
		t.Errorf("user = %s, want the header user", d.feeds.lastUser)
	}
	if d.feeds.lastLimit != 10 {
		t.Errorf("limit = %d, want the configured page size", d.feeds.lastLimit)
	}
	if resp.Meta == nil || resp.Meta.Pagination == nil || resp.Meta.Pagination.Count != 3 {
		t.Errorf("pagination = %+v, want count 3", resp.Meta)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("response must carry a request ID header")
	}
}

func TestFeedReelsLimitCapped(t *testing.T) {
	router, d := newTestRouter(t)

	doRequest(t, router, http.MethodGet, "/api/v1/feed/reels?limit=999", "",
		map[string]string{userIDHeader: "user-1"})

	if d.feeds.lastLimit != maxPageLimit {
		t.Errorf("limit = %d, want capped at %d", d.feeds.lastLimit, maxPageLimit)
	}
}

func TestFeedReelsUnknownMode(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/feed/reels?mode=shuffle", "",
		map[string]string{userIDHeader: "user-1"})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Error == nil || resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("error = %+v, want BAD_REQUEST", resp.Error)
	}
}

func TestFeedReelsRequiresUserExceptTrending(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/feed/reels", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("anonymous for-you status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/feed/reels?mode=trending", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("anonymous trending status = %d, want 200", rec.Code)
	}
}

func TestFeedReelsFollowingCursor(t *testing.T) {
	router, d := newTestRouter(t)
	d.feeds.reels = testReels(2)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/feed/reels?mode=following", "",
		map[string]string{userIDHeader: "user-1"})

	resp := decodeEnvelope(t, rec)
	if resp.Meta == nil || resp.Meta.Pagination == nil {
		t.Fatal("missing pagination meta")
	}
	want := d.feeds.reels[1].CreatedAt.Format(time.RFC3339Nano)
	if resp.Meta.Pagination.NextCursor != want {
		t.Errorf("next cursor = %s, want last reel creation time %s", resp.Meta.Pagination.NextCursor, want)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/feed/reels?mode=following&before=yesterday", "",
		map[string]string{userIDHeader: "user-1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed cursor status = %d, want 400", rec.Code)
	}
}

func TestFeedReelsUpstreamError(t *testing.T) {
	router, d := newTestRouter(t)
	d.feeds.err = errors.New("store down")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/feed/reels", "",
		map[string]string{userIDHeader: "user-1"})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRecommendationsDefaultsToPosts(t *testing.T) {
	router, d := newTestRouter(t)
	d.rec.items = []recommend.Item{{ID: "post-1", Score: 0.9, Source: recommend.SourceCollaborative}}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/recommendations?user_id=user-1", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if d.rec.lastCT != models.ContentPost {
		t.Errorf("content type = %s, want post default", d.rec.lastCT)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/recommendations?user_id=user-1&content_type=hologram", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown content type status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/recommendations", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("anonymous status = %d, want 400", rec.Code)
	}
}

func TestRecordBehaviorAccepted(t *testing.T) {
	router, d := newTestRouter(t)

	body := `{"type":"like","content_id":"reel-a","content_type":"reel"}`
	rec := doRequest(t, router, http.MethodPost, "/api/v1/behavior", body,
		map[string]string{userIDHeader: "user-1"})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}
	if len(d.recorder.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(d.recorder.events))
	}
	got := d.recorder.events[0]
	if got.UserID != "user-1" {
		t.Errorf("user = %s, want filled from the gateway header", got.UserID)
	}
	if got.Type != models.BehaviorLike || got.ContentID != "reel-a" {
		t.Errorf("event = %+v", got)
	}
}

func TestRecordBehaviorRejectsBadInput(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/behavior", "{not json",
		map[string]string{userIDHeader: "user-1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/v1/behavior",
		`{"type":"teleport","content_id":"reel-a","content_type":"reel"}`,
		map[string]string{userIDHeader: "user-1"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid event status = %d, want 422", rec.Code)
	}
}

func TestProfileEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/profiles/user-7/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	var p profile.InterestProfile
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.UserID != "user-7" {
		t.Errorf("profile user = %s, want the path user", p.UserID)
	}
}

func TestDeclareInterest(t *testing.T) {
	router, d := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/profiles/user-1/interests",
		`{"topic_id":"t-1","topic_name":"Fitness"}`, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if len(d.interests.declared) != 1 || d.interests.declared[0].TopicID != "t-1" {
		t.Errorf("declared = %+v, want one declaration for t-1", d.interests.declared)
	}
	if len(d.profiles.invalidated) != 1 || d.profiles.invalidated[0] != "user-1" {
		t.Errorf("invalidated = %v, want the declaring user", d.profiles.invalidated)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/v1/profiles/user-1/interests",
		`{"topic_id":"","topic_name":""}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty declaration status = %d, want 422", rec.Code)
	}
}

func TestInterestsList(t *testing.T) {
	router, d := newTestRouter(t)
	d.interests.declared = []models.InterestDeclaration{
		{UserID: "user-1", TopicID: "t-1", TopicName: "fitness"},
		{UserID: "user-2", TopicID: "t-2", TopicName: "cooking"},
	}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/profiles/user-1/interests", "", nil)
	resp := decodeEnvelope(t, rec)
	if resp.Meta == nil || resp.Meta.Pagination == nil || resp.Meta.Pagination.Count != 1 {
		t.Errorf("pagination = %+v, want only user-1's declaration", resp.Meta)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router, d := newTestRouter(t)

	if rec := doRequest(t, router, http.MethodGet, "/api/v1/health/live", "", nil); rec.Code != http.StatusOK {
		t.Errorf("live status = %d, want 200", rec.Code)
	}
	if rec := doRequest(t, router, http.MethodGet, "/api/v1/health/ready", "", nil); rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}

	d.health.err = errors.New("duckdb unreachable")
	rec := doRequest(t, router, http.MethodGet, "/api/v1/health/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503 when the store is down", rec.Code)
	}

	d.health.err = nil
	d.health.closed = true
	rec = doRequest(t, router, http.MethodGet, "/api/v1/health/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503 when the profile cache is closed", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health/live", "",
		map[string]string{requestIDHeader: "trace-42"})
	if got := rec.Header().Get(requestIDHeader); got != "trace-42" {
		t.Errorf("request id = %s, want the inbound id echoed", got)
	}
}
