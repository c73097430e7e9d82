// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package feed

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gvarikaa/reelfeed/internal/config"
	"github.com/gvarikaa/reelfeed/internal/logging"
	"github.com/gvarikaa/reelfeed/internal/models"
)

// Recorder is the fire-and-forget behavior sink the session logs to.
// Satisfied by *events.BehaviorPublisher.
type Recorder interface {
	Record(event *models.BehaviorEvent) error
}

// viewLog tracks the watch state of one focused reel.
type viewLog struct {
	start  time.Time
	logged bool
}

// Session is the per-viewer feed state machine: the loaded reel list,
// the focused index, per-reel view logs, and the pagination cursor for
// the active mode. All methods are safe for concurrent use.
type Session struct {
	svc      *Service
	recorder Recorder
	cfg      *config.FeedConfig
	log      zerolog.Logger

	// clock is swappable for tests.
	clock func() time.Time

	mu       sync.Mutex
	userID   string
	mode     Mode
	reels    []Reel
	index    int
	viewLogs map[string]*viewLog

	// cursor state per mode: time-keyset for following, offset for
	// trending; the for-you blend deduplicates by loaded IDs instead.
	before time.Time
	offset int

	fetching bool
}

// NewSession creates a session in the given mode without loading any
// reels; call Refresh to load the first page.
func NewSession(svc *Service, recorder Recorder, cfg *config.FeedConfig, userID string, mode Mode) *Session {
	return &Session{
		svc:      svc,
		recorder: recorder,
		cfg:      cfg,
		log:      logging.WithComponent("feed.session"),
		clock:    func() time.Time { return time.Now().UTC() },
		userID:   userID,
		mode:     mode,
		viewLogs: make(map[string]*viewLog),
	}
}

// Mode returns the active feed mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Reels returns a snapshot of the loaded reels.
func (s *Session) Reels() []Reel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reel, len(s.reels))
	copy(out, s.reels)
	return out
}

// Index returns the focused reel index.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// SetMode switches the feed mode. Switching discards everything: the
// reel list, the focus index, every view log, and the cursor. Setting
// the current mode again is a no-op.
func (s *Session) SetMode(ctx context.Context, mode Mode) error {
	s.mu.Lock()
	if mode == s.mode {
		s.mu.Unlock()
		return nil
	}
	s.mode = mode
	s.reels = nil
	s.index = 0
	s.viewLogs = make(map[string]*viewLog)
	s.before = time.Time{}
	s.offset = 0
	s.fetching = false
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// Refresh loads the next page for the active mode and appends it.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.fetching {
		s.mu.Unlock()
		return nil
	}
	s.fetching = true
	mode := s.mode
	offset := s.offset
	before := s.before
	loaded := make(map[string]struct{}, len(s.reels))
	for _, r := range s.reels {
		loaded[r.ID] = struct{}{}
	}
	s.mu.Unlock()

	var (
		page []Reel
		err  error
	)
	switch mode {
	case ModeFollowing:
		page, err = s.svc.FollowingPage(ctx, s.userID, before, s.cfg.PageSize)
	case ModeTrending:
		page, err = s.svc.TrendingPage(ctx, offset, s.cfg.PageSize)
	default:
		page, err = s.svc.ForYouPage(ctx, s.userID, loaded, s.cfg.PageSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching = false
	if err != nil {
		return err
	}
	if s.mode != mode {
		// Mode changed while fetching; the page belongs to a dead
		// session state.
		return nil
	}

	for _, r := range page {
		if _, seen := loaded[r.ID]; seen {
			continue
		}
		s.reels = append(s.reels, r)
		switch mode {
		case ModeFollowing:
			s.before = r.CreatedAt
		case ModeTrending:
			s.offset++
		}
	}
	return nil
}

// Scroll translates a scroll offset into a focused index and applies
// the focus change.
func (s *Session) Scroll(ctx context.Context, scrollOffset, viewportHeight float64) {
	if viewportHeight <= 0 {
		return
	}
	s.SetIndex(ctx, int(math.Round(scrollOffset/viewportHeight)))
}

// SetIndex moves focus to the given reel. The previously focused reel's
// view is finalized and, past the minimum watch threshold, logged as a
// behavior event (at most once per reel per session). Nearing the end
// of the loaded list triggers an asynchronous prefetch.
func (s *Session) SetIndex(ctx context.Context, index int) {
	s.mu.Lock()

	if index < 0 {
		index = 0
	}
	if n := len(s.reels); n > 0 && index >= n {
		index = n - 1
	}
	if index == s.index && s.viewStarted(s.index) {
		s.mu.Unlock()
		return
	}

	now := s.clock()
	event := s.finalizeViewLocked(s.index, now)

	s.index = index
	if n := len(s.reels); n > 0 && index < n {
		id := s.reels[index].ID
		if lg := s.viewLogs[id]; lg == nil || !lg.logged {
			s.viewLogs[id] = &viewLog{start: now}
		}
	}

	prefetch := len(s.reels) > 0 && index >= len(s.reels)-s.cfg.PrefetchThreshold && !s.fetching
	s.mu.Unlock()

	if event != nil {
		s.record(event)
	}
	if prefetch {
		go func() {
			if err := s.Refresh(ctx); err != nil {
				s.log.Warn().Err(err).Str("mode", string(s.Mode())).Msg("prefetch failed")
			}
		}()
	}
}

// viewStarted reports whether the reel at index has an active timer.
// Callers hold s.mu.
func (s *Session) viewStarted(index int) bool {
	if index < 0 || index >= len(s.reels) {
		return false
	}
	lg := s.viewLogs[s.reels[index].ID]
	return lg != nil && !lg.start.IsZero()
}

// finalizeViewLocked closes the view timer for the reel at index and
// returns the behavior event to emit, or nil. Callers hold s.mu.
func (s *Session) finalizeViewLocked(index int, now time.Time) *models.BehaviorEvent {
	if index < 0 || index >= len(s.reels) {
		return nil
	}
	reel := s.reels[index]
	lg := s.viewLogs[reel.ID]
	if lg == nil || lg.logged || lg.start.IsZero() {
		return nil
	}

	elapsed := now.Sub(lg.start).Seconds()
	if elapsed < s.cfg.MinViewSeconds {
		// Too short to count; the timer resets on the next focus.
		lg.start = time.Time{}
		return nil
	}

	duration := reel.DurationSec
	if duration <= 0 {
		duration = s.cfg.FallbackDurationSec
	}
	completion := elapsed / duration
	if completion > 1 {
		completion = 1
	}

	lg.logged = true
	return &models.BehaviorEvent{
		UserID:      s.userID,
		Type:        models.BehaviorView,
		ContentID:   reel.ID,
		ContentType: reel.Type,
		Timestamp:   now,
		DurationSec: elapsed,
		Metadata: map[string]any{
			"completion_rate": completion,
			"feed_mode":       string(s.mode),
		},
	}
}

// Like optimistically bumps the local like count and records the event.
func (s *Session) Like(contentID string) {
	s.mu.Lock()
	var reel *Reel
	for i := range s.reels {
		if s.reels[i].ID == contentID {
			s.reels[i].LikeCount++
			reel = &s.reels[i]
			break
		}
	}
	s.mu.Unlock()
	if reel == nil {
		return
	}

	s.record(&models.BehaviorEvent{
		UserID:      s.userID,
		Type:        models.BehaviorLike,
		ContentID:   contentID,
		ContentType: reel.Type,
		Timestamp:   s.clock(),
	})
}

// Share optimistically bumps the local share count and records the
// event.
func (s *Session) Share(contentID string) {
	s.mu.Lock()
	var reel *Reel
	for i := range s.reels {
		if s.reels[i].ID == contentID {
			s.reels[i].ShareCount++
			reel = &s.reels[i]
			break
		}
	}
	s.mu.Unlock()
	if reel == nil {
		return
	}

	s.record(&models.BehaviorEvent{
		UserID:      s.userID,
		Type:        models.BehaviorShare,
		ContentID:   contentID,
		ContentType: reel.Type,
		Timestamp:   s.clock(),
	})
}

// CommentPosted bumps the local comment count. Unlike likes and shares
// this is NOT optimistic: callers invoke it only after the comment was
// confirmed stored.
func (s *Session) CommentPosted(contentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reels {
		if s.reels[i].ID == contentID {
			s.reels[i].CommentCount++
			return
		}
	}
}

// record ships an event to the behavior pipeline. Failures are logged
// and dropped; view logging must never disturb playback.
func (s *Session) record(event *models.BehaviorEvent) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(event); err != nil {
		s.log.Warn().Err(err).
			Str("behavior_type", string(event.Type)).
			Str("content_id", event.ContentID).
			Msg("behavior event dropped")
	}
}
