// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gvarikaa/reelfeed/internal/cache"
	"github.com/gvarikaa/reelfeed/internal/config"
	"github.com/gvarikaa/reelfeed/internal/logging"
	"github.com/gvarikaa/reelfeed/internal/metrics"
	"github.com/gvarikaa/reelfeed/internal/models"
)

// blendOrder fixes the allocation order across sources.
var blendOrder = []Source{
	SourceAIPersonalized,
	SourceCollaborative,
	SourceContentBased,
	SourceTrending,
}

// Blender fans out to every enabled scorer, allocates proportional
// slots across their ranked output, backfills the remainder by global
// score, and applies the diversity shuffle. Feed never returns an
// error: a failed or timed-out scorer simply contributes nothing.
type Blender struct {
	cfg     *config.RecommendConfig
	scorers map[Source]Scorer
	cache   *cache.LRU
	log     zerolog.Logger

	// mu guards rng; rand.Rand is not safe for concurrent use.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBlender creates a blender over the given scorers. Scorers whose
// source is disabled in configuration are ignored.
func NewBlender(cfg *config.RecommendConfig, scorers ...Scorer) *Blender {
	enabled := make(map[Source]Scorer, len(scorers))
	for _, sc := range scorers {
		if sourceEnabled(cfg.Sources, sc.Source()) {
			enabled[sc.Source()] = sc
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var lru *cache.LRU
	if cfg.CacheSize > 0 {
		lru = cache.NewLRU(cfg.CacheSize, cfg.CacheTTL)
	}

	return &Blender{
		cfg:     cfg,
		scorers: enabled,
		cache:   lru,
		log:     logging.WithComponent("recommend.blender"),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func sourceEnabled(s config.SourcesConfig, src Source) bool {
	switch src {
	case SourceAIPersonalized:
		return s.AIPersonalized
	case SourceCollaborative:
		return s.Collaborative
	case SourceContentBased:
		return s.ContentBased
	case SourceTrending:
		return s.Trending
	default:
		return false
	}
}

// allocationFor returns the configured slot fraction for a source.
func (b *Blender) allocationFor(src Source) float64 {
	switch src {
	case SourceAIPersonalized:
		return b.cfg.Allocation.AIPersonalized
	case SourceCollaborative:
		return b.cfg.Allocation.Collaborative
	case SourceContentBased:
		return b.cfg.Allocation.ContentBased
	case SourceTrending:
		return b.cfg.Allocation.Trending
	default:
		return 0
	}
}

// Feed returns the blended personalized feed for a user. An empty feed
// is a valid result, not an error.
func (b *Blender) Feed(ctx context.Context, userID string, ct models.ContentType, limit int) []Item {
	totalItems := limit
	if totalItems <= 0 || totalItems > b.cfg.MaxItems {
		totalItems = b.cfg.MaxItems
	}

	cacheKey := fmt.Sprintf("%s|%s|%d", userID, ct, totalItems)
	if b.cache != nil {
		if cached, ok := b.cache.Get(cacheKey); ok {
			metrics.BlendCacheHits.Inc()
			return cloneItems(cached.([]Item))
		}
		metrics.BlendCacheMisses.Inc()
	}

	bySource := b.collect(ctx, userID, ct, totalItems)
	blended := b.blend(bySource, totalItems)

	b.mu.Lock()
	biasedShuffle(blended, b.rng)
	b.mu.Unlock()

	if b.cache != nil {
		b.cache.Set(cacheKey, cloneItems(blended))
	}
	return blended
}

// collect fans out to all enabled scorers concurrently and joins their
// results. Each scorer runs under its own timeout budget so one hung
// upstream cannot stall the whole feed.
func (b *Blender) collect(ctx context.Context, userID string, ct models.ContentType, limit int) map[Source][]Item {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		bySource = make(map[Source][]Item, len(b.scorers))
	)

	for _, sc := range b.scorers {
		wg.Add(1)
		go func(sc Scorer) {
			defer wg.Done()

			sctx := ctx
			cancel := context.CancelFunc(func() {})
			if b.cfg.ScorerTimeout > 0 {
				sctx, cancel = context.WithTimeout(ctx, b.cfg.ScorerTimeout)
			}
			defer cancel()

			src := string(sc.Source())
			start := time.Now()
			items, err := sc.Score(sctx, userID, ct, limit)
			metrics.ScorerDuration.WithLabelValues(src).Observe(time.Since(start).Seconds())

			if err != nil {
				kind := "error"
				if errors.Is(err, context.DeadlineExceeded) {
					kind = "timeout"
				}
				metrics.ScorerFailures.WithLabelValues(src, kind).Inc()
				b.log.Warn().Err(err).
					Str("source", src).
					Str("user_id", userID).
					Msg("scorer failed, contributing nothing")
				return
			}

			metrics.ScorerItems.WithLabelValues(src).Observe(float64(len(items)))
			mu.Lock()
			bySource[sc.Source()] = items
			mu.Unlock()
		}(sc)
	}
	wg.Wait()
	return bySource
}

// blend applies proportional allocation with remainder backfill. The
// floored per-source quotas can sum below totalItems; leftover slots go
// to the pooled overflow of all sources, best score first.
func (b *Blender) blend(bySource map[Source][]Item, totalItems int) []Item {
	final := make([]Item, 0, totalItems)
	taken := make(map[string]struct{}, totalItems)
	var pool []Item

	for _, src := range blendOrder {
		items := bySource[src]
		quota := int(float64(totalItems) * b.allocationFor(src))

		n := 0
		for _, item := range items {
			if n >= quota {
				break
			}
			if _, dup := taken[item.ID]; dup {
				continue
			}
			taken[item.ID] = struct{}{}
			final = append(final, item)
			n++
		}
		if n < len(items) {
			pool = append(pool, items[n:]...)
		}
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Score != pool[j].Score {
			return pool[i].Score > pool[j].Score
		}
		return pool[i].ID < pool[j].ID
	})
	for _, item := range pool {
		if len(final) >= totalItems {
			break
		}
		if _, dup := taken[item.ID]; dup {
			continue
		}
		taken[item.ID] = struct{}{}
		final = append(final, item)
	}
	return final
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
