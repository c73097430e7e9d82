// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

// Package metrics defines the service's Prometheus collectors. All
// collectors register on the default registry at package init and are
// exposed via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedRequests counts feed requests by mode and outcome.
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reelfeed",
		Name:      "feed_requests_total",
		Help:      "Feed requests by mode and status.",
	}, []string{"mode", "status"})

	// ScorerDuration observes per-scorer latency.
	ScorerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reelfeed",
		Name:      "scorer_duration_seconds",
		Help:      "Wall-clock time per recommendation scorer.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	// ScorerFailures counts scorer errors and timeouts. Failures are
	// absorbed by the blender, so this counter is the only place they
	// stay visible.
	ScorerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reelfeed",
		Name:      "scorer_failures_total",
		Help:      "Scorer failures by source and kind.",
	}, []string{"source", "kind"})

	// ScorerItems observes how many items each scorer contributed
	// before blending.
	ScorerItems = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reelfeed",
		Name:      "scorer_items",
		Help:      "Items returned per scorer before blending.",
		Buckets:   []float64{0, 1, 2, 5, 10, 20},
	}, []string{"source"})

	// BlendCacheHits and BlendCacheMisses track the blended-feed LRU.
	BlendCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reelfeed",
		Name:      "blend_cache_hits_total",
		Help:      "Blended-feed cache hits.",
	})
	BlendCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reelfeed",
		Name:      "blend_cache_misses_total",
		Help:      "Blended-feed cache misses.",
	})

	// ProfileBuilds counts interest-profile computations by outcome
	// (built, cached, fallback).
	ProfileBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reelfeed",
		Name:      "profile_builds_total",
		Help:      "Interest profile lookups by outcome.",
	}, []string{"outcome"})

	// BehaviorEvents counts ingested behavior events by type.
	BehaviorEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reelfeed",
		Name:      "behavior_events_total",
		Help:      "Behavior events ingested by behavior type.",
	}, []string{"type"})

	// LLMCalls counts generative-model calls by outcome.
	LLMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reelfeed",
		Name:      "llm_calls_total",
		Help:      "Generative-model completion calls by outcome.",
	}, []string{"outcome"})

	// HTTPRequestDuration observes API handler latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reelfeed",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)
