// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

// Package config loads and validates service configuration.
//
// Configuration is layered via Koanf v2 (highest priority wins):
//  1. Environment variables (SERVER_PORT, LLM_API_KEY, ...)
//  2. Optional YAML config file (config.yaml or CONFIG_PATH)
//  3. Built-in defaults
package config

import "time"

// Config is the root configuration for the feed service.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	ProfileCache ProfileCacheConfig `koanf:"profile_cache"`
	Events       EventsConfig       `koanf:"events"`
	LLM          LLMConfig          `koanf:"llm"`
	Recommend    RecommendConfig    `koanf:"recommend"`
	Feed         FeedConfig         `koanf:"feed"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig holds DuckDB settings for the behavior log and
// content projections.
type DatabaseConfig struct {
	// Path is the DuckDB file path. Empty means in-memory (tests).
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads for DuckDB; 0 uses runtime.NumCPU().
	Threads int `koanf:"threads" validate:"gte=0"`
}

// ProfileCacheConfig holds BadgerDB settings for the interest-profile
// cache.
type ProfileCacheConfig struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
	// TTL is the soft staleness window after which a cached profile is
	// recomputed.
	TTL time.Duration `koanf:"ttl"`
}

// EventsConfig holds behavior-event pipeline settings.
type EventsConfig struct {
	// Topic is the Watermill topic behavior events are published on.
	Topic string `koanf:"topic"`

	// RetryCount is how many times the router retries a failing append
	// before giving up on the message.
	RetryCount int `koanf:"retry_count" validate:"gte=0"`

	// RetryInterval is the initial backoff between retries.
	RetryInterval time.Duration `koanf:"retry_interval"`

	NATS NATSConfig `koanf:"nats"`
}

// NATSConfig enables JetStream transport for behavior events. When
// disabled, an in-process Go-channel Pub/Sub is used instead.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

// LLMConfig holds generative-AI client settings for the AI-personalized
// scorer.
type LLMConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`

	// RatePerSecond bounds outbound completion calls; 0 disables the
	// limiter.
	RatePerSecond float64 `koanf:"rate_per_second" validate:"gte=0"`
	RateBurst     int     `koanf:"rate_burst" validate:"gte=0"`

	// Breaker settings for the circuit breaker around completion calls.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// RecommendConfig holds blender and scorer settings.
type RecommendConfig struct {
	// MaxItems caps a single blended feed regardless of requested limit.
	MaxItems int `koanf:"max_items" validate:"gte=1"`

	// Allocation is the proportional slot split across sources.
	Allocation AllocationConfig `koanf:"allocation"`

	// Sources toggles individual scorers for the for-you feed.
	Sources SourcesConfig `koanf:"sources"`

	// ScorerTimeout bounds each scorer's wall-clock budget so one hung
	// AI call cannot block the whole feed.
	ScorerTimeout time.Duration `koanf:"scorer_timeout"`

	// CacheTTL and CacheSize control the blended-response LRU cache.
	CacheTTL  time.Duration `koanf:"cache_ttl"`
	CacheSize int           `koanf:"cache_size" validate:"gte=0"`

	// TrendingTimeframe is "day" or "week".
	TrendingTimeframe string `koanf:"trending_timeframe" validate:"oneof=day week"`

	// Seed for the diversity shuffle; non-zero pins the sequence for
	// reproducible runs, 0 seeds from the clock.
	Seed int64 `koanf:"seed"`
}

// AllocationConfig is the proportional slot split for the blender.
// Values are fractions of the total; they should sum to at most 1.0.
type AllocationConfig struct {
	AIPersonalized float64 `koanf:"ai_personalized" validate:"gte=0,lte=1"`
	Collaborative  float64 `koanf:"collaborative" validate:"gte=0,lte=1"`
	ContentBased   float64 `koanf:"content_based" validate:"gte=0,lte=1"`
	Trending       float64 `koanf:"trending" validate:"gte=0,lte=1"`
}

// SourcesConfig toggles individual scorers.
type SourcesConfig struct {
	AIPersonalized bool `koanf:"ai_personalized"`
	Collaborative  bool `koanf:"collaborative"`
	ContentBased   bool `koanf:"content_based"`
	Trending       bool `koanf:"trending"`
}

// FeedConfig holds reel-feed session settings.
type FeedConfig struct {
	// PageSize is the number of reels per page.
	PageSize int `koanf:"page_size" validate:"gte=1"`

	// PrefetchThreshold triggers the next page fetch when the focused
	// index is within this many items of the end.
	PrefetchThreshold int `koanf:"prefetch_threshold" validate:"gte=0"`

	// MinViewSeconds is the minimum focused time before a view event is
	// logged.
	MinViewSeconds float64 `koanf:"min_view_seconds" validate:"gte=0"`

	// FallbackDurationSec substitutes for a reel whose media duration
	// is unknown when computing completion rates.
	FallbackDurationSec float64 `koanf:"fallback_duration_sec" validate:"gt=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8742,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:      "/data/reelfeed.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		ProfileCache: ProfileCacheConfig{
			Path:     "/data/profiles",
			InMemory: false,
			TTL:      24 * time.Hour,
		},
		Events: EventsConfig{
			Topic:         "behavior.events",
			RetryCount:    3,
			RetryInterval: 100 * time.Millisecond,
			NATS: NATSConfig{
				Enabled: false,
				URL:     "nats://127.0.0.1:4222",
			},
		},
		LLM: LLMConfig{
			BaseURL:         "https://generativelanguage.googleapis.com",
			APIKey:          "",
			Model:           "gemini-2.5-flash",
			Timeout:         60 * time.Second,
			RatePerSecond:   2,
			RateBurst:       4,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Recommend: RecommendConfig{
			MaxItems: 20,
			Allocation: AllocationConfig{
				AIPersonalized: 0.35,
				Collaborative:  0.25,
				ContentBased:   0.20,
				Trending:       0.20,
			},
			Sources: SourcesConfig{
				AIPersonalized: true,
				Collaborative:  true,
				ContentBased:   true,
				Trending:       true,
			},
			ScorerTimeout:     10 * time.Second,
			CacheTTL:          2 * time.Minute,
			CacheSize:         2048,
			TrendingTimeframe: "day",
			Seed:              0,
		},
		Feed: FeedConfig{
			PageSize:            10,
			PrefetchThreshold:   2,
			MinViewSeconds:      1.0,
			FallbackDurationSec: 10.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
