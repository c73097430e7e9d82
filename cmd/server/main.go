// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

// Package main is the entry point for the Reelfeed server.
//
// Reelfeed is the personalized short-video feed and recommendation
// service of the Gvarikaa social platform. It ingests behavior events,
// maintains per-user interest profiles, ranks content through four
// scoring strategies (collaborative, content-based, trending, and
// AI-personalized), and serves blended reel pages over HTTP.
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered settings (env > file > defaults)
//  2. Behavior store: DuckDB for the append-only behavior log and
//     content projections
//  3. Profile cache: BadgerDB-backed interest-profile store
//  4. Event pipeline: Watermill router over an in-process channel, or
//     NATS JetStream when EVENTS_NATS_ENABLED=true
//  5. Scorers and blender: the for-you ranking pipeline; the
//     AI-personalized scorer calls the configured LLM endpoint
//  6. HTTP API: chi router with the feed, recommendation, behavior,
//     and profile endpoints
//
// Everything long-running sits under a suture supervision tree; the
// server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gvarikaa/reelfeed/internal/api"
	"github.com/gvarikaa/reelfeed/internal/config"
	"github.com/gvarikaa/reelfeed/internal/database"
	"github.com/gvarikaa/reelfeed/internal/events"
	"github.com/gvarikaa/reelfeed/internal/feed"
	"github.com/gvarikaa/reelfeed/internal/llm"
	"github.com/gvarikaa/reelfeed/internal/logging"
	"github.com/gvarikaa/reelfeed/internal/profile"
	"github.com/gvarikaa/reelfeed/internal/recommend"
	"github.com/gvarikaa/reelfeed/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})
	logging.Info().
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("Starting reelfeed server")

	// Behavior log and content projections.
	store, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize behavior store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close behavior store")
		}
	}()

	// Interest-profile cache.
	profileStore, err := profile.OpenStore(&cfg.ProfileCache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open profile cache")
	}
	defer func() {
		if err := profileStore.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close profile cache")
		}
	}()
	profiles := profile.NewBuilder(store, profileStore, cfg.ProfileCache.TTL)

	// Behavior-event pipeline.
	wmLogger := events.NewWatermillLogger()
	pubsub, err := events.NewPubSub(&cfg.Events.NATS, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event transport")
	}
	defer func() {
		if err := pubsub.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close event transport")
		}
	}()

	publisher := events.NewBehaviorPublisher(pubsub.Publisher, cfg.Events.Topic)
	ingest := events.NewIngestHandler(store, profiles)
	eventRouter, err := events.NewRouter(&cfg.Events, pubsub.Subscriber, ingest, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event router")
	}

	// Ranking pipeline. The blender drops scorers disabled in config.
	model := llm.New(&cfg.LLM)
	blender := recommend.NewBlender(&cfg.Recommend,
		recommend.NewAIScorer(store, profiles, model),
		recommend.NewCollaborativeScorer(store),
		recommend.NewContentBasedScorer(store),
		recommend.NewTrendingScorer(store, cfg.Recommend.TrendingTimeframe),
	)

	feedSvc := feed.NewService(blender, store, &cfg.Feed)

	// HTTP API.
	health := &api.Health{Store: store, Cache: profileStore, Model: model}
	handler := api.NewHandler(feedSvc, blender, profiles, publisher, store, health, cfg)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, &cfg.Server),
		ReadHeaderTimeout: cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	// Supervision tree: event ingestion and the API restart
	// independently.
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)
	tree.AddEventsService(supervisor.NewEventRouterService(eventRouter))
	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor stopped with error")
	}

	if report, rErr := tree.UnstoppedServiceReport(); rErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	logging.Info().Msg("Shutdown complete")
}
