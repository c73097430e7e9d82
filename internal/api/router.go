// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gvarikaa/reelfeed/internal/config"
)

// NewRouter assembles the HTTP route tree around the handler set.
func NewRouter(h *Handler, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(cfg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/health", func(r chi.Router) {
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(cfg))
			r.Use(httpMetrics)

			r.Get("/feed/reels", h.FeedReels)
			r.Get("/recommendations", h.Recommendations)
			r.Post("/behavior", h.RecordBehavior)

			r.Route("/profiles/{userID}", func(r chi.Router) {
				r.Get("/", h.Profile)
				r.Get("/interests", h.Interests)
				r.Post("/interests", h.DeclareInterest)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
