// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/gvarikaa/reelfeed/internal/config"
	"github.com/gvarikaa/reelfeed/internal/logging"
	"github.com/gvarikaa/reelfeed/internal/metrics"
)

// requestIDHeader is the response header carrying the request ID.
const requestIDHeader = "X-Request-ID"

// requestID assigns every request an ID, stores it in the context for
// log correlation, and echoes it in the response header. An inbound
// X-Request-ID is honored so upstream traces carry through.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// httpMetrics records request duration per route pattern, method, and
// status code.
func httpMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

// corsHandler builds the CORS middleware from server config.
func corsHandler(cfg *config.ServerConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader, userIDHeader},
		MaxAge:         86400,
	})
}

// rateLimit builds the per-IP rate limiter from server config. A zero
// request budget disables limiting.
func rateLimit(cfg *config.ServerConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitReqs <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(cfg.RateLimitReqs, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}
