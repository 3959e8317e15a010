// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/adledger/internal/auth"
)

// RouterConfig wires NewRouter.
type RouterConfig struct {
	Handler    *Handler
	JWT        *auth.JWTManager
	Middleware MiddlewareConfig

	// MetricsHandler serves /metrics. Defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

// NewRouter builds the chi router.
//
//	GET    /health
//	GET    /metrics
//	GET    /api/v1/connect/google/callback   (state identifies the user)
//	GET    /api/v1/connect/google            (bearer token required from here down)
//	GET    /api/v1/accounts
//	DELETE /api/v1/accounts/{id}
//	POST   /api/v1/accounts/{id}/sync
//	GET    /api/v1/accounts/{id}/campaigns
//	POST   /api/v1/tokens/revoke
func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handler
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(cfg.Middleware)) // global so OPTIONS preflights are answered
	r.Use(AuditSource())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(RateLimitHealth))
		r.Get("/health", h.Health)
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SecurityHeaders())
		r.Use(PrometheusMetrics)
		r.Use(RateLimit(RateLimitConfig{
			Requests: cfg.Middleware.RateLimitRequests,
			Window:   cfg.Middleware.RateLimitWindow,
		}))

		r.With(RateLimit(RateLimitConnect)).Get("/connect/google/callback", h.ConnectGoogleCallback)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(cfg.JWT))

			r.With(RateLimit(RateLimitConnect)).Get("/connect/google", h.ConnectGoogle)

			r.Get("/accounts", h.ListAccounts)
			r.Route("/accounts/{id}", func(r chi.Router) {
				r.Delete("/", h.DisconnectAccount)
				r.With(RateLimit(RateLimitSync)).Post("/sync", h.SyncAccount)
				r.Get("/campaigns", h.ListCampaigns)
			})

			r.Post("/tokens/revoke", h.RevokeToken)
		})
	})

	return r
}
