// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/splay/internal/auth"
	"github.com/tomtom215/splay/internal/middleware"
)

// Router sets up HTTP routes using the chi router.
type Router struct {
	handler       *Handler
	middleware    *auth.Middleware
	chiMiddleware *ChiMiddleware
	spa           http.Handler
}

// NewRouter creates a router. spa may be nil when no web build is served.
func NewRouter(handler *Handler, authMW *auth.Middleware, chiMW *ChiMiddleware, spa http.Handler) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		middleware:    authMW,
		chiMiddleware: chiMW,
		spa:           spa,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(router.middleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("The requested resource wasn't found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	// ========================
	// Webhook Receiver
	// ========================
	// Public. Limited per sender IP apart from the API limit.
	r.With(router.chiMiddleware.RateLimitReceive()).Post("/buckets/{slug}", router.handler.ReceiveWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.SecurityHeaders)

		r.Get("/health", router.handler.Health)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitAPI())

			// ========================
			// Authentication Endpoints
			// ========================
			r.Route("/auth", func(r chi.Router) {
				r.Post("/signup", router.handler.Signup)
				r.Post("/login", router.handler.Login)
				r.Post("/password-reset", router.handler.RequestPasswordReset)
				r.Post("/password-reset/confirm", router.handler.ConfirmPasswordReset)
				r.Get("/providers", router.handler.AuthProviders)
				r.Get("/oauth/{provider}", router.handler.OAuthStart)
				r.Get("/oauth/{provider}/callback", router.handler.OAuthCallback)

				r.Group(func(r chi.Router) {
					r.Use(router.middleware.Authenticate)
					r.Post("/logout", router.handler.Logout)
					r.Post("/refresh", router.handler.Refresh)
					r.Get("/me", router.handler.Me)
				})
			})

			// The websocket handshake carries its token in the query string.
			r.Get("/ws", router.handler.WebSocket)

			// ========================
			// Buckets, Settings and Logs
			// ========================
			r.Group(func(r chi.Router) {
				r.Use(router.middleware.Authenticate)

				r.Route("/buckets", func(r chi.Router) {
					r.Get("/", router.handler.ListBuckets)
					r.Post("/", router.handler.CreateBucket)
					r.Get("/slug/{slug}", router.handler.GetBucketBySlug)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", router.handler.GetBucket)
						r.Patch("/", router.handler.UpdateBucket)
						r.Delete("/", router.handler.DeleteBucket)
						r.Get("/forward-settings", router.handler.ListForwardSettings)
						r.Post("/forward-settings", router.handler.CreateForwardSetting)
						r.Get("/receive-logs", router.handler.ListReceiveLogs)
						r.Get("/forward-logs", router.handler.ListBucketForwardLogs)
					})
				})

				r.Route("/forward-settings/{id}", func(r chi.Router) {
					r.Get("/", router.handler.GetForwardSetting)
					r.Patch("/", router.handler.UpdateForwardSetting)
					r.Delete("/", router.handler.DeleteForwardSetting)
				})

				r.Get("/receive-logs/{id}", router.handler.GetReceiveLog)
				r.Get("/receive-logs/{id}/forward-logs", router.handler.ListReceiveLogForwardLogs)
				r.Get("/forward-logs/{id}", router.handler.GetForwardLog)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", swaggerHandler())

	// ========================
	// Web App
	// ========================
	if router.spa != nil {
		spa := chimiddleware.Compress(5)(router.spa)
		// GET /buckets/{slug} is a client route of the app; only POST
		// reaches the receiver.
		for _, pattern := range []string{"/*", "/buckets/{slug}"} {
			r.Method(http.MethodGet, pattern, spa)
			r.Method(http.MethodHead, pattern, spa)
		}
	}

	return r
}
