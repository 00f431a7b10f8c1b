// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/itdash/internal/middleware"
)

// Router assembles the HTTP routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	ws            http.Handler
}

// NewRouter creates a router. ws serves GET /api/ws.
func NewRouter(handler *Handler, chiMiddleware *ChiMiddleware, ws http.Handler) *Router {
	return &Router{handler: handler, chiMiddleware: chiMiddleware, ws: ws}
}

// Setup builds the chi handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit("health"))
		r.Get("/health", router.handler.Health)
		r.Get("/health/live", router.handler.Live)
	})

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit("api"))
		r.Get("/", router.handler.Root)
		r.Method(http.MethodGet, "/api/ws", router.ws)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	return r
}
