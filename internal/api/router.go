// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/baculum-report/internal/metrics"
	"github.com/tomtom215/baculum-report/internal/middleware"
)

// Deps are the collaborators of the router.
type Deps struct {
	Store     ReportStore
	Scheduler Scheduler // optional
	API       Pinger    // optional
	Version   string
	// Middleware defaults to DefaultChiMiddlewareConfig.
	Middleware *ChiMiddlewareConfig
}

// NewRouter builds the serve-mode HTTP handler.
func NewRouter(d Deps) http.Handler {
	h := NewHandler(d.Store, d.Scheduler, d.API, d.Version)
	mw := NewChiMiddleware(d.Middleware)

	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(APISecurityHeaders())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	// ========================
	// Health and metrics
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimitHealth())
		r.Get("/healthz", h.Health)
		r.Get("/readyz", h.Ready)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	})

	// ========================
	// Reports
	// ========================
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.RateLimit())

		r.Get("/reports", h.ListReports)
		r.With(middleware.Compression).Get("/reports/latest", h.LatestReport)
		r.With(middleware.Compression).Get("/reports/{name}", h.GetReport)

		r.Get("/schedule", h.ScheduleStatus)
		r.With(mw.RateLimitRun()).Post("/runs", h.TriggerRun)
	})

	return r
}
