// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

/*
Package middleware provides the HTTP middleware used by the serve-mode API.

All middleware has the chi signature func(http.Handler) http.Handler.

Key Components:

  - RequestID: UUID request IDs in the X-Request-ID header, the request
    context and the request logger
  - PrometheusMetrics: request counts and latency per chi route pattern
  - Compression: gzip for clients that accept it (reports are large HTML)

Usage:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.With(middleware.Compression).Get("/api/reports/{name}", h.Report)
*/
package middleware
