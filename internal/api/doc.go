// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

/*
Package api serves generated reports and service health over HTTP in serve mode.

Routes:

	GET  /healthz              liveness
	GET  /readyz               Baculum API reachability
	GET  /metrics              Prometheus exposition
	GET  /api/reports          stored reports, newest first (?limit=N, default 20, max 1000)
	GET  /api/reports/latest   newest report as HTML
	GET  /api/reports/{name}   one report as HTML
	GET  /api/schedule         scheduler state
	POST /api/runs             run a report now

JSON responses share one envelope:

	{"success": true, "data": ..., "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 1}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}, "meta": {...}}

The /api group is rate limited per client IP (HTTP_RATE_LIMIT per minute);
POST /api/runs has a stricter limit of its own and rejects a run while another
is in progress, whether scheduled or manual.
*/
package api
