// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package metrics holds the Prometheus collectors for baculum-report.
//
// Collectors are registered on the default registry at init via promauto.
// Long-running processes expose them on /metrics; one-shot report runs can
// write them to a node_exporter textfile with WriteTextfile.
package metrics

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes used as the "outcome" label on Bacula API metrics.
const (
	OutcomeSuccess    = "success"
	OutcomeTimeout    = "timeout"
	OutcomeConnection = "connection"
	OutcomeAPIError   = "api_error"
	OutcomeCanceled   = "canceled"
)

var (
	// Bacula API Client Metrics
	BaculaRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bacula_api_requests_total",
			Help: "Total number of Baculum API request attempts",
		},
		[]string{"resource", "outcome"},
	)

	BaculaRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bacula_api_request_duration_seconds",
			Help:    "Baculum API request attempt duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"resource"},
	)

	BaculaRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bacula_api_retries_total",
			Help: "Total number of Baculum API retries by failure kind",
		},
		[]string{"kind"}, // "timeout", "connection"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Report Run Metrics
	ReportRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_runs_total",
			Help: "Total number of report runs",
		},
		[]string{"mode", "result"},
	)

	ReportRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "report_run_duration_seconds",
			Help:    "Duration of complete report runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	ReportLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "report_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful report run",
		},
	)

	ReportJobs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "report_jobs",
			Help: "Backup jobs in the last report by state",
		},
		[]string{"state"}, // "total", "success", "failed", "running", "canceled"
	)

	ReportBackupBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "report_backup_bytes",
			Help: "Total bytes backed up by jobs in the last report",
		},
	)

	ReportSkippedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_skipped_records_total",
			Help: "Total number of job records skipped because they failed to parse",
		},
	)

	// Mail Metrics
	MailSendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_send_total",
			Help: "Total number of report mail dispatches by result",
		},
		[]string{"result"},
	)

	MailAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mail_attempts_total",
			Help: "Total number of SMTP sessions attempted",
		},
	)

	// HTTP API Metrics (serve mode)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "route"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordBaculaRequest records one Baculum API request attempt
func RecordBaculaRequest(resource, outcome string, duration time.Duration) {
	BaculaRequestsTotal.WithLabelValues(resource, outcome).Inc()
	BaculaRequestDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordBaculaRetry records a retry caused by a timeout or connection failure
func RecordBaculaRetry(kind string) {
	BaculaRetriesTotal.WithLabelValues(kind).Inc()
}

// RecordRun records a finished report run
func RecordRun(mode string, duration time.Duration, err error) {
	ReportRunDuration.Observe(duration.Seconds())
	if err != nil {
		ReportRunsTotal.WithLabelValues(mode, "failure").Inc()
		return
	}
	ReportRunsTotal.WithLabelValues(mode, "success").Inc()
	ReportLastSuccess.Set(float64(time.Now().Unix()))
}

// JobCounts is the per-state job breakdown of a report.
type JobCounts struct {
	Total, Success, Failed, Running, Canceled int
	BackupBytes                               int64
}

// SetJobGauges publishes the job breakdown of the latest report
func SetJobGauges(c JobCounts) {
	ReportJobs.WithLabelValues("total").Set(float64(c.Total))
	ReportJobs.WithLabelValues("success").Set(float64(c.Success))
	ReportJobs.WithLabelValues("failed").Set(float64(c.Failed))
	ReportJobs.WithLabelValues("running").Set(float64(c.Running))
	ReportJobs.WithLabelValues("canceled").Set(float64(c.Canceled))
	ReportBackupBytes.Set(float64(c.BackupBytes))
}

// RecordSkippedRecords counts job records dropped by the batch parser
func RecordSkippedRecords(n int) {
	if n > 0 {
		ReportSkippedRecords.Add(float64(n))
	}
}

// RecordMail records a mail dispatch and how many SMTP sessions it took
func RecordMail(attempts int, err error) {
	MailAttemptsTotal.Add(float64(attempts))
	if err != nil {
		MailSendTotal.WithLabelValues("failure").Inc()
		return
	}
	MailSendTotal.WithLabelValues("success").Inc()
}

// RecordMailSkipped records a run whose mail was skipped for lack of configuration
func RecordMailSkipped() {
	MailSendTotal.WithLabelValues("skipped").Inc()
}

// RecordHTTPRequest records a request served by the serve-mode HTTP API
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetAppInfo publishes the build version
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// Handler returns the /metrics handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// WriteTextfile writes every registered metric to path in the Prometheus text
// format. The file is written atomically so node_exporter never reads a partial file.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
