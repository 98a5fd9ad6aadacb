// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/baculum-report/internal/logging"
	"github.com/tomtom215/baculum-report/internal/models"
	"github.com/tomtom215/baculum-report/internal/pipeline"
	"github.com/tomtom215/baculum-report/internal/report"
	"github.com/tomtom215/baculum-report/internal/schedule"
	"github.com/tomtom215/baculum-report/internal/validation"
)

// Report list bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 1000
)

// readyTimeout bounds the Baculum ping behind /readyz.
const readyTimeout = 5 * time.Second

// ReportStore is the read side of report.Store.
type ReportStore interface {
	List(limit int) ([]report.Entry, error)
	Latest() (report.Entry, error)
	Open(name string) ([]byte, error)
}

// Scheduler is the part of schedule.Scheduler exposed over HTTP.
type Scheduler interface {
	Status() schedule.Status
	RunNow(ctx context.Context) (*pipeline.Result, error)
}

// Pinger checks Baculum API reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler implements the API endpoints.
type Handler struct {
	store     ReportStore
	scheduler Scheduler
	api       Pinger
	version   string
}

// NewHandler creates a Handler. scheduler and api may be nil.
func NewHandler(store ReportStore, scheduler Scheduler, api Pinger, version string) *Handler {
	return &Handler{
		store:     store,
		scheduler: scheduler,
		api:       api,
		version:   version,
	}
}

// Health answers liveness probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready reports whether the Baculum API answers.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.api != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := h.api.Ping(ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
			rw.ServiceUnavailable("Baculum API unreachable")
			return
		}
	}
	rw.Success(map[string]string{"status": "ready"})
}

// listReportsParams are the query parameters of ListReports.
type listReportsParams struct {
	Limit int `query:"limit" validate:"gte=1,lte=1000"`
}

// reportView is a stored report as listed by the API.
type reportView struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	URL      string    `json:"url"`
}

// ListReports returns stored reports, newest first.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	params := listReportsParams{Limit: DefaultListLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("limit must be an integer")
			return
		}
		params.Limit = n
	}
	if verr := validation.ValidateStruct(params); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	entries, err := h.store.List(params.Limit)
	if err != nil {
		rw.InternalError("Failed to list reports", err)
		return
	}

	views := make([]reportView, len(entries))
	for i, e := range entries {
		views[i] = reportView{
			Name:     e.Name,
			Size:     e.Size,
			Modified: e.ModTime,
			URL:      "/api/reports/" + e.Name,
		}
	}
	rw.SuccessList(views, len(views))
}

// LatestReport serves the newest report.
func (h *Handler) LatestReport(w http.ResponseWriter, r *http.Request) {
	latest, err := h.store.Latest()
	if err != nil {
		if errors.Is(err, report.ErrNoReports) {
			NewResponseWriter(w, r).NotFound("no reports generated yet")
			return
		}
		NewResponseWriter(w, r).InternalError("Failed to find latest report", err)
		return
	}
	h.serveReport(w, r, latest.Name)
}

// GetReport serves the report named in the URL.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, chi.URLParam(r, "name"))
}

func (h *Handler) serveReport(w http.ResponseWriter, r *http.Request, name string) {
	data, err := h.store.Open(name)
	switch {
	case errors.Is(err, report.ErrInvalidName):
		NewResponseWriter(w, r).BadRequest("invalid report name")
		return
	case errors.Is(err, fs.ErrNotExist):
		NewResponseWriter(w, r).NotFound("report not found")
		return
	case err != nil:
		NewResponseWriter(w, r).InternalError("Failed to read report", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Report-Name", name)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

// ScheduleStatus returns the scheduler state.
func (h *Handler) ScheduleStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.scheduler == nil {
		rw.NotFound("scheduler not enabled")
		return
	}
	rw.Success(h.scheduler.Status())
}

// runView summarizes a finished run.
type runView struct {
	RunID       string              `json:"run_id"`
	Report      string              `json:"report"`
	PeriodStart time.Time           `json:"period_start"`
	PeriodEnd   time.Time           `json:"period_end"`
	Stats       *models.ReportStats `json:"stats"`
	Skipped     int                 `json:"skipped_records"`
	Mail        string              `json:"mail"`
	MailError   string              `json:"mail_error,omitempty"`
	DurationMs  int64               `json:"duration_ms"`
}

// TriggerRun runs a report immediately with the scheduler's settings.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.scheduler == nil {
		rw.ServiceUnavailable("scheduler not enabled")
		return
	}

	// The run outlives a disconnected client.
	res, err := h.scheduler.RunNow(context.WithoutCancel(r.Context()))
	if errors.Is(err, schedule.ErrRunInProgress) {
		rw.Conflict(err.Error())
		return
	}
	if err != nil {
		status := http.StatusInternalServerError
		stage := pipeline.StageOf(err)
		if stage == pipeline.StageConnect || stage == pipeline.StageFetch {
			status = http.StatusBadGateway
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("On-demand report run failed")
		rw.ErrorWithDetails(status, ErrCodeRunFailed, "report run failed", map[string]string{
			"stage": string(stage),
			"error": err.Error(),
		})
		return
	}

	rw.Success(newRunView(res))
}

func newRunView(res *pipeline.Result) runView {
	v := runView{
		RunID:       res.RunID,
		Report:      res.Report.Name,
		PeriodStart: res.Period.Start,
		PeriodEnd:   res.Period.End,
		Stats:       res.Report.Stats,
		DurationMs:  res.Duration.Milliseconds(),
		Mail:        "not_requested",
	}
	if res.Fetch != nil {
		v.Skipped = res.Fetch.Skipped
	}
	switch {
	case res.Receipt != nil:
		v.Mail = "sent"
	case res.MailSkipped:
		v.Mail = "skipped"
	case res.MailErr != nil:
		v.Mail = "failed"
		v.MailError = res.MailErr.Error()
	}
	return v
}
