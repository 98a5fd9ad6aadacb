// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package pipeline runs one report end to end.
//
// A run resolves the reporting period, checks that the Baculum API answers,
// fetches and parses Full, Incremental and Differential backups, renders and
// saves the HTML report and finally mails it. Everything up to the saved
// report is required; mail is best effort and never fails a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/baculum-report/internal/backup"
	"github.com/tomtom215/baculum-report/internal/bacula"
	"github.com/tomtom215/baculum-report/internal/logging"
	"github.com/tomtom215/baculum-report/internal/mail"
	"github.com/tomtom215/baculum-report/internal/metrics"
	"github.com/tomtom215/baculum-report/internal/models"
	"github.com/tomtom215/baculum-report/internal/period"
	"github.com/tomtom215/baculum-report/internal/report"
)

// Stage names the step of a run that failed.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageConnect Stage = "connect"
	StageFetch   Stage = "fetch"
	StageReport  Stage = "report"
)

// StageError wraps the error that stopped a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the failing stage of err, or "" if err is not a StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Mailer delivers a saved report file. *mail.Sender implements it.
type Mailer interface {
	SendReport(ctx context.Context, to []string, path, reportDate string) (*mail.Receipt, error)
}

// Pipeline wires the report stages together.
type Pipeline struct {
	api        bacula.API
	service    *backup.Service
	generator  *report.Generator
	mailer     Mailer
	recipients []string
	now        func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithMailer enables mail delivery to recipients.
func WithMailer(m Mailer, recipients []string) Option {
	return func(p *Pipeline) {
		p.mailer = m
		p.recipients = recipients
	}
}

// WithClock replaces time.Now for period resolution.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithBackupService replaces the default backup.Service built on api.
func WithBackupService(s *backup.Service) Option {
	return func(p *Pipeline) { p.service = s }
}

// New creates a Pipeline reading from api and writing through generator.
func New(api bacula.API, generator *report.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		api:       api,
		generator: generator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.service == nil {
		p.service = backup.NewService(api)
	}
	return p
}

// API returns the Baculum client the pipeline fetches from.
func (p *Pipeline) API() bacula.API {
	return p.api
}

// Options selects what a single run does.
type Options struct {
	// Mode picks the period unless Period is set.
	Mode period.Mode
	// Period overrides Mode with explicit bounds.
	Period *period.Period
	// Output is the report file name; empty uses a timestamped name.
	Output string
	// SendMail mails the report after it is saved.
	SendMail bool
}

// Result describes a finished run.
type Result struct {
	RunID    string
	Period   period.Period
	Fetch    *backup.FetchResult
	Report   *report.Result
	Receipt  *mail.Receipt
	MailErr  error
	Duration time.Duration
	// MailSkipped is set when mail was requested but no mailer is configured.
	MailSkipped bool
}

// Run executes one report run. The returned error is a *StageError.
func (p *Pipeline) Run(ctx context.Context, opts Options) (res *Result, err error) {
	runID := logging.RunIDFromContext(ctx)
	if runID == "" {
		runID = logging.NewRunID()
		ctx = logging.ContextWithRunID(ctx, runID)
	}
	log := logging.Ctx(ctx)

	started := time.Now()
	modeLabel := string(opts.Mode)
	if opts.Period != nil {
		modeLabel = "custom"
	}
	defer func() {
		elapsed := time.Since(started)
		metrics.RecordRun(modeLabel, elapsed, err)
		if err != nil {
			log.Error().Err(err).Dur("elapsed", elapsed).Msg("Report run failed")
			return
		}
		res.Duration = elapsed
		log.Info().Dur("elapsed", elapsed).Str("path", res.Report.Path).Msg("Report run complete")
	}()

	per, err := p.resolve(opts)
	if err != nil {
		return nil, &StageError{Stage: StageResolve, Err: err}
	}
	log.Info().Str("mode", modeLabel).Str("period", per.String()).Msg("Starting report run")

	if err := p.api.Ping(ctx); err != nil {
		return nil, &StageError{Stage: StageConnect, Err: err}
	}

	fetched, err := p.service.FetchPeriod(ctx, per)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	metrics.RecordSkippedRecords(fetched.Skipped)

	generated, err := p.generator.Generate(ctx, fetched.Jobs, per, opts.Output)
	if err != nil {
		return nil, &StageError{Stage: StageReport, Err: err}
	}
	publishJobGauges(generated.Stats)

	res = &Result{
		RunID:  runID,
		Period: per,
		Fetch:  fetched,
		Report: generated,
	}

	if opts.SendMail {
		p.dispatch(ctx, res)
	}
	return res, nil
}

func (p *Pipeline) resolve(opts Options) (period.Period, error) {
	if opts.Period != nil {
		return period.Custom(opts.Period.Start, opts.Period.End)
	}
	return period.Resolve(opts.Mode, p.now())
}

// dispatch mails the saved report. Failures are recorded on res only.
func (p *Pipeline) dispatch(ctx context.Context, res *Result) {
	log := logging.Ctx(ctx)

	if p.mailer == nil || len(p.recipients) == 0 {
		log.Warn().Msg("Mail configuration incomplete, skipping mail")
		metrics.RecordMailSkipped()
		res.MailSkipped = true
		return
	}

	receipt, err := p.mailer.SendReport(ctx, p.recipients, res.Report.Path, period.FormatDate(res.Period.End))
	attempts := 0
	switch {
	case receipt != nil:
		attempts = receipt.Attempts
	case err != nil:
		var se *mail.SendError
		if errors.As(err, &se) {
			attempts = se.Attempts
		}
	}
	metrics.RecordMail(attempts, err)

	if err != nil {
		log.Warn().Err(err).Msg("Report saved but mail delivery failed")
		res.MailErr = err
		return
	}
	res.Receipt = receipt
}

func publishJobGauges(s *models.ReportStats) {
	metrics.SetJobGauges(metrics.JobCounts{
		Total:       s.TotalJobs,
		Success:     s.SuccessCount,
		Failed:      s.FailedCount,
		Running:     s.RunningCount,
		Canceled:    s.CanceledCount,
		BackupBytes: s.TotalBackupBytes,
	})
}
