// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package schedule runs the report pipeline on a cron schedule.
//
// The schedule uses the standard 5-field cron syntax. At most one run is in
// flight at a time: a tick or a manual RunNow that arrives while another run
// is going is skipped with ErrRunInProgress rather than queued.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tomtom215/baculum-report/internal/logging"
	"github.com/tomtom215/baculum-report/internal/period"
	"github.com/tomtom215/baculum-report/internal/pipeline"
)

// DefaultSpec runs the report every day at 08:00.
const DefaultSpec = "0 8 * * *"

// DefaultExecutionTimeout bounds a single scheduled run.
const DefaultExecutionTimeout = 30 * time.Minute

var (
	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = errors.New("scheduler already running")

	// ErrRunInProgress is returned by RunNow while another run is in flight.
	ErrRunInProgress = errors.New("a report run is already in progress")
)

// Runner executes one report run. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)
}

// Config holds scheduler settings.
type Config struct {
	// Spec is a standard 5-field cron expression (default: DefaultSpec)
	Spec string

	// Mode selects the reporting period of each run
	Mode period.Mode

	// SendMail mails each report
	SendMail bool

	// ExecutionTimeout bounds one run (default: 30 minutes)
	ExecutionTimeout time.Duration

	// Location evaluates Spec in this zone (default: time.Local)
	Location *time.Location
}

// Status is a snapshot of the scheduler for the HTTP API.
type Status struct {
	Spec       string    `json:"spec"`
	Mode       string    `json:"mode"`
	Running    bool      `json:"running"`
	InProgress bool      `json:"in_progress"`
	Next       time.Time `json:"next"`
	LastStart  time.Time `json:"last_start"`
	LastRunID  string    `json:"last_run_id,omitempty"`
	LastReport string    `json:"last_report,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	Runs       int       `json:"runs"`
}

// Scheduler triggers pipeline runs from a cron schedule.
type Scheduler struct {
	runner   Runner
	config   Config
	schedule cron.Schedule
	logger   zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	running bool
	status  Status

	inFlight atomic.Bool
}

// New validates cfg and creates a stopped Scheduler.
func New(runner Runner, cfg Config) (*Scheduler, error) {
	if cfg.Spec == "" {
		cfg.Spec = DefaultSpec
	}
	if cfg.Mode == "" {
		cfg.Mode = period.ModeProduction
	}
	if _, err := period.ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = DefaultExecutionTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	sched, err := cron.ParseStandard(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", cfg.Spec, err)
	}

	return &Scheduler{
		runner:   runner,
		config:   cfg,
		schedule: sched,
		logger:   logging.WithComponent("scheduler"),
		status:   Status{Spec: cfg.Spec, Mode: string(cfg.Mode)},
	}, nil
}

// Start registers the report job and starts the cron loop. Runs use ctx as
// their parent and stop early once it is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	cl := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLocation(s.config.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.entry = c.Schedule(s.schedule, cron.FuncJob(func() { s.trigger(ctx) }))
	c.Start()

	s.cron = c
	s.running = true
	s.status.Running = true

	s.logger.Info().
		Str("spec", s.config.Spec).
		Str("mode", string(s.config.Mode)).
		Bool("send_mail", s.config.SendMail).
		Time("next", c.Entry(s.entry).Next).
		Msg("Report scheduler started")
	return nil
}

// Stop stops the cron loop and waits for a run in progress to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.running = false
	s.status.Running = false
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping report scheduler...")
	<-c.Stop().Done()
	s.logger.Info().Msg("Report scheduler stopped")
	return nil
}

// Next returns the next activation, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	st := func() Status {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.status
	}()
	st.Next = s.Next()
	st.InProgress = s.inFlight.Load()
	return st
}

// RunNow performs one scheduled-style run immediately. It returns
// ErrRunInProgress without running when a scheduled or manual run is
// already in flight.
func (s *Scheduler) RunNow(ctx context.Context) (*pipeline.Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.inFlight.Store(false)

	runID := logging.NewRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	ctx, cancel := context.WithTimeout(ctx, s.config.ExecutionTimeout)
	defer cancel()

	s.mu.Lock()
	s.status.LastStart = time.Now()
	s.status.LastRunID = runID
	s.status.Runs++
	s.mu.Unlock()

	res, err := s.runner.Run(ctx, pipeline.Options{
		Mode:     s.config.Mode,
		SendMail: s.config.SendMail,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status.LastError = err.Error()
		return nil, err
	}
	s.status.LastError = ""
	s.status.LastReport = res.Report.Name
	return res, nil
}

// trigger is the cron job body.
func (s *Scheduler) trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := s.RunNow(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Warn().Msg("Skipping scheduled report run, another run is in progress")
	case err != nil:
		s.logger.Error().Err(err).Msg("Scheduled report run failed")
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
