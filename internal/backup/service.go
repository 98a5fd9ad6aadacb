// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package backup fetches backup jobs for a reporting period and turns the raw
// API records into parsed jobs.
//
// Full, Incremental and Differential backups are requested one after another
// with type=B and concatenated in that order. Records that fail to parse are
// logged and skipped so one bad row never aborts a report.
package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/baculum-report/internal/bacula"
	"github.com/tomtom215/baculum-report/internal/logging"
	"github.com/tomtom215/baculum-report/internal/models"
	"github.com/tomtom215/baculum-report/internal/period"
)

// DefaultSlowThreshold is the total fetch time above which a warning is logged.
const DefaultSlowThreshold = 10 * time.Second

// Source is the subset of bacula.API needed to fetch jobs.
type Source interface {
	Fetch(ctx context.Context, q bacula.JobQuery) ([]bacula.Record, error)
}

// Service fetches and parses backup jobs.
type Service struct {
	source        Source
	slowThreshold time.Duration
	now           func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithSlowThreshold overrides DefaultSlowThreshold.
func WithSlowThreshold(d time.Duration) Option {
	return func(s *Service) { s.slowThreshold = d }
}

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service reading from source.
func NewService(source Source, opts ...Option) *Service {
	s := &Service{
		source:        source,
		slowThreshold: DefaultSlowThreshold,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchResult is the outcome of fetching one period.
type FetchResult struct {
	Jobs     []*models.BackupJob
	Skipped  int
	Raw      int
	PerLevel map[models.JobLevel]int

	// OutOfPeriod counts parsed jobs whose start time lies outside the
	// requested period. They are kept in Jobs.
	OutOfPeriod int

	Elapsed time.Duration
}

// FetchPeriod fetches every report level for p and parses the records.
// An error from any level fetch aborts the whole fetch.
func (s *Service) FetchPeriod(ctx context.Context, p period.Period) (*FetchResult, error) {
	log := logging.Ctx(ctx).With().Str("component", "backup-service").Logger()
	log.Info().Str("period", p.String()).Msg("Fetching backup jobs by level")

	started := s.now()
	res := &FetchResult{
		Jobs:     []*models.BackupJob{},
		PerLevel: make(map[models.JobLevel]int, len(models.ReportLevels)),
	}

	for _, level := range models.ReportLevels {
		batch, err := s.FetchLevel(ctx, p, level)
		if err != nil {
			return nil, err
		}
		res.PerLevel[level] = batch.Raw
		res.Raw += batch.Raw
		res.Skipped += batch.Skipped
		res.Jobs = append(res.Jobs, batch.Jobs...)
	}

	res.Elapsed = s.now().Sub(started)
	log.Info().
		Int("total", res.Raw).
		Dur("elapsed", res.Elapsed).
		Msg("Backup job fetch complete")
	if res.Elapsed > s.slowThreshold {
		log.Warn().
			Dur("elapsed", res.Elapsed).
			Dur("threshold", s.slowThreshold).
			Msg("Baculum API calls were slow")
	}

	for _, j := range res.Jobs {
		if !p.Contains(j.StartTime) {
			res.OutOfPeriod++
		}
	}
	if res.OutOfPeriod > 0 {
		log.Warn().
			Int("count", res.OutOfPeriod).
			Str("period", p.String()).
			Msg("Baculum returned jobs that started outside the requested period")
	}

	return res, nil
}

// FetchLevel fetches and parses the backups of a single level in p.
func (s *Service) FetchLevel(ctx context.Context, p period.Period, level models.JobLevel) (*BatchResult, error) {
	records, err := s.source.Fetch(ctx, bacula.JobQuery{
		Start: p.Start,
		End:   p.End,
		Level: string(level),
		Type:  models.JobTypeBackup,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s backups: %w", level.Label(), err)
	}
	logging.Ctx(ctx).Info().Str("level", level.Label()).Int("count", len(records)).Msg("Backup jobs fetched")
	return ParseBatch(ctx, records), nil
}
