// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package report

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/baculum-report/internal/logging"
	"github.com/tomtom215/baculum-report/internal/models"
	"github.com/tomtom215/baculum-report/internal/period"
)

// Generator aggregates jobs, renders them and saves the report.
type Generator struct {
	renderer  *Renderer
	store     *Store
	webURL    string
	retention RetentionPolicy
	now       func() time.Time
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithWebURL links jobs to the Baculum web console at url.
func WithWebURL(url string) GeneratorOption {
	return func(g *Generator) { g.webURL = url }
}

// WithRetention prunes old reports after each successful save.
func WithRetention(p RetentionPolicy) GeneratorOption {
	return func(g *Generator) { g.retention = p }
}

// WithNow replaces time.Now for report timestamps and default file names.
func WithNow(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator writing to store.
func NewGenerator(renderer *Renderer, store *Store, opts ...GeneratorOption) *Generator {
	g := &Generator{
		renderer: renderer,
		store:    store,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Store returns the report store.
func (g *Generator) Store() *Store { return g.store }

// Result describes a generated report.
type Result struct {
	Stats          *models.ReportStats
	Classification models.Classification
	Path           string
	Name           string
	HTML           string
}

// Generate builds the report for jobs over p and saves it as filename,
// or DefaultFilename when filename is empty.
func (g *Generator) Generate(ctx context.Context, jobs []*models.BackupJob, p period.Period, filename string) (*Result, error) {
	log := logging.Ctx(ctx)
	now := g.now()

	stats := models.AggregateAt(jobs, p.Start, p.End, now)
	classes := models.Classify(jobs)
	log.Debug().
		Int("success", len(classes.Success)).
		Int("failed", len(classes.Failed)).
		Int("running", len(classes.Running)).
		Int("canceled", len(classes.Canceled)).
		Msg("Jobs classified")

	data := NewData(stats, classes, g.webURL)
	data.RunID = logging.RunIDFromContext(ctx)

	html, err := g.renderer.Render(data)
	if err != nil {
		return nil, err
	}

	if filename == "" {
		filename = DefaultFilename(now)
	}
	path, err := g.store.Save(filename, html)
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	log.Info().Str("path", path).Str("stats", stats.String()).Msg("Report written")

	if removed, err := g.store.Prune(g.retention, now); err != nil {
		log.Warn().Err(err).Msg("Report retention failed")
	} else if len(removed) > 0 {
		log.Info().Strs("removed", removed).Msg("Old reports pruned")
	}

	return &Result{
		Stats:          stats,
		Classification: classes,
		Path:           path,
		Name:           filename,
		HTML:           html,
	}, nil
}
