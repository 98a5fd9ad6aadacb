// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package backup

import (
	"context"
	"errors"

	"github.com/tomtom215/baculum-report/internal/bacula"
	"github.com/tomtom215/baculum-report/internal/logging"
	"github.com/tomtom215/baculum-report/internal/models"
)

// BatchResult holds the jobs parsed from a record batch.
type BatchResult struct {
	Jobs    []*models.BackupJob
	Skipped int
	Raw     int
}

// ParseBatch parses every record, logging and skipping the ones that fail.
func ParseBatch(ctx context.Context, records []bacula.Record) *BatchResult {
	log := logging.Ctx(ctx)
	result := &BatchResult{Jobs: make([]*models.BackupJob, 0, len(records)), Raw: len(records)}

	for i, raw := range records {
		job, err := models.ParseJob(raw)
		if err != nil {
			result.Skipped++
			reason := "malformed"
			if models.IsMissing(err) {
				reason = "missing"
			}
			event := log.Warn().Err(err).Int("index", i).Str("reason", reason)
			if id, ok := raw["jobid"]; ok && id != nil {
				event = event.Interface("jobid", id)
			}
			var pe *models.ParseError
			if errors.As(err, &pe) {
				event = event.Str("field", pe.Field)
			}
			event.Msg("Skipping unparsable job record")
			continue
		}
		result.Jobs = append(result.Jobs, job)
	}

	var success, failed, running, canceled int
	for _, j := range result.Jobs {
		switch {
		case j.IsSuccess():
			success++
		case j.IsFailed():
			failed++
		case j.IsRunning():
			running++
		case j.IsCanceled():
			canceled++
		}
	}

	log.Info().
		Int("parsed", len(result.Jobs)).
		Int("skipped", result.Skipped).
		Int("success", success).
		Int("failed", failed).
		Int("running", running).
		Int("canceled", canceled).
		Msg("Job records parsed")
	if result.Skipped > 0 {
		log.Warn().Int("skipped", result.Skipped).Msg("Some job records could not be parsed")
	}

	return result
}
