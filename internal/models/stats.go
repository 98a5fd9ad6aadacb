// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package models

import (
	"fmt"
	"time"
)

// LevelStats are the sub-totals for one backup level.
type LevelStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// ReportStats summarises the jobs of one reporting period.
//
// Canceled jobs are excluded from every figure except CanceledCount.
type ReportStats struct {
	TotalJobs        int                     `json:"total_jobs"`
	SuccessCount     int                     `json:"success_count"`
	FailedCount      int                     `json:"failed_count"`
	RunningCount     int                     `json:"running_count"`
	CanceledCount    int                     `json:"canceled_count"`
	TotalClients     int                     `json:"total_clients"`
	TotalBackupBytes int64                   `json:"total_backup_bytes"`
	TotalFiles       int64                   `json:"total_files"`
	Levels           map[JobLevel]LevelStats `json:"levels"`
	StartPeriod      time.Time               `json:"start_period"`
	EndPeriod        time.Time               `json:"end_period"`
	ReportTime       time.Time               `json:"report_time"`
}

// SuccessRate is SuccessCount as a percentage of TotalJobs, 0 with no jobs.
func (s *ReportStats) SuccessRate() float64 {
	return percent(s.SuccessCount, s.TotalJobs)
}

// FailedRate is FailedCount as a percentage of TotalJobs, 0 with no jobs.
func (s *ReportStats) FailedRate() float64 {
	return percent(s.FailedCount, s.TotalJobs)
}

// Full returns the Full level sub-totals.
func (s *ReportStats) Full() LevelStats { return s.Levels[LevelFull] }

// Incremental returns the Incremental level sub-totals.
func (s *ReportStats) Incremental() LevelStats { return s.Levels[LevelIncremental] }

// Differential returns the Differential level sub-totals.
func (s *ReportStats) Differential() LevelStats { return s.Levels[LevelDifferential] }

// TotalBackupSizeDisplay renders TotalBackupBytes with FormatBytes.
func (s *ReportStats) TotalBackupSizeDisplay() string {
	return FormatBytes(s.TotalBackupBytes)
}

func (s *ReportStats) String() string {
	return fmt.Sprintf("ReportStats(total=%d, success=%d, failed=%d, clients=%d)",
		s.TotalJobs, s.SuccessCount, s.FailedCount, s.TotalClients)
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// splitCanceled separates canceled jobs from the rest. This is the only
// place canceled jobs are filtered; callers aggregate over active and count
// canceled over the original list.
func splitCanceled(jobs []*BackupJob) (active, canceled []*BackupJob) {
	active = make([]*BackupJob, 0, len(jobs))
	for _, j := range jobs {
		if j.IsCanceled() {
			canceled = append(canceled, j)
			continue
		}
		active = append(active, j)
	}
	return active, canceled
}

// Aggregate computes the report statistics for jobs over [start, end).
func Aggregate(jobs []*BackupJob, start, end time.Time) *ReportStats {
	return AggregateAt(jobs, start, end, time.Now())
}

// AggregateAt is Aggregate with an explicit report time.
func AggregateAt(jobs []*BackupJob, start, end, now time.Time) *ReportStats {
	active, canceled := splitCanceled(jobs)

	stats := &ReportStats{
		TotalJobs:     len(active),
		CanceledCount: len(canceled),
		Levels:        make(map[JobLevel]LevelStats, len(ReportLevels)),
		StartPeriod:   start,
		EndPeriod:     end,
		ReportTime:    now,
	}
	for _, level := range ReportLevels {
		stats.Levels[level] = LevelStats{}
	}

	clients := make(map[string]struct{})
	for _, j := range active {
		clients[j.ClientName] = struct{}{}
		stats.TotalBackupBytes += j.BackupBytes
		stats.TotalFiles += j.JobFiles

		switch {
		case j.IsSuccess():
			stats.SuccessCount++
		case j.IsFailed():
			stats.FailedCount++
		case j.IsRunning():
			stats.RunningCount++
		}

		ls, ok := stats.Levels[j.Level]
		if !ok {
			continue
		}
		ls.Total++
		if j.IsSuccess() {
			ls.Success++
		} else if j.IsFailed() {
			ls.Failed++
		}
		stats.Levels[j.Level] = ls
	}
	stats.TotalClients = len(clients)

	return stats
}

// Classification groups jobs for rendering.
type Classification struct {
	All      []*BackupJob
	Success  []*BackupJob // backup jobs only
	Failed   []*BackupJob
	Running  []*BackupJob
	Canceled []*BackupJob
}

// Classify splits jobs by outcome. Successful restores and verifies are left
// out of Success.
func Classify(jobs []*BackupJob) Classification {
	c := Classification{All: jobs}
	for _, j := range jobs {
		switch {
		case j.IsSuccess():
			if j.IsBackup() {
				c.Success = append(c.Success, j)
			}
		case j.IsFailed():
			c.Failed = append(c.Failed, j)
		case j.IsRunning():
			c.Running = append(c.Running, j)
		case j.IsCanceled():
			c.Canceled = append(c.Canceled, j)
		}
	}
	return c
}
