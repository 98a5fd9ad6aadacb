// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package models defines the backup job record, its parser and the
// per-run report statistics derived from a set of jobs.
package models

import (
	"fmt"
	"time"
)

// JobStatus is the one-character Bacula job status code.
// Codes outside the known set are kept verbatim.
type JobStatus string

// Known job status codes.
const (
	StatusSuccess         JobStatus = "T"
	StatusFailed          JobStatus = "f"
	StatusError           JobStatus = "E"
	StatusCanceled        JobStatus = "A"
	StatusRunning         JobStatus = "R"
	StatusCreated         JobStatus = "C"
	StatusMigrated        JobStatus = "M"
	StatusScanned         JobStatus = "S"
	StatusWaiting         JobStatus = "F"
	StatusNonFatalFailure JobStatus = "e"
)

// UnknownLabel is the display label for unrecognized status codes.
const UnknownLabel = "unknown"

var statusLabels = map[JobStatus]string{
	StatusSuccess:         "Success",
	StatusFailed:          "Failed",
	StatusError:           "Error",
	StatusCanceled:        "Canceled",
	StatusRunning:         "Running",
	StatusCreated:         "Created",
	StatusMigrated:        "Migrated",
	StatusScanned:         "Scanned",
	StatusWaiting:         "Waiting",
	StatusNonFatalFailure: "Failed (non-fatal)",
}

// Known reports whether s is one of the documented status codes.
func (s JobStatus) Known() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable status, or UnknownLabel.
func (s JobStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return UnknownLabel
}

// JobLevel is the backup level code.
type JobLevel string

// Backup levels.
const (
	LevelFull         JobLevel = "F"
	LevelIncremental  JobLevel = "I"
	LevelDifferential JobLevel = "D"
)

// ReportLevels are the levels fetched and sub-aggregated for a report, in order.
var ReportLevels = []JobLevel{LevelFull, LevelIncremental, LevelDifferential}

// Label returns the level name, or the raw code when it is not F, I or D.
func (l JobLevel) Label() string {
	switch l {
	case LevelFull:
		return "Full"
	case LevelIncremental:
		return "Incremental"
	case LevelDifferential:
		return "Differential"
	default:
		return string(l)
	}
}

// JobTypeBackup is the job type of reportable backup jobs.
const JobTypeBackup = "B"

// BackupJob is one job execution as reported by the Baculum API.
type BackupJob struct {
	JobID        int64      `json:"job_id"`
	JobName      string     `json:"job_name"`
	ClientName   string     `json:"client_name"`
	Status       JobStatus  `json:"status"`
	Level        JobLevel   `json:"level"`
	JobType      string     `json:"job_type"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"` // nil while the job is still running
	BackupBytes  int64      `json:"backup_bytes"`
	JobFiles     int64      `json:"job_files"`
	JobErrors    int64      `json:"job_errors"`
	PoolName     string     `json:"pool_name,omitempty"`
	FilesetName  string     `json:"fileset_name,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// IsSuccess reports a terminated-normally job.
func (j *BackupJob) IsSuccess() bool { return j.Status == StatusSuccess }

// IsFailed reports a job that ended in f or E.
func (j *BackupJob) IsFailed() bool {
	return j.Status == StatusFailed || j.Status == StatusError
}

// IsCanceled reports a job canceled by an operator.
func (j *BackupJob) IsCanceled() bool { return j.Status == StatusCanceled }

// IsRunning is driven by status only. A missing end time does not imply running.
func (j *BackupJob) IsRunning() bool { return j.Status == StatusRunning }

// IsBackup reports whether the job is a backup rather than a restore or verify.
func (j *BackupJob) IsBackup() bool { return j.JobType == JobTypeBackup }

// DurationAt returns the job runtime, measured against now when EndTime is nil.
func (j *BackupJob) DurationAt(now time.Time) time.Duration {
	end := now
	if j.EndTime != nil {
		end = *j.EndTime
	}
	return end.Sub(j.StartTime)
}

// Duration returns the job runtime against the current time for running jobs.
func (j *BackupJob) Duration() time.Duration {
	return j.DurationAt(time.Now())
}

// DurationDisplay formats Duration as "42s", "5m 3s" or "1h 30m".
func (j *BackupJob) DurationDisplay() string {
	return FormatDuration(j.Duration())
}

// SizeDisplay returns BackupBytes in human readable units.
func (j *BackupJob) SizeDisplay() string {
	return FormatBytes(j.BackupBytes)
}

// StatusDisplay returns the status label.
func (j *BackupJob) StatusDisplay() string { return j.Status.Label() }

// LevelDisplay returns the level label.
func (j *BackupJob) LevelDisplay() string { return j.Level.Label() }

func (j *BackupJob) String() string {
	return fmt.Sprintf("BackupJob(id=%d, name=%s, client=%s, status=%s)",
		j.JobID, j.JobName, j.ClientName, j.StatusDisplay())
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders n with 1024-based units and two decimals, e.g. "1.50 GB".
// Zero renders as "0 B".
func FormatBytes(n int64) string {
	if n == 0 {
		return "0 B"
	}
	size := float64(n)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}

// FormatDuration renders d truncated to whole seconds.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
	}
}
