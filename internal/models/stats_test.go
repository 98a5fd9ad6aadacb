// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package models

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

var (
	periodStart = time.Date(2025, 10, 10, 22, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2025, 10, 11, 8, 0, 0, 0, time.UTC)
)

func makeJob(id int64, status JobStatus, level JobLevel, client string, bytes, files int64) *BackupJob {
	return &BackupJob{
		JobID:       id,
		JobName:     fmt.Sprintf("job-%d", id),
		ClientName:  client,
		Status:      status,
		Level:       level,
		JobType:     JobTypeBackup,
		StartTime:   periodStart.Add(time.Duration(id) * time.Minute),
		BackupBytes: bytes,
		JobFiles:    files,
	}
}

func TestAggregate_AlternatingSuccessFailure(t *testing.T) {
	t.Parallel()

	jobs := make([]*BackupJob, 0, 10)
	for i := 0; i < 10; i++ {
		status := StatusSuccess
		if i%2 == 1 {
			status = StatusFailed
		}
		jobs = append(jobs, makeJob(int64(i+1), status, LevelFull, "client-a", 1024, 10))
	}

	stats := Aggregate(jobs, periodStart, periodEnd)

	if stats.TotalJobs != 10 {
		t.Errorf("TotalJobs = %d, want 10", stats.TotalJobs)
	}
	if stats.SuccessCount != 5 {
		t.Errorf("SuccessCount = %d, want 5", stats.SuccessCount)
	}
	if stats.FailedCount != 5 {
		t.Errorf("FailedCount = %d, want 5", stats.FailedCount)
	}
	if got := stats.SuccessRate(); got != 50.0 {
		t.Errorf("SuccessRate() = %v, want 50", got)
	}
	if got := stats.FailedRate(); got != 50.0 {
		t.Errorf("FailedRate() = %v, want 50", got)
	}
	if stats.TotalBackupBytes != 10240 {
		t.Errorf("TotalBackupBytes = %d, want 10240", stats.TotalBackupBytes)
	}
	if stats.TotalFiles != 100 {
		t.Errorf("TotalFiles = %d, want 100", stats.TotalFiles)
	}
	if stats.TotalClients != 1 {
		t.Errorf("TotalClients = %d, want 1", stats.TotalClients)
	}
	if stats.CanceledCount != 0 {
		t.Errorf("CanceledCount = %d, want 0", stats.CanceledCount)
	}
	if !stats.StartPeriod.Equal(periodStart) || !stats.EndPeriod.Equal(periodEnd) {
		t.Errorf("period = %v ~ %v", stats.StartPeriod, stats.EndPeriod)
	}
}

func TestAggregate_EmptyRatesAreZero(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		jobs []*BackupJob
	}{
		{"nil", nil},
		{"empty", []*BackupJob{}},
		{"only canceled", []*BackupJob{
			makeJob(1, StatusCanceled, LevelFull, "a", 100, 1),
			makeJob(2, StatusCanceled, LevelIncremental, "b", 100, 1),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			stats := Aggregate(tt.jobs, periodStart, periodEnd)
			if stats.TotalJobs != 0 {
				t.Errorf("TotalJobs = %d, want 0", stats.TotalJobs)
			}
			if stats.SuccessRate() != 0 || stats.FailedRate() != 0 {
				t.Errorf("rates = %v/%v, want 0/0", stats.SuccessRate(), stats.FailedRate())
			}
		})
	}
}

func TestAggregate_RatesBounded(t *testing.T) {
	t.Parallel()

	statuses := []JobStatus{
		StatusSuccess, StatusFailed, StatusError, StatusRunning, StatusCanceled,
		StatusWaiting, StatusNonFatalFailure, "?",
	}
	for n := 1; n <= 40; n++ {
		jobs := make([]*BackupJob, 0, n)
		for i := 0; i < n; i++ {
			jobs = append(jobs, makeJob(int64(i), statuses[(i*7+n)%len(statuses)], LevelFull, "c", 1, 1))
		}
		stats := Aggregate(jobs, periodStart, periodEnd)
		if sum := stats.SuccessRate() + stats.FailedRate(); sum > 100.0000001 {
			t.Errorf("n=%d: SuccessRate + FailedRate = %v, want <= 100", n, sum)
		}
		if stats.SuccessRate() < 0 || stats.FailedRate() < 0 {
			t.Errorf("n=%d: negative rate", n)
		}
	}
}

func TestAggregate_CanceledCountedOverOriginalList(t *testing.T) {
	t.Parallel()

	jobs := []*BackupJob{
		makeJob(1, StatusCanceled, LevelFull, "a", 0, 0),
		makeJob(2, StatusSuccess, LevelFull, "a", 0, 0),
		makeJob(3, StatusCanceled, LevelIncremental, "b", 0, 0),
		makeJob(4, StatusFailed, LevelDifferential, "c", 0, 0),
		makeJob(5, StatusRunning, LevelIncremental, "d", 0, 0),
		makeJob(6, StatusCanceled, LevelDifferential, "e", 0, 0),
		makeJob(7, "x", LevelFull, "f", 0, 0),
	}

	stats := Aggregate(jobs, periodStart, periodEnd)

	if stats.CanceledCount != 3 {
		t.Errorf("CanceledCount = %d, want 3", stats.CanceledCount)
	}
	if stats.TotalJobs != 4 {
		t.Errorf("TotalJobs = %d, want 4 (canceled excluded)", stats.TotalJobs)
	}
	if stats.RunningCount != 1 {
		t.Errorf("RunningCount = %d, want 1", stats.RunningCount)
	}
	if stats.TotalClients != 4 {
		t.Errorf("TotalClients = %d, want 4 (clients of canceled-only jobs excluded)", stats.TotalClients)
	}
	if got := stats.SuccessRate(); got != 25 {
		t.Errorf("SuccessRate() = %v, want 25", got)
	}
}

func TestAggregate_CanceledBytesExcluded(t *testing.T) {
	t.Parallel()

	jobs := []*BackupJob{
		makeJob(1, StatusCanceled, LevelFull, "a", 5<<30, 1000),
		makeJob(2, StatusSuccess, LevelFull, "a", 0, 0),
		makeJob(3, StatusFailed, LevelIncremental, "b", 0, 0),
	}

	stats := Aggregate(jobs, periodStart, periodEnd)

	if stats.TotalBackupBytes != 0 {
		t.Errorf("TotalBackupBytes = %d, want 0", stats.TotalBackupBytes)
	}
	if stats.TotalFiles != 0 {
		t.Errorf("TotalFiles = %d, want 0", stats.TotalFiles)
	}
	if stats.TotalBackupSizeDisplay() != "0 B" {
		t.Errorf("TotalBackupSizeDisplay() = %q, want 0 B", stats.TotalBackupSizeDisplay())
	}
	if stats.Full().Total != 1 {
		t.Errorf("Full().Total = %d, want 1 (canceled excluded)", stats.Full().Total)
	}
}

func TestAggregate_LevelPartition(t *testing.T) {
	t.Parallel()

	jobs := []*BackupJob{
		makeJob(1, StatusSuccess, LevelFull, "a", 1, 1),
		makeJob(2, StatusFailed, LevelFull, "a", 1, 1),
		makeJob(3, StatusRunning, LevelFull, "a", 1, 1),
		makeJob(4, StatusSuccess, LevelIncremental, "b", 1, 1),
		makeJob(5, StatusSuccess, LevelIncremental, "b", 1, 1),
		makeJob(6, StatusError, LevelDifferential, "c", 1, 1),
		makeJob(7, StatusCanceled, LevelDifferential, "c", 1, 1),
		makeJob(8, StatusSuccess, "V", "d", 1, 1),
		makeJob(9, StatusSuccess, "", "d", 1, 1),
	}

	stats := Aggregate(jobs, periodStart, periodEnd)

	tests := []struct {
		name string
		got  LevelStats
		want LevelStats
	}{
		{"full", stats.Full(), LevelStats{Total: 3, Success: 1, Failed: 1}},
		{"incremental", stats.Incremental(), LevelStats{Total: 2, Success: 2}},
		{"differential", stats.Differential(), LevelStats{Total: 1, Failed: 1}},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %+v, want %+v", tt.name, tt.got, tt.want)
		}
	}

	levelSum := stats.Full().Total + stats.Incremental().Total + stats.Differential().Total
	if levelSum > stats.TotalJobs {
		t.Errorf("level totals %d exceed TotalJobs %d", levelSum, stats.TotalJobs)
	}
	if levelSum != 6 || stats.TotalJobs != 8 {
		t.Errorf("levelSum = %d, TotalJobs = %d, want 6 and 8", levelSum, stats.TotalJobs)
	}
	if len(stats.Levels) != 3 {
		t.Errorf("len(Levels) = %d, want 3 (only F, I, D tracked)", len(stats.Levels))
	}
}

func TestAggregate_LevelsPresentWhenEmpty(t *testing.T) {
	t.Parallel()

	stats := Aggregate(nil, periodStart, periodEnd)
	for _, level := range ReportLevels {
		if _, ok := stats.Levels[level]; !ok {
			t.Errorf("Levels missing %q", level)
		}
	}
}

func TestAggregateAt_ReportTime(t *testing.T) {
	t.Parallel()

	now := periodEnd.Add(time.Minute)
	stats := AggregateAt(nil, periodStart, periodEnd, now)
	if !stats.ReportTime.Equal(now) {
		t.Errorf("ReportTime = %v, want %v", stats.ReportTime, now)
	}
}

func TestSplitCanceled(t *testing.T) {
	t.Parallel()

	jobs := []*BackupJob{
		makeJob(1, StatusCanceled, LevelFull, "a", 0, 0),
		makeJob(2, StatusSuccess, LevelFull, "a", 0, 0),
		makeJob(3, StatusCanceled, LevelFull, "a", 0, 0),
	}
	active, canceled := splitCanceled(jobs)
	if len(active) != 1 || active[0].JobID != 2 {
		t.Errorf("active = %v, want [job 2]", active)
	}
	if len(canceled) != 2 {
		t.Errorf("len(canceled) = %d, want 2", len(canceled))
	}
	if len(jobs) != 3 {
		t.Error("splitCanceled must not modify its input")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	restore := makeJob(4, StatusSuccess, LevelFull, "a", 0, 0)
	restore.JobType = "R"
	jobs := []*BackupJob{
		makeJob(1, StatusSuccess, LevelFull, "a", 0, 0),
		makeJob(2, StatusFailed, LevelFull, "a", 0, 0),
		makeJob(3, StatusError, LevelFull, "a", 0, 0),
		restore,
		makeJob(5, StatusRunning, LevelFull, "a", 0, 0),
		makeJob(6, StatusCanceled, LevelFull, "a", 0, 0),
		makeJob(7, StatusWaiting, LevelFull, "a", 0, 0),
	}

	c := Classify(jobs)

	if len(c.All) != 7 {
		t.Errorf("len(All) = %d, want 7", len(c.All))
	}
	if len(c.Success) != 1 || c.Success[0].JobID != 1 {
		t.Errorf("Success = %v, want only backup job 1", c.Success)
	}
	if len(c.Failed) != 2 {
		t.Errorf("len(Failed) = %d, want 2", len(c.Failed))
	}
	if len(c.Running) != 1 {
		t.Errorf("len(Running) = %d, want 1", len(c.Running))
	}
	if len(c.Canceled) != 1 {
		t.Errorf("len(Canceled) = %d, want 1", len(c.Canceled))
	}
}

func TestReportStats_String(t *testing.T) {
	t.Parallel()

	stats := &ReportStats{TotalJobs: 4, SuccessCount: 3, FailedCount: 1, TotalClients: 2}
	if s := stats.String(); !strings.Contains(s, "total=4") || !strings.Contains(s, "clients=2") {
		t.Errorf("String() = %q", s)
	}
}
