// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package services

import (
	"context"
	"fmt"
)

// SchedulerManager is the Start/Stop lifecycle of *schedule.Scheduler.
type SchedulerManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService runs the report scheduler under a supervisor.
type SchedulerService struct {
	manager SchedulerManager
	name    string
}

// NewSchedulerService wraps manager.
func NewSchedulerService(manager SchedulerManager) *SchedulerService {
	return &SchedulerService{
		manager: manager,
		name:    "report-scheduler",
	}
}

// Serve implements suture.Service. It starts the scheduler, blocks until ctx
// is canceled, then stops it. A failed Start is returned so suture restarts
// the service with backoff.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("report scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("report scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

func (s *SchedulerService) String() string {
	return s.name
}
