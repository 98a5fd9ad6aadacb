// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package period resolves the reporting window for a report run.
//
// Two fixed modes exist:
//   - test: the last seven days up to now
//   - production: yesterday 22:00:00 up to now, matching the nightly backup window
//
// All resolvers take the current time as an argument so callers (and tests)
// control the clock. Periods are half-open: [Start, End).
package period

import (
	"errors"
	"fmt"
	"time"
)

// Mode selects how the reporting window is computed.
type Mode string

const (
	// ModeTest covers the last seven days.
	ModeTest Mode = "test"

	// ModeProduction covers yesterday 22:00 until now.
	ModeProduction Mode = "production"
)

// productionStartHour is the hour of the previous day the production window opens.
const productionStartHour = 22

// testLookback is the span covered by test mode.
const testLookback = 7 * 24 * time.Hour

// Time layouts used across the report pipeline.
const (
	// APILayout is the timestamp format of Baculum API parameters and job records.
	APILayout = "2006-01-02 15:04:05"

	// DisplayLayout is used in logs and the rendered report.
	DisplayLayout = "2006-01-02 15:04"

	// DateLayout is used in mail subjects.
	DateLayout = "2006-01-02"

	// TimestampLayout is used in generated report filenames.
	TimestampLayout = "20060102150405"
)

var (
	// ErrInvalidMode is returned for mode names other than test and production.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidRange is returned when a custom period ends before it starts.
	ErrInvalidRange = errors.New("invalid period range")
)

// ParseMode converts a command-line mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTest, ModeProduction:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q (use %q or %q)", ErrInvalidMode, s, ModeTest, ModeProduction)
	}
}

// Period is a half-open reporting window [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// TestPeriod returns (now - 7 days, now).
func TestPeriod(now time.Time) Period {
	return Period{Start: now.Add(-testLookback), End: now}
}

// ProductionPeriod returns (yesterday at 22:00:00.000, now) in now's location.
func ProductionPeriod(now time.Time) Period {
	y := now.AddDate(0, 0, -1)
	start := time.Date(y.Year(), y.Month(), y.Day(), productionStartHour, 0, 0, 0, now.Location())
	return Period{Start: start, End: now}
}

// Resolve returns the period for mode at the given instant.
func Resolve(mode Mode, now time.Time) (Period, error) {
	switch mode {
	case ModeTest:
		return TestPeriod(now), nil
	case ModeProduction:
		return ProductionPeriod(now), nil
	default:
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// Custom builds a period from explicit bounds.
func Custom(start, end time.Time) (Period, error) {
	if end.Before(start) {
		return Period{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, FormatAPI(end), FormatAPI(start))
	}
	return Period{Start: start, End: end}, nil
}

// ParseAPITime parses a timestamp in APILayout using the local time zone.
func ParseAPITime(s string) (time.Time, error) {
	return time.ParseInLocation(APILayout, s, time.Local)
}

// Contains reports whether t falls inside [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Duration returns the length of the period.
func (p Period) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// String renders the period for logs.
func (p Period) String() string {
	return FormatDisplay(p.Start) + " ~ " + FormatDisplay(p.End)
}

// FormatAPI formats t for Baculum API query parameters.
func FormatAPI(t time.Time) string { return t.Format(APILayout) }

// FormatDisplay formats t for logs and reports.
func FormatDisplay(t time.Time) string { return t.Format(DisplayLayout) }

// FormatDate formats the calendar date of t.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// FormatTimestamp formats t for report filenames.
func FormatTimestamp(t time.Time) string { return t.Format(TimestampLayout) }
