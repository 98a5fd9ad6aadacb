// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/baculum-report/internal/period"
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("job record parse error")

// errMissing marks an absent or null required field.
var errMissing = errors.New("missing required field")

// ParseError describes the first field of a raw record that could not be parsed.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse job record: field %q: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// IsMissing reports whether err is a ParseError for an absent required field.
func IsMissing(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && errors.Is(pe.Err, errMissing)
}

// ParseJob builds a BackupJob from one decoded jobs record.
//
// jobid, name, client, jobstatus, level and starttime are required. endtime
// may be null or empty for running jobs. jobbytes, jobfiles and joberrors
// default to 0 and type, pool and fileset default to "".
func ParseJob(raw map[string]any) (*BackupJob, error) {
	jobID, err := requiredInt(raw, "jobid")
	if err != nil {
		return nil, err
	}
	name, err := requiredString(raw, "name")
	if err != nil {
		return nil, err
	}
	client, err := requiredString(raw, "client")
	if err != nil {
		return nil, err
	}
	status, err := requiredString(raw, "jobstatus")
	if err != nil {
		return nil, err
	}
	if status == "" {
		return nil, &ParseError{Field: "jobstatus", Err: errors.New("empty status code")}
	}
	level, err := requiredString(raw, "level")
	if err != nil {
		return nil, err
	}
	start, err := requiredTime(raw, "starttime")
	if err != nil {
		return nil, err
	}
	end, err := optionalTime(raw, "endtime")
	if err != nil {
		return nil, err
	}

	job := &BackupJob{
		JobID:       jobID,
		JobName:     name,
		ClientName:  client,
		Status:      JobStatus(status),
		Level:       JobLevel(level),
		JobType:     optionalString(raw, "type"),
		StartTime:   start,
		EndTime:     end,
		PoolName:    optionalString(raw, "pool"),
		FilesetName: optionalString(raw, "fileset"),
	}
	if job.BackupBytes, err = optionalInt(raw, "jobbytes"); err != nil {
		return nil, err
	}
	if job.JobFiles, err = optionalInt(raw, "jobfiles"); err != nil {
		return nil, err
	}
	if job.JobErrors, err = optionalInt(raw, "joberrors"); err != nil {
		return nil, err
	}
	return job, nil
}

func requiredString(raw map[string]any, field string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", &ParseError{Field: field, Err: errMissing}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ParseError{Field: field, Err: fmt.Errorf("expected string, got %T", v)}
	}
	return s, nil
}

func optionalString(raw map[string]any, field string) string {
	switch v := raw[field].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func requiredInt(raw map[string]any, field string) (int64, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return 0, &ParseError{Field: field, Err: errMissing}
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, &ParseError{Field: field, Err: err}
	}
	return n, nil
}

// optionalInt returns 0 for absent, null or empty values. Present but
// malformed numbers are still an error.
func optionalInt(raw map[string]any, field string) (int64, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return 0, nil
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return 0, nil
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, &ParseError{Field: field, Err: err}
	}
	return n, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", n.String())
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(n)
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("non-integral number %v", f)
	}
	return int64(f), nil
}

func requiredTime(raw map[string]any, field string) (time.Time, error) {
	s, err := requiredString(raw, field)
	if err != nil {
		return time.Time{}, err
	}
	t, err := period.ParseAPITime(s)
	if err != nil {
		return time.Time{}, &ParseError{Field: field, Err: err}
	}
	return t, nil
}

func optionalTime(raw map[string]any, field string) (*time.Time, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &ParseError{Field: field, Err: fmt.Errorf("expected string, got %T", v)}
	}
	if s == "" {
		return nil, nil
	}
	t, err := period.ParseAPITime(s)
	if err != nil {
		return nil, &ParseError{Field: field, Err: err}
	}
	return &t, nil
}
