// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package bacula

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is. Each failure kind is distinct:
// a timeout never matches ErrConnection or ErrAPI and vice versa.
var (
	// ErrTimeout means every attempt timed out.
	ErrTimeout = errors.New("bacula api timeout")

	// ErrConnection means every attempt failed to connect.
	ErrConnection = errors.New("bacula api connection failed")

	// ErrAPI covers HTTP error statuses and any non-retryable failure.
	ErrAPI = errors.New("bacula api error")
)

// TimeoutError is returned once the retry budget is spent on timeouts.
type TimeoutError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("bacula api timeout: %s (gave up after %d attempts): %v", e.URL, e.Attempts, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Is matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// ConnectionError is returned once the retry budget is spent on connection failures.
type ConnectionError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("bacula api connection failed: %s (gave up after %d attempts): %v", e.URL, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is matches ErrConnection.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// APIError is a non-retryable failure. StatusCode is the HTTP status for
// error responses and 0 for failures that never produced one (bad request
// construction, undecodable JSON, unsupported scheme).
type APIError struct {
	StatusCode int
	Body       string
	URL        string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("bacula api error: HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("bacula api error: %s: %v", e.URL, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is matches ErrAPI.
func (e *APIError) Is(target error) bool { return target == ErrAPI }

// IsTimeout reports whether err is a retry-exhausted timeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsConnection reports whether err is a retry-exhausted connection failure.
func IsConnection(err error) bool { return errors.Is(err, ErrConnection) }

// IsAPIError reports whether err is a non-retryable API failure.
func IsAPIError(err error) bool { return errors.Is(err, ErrAPI) }

// StatusCode returns the HTTP status carried by an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
