// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package bacula

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/baculum-report/internal/logging"
	"github.com/tomtom215/baculum-report/internal/metrics"
)

// BreakerName labels the Baculum breaker in logs and metrics.
const BreakerName = "baculum-api"

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit. Default: 5
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before a half-open probe. Default: 1m
	OpenTimeout time.Duration
}

// BreakerClient wraps Client with a circuit breaker so a dead Baculum API is
// not hammered by every scheduled run. Each call still performs its own retries;
// the breaker counts the final result of a call, not individual attempts.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewBreakerClient wraps client with a breaker configured by s.
func NewBreakerClient(client *Client, s BreakerSettings) *BreakerClient {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = time.Minute
	}
	name := BreakerName

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= s.ConsecutiveFailures
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},

		// Client errors and caller cancellation say nothing about API health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) {
				return true
			}
			code := StatusCode(err)
			return code >= 400 && code < 500
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerClient{client: client, cb: cb, name: name}
}

// State returns the current breaker state.
func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}

// execute runs fn through the breaker and records the result.
func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return result, nil
}

// Ping checks connectivity through the breaker.
func (b *BreakerClient) Ping(ctx context.Context) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.client.Ping(ctx)
	})
	return err
}

// Fetch returns job records through the breaker.
func (b *BreakerClient) Fetch(ctx context.Context, q JobQuery) ([]Record, error) {
	res, err := b.execute(func() (any, error) {
		return b.client.Fetch(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return res.([]Record), nil
}

// FetchJob returns one job detail record through the breaker.
func (b *BreakerClient) FetchJob(ctx context.Context, jobID int64) (Record, error) {
	res, err := b.execute(func() (any, error) {
		return b.client.FetchJob(ctx, jobID)
	})
	if err != nil {
		return nil, err
	}
	return res.(Record), nil
}

// FetchClients returns client records through the breaker.
func (b *BreakerClient) FetchClients(ctx context.Context) ([]Record, error) {
	res, err := b.execute(func() (any, error) {
		return b.client.FetchClients(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]Record), nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
