// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package bacula is a client for the Baculum REST API (api/v1).
//
// Every call is a GET with HTTP Basic Auth against
// {scheme}://{host}:{port}/api/v1/{resource}. Results are taken from the
// "output" member of the JSON envelope.
//
// Resilience:
//   - Retries: up to MaxRetries attempts on timeouts and connection failures
//   - Backoff: RetryBaseDelay * 2^(attempt-1) between attempts (1s, 2s, 4s)
//   - HTTP error statuses fail immediately with *APIError
//   - Optional request pacing via golang.org/x/time/rate
//   - Optional circuit breaker via BreakerClient
package bacula

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/baculum-report/internal/logging"
	"github.com/tomtom215/baculum-report/internal/metrics"
	"github.com/tomtom215/baculum-report/internal/period"
)

// maxErrorBodySize limits how much of an error response body is kept.
const maxErrorBodySize = 64 * 1024 // 64KB

// Defaults applied by NewClient for zero Config fields.
const (
	DefaultScheme         = "http"
	DefaultTimeout        = 10 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = time.Second
)

// Record is one decoded object from the API "output" member.
type Record = map[string]any

// API is the set of Baculum operations used by the report pipeline.
// Client and BreakerClient both implement it.
type API interface {
	Ping(ctx context.Context) error
	Fetch(ctx context.Context, q JobQuery) ([]Record, error)
	FetchJob(ctx context.Context, jobID int64) (Record, error)
	FetchClients(ctx context.Context) ([]Record, error)
}

// Config holds client connection settings.
type Config struct {
	Scheme            string
	Host              string
	Port              int
	Username          string
	Password          string
	Timeout           time.Duration
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RequestsPerSecond float64 // <= 0 means unlimited
}

// JobQuery filters the jobs resource. Zero values are omitted from the query.
type JobQuery struct {
	Start time.Time
	End   time.Time
	Level string // F, I or D
	Type  string // B for backup jobs
	Limit int
}

// values encodes q as API query parameters.
func (q JobQuery) values() url.Values {
	v := url.Values{}
	if !q.Start.IsZero() {
		v.Set("starttime", period.FormatAPI(q.Start))
	}
	if !q.End.IsZero() {
		v.Set("endtime", period.FormatAPI(q.End))
	}
	if q.Level != "" {
		v.Set("level", q.Level)
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Client talks to the Baculum REST API.
// Safe for concurrent use.
type Client struct {
	baseURL        string
	username       string
	password       string
	http           *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
	limiter        *rate.Limiter
	wait           func(ctx context.Context, d time.Duration) error
	logger         zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is kept as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithWait replaces the backoff wait between attempts.
func WithWait(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.wait = fn }
}

// WithLogger replaces the component logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for cfg, applying defaults for zero fields.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Scheme == "" {
		cfg.Scheme = DefaultScheme
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		baseURL: fmt.Sprintf("%s://%s/api/v1",
			cfg.Scheme, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))),
		username:       cfg.Username,
		password:       cfg.Password,
		http:           &http.Client{Timeout: cfg.Timeout},
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		limiter:        rate.NewLimiter(limit, 1),
		wait:           sleepContext,
		logger:         logging.WithComponent("bacula-client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger.Debug().
		Str("base_url", c.baseURL).
		Dur("timeout", cfg.Timeout).
		Int("max_retries", c.maxRetries).
		Msg("Bacula client initialized")

	return c
}

// BaseURL returns the API root, e.g. http://host:9096/api/v1.
func (c *Client) BaseURL() string { return c.baseURL }

// Ping checks connectivity by requesting a single job.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.get(ctx, "jobs", "jobs", url.Values{"limit": {"1"}}); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Fetch returns the job records matching q. A response without "output"
// yields an empty slice.
func (c *Client) Fetch(ctx context.Context, q JobQuery) ([]Record, error) {
	raw, err := c.get(ctx, "jobs", "jobs", q.values())
	if err != nil {
		return nil, err
	}
	return decodeList(raw, c.baseURL+"/jobs")
}

// FetchJob returns the detail record of one job. A response without
// "output" yields an empty record.
func (c *Client) FetchJob(ctx context.Context, jobID int64) (Record, error) {
	resource := "jobs/" + strconv.FormatInt(jobID, 10)
	raw, err := c.get(ctx, resource, "jobs/{id}", nil)
	if err != nil {
		return nil, err
	}
	return decodeObject(raw, c.baseURL+"/"+resource)
}

// FetchClients returns the Bacula client (file daemon) records.
func (c *Client) FetchClients(ctx context.Context) ([]Record, error) {
	raw, err := c.get(ctx, "clients", "clients", nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, c.baseURL+"/clients")
}

// outcome classifies a single request attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryable
	outcomeFatal
)

// failureKind distinguishes retryable failures.
type failureKind int

const (
	kindNone failureKind = iota
	kindTimeout
	kindConnection
)

func (k failureKind) String() string {
	switch k {
	case kindTimeout:
		return metrics.OutcomeTimeout
	case kindConnection:
		return metrics.OutcomeConnection
	default:
		return "none"
	}
}

// attemptResult is what one attempt produced.
type attemptResult struct {
	outcome outcome
	kind    failureKind
	body    []byte
	err     error
}

// get performs the request with retries and returns the raw "output" member.
// label is the low-cardinality resource name used in metrics.
func (c *Client) get(ctx context.Context, resource, label string, params url.Values) (json.RawMessage, error) {
	reqURL := c.baseURL + "/" + resource
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var last attemptResult
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		c.logger.Debug().Int("attempt", attempt).Int("max", c.maxRetries).Str("url", reqURL).Msg("API request")

		last = c.attempt(ctx, reqURL, label)

		switch last.outcome {
		case outcomeSuccess:
			return extractOutput(last.body, reqURL)
		case outcomeFatal:
			return nil, last.err
		case outcomeRetryable:
		}

		if attempt == c.maxRetries {
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt-1))
		c.logger.Warn().
			Err(last.err).
			Str("kind", last.kind.String()).
			Int("attempt", attempt).
			Int("max", c.maxRetries).
			Dur("retry_in", delay).
			Msg("API request failed, retrying")
		metrics.RecordBaculaRetry(last.kind.String())

		if err := c.wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	c.logger.Error().Err(last.err).Str("kind", last.kind.String()).Str("url", reqURL).Msg("API request retries exhausted")

	if last.kind == kindTimeout {
		return nil, &TimeoutError{URL: reqURL, Attempts: c.maxRetries, Err: last.err}
	}
	return nil, &ConnectionError{URL: reqURL, Attempts: c.maxRetries, Err: last.err}
}

// attempt runs one HTTP exchange and classifies it.
func (c *Client) attempt(ctx context.Context, reqURL, label string) attemptResult {
	start := time.Now()
	res := c.doAttempt(ctx, reqURL)

	result := metrics.OutcomeSuccess
	switch {
	case res.outcome == outcomeRetryable:
		result = res.kind.String()
	case res.outcome == outcomeFatal && ctx.Err() != nil:
		result = metrics.OutcomeCanceled
	case res.outcome == outcomeFatal:
		result = metrics.OutcomeAPIError
	}
	metrics.RecordBaculaRequest(label, result, time.Since(start))

	return res
}

func (c *Client) doAttempt(ctx context.Context, reqURL string) attemptResult {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return attemptResult{outcome: outcomeFatal, err: ctx.Err()}
		}
		return attemptResult{outcome: outcomeFatal, err: &APIError{URL: reqURL, Err: err}}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return attemptResult{outcome: outcomeFatal, err: &APIError{URL: reqURL, Err: fmt.Errorf("failed to create request: %w", err)}}
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportFailure(ctx, reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readBodyForError(resp.Body)
		c.logger.Error().Int("status", resp.StatusCode).Str("url", reqURL).Bytes("body", body).Msg("API HTTP error")
		return attemptResult{outcome: outcomeFatal, err: &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			URL:        reqURL,
		}}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportFailure(ctx, reqURL, err)
	}

	return attemptResult{outcome: outcomeSuccess, body: body}
}

// transportFailure maps an error from sending the request or reading the body.
func (c *Client) transportFailure(ctx context.Context, reqURL string, err error) attemptResult {
	if ctx.Err() != nil {
		return attemptResult{outcome: outcomeFatal, err: ctx.Err()}
	}
	if kind := classify(err); kind != kindNone {
		return attemptResult{outcome: outcomeRetryable, kind: kind, err: err}
	}
	return attemptResult{outcome: outcomeFatal, err: &APIError{URL: reqURL, Err: err}}
}

// classify sorts transport errors into timeouts, connection failures and the rest.
func classify(err error) failureKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return kindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return kindTimeout
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr):
		return kindConnection
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return kindConnection
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return kindConnection
	}
	return kindNone
}

// envelope is the common Baculum response wrapper.
type envelope struct {
	Output json.RawMessage `json:"output"`
}

// extractOutput decodes the envelope and returns its output member.
func extractOutput(body []byte, reqURL string) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &APIError{URL: reqURL, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return env.Output, nil
}

// isEmpty reports whether output was absent or null.
func isEmpty(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// decodeNumbers unmarshals raw keeping numbers as json.Number, so 64-bit
// byte counts survive intact.
func decodeNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func decodeList(raw json.RawMessage, reqURL string) ([]Record, error) {
	if isEmpty(raw) {
		return []Record{}, nil
	}
	var out []Record
	if err := decodeNumbers(raw, &out); err != nil {
		return nil, &APIError{URL: reqURL, Err: fmt.Errorf("failed to decode output: %w", err)}
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

func decodeObject(raw json.RawMessage, reqURL string) (Record, error) {
	if isEmpty(raw) {
		return Record{}, nil
	}
	var out Record
	if err := decodeNumbers(raw, &out); err != nil {
		return nil, &APIError{URL: reqURL, Err: fmt.Errorf("failed to decode output: %w", err)}
	}
	return out, nil
}

// readBodyForError reads the response body for error reporting (max 64KB).
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
