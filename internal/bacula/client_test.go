// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package bacula

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// waitRecorder captures backoff delays instead of sleeping.
type waitRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (w *waitRecorder) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.delays = append(w.delays, d)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *waitRecorder) got() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.delays...)
}

// newTestClient points a client at rawURL with fast timeouts and recorded waits.
func newTestClient(t *testing.T, rawURL string, cfg Config) (*Client, *waitRecorder) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)

	cfg.Host = host
	cfg.Port = port
	if cfg.Username == "" {
		cfg.Username, cfg.Password = "admin", "secret"
	}
	rec := &waitRecorder{}
	return NewClient(cfg, WithWait(rec.wait)), rec
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{Host: "baculum.local", Port: 9096})

	if got, want := c.BaseURL(), "http://baculum.local:9096/api/v1"; got != want {
		t.Errorf("BaseURL() = %q, want %q", got, want)
	}
	if c.maxRetries != 3 {
		t.Errorf("maxRetries = %d, want 3", c.maxRetries)
	}
	if c.http.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", c.http.Timeout)
	}
	if c.retryBaseDelay != time.Second {
		t.Errorf("retryBaseDelay = %v, want 1s", c.retryBaseDelay)
	}

	https := NewClient(Config{Scheme: "https", Host: "::1", Port: 443})
	if got, want := https.BaseURL(), "https://[::1]:443/api/v1"; got != want {
		t.Errorf("BaseURL() = %q, want %q", got, want)
	}
}

func TestFetch_RequestShape(t *testing.T) {
	var gotQuery url.Values
	var gotPath, gotUser, gotPass, gotAccept string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotUser, gotPass, _ = r.BasicAuth()
		gotAccept = r.Header.Get("Accept")
		writeJSON(w, map[string]any{
			"output": []map[string]any{
				{"jobid": 101, "name": "web-daily", "jobbytes": 9007199254740993},
				{"jobid": 102, "name": "db-daily"},
			},
			"error": 0,
		})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, Config{})
	start := time.Date(2024, 3, 14, 22, 0, 0, 0, time.Local)
	end := time.Date(2024, 3, 15, 8, 0, 0, 0, time.Local)

	records, err := c.Fetch(context.Background(), JobQuery{Start: start, End: end, Level: "F", Type: "B"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotPath != "/api/v1/jobs" {
		t.Errorf("path = %q, want /api/v1/jobs", gotPath)
	}
	if gotUser != "admin" || gotPass != "secret" {
		t.Errorf("basic auth = %q/%q, want admin/secret", gotUser, gotPass)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	wantQuery := map[string]string{
		"starttime": "2024-03-14 22:00:00",
		"endtime":   "2024-03-15 08:00:00",
		"level":     "F",
		"type":      "B",
	}
	for k, v := range wantQuery {
		if gotQuery.Get(k) != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery.Get(k), v)
		}
	}
	if gotQuery.Has("limit") {
		t.Errorf("query has limit = %q, want omitted", gotQuery.Get("limit"))
	}

	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if n, ok := records[0]["jobbytes"].(json.Number); !ok || n.String() != "9007199254740993" {
		t.Errorf("jobbytes = %#v, want exact json.Number", records[0]["jobbytes"])
	}
}

func TestFetch_OmitsZeroQueryValues(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		writeJSON(w, map[string]any{"output": []any{}})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, Config{})
	if _, err := c.Fetch(context.Background(), JobQuery{}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if rawQuery != "" {
		t.Errorf("query = %q, want empty", rawQuery)
	}
}

func TestFetch_MissingOutput(t *testing.T) {
	for _, body := range []string{`{}`, `{"output": null}`, `{"error": 0}`} {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv.URL, Config{})
			records, err := c.Fetch(context.Background(), JobQuery{})
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if records == nil || len(records) != 0 {
				t.Errorf("Fetch() = %#v, want empty non-nil slice", records)
			}

			job, err := c.FetchJob(context.Background(), 7)
			if err != nil {
				t.Fatalf("FetchJob() error = %v", err)
			}
			if job == nil || len(job) != 0 {
				t.Errorf("FetchJob() = %#v, want empty record", job)
			}
		})
	}
}

func TestFetch_HTTPErrorIsFatal(t *testing.T) {
	tests := []struct {
		status int
		body   string
	}{
		{http.StatusUnauthorized, `{"error":"invalid credentials"}`},
		{http.StatusNotFound, "not found"},
		{http.StatusInternalServerError, "director unreachable"},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c, rec := newTestClient(t, srv.URL, Config{})
			_, err := c.Fetch(context.Background(), JobQuery{})

			if !IsAPIError(err) {
				t.Fatalf("Fetch() error = %v, want APIError", err)
			}
			if IsTimeout(err) || IsConnection(err) {
				t.Errorf("APIError also matched timeout/connection: %v", err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("errors.As(*APIError) failed for %T", err)
			}
			if apiErr.StatusCode != tt.status || StatusCode(err) != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Body != tt.body {
				t.Errorf("Body = %q, want %q", apiErr.Body, tt.body)
			}
			if n := hits.Load(); n != 1 {
				t.Errorf("server hits = %d, want 1 (no retry)", n)
			}
			if len(rec.got()) != 0 {
				t.Errorf("waited %v, want no backoff", rec.got())
			}
		})
	}
}

func TestFetch_TimeoutRetriesThenFails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, rec := newTestClient(t, srv.URL, Config{Timeout: 50 * time.Millisecond, MaxRetries: 3})
	_, err := c.Fetch(context.Background(), JobQuery{})

	if !IsTimeout(err) {
		t.Fatalf("Fetch() error = %v, want TimeoutError", err)
	}
	if IsConnection(err) || IsAPIError(err) {
		t.Errorf("TimeoutError conflated with another kind: %v", err)
	}
	var te *TimeoutError
	if errors.As(err, &te) && te.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", te.Attempts)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("server hits = %d, want 3", n)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if got := rec.got(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("backoff delays = %v, want %v", got, want)
	}
}

func TestFetch_ConnectionRetriesThenFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()

	c, rec := newTestClient(t, deadURL, Config{MaxRetries: 4, RetryBaseDelay: 500 * time.Millisecond})
	_, err := c.Fetch(context.Background(), JobQuery{})

	if !IsConnection(err) {
		t.Fatalf("Fetch() error = %v, want ConnectionError", err)
	}
	if IsTimeout(err) || IsAPIError(err) {
		t.Errorf("ConnectionError conflated with another kind: %v", err)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}
	if got := rec.got(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("backoff delays = %v, want %v", got, want)
	}
}

func TestFetch_RecoversAfterDroppedConnection(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("response writer does not support hijacking")
				return
			}
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		writeJSON(w, map[string]any{"output": []map[string]any{{"jobid": 1}}})
	}))
	defer srv.Close()

	c, rec := newTestClient(t, srv.URL, Config{})
	records, err := c.Fetch(context.Background(), JobQuery{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("len(records) = %d, want 1", len(records))
	}
	if got := rec.got(); len(got) != 1 || got[0] != time.Second {
		t.Errorf("backoff delays = %v, want [1s]", got)
	}
}

func TestFetch_InvalidJSONIsFatal(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `<html>maintenance</html>`)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, Config{})
	_, err := c.Fetch(context.Background(), JobQuery{})

	if !IsAPIError(err) {
		t.Fatalf("Fetch() error = %v, want APIError", err)
	}
	if StatusCode(err) != 0 {
		t.Errorf("StatusCode = %d, want 0", StatusCode(err))
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestFetch_UnsupportedSchemeIsFatal(t *testing.T) {
	c := NewClient(Config{Scheme: "gopher", Host: "localhost", Port: 70}, WithWait(func(context.Context, time.Duration) error {
		t.Error("unexpected retry")
		return nil
	}))

	_, err := c.Fetch(context.Background(), JobQuery{})
	if !IsAPIError(err) || StatusCode(err) != 0 {
		t.Errorf("Fetch() error = %v, want APIError with status 0", err)
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"output": []any{}})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, rec := newTestClient(t, srv.URL, Config{})
	_, err := c.Fetch(ctx, JobQuery{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
	if len(rec.got()) != 0 {
		t.Errorf("waited %v after cancellation", rec.got())
	}
}

func TestFetch_CancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c, _ := newTestClient(t, deadURL, Config{})
	c.wait = func(context.Context, time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.Fetch(ctx, JobQuery{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
}

func TestFetchJobAndClients(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs/42", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"output": map[string]any{"jobid": 42, "name": "web-daily"}})
	})
	mux.HandleFunc("/api/v1/clients", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"output": []map[string]any{{"name": "web-fd"}, {"name": "db-fd"}}})
	})
	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("Ping limit = %q, want 1", r.URL.Query().Get("limit"))
		}
		writeJSON(w, map[string]any{"output": []any{}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, Config{})
	ctx := context.Background()

	job, err := c.FetchJob(ctx, 42)
	if err != nil {
		t.Fatalf("FetchJob() error = %v", err)
	}
	if job["name"] != "web-daily" {
		t.Errorf("FetchJob() name = %v", job["name"])
	}

	clients, err := c.FetchClients(ctx)
	if err != nil {
		t.Fatalf("FetchClients() error = %v", err)
	}
	if len(clients) != 2 {
		t.Errorf("len(clients) = %d, want 2", len(clients))
	}

	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

// timeoutErr is a net.Error reporting a timeout.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want failureKind
	}{
		{"net timeout", &url.Error{Op: "Get", URL: "x", Err: timeoutErr{}}, kindTimeout},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), kindTimeout},
		{"dial refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, kindConnection},
		{"dns", &net.DNSError{Err: "no such host", Name: "baculum.invalid"}, kindConnection},
		{"eof", &url.Error{Op: "Get", URL: "x", Err: io.EOF}, kindConnection},
		{"unexpected eof", io.ErrUnexpectedEOF, kindConnection},
		{"other", errors.New("unsupported protocol scheme"), kindNone},
	}

	for _, tt := range tests {
		if got := classify(tt.err); got != tt.want {
			t.Errorf("classify(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestReadBodyForError_Truncates(t *testing.T) {
	big := make([]byte, maxErrorBodySize+100)
	for i := range big {
		big[i] = 'x'
	}
	got := readBodyForError(&byteReader{b: big})
	if len(got) <= maxErrorBodySize || string(got[len(got)-len("(truncated)"):]) != "(truncated)" {
		t.Errorf("readBodyForError() len = %d, want truncated marker", len(got))
	}
}

type byteReader struct {
	b []byte
	i int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}
