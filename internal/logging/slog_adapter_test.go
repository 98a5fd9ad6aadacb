// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandler_Handle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level     slog.Level
		wantLevel string
	}{
		{slog.LevelDebug, "debug"},
		{slog.LevelInfo, "info"},
		{slog.LevelWarn, "warn"},
		{slog.LevelError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantLevel, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			handler := NewSlogHandlerWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))

			record := slog.NewRecord(time.Now(), tt.level, "supervisor event", 0)
			if err := handler.Handle(context.Background(), record); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			output := buf.String()
			if !strings.Contains(output, `"level":"`+tt.wantLevel+`"`) {
				t.Errorf("Handle() output missing level %q: %s", tt.wantLevel, output)
			}
			if !strings.Contains(output, "supervisor event") {
				t.Errorf("Handle() output missing message: %s", output)
			}
		})
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	t.Parallel()

	handler := NewSlogHandlerWithLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(Info) = true with warn logger, want false")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(Error) = false with warn logger, want true")
	}
}

func TestSlogHandler_AttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slogger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel)))

	slogger.With("service", "report-scheduler").Info("tick", "sent", true, "elapsed", 2*time.Second)
	slogger.WithGroup("run").Info("fetched", "jobs", 12)

	output := buf.String()
	for _, want := range []string{`"service":"report-scheduler"`, `"sent":true`, `"run.jobs":12`, "tick", "fetched"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSlogHandler_NestedGroupsAndErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slogger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel)))

	slogger.WithGroup("tree").WithGroup("api").Error("service failed",
		"err", errors.New("bind: address already in use"),
		slog.Group("restart", "backoff", true),
	)

	output := buf.String()
	for _, want := range []string{
		`"tree.api.err":"bind: address already in use"`,
		`"tree.api.restart.backoff":true`,
		`"level":"error"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}
}
