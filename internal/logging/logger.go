// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package logging holds the process-wide zerolog logger.
//
// Init configures it once at startup from the logging section of the
// configuration; until then a JSON logger on stderr is in place so early
// failures are still reported.
//
//	logging.Init(cfg.LogConfig(verbose))
//	defer logging.Close()
//
//	logging.Info().Int("jobs", n).Msg("Backup jobs fetched")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Mail delivery failed")
//
// Every event chain must end in Msg or Send, otherwise nothing is written.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level name, see ValidLevel. Default: info
	Level string

	// Format is FormatJSON or FormatConsole. Default: json
	Format string

	// Caller adds file:line to each entry.
	Caller bool

	// Timestamp adds the event time. Default: true
	Timestamp bool

	// Output receives console or JSON output. Default: os.Stderr
	Output io.Writer

	// File tees JSON entries into a rotating file when Path is set.
	File FileConfig
}

// DefaultConfig returns JSON at info level on stderr, without a log file.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    FormatJSON,
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var levels = map[string]zerolog.Level{
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"panic":    zerolog.PanicLevel,
	"disabled": zerolog.Disabled,
}

var (
	mu     sync.RWMutex
	log    zerolog.Logger
	closer io.Closer // rotating file, nil when file logging is off
)

//nolint:gochecknoinits // logging must work before Init
func init() {
	configure(DefaultConfig())
}

// Init replaces the global logger. A log file opened by an earlier Init is closed.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	configure(cfg)
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// configure must be called with mu held.
func configure(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	var out io.Writer = cfg.Output
	if cfg.Format == FormatConsole {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	if closer != nil {
		_ = closer.Close() //nolint:errcheck // replaced below
		closer = nil
	}
	if cfg.File.Path != "" {
		rotating := newRotatingWriter(cfg.File)
		closer = rotating
		out = zerolog.MultiLevelWriter(out, rotating)
	}

	zc := zerolog.New(out).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	log = zc.Logger()
}

// parseLevel maps a level name to zerolog, defaulting to info.
func parseLevel(name string) zerolog.Level {
	if lvl, ok := levels[strings.ToLower(name)]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// ValidLevel reports whether name is a known level name, ignoring case.
func ValidLevel(name string) bool {
	_, ok := levels[strings.ToLower(name)]
	return ok
}

// SetLogger replaces the global logger, mostly for tests.
//
//nolint:gocritic // zerolog.Logger is passed by value by design of the library
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

func current() *zerolog.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	return &l
}

// With starts a child logger:
//
//	l := logging.With().Str("component", "bacula-client").Logger()
func With() zerolog.Context { return current().With() }

func Debug() *zerolog.Event { return current().Debug() }

func Info() *zerolog.Event { return current().Info() }

func Warn() *zerolog.Event { return current().Warn() }

func Error() *zerolog.Event { return current().Error() }

// Err starts an error-level event carrying err, or info level when err is nil.
func Err(err error) *zerolog.Event { return current().Err(err) }
