// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures the rotating log file.
type FileConfig struct {
	// Path of the active log file. Empty disables file logging.
	Path string

	// MaxSizeMB is the size at which the file is rotated.
	// Default: 10
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept.
	// Default: 5
	MaxBackups int

	// MaxAgeDays removes rotated files older than this. 0 keeps them forever.
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool
}

// newRotatingWriter builds a lumberjack writer, creating parent directories lazily.
func newRotatingWriter(cfg FileConfig) *lumberjack.Logger {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}
