// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package config

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/baculum-report/internal/logging"
	"github.com/tomtom215/baculum-report/internal/period"
	"github.com/tomtom215/baculum-report/internal/validation"
)

// Validate checks that required configuration is present and valid.
// Struct tag rules run first, then the checks that need package knowledge.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateLogging(); err != nil {
		return err
	}

	return c.validateSchedule()
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error (got %q)", c.Logging.Level)
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console (got %q)", c.Logging.Format)
	}
	return nil
}

// validateSchedule validates the serve-mode schedule
func (c *Config) validateSchedule() error {
	if _, err := period.ParseMode(c.Schedule.Mode); err != nil {
		return fmt.Errorf("SCHEDULE_MODE: %w", err)
	}
	if c.Schedule.Cron == "" {
		return nil
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("SCHEDULE_CRON %q: %w", c.Schedule.Cron, err)
	}
	return nil
}

// LogConfig converts the logging section into a logging.Config.
// verbose forces debug level, as --verbose does.
func (c *Config) LogConfig(verbose bool) logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	lc.Caller = c.Logging.Caller
	if verbose {
		lc.Level = "debug"
	}
	lc.File = logging.FileConfig{
		Path:       c.Logging.File,
		MaxSizeMB:  c.Logging.FileMaxSize,
		MaxBackups: c.Logging.FileMaxBackups,
	}
	return lc
}
