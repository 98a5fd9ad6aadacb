// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package config loads baculum-report configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for all optional settings
//  2. Config File: Optional YAML file (CONFIG_PATH, --config, or a default path)
//  3. Environment Variables: Override any setting
//
// The environment variable names are the ones used by existing Baculum report
// deployments (.env files): BACULUM_API_HOST, SMTP_SERVER, MAIL_TO and so on.
// See envTransformFunc for the full table.
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	API      APIConfig      `koanf:"api"`
	Mail     MailConfig     `koanf:"mail"`
	Web      WebConfig      `koanf:"web"`
	Report   ReportConfig   `koanf:"report"`
	Logging  LoggingConfig  `koanf:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Schedule ScheduleConfig `koanf:"schedule"`
	Server   ServerConfig   `koanf:"server"`
}

// APIConfig holds the Baculum REST API connection settings.
//
// Environment Variables:
//   - BACULUM_API_HOST: API host name or address (required)
//   - BACULUM_API_PORT: API port, 1-65535 (required)
//   - BACULUM_API_USERNAME / BACULUM_API_PASSWORD: Basic Auth credentials (required)
//   - BACULUM_API_TIMEOUT: per-request timeout in seconds (default: 10)
//   - BACULUM_API_MAX_RETRIES: total attempts per request (default: 3)
//   - BACULUM_API_SCHEME: http or https (default: http)
//   - BACULUM_API_RATE_LIMIT: max requests per second, 0 = unlimited (default: 0)
type APIConfig struct {
	Scheme         string  `koanf:"scheme" validate:"oneof=http https"`
	Host           string  `koanf:"host" validate:"required"`
	Port           int     `koanf:"port" validate:"min=1,max=65535"`
	Username       string  `koanf:"username" validate:"required"`
	Password       string  `koanf:"password" validate:"required"`
	TimeoutSeconds int     `koanf:"timeout" validate:"min=1"`
	MaxRetries     int     `koanf:"max_retries" validate:"min=1"`
	RateLimit      float64 `koanf:"rate_limit" validate:"gte=0"`
}

// Timeout returns the per-request timeout as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Address returns host:port.
func (a APIConfig) Address() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// MailConfig holds SMTP settings and report recipients.
// Mail is optional: when incomplete, reports are generated but not sent.
//
// Environment Variables:
//   - SMTP_SERVER, SMTP_PORT (default: 587), SMTP_USERNAME, SMTP_PASSWORD
//   - SMTP_STARTTLS: require STARTTLS even if not advertised (default: true)
//   - MAIL_FROM: sender address (default: SMTP_USERNAME)
//   - MAIL_TO: comma-separated recipients
type MailConfig struct {
	Server   string   `koanf:"server"`
	Port     int      `koanf:"port" validate:"min=1,max=65535"`
	Username string   `koanf:"username"`
	Password string   `koanf:"password"`
	StartTLS bool     `koanf:"starttls"`
	From     string   `koanf:"from" validate:"omitempty,email"`
	To       []string `koanf:"to" validate:"omitempty,dive,email"`
}

// Complete reports whether enough is configured to send mail:
// server, username, password and at least one recipient.
func (m MailConfig) Complete() bool {
	return m.Server != "" && m.Username != "" && m.Password != "" && len(m.To) > 0
}

// Sender returns the envelope sender, falling back to the SMTP username.
func (m MailConfig) Sender() string {
	if m.From != "" {
		return m.From
	}
	return m.Username
}

// WebConfig points at the Baculum web console linked from reports.
//
// Environment Variables:
//   - BACULUM_WEB_HOST, BACULUM_WEB_PORT
type WebConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=0,max=65535"`
}

// URL returns http://host:port, or "" unless both host and port are set.
func (w WebConfig) URL() string {
	if w.Host == "" || w.Port == 0 {
		return ""
	}
	return "http://" + net.JoinHostPort(w.Host, strconv.Itoa(w.Port))
}

// ReportConfig controls where reports are written.
//
// Environment Variables:
//   - REPORT_DIR: output directory (default: reports)
//   - REPORT_TEMPLATE: optional template file replacing the built-in one
//   - REPORT_KEEP: newest reports kept after each run, 0 keeps all (default: 0)
//   - REPORT_MAX_AGE_DAYS: reports older than this are removed, 0 disables (default: 0)
type ReportConfig struct {
	Dir        string `koanf:"dir" validate:"required"`
	Template   string `koanf:"template"`
	Keep       int    `koanf:"keep" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: console)
//   - LOG_CALLER: include caller file:line (default: false)
//   - LOG_FILE: rotating log file path, empty disables (default: logs/baculum-report.log)
//   - LOG_FILE_MAX_SIZE: rotation size in MB (default: 10)
//   - LOG_FILE_MAX_BACKUPS: rotated files kept (default: 5)
type LoggingConfig struct {
	Level          string `koanf:"level"`
	Format         string `koanf:"format"`
	Caller         bool   `koanf:"caller"`
	File           string `koanf:"file"`
	FileMaxSize    int    `koanf:"file_max_size" validate:"gte=0"`
	FileMaxBackups int    `koanf:"file_max_backups" validate:"gte=0"`
}

// MetricsConfig controls Prometheus export for one-shot runs.
//
// Environment Variables:
//   - METRICS_TEXTFILE: write metrics here after each report run (node_exporter textfile collector)
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// ScheduleConfig drives report runs in serve mode.
//
// Environment Variables:
//   - SCHEDULE_CRON: standard 5-field cron expression (default: "0 8 * * *")
//   - SCHEDULE_MODE: test or production (default: production)
//   - SCHEDULE_SEND_MAIL: send each scheduled report (default: true)
type ScheduleConfig struct {
	Cron     string `koanf:"cron"`
	Mode     string `koanf:"mode"`
	SendMail bool   `koanf:"send_mail"`
}

// ServerConfig holds the serve-mode HTTP listener settings.
//
// Environment Variables:
//   - HTTP_ADDR: listen address (default: :9464)
//   - HTTP_RATE_LIMIT: API requests per minute per client IP, 0 disables (default: 100)
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"omitempty,hostname_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"`
}

// Load reads configuration from defaults, the optional config file and the
// environment, then validates it.
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf("")
}
