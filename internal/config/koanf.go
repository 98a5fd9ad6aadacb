// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/baculum-report/config.yaml",
	"/etc/baculum-report/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Scheme:         "http",
			TimeoutSeconds: 10,
			MaxRetries:     3,
			RateLimit:      0, // unlimited
		},
		Mail: MailConfig{
			Port:     587,
			StartTLS: true,
		},
		Report: ReportConfig{
			Dir: "reports",
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "console",
			Caller:         false,
			File:           "logs/baculum-report.log",
			FileMaxSize:    10,
			FileMaxBackups: 5,
		},
		Schedule: ScheduleConfig{
			Cron:     "0 8 * * *",
			Mode:     "production",
			SendMail: true,
		},
		Server: ServerConfig{
			Addr:            ":9464",
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       100,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: path if non-empty, else CONFIG_PATH, else the first of DefaultConfigPaths found
//  3. Environment Variables: Override any setting
//
// An explicit path that does not exist is an error; a missing default file is not.
func LoadWithKoanf(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath, err := resolveConfigFile(path)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// resolveConfigFile picks the config file to load, or "" for none.
func resolveConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	return findConfigFile(), nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"mail.to",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := splitList(strVal)
		if len(parts) == 0 {
			// An empty MAIL_TO clears recipients from the file layer.
			parts = []string{}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// splitList splits on commas and semicolons, dropping blanks.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Baculum API
	"baculum_api_scheme":      "api.scheme",
	"baculum_api_host":        "api.host",
	"baculum_api_port":        "api.port",
	"baculum_api_username":    "api.username",
	"baculum_api_password":    "api.password",
	"baculum_api_timeout":     "api.timeout",
	"baculum_api_max_retries": "api.max_retries",
	"baculum_api_rate_limit":  "api.rate_limit",

	// SMTP and recipients
	"smtp_server":   "mail.server",
	"smtp_port":     "mail.port",
	"smtp_username": "mail.username",
	"smtp_password": "mail.password",
	"smtp_starttls": "mail.starttls",
	"mail_from":     "mail.from",
	"mail_to":       "mail.to",

	// Baculum web console
	"baculum_web_host": "web.host",
	"baculum_web_port": "web.port",

	// Report output
	"report_dir":          "report.dir",
	"report_template":     "report.template",
	"report_keep":         "report.keep",
	"report_max_age_days": "report.max_age_days",

	// Logging
	"log_level":            "logging.level",
	"log_format":           "logging.format",
	"log_caller":           "logging.caller",
	"log_file":             "logging.file",
	"log_file_max_size":    "logging.file_max_size",
	"log_file_max_backups": "logging.file_max_backups",

	// Metrics
	"metrics_textfile": "metrics.textfile",

	// Serve mode
	"schedule_cron":         "schedule.cron",
	"schedule_mode":         "schedule.mode",
	"schedule_send_mail":    "schedule.send_mail",
	"http_addr":             "server.addr",
	"http_read_timeout":     "server.read_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_rate_limit":       "server.rate_limit",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - BACULUM_API_HOST -> api.host
//   - SMTP_SERVER -> mail.server
//   - MAIL_TO -> mail.to
//   - LOG_FILE -> logging.file
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables never leak into config.
	return ""
}
