// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package pipeline

import (
	"fmt"

	"github.com/tomtom215/baculum-report/internal/bacula"
	"github.com/tomtom215/baculum-report/internal/config"
	"github.com/tomtom215/baculum-report/internal/logging"
	"github.com/tomtom215/baculum-report/internal/mail"
	"github.com/tomtom215/baculum-report/internal/report"
)

// NewAPI builds the Baculum client described by cfg, wrapped in a circuit breaker.
func NewAPI(cfg *config.Config) *bacula.BreakerClient {
	client := bacula.NewClient(bacula.Config{
		Scheme:            cfg.API.Scheme,
		Host:              cfg.API.Host,
		Port:              cfg.API.Port,
		Username:          cfg.API.Username,
		Password:          cfg.API.Password,
		Timeout:           cfg.API.Timeout(),
		MaxRetries:        cfg.API.MaxRetries,
		RequestsPerSecond: cfg.API.RateLimit,
	})
	return bacula.NewBreakerClient(client, bacula.BreakerSettings{})
}

// NewGenerator builds the report generator described by cfg.
func NewGenerator(cfg *config.Config) (*report.Generator, error) {
	renderer, err := report.NewRenderer(cfg.Report.Template)
	if err != nil {
		return nil, fmt.Errorf("load report template: %w", err)
	}
	return report.NewGenerator(renderer, report.NewStore(cfg.Report.Dir),
		report.WithWebURL(cfg.Web.URL()),
		report.WithRetention(report.RetentionPolicy{
			Keep:       cfg.Report.Keep,
			MaxAgeDays: cfg.Report.MaxAgeDays,
		}),
	), nil
}

// NewMailer returns a mail sender for cfg, or nil when the mail section is incomplete.
func NewMailer(cfg *config.Config) *mail.Sender {
	if !cfg.Mail.Complete() {
		return nil
	}
	return mail.NewSender(mail.Config{
		Host:     cfg.Mail.Server,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.Sender(),
		StartTLS: cfg.Mail.StartTLS,
	})
}

// FromConfig assembles a Pipeline from validated configuration.
func FromConfig(cfg *config.Config) (*Pipeline, error) {
	generator, err := NewGenerator(cfg)
	if err != nil {
		return nil, err
	}

	opts := []Option{}
	if sender := NewMailer(cfg); sender != nil {
		opts = append(opts, WithMailer(sender, cfg.Mail.To))
	} else {
		logging.Debug().Msg("Mail not configured, reports will only be saved")
	}

	return New(NewAPI(cfg), generator, opts...), nil
}
