// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package mail delivers HTML reports over authenticated SMTP.
//
// Each attempt is a fresh SMTP session: dial, EHLO, STARTTLS (TLS 1.2+),
// PLAIN auth, MAIL/RCPT/DATA and QUIT. Failed attempts are retried up to
// MaxAttempts times with a delay that doubles from RetryDelay.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/baculum-report/internal/logging"
)

// Defaults applied by NewSender for zero Config fields.
const (
	DefaultPort        = 587
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

var (
	// ErrSend is matched by every *SendError.
	ErrSend = errors.New("mail send failed")

	// ErrNoRecipients is returned when Send is called without recipients.
	ErrNoRecipients = errors.New("no mail recipients")

	errStartTLSUnsupported = errors.New("server does not support STARTTLS")
)

// SendError is returned once every attempt has failed.
type SendError struct {
	Attempts int
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("mail send failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Is matches ErrSend.
func (e *SendError) Is(target error) bool { return target == ErrSend }

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to Username.
	From string
	// StartTLS fails the session when the server does not offer STARTTLS.
	// When false, STARTTLS is still used if offered.
	StartTLS    bool
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Receipt describes a delivered message.
type Receipt struct {
	MessageID string
	Attempts  int
}

// Sender sends mail through one SMTP server.
type Sender struct {
	cfg    Config
	wait   func(ctx context.Context, d time.Duration) error
	logger zerolog.Logger
}

// Option customizes a Sender.
type Option func(*Sender)

// WithWait replaces the delay between attempts.
func WithWait(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Sender) { s.wait = fn }
}

// NewSender creates a Sender for cfg, applying defaults for zero fields.
func NewSender(cfg Config, opts ...Option) *Sender {
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	s := &Sender{
		cfg:    cfg,
		wait:   sleepContext,
		logger: logging.WithComponent("mail"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers an HTML message to every recipient in one SMTP transaction.
func (s *Sender) Send(ctx context.Context, to []string, subject, html string) (*Receipt, error) {
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}

	msg, messageID, err := buildMessage(message{
		From:     s.cfg.From,
		To:       to,
		Subject:  subject,
		HTML:     html,
		ReportID: logging.RunIDFromContext(ctx),
		Date:     time.Now(),
	})
	if err != nil {
		return nil, &SendError{Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		s.logger.Info().
			Int("attempt", attempt).
			Int("max_attempts", s.cfg.MaxAttempts).
			Strs("to", to).
			Msg("Sending mail")

		lastErr = s.sendOnce(ctx, to, msg)
		if lastErr == nil {
			s.logger.Info().Str("message_id", messageID).Int("attempts", attempt).Msg("Mail sent")
			return &Receipt{MessageID: messageID, Attempts: attempt}, nil
		}

		s.logger.Warn().Err(lastErr).Int("attempt", attempt).Msg("Mail attempt failed")
		if attempt == s.cfg.MaxAttempts {
			return nil, &SendError{Attempts: attempt, Err: lastErr}
		}

		delay := s.cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
		if err := s.wait(ctx, delay); err != nil {
			return nil, &SendError{Attempts: attempt, Err: err}
		}
	}
	return nil, &SendError{Attempts: s.cfg.MaxAttempts, Err: lastErr}
}

// sendOnce runs one complete SMTP session.
func (s *Sender) sendOnce(ctx context.Context, to []string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }() //nolint:errcheck // best effort cleanup
	_ = conn.SetDeadline(time.Now().Add(s.cfg.Timeout)) //nolint:errcheck // deadline is advisory

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }() //nolint:errcheck // best effort cleanup

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{
			ServerName: s.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("start TLS: %w", err)
		}
	} else if s.cfg.StartTLS {
		return errStartTLSUnsupported
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("start message: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	// The message is accepted once DATA completes.
	_ = client.Quit() //nolint:errcheck // delivery already confirmed
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
