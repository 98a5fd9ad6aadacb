// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package mail

import (
	"context"
	"fmt"
	"os"

	"github.com/vanng822/go-premailer/premailer"
)

// SubjectPrefix starts every report subject.
const SubjectPrefix = "[Bacula] Backup Report - "

// Subject returns the report subject for reportDate (YYYY-MM-DD).
func Subject(reportDate string) string {
	return SubjectPrefix + reportDate
}

// InlineCSS moves <style> rules onto the elements they match so mail
// clients that strip stylesheets still render the report.
func InlineCSS(html string) (string, error) {
	p, err := premailer.NewPremailerFromString(html, premailer.NewOptions())
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	out, err := p.Transform()
	if err != nil {
		return "", fmt.Errorf("inline css: %w", err)
	}
	return out, nil
}

// SendReport mails the report file at path to recipients. When CSS
// inlining fails the original document is sent.
func (s *Sender) SendReport(ctx context.Context, to []string, path, reportDate string) (*Receipt, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the report store
	if err != nil {
		return nil, &SendError{Err: fmt.Errorf("read report: %w", err)}
	}

	html := string(data)
	inlined, err := InlineCSS(html)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("CSS inlining failed, sending report as is")
	} else {
		html = inlined
	}

	return s.Send(ctx, to, Subject(reportDate), html)
}
