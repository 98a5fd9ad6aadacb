// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package report renders backup statistics to HTML and manages the
// generated report files.
//
// Security:
//   - All job fields are HTML-escaped through html/template
//   - Report names read back from disk must match mail_*.html
package report

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/baculum-report/internal/models"
	"github.com/tomtom215/baculum-report/internal/period"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

const defaultTemplate = "templates/report.html.tmpl"

// ErrRender is matched by every rendering failure.
var ErrRender = errors.New("report render failed")

// Data is everything the report template sees.
type Data struct {
	Stats       *models.ReportStats
	Success     []*models.BackupJob
	Failed      []*models.BackupJob
	Running     []*models.BackupJob
	Canceled    []*models.BackupJob
	WebURL      string
	RunID       string
	GeneratedAt time.Time
}

// NewData builds template data from stats and a classification.
func NewData(stats *models.ReportStats, c models.Classification, webURL string) *Data {
	return &Data{
		Stats:       stats,
		Success:     c.Success,
		Failed:      c.Failed,
		Running:     c.Running,
		Canceled:    c.Canceled,
		WebURL:      strings.TrimRight(webURL, "/"),
		GeneratedAt: stats.ReportTime,
	}
}

// Renderer executes the report template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the built-in template, or the file at templatePath
// when it is not empty.
func NewRenderer(templatePath string) (*Renderer, error) {
	var (
		src  []byte
		name = "report"
		err  error
	)
	if templatePath == "" {
		src, err = templateFS.ReadFile(defaultTemplate)
	} else {
		src, err = os.ReadFile(templatePath) //nolint:gosec // operator-supplied template path
		name = templatePath
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read template: %w", ErrRender, err)
	}

	tmpl, err := template.New(name).Funcs(funcMap()).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("%w: parse template %s: %w", ErrRender, name, err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the template for data.
func (r *Renderer) Render(data *Data) (string, error) {
	if data == nil || data.Stats == nil {
		return "", fmt.Errorf("%w: missing report statistics", ErrRender)
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.String(), nil
}

// jobTableData is the argument of the "jobs" sub-template.
type jobTableData struct {
	Jobs       []*models.BackupJob
	WebURL     string
	ShowErrors bool
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatDate":     period.FormatDate,
		"formatDateTime": period.FormatDisplay,
		"formatNumber":   formatWithCommas,
		"formatNumber64": func(n int64) string { return formatWithCommas(int(n)) },
		"formatPercent": func(f float64) string {
			return fmt.Sprintf("%.1f%%", f)
		},
		"formatBytes": models.FormatBytes,
		"statusClass": statusClass,
		"jobURL": func(base string, id int64) string {
			return base + "/web/job/history/" + strconv.FormatInt(id, 10) + "/"
		},
		"jobTable": func(jobs []*models.BackupJob, webURL string, showErrors bool) jobTableData {
			return jobTableData{Jobs: jobs, WebURL: webURL, ShowErrors: showErrors}
		},
	}
}

// statusClass maps a job status to its CSS class.
func statusClass(s models.JobStatus) string {
	switch s {
	case models.StatusSuccess:
		return "status-success"
	case models.StatusFailed, models.StatusError:
		return "status-failed"
	case models.StatusRunning:
		return "status-running"
	case models.StatusCanceled:
		return "status-canceled"
	default:
		return "status-other"
	}
}

// formatWithCommas formats an integer with thousands separators.
func formatWithCommas(n int) string {
	if n < 0 {
		return "-" + formatWithCommas(-n)
	}
	s := strconv.Itoa(n)
	if n < 1000 {
		return s
	}
	var result strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}
