// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/baculum-report/internal/period"
)

// Report file naming.
const (
	FilePrefix = "mail_"
	FileSuffix = ".html"
)

var (
	// ErrNoReports is returned by Latest when the directory holds no reports.
	ErrNoReports = errors.New("no reports found")

	// ErrInvalidName rejects names that are not plain mail_*.html files.
	ErrInvalidName = errors.New("invalid report name")
)

// Entry describes one stored report.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"-"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// RetentionPolicy controls which reports Prune removes.
type RetentionPolicy struct {
	// Keep is the number of newest reports always kept. 0 disables the count rule.
	Keep int
	// MaxAgeDays removes reports older than this. 0 disables the age rule.
	MaxAgeDays int
}

// Store manages report files in a single directory.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// DefaultFilename returns mail_<YYYYMMDDHHMMSS>.html for t.
func DefaultFilename(t time.Time) string {
	return FilePrefix + period.FormatTimestamp(t) + FileSuffix
}

// ValidName reports whether name is a bare mail_*.html file name.
func ValidName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return false
	}
	return strings.HasPrefix(name, FilePrefix) && strings.HasSuffix(name, FileSuffix) &&
		len(name) > len(FilePrefix)+len(FileSuffix)
}

// Save writes html under name, creating directories when needed, and
// returns the absolute path. Any file name is accepted here so --output can
// pick its own, including a relative path inside Dir. Absolute paths and
// paths leaving Dir are rejected. Only reports directly in Dir are listed.
func (s *Store) Save(name, html string) (string, error) {
	rel, ok := cleanRelative(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	path := filepath.Join(s.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0o640); err != nil { //nolint:gosec // reports are not secret
		return "", fmt.Errorf("write report: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil //nolint:nilerr // relative path is still usable
	}
	return abs, nil
}

// cleanRelative cleans name and reports whether it stays inside the store.
func cleanRelative(name string) (string, bool) {
	if name == "" || filepath.IsAbs(name) {
		return "", false
	}
	rel := filepath.Clean(name)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// List returns stored reports newest first. limit <= 0 returns all.
// A missing directory yields an empty list.
func (s *Store) List(limit int) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read report directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !ValidName(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Path:    filepath.Join(s.Dir, de.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// The timestamp in the name sorts lexically.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name > entries[j].Name
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Latest returns the newest report.
func (s *Store) Latest() (Entry, error) {
	entries, err := s.List(1)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNoReports
	}
	return entries[0], nil
}

// Open reads the report called name.
func (s *Store) Open(name string) ([]byte, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", name, err)
	}
	return data, nil
}

// Prune deletes reports outside policy and returns the removed names.
// The newest Keep reports are never removed by the age rule.
func (s *Store) Prune(policy RetentionPolicy, now time.Time) ([]string, error) {
	if policy.Keep <= 0 && policy.MaxAgeDays <= 0 {
		return nil, nil
	}
	entries, err := s.List(0)
	if err != nil {
		return nil, err
	}

	var removed []string
	for i, e := range entries {
		if !shouldPrune(i, e, policy, now) {
			continue
		}
		if err := os.Remove(e.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove report %s: %w", e.Name, err)
		}
		removed = append(removed, e.Name)
	}
	return removed, nil
}

// shouldPrune applies the count rule, then the age rule, to the entry at
// index i of a newest-first list.
func shouldPrune(i int, e Entry, policy RetentionPolicy, now time.Time) bool {
	if policy.Keep > 0 {
		if i < policy.Keep {
			return false
		}
		if policy.MaxAgeDays <= 0 {
			return true
		}
	}
	if policy.MaxAgeDays > 0 {
		return e.ModTime.Before(now.AddDate(0, 0, -policy.MaxAgeDays))
	}
	return false
}
