// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package backup

import (
	"context"
	"strings"
	"testing"

	"github.com/tomtom215/baculum-report/internal/bacula"
)

func TestParseBatch_ContinuesAfterFailure(t *testing.T) {
	buf := captureLogs(t)

	missingStart := record(2, "T", "F")
	delete(missingStart, "starttime")
	badID := record(3, "T", "I")
	badID["jobid"] = "three"

	records := []bacula.Record{
		record(1, "T", "F"),
		missingStart,
		badID,
		record(4, "f", "D"),
		record(5, "A", "I"),
	}

	res := ParseBatch(context.Background(), records)

	if len(res.Jobs) != 3 {
		t.Errorf("len(Jobs) = %d, want 3 valid records", len(res.Jobs))
	}
	if res.Skipped != 2 || res.Raw != 5 {
		t.Errorf("Skipped = %d, Raw = %d; want 2, 5", res.Skipped, res.Raw)
	}
	if got := []int64{res.Jobs[0].JobID, res.Jobs[1].JobID, res.Jobs[2].JobID}; got[0] != 1 || got[1] != 4 || got[2] != 5 {
		t.Errorf("parsed ids = %v, want [1 4 5]", got)
	}

	logs := buf.String()
	for _, want := range []string{
		"Skipping unparsable job record",
		`"field":"starttime"`,
		`"field":"jobid"`,
		`"jobid":2`,
		`"jobid":"three"`,
		`"skipped":2`,
		`"reason":"missing"`,
		`"reason":"malformed"`,
	} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %s:\n%s", want, logs)
		}
	}
}

func TestParseBatch_Empty(t *testing.T) {
	captureLogs(t)

	res := ParseBatch(context.Background(), nil)
	if res.Jobs == nil {
		t.Error("Jobs = nil, want empty slice")
	}
	if len(res.Jobs) != 0 || res.Skipped != 0 {
		t.Errorf("result = %d jobs, %d skipped; want 0/0", len(res.Jobs), res.Skipped)
	}
}
