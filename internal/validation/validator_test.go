// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package validation

import (
	"errors"
	"strings"
	"testing"
)

type testServer struct {
	Host string `koanf:"host" validate:"required"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
}

type testConfig struct {
	API    testServer `koanf:"api"`
	Mode   string     `koanf:"mode" validate:"oneof=test production"`
	To     []string   `koanf:"to" validate:"omitempty,min=1,dive,email"`
	Limit  int        `json:"limit" validate:"gte=0,lte=100"`
	Secret string     `koanf:"-" validate:"max=4"`
}

func validTestConfig() testConfig {
	return testConfig{
		API:  testServer{Host: "baculum.local", Port: 9096},
		Mode: "production",
		To:   []string{"ops@example.com"},
	}
}

func TestValidator_Shared(t *testing.T) {
	if Validator() == nil || Validator() != Validator() {
		t.Error("Validator() should return one shared instance")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	cfg := validTestConfig()
	if err := ValidateStruct(&cfg); err != nil {
		t.Errorf("ValidateStruct() = %v, want nil", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*testConfig)
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{
			name:      "missing host",
			mutate:    func(c *testConfig) { c.API.Host = "" },
			wantField: "api.host",
			wantTag:   "required",
			wantMsg:   "api.host is required",
		},
		{
			name:      "port zero",
			mutate:    func(c *testConfig) { c.API.Port = 0 },
			wantField: "api.port",
			wantTag:   "min",
			wantMsg:   "api.port must be at least 1",
		},
		{
			name:      "port too large",
			mutate:    func(c *testConfig) { c.API.Port = 70000 },
			wantField: "api.port",
			wantTag:   "max",
			wantMsg:   "api.port must be at most 65535",
		},
		{
			name:      "unknown mode",
			mutate:    func(c *testConfig) { c.Mode = "weekly" },
			wantField: "mode",
			wantTag:   "oneof",
			wantMsg:   "mode must be one of: test production",
		},
		{
			name:      "bad recipient",
			mutate:    func(c *testConfig) { c.To = []string{"not-an-address"} },
			wantField: "to[0]",
			wantTag:   "email",
			wantMsg:   "to[0] must be a valid email address",
		},
		{
			name:      "json tag name",
			mutate:    func(c *testConfig) { c.Limit = 101 },
			wantField: "limit",
			wantTag:   "lte",
			wantMsg:   "limit must be less than or equal to 100",
		},
		{
			name:      "string length",
			mutate:    func(c *testConfig) { c.Secret = "too-long" },
			wantField: "Secret",
			wantTag:   "max",
			wantMsg:   "must be at most 4 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)

			verr := ValidateStruct(&cfg)
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if len(verr) != 1 {
				t.Fatalf("len(errors) = %d, want 1: %v", len(verr), verr)
			}
			if verr[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr[0].Field, tt.wantField)
			}
			if verr[0].Tag != tt.wantTag {
				t.Errorf("Tag = %q, want %q", verr[0].Tag, tt.wantTag)
			}
			if !strings.Contains(verr[0].Error(), tt.wantMsg) {
				t.Errorf("Error() = %q, want to contain %q", verr[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestErrors_Fields(t *testing.T) {
	cfg := validTestConfig()
	cfg.API = testServer{}

	verr := ValidateStruct(&cfg)
	if verr == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}

	fields := verr.Fields()
	if len(fields) != 2 || fields[0] != "api.host" || fields[1] != "api.port" {
		t.Errorf("Fields() = %v, want [api.host api.port]", fields)
	}
	if !strings.Contains(verr.Error(), "; ") {
		t.Errorf("Error() = %q, want joined messages", verr.Error())
	}
}

func TestErrors_Details(t *testing.T) {
	cfg := validTestConfig()
	cfg.Mode = ""
	cfg.Limit = 500

	details := ValidateStruct(&cfg).Details()
	fields, ok := details["fields"].([]map[string]any)
	if !ok {
		t.Fatalf("details[fields] type = %T", details["fields"])
	}
	if len(fields) != 2 {
		t.Fatalf("len(fields) = %d, want 2", len(fields))
	}
	if fields[0]["field"] != "mode" || fields[1]["field"] != "limit" {
		t.Errorf("fields = %v", fields)
	}
}

func TestErrors_AsError(t *testing.T) {
	cfg := validTestConfig()
	cfg.API.Host = ""

	var err error = ValidateStruct(&cfg)
	var verrs Errors
	if !errors.As(err, &verrs) || verrs.Fields()[0] != "api.host" {
		t.Errorf("errors.As(%v) failed", err)
	}

	if got := (Errors{}).Error(); got != "validation failed" {
		t.Errorf("empty Errors.Error() = %q", got)
	}
}

func TestValidateStruct_NotAStruct(t *testing.T) {
	if verr := ValidateStruct(42); len(verr) != 1 || verr[0].Tag != "struct" {
		t.Errorf("ValidateStruct(42) = %v", verr)
	}
}
