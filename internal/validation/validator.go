// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package validation runs go-playground/validator struct tags with messages
// keyed the way users write them.
//
// Field names come from koanf tags, then json, then query tags, and nested
// fields are joined with dots, so a bad Config.API.Port is reported as
// "api.port", the key used in config.yaml.
//
//	type APIConfig struct {
//	    Host string `koanf:"host" validate:"required"`
//	    Port int    `koanf:"port" validate:"min=1,max=65535"`
//	}
//
//	if errs := validation.ValidateStruct(&cfg); errs != nil {
//	    return fmt.Errorf("invalid configuration: %w", errs)
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(tagName)
	})
	return validate
}

func tagName(fld reflect.StructField) string {
	for _, key := range []string{"koanf", "json", "query"} {
		name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
		switch name {
		case "":
			continue
		case "-":
			return ""
		default:
			return name
		}
	}
	return fld.Name
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string // dotted path, e.g. "mail.to[0]"
	Tag     string // rule name, e.g. "email"
	Param   string // rule parameter, e.g. "65535" for max=65535
	Value   any
	Message string
}

func (e FieldError) Error() string { return e.Message }

// Errors lists every failed rule in struct order.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the failing field paths.
func (e Errors) Fields() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Field
	}
	return out
}

// Details is the error detail object served by the HTTP API.
func (e Errors) Details() map[string]any {
	fields := make([]map[string]any, len(e))
	for i, fe := range e {
		fields[i] = map[string]any{
			"field":   fe.Field,
			"tag":     fe.Tag,
			"message": fe.Message,
		}
	}
	return map[string]any{"fields": fields}
}

// ValidateStruct checks s against its validate tags. It returns nil when s is valid.
func ValidateStruct(s any) Errors {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: s is not a struct.
		return Errors{{Field: "", Tag: "struct", Message: err.Error()}}
	}

	out := make(Errors, len(verrs))
	for i, fe := range verrs {
		path := fieldPath(fe)
		out[i] = FieldError{
			Field:   path,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: message(fe, path),
		}
	}
	return out
}

// fieldPath strips the root type name: "Config.api.port" becomes "api.port".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

// messages are fmt templates taking the field path and the rule parameter.
var messages = map[string]string{
	"required":      "%[1]s is required",
	"email":         "%[1]s must be a valid email address",
	"url":           "%[1]s must be a valid URL",
	"hostname_port": "%[1]s must be a host:port address",
	"oneof":         "%[1]s must be one of: %[2]s",
	"gte":           "%[1]s must be greater than or equal to %[2]s",
	"lte":           "%[1]s must be less than or equal to %[2]s",
	"gt":            "%[1]s must be greater than %[2]s",
	"lt":            "%[1]s must be less than %[2]s",
}

func message(fe validator.FieldError, path string) string {
	if tmpl, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, path, fe.Param())
	}

	var unit string
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice, reflect.Map:
		unit = " items"
	}
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", path, fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", path, fe.Param(), unit)
	}
	return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
}
