// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

// Package schema validates canonical events before they leave the
// ingestion boundary. Validation never fails a cycle: invalid events are
// dropped and logged with the offending field path.
//
// The rules mirror the canonical event contract: name, event_id,
// start_datetime, and venue.name are required; status must be one of the
// known values; price_range holds at most two ascending numbers.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kulturpuls/kulturpuls/internal/models"
)

// singleton validator instance, configured once
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single schema violation with its canonical field path.
type FieldError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return e.Path + ": " + e.Message
}

// ValidationError aggregates all violations found on one event.
type ValidationError struct {
	fieldErrors []FieldError
}

// Fields returns the individual field violations.
func (e *ValidationError) Fields() []FieldError {
	return e.fieldErrors
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.fieldErrors) == 0 {
		return "schema validation failed"
	}
	msgs := make([]string, len(e.fieldErrors))
	for i, fe := range e.fieldErrors {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validator returns the singleton validator instance with the canonical
// event rules registered. Thread-safe.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report json field names so error paths match the canonical
		// serialization instead of Go struct field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		// canonical_datetime: the pipeline's UTC ISO-8601 layout.
		_ = validate.RegisterValidation("canonical_datetime", func(fl validator.FieldLevel) bool {
			_, ok := models.ParseDatetime(fl.Field().String())
			return ok
		})

		// ascending: price_range entries must not decrease.
		_ = validate.RegisterValidation("ascending", func(fl validator.FieldLevel) bool {
			field := fl.Field()
			if field.Kind() != reflect.Slice {
				return false
			}
			prev := 0.0
			for i := 0; i < field.Len(); i++ {
				v := field.Index(i).Float()
				if i > 0 && v < prev {
					return false
				}
				prev = v
			}
			return true
		})
	})

	return validate
}

// ValidateEvent checks an event's canonical projection against the schema.
// Returns nil when valid, or a ValidationError listing every violated
// field path. It never panics and never fails for reasons other than the
// event content.
func ValidateEvent(event *models.Event) *ValidationError {
	err := Validator().Struct(event)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &ValidationError{fieldErrors: []FieldError{{
			Path:    "event",
			Message: err.Error(),
		}}}
	}

	fieldErrors := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		fieldErrors[i] = FieldError{
			Path:    fieldPath(fe),
			Message: translate(fe),
		}
	}
	return &ValidationError{fieldErrors: fieldErrors}
}

// fieldPath renders "Event.source_data.venue.name" as
// "source_data.venue.name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func translate(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "canonical_datetime":
		return "must be a UTC ISO-8601 datetime"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s entries", fe.Param())
	case "ascending":
		return "entries must be ascending"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
