// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// zipcodePattern matches normalized Swedish postal codes: five digits, no
// leading zero.
var zipcodePattern = regexp.MustCompile(`^[1-9][0-9]{4}$`)

// NormalizeZipcode strips whitespace and validates a Swedish 5-digit
// postal code. Returns nil for empty or malformed input.
func NormalizeZipcode(raw string) *int {
	cleaned := strings.ReplaceAll(raw, " ", "")
	if !zipcodePattern.MatchString(cleaned) {
		return nil
	}
	z, err := strconv.Atoi(cleaned)
	if err != nil {
		return nil
	}
	return &z
}

// DatetimeLayout is the canonical UTC ISO-8601 layout used throughout the
// pipeline.
const DatetimeLayout = "2006-01-02T15:04:05Z"

// datetimeLayouts lists the input layouts accepted from providers, tried
// in order.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NormalizeDatetime parses a provider datetime string and renders it in
// the canonical UTC layout. Layouts without an offset are interpreted in
// loc (nil means UTC). Returns "" for empty or unparsable input rather
// than an error: a missing datetime is a data condition, not a failure.
func NormalizeDatetime(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range datetimeLayouts {
		var (
			t   time.Time
			err error
		)
		if strings.Contains(layout, "Z07:00") {
			t, err = time.Parse(layout, raw)
		} else {
			t, err = time.ParseInLocation(layout, raw, loc)
		}
		if err == nil {
			return t.UTC().Format(DatetimeLayout)
		}
	}
	return ""
}

// ParseDatetime parses a canonical or RFC3339 datetime string.
func ParseDatetime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{DatetimeLayout, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsPast reports whether the datetime string is strictly before now.
// Empty or unparsable values are not past: retention decisions must not
// drop events on a parsing accident.
func IsPast(value string, now time.Time) bool {
	t, ok := ParseDatetime(value)
	if !ok {
		return false
	}
	return t.Before(now)
}
