// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

// Package sync publishes finalized events to the downstream consumer.
// Null and empty fields are stripped here and nowhere else; internal
// serializations keep the canonical shape intact.
package sync

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/kulturpuls/kulturpuls/internal/models"
)

// Stripper produces the boundary projection of an event with all null,
// empty-string, empty-array, and empty-object values removed at every
// nesting level.
type Stripper struct{}

// NewStripper returns a Stripper.
func NewStripper() *Stripper {
	return &Stripper{}
}

// Strip serializes the event and removes empty values recursively.
func (s *Stripper) Strip(event *models.Event) ([]byte, error) {
	raw, err := event.CanonicalJSON()
	if err != nil {
		return nil, fmt.Errorf("serialize event: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("reparse event: %w", err)
	}

	stripped, _ := stripValue(doc)
	out, err := json.Marshal(stripped)
	if err != nil {
		return nil, fmt.Errorf("serialize projection: %w", err)
	}
	return out, nil
}

// stripValue returns the cleaned value and whether it is empty after
// cleaning. Booleans and numbers are never empty; false and zero are
// meaningful values.
func stripValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, true
	case string:
		return val, val == ""
	case map[string]any:
		cleaned := make(map[string]any, len(val))
		for k, inner := range val {
			if c, empty := stripValue(inner); !empty {
				cleaned[k] = c
			}
		}
		return cleaned, len(cleaned) == 0
	case []any:
		cleaned := make([]any, 0, len(val))
		for _, inner := range val {
			if c, empty := stripValue(inner); !empty {
				cleaned = append(cleaned, c)
			}
		}
		return cleaned, len(cleaned) == 0
	default:
		return val, false
	}
}
