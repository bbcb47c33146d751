// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package schema

import (
	"github.com/kulturpuls/kulturpuls/internal/logging"
	"github.com/kulturpuls/kulturpuls/internal/metrics"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

// Filter drops canonically-invalid events, logging each dropped event with
// its field paths. The returned slice preserves input order. Filtering
// never returns an error: an invalid event is a per-event skip, not a
// cycle failure.
func Filter(events []*models.Event) []*models.Event {
	valid := make([]*models.Event, 0, len(events))
	for _, event := range events {
		verr := ValidateEvent(event)
		if verr == nil {
			valid = append(valid, event)
			continue
		}

		metrics.RecordEventInvalid(event.Source)
		for _, fe := range verr.Fields() {
			logging.Info().
				Str("source", event.Source).
				Str("event_id", event.SourceData.EventID).
				Str("path", fe.Path).
				Str("message", fe.Message).
				Msg("Dropping invalid event")
		}
	}
	return valid
}
