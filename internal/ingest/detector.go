// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

// Package ingest implements the per-source fetch-and-reconcile cycle:
// temporal filtering, change detection against the persisted snapshot,
// schema validation, and handoff to the batch publisher.
package ingest

import (
	"time"

	"github.com/kulturpuls/kulturpuls/internal/models"
)

// Deltas holds the change detector output for one cycle. The
// concatenation order New, Changed, Deleted affects only logging and
// metrics, not correctness.
type Deltas struct {
	New     []*models.Event
	Changed []*models.Event
	Deleted []*models.Event
}

// Empty reports whether no deltas were detected.
func (d Deltas) Empty() bool {
	return len(d.New) == 0 && len(d.Changed) == 0 && len(d.Deleted) == 0
}

// All returns New ++ Changed ++ Deleted as a single slice.
func (d Deltas) All() []*models.Event {
	out := make([]*models.Event, 0, len(d.New)+len(d.Changed)+len(d.Deleted))
	out = append(out, d.New...)
	out = append(out, d.Changed...)
	out = append(out, d.Deleted...)
	return out
}

// FilterUpcoming drops events whose start time has passed. Events without
// a parsable start_datetime are retained here; the schema validator
// rejects them before publish.
func FilterUpcoming(events []*models.Event, now time.Time) []*models.Event {
	upcoming := make([]*models.Event, 0, len(events))
	for _, event := range events {
		if !models.IsPast(event.SourceData.StartDatetime, now) {
			upcoming = append(upcoming, event)
		}
	}
	return upcoming
}

// DetectChanges diffs the upcoming snapshot against the persisted index
// for one source.
//
//   - Deleted: persisted entries absent from the upcoming snapshot whose
//     stored start is not already past and whose status is not already
//     Deleted. Each is re-emitted with status forced to Deleted; the
//     transition is monotonic and only made here.
//   - New: upcoming entries absent from the persisted index.
//   - Changed: upcoming entries whose canonical serialization differs
//     byte-for-byte from the stored snapshot.
//
// When one fetch yields duplicate event_ids the last occurrence wins; the
// earlier occurrences are discarded before diffing.
func DetectChanges(source string, upcoming []*models.Event, persisted map[string]models.SourceEvent, now time.Time) Deltas {
	upcoming = dedupeByEventID(upcoming)

	upcomingMap := make(map[string]*models.Event, len(upcoming))
	for _, event := range upcoming {
		if id := event.SourceData.EventID; id != "" {
			upcomingMap[id] = event
		}
	}

	var deltas Deltas

	for eventID, stored := range persisted {
		if _, present := upcomingMap[eventID]; present {
			continue
		}
		if models.IsPast(stored.StartDatetime, now) || stored.Status == models.StatusDeleted {
			continue
		}
		deleted := stored
		deleted.Status = models.StatusDeleted
		deltas.Deleted = append(deltas.Deleted, models.NewEvent(source, deleted))
	}

	for _, event := range upcoming {
		stored, exists := persisted[event.SourceData.EventID]
		if !exists {
			deltas.New = append(deltas.New, event)
			continue
		}
		if !models.SameContent(&event.SourceData, &stored) {
			deltas.Changed = append(deltas.Changed, event)
		}
	}

	return deltas
}

// dedupeByEventID keeps the last occurrence of each event_id, preserving
// the position of the first appearance. Events without an id pass through
// untouched.
func dedupeByEventID(events []*models.Event) []*models.Event {
	winners := make(map[string]*models.Event, len(events))
	duplicates := false
	for _, event := range events {
		if id := event.SourceData.EventID; id != "" {
			if _, seen := winners[id]; seen {
				duplicates = true
			}
			winners[id] = event
		}
	}
	if !duplicates {
		return events
	}

	out := make([]*models.Event, 0, len(winners))
	emitted := make(map[string]bool, len(winners))
	for _, event := range events {
		id := event.SourceData.EventID
		if id == "" {
			out = append(out, event)
			continue
		}
		if emitted[id] {
			continue
		}
		emitted[id] = true
		out = append(out, winners[id])
	}
	return out
}
