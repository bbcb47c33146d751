// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package enrich

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kulturpuls/kulturpuls/internal/models"
)

var (
	venuePunctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	venueWhitespace  = regexp.MustCompile(`\s+`)
)

// venueSubstitutions are applied before punctuation stripping so that
// spellings like "Cafe Opera" and "Café Opera" or "Kägelbanan & Co" and
// "Kägelbanan och Co" normalize to the same key.
var venueSubstitutions = strings.NewReplacer(
	"é", "e",
	"&", " och ",
)

// resolveVenue matches the incoming venue against the catalog.
// Deterministic only: an exact normalized name+city match wins, then an
// organizer match against default_organizer. No match is an error; the
// caller treats it as non-fatal.
func (o *Orchestrator) resolveVenue(ctx context.Context, event *models.Event) (int64, error) {
	venues, err := o.store.Venues(ctx)
	if err != nil {
		return 0, fmt.Errorf("read venues: %w", err)
	}

	name := normalizeVenueKey(event.SourceData.Venue.Name)
	city := normalizeVenueKey(event.SourceData.Venue.City)
	if name != "" {
		for _, v := range venues {
			if normalizeVenueKey(v.Name) == name && normalizeVenueKey(v.City) == city {
				return v.ID, nil
			}
		}
	}

	if organizer := normalizeVenueKey(event.SourceData.Organizer); organizer != "" {
		for _, v := range venues {
			if v.DefaultOrganizer != "" && normalizeVenueKey(v.DefaultOrganizer) == organizer {
				return v.ID, nil
			}
		}
	}

	return 0, fmt.Errorf("no catalog venue matches %q in %q",
		event.SourceData.Venue.Name, event.SourceData.Venue.City)
}

// normalizeVenueKey lowercases, applies the documented substitutions,
// strips punctuation, and collapses whitespace.
func normalizeVenueKey(s string) string {
	s = strings.ToLower(s)
	s = venueSubstitutions.Replace(s)
	s = venuePunctuation.ReplaceAllString(s, "")
	s = venueWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
