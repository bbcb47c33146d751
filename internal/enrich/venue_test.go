// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package enrich

import (
	"context"
	"testing"

	"github.com/kulturpuls/kulturpuls/internal/models"
)

func TestNormalizeVenueKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "FOLKOPERAN", "folkoperan"},
		{"punctuation stripped", "Folkoperan!", "folkoperan"},
		{"accent substitution", "Café Opera", "cafe opera"},
		{"accent matches plain spelling", "Cafe Opera", "cafe opera"},
		{"ampersand", "Kägelbanan & Co", "kägelbanan och co"},
		{"spelled out och", "Kägelbanan och Co", "kägelbanan och co"},
		{"whitespace collapsed", "  Berns   Salonger ", "berns salonger"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeVenueKey(tt.in); got != tt.want {
				t.Errorf("normalizeVenueKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveVenueExactMatch(t *testing.T) {
	store := defaultCatalog()
	o := NewOrchestrator(store, &fakeClassifier{}, &fakeForwarder{})

	event := incomingEvent("ev-1")
	event.SourceData.Venue = models.Venue{Name: "FASCHING!", City: "stockholm"}
	id, err := o.resolveVenue(context.Background(), event)
	if err != nil {
		t.Fatalf("resolveVenue: %v", err)
	}
	if id != 30 {
		t.Errorf("venue id = %d, want 30", id)
	}
}

func TestResolveVenueCityMustMatch(t *testing.T) {
	store := defaultCatalog()
	o := NewOrchestrator(store, &fakeClassifier{}, &fakeForwarder{})

	event := incomingEvent("ev-1")
	event.SourceData.Venue = models.Venue{Name: "Fasching", City: "Göteborg"}
	if _, err := o.resolveVenue(context.Background(), event); err == nil {
		t.Fatal("expected no match when city differs")
	}
}

func TestResolveVenueOrganizerFallback(t *testing.T) {
	store := defaultCatalog()
	o := NewOrchestrator(store, &fakeClassifier{}, &fakeForwarder{})

	event := incomingEvent("ev-1")
	event.SourceData.Venue = models.Venue{Name: "Scenen", City: "Stockholm"}
	event.SourceData.Organizer = "folkoperan ab"
	id, err := o.resolveVenue(context.Background(), event)
	if err != nil {
		t.Fatalf("resolveVenue: %v", err)
	}
	if id != 31 {
		t.Errorf("venue id = %d, want 31 via organizer fallback", id)
	}
}

func TestResolveVenueNoMatchIsError(t *testing.T) {
	store := defaultCatalog()
	o := NewOrchestrator(store, &fakeClassifier{}, &fakeForwarder{})

	event := incomingEvent("ev-1")
	event.SourceData.Venue = models.Venue{Name: "Unknown Hall", City: "Malmö"}
	if _, err := o.resolveVenue(context.Background(), event); err == nil {
		t.Fatal("expected error for unmatched venue")
	}
}
