// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kulturpuls/kulturpuls/internal/config"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Path:                   filepath.Join(t.TempDir(), "test.duckdb"),
		MaxMemory:              "256MB",
		Threads:                2,
		PreserveInsertionOrder: true,
	}
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testEvent(id string) *models.Event {
	return models.NewEvent("tickster", models.SourceEvent{
		Name:          "Event " + id,
		EventID:       id,
		StartDatetime: "2099-01-01T00:00:00Z",
		Venue:         models.Venue{Name: "Scalateatern", City: "Stockholm"},
	})
}

func TestUpsertEventInsertAndUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	event := testEvent("A")
	first, err := db.UpsertEvent(ctx, event)
	if err != nil {
		t.Fatalf("UpsertEvent() error = %v", err)
	}
	if first.ID == 0 || first.ExternalID == "" {
		t.Fatalf("insert result = %+v, want assigned identity", first)
	}

	// Same key with changed content keeps id and external_id.
	event.SourceData.Description = "updated"
	include := true
	event.CategoryInclude = &include
	second, err := db.UpsertEvent(ctx, event)
	if err != nil {
		t.Fatalf("UpsertEvent() update error = %v", err)
	}
	if second.ID != first.ID || second.ExternalID != first.ExternalID {
		t.Errorf("update result = %+v, want identity preserved from %+v", second, first)
	}

	stored, err := db.GetEvent(ctx, "tickster", "A")
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if stored.SourceData.Description != "updated" {
		t.Errorf("stored description = %q, want updated snapshot", stored.SourceData.Description)
	}
	if !stored.Included() {
		t.Error("stored event not marked included after update")
	}
}

func TestUpsertEventDistinctSources(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, err := db.UpsertEvent(ctx, testEvent("X"))
	if err != nil {
		t.Fatal(err)
	}
	other := testEvent("X")
	other.Source = "billetto"
	b, err := db.UpsertEvent(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("same event_id from different sources must be distinct rows")
	}
}

func TestGetEventEnrichmentRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	catID := int64(3)
	catName := "Concert"
	include := true
	venueID := int64(7)
	event := testEvent("A")
	event.CategoryID = &catID
	event.CategoryName = &catName
	event.CategoryInclude = &include
	event.VenueID = &venueID
	event.ThemeIDs = []int64{1, 4}
	event.GenreIDs = []int64{2}
	event.Subgenres = []string{"indie rock", "post punk"}

	if _, err := db.UpsertEvent(ctx, event); err != nil {
		t.Fatal(err)
	}

	stored, err := db.GetEvent(ctx, "tickster", "A")
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if stored.CategoryID == nil || *stored.CategoryID != 3 {
		t.Errorf("category_id = %v, want 3", stored.CategoryID)
	}
	if stored.CategoryName == nil || *stored.CategoryName != "Concert" {
		t.Errorf("category_name = %v, want Concert", stored.CategoryName)
	}
	if len(stored.ThemeIDs) != 2 || stored.ThemeIDs[1] != 4 {
		t.Errorf("theme_ids = %v, want [1 4]", stored.ThemeIDs)
	}
	if len(stored.Subgenres) != 2 || stored.Subgenres[0] != "indie rock" {
		t.Errorf("subgenres = %v", stored.Subgenres)
	}
	if stored.VenueID == nil || *stored.VenueID != 7 {
		t.Errorf("venue_id = %v, want 7", stored.VenueID)
	}
}

func TestGetEventNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetEvent(context.Background(), "tickster", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEvent() error = %v, want ErrNotFound", err)
	}
}

func TestReadSourceIndex(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"A", "B"} {
		if _, err := db.UpsertEvent(ctx, testEvent(id)); err != nil {
			t.Fatal(err)
		}
	}
	other := testEvent("C")
	other.Source = "billetto"
	if _, err := db.UpsertEvent(ctx, other); err != nil {
		t.Fatal(err)
	}

	index, err := db.ReadSourceIndex(ctx, "tickster")
	if err != nil {
		t.Fatalf("ReadSourceIndex() error = %v", err)
	}
	if len(index) != 2 {
		t.Fatalf("index has %d entries, want 2", len(index))
	}
	if index["A"].Name != "Event A" {
		t.Errorf("index[A] = %+v", index["A"])
	}

	// The index round-trips through the canonical serialization, so an
	// unchanged event compares equal to its stored snapshot.
	fresh := testEvent("A")
	stored := index["A"]
	if !models.SameContent(&fresh.SourceData, &stored) {
		t.Error("stored snapshot differs from identical fresh event")
	}
}

func TestVenueCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	zip := 11152
	created, err := db.CreateVenue(ctx, models.VenueRecord{
		Name:             "Folkoperan",
		City:             "Stockholm",
		Address:          "Hornsgatan 72",
		Zipcode:          &zip,
		DefaultOrganizer: "Folkoperan AB",
		Coordinates:      &models.Coordinates{Latitude: 59.318, Longitude: 18.058},
	})
	if err != nil {
		t.Fatalf("CreateVenue() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatal("CreateVenue() assigned no id")
	}

	got, err := db.GetVenue(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetVenue() error = %v", err)
	}
	if got.Name != "Folkoperan" || got.Zipcode == nil || *got.Zipcode != 11152 {
		t.Errorf("GetVenue() = %+v", got)
	}
	if got.Coordinates == nil || got.Coordinates.Latitude != 59.318 {
		t.Errorf("coordinates = %+v", got.Coordinates)
	}

	got.City = "Sthlm"
	if _, err := db.UpdateVenue(ctx, got); err != nil {
		t.Fatalf("UpdateVenue() error = %v", err)
	}
	updated, err := db.GetVenue(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.City != "Sthlm" {
		t.Errorf("city = %q after update", updated.City)
	}

	if err := db.DeleteVenue(ctx, created.ID); err != nil {
		t.Fatalf("DeleteVenue() error = %v", err)
	}
	if _, err := db.GetVenue(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetVenue() after delete = %v, want ErrNotFound", err)
	}
	if err := db.DeleteVenue(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteVenue() twice = %v, want ErrNotFound", err)
	}
}

func TestCatalogUpserts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.UpsertCategory(ctx, models.Category{Name: "Concert", Include: true, Definition: "Live music"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertCategory(ctx, models.Category{Name: "Concert", Include: false, Definition: "Live music"}); err != nil {
		t.Fatal(err)
	}
	categories, err := db.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(categories) != 1 || categories[0].Include {
		t.Errorf("categories = %+v, want single non-included Concert", categories)
	}

	if err := db.UpsertTheme(ctx, models.Theme{Name: "Pride", Description: "Pride week"}); err != nil {
		t.Fatal(err)
	}
	themes, err := db.Themes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(themes) != 1 || themes[0].Name != "Pride" {
		t.Errorf("themes = %+v", themes)
	}

	if err := db.UpsertGenre(ctx, models.Genre{Name: "Rock"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertGenre(ctx, models.Genre{Name: "Rock"}); err != nil {
		t.Fatal(err)
	}
	genres, err := db.Genres(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(genres) != 1 {
		t.Errorf("genres = %+v, want deduplicated Rock", genres)
	}
}
