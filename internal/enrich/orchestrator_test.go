// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/kulturpuls/kulturpuls/internal/classifier"
	"github.com/kulturpuls/kulturpuls/internal/database"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

type fakeStore struct {
	existing   map[string]*models.Event
	categories []models.Category
	themes     []models.Theme
	genres     []models.Genre
	venues     []models.VenueRecord

	upserted  []*models.Event
	upsertErr error
}

func (s *fakeStore) GetEvent(_ context.Context, source, eventID string) (*models.Event, error) {
	if e, ok := s.existing[source+"/"+eventID]; ok {
		return e, nil
	}
	return nil, database.ErrNotFound
}

func (s *fakeStore) UpsertEvent(_ context.Context, event *models.Event) (models.UpsertResult, error) {
	if s.upsertErr != nil {
		return models.UpsertResult{}, s.upsertErr
	}
	s.upserted = append(s.upserted, event)
	return models.UpsertResult{ID: 42, ExternalID: "ext-42"}, nil
}

func (s *fakeStore) Categories(context.Context) ([]models.Category, error) { return s.categories, nil }
func (s *fakeStore) Themes(context.Context) ([]models.Theme, error)       { return s.themes, nil }
func (s *fakeStore) Genres(context.Context) ([]models.Genre, error)       { return s.genres, nil }
func (s *fakeStore) Venues(context.Context) ([]models.VenueRecord, error) { return s.venues, nil }

type fakeClassifier struct {
	category classifier.CategoryResult
	themes   classifier.ThemeResult
	genre    classifier.GenreResult

	categoryErr error
	themeErr    error
	genreErr    error

	categoryCalls int
	themeCalls    int
	genreCalls    int
}

func (c *fakeClassifier) ClassifyCategory(context.Context, *models.Event, []models.CategoryCandidate) (classifier.CategoryResult, error) {
	c.categoryCalls++
	return c.category, c.categoryErr
}

func (c *fakeClassifier) ClassifyThemes(context.Context, *models.Event, []models.Theme) (classifier.ThemeResult, error) {
	c.themeCalls++
	return c.themes, c.themeErr
}

func (c *fakeClassifier) ClassifyGenre(context.Context, *models.Event, []models.Genre) (classifier.GenreResult, error) {
	c.genreCalls++
	return c.genre, c.genreErr
}

type fakeForwarder struct {
	forwarded []*models.Event
	err       error
}

func (f *fakeForwarder) Forward(_ context.Context, event *models.Event) error {
	if f.err != nil {
		return f.err
	}
	f.forwarded = append(f.forwarded, event)
	return nil
}

func defaultCatalog() *fakeStore {
	return &fakeStore{
		existing: map[string]*models.Event{},
		categories: []models.Category{
			{ID: 1, Name: "Concert", Include: true, Definition: "Live music"},
			{ID: 2, Name: "Club", Include: true, Definition: "Club nights"},
			{ID: 3, Name: "Theatre", Include: true, Definition: "Stage plays"},
			{ID: 4, Name: "Conference", Include: false, Definition: "Business events"},
		},
		themes: []models.Theme{
			{ID: 10, Name: "Pride", Description: "LGBTQ events"},
		},
		genres: []models.Genre{
			{ID: 20, Name: "Jazz"},
			{ID: 21, Name: "Rock"},
		},
		venues: []models.VenueRecord{
			{ID: 30, Name: "Fasching", City: "Stockholm"},
			{ID: 31, Name: "Folkoperan", City: "Stockholm", DefaultOrganizer: "Folkoperan AB"},
		},
	}
}

func incomingEvent(id string) *models.Event {
	return models.NewEvent("tickster", models.SourceEvent{
		Name:          "Jazz Night",
		EventID:       id,
		StartDatetime: "2030-06-01T19:00:00Z",
		Venue:         models.Venue{Name: "Fasching", City: "Stockholm"},
	})
}

func TestProcessFirstSeenConcert(t *testing.T) {
	store := defaultCatalog()
	cls := &fakeClassifier{
		category: classifier.CategoryResult{Category: "Concert", Reason: "live"},
		themes:   classifier.ThemeResult{Themes: []string{"Pride"}},
		genre:    classifier.GenreResult{Genre: "Jazz", Subgenres: []string{"Bebop"}},
	}
	fwd := &fakeForwarder{}
	o := NewOrchestrator(store, cls, fwd)

	event := incomingEvent("ev-1")
	if err := o.Process(context.Background(), event); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if event.CategoryID == nil || *event.CategoryID != 1 {
		t.Errorf("CategoryID = %v, want 1", event.CategoryID)
	}
	if !event.Included() {
		t.Error("expected event included")
	}
	if event.VenueID == nil || *event.VenueID != 30 {
		t.Errorf("VenueID = %v, want 30", event.VenueID)
	}
	if len(event.ThemeIDs) != 1 || event.ThemeIDs[0] != 10 {
		t.Errorf("ThemeIDs = %v, want [10]", event.ThemeIDs)
	}
	if len(event.GenreIDs) != 1 || event.GenreIDs[0] != 20 {
		t.Errorf("GenreIDs = %v, want [20]", event.GenreIDs)
	}
	if event.ID != 42 || event.ExternalID != "ext-42" {
		t.Errorf("identity = %d/%q", event.ID, event.ExternalID)
	}
	if len(store.upserted) != 1 {
		t.Errorf("upserts = %d, want 1", len(store.upserted))
	}
	if len(fwd.forwarded) != 1 {
		t.Errorf("forwards = %d, want 1", len(fwd.forwarded))
	}
}

func TestProcessMemoizedNeverReclassifies(t *testing.T) {
	store := defaultCatalog()
	catID, catName, include := int64(1), "Concert", true
	venueID := int64(30)
	store.existing["tickster/ev-1"] = &models.Event{
		Source:          "tickster",
		SourceData:      models.SourceEvent{EventID: "ev-1"},
		CategoryID:      &catID,
		CategoryName:    &catName,
		CategoryInclude: &include,
		VenueID:         &venueID,
		GenreIDs:        []int64{20},
		Subgenres:       []string{"Bebop"},
	}
	cls := &fakeClassifier{}
	o := NewOrchestrator(store, cls, &fakeForwarder{})

	event := incomingEvent("ev-1")
	if err := o.Process(context.Background(), event); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if cls.categoryCalls+cls.themeCalls+cls.genreCalls != 0 {
		t.Error("classifier called despite memoized record")
	}
	if event.CategoryID == nil || *event.CategoryID != 1 {
		t.Errorf("CategoryID = %v, want copied 1", event.CategoryID)
	}
	if event.VenueID == nil || *event.VenueID != 30 {
		t.Errorf("VenueID = %v, want copied 30", event.VenueID)
	}
	if len(event.Subgenres) != 1 || event.Subgenres[0] != "Bebop" {
		t.Errorf("Subgenres = %v", event.Subgenres)
	}
	if len(store.upserted) != 1 {
		t.Error("memoized event must still be persisted")
	}
}

func TestProcessCategoryFailureIsFatal(t *testing.T) {
	store := defaultCatalog()
	cls := &fakeClassifier{categoryErr: errors.New("boom")}
	o := NewOrchestrator(store, cls, &fakeForwarder{})

	err := o.Process(context.Background(), incomingEvent("ev-1"))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.upserted) != 0 {
		t.Error("failed categorization must not persist")
	}
}

func TestProcessExplicitHintSkipsClassifier(t *testing.T) {
	store := defaultCatalog()
	cls := &fakeClassifier{
		themes: classifier.ThemeResult{},
	}
	o := NewOrchestrator(store, cls, &fakeForwarder{})

	event := incomingEvent("ev-1")
	event.SourceData.ExplicitCategory = "theatre"
	if err := o.Process(context.Background(), event); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if cls.categoryCalls != 0 {
		t.Error("classifier called despite explicit hint")
	}
	if event.CategoryName == nil || *event.CategoryName != "Theatre" {
		t.Errorf("CategoryName = %v, want catalog casing Theatre", event.CategoryName)
	}
}

func TestProcessUnknownHintFails(t *testing.T) {
	store := defaultCatalog()
	o := NewOrchestrator(store, &fakeClassifier{}, &fakeForwarder{})

	event := incomingEvent("ev-1")
	event.SourceData.ExplicitCategory = "Opera"
	if err := o.Process(context.Background(), event); err == nil {
		t.Fatal("expected error for hint missing from catalog")
	}
}

func TestProcessExcludedCategoryStopsEnrichment(t *testing.T) {
	store := defaultCatalog()
	cls := &fakeClassifier{
		category: classifier.CategoryResult{Category: "Conference"},
	}
	fwd := &fakeForwarder{}
	o := NewOrchestrator(store, cls, fwd)

	event := incomingEvent("ev-1")
	if err := o.Process(context.Background(), event); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if cls.themeCalls+cls.genreCalls != 0 {
		t.Error("excluded category must not run theme or genre stages")
	}
	if event.VenueID != nil {
		t.Error("excluded category must not resolve venue")
	}
	if len(store.upserted) != 1 {
		t.Error("excluded event must still be persisted")
	}
	if len(fwd.forwarded) != 1 {
		t.Error("forwarder decides the sync gate, it must still be invoked")
	}
}

func TestProcessGenreOnlyForConcertAndClub(t *testing.T) {
	tests := []struct {
		category  string
		wantGenre bool
	}{
		{"Concert", true},
		{"Club", true},
		{"Theatre", false},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			store := defaultCatalog()
			cls := &fakeClassifier{
				category: classifier.CategoryResult{Category: tt.category},
				genre:    classifier.GenreResult{Genre: "Rock"},
			}
			o := NewOrchestrator(store, cls, &fakeForwarder{})

			if err := o.Process(context.Background(), incomingEvent("ev-1")); err != nil {
				t.Fatalf("Process: %v", err)
			}
			if got := cls.genreCalls > 0; got != tt.wantGenre {
				t.Errorf("genre called = %v, want %v", got, tt.wantGenre)
			}
		})
	}
}

func TestProcessSubgenresClamped(t *testing.T) {
	store := defaultCatalog()
	cls := &fakeClassifier{
		category: classifier.CategoryResult{Category: "Club"},
		genre:    classifier.GenreResult{Genre: "Jazz", Subgenres: []string{"Bebop", "Fusion", "Swing", "Cool"}},
	}
	o := NewOrchestrator(store, cls, &fakeForwarder{})

	event := incomingEvent("ev-1")
	if err := o.Process(context.Background(), event); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(event.Subgenres) != 2 {
		t.Fatalf("Subgenres = %v, want first 2", event.Subgenres)
	}
	if event.Subgenres[0] != "Bebop" || event.Subgenres[1] != "Fusion" {
		t.Errorf("Subgenres = %v", event.Subgenres)
	}
}

func TestProcessUnknownFirstThemeLeavesEventUnthemed(t *testing.T) {
	store := defaultCatalog()
	cls := &fakeClassifier{
		category: classifier.CategoryResult{Category: "Concert"},
		themes:   classifier.ThemeResult{Themes: []string{"Midsummer", "Pride"}},
	}
	o := NewOrchestrator(store, cls, &fakeForwarder{})

	event := incomingEvent("ev-1")
	if err := o.Process(context.Background(), event); err != nil {
		t.Fatalf("Process: %v", err)
	}
	// Only the first theme name counts; later names are not tried.
	if len(event.ThemeIDs) != 0 {
		t.Errorf("ThemeIDs = %v, want none", event.ThemeIDs)
	}
	if len(store.upserted) != 1 {
		t.Error("event must persist despite the unresolved theme")
	}
}

func TestProcessNonFatalStageFailures(t *testing.T) {
	store := defaultCatalog()
	store.venues = nil
	cls := &fakeClassifier{
		category: classifier.CategoryResult{Category: "Concert"},
		themeErr: errors.New("theme service down"),
		genreErr: errors.New("genre service down"),
	}
	o := NewOrchestrator(store, cls, &fakeForwarder{})

	event := incomingEvent("ev-1")
	if err := o.Process(context.Background(), event); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if event.VenueID != nil || len(event.ThemeIDs) != 0 || len(event.GenreIDs) != 0 {
		t.Error("failed stages must leave fields unset")
	}
	if len(store.upserted) != 1 {
		t.Error("event must persist despite non-fatal failures")
	}
}

func TestProcessUpsertErrorPropagates(t *testing.T) {
	store := defaultCatalog()
	store.upsertErr = errors.New("db locked")
	cls := &fakeClassifier{category: classifier.CategoryResult{Category: "Theatre"}}
	fwd := &fakeForwarder{}
	o := NewOrchestrator(store, cls, fwd)

	if err := o.Process(context.Background(), incomingEvent("ev-1")); err == nil {
		t.Fatal("expected upsert error")
	}
	if len(fwd.forwarded) != 0 {
		t.Error("must not forward when persistence failed")
	}
}

func TestProcessForwardErrorAfterPersist(t *testing.T) {
	store := defaultCatalog()
	cls := &fakeClassifier{category: classifier.CategoryResult{Category: "Concert"}}
	fwd := &fakeForwarder{err: errors.New("nats down")}
	o := NewOrchestrator(store, cls, fwd)

	err := o.Process(context.Background(), incomingEvent("ev-1"))
	if err == nil {
		t.Fatal("expected forward error")
	}
	if len(store.upserted) != 1 {
		t.Error("upsert must remain committed when forwarding fails")
	}
}
