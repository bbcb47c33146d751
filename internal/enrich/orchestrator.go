// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

// Package enrich implements the per-delta enrichment state machine.
// Processing is fully synchronous and holds no state across invocations;
// the store carries all memoization.
package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kulturpuls/kulturpuls/internal/bus"
	"github.com/kulturpuls/kulturpuls/internal/classifier"
	"github.com/kulturpuls/kulturpuls/internal/database"
	"github.com/kulturpuls/kulturpuls/internal/logging"
	"github.com/kulturpuls/kulturpuls/internal/metrics"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

// maxSubgenres caps the stored subgenre list no matter how many the
// classifier returns.
const maxSubgenres = 2

// Store is the persistence surface the orchestrator needs.
type Store interface {
	GetEvent(ctx context.Context, source, eventID string) (*models.Event, error)
	UpsertEvent(ctx context.Context, event *models.Event) (models.UpsertResult, error)
	Categories(ctx context.Context) ([]models.Category, error)
	Themes(ctx context.Context) ([]models.Theme, error)
	Genres(ctx context.Context) ([]models.Genre, error)
	Venues(ctx context.Context) ([]models.VenueRecord, error)
}

// Classifier is the external classification surface.
type Classifier interface {
	ClassifyCategory(ctx context.Context, event *models.Event, candidates []models.CategoryCandidate) (classifier.CategoryResult, error)
	ClassifyThemes(ctx context.Context, event *models.Event, themes []models.Theme) (classifier.ThemeResult, error)
	ClassifyGenre(ctx context.Context, event *models.Event, genres []models.Genre) (classifier.GenreResult, error)
}

// Forwarder publishes a finalized event downstream.
type Forwarder interface {
	Forward(ctx context.Context, event *models.Event) error
}

// Orchestrator runs one delta through categorization, venue resolution,
// theme and genre assignment, persistence, and downstream forwarding.
type Orchestrator struct {
	store      Store
	classifier Classifier
	forwarder  Forwarder
	logger     zerolog.Logger
}

// NewOrchestrator constructs an orchestrator over the given surfaces.
func NewOrchestrator(store Store, cls Classifier, forwarder Forwarder) *Orchestrator {
	return &Orchestrator{
		store:      store,
		classifier: cls,
		forwarder:  forwarder,
		logger:     logging.With().Str("component", "enrich").Logger(),
	}
}

// Process enriches one delta and persists it. Category failure aborts the
// event with a retryable error; venue, theme, and genre failures leave the
// field unset and continue. Forwarding happens after the upsert committed,
// so a forward failure leaves a persisted-but-unsynced event behind for
// redelivery to repair.
func (o *Orchestrator) Process(ctx context.Context, event *models.Event) error {
	source, eventID := event.Key()
	log := o.logger.With().Str("source", source).Str("event_id", eventID).Logger()

	existing, err := o.store.GetEvent(ctx, source, eventID)
	switch {
	case err == nil:
		o.memoize(event, existing)
	case errors.Is(err, database.ErrNotFound):
		if err := o.classify(ctx, event, log); err != nil {
			return err
		}
	default:
		return bus.NewRetryableError("read persisted event", err)
	}

	result, err := o.store.UpsertEvent(ctx, event)
	if err != nil {
		metrics.RecordStageOutcome("persist", "error")
		return bus.NewRetryableError("upsert event", err)
	}
	event.ID = result.ID
	event.ExternalID = result.ExternalID
	metrics.RecordStageOutcome("persist", "ok")

	if err := o.forwarder.Forward(ctx, event); err != nil {
		metrics.RecordStageOutcome("sync", "error")
		return bus.NewRetryableError("forward event", err)
	}
	metrics.RecordStageOutcome("sync", "ok")
	return nil
}

// memoize copies every already-assigned enrichment field from the
// persisted record onto the incoming event. Assigned content is never
// reclassified.
func (o *Orchestrator) memoize(event, existing *models.Event) {
	if existing.CategoryID != nil {
		event.CategoryID = existing.CategoryID
	}
	if existing.CategoryName != nil {
		event.CategoryName = existing.CategoryName
	}
	if existing.CategoryInclude != nil {
		event.CategoryInclude = existing.CategoryInclude
	}
	if existing.VenueID != nil {
		event.VenueID = existing.VenueID
	}
	if len(existing.ThemeIDs) > 0 {
		event.ThemeIDs = existing.ThemeIDs
	}
	if len(existing.GenreIDs) > 0 {
		event.GenreIDs = existing.GenreIDs
	}
	if len(existing.Subgenres) > 0 {
		event.Subgenres = existing.Subgenres
	}
	metrics.RecordMemoized()
}

// classify runs the full stage chain for a first-seen event.
func (o *Orchestrator) classify(ctx context.Context, event *models.Event, log zerolog.Logger) error {
	category, err := o.resolveCategory(ctx, event)
	if err != nil {
		metrics.RecordStageOutcome("category", "error")
		return bus.NewRetryableError("categorize event", err)
	}
	event.CategoryID = &category.ID
	event.CategoryName = &category.Name
	event.CategoryInclude = &category.Include
	metrics.RecordStageOutcome("category", "ok")

	if !category.Include {
		log.Debug().Str("category", category.Name).Msg("category excluded, enrichment stops")
		return nil
	}

	if venueID, err := o.resolveVenue(ctx, event); err != nil {
		metrics.RecordStageOutcome("venue", "skipped")
		log.Warn().Err(err).Msg("venue unresolved, field left unset")
	} else {
		event.VenueID = &venueID
		metrics.RecordStageOutcome("venue", "ok")
	}

	if themeIDs, err := o.resolveThemes(ctx, event); err != nil {
		metrics.RecordStageOutcome("theme", "skipped")
		log.Warn().Err(err).Msg("theme assignment failed, field left unset")
	} else {
		event.ThemeIDs = themeIDs
		metrics.RecordStageOutcome("theme", "ok")
	}

	if genreApplies(category.Name) {
		genreIDs, subgenres, err := o.resolveGenre(ctx, event)
		if err != nil {
			metrics.RecordStageOutcome("genre", "skipped")
			log.Warn().Err(err).Msg("genre assignment failed, field left unset")
		} else {
			event.GenreIDs = genreIDs
			event.Subgenres = subgenres
			metrics.RecordStageOutcome("genre", "ok")
		}
	}
	return nil
}

// genreApplies reports whether the category carries musical genres.
func genreApplies(categoryName string) bool {
	return categoryName == "Concert" || categoryName == "Club"
}

// clampSubgenres trims the classifier's subgenre list to the stored cap.
func clampSubgenres(subgenres []string) []string {
	if len(subgenres) > maxSubgenres {
		return subgenres[:maxSubgenres]
	}
	return subgenres
}

func fmtUnknown(kind, name string) error {
	return fmt.Errorf("classifier returned unknown %s %q", kind, name)
}
