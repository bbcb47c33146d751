// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/kulturpuls/kulturpuls/internal/database"
	"github.com/kulturpuls/kulturpuls/internal/logging"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

// Store is the persistence surface the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	Categories(ctx context.Context) ([]models.Category, error)
	Themes(ctx context.Context) ([]models.Theme, error)
	Genres(ctx context.Context) ([]models.Genre, error)
	Venues(ctx context.Context) ([]models.VenueRecord, error)
	GetVenue(ctx context.Context, id int64) (models.VenueRecord, error)
	CreateVenue(ctx context.Context, venue models.VenueRecord) (models.VenueRecord, error)
	UpdateVenue(ctx context.Context, venue models.VenueRecord) (models.VenueRecord, error)
	DeleteVenue(ctx context.Context, id int64) error
	GetEvent(ctx context.Context, source, eventID string) (*models.Event, error)
}

// Trigger starts a fetch cycle for one source on demand.
type Trigger interface {
	Sources() []string
	Trigger(ctx context.Context, source string) error
}

// Handler holds the endpoint implementations.
type Handler struct {
	store   Store
	trigger Trigger
}

// NewHandler wires the handlers to their dependencies. trigger may be nil
// when no scheduler runs in this process.
func NewHandler(store Store, trigger Trigger) *Handler {
	return &Handler{store: store, trigger: trigger}
}

// Health reports liveness plus store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store_unreachable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// venuePayload is the write shape for venue create/update.
type venuePayload struct {
	Name             string              `json:"name"`
	City             string              `json:"city"`
	Address          string              `json:"address"`
	Zipcode          string              `json:"zipcode"`
	DefaultOrganizer string              `json:"default_organizer"`
	Coordinates      *models.Coordinates `json:"coordinates"`
}

func (p *venuePayload) toRecord() (models.VenueRecord, error) {
	if strings.TrimSpace(p.Name) == "" {
		return models.VenueRecord{}, errors.New("name is required")
	}
	if strings.TrimSpace(p.City) == "" {
		return models.VenueRecord{}, errors.New("city is required")
	}
	record := models.VenueRecord{
		Name:             strings.TrimSpace(p.Name),
		City:             strings.TrimSpace(p.City),
		Address:          strings.TrimSpace(p.Address),
		DefaultOrganizer: strings.TrimSpace(p.DefaultOrganizer),
		Coordinates:      p.Coordinates,
	}
	if p.Zipcode != "" {
		zipcode := models.NormalizeZipcode(p.Zipcode)
		if zipcode == nil {
			return models.VenueRecord{}, errors.New("zipcode must be a Swedish 5-digit postal code")
		}
		record.Zipcode = zipcode
	}
	return record, nil
}

// ListVenues returns the venue catalog.
func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := h.store.Venues(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, venues)
}

// GetVenue returns one venue by id.
func (h *Handler) GetVenue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	venue, err := h.store.GetVenue(r.Context(), id)
	if err != nil {
		venueStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, venue)
}

// CreateVenue validates and inserts a venue.
func (h *Handler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	var payload venuePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	record, err := payload.toRecord()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_venue", err.Error())
		return
	}
	created, err := h.store.CreateVenue(r.Context(), record)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	logging.Info().Int64("venue_id", created.ID).Str("name", created.Name).Msg("venue created")
	writeJSON(w, http.StatusCreated, created)
}

// UpdateVenue validates and overwrites a venue.
func (h *Handler) UpdateVenue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload venuePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	record, err := payload.toRecord()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_venue", err.Error())
		return
	}
	record.ID = id
	updated, err := h.store.UpdateVenue(r.Context(), record)
	if err != nil {
		venueStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteVenue removes a venue.
func (h *Handler) DeleteVenue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteVenue(r.Context(), id); err != nil {
		venueStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

// Categories returns the category catalog.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// Themes returns the theme catalog.
func (h *Handler) Themes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.store.Themes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, themes)
}

// Genres returns the genre catalog.
func (h *Handler) Genres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.store.Genres(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, genres)
}

// GetEvent returns one persisted event by its source key.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	eventID := chi.URLParam(r, "eventID")
	event, err := h.store.GetEvent(r.Context(), source, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no such event")
			return
		}
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// TriggerSource starts one fetch cycle immediately.
func (h *Handler) TriggerSource(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "no_scheduler", "no scheduler in this process")
		return
	}
	source := chi.URLParam(r, "source")
	if err := h.trigger.Trigger(r.Context(), source); err != nil {
		writeError(w, http.StatusBadRequest, "trigger_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"source": source, "status": "triggered"})
}

// Sources lists the registered source tags.
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	writeJSON(w, http.StatusOK, h.trigger.Sources())
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func venueStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "no such venue")
		return
	}
	writeError(w, http.StatusInternalServerError, "store_error", err.Error())
}
