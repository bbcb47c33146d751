// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

// Package models defines the canonical event shape shared by every source
// adapter and downstream stage, together with the catalog records used as
// classification candidates.
//
// The canonical JSON projection omits null and empty fields. Change
// detection compares these projections byte-for-byte, so the struct field
// order below is part of the storage contract: reordering fields changes
// the serialization of every event and would be detected as a mass change.
package models

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Status values for SourceEvent.Status. A missing status is represented by
// the empty string and omitted from the canonical projection.
const (
	StatusActive    = "Active"
	StatusCancelled = "Cancelled"
	StatusDeleted   = "Deleted"
)

// Coordinates is an optional, always-paired latitude/longitude.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Venue is the venue sub-object of a source event.
// Zipcode is a normalized 5-digit Swedish postal code, nil when the source
// did not supply one or supplied something unparsable.
type Venue struct {
	Name        string       `json:"name,omitempty" validate:"required"`
	City        string       `json:"city,omitempty"`
	AddressText string       `json:"address_text,omitempty"`
	Zipcode     *int         `json:"zipcode,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// SourceEvent is the immutable snapshot of one event as fetched from a
// provider. Datetimes are UTC ISO-8601 strings ("2006-01-02T15:04:05Z");
// StartDatetime is required for an event to survive the temporal filter.
type SourceEvent struct {
	Name                 string    `json:"name,omitempty" validate:"required"`
	EventID              string    `json:"event_id,omitempty" validate:"required"`
	Description          string    `json:"description,omitempty"`
	StartDatetime        string    `json:"start_datetime,omitempty" validate:"required,canonical_datetime"`
	EndDatetime          string    `json:"end_datetime,omitempty" validate:"omitempty,canonical_datetime"`
	Venue                Venue     `json:"venue"`
	Currency             string    `json:"currency,omitempty"`
	PriceRange           []float64 `json:"price_range,omitempty" validate:"omitempty,max=2,ascending"`
	TicketLink           string    `json:"ticket_link,omitempty"`
	Status               string    `json:"status,omitempty" validate:"omitempty,oneof=Active Cancelled Deleted"`
	SoldOut              *bool     `json:"sold_out,omitempty"`
	DateTicketsSaleStart string    `json:"date_tickets_sale_start,omitempty"`
	Organizer            string    `json:"organizer,omitempty"`
	Tags                 []string  `json:"tags,omitempty"`
	Image                string    `json:"image,omitempty"`
	Artists              []string  `json:"artists,omitempty"`
	ExplicitCategory     string    `json:"explicit_category,omitempty"`
}

// Event wraps a SourceEvent with its provider tag and the enrichment
// fields assigned by the orchestrator. Enrichment fields are
// write-once-per-content: once set for a (source, event_id) with unchanged
// payload they are copied forward, never recomputed.
//
// ID and ExternalID are internal identity fields assigned by the store on
// first insert and preserved across upserts.
type Event struct {
	Source          string      `json:"source" validate:"required"`
	SourceData      SourceEvent `json:"source_data"`
	CategoryID      *int64      `json:"category_id,omitempty"`
	CategoryName    *string     `json:"category_name,omitempty"`
	CategoryInclude *bool       `json:"category_include,omitempty"`
	ThemeIDs        []int64     `json:"theme_ids,omitempty"`
	GenreIDs        []int64     `json:"genre_ids,omitempty"`
	Subgenres       []string    `json:"subgenres,omitempty"`
	VenueID         *int64      `json:"venue_id,omitempty"`

	ID         int64  `json:"id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

// NewEvent wraps source data in an Event carrying the provider tag.
func NewEvent(source string, data SourceEvent) *Event {
	return &Event{Source: source, SourceData: data}
}

// Key returns the unique identity key within the persisted store.
func (e *Event) Key() (source, eventID string) {
	return e.Source, e.SourceData.EventID
}

// Included reports whether the event's category marks it for downstream
// forwarding. False when the category is unresolved.
func (e *Event) Included() bool {
	return e.CategoryInclude != nil && *e.CategoryInclude
}

// CanonicalJSON returns the canonical serialization of the full event with
// null/empty fields omitted.
func (e *Event) CanonicalJSON() ([]byte, error) {
	return json.Marshal(e)
}

// CanonicalSourceJSON returns the canonical serialization of a source
// snapshot. This is the byte representation the Change Detector compares.
func CanonicalSourceJSON(data *SourceEvent) ([]byte, error) {
	return json.Marshal(data)
}

// SameContent reports whether two source snapshots have byte-identical
// canonical serializations. Marshal errors count as a difference so that a
// broken payload is treated as changed rather than silently equal.
func SameContent(a, b *SourceEvent) bool {
	aj, err := CanonicalSourceJSON(a)
	if err != nil {
		return false
	}
	bj, err := CanonicalSourceJSON(b)
	if err != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

// DecodeEvent parses a canonical event payload.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DecodeSourceEvent parses a canonical source snapshot payload.
func DecodeSourceEvent(data []byte) (*SourceEvent, error) {
	var se SourceEvent
	if err := json.Unmarshal(data, &se); err != nil {
		return nil, err
	}
	return &se, nil
}
