// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package models

// Category is a catalog category used as a classification candidate.
// Include controls whether events of this category are forwarded
// downstream.
type Category struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Include    bool   `json:"include"`
	Definition string `json:"definition,omitempty"`
}

// CategoryCandidate is the name+definition pair handed to the external
// classifier. The id and include flag are resolved afterwards against the
// full catalog.
type CategoryCandidate struct {
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
}

// Candidate projects a category to its classifier-facing shape.
func (c Category) Candidate() CategoryCandidate {
	return CategoryCandidate{Name: c.Name, Definition: c.Definition}
}

// VenueRecord is a catalog venue maintained through the venue CRUD
// endpoints and matched against incoming event venues.
type VenueRecord struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	City             string       `json:"city"`
	Address          string       `json:"address,omitempty"`
	Zipcode          *int         `json:"zipcode,omitempty"`
	DefaultOrganizer string       `json:"default_organizer,omitempty"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
}

// Theme is a catalog theme; assignment requires a close, explicit match
// against its description.
type Theme struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Genre is a catalog main genre. Sub-genres are free-form names returned
// by the classifier and are not catalog records.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UpsertResult carries the internal identity fields assigned by the store.
type UpsertResult struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
}
