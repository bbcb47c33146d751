// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package sources

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kulturpuls/kulturpuls/internal/config"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

const billettoDefaultURL = "https://billetto.se"

var billettoStates = map[string]string{
	"published": models.StatusActive,
	"canceled":  models.StatusCancelled,
}

// Billetto fetches public events page by page; the API hands back a
// next_url until the listing is exhausted.
type Billetto struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewBilletto builds the adapter from source settings.
func NewBilletto(cfg config.SourceConfig) *Billetto {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = billettoDefaultURL
	}
	return &Billetto{
		client:  newHTTPClient(cfg.Timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

func (b *Billetto) Source() string { return "billetto" }

type billettoPage struct {
	Data    []billettoEvent `json:"data"`
	NextURL string          `json:"next_url"`
}

type billettoEvent struct {
	ID           json.Number      `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	StartDate    string           `json:"startdate"`
	EndDate      string           `json:"enddate"`
	URL          string           `json:"url"`
	State        string           `json:"state"`
	Availability bool             `json:"availability"`
	ImageLink    string           `json:"image_link"`
	Location     billettoLocation `json:"location"`
	MinimumPrice billettoPrice    `json:"minimum_price"`
	Organiser    struct {
		Name string `json:"name"`
	} `json:"organiser"`
}

type billettoLocation struct {
	LocationName string `json:"location_name"`
	City         string `json:"city"`
	AddressLine  string `json:"address_line"`
	AddressLine2 string `json:"address_line_2"`
	PostalCode   string `json:"postal_code"`
	Coordinates  struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
}

type billettoPrice struct {
	AmountInCents float64 `json:"amount_in_cents"`
	Currency      string  `json:"currency"`
}

// Fetch walks the paginated listing and maps every event.
func (b *Billetto) Fetch(ctx context.Context) ([]*models.Event, error) {
	headers := map[string]string{"Api-Keypair": b.apiKey}
	url := b.baseURL + "/api/v3/all_public/events?limit=100"

	var events []*models.Event
	for url != "" {
		var page billettoPage
		if err := getJSON(ctx, b.client, url, headers, &page); err != nil {
			return nil, fmt.Errorf("billetto events: %w", err)
		}
		for _, e := range page.Data {
			events = append(events, billettoToEvent(e))
		}
		url = page.NextURL
	}
	return events, nil
}

func billettoToEvent(e billettoEvent) *models.Event {
	loc := e.Location
	var addressParts []string
	for _, part := range []string{loc.AddressLine, loc.AddressLine2} {
		if part != "" {
			addressParts = append(addressParts, part)
		}
	}
	venue := models.Venue{
		Name:        loc.LocationName,
		City:        loc.City,
		AddressText: strings.Join(addressParts, ", "),
		Zipcode:     models.NormalizeZipcode(loc.PostalCode),
	}
	if loc.Coordinates.Latitude != 0 && loc.Coordinates.Longitude != 0 {
		venue.Coordinates = &models.Coordinates{
			Latitude:  loc.Coordinates.Latitude,
			Longitude: loc.Coordinates.Longitude,
		}
	}

	description := e.Description
	if description != "" {
		description = html.UnescapeString(description)
	}

	soldOut := !e.Availability
	var priceRange []float64
	if e.MinimumPrice.AmountInCents > 0 {
		priceRange = []float64{e.MinimumPrice.AmountInCents}
	}

	return models.NewEvent("billetto", models.SourceEvent{
		Name:          e.Title,
		EventID:       e.ID.String(),
		Description:   description,
		StartDatetime: models.NormalizeDatetime(e.StartDate, nil),
		EndDatetime:   models.NormalizeDatetime(e.EndDate, nil),
		Venue:         venue,
		Currency:      e.MinimumPrice.Currency,
		PriceRange:    priceRange,
		TicketLink:    e.URL,
		Status:        billettoStates[e.State],
		SoldOut:       &soldOut,
		Organizer:     e.Organiser.Name,
		Image:         e.ImageLink,
	})
}
