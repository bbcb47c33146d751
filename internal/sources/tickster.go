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

	"github.com/kulturpuls/kulturpuls/internal/config"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

const ticksterDefaultURL = "https://api.tickster.com"

// ticksterStates maps Event API v1.0 states to canonical statuses. Keys
// are lowercase; the API documents camelCase but returns PascalCase.
var ticksterStates = map[string]string{
	"undefined":                models.StatusActive,
	"notreleased":              models.StatusActive,
	"releasedforsale":          models.StatusActive,
	"releasedfornonpublicsale": models.StatusActive,
	"salepaused":               models.StatusActive,
	"saleended":                models.StatusActive,
	"canceled":                 models.StatusCancelled,
	"cancelled":                models.StatusCancelled,
}

// Tickster fetches the upcoming-events dump. The dump endpoint returns a
// URI to the actual payload, so each fetch is two sequential requests.
type Tickster struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewTickster builds the adapter from source settings.
func NewTickster(cfg config.SourceConfig) *Tickster {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = ticksterDefaultURL
	}
	return &Tickster{
		client:  newHTTPClient(cfg.Timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

func (t *Tickster) Source() string { return "tickster" }

type ticksterDump struct {
	URI string `json:"uri"`
}

type ticksterPayload struct {
	Events     []ticksterEvent     `json:"events"`
	Organizers []ticksterOrganizer `json:"organizers"`
	Venues     []ticksterVenue     `json:"venues"`
}

type ticksterEvent struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	EventState  string         `json:"eventState"`
	ShopURI     string         `json:"shopUri"`
	ImageURL    string         `json:"imageUrl"`
	Tags        []string       `json:"tags"`
	OrganizerID string         `json:"organizerId"`
	VenueID     string         `json:"venueId"`
	Goods       []ticksterGood `json:"goods"`
}

type ticksterGood struct {
	Price struct {
		IncludingVat float64 `json:"includingVat"`
	} `json:"price"`
}

type ticksterOrganizer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ticksterVenue struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Address string `json:"address"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
	Geo     struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"geo"`
}

// Fetch retrieves the dump and maps every Swedish event to the canonical
// shape. Events at venues outside SE are dropped.
func (t *Tickster) Fetch(ctx context.Context) ([]*models.Event, error) {
	var dump ticksterDump
	dumpURL := fmt.Sprintf("%s/sv/api/1.0/events/dump/upcoming?key=%s", t.baseURL, t.apiKey)
	if err := getJSON(ctx, t.client, dumpURL, nil, &dump); err != nil {
		return nil, fmt.Errorf("tickster dump: %w", err)
	}
	if dump.URI == "" {
		return nil, nil
	}

	var payload ticksterPayload
	if err := getJSON(ctx, t.client, dump.URI, nil, &payload); err != nil {
		return nil, fmt.Errorf("tickster events: %w", err)
	}

	organizers := make(map[string]ticksterOrganizer, len(payload.Organizers))
	for _, o := range payload.Organizers {
		organizers[o.ID] = o
	}
	venues := make(map[string]ticksterVenue, len(payload.Venues))
	for _, v := range payload.Venues {
		venues[v.ID] = v
	}

	events := make([]*models.Event, 0, len(payload.Events))
	for _, e := range payload.Events {
		venue, ok := venues[e.VenueID]
		if !ok || venue.Country != "SE" {
			continue
		}
		events = append(events, ticksterToEvent(e, organizers[e.OrganizerID], venue))
	}
	return events, nil
}

func ticksterToEvent(e ticksterEvent, organizer ticksterOrganizer, v ticksterVenue) *models.Event {
	venue := models.Venue{
		Name:        v.Name,
		City:        v.City,
		AddressText: v.Address,
		Zipcode:     models.NormalizeZipcode(v.ZipCode),
	}
	if v.Geo.Latitude != 0 && v.Geo.Longitude != 0 {
		venue.Coordinates = &models.Coordinates{
			Latitude:  v.Geo.Latitude,
			Longitude: v.Geo.Longitude,
		}
	}

	// Descriptions arrive double-escaped.
	description := e.Description
	if description != "" {
		description = html.UnescapeString(html.UnescapeString(description))
	}

	soldOut := false
	return models.NewEvent("tickster", models.SourceEvent{
		Name:          e.Name,
		EventID:       e.ID,
		Description:   description,
		StartDatetime: models.NormalizeDatetime(e.Start, nil),
		EndDatetime:   models.NormalizeDatetime(e.End, nil),
		Venue:         venue,
		Currency:      "SEK",
		PriceRange:    ticksterPriceRange(e.Goods),
		TicketLink:    e.ShopURI,
		Status:        ticksterStates[strings.ToLower(e.EventState)],
		SoldOut:       &soldOut,
		Organizer:     organizer.Name,
		Tags:          e.Tags,
		Image:         e.ImageURL,
	})
}

// ticksterPriceRange reduces the goods list to [min] or [min, max].
func ticksterPriceRange(goods []ticksterGood) []float64 {
	var prices []float64
	for _, g := range goods {
		if g.Price.IncludingVat > 0 {
			prices = append(prices, g.Price.IncludingVat)
		}
	}
	if len(prices) == 0 {
		return nil
	}
	minPrice, maxPrice := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
	}
	if minPrice == maxPrice {
		return []float64{minPrice}
	}
	return []float64{minPrice, maxPrice}
}
