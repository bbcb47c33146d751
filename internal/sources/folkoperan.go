// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package sources

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kulturpuls/kulturpuls/internal/config"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

const folkoperanDefaultURL = "https://eventapi.tix.se"

// folkoperanVenue is the house itself; the Tixly feed carries no venue
// data because every show plays there.
var folkoperanVenue = models.Venue{
	Name:        "Folkoperan",
	City:        "Stockholm",
	AddressText: "Hornsgatan 72",
	Zipcode:     intPtr(11821),
	Coordinates: &models.Coordinates{
		Latitude:  59.31858066914292,
		Longitude: 18.058402943851373,
	},
}

// Folkoperan fetches show dates from the Tixly event API.
type Folkoperan struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewFolkoperan builds the adapter from source settings.
func NewFolkoperan(cfg config.SourceConfig) *Folkoperan {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = folkoperanDefaultURL
	}
	return &Folkoperan{
		client:  newHTTPClient(cfg.Timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

func (f *Folkoperan) Source() string { return "folkoperan" }

type folkoperanGroup struct {
	Name           string           `json:"Name"`
	EventImagePath string           `json:"EventImagePath"`
	Dates          []folkoperanDate `json:"Dates"`
}

type folkoperanDate struct {
	EventID         int64                `json:"EventId"`
	Name            string               `json:"Name"`
	StartDate       string               `json:"StartDate"`
	EndDate         string               `json:"EndDate"`
	MinPrice        float64              `json:"MinPrice"`
	MaxPrice        float64              `json:"MaxPrice"`
	SoldOut         bool                 `json:"SoldOut"`
	OnlineSaleStart string               `json:"OnlineSaleStart"`
	Organisation    string               `json:"Organisation"`
	PurchaseUrls    []folkoperanPurchase `json:"PurchaseUrls"`
}

type folkoperanPurchase struct {
	Link string `json:"Link"`
}

// Fetch retrieves the event groups and flattens every show date to one
// event. The feed duplicates everything under a group literally named
// "Folkoperan"; that group is skipped.
func (f *Folkoperan) Fetch(ctx context.Context) ([]*models.Event, error) {
	var groups []folkoperanGroup
	url := fmt.Sprintf("%s/v2/Events?key=%s", f.baseURL, f.apiKey)
	if err := getJSON(ctx, f.client, url, nil, &groups); err != nil {
		return nil, fmt.Errorf("folkoperan events: %w", err)
	}

	var events []*models.Event
	for _, group := range groups {
		if group.Name == "Folkoperan" {
			continue
		}
		for _, date := range group.Dates {
			events = append(events, folkoperanToEvent(date, group.EventImagePath))
		}
	}
	return events, nil
}

func folkoperanToEvent(date folkoperanDate, image string) *models.Event {
	soldOut := date.SoldOut
	ticketLink := ""
	if len(date.PurchaseUrls) > 0 {
		ticketLink = date.PurchaseUrls[0].Link
	}
	return models.NewEvent("folkoperan", models.SourceEvent{
		Name:                 date.Name,
		EventID:              strconv.FormatInt(date.EventID, 10),
		StartDatetime:        models.NormalizeDatetime(date.StartDate, nil),
		EndDatetime:          models.NormalizeDatetime(date.EndDate, nil),
		Venue:                folkoperanVenue,
		Currency:             "SEK",
		PriceRange:           priceRange(date.MinPrice, date.MaxPrice),
		TicketLink:           ticketLink,
		Status:               models.StatusActive,
		SoldOut:              &soldOut,
		DateTicketsSaleStart: models.NormalizeDatetime(date.OnlineSaleStart, nil),
		Organizer:            date.Organisation,
		Image:                image,
	})
}

func priceRange(minPrice, maxPrice float64) []float64 {
	if minPrice == 0 && maxPrice == 0 {
		return nil
	}
	if minPrice == maxPrice {
		return []float64{minPrice}
	}
	return []float64{minPrice, maxPrice}
}

func intPtr(v int) *int { return &v }
