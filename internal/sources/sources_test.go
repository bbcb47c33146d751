// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kulturpuls/kulturpuls/internal/config"
)

func sourceConfig(url string) config.SourceConfig {
	return config.SourceConfig{
		Enabled: true,
		URL:     url,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}
}

func TestTicksterFetch(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sv/api/1.0/events/dump/upcoming", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"uri": %q}`, srv.URL+"/dump.json")
	})
	mux.HandleFunc("/dump.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"events": [
				{
					"id": "t-1", "name": "Jazz Night", "description": "Bebop &amp;amp; more",
					"start": "2030-06-01T19:00:00Z", "eventState": "ReleasedForSale",
					"shopUri": "https://shop/t-1", "organizerId": "o-1", "venueId": "v-1",
					"goods": [
						{"price": {"includingVat": 250}},
						{"price": {"includingVat": 150}}
					]
				},
				{
					"id": "t-2", "name": "Oslo Show", "start": "2030-06-02T19:00:00Z",
					"eventState": "ReleasedForSale", "organizerId": "o-1", "venueId": "v-2"
				},
				{
					"id": "t-3", "name": "Cancelled Gig", "start": "2030-06-03T19:00:00Z",
					"eventState": "Canceled", "organizerId": "o-1", "venueId": "v-1"
				}
			],
			"organizers": [{"id": "o-1", "name": "Live Promotions"}],
			"venues": [
				{"id": "v-1", "name": "Fasching", "city": "Stockholm", "address": "Kungsgatan 63",
				 "zipCode": "111 22", "country": "SE",
				 "geo": {"latitude": 59.33, "longitude": 18.06}},
				{"id": "v-2", "name": "Sentrum Scene", "city": "Oslo", "country": "NO"}
			]
		}`))
	})

	events, err := NewTickster(sourceConfig(srv.URL)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (non-SE venue dropped)", len(events))
	}

	first := events[0].SourceData
	if events[0].Source != "tickster" {
		t.Errorf("source = %q", events[0].Source)
	}
	if first.EventID != "t-1" {
		t.Errorf("event_id = %q", first.EventID)
	}
	if first.Description != "Bebop & more" {
		t.Errorf("description = %q, want double-unescaped", first.Description)
	}
	if len(first.PriceRange) != 2 || first.PriceRange[0] != 150 || first.PriceRange[1] != 250 {
		t.Errorf("price_range = %v, want [150 250]", first.PriceRange)
	}
	if first.Status != "Active" {
		t.Errorf("status = %q", first.Status)
	}
	if first.Venue.Zipcode == nil || *first.Venue.Zipcode != 11122 {
		t.Errorf("zipcode = %v, want 11122", first.Venue.Zipcode)
	}
	if first.Venue.Coordinates == nil {
		t.Error("expected coordinates")
	}
	if first.Organizer != "Live Promotions" {
		t.Errorf("organizer = %q", first.Organizer)
	}
	if events[1].SourceData.Status != "Cancelled" {
		t.Errorf("status = %q, want Cancelled", events[1].SourceData.Status)
	}
}

func TestTicksterEmptyDump(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	events, err := NewTickster(sourceConfig(srv.URL)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestFolkoperanFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[
			{
				"Name": "Folkoperan",
				"Dates": [{"EventId": 999, "Name": "Duplicate", "StartDate": "2030-05-01T18:00:00"}]
			},
			{
				"Name": "Carmen", "EventImagePath": "https://img/carmen.jpg",
				"Dates": [
					{
						"EventId": 101, "Name": "Carmen", "StartDate": "2030-05-01T18:00:00",
						"EndDate": "2030-05-01T21:00:00", "MinPrice": 200, "MaxPrice": 450,
						"SoldOut": false, "OnlineSaleStart": "2030-01-01T10:00:00",
						"Organisation": "Folkoperan AB",
						"PurchaseUrls": [{"Link": "https://tix/101"}]
					},
					{
						"EventId": 102, "Name": "Carmen", "StartDate": "2030-05-02T18:00:00",
						"MinPrice": 300, "MaxPrice": 300, "SoldOut": true
					}
				]
			}
		]`))
	}))
	defer srv.Close()

	events, err := NewFolkoperan(sourceConfig(srv.URL)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (duplicate group skipped)", len(events))
	}

	first := events[0].SourceData
	if first.EventID != "101" {
		t.Errorf("event_id = %q", first.EventID)
	}
	if first.StartDatetime != "2030-05-01T18:00:00Z" {
		t.Errorf("start_datetime = %q", first.StartDatetime)
	}
	if first.Venue.Name != "Folkoperan" || first.Venue.City != "Stockholm" {
		t.Errorf("venue = %+v", first.Venue)
	}
	if len(first.PriceRange) != 2 || first.PriceRange[0] != 200 {
		t.Errorf("price_range = %v", first.PriceRange)
	}
	if first.TicketLink != "https://tix/101" {
		t.Errorf("ticket_link = %q", first.TicketLink)
	}
	if first.Image != "https://img/carmen.jpg" {
		t.Errorf("image = %q", first.Image)
	}

	second := events[1].SourceData
	if len(second.PriceRange) != 1 || second.PriceRange[0] != 300 {
		t.Errorf("price_range = %v, want single value when min equals max", second.PriceRange)
	}
	if second.SoldOut == nil || !*second.SoldOut {
		t.Error("expected sold_out true")
	}
}

func TestBillettoFetchPaginates(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page2 := ""
	mux.HandleFunc("/api/v3/all_public/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Keypair") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{
			"data": [{
				"id": 501, "title": "Club Night", "description": "House &amp; techno",
				"startdate": "2030-07-01T22:00:00Z", "url": "https://billetto/501",
				"state": "published", "availability": true,
				"location": {
					"location_name": "Slakthuset", "city": "Stockholm",
					"address_line": "Slakthusgatan 6", "postal_code": "121 62",
					"coordinates": {"latitude": 59.29, "longitude": 18.07}
				},
				"minimum_price": {"amount_in_cents": 15000, "currency": "SEK"},
				"organiser": {"name": "Slakthuset Events"}
			}],
			"next_url": %q
		}`, page2)
	})
	page2 = srv.URL + "/api/v3/all_public/events/page2"
	mux.HandleFunc("/api/v3/all_public/events/page2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"data": [{
				"id": "502", "title": "Sold Out Show", "startdate": "2030-07-02T20:00:00Z",
				"state": "canceled", "availability": false,
				"location": {"location_name": "Nalen", "city": "Stockholm", "coordinates": {}},
				"minimum_price": {"currency": "SEK"},
				"organiser": {"name": "Nalen"}
			}],
			"next_url": ""
		}`))
	})

	events, err := NewBilletto(sourceConfig(srv.URL)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 across pages", len(events))
	}

	first := events[0].SourceData
	if first.EventID != "501" {
		t.Errorf("event_id = %q, numeric ids must map to strings", first.EventID)
	}
	if first.Description != "House & techno" {
		t.Errorf("description = %q", first.Description)
	}
	if first.Venue.Zipcode == nil || *first.Venue.Zipcode != 12162 {
		t.Errorf("zipcode = %v", first.Venue.Zipcode)
	}
	if len(first.PriceRange) != 1 || first.PriceRange[0] != 15000 {
		t.Errorf("price_range = %v", first.PriceRange)
	}

	second := events[1].SourceData
	if second.EventID != "502" {
		t.Errorf("event_id = %q", second.EventID)
	}
	if second.Status != "Cancelled" {
		t.Errorf("status = %q", second.Status)
	}
	if second.SoldOut == nil || !*second.SoldOut {
		t.Error("expected sold_out true when availability is false")
	}
	if second.Venue.Coordinates != nil {
		t.Error("zero coordinates must map to nil")
	}
}

func TestRegistryFromConfig(t *testing.T) {
	registry := FromConfig(config.SourcesConfig{
		Tickster:   config.SourceConfig{Enabled: true},
		Folkoperan: config.SourceConfig{Enabled: false},
		Billetto:   config.SourceConfig{Enabled: true},
	})

	if _, ok := registry.Get("tickster"); !ok {
		t.Error("tickster missing")
	}
	if _, ok := registry.Get("folkoperan"); ok {
		t.Error("disabled folkoperan registered")
	}
	all := registry.All()
	if len(all) != 2 {
		t.Fatalf("All() = %d fetchers, want 2", len(all))
	}
	if all[0].Source() != "billetto" || all[1].Source() != "tickster" {
		t.Errorf("order = [%s %s], want sorted by tag", all[0].Source(), all[1].Source())
	}
}

func TestFetchErrorOnServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewTickster(sourceConfig(srv.URL)).Fetch(context.Background()); err == nil {
		t.Error("tickster: expected error")
	}
	if _, err := NewFolkoperan(sourceConfig(srv.URL)).Fetch(context.Background()); err == nil {
		t.Error("folkoperan: expected error")
	}
	if _, err := NewBilletto(sourceConfig(srv.URL)).Fetch(context.Background()); err == nil {
		t.Error("billetto: expected error")
	}
}
