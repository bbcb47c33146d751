// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kulturpuls/kulturpuls/internal/config"
)

// NewRouter assembles the chi router. Rate limiting applies per client IP
// to the API routes; health and metrics stay unlimited for scrapers.
func NewRouter(handler *Handler, cfg config.APIConfig) http.Handler {
	reqs := cfg.RateLimitReqs
	if reqs <= 0 {
		reqs = 100
	}
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(reqs, window, httprate.WithKeyFuncs(httprate.KeyByIP)))

		r.Route("/venues", func(r chi.Router) {
			r.Get("/", handler.ListVenues)
			r.Post("/", handler.CreateVenue)
			r.Get("/{id}", handler.GetVenue)
			r.Put("/{id}", handler.UpdateVenue)
			r.Delete("/{id}", handler.DeleteVenue)
		})

		r.Get("/categories", handler.Categories)
		r.Get("/themes", handler.Themes)
		r.Get("/genres", handler.Genres)

		r.Get("/events/{source}/{eventID}", handler.GetEvent)

		r.Get("/sources", handler.Sources)
		r.Post("/sources/{source}/trigger", handler.TriggerSource)
	})

	return r
}
