// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

// Package sources holds the provider adapters that fetch raw events and
// map them to the canonical shape. Each adapter owns its HTTP client and
// carries a request timeout; normalization of zipcodes and datetimes is
// shared through the models package.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/kulturpuls/kulturpuls/internal/config"
	"github.com/kulturpuls/kulturpuls/internal/ingest"
)

// Registry holds the enabled fetchers keyed by source tag.
type Registry struct {
	fetchers map[string]ingest.Fetcher
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]ingest.Fetcher)}
}

// Register adds a fetcher under its source tag. Re-registering a tag
// replaces the previous fetcher.
func (r *Registry) Register(fetcher ingest.Fetcher) {
	r.fetchers[fetcher.Source()] = fetcher
}

// Get returns the fetcher for a source tag.
func (r *Registry) Get(source string) (ingest.Fetcher, bool) {
	f, ok := r.fetchers[source]
	return f, ok
}

// All returns the registered fetchers sorted by source tag.
func (r *Registry) All() []ingest.Fetcher {
	tags := make([]string, 0, len(r.fetchers))
	for tag := range r.fetchers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	fetchers := make([]ingest.Fetcher, 0, len(tags))
	for _, tag := range tags {
		fetchers = append(fetchers, r.fetchers[tag])
	}
	return fetchers
}

// FromConfig builds a registry holding every enabled provider.
func FromConfig(cfg config.SourcesConfig) *Registry {
	registry := NewRegistry()
	if cfg.Tickster.Enabled {
		registry.Register(NewTickster(cfg.Tickster))
	}
	if cfg.Folkoperan.Enabled {
		registry.Register(NewFolkoperan(cfg.Folkoperan))
	}
	if cfg.Billetto.Enabled {
		registry.Register(NewBilletto(cfg.Billetto))
	}
	return registry
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs one GET and decodes the body. Non-2xx responses are
// errors carrying the status code.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
