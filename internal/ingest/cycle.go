// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/kulturpuls/kulturpuls/internal/logging"
	"github.com/kulturpuls/kulturpuls/internal/metrics"
	"github.com/kulturpuls/kulturpuls/internal/models"
	"github.com/kulturpuls/kulturpuls/internal/schema"
)

// Fetcher is the source adapter boundary: each provider adapter maps its
// payload into the canonical shape. Fetch errors abort the cycle; retry is
// the trigger's responsibility.
type Fetcher interface {
	// Source returns the provider tag, unique across adapters.
	Source() string
	// Fetch retrieves the provider's current event listing.
	Fetch(ctx context.Context) ([]*models.Event, error)
}

// Index reads the persisted snapshot for one source.
type Index interface {
	// ReadSourceIndex returns the stored source snapshots keyed by
	// event_id.
	ReadSourceIndex(ctx context.Context, source string) (map[string]models.SourceEvent, error)
}

// DeltaPublisher hands validated deltas to the message bus. The call
// blocks until every dispatched publish has resolved.
type DeltaPublisher interface {
	PublishDeltas(ctx context.Context, deltas []*models.Event) (succeeded, failed int, err error)
}

// Cycle runs one stateless fetch-and-reconcile invocation per source.
// Multiple cycles may run concurrently; the persisted store is the only
// shared resource.
type Cycle struct {
	index     Index
	publisher DeltaPublisher
	now       func() time.Time
}

// NewCycle creates a cycle runner over the given index and publisher.
func NewCycle(index Index, publisher DeltaPublisher) *Cycle {
	return &Cycle{
		index:     index,
		publisher: publisher,
		now:       time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (c *Cycle) SetClock(now func() time.Time) {
	c.now = now
}

// Run executes one fetch-and-reconcile cycle for the fetcher's source:
// fetch, temporal filter, change detection, schema validation, batch
// publish. Empty intermediate results short-circuit all later stages.
func (c *Cycle) Run(ctx context.Context, fetcher Fetcher) error {
	source := fetcher.Source()
	start := c.now()
	log := logging.With().Str("source", source).Logger()

	events, err := fetcher.Fetch(ctx)
	if err != nil {
		metrics.RecordCycleError(source)
		return fmt.Errorf("fetch %s: %w", source, err)
	}
	metrics.RecordFetched(source, len(events))
	log.Info().Int("count", len(events)).Msg("Fetched events from source")
	if len(events) == 0 {
		log.Info().Msg("No events in source, skipping remaining steps")
		return nil
	}

	now := c.now()
	upcoming := FilterUpcoming(events, now)
	log.Info().Int("count", len(upcoming)).Msg("Upcoming events after temporal filter")
	if len(upcoming) == 0 {
		log.Info().Msg("No upcoming events, skipping remaining steps")
		return nil
	}

	persisted, err := c.index.ReadSourceIndex(ctx, source)
	if err != nil {
		metrics.RecordCycleError(source)
		return fmt.Errorf("read index for %s: %w", source, err)
	}

	deltas := DetectChanges(source, upcoming, persisted, now)
	metrics.RecordDeltas(source, len(deltas.New), len(deltas.Changed), len(deltas.Deleted))
	log.Info().
		Int("new", len(deltas.New)).
		Int("changed", len(deltas.Changed)).
		Int("deleted", len(deltas.Deleted)).
		Msg("Change detection complete")
	if deltas.Empty() {
		log.Info().Msg("No deltas, skipping remaining steps")
		return nil
	}

	valid := schema.Filter(deltas.All())
	log.Info().
		Int("valid", len(valid)).
		Int("dropped", len(deltas.All())-len(valid)).
		Msg("Schema validation complete")
	if len(valid) == 0 {
		log.Info().Msg("No valid deltas, skipping publish")
		return nil
	}

	succeeded, failed, err := c.publisher.PublishDeltas(ctx, valid)
	if err != nil {
		metrics.RecordCycleError(source)
		return fmt.Errorf("publish deltas for %s: %w", source, err)
	}
	log.Info().
		Int("succeeded", succeeded).
		Int("failed", failed).
		Msg("Delta publish complete")

	metrics.RecordCycle(source, c.now().Sub(start))
	return nil
}
