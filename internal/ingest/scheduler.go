// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kulturpuls/kulturpuls/internal/logging"
)

// Scheduler triggers fetch-and-reconcile cycles on an interval and on
// demand. Sources run concurrently within one tick; each cycle gets its
// own timeout so one slow provider cannot stall the rest.
type Scheduler struct {
	cycle    *Cycle
	interval time.Duration
	timeout  time.Duration

	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

// NewScheduler creates a scheduler running each registered fetcher every
// interval, bounding each cycle by timeout.
func NewScheduler(cycle *Cycle, interval, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cycle:    cycle,
		interval: interval,
		timeout:  timeout,
		fetchers: make(map[string]Fetcher),
	}
}

// Register adds a fetcher. Registering a duplicate source replaces the
// previous adapter.
func (s *Scheduler) Register(fetcher Fetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchers[fetcher.Source()] = fetcher
}

// Sources returns the registered source tags.
func (s *Scheduler) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.fetchers))
	for source := range s.fetchers {
		out = append(out, source)
	}
	return out
}

// Trigger runs one cycle for the named source immediately.
func (s *Scheduler) Trigger(ctx context.Context, source string) error {
	s.mu.RLock()
	fetcher, ok := s.fetchers[source]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown source %q", source)
	}

	cycleCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.cycle.Run(cycleCtx, fetcher)
}

// Run ticks until the context is canceled. Implements the suture service
// body; cycle errors are logged, not returned, so one failing source does
// not restart the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First pass at startup so a fresh deploy does not wait a full
	// interval before ingesting anything.
	s.runAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Scheduler) runAll(ctx context.Context) {
	s.mu.RLock()
	fetchers := make([]Fetcher, 0, len(s.fetchers))
	for _, f := range s.fetchers {
		fetchers = append(fetchers, f)
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, fetcher := range fetchers {
		wg.Add(1)
		go func(f Fetcher) {
			defer wg.Done()
			cycleCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := s.cycle.Run(cycleCtx, f); err != nil {
				logging.Err(err).Str("source", f.Source()).Msg("Cycle failed")
			}
		}(fetcher)
	}
	wg.Wait()
}

// String implements fmt.Stringer for supervisor logging.
func (s *Scheduler) String() string {
	return "ingest-scheduler"
}
