// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kulturpuls/kulturpuls/internal/models"
)

type fakeFetcher struct {
	source string
	events []*models.Event
	err    error
}

func (f *fakeFetcher) Source() string { return f.source }

func (f *fakeFetcher) Fetch(_ context.Context) ([]*models.Event, error) {
	return f.events, f.err
}

type fakeIndex struct {
	snapshots map[string]models.SourceEvent
	err       error
	calls     int
}

func (f *fakeIndex) ReadSourceIndex(_ context.Context, _ string) (map[string]models.SourceEvent, error) {
	f.calls++
	return f.snapshots, f.err
}

type fakePublisher struct {
	published []*models.Event
	failed    int
	err       error
	calls     int
}

func (f *fakePublisher) PublishDeltas(_ context.Context, deltas []*models.Event) (int, int, error) {
	f.calls++
	if f.err != nil {
		return 0, 0, f.err
	}
	f.published = append(f.published, deltas...)
	return len(deltas) - f.failed, f.failed, nil
}

func validEvent(id string) *models.Event {
	return models.NewEvent("tickster", models.SourceEvent{
		Name:          "Event " + id,
		EventID:       id,
		StartDatetime: "2099-01-01T00:00:00Z",
		Venue:         models.Venue{Name: "Scalateatern", City: "Stockholm"},
	})
}

func newTestCycle(index *fakeIndex, pub *fakePublisher) *Cycle {
	c := NewCycle(index, pub)
	c.SetClock(func() time.Time { return testNow })
	return c
}

func TestCycleRunPublishesDeltas(t *testing.T) {
	index := &fakeIndex{snapshots: map[string]models.SourceEvent{}}
	pub := &fakePublisher{}
	c := newTestCycle(index, pub)

	fetcher := &fakeFetcher{source: "tickster", events: []*models.Event{validEvent("A"), validEvent("B")}}
	if err := c.Run(context.Background(), fetcher); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(pub.published) != 2 {
		t.Errorf("published %d events, want 2", len(pub.published))
	}
}

func TestCycleRunFetchErrorPropagates(t *testing.T) {
	index := &fakeIndex{}
	pub := &fakePublisher{}
	c := newTestCycle(index, pub)

	fetchErr := errors.New("upstream unavailable")
	err := c.Run(context.Background(), &fakeFetcher{source: "tickster", err: fetchErr})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("Run() error = %v, want wrapped %v", err, fetchErr)
	}
	if index.calls != 0 || pub.calls != 0 {
		t.Errorf("index calls = %d, publisher calls = %d, want 0 after fetch failure", index.calls, pub.calls)
	}
}

func TestCycleRunEmptyFetchShortCircuits(t *testing.T) {
	index := &fakeIndex{}
	pub := &fakePublisher{}
	c := newTestCycle(index, pub)

	if err := c.Run(context.Background(), &fakeFetcher{source: "tickster"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if index.calls != 0 || pub.calls != 0 {
		t.Errorf("index calls = %d, publisher calls = %d, want 0 on empty fetch", index.calls, pub.calls)
	}
}

func TestCycleRunAllPastShortCircuitsBeforeIndexRead(t *testing.T) {
	index := &fakeIndex{}
	pub := &fakePublisher{}
	c := newTestCycle(index, pub)

	past := validEvent("A")
	past.SourceData.StartDatetime = "2020-01-01T00:00:00Z"
	if err := c.Run(context.Background(), &fakeFetcher{source: "tickster", events: []*models.Event{past}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if index.calls != 0 {
		t.Errorf("index calls = %d, want 0 when nothing is upcoming", index.calls)
	}
}

func TestCycleRunNoDeltasSkipsPublish(t *testing.T) {
	event := validEvent("A")
	index := &fakeIndex{snapshots: map[string]models.SourceEvent{"A": event.SourceData}}
	pub := &fakePublisher{}
	c := newTestCycle(index, pub)

	if err := c.Run(context.Background(), &fakeFetcher{source: "tickster", events: []*models.Event{event}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if pub.calls != 0 {
		t.Errorf("publisher calls = %d, want 0 for unchanged snapshot", pub.calls)
	}
}

func TestCycleRunIndexErrorPropagates(t *testing.T) {
	indexErr := errors.New("store offline")
	index := &fakeIndex{err: indexErr}
	pub := &fakePublisher{}
	c := newTestCycle(index, pub)

	err := c.Run(context.Background(), &fakeFetcher{source: "tickster", events: []*models.Event{validEvent("A")}})
	if !errors.Is(err, indexErr) {
		t.Fatalf("Run() error = %v, want wrapped %v", err, indexErr)
	}
	if pub.calls != 0 {
		t.Errorf("publisher calls = %d, want 0 after index failure", pub.calls)
	}
}

func TestCycleRunInvalidDeltasDropped(t *testing.T) {
	index := &fakeIndex{snapshots: map[string]models.SourceEvent{}}
	pub := &fakePublisher{}
	c := newTestCycle(index, pub)

	invalid := validEvent("A")
	invalid.SourceData.Venue.Name = ""
	if err := c.Run(context.Background(), &fakeFetcher{source: "tickster", events: []*models.Event{invalid, validEvent("B")}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(pub.published) != 1 || pub.published[0].SourceData.EventID != "B" {
		t.Errorf("published = %v, want only B", pub.published)
	}
}

func TestSchedulerTriggerUnknownSource(t *testing.T) {
	index := &fakeIndex{}
	pub := &fakePublisher{}
	s := NewScheduler(newTestCycle(index, pub), time.Hour, time.Minute)

	if err := s.Trigger(context.Background(), "nope"); err == nil {
		t.Fatal("Trigger() = nil, want error for unregistered source")
	}
}

func TestSchedulerTriggerRunsCycle(t *testing.T) {
	index := &fakeIndex{snapshots: map[string]models.SourceEvent{}}
	pub := &fakePublisher{}
	s := NewScheduler(newTestCycle(index, pub), time.Hour, time.Minute)
	s.Register(&fakeFetcher{source: "tickster", events: []*models.Event{validEvent("A")}})

	if err := s.Trigger(context.Background(), "tickster"); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if len(pub.published) != 1 {
		t.Errorf("published %d events, want 1", len(pub.published))
	}
}
