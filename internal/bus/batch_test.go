// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/kulturpuls/kulturpuls/internal/models"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []*message.Message
	failIDs   map[string]bool
}

func (f *fakePublisher) Publish(_ context.Context, _ string, msg *message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[msg.Metadata.Get("event_id")] {
		return errors.New("publish rejected")
	}
	f.published = append(f.published, msg)
	return nil
}

func deltaEvent(id string) *models.Event {
	return models.NewEvent("tickster", models.SourceEvent{
		Name:          "Event " + id,
		EventID:       id,
		StartDatetime: "2099-01-01T00:00:00Z",
		Venue:         models.Venue{Name: "Scalateatern", City: "Stockholm"},
	})
}

func TestBatchPublisherAllSucceed(t *testing.T) {
	pub := &fakePublisher{}
	bp := NewBatchPublisher(pub, DefaultBatchConfig())

	events := []*models.Event{deltaEvent("A"), deltaEvent("B"), deltaEvent("C")}
	succeeded, failed, err := bp.PublishDeltas(context.Background(), events)
	if err != nil {
		t.Fatalf("PublishDeltas() error = %v", err)
	}
	if succeeded != 3 || failed != 0 {
		t.Errorf("succeeded = %d, failed = %d, want 3, 0", succeeded, failed)
	}
	if len(pub.published) != 3 {
		t.Errorf("published %d messages, want 3", len(pub.published))
	}
}

func TestBatchPublisherCountsFailures(t *testing.T) {
	pub := &fakePublisher{failIDs: map[string]bool{"B": true}}
	bp := NewBatchPublisher(pub, DefaultBatchConfig())

	events := []*models.Event{deltaEvent("A"), deltaEvent("B"), deltaEvent("C")}
	succeeded, failed, err := bp.PublishDeltas(context.Background(), events)
	if err != nil {
		t.Fatalf("PublishDeltas() error = %v", err)
	}
	if succeeded != 2 || failed != 1 {
		t.Errorf("succeeded = %d, failed = %d, want 2, 1", succeeded, failed)
	}
	if succeeded+failed != len(events) {
		t.Errorf("tally %d does not cover all %d events", succeeded+failed, len(events))
	}
}

func TestBatchPublisherMessageMetadata(t *testing.T) {
	pub := &fakePublisher{}
	bp := NewBatchPublisher(pub, DefaultBatchConfig())

	if _, _, err := bp.PublishDeltas(context.Background(), []*models.Event{deltaEvent("A")}); err != nil {
		t.Fatalf("PublishDeltas() error = %v", err)
	}

	msg := pub.published[0]
	if msg.Metadata.Get("source") != "tickster" || msg.Metadata.Get("event_id") != "A" {
		t.Errorf("metadata = %v, want source/event_id set", msg.Metadata)
	}
	if msg.UUID == "" {
		t.Error("message UUID is empty")
	}
}

func TestPartitionByMessageCount(t *testing.T) {
	cfg := DefaultBatchConfig()
	cfg.MaxMessages = 2
	bp := NewBatchPublisher(&fakePublisher{}, cfg)

	msgs := make([]*message.Message, 5)
	for i := range msgs {
		msgs[i] = message.NewMessage(fmt.Sprintf("%d", i), []byte("x"))
	}

	batches := bp.partition(msgs)
	if len(batches) != 3 {
		t.Fatalf("partition produced %d batches, want 3", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[1]) != 2 || len(batches[2]) != 1 {
		t.Errorf("batch sizes = %d, %d, %d, want 2, 2, 1",
			len(batches[0]), len(batches[1]), len(batches[2]))
	}
}

func TestPartitionByBytes(t *testing.T) {
	cfg := DefaultBatchConfig()
	cfg.MaxBytes = 10
	bp := NewBatchPublisher(&fakePublisher{}, cfg)

	msgs := []*message.Message{
		message.NewMessage("a", []byte(strings.Repeat("x", 6))),
		message.NewMessage("b", []byte(strings.Repeat("x", 6))),
		message.NewMessage("c", []byte(strings.Repeat("x", 20))),
	}

	batches := bp.partition(msgs)
	if len(batches) != 3 {
		t.Fatalf("partition produced %d batches, want 3", len(batches))
	}
	// The oversized message still travels, alone.
	if len(batches[2]) != 1 || len(batches[2][0].Payload) != 20 {
		t.Errorf("oversized message not isolated: %v", batches[2])
	}
}

func TestPartitionEmpty(t *testing.T) {
	bp := NewBatchPublisher(&fakePublisher{}, DefaultBatchConfig())
	if batches := bp.partition(nil); len(batches) != 0 {
		t.Errorf("partition(nil) = %v, want empty", batches)
	}
}

func TestSerializerRoundTrip(t *testing.T) {
	event := deltaEvent("A")
	event.CategoryName = strPtr("Concert")

	data, err := SerializeEvent(event)
	if err != nil {
		t.Fatalf("SerializeEvent() error = %v", err)
	}

	got, err := DeserializeEvent(data)
	if err != nil {
		t.Fatalf("DeserializeEvent() error = %v", err)
	}
	if got.Source != event.Source || got.SourceData.EventID != "A" {
		t.Errorf("round trip lost identity: %+v", got)
	}
	if got.CategoryName == nil || *got.CategoryName != "Concert" {
		t.Errorf("round trip lost enrichment field: %+v", got.CategoryName)
	}
}

func TestErrorClassification(t *testing.T) {
	retry := NewRetryableError("classifier timeout", errors.New("deadline exceeded"))
	perm := NewPermanentError("malformed payload", nil)

	if !IsRetryableError(retry) || IsPermanentError(retry) {
		t.Error("retryable error misclassified")
	}
	if !IsPermanentError(perm) || IsRetryableError(perm) {
		t.Error("permanent error misclassified")
	}
	if !IsRetryableError(fmt.Errorf("wrapped: %w", retry)) {
		t.Error("wrapped retryable error not detected")
	}
	if retry.Error() != "classifier timeout: deadline exceeded" {
		t.Errorf("Error() = %q", retry.Error())
	}
}

func strPtr(s string) *string { return &s }
