// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/kulturpuls/kulturpuls/internal/logging"
	"github.com/kulturpuls/kulturpuls/internal/metrics"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

// BatchPublisher publishes delta events in bounded batches. Batches are
// cut when adding a message would exceed the byte or message bound; each
// batch is dispatched on its own goroutine and the call joins on all of
// them before returning. Per-message failures are tallied, never
// propagated as an error, so one bad publish does not abort the cycle.
type BatchPublisher struct {
	publisher  EventPublisher
	serializer *Serializer
	config     BatchConfig
}

// NewBatchPublisher creates a batch publisher over the given publisher.
func NewBatchPublisher(publisher EventPublisher, cfg BatchConfig) *BatchPublisher {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultBatchConfig().MaxMessages
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultBatchConfig().MaxBytes
	}
	if cfg.Topic == "" {
		cfg.Topic = TopicDeltas
	}
	return &BatchPublisher{
		publisher:  publisher,
		serializer: NewSerializer(),
		config:     cfg,
	}
}

// PublishDeltas serializes and publishes the given events, returning how
// many publishes succeeded and how many failed. Events that fail to
// serialize count as failed without being dispatched.
func (b *BatchPublisher) PublishDeltas(ctx context.Context, deltas []*models.Event) (int, int, error) {
	start := time.Now()

	var succeeded, failed atomic.Int64

	msgs := make([]*message.Message, 0, len(deltas))
	for _, event := range deltas {
		data, err := b.serializer.Marshal(event)
		if err != nil {
			logging.Error().
				Err(err).
				Str("source", event.Source).
				Str("event_id", event.SourceData.EventID).
				Msg("Failed to serialize delta, skipping")
			failed.Add(1)
			continue
		}
		msgs = append(msgs, NewEventMessage(event, data))
	}

	var wg sync.WaitGroup
	for _, batch := range b.partition(msgs) {
		wg.Add(1)
		go func(batch []*message.Message) {
			defer wg.Done()
			b.publishBatch(ctx, batch, &succeeded, &failed)
		}(batch)
	}
	wg.Wait()

	metrics.RecordPublishBatch(time.Since(start))
	logging.Info().
		Str("topic", b.config.Topic).
		Int64("succeeded", succeeded.Load()).
		Int64("failed", failed.Load()).
		Dur("elapsed", time.Since(start)).
		Msg("Batch publish complete")

	return int(succeeded.Load()), int(failed.Load()), nil
}

// partition splits messages into batches bounded by the configured byte
// and message limits. A message larger than the byte bound still gets a
// batch of its own.
func (b *BatchPublisher) partition(msgs []*message.Message) [][]*message.Message {
	var batches [][]*message.Message
	var current []*message.Message
	currentBytes := 0

	for _, msg := range msgs {
		size := len(msg.Payload)
		if len(current) > 0 &&
			(len(current) >= b.config.MaxMessages || currentBytes+size > b.config.MaxBytes) {
			batches = append(batches, current)
			current = nil
			currentBytes = 0
		}
		current = append(current, msg)
		currentBytes += size
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// publishBatch publishes one batch, counting each message's outcome.
// The flush timeout bounds the whole batch; messages left unpublished
// when it expires count as failed.
func (b *BatchPublisher) publishBatch(ctx context.Context, batch []*message.Message, succeeded, failed *atomic.Int64) {
	if b.config.FlushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.FlushTimeout)
		defer cancel()
	}

	for i, msg := range batch {
		if ctx.Err() != nil {
			failed.Add(int64(len(batch) - i))
			logging.Warn().
				Err(ctx.Err()).
				Int("remaining", len(batch)-i).
				Msg("Batch publish aborted")
			return
		}

		if err := b.publisher.Publish(ctx, b.config.Topic, msg); err != nil {
			failed.Add(1)
			logging.Error().
				Err(err).
				Str("message_uuid", msg.UUID).
				Str("source", msg.Metadata.Get("source")).
				Str("event_id", msg.Metadata.Get("event_id")).
				Msg("Failed to publish delta")
			continue
		}
		succeeded.Add(1)
	}
}
