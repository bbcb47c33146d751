// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package sync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kulturpuls/kulturpuls/internal/bus"
	"github.com/kulturpuls/kulturpuls/internal/logging"
	"github.com/kulturpuls/kulturpuls/internal/metrics"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

// Forwarder publishes boundary projections of included events to the
// sync subject. Excluded events are skipped without error.
type Forwarder struct {
	publisher bus.EventPublisher
	stripper  *Stripper
	topic     string
	logger    zerolog.Logger
}

// NewForwarder creates a forwarder publishing to the given topic.
func NewForwarder(publisher bus.EventPublisher, topic string) *Forwarder {
	if topic == "" {
		topic = bus.TopicSync
	}
	return &Forwarder{
		publisher: publisher,
		stripper:  NewStripper(),
		topic:     topic,
		logger:    logging.With().Str("component", "sync-forwarder").Logger(),
	}
}

// Forward publishes the event downstream when its category marks it for
// inclusion. Anything else is logged and skipped.
func (f *Forwarder) Forward(ctx context.Context, event *models.Event) error {
	source, eventID := event.Key()

	if !event.Included() {
		metrics.RecordSyncSkipped()
		f.logger.Debug().
			Str("source", source).
			Str("event_id", eventID).
			Msg("event excluded from sync")
		return nil
	}

	payload, err := f.stripper.Strip(event)
	if err != nil {
		return fmt.Errorf("strip event %s/%s: %w", source, eventID, err)
	}

	msg := bus.NewEventMessage(event, payload)
	if err := f.publisher.Publish(ctx, f.topic, msg); err != nil {
		return fmt.Errorf("publish sync event %s/%s: %w", source, eventID, err)
	}

	metrics.RecordSyncForwarded()
	f.logger.Info().
		Str("source", source).
		Str("event_id", eventID).
		Msg("event forwarded")
	return nil
}
