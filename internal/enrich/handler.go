// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package enrich

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/kulturpuls/kulturpuls/internal/bus"
	"github.com/kulturpuls/kulturpuls/internal/logging"
)

// Handler adapts the orchestrator to a bus consumer. Decode failures are
// permanent; the router's retry gives up on them immediately short of the
// poison queue, while processing errors stay retryable.
func Handler(orchestrator *Orchestrator) message.NoPublishHandlerFunc {
	logger := logging.With().Str("component", "enrich-handler").Logger()

	return func(msg *message.Message) error {
		event, err := bus.DeserializeEvent(msg.Payload)
		if err != nil {
			logger.Error().Err(err).Str("message_id", msg.UUID).Msg("undecodable delta")
			return bus.NewPermanentError("decode delta", err)
		}

		if err := orchestrator.Process(msg.Context(), event); err != nil {
			logger.Error().Err(err).
				Str("source", event.Source).
				Str("event_id", event.SourceData.EventID).
				Msg("enrichment failed")
			return err
		}
		return nil
	}
}
