// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

// Package metrics provides Prometheus instrumentation for the pipeline:
// fetch cycles, delta detection, publishing, enrichment stages, store
// operations, and downstream forwarding.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fetch cycle metrics
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kulturpuls_cycle_duration_seconds",
			Help:    "Duration of one fetch-and-reconcile cycle per source",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"source"},
	)

	CycleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kulturpuls_cycle_errors_total",
			Help: "Total number of failed fetch-and-reconcile cycles",
		},
		[]string{"source"},
	)

	EventsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kulturpuls_events_fetched_total",
			Help: "Total number of events fetched from sources",
		},
		[]string{"source"},
	)

	EventsInvalid = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kulturpuls_events_invalid_total",
			Help: "Total number of events dropped by schema validation",
		},
		[]string{"source"},
	)

	// Change detection metrics
	Deltas = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kulturpuls_deltas_total",
			Help: "Total number of deltas produced by the change detector",
		},
		[]string{"source", "kind"}, // kind: new, changed, deleted
	)

	// Publish metrics
	PublishSuccess = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kulturpuls_publish_success_total",
			Help: "Total number of successfully published delta messages",
		},
	)

	PublishFailure = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kulturpuls_publish_failure_total",
			Help: "Total number of failed delta message publishes",
		},
	)

	PublishBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kulturpuls_publish_batch_duration_seconds",
			Help:    "Duration of one bounded publish batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Enrichment metrics
	EnrichmentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kulturpuls_enrichment_stage_outcomes_total",
			Help: "Per-stage enrichment outcomes",
		},
		[]string{"stage", "outcome"}, // stage: category, venue, theme, genre; outcome: ok, skipped, fatal
	)

	EnrichmentMemoized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kulturpuls_enrichment_memoized_total",
			Help: "Total number of deltas that reused a prior classification",
		},
	)

	ClassifierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kulturpuls_classifier_duration_seconds",
			Help:    "Duration of external classifier calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"}, // kind: category, theme, genre
	)

	// Store metrics
	UpsertDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kulturpuls_upsert_duration_seconds",
			Help:    "Duration of event upserts",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kulturpuls_store_errors_total",
			Help: "Total number of store operation errors",
		},
		[]string{"operation"},
	)

	// Sync forwarding metrics
	SyncForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kulturpuls_sync_forwarded_total",
			Help: "Total number of events forwarded to the downstream consumer",
		},
	)

	SyncSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kulturpuls_sync_skipped_total",
			Help: "Total number of events skipped by the category include gate",
		},
	)
)

// RecordCycle records the duration of a completed cycle.
func RecordCycle(source string, d time.Duration) {
	CycleDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordCycleError increments the failed-cycle counter.
func RecordCycleError(source string) {
	CycleErrors.WithLabelValues(source).Inc()
}

// RecordFetched adds fetched events to the per-source counter.
func RecordFetched(source string, n int) {
	EventsFetched.WithLabelValues(source).Add(float64(n))
}

// RecordEventInvalid increments the validation-drop counter.
func RecordEventInvalid(source string) {
	EventsInvalid.WithLabelValues(source).Inc()
}

// RecordDeltas records detector output sizes for one cycle.
func RecordDeltas(source string, newCount, changedCount, deletedCount int) {
	Deltas.WithLabelValues(source, "new").Add(float64(newCount))
	Deltas.WithLabelValues(source, "changed").Add(float64(changedCount))
	Deltas.WithLabelValues(source, "deleted").Add(float64(deletedCount))
}

// RecordPublish records one resolved publish.
func RecordPublish(ok bool) {
	if ok {
		PublishSuccess.Inc()
	} else {
		PublishFailure.Inc()
	}
}

// RecordPublishBatch records a flushed batch's duration.
func RecordPublishBatch(d time.Duration) {
	PublishBatchDuration.Observe(d.Seconds())
}

// RecordStageOutcome records one enrichment stage result.
func RecordStageOutcome(stage, outcome string) {
	EnrichmentOutcomes.WithLabelValues(stage, outcome).Inc()
}

// RecordMemoized increments the memoization counter.
func RecordMemoized() {
	EnrichmentMemoized.Inc()
}

// RecordClassifierCall records an external classifier call duration.
func RecordClassifierCall(kind string, d time.Duration) {
	ClassifierDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordUpsert records one upsert duration.
func RecordUpsert(d time.Duration) {
	UpsertDuration.Observe(d.Seconds())
}

// RecordStoreError increments the store error counter for an operation.
func RecordStoreError(operation string) {
	StoreErrors.WithLabelValues(operation).Inc()
}

// RecordSyncForwarded increments the forwarded counter.
func RecordSyncForwarded() {
	SyncForwarded.Inc()
}

// RecordSyncSkipped increments the include-gate skip counter.
func RecordSyncSkipped() {
	SyncSkipped.Inc()
}
