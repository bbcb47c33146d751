// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package bus

import "time"

// Topic names for the event bus. Deltas carry reconciled event changes
// awaiting enrichment; sync carries enriched events for downstream
// consumers; dlq receives messages that exhausted their retries.
const (
	TopicDeltas = "events.deltas"
	TopicSync   = "sync.events"
	TopicPoison = "dlq.events"
)

// PublisherConfig holds publisher connection settings.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool
}

// DefaultPublisherConfig returns production defaults for the publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds durable consumer settings.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
	// StreamName binds the subscriber to a pre-created stream. Required
	// because stream names cannot contain the wildcards our subjects use.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for the enrichment
// consumer. SubscribersCount is 1 so messages for the same event key are
// never processed concurrently within one instance.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "event-enricher",
		QueueGroup:       "enrichers",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// StreamConfig defines JetStream stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultEventStreamConfig returns the stream holding delta and poison
// messages.
func DefaultEventStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "KULTURPULS_EVENTS",
		Subjects:        []string{"events.>", "dlq.>"},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        10 * 1024 * 1024 * 1024, // 10GB
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// DefaultSyncStreamConfig returns the stream holding enriched events
// for downstream consumers.
func DefaultSyncStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "KULTURPULS_SYNC",
		Subjects:        []string{"sync.>"},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        10 * 1024 * 1024 * 1024, // 10GB
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// BatchConfig bounds delta publishing. A batch is cut when it would
// exceed MaxBytes or MaxMessages; FlushTimeout caps how long any single
// batch may take to publish.
type BatchConfig struct {
	Topic        string
	MaxBytes     int
	MaxMessages  int
	FlushTimeout time.Duration
}

// DefaultBatchConfig returns production defaults for delta batching.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Topic:        TopicDeltas,
		MaxBytes:     5 * 1024 * 1024, // 5MiB
		MaxMessages:  1000,
		FlushTimeout: 5 * time.Second,
	}
}

// RouterConfig holds configuration for the message router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond limits handler throughput (0 = disabled).
	ThrottlePerSecond int64

	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults for the router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      5,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     time.Minute,
		RetryMultiplier:      2.0,
		ThrottlePerSecond:    0,
		PoisonQueueTopic:     TopicPoison,
	}
}

// CircuitBreakerConfig holds circuit breaker settings for publish paths.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
