// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

// Package main is the entry point for the Kulturpuls server.
//
// Kulturpuls aggregates cultural events from ticketing providers,
// reconciles them against the persisted store, enriches them with an
// external classifier, and forwards included events downstream.
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layering defaults, config file, environment
//  2. Database: DuckDB store with schema bootstrap
//  3. NATS: embedded JetStream server (optional) and stream provisioning
//  4. Bus: resilient publisher, durable subscriber, router with retry
//     and poison queue middleware
//  5. Pipeline: classifier client, enrichment orchestrator, sync
//     forwarder, batch publisher, per-source fetch cycles
//  6. HTTP: chi API with venue CRUD, catalog reads, triggers, metrics
//  7. Supervision: suture tree running router, scheduler, and HTTP server
//
// Graceful shutdown runs on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/kulturpuls/kulturpuls/internal/api"
	"github.com/kulturpuls/kulturpuls/internal/bus"
	"github.com/kulturpuls/kulturpuls/internal/classifier"
	"github.com/kulturpuls/kulturpuls/internal/config"
	"github.com/kulturpuls/kulturpuls/internal/database"
	"github.com/kulturpuls/kulturpuls/internal/enrich"
	"github.com/kulturpuls/kulturpuls/internal/ingest"
	"github.com/kulturpuls/kulturpuls/internal/logging"
	"github.com/kulturpuls/kulturpuls/internal/sources"
	"github.com/kulturpuls/kulturpuls/internal/supervisor"
	syncfwd "github.com/kulturpuls/kulturpuls/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("embedded_nats", cfg.NATS.EmbeddedServer).
		Msg("Starting Kulturpuls")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	natsURL := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		serverCfg := bus.DefaultServerConfig()
		if cfg.NATS.StoreDir != "" {
			serverCfg.StoreDir = cfg.NATS.StoreDir
		}
		if cfg.NATS.MaxMemory > 0 {
			serverCfg.JetStreamMaxMem = cfg.NATS.MaxMemory
		}
		if cfg.NATS.MaxStore > 0 {
			serverCfg.JetStreamMaxStore = cfg.NATS.MaxStore
		}
		embedded, err := bus.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return fmt.Errorf("start embedded NATS: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("Error stopping embedded NATS")
			}
		}()
		natsURL = embedded.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	}

	if err := provisionStreams(ctx, natsURL); err != nil {
		return fmt.Errorf("provision streams: %w", err)
	}

	wmLogger := logging.NewWatermillAdapter()

	publisher, err := bus.NewPublisher(bus.DefaultPublisherConfig(natsURL), wmLogger)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	defer closeQuietly(publisher, "publisher")
	publisher.SetCircuitBreaker(bus.NewCircuitBreaker(bus.DefaultCircuitBreakerConfig("nats-publish")))

	subCfg := bus.DefaultSubscriberConfig(natsURL)
	subCfg.StreamName = bus.DefaultEventStreamConfig().Name
	if cfg.NATS.SubscribersCount > 0 {
		subCfg.SubscribersCount = cfg.NATS.SubscribersCount
	}
	if cfg.NATS.DurableName != "" {
		subCfg.DurableName = cfg.NATS.DurableName
	}
	if cfg.NATS.QueueGroup != "" {
		subCfg.QueueGroup = cfg.NATS.QueueGroup
	}
	subscriber, err := bus.NewSubscriber(&subCfg, wmLogger)
	if err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}
	defer closeQuietly(subscriber, "subscriber")

	routerCfg := bus.DefaultRouterConfig()
	if cfg.NATS.RouterRetryCount > 0 {
		routerCfg.RetryMaxRetries = cfg.NATS.RouterRetryCount
	}
	if cfg.NATS.RouterRetryInitialInterval > 0 {
		routerCfg.RetryInitialInterval = cfg.NATS.RouterRetryInitialInterval
	}
	if cfg.NATS.RouterPoisonQueueTopic != "" {
		routerCfg.PoisonQueueTopic = cfg.NATS.RouterPoisonQueueTopic
	}
	if cfg.NATS.RouterCloseTimeout > 0 {
		routerCfg.CloseTimeout = cfg.NATS.RouterCloseTimeout
	}
	router, err := bus.NewRouter(&routerCfg, publisher.WatermillPublisher(), wmLogger)
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}
	defer closeQuietly(router, "router")

	cls := classifier.New(cfg.Classifier)
	forwarder := syncfwd.NewForwarder(publisher, bus.TopicSync)
	orchestrator := enrich.NewOrchestrator(db, cls, forwarder)
	router.AddConsumerHandler("event-enricher", bus.TopicDeltas, subscriber.WatermillSubscriber(), enrich.Handler(orchestrator))

	batchCfg := bus.DefaultBatchConfig()
	if cfg.Publish.BatchMaxBytes > 0 {
		batchCfg.MaxBytes = cfg.Publish.BatchMaxBytes
	}
	if cfg.Publish.BatchMaxMessages > 0 {
		batchCfg.MaxMessages = cfg.Publish.BatchMaxMessages
	}
	if cfg.Publish.FlushTimeout > 0 {
		batchCfg.FlushTimeout = cfg.Publish.FlushTimeout
	}
	cycle := ingest.NewCycle(db, bus.NewBatchPublisher(publisher, batchCfg))
	scheduler := ingest.NewScheduler(cycle, cfg.Ingest.Interval, cfg.Ingest.CycleTimeout)
	for _, fetcher := range sources.FromConfig(cfg.Sources).All() {
		scheduler.Register(fetcher)
		logging.Info().Str("source", fetcher.Source()).Msg("Source registered")
	}

	handler := api.NewHandler(db, scheduler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg.API),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddPipelineService(supervisor.NewRunnerService("bus-router", router))
	tree.AddPipelineService(supervisor.NewRunnerService(scheduler.String(), scheduler))
	tree.AddAPIService(supervisor.NewHTTPService(httpServer, cfg.Server.Timeout))

	logging.Info().Str("addr", httpServer.Addr).Msg("Supervision tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervision tree: %w", err)
	}
	logging.Info().Msg("Shutdown complete")
	return nil
}

// provisionStreams ensures both JetStream streams exist before any
// publisher or consumer starts.
func provisionStreams(ctx context.Context, natsURL string) error {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	for _, streamCfg := range []bus.StreamConfig{
		bus.DefaultEventStreamConfig(),
		bus.DefaultSyncStreamConfig(),
	} {
		cfg := streamCfg
		initializer, err := bus.NewStreamInitializer(js, &cfg)
		if err != nil {
			return err
		}
		if _, err := initializer.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
		logging.Info().Str("stream", cfg.Name).Msg("Stream ready")
	}
	return nil
}

func closeQuietly(c interface{ Close() error }, name string) {
	if err := c.Close(); err != nil {
		logging.Error().Err(err).Str("component", name).Msg("Error closing component")
	}
}
