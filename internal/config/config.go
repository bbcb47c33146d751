// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

// Package config provides layered configuration loading.
// Precedence: environment variables > config file > defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the pipeline.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Database   DatabaseConfig   `koanf:"database"`
	NATS       NATSConfig       `koanf:"nats"`
	Publish    PublishConfig    `koanf:"publish"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Sources    SourcesConfig    `koanf:"sources"`
	API        APIConfig        `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"` // 0 = use runtime.NumCPU()
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// NATSConfig holds NATS JetStream settings.
type NATSConfig struct {
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	// SubscribersCount is the number of concurrent message processors.
	// Keep at 1 so events with the same key are never enriched
	// concurrently within one instance.
	SubscribersCount int    `koanf:"subscribers_count"`
	DurableName      string `koanf:"durable_name"`
	QueueGroup       string `koanf:"queue_group"`

	RouterRetryCount           int           `koanf:"router_retry_count"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`
	RouterPoisonQueueTopic     string        `koanf:"router_poison_queue_topic"`
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout"`
}

// PublishConfig bounds delta batch publishing.
type PublishConfig struct {
	BatchMaxBytes    int           `koanf:"batch_max_bytes"`
	BatchMaxMessages int           `koanf:"batch_max_messages"`
	FlushTimeout     time.Duration `koanf:"flush_timeout"`
}

// IngestConfig holds fetch cycle scheduling settings.
type IngestConfig struct {
	Interval     time.Duration `koanf:"interval"`
	CycleTimeout time.Duration `koanf:"cycle_timeout"`
}

// ClassifierConfig holds LLM classifier client settings.
type ClassifierConfig struct {
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Model             string        `koanf:"model"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
}

// SourceConfig holds one provider adapter's settings.
type SourceConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// SourcesConfig holds all provider adapter settings.
type SourcesConfig struct {
	Tickster   SourceConfig `koanf:"tickster"`
	Folkoperan SourceConfig `koanf:"folkoperan"`
	Billetto   SourceConfig `koanf:"billetto"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// defaultConfig returns a Config with all defaults applied.
// These are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:                   "/data/kulturpuls.duckdb",
			MaxMemory:              "2GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		NATS: NATSConfig{
			URL:                        "nats://127.0.0.1:4222",
			EmbeddedServer:             true,
			StoreDir:                   "/data/nats/jetstream",
			MaxMemory:                  1 << 30,  // 1GB
			MaxStore:                   10 << 30, // 10GB
			SubscribersCount:           1,
			DurableName:                "event-enricher",
			QueueGroup:                 "enrichers",
			RouterRetryCount:           5,
			RouterRetryInitialInterval: time.Second,
			RouterPoisonQueueTopic:     "dlq.events",
			RouterCloseTimeout:         30 * time.Second,
		},
		Publish: PublishConfig{
			BatchMaxBytes:    5 * 1024 * 1024, // 5MiB
			BatchMaxMessages: 1000,
			FlushTimeout:     5 * time.Second,
		},
		Ingest: IngestConfig{
			Interval:     time.Hour,
			CycleTimeout: 10 * time.Minute,
		},
		Classifier: ClassifierConfig{
			BaseURL:           "https://api.openai.com/v1",
			APIKey:            "",
			Model:             "gpt-4o-mini",
			Timeout:           60 * time.Second,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Sources: SourcesConfig{
			Tickster:   SourceConfig{Enabled: false, Timeout: 30 * time.Second},
			Folkoperan: SourceConfig{Enabled: false, Timeout: 30 * time.Second},
			Billetto:   SourceConfig{Enabled: false, Timeout: 30 * time.Second},
		},
		API: APIConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
	}
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path required")
	}
	if c.Publish.BatchMaxBytes <= 0 {
		return fmt.Errorf("publish batch_max_bytes must be positive")
	}
	if c.Publish.BatchMaxMessages <= 0 {
		return fmt.Errorf("publish batch_max_messages must be positive")
	}
	if c.Ingest.Interval <= 0 {
		return fmt.Errorf("ingest interval must be positive")
	}
	if c.NATS.SubscribersCount <= 0 {
		return fmt.Errorf("nats subscribers_count must be positive")
	}
	for name, src := range map[string]SourceConfig{
		"tickster":   c.Sources.Tickster,
		"folkoperan": c.Sources.Folkoperan,
		"billetto":   c.Sources.Billetto,
	} {
		if src.Enabled && src.URL == "" {
			return fmt.Errorf("source %s enabled without url", name)
		}
	}
	return nil
}
