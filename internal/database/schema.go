// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package database

import (
	"context"
	"fmt"
)

// schemaStatements holds the full schema in creation order. Sequences
// back the surrogate ids; the UNIQUE constraint on (source,
// source_event_id) is what the upsert conflicts on.
var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS events_id_seq`,
	`CREATE SEQUENCE IF NOT EXISTS venues_id_seq`,
	`CREATE SEQUENCE IF NOT EXISTS categories_id_seq`,
	`CREATE SEQUENCE IF NOT EXISTS themes_id_seq`,
	`CREATE SEQUENCE IF NOT EXISTS genres_id_seq`,

	`CREATE TABLE IF NOT EXISTS events (
		id BIGINT PRIMARY KEY DEFAULT nextval('events_id_seq'),
		external_id TEXT NOT NULL,
		source TEXT NOT NULL,
		source_event_id TEXT NOT NULL,
		data JSON NOT NULL,
		category_id BIGINT,
		category_name TEXT,
		category_include BOOLEAN,
		theme_ids JSON,
		genre_ids JSON,
		subgenres JSON,
		venue_id BIGINT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (source, source_event_id)
	)`,

	`CREATE TABLE IF NOT EXISTS categories (
		id BIGINT PRIMARY KEY DEFAULT nextval('categories_id_seq'),
		name TEXT NOT NULL UNIQUE,
		include BOOLEAN NOT NULL DEFAULT true,
		definition TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS venues (
		id BIGINT PRIMARY KEY DEFAULT nextval('venues_id_seq'),
		name TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		zipcode INTEGER,
		default_organizer TEXT NOT NULL DEFAULT '',
		latitude DOUBLE,
		longitude DOUBLE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS themes (
		id BIGINT PRIMARY KEY DEFAULT nextval('themes_id_seq'),
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS genres (
		id BIGINT PRIMARY KEY DEFAULT nextval('genres_id_seq'),
		name TEXT NOT NULL UNIQUE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_source ON events (source)`,
}

// initSchema creates all tables and indexes if they don't exist.
func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}
