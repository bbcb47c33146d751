// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/kulturpuls/kulturpuls/internal/metrics"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

const upsertEventSQL = `
INSERT INTO events (
	external_id, source, source_event_id, data,
	category_id, category_name, category_include,
	theme_ids, genre_ids, subgenres, venue_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source, source_event_id) DO UPDATE SET
	data = excluded.data,
	category_id = excluded.category_id,
	category_name = excluded.category_name,
	category_include = excluded.category_include,
	theme_ids = excluded.theme_ids,
	genre_ids = excluded.genre_ids,
	subgenres = excluded.subgenres,
	venue_id = excluded.venue_id,
	updated_at = now()
RETURNING id, external_id`

// UpsertEvent writes an event keyed by (source, source_event_id).
// On conflict the stored snapshot and enrichment columns are replaced
// while id and external_id keep their original values. The assigned
// identity is returned either way.
func (db *DB) UpsertEvent(ctx context.Context, event *models.Event) (models.UpsertResult, error) {
	start := time.Now()

	data, err := models.CanonicalSourceJSON(&event.SourceData)
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("serialize event data: %w", err)
	}

	themeIDs, err := marshalNullable(event.ThemeIDs)
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("serialize theme ids: %w", err)
	}
	genreIDs, err := marshalNullable(event.GenreIDs)
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("serialize genre ids: %w", err)
	}
	subgenres, err := marshalNullable(event.Subgenres)
	if err != nil {
		return models.UpsertResult{}, fmt.Errorf("serialize subgenres: %w", err)
	}

	var result models.UpsertResult
	err = db.conn.QueryRowContext(ctx, upsertEventSQL,
		uuid.NewString(),
		event.Source,
		event.SourceData.EventID,
		string(data),
		nullableInt64(event.CategoryID),
		nullableString(event.CategoryName),
		nullableBool(event.CategoryInclude),
		themeIDs,
		genreIDs,
		subgenres,
		nullableInt64(event.VenueID),
	).Scan(&result.ID, &result.ExternalID)
	if err != nil {
		metrics.RecordStoreError("upsert_event")
		return models.UpsertResult{}, fmt.Errorf("upsert event %s/%s: %w",
			event.Source, event.SourceData.EventID, err)
	}

	metrics.RecordUpsert(time.Since(start))
	return result, nil
}

// ReadSourceIndex returns the stored source snapshots for one source,
// keyed by source event id. Used by change detection.
func (db *DB) ReadSourceIndex(ctx context.Context, source string) (map[string]models.SourceEvent, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT source_event_id, data::VARCHAR FROM events WHERE source = ?`, source)
	if err != nil {
		metrics.RecordStoreError("read_source_index")
		return nil, fmt.Errorf("read source index for %s: %w", source, err)
	}
	defer closeQuietly(rows)

	index := make(map[string]models.SourceEvent)
	for rows.Next() {
		var eventID, data string
		if err := rows.Scan(&eventID, &data); err != nil {
			return nil, fmt.Errorf("scan source index row: %w", err)
		}
		stored, err := models.DecodeSourceEvent([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("decode stored event %s/%s: %w", source, eventID, err)
		}
		index[eventID] = *stored
	}
	return index, rows.Err()
}

const getEventSQL = `
SELECT id, external_id, data::VARCHAR,
	category_id, category_name, category_include,
	theme_ids::VARCHAR, genre_ids::VARCHAR, subgenres::VARCHAR, venue_id
FROM events
WHERE source = ? AND source_event_id = ?`

// GetEvent returns the stored event with its enrichment columns, or
// ErrNotFound. Used to memoize enrichment results across redeliveries.
func (db *DB) GetEvent(ctx context.Context, source, eventID string) (*models.Event, error) {
	var (
		data            string
		categoryID      sql.NullInt64
		categoryName    sql.NullString
		categoryInclude sql.NullBool
		themeIDs        sql.NullString
		genreIDs        sql.NullString
		subgenres       sql.NullString
		venueID         sql.NullInt64
	)

	event := &models.Event{Source: source}
	err := db.conn.QueryRowContext(ctx, getEventSQL, source, eventID).Scan(
		&event.ID, &event.ExternalID, &data,
		&categoryID, &categoryName, &categoryInclude,
		&themeIDs, &genreIDs, &subgenres, &venueID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError("get_event")
		return nil, fmt.Errorf("get event %s/%s: %w", source, eventID, err)
	}

	stored, err := models.DecodeSourceEvent([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode stored event %s/%s: %w", source, eventID, err)
	}
	event.SourceData = *stored

	if categoryID.Valid {
		event.CategoryID = &categoryID.Int64
	}
	if categoryName.Valid {
		event.CategoryName = &categoryName.String
	}
	if categoryInclude.Valid {
		event.CategoryInclude = &categoryInclude.Bool
	}
	if venueID.Valid {
		event.VenueID = &venueID.Int64
	}
	if err := unmarshalNullable(themeIDs, &event.ThemeIDs); err != nil {
		return nil, fmt.Errorf("decode theme ids: %w", err)
	}
	if err := unmarshalNullable(genreIDs, &event.GenreIDs); err != nil {
		return nil, fmt.Errorf("decode genre ids: %w", err)
	}
	if err := unmarshalNullable(subgenres, &event.Subgenres); err != nil {
		return nil, fmt.Errorf("decode subgenres: %w", err)
	}

	return event, nil
}

// marshalNullable serializes a slice to JSON, or NULL for an empty one.
func marshalNullable[T any](values []T) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// unmarshalNullable decodes a JSON column into dst, leaving it nil for
// NULL values.
func unmarshalNullable[T any](column sql.NullString, dst *[]T) error {
	if !column.Valid || column.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(column.String), dst)
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}
