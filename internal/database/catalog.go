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

	"github.com/kulturpuls/kulturpuls/internal/metrics"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

// Categories returns all catalog categories ordered by name.
func (db *DB) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, include, definition FROM categories ORDER BY name`)
	if err != nil {
		metrics.RecordStoreError("list_categories")
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer closeQuietly(rows)

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Include, &c.Definition); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Themes returns all catalog themes ordered by name.
func (db *DB) Themes(ctx context.Context) ([]models.Theme, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, description FROM themes ORDER BY name`)
	if err != nil {
		metrics.RecordStoreError("list_themes")
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer closeQuietly(rows)

	var themes []models.Theme
	for rows.Next() {
		var t models.Theme
		if err := rows.Scan(&t.ID, &t.Name, &t.Description); err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

// Genres returns all catalog genres ordered by name.
func (db *DB) Genres(ctx context.Context) ([]models.Genre, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name FROM genres ORDER BY name`)
	if err != nil {
		metrics.RecordStoreError("list_genres")
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer closeQuietly(rows)

	var genres []models.Genre
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

const venueColumns = `id, name, city, address, zipcode, default_organizer, latitude, longitude`

// Venues returns all catalog venues ordered by name.
func (db *DB) Venues(ctx context.Context) ([]models.VenueRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+venueColumns+` FROM venues ORDER BY name`)
	if err != nil {
		metrics.RecordStoreError("list_venues")
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer closeQuietly(rows)

	var venues []models.VenueRecord
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// GetVenue returns one venue by id, or ErrNotFound.
func (db *DB) GetVenue(ctx context.Context, id int64) (models.VenueRecord, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = ?`, id)
	v, err := scanVenue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VenueRecord{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError("get_venue")
		return models.VenueRecord{}, fmt.Errorf("get venue %d: %w", id, err)
	}
	return v, nil
}

// CreateVenue inserts a venue and returns it with its assigned id.
func (db *DB) CreateVenue(ctx context.Context, venue models.VenueRecord) (models.VenueRecord, error) {
	lat, lon := coordinateColumns(venue.Coordinates)
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO venues (name, city, address, zipcode, default_organizer, latitude, longitude)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		venue.Name, venue.City, venue.Address, nullableIntValue(venue.Zipcode),
		venue.DefaultOrganizer, lat, lon,
	).Scan(&venue.ID)
	if err != nil {
		metrics.RecordStoreError("create_venue")
		return models.VenueRecord{}, fmt.Errorf("create venue: %w", err)
	}
	return venue, nil
}

// UpdateVenue replaces a venue's fields. Returns ErrNotFound when the id
// does not exist.
func (db *DB) UpdateVenue(ctx context.Context, venue models.VenueRecord) (models.VenueRecord, error) {
	lat, lon := coordinateColumns(venue.Coordinates)
	result, err := db.conn.ExecContext(ctx,
		`UPDATE venues
		 SET name = ?, city = ?, address = ?, zipcode = ?, default_organizer = ?,
		     latitude = ?, longitude = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		venue.Name, venue.City, venue.Address, nullableIntValue(venue.Zipcode),
		venue.DefaultOrganizer, lat, lon, venue.ID,
	)
	if err != nil {
		metrics.RecordStoreError("update_venue")
		return models.VenueRecord{}, fmt.Errorf("update venue %d: %w", venue.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.VenueRecord{}, fmt.Errorf("update venue %d: %w", venue.ID, err)
	}
	if affected == 0 {
		return models.VenueRecord{}, ErrNotFound
	}
	return venue, nil
}

// DeleteVenue removes a venue by id. Returns ErrNotFound when absent.
func (db *DB) DeleteVenue(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM venues WHERE id = ?`, id)
	if err != nil {
		metrics.RecordStoreError("delete_venue")
		return fmt.Errorf("delete venue %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete venue %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertCategory inserts or updates a category by name. Used for catalog
// seeding.
func (db *DB) UpsertCategory(ctx context.Context, category models.Category) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO categories (name, include, definition) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET include = excluded.include, definition = excluded.definition`,
		category.Name, category.Include, category.Definition)
	if err != nil {
		metrics.RecordStoreError("upsert_category")
		return fmt.Errorf("upsert category %s: %w", category.Name, err)
	}
	return nil
}

// UpsertTheme inserts or updates a theme by name.
func (db *DB) UpsertTheme(ctx context.Context, theme models.Theme) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO themes (name, description) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET description = excluded.description`,
		theme.Name, theme.Description)
	if err != nil {
		metrics.RecordStoreError("upsert_theme")
		return fmt.Errorf("upsert theme %s: %w", theme.Name, err)
	}
	return nil
}

// UpsertGenre inserts a genre by name if absent.
func (db *DB) UpsertGenre(ctx context.Context, genre models.Genre) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO genres (name) VALUES (?) ON CONFLICT (name) DO NOTHING`,
		genre.Name)
	if err != nil {
		metrics.RecordStoreError("upsert_genre")
		return fmt.Errorf("upsert genre %s: %w", genre.Name, err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVenue(row rowScanner) (models.VenueRecord, error) {
	var (
		v        models.VenueRecord
		zipcode  sql.NullInt32
		lat, lon sql.NullFloat64
	)
	if err := row.Scan(&v.ID, &v.Name, &v.City, &v.Address, &zipcode,
		&v.DefaultOrganizer, &lat, &lon); err != nil {
		return models.VenueRecord{}, err
	}
	if zipcode.Valid {
		z := int(zipcode.Int32)
		v.Zipcode = &z
	}
	if lat.Valid && lon.Valid {
		v.Coordinates = &models.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return v, nil
}

func coordinateColumns(c *models.Coordinates) (any, any) {
	if c == nil {
		return nil, nil
	}
	return c.Latitude, c.Longitude
}

func nullableIntValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
