// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/kulturpuls/kulturpuls/internal/models"
)

// resolveThemes assigns at most one theme. The classifier only matches a
// theme on a close, explicit fit, so an empty answer is the common case.
func (o *Orchestrator) resolveThemes(ctx context.Context, event *models.Event) ([]int64, error) {
	themes, err := o.store.Themes(ctx)
	if err != nil {
		return nil, fmt.Errorf("read themes: %w", err)
	}
	if len(themes) == 0 {
		return nil, nil
	}

	result, err := o.classifier.ClassifyThemes(ctx, event, themes)
	if err != nil {
		return nil, err
	}
	if len(result.Themes) == 0 {
		return nil, nil
	}

	name := result.Themes[0]
	for _, t := range themes {
		if strings.EqualFold(t.Name, name) {
			return []int64{t.ID}, nil
		}
	}
	return nil, fmtUnknown("theme", name)
}

// resolveGenre assigns one main genre id plus the clamped subgenre list.
func (o *Orchestrator) resolveGenre(ctx context.Context, event *models.Event) ([]int64, []string, error) {
	genres, err := o.store.Genres(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read genres: %w", err)
	}
	if len(genres) == 0 {
		return nil, nil, nil
	}

	result, err := o.classifier.ClassifyGenre(ctx, event, genres)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(result.Genre) == "" {
		return nil, nil, nil
	}

	for _, g := range genres {
		if strings.EqualFold(g.Name, result.Genre) {
			return []int64{g.ID}, clampSubgenres(result.Subgenres), nil
		}
	}
	return nil, nil, fmtUnknown("genre", result.Genre)
}
