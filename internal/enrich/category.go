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

// resolveCategory determines the event's category. An explicit category
// hint from the source is authoritative and skips the external
// classifier; either way the name must resolve against the catalog.
func (o *Orchestrator) resolveCategory(ctx context.Context, event *models.Event) (models.Category, error) {
	categories, err := o.store.Categories(ctx)
	if err != nil {
		return models.Category{}, fmt.Errorf("read categories: %w", err)
	}
	if len(categories) == 0 {
		return models.Category{}, fmt.Errorf("category catalog is empty")
	}

	if hint := strings.TrimSpace(event.SourceData.ExplicitCategory); hint != "" {
		category, ok := findCategory(categories, hint)
		if !ok {
			return models.Category{}, fmtUnknown("category hint", hint)
		}
		return category, nil
	}

	candidates := make([]models.CategoryCandidate, 0, len(categories))
	for _, c := range categories {
		candidates = append(candidates, c.Candidate())
	}

	result, err := o.classifier.ClassifyCategory(ctx, event, candidates)
	if err != nil {
		return models.Category{}, err
	}
	category, ok := findCategory(categories, result.Category)
	if !ok {
		return models.Category{}, fmtUnknown("category", result.Category)
	}
	return category, nil
}

// findCategory resolves a name case-insensitively against the catalog.
func findCategory(categories []models.Category, name string) (models.Category, bool) {
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return models.Category{}, false
}
