// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

package classifier

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/kulturpuls/kulturpuls/internal/models"
)

const categorySystemPrompt = `You classify cultural events into exactly one category.
You are given an event and a list of candidate categories with definitions.
Pick the single best matching category. Respond with JSON:
{"category": "<candidate name, verbatim>", "reason": "<one sentence>"}
The category field must be exactly one of the candidate names.`

const themeSystemPrompt = `You match cultural events against a list of themes.
Assign a theme only when the event explicitly and closely matches its
description. Most events match no theme at all. Respond with JSON:
{"themes": ["<theme name, verbatim>", ...], "reason": "<one sentence>"}
Use an empty list when nothing matches.`

const genreSystemPrompt = `You determine the musical genre of an event.
You are given an event and a list of main genres. Pick the single best
matching main genre and optionally up to two free-form subgenres.
Respond with JSON:
{"genre": "<main genre name, verbatim>", "subgenres": ["<subgenre>", ...], "reason": "<one sentence>"}`

// eventSummary is the classifier-facing projection of an event. Venue and
// ticketing details are deliberately left out to keep the prompt small.
type eventSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Organizer   string   `json:"organizer,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Artists     []string `json:"artists,omitempty"`
	Category    string   `json:"explicit_category,omitempty"`
}

func summarize(event *models.Event) eventSummary {
	return eventSummary{
		Name:        event.SourceData.Name,
		Description: event.SourceData.Description,
		Organizer:   event.SourceData.Organizer,
		Tags:        event.SourceData.Tags,
		Artists:     event.SourceData.Artists,
		Category:    event.SourceData.ExplicitCategory,
	}
}

func categoryPrompt(event *models.Event, candidates []models.CategoryCandidate) string {
	var b strings.Builder
	b.WriteString("Event:\n")
	writeJSON(&b, summarize(event))
	b.WriteString("\nCandidate categories:\n")
	writeJSON(&b, candidates)
	return b.String()
}

func themePrompt(event *models.Event, themes []models.Theme) string {
	var b strings.Builder
	b.WriteString("Event:\n")
	writeJSON(&b, summarize(event))
	b.WriteString("\nThemes:\n")
	writeJSON(&b, themes)
	return b.String()
}

func genrePrompt(event *models.Event, genres []models.Genre) string {
	var b strings.Builder
	b.WriteString("Event:\n")
	writeJSON(&b, summarize(event))
	b.WriteString("\nMain genres:\n")
	writeJSON(&b, genres)
	return b.String()
}

func writeJSON(b *strings.Builder, v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		b.WriteString("{}")
		return
	}
	b.Write(raw)
	b.WriteString("\n")
}
