// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

// Package classifier calls an OpenAI-compatible chat completion endpoint
// to classify events against the catalog. Every call demands a JSON
// response; anything unparsable is an error, never a silent default.
package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/kulturpuls/kulturpuls/internal/config"
	"github.com/kulturpuls/kulturpuls/internal/metrics"
	"github.com/kulturpuls/kulturpuls/internal/models"
)

// ErrEmptyResponse is returned when the model returns no usable content.
var ErrEmptyResponse = errors.New("classifier returned empty response")

// CategoryResult is the model's category pick with its reasoning.
type CategoryResult struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// ThemeResult lists the theme names the model matched. Empty when no
// theme applies.
type ThemeResult struct {
	Themes []string `json:"themes"`
	Reason string   `json:"reason"`
}

// GenreResult is the model's main-genre pick plus free-form subgenres.
type GenreResult struct {
	Genre     string   `json:"genre"`
	Subgenres []string `json:"subgenres"`
	Reason    string   `json:"reason"`
}

// Client is an OpenAI-compatible chat completion client with request
// pacing and circuit breaker protection.
type Client struct {
	httpClient *http.Client
	cfg        config.ClassifierConfig
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// New creates a classifier client from the given settings.
func New(cfg config.ClassifierConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:     "classifier",
		Interval: 30 * time.Second,
		Timeout:  15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		breaker:    breaker,
	}
}

// ClassifyCategory asks the model to pick exactly one category from the
// candidates. The returned name is one of the candidate names verbatim.
func (c *Client) ClassifyCategory(ctx context.Context, event *models.Event, candidates []models.CategoryCandidate) (CategoryResult, error) {
	start := time.Now()
	prompt := categoryPrompt(event, candidates)

	var result CategoryResult
	if err := c.completeJSON(ctx, categorySystemPrompt, prompt, &result); err != nil {
		return CategoryResult{}, fmt.Errorf("classify category: %w", err)
	}
	if strings.TrimSpace(result.Category) == "" {
		return CategoryResult{}, fmt.Errorf("classify category: %w", ErrEmptyResponse)
	}

	metrics.RecordClassifierCall("category", time.Since(start))
	return result, nil
}

// ClassifyThemes asks the model which catalog themes apply. An empty
// list is a valid answer.
func (c *Client) ClassifyThemes(ctx context.Context, event *models.Event, themes []models.Theme) (ThemeResult, error) {
	start := time.Now()
	prompt := themePrompt(event, themes)

	var result ThemeResult
	if err := c.completeJSON(ctx, themeSystemPrompt, prompt, &result); err != nil {
		return ThemeResult{}, fmt.Errorf("classify themes: %w", err)
	}

	metrics.RecordClassifierCall("theme", time.Since(start))
	return result, nil
}

// ClassifyGenre asks the model for the main genre and up to a handful of
// free-form subgenres.
func (c *Client) ClassifyGenre(ctx context.Context, event *models.Event, genres []models.Genre) (GenreResult, error) {
	start := time.Now()
	prompt := genrePrompt(event, genres)

	var result GenreResult
	if err := c.completeJSON(ctx, genreSystemPrompt, prompt, &result); err != nil {
		return GenreResult{}, fmt.Errorf("classify genre: %w", err)
	}

	metrics.RecordClassifierCall("genre", time.Since(start))
	return result, nil
}

// chat completion wire types

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// completeJSON runs one paced, breaker-protected chat completion and
// decodes the JSON answer into out.
func (c *Client) completeJSON(ctx context.Context, system, user string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    0,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	content, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(content, out); err != nil {
		return fmt.Errorf("decode model answer %q: %w", truncate(string(content), 200), err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("api error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	if refusal := parsed.Choices[0].Message.Refusal; refusal != "" {
		return nil, fmt.Errorf("model refused: %s", truncate(refusal, 200))
	}
	content := parsed.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}
	return []byte(content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
