// Kulturpuls - Event Aggregation and Enrichment Pipeline
// Copyright 2026 Kulturpuls Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kulturpuls/kulturpuls

// Package api provides the HTTP surface: venue management, catalog
// reads, manual cycle triggering, health, and metrics.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/kulturpuls/kulturpuls/internal/logging"
)

// APIResponse is the wrapper every endpoint returns.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError carries a machine-readable code plus a human-readable message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data}); err != nil {
		logging.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	})
	if err != nil {
		logging.Error().Err(err).Msg("encode error response")
	}
}
