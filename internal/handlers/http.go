// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

// Package handlers implements the HTTP surface of the bot session service.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/logging"
)

// errorResponse is the JSON error body returned by all endpoints.
type errorResponse struct {
	Error string `json:"error"`
}

// httpStatusForError maps DomainError types to HTTP status codes.
func httpStatusForError(err error) int {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound
	case domain.ErrorTypeConflict:
		return http.StatusConflict
	case domain.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("error encoding response body", logging.ErrKey, err)
		}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := httpStatusForError(err)
	if statusCode >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", logging.ErrKey, err)
	}
	writeJSON(w, statusCode, errorResponse{Error: err.Error()})
}
