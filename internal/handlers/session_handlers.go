// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/domain/models"
	"github.com/meetloop/bot-session-service/internal/service"
)

// BotSessionHandler handles bot session API requests from the product backend.
// Tenant scoping comes from the X-Organization-ID header; the surrounding
// platform authenticates callers before requests reach this service.
type BotSessionHandler struct {
	sessionService *service.BotSessionService
}

// NewBotSessionHandler creates a new bot session handler.
func NewBotSessionHandler(sessionService *service.BotSessionService) *BotSessionHandler {
	return &BotSessionHandler{
		sessionService: sessionService,
	}
}

// HandlerReady checks if the handler's dependencies are ready.
func (h *BotSessionHandler) HandlerReady() bool {
	return h.sessionService != nil && h.sessionService.ServiceReady()
}

// OrganizationIDHeader carries the tenant scope on session API requests.
const OrganizationIDHeader = "X-Organization-ID"

func organizationID(r *http.Request) string {
	return r.Header.Get(OrganizationIDHeader)
}

// CreateSession processes POST /sessions.
func (h *BotSessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var request models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, r, domain.NewValidationError("malformed request body", err))
		return
	}

	if request.OrganizationID == "" {
		request.OrganizationID = organizationID(r)
	}

	session, err := h.sessionService.CreateSession(r.Context(), &request)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// ListRetryableSessions processes GET /sessions/retryable.
func (h *BotSessionHandler) ListRetryableSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionService.ListRetryableSessions(r.Context(), organizationID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

// GetSession processes GET /sessions/{uid}.
func (h *BotSessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionUID := chi.URLParam(r, "uid")

	session, err := h.sessionService.GetSession(r.Context(), sessionUID, organizationID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// TerminateSession processes DELETE /sessions/{uid}.
func (h *BotSessionHandler) TerminateSession(w http.ResponseWriter, r *http.Request) {
	sessionUID := chi.URLParam(r, "uid")

	if err := h.sessionService.TerminateSession(r.Context(), sessionUID, organizationID(r)); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// RetrySession processes POST /sessions/{uid}/retry.
func (h *BotSessionHandler) RetrySession(w http.ResponseWriter, r *http.Request) {
	sessionUID := chi.URLParam(r, "uid")

	session, err := h.sessionService.RetryFailedSession(r.Context(), sessionUID, organizationID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}
