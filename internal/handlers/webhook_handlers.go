// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/domain/models"
	"github.com/meetloop/bot-session-service/internal/logging"
	"github.com/meetloop/bot-session-service/internal/middleware"
	"github.com/meetloop/bot-session-service/internal/service"
	"github.com/meetloop/bot-session-service/pkg/constants"
)

// WebhookValidator validates inbound webhook request signatures.
type WebhookValidator interface {
	Enabled() bool
	ValidateSignature(body []byte, signature, timestamp string) error
}

// BotWebhookHandler handles inbound provider webhook requests.
type BotWebhookHandler struct {
	webhookService *service.BotWebhookService
	validator      WebhookValidator
}

// NewBotWebhookHandler creates a new webhook handler.
func NewBotWebhookHandler(webhookService *service.BotWebhookService, validator WebhookValidator) *BotWebhookHandler {
	return &BotWebhookHandler{
		webhookService: webhookService,
		validator:      validator,
	}
}

// HandlerReady checks if the handler's dependencies are ready.
func (h *BotWebhookHandler) HandlerReady() bool {
	return h.webhookService != nil && h.webhookService.ServiceReady()
}

// HandleBotWebhook processes POST /webhooks/bot.
//
// Response policy: a malformed body is the sender's fault (400); a bad
// signature is rejected (401); everything past decoding returns 200 even when
// processing fails, because a non-2xx would make the provider redeliver an
// event we already know how to handle (or have chosen to drop).
func (h *BotWebhookHandler) HandleBotWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, ok := middleware.GetRawBodyFromContext(ctx)
	if !ok {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			writeError(w, r, domain.NewValidationError("failed to read request body", err))
			return
		}
	}

	if h.validator != nil && h.validator.Enabled() {
		signature := r.Header.Get(constants.WebhookSignatureHeader)
		timestamp := r.Header.Get(constants.WebhookTimestampHeader)
		if err := h.validator.ValidateSignature(body, signature, timestamp); err != nil {
			slog.WarnContext(ctx, "webhook signature validation failed", logging.ErrKey, err)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid webhook signature"})
			return
		}
	}

	event, err := models.DecodeWebhookEvent(body)
	if err != nil {
		slog.WarnContext(ctx, "malformed webhook body", logging.ErrKey, err)
		writeError(w, r, domain.NewValidationError("malformed webhook body", err))
		return
	}

	if err := h.webhookService.ProcessWebhookEvent(ctx, event); err != nil {
		// Processing failures are logged and acknowledged. Redelivery would
		// not help: transitions are idempotent and drops are deliberate.
		slog.ErrorContext(ctx, "error processing webhook event", logging.ErrKey, err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
