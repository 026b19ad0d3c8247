// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

// Package messaging publishes outbound service messages to NATS.
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/domain/models"
	"github.com/meetloop/bot-session-service/internal/logging"
)

// INatsConn is a NATS connection interface needed for the [MessageBuilder].
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// MessageBuilder builds outbound messages and sends them to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
}

// Ensure that MessageBuilder implements domain.MessageSender
var _ domain.MessageSender = (*MessageBuilder)(nil)

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn: natsConn,
	}
}

// IsReady checks whether the NATS connection can accept publishes.
func (m *MessageBuilder) IsReady() bool {
	return m.NatsConn != nil && m.NatsConn.IsConnected()
}

// sendMessage sends the message to the NATS server.
func (m *MessageBuilder) sendMessage(ctx context.Context, subject string, data []byte) error {
	err := m.NatsConn.Publish(subject, data)
	if err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

// SendSubmitInsightsWorkflow submits an ingested recording to the insights
// pipeline. The send is fire-and-forget from the caller's perspective.
func (m *MessageBuilder) SendSubmitInsightsWorkflow(ctx context.Context, submission models.WorkflowSubmission) error {
	dataBytes, err := json.Marshal(submission)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling workflow submission into JSON", logging.ErrKey, err)
		return err
	}

	slog.DebugContext(ctx, "submitting recording to insights workflow",
		"recording_uid", submission.RecordingUID,
		"bot_session_uid", submission.BotSessionUID,
	)

	return m.sendMessage(ctx, models.SubmitInsightsWorkflowSubject, dataBytes)
}

// SendSessionNotification sends a best-effort session notification.
func (m *MessageBuilder) SendSessionNotification(ctx context.Context, notification models.SessionNotification) error {
	dataBytes, err := json.Marshal(notification)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling session notification into JSON", logging.ErrKey, err)
		return err
	}

	slog.DebugContext(ctx, "sending session notification",
		"kind", notification.Kind,
		"bot_session_uid", notification.BotSessionUID,
	)

	return m.sendMessage(ctx, models.SessionNotificationSubject, dataBytes)
}
