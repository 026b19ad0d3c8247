// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/domain/models"
	"github.com/meetloop/bot-session-service/internal/logging"
)

// chatKickTriggers are the in-meeting chat phrases that ask the bot to leave.
// Matching is case-insensitive on whole tokens.
var chatKickTriggers = []string{
	"/stop", "!stop",
	"/leave", "!leave",
	"/kick", "!kick",
	"/end", "!end",
}

// leaveCallTimeout bounds the best-effort provider leave request issued from
// the chat-kick path. The local state transition never waits on it longer
// than this.
const leaveCallTimeout = 10 * time.Second

// BotWebhookService reconciles inbound webhook events against stored
// sessions. Every handler is idempotent and resolves to a logged no-op when
// the referenced session cannot be found, so provider redelivery is always
// safe.
type BotWebhookService struct {
	sessionRepository domain.BotSessionRepository
	sessionService    *BotSessionService
	ingestionService  *MediaIngestionService
	provider          domain.BotProvider
	messageSender     domain.MessageSender
	config            ServiceConfig
}

// NewBotWebhookService creates a new BotWebhookService.
func NewBotWebhookService(
	sessionRepository domain.BotSessionRepository,
	sessionService *BotSessionService,
	ingestionService *MediaIngestionService,
	provider domain.BotProvider,
	messageSender domain.MessageSender,
	config ServiceConfig,
) *BotWebhookService {
	return &BotWebhookService{
		sessionRepository: sessionRepository,
		sessionService:    sessionService,
		ingestionService:  ingestionService,
		provider:          provider,
		messageSender:     messageSender,
		config:            config,
	}
}

// ServiceReady checks if the service is ready to process requests.
func (s *BotWebhookService) ServiceReady() bool {
	return s.sessionRepository != nil &&
		s.sessionService != nil &&
		s.ingestionService != nil &&
		s.provider != nil &&
		s.messageSender != nil
}

// ProcessWebhookEvent resolves scoping metadata for a normalized event and
// dispatches it to the matching handler. A session or tenant that cannot be
// resolved is logged and dropped without error: the provider must see success
// so it does not retry indefinitely for sessions this service cannot see.
func (s *BotWebhookService) ProcessWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return domain.NewUnavailableError("webhook service is not ready")
	}

	if event == nil {
		return domain.NewValidationError("event is nil")
	}

	ctx = logging.AppendCtx(ctx, slog.String("provider_bot_id", event.ProviderBotID))
	ctx = logging.AppendCtx(ctx, slog.String("webhook_event_type", string(event.Type)))

	session, revision, ok := s.resolveSession(ctx, event)
	if !ok {
		// Deliberate best-effort drop, not an error (see §resolveSession).
		return nil
	}

	switch event.Type {
	case models.WebhookEventStatusChange:
		return s.handleStatusChange(ctx, session, revision, event)
	case models.WebhookEventChatMessage:
		return s.handleChatMessage(ctx, session, revision, event)
	case models.WebhookEventRecordingDone:
		return s.handleRecordingDone(ctx, session, revision, event)
	case models.WebhookEventRecordingFailed:
		return s.handleRecordingFailed(ctx, session, revision, event)
	case models.WebhookEventRecordingDeleted:
		return s.handleRecordingDeleted(ctx, session, event)
	case models.WebhookEventParticipantJoin, models.WebhookEventParticipantLeave:
		return s.handleParticipantChange(ctx, session, revision, event)
	default:
		return domain.NewValidationError(fmt.Sprintf("unsupported webhook event type %q", event.Type))
	}
}

// resolveSession finds the stored session for an event. Scoping metadata is
// read from the event first; missing fields fall back to the persisted
// session looked up by provider bot id. An event that still cannot be scoped
// is logged and dropped (ok=false) so the webhook returns success.
func (s *BotWebhookService) resolveSession(ctx context.Context, event *models.WebhookEvent) (*models.BotSession, uint64, bool) {
	session, revision, err := s.sessionRepository.GetByProviderBotID(ctx, event.ProviderBotID, event.Metadata.OrganizationID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			// The provider may notify before local bookkeeping is visible, or
			// for sessions outside this tenant's visibility.
			slog.InfoContext(ctx, "no session for provider bot, dropping event")
			return nil, 0, false
		}
		slog.ErrorContext(ctx, "error resolving session for webhook event", logging.ErrKey, err)
		return nil, 0, false
	}

	if !event.Metadata.Complete() {
		event.Metadata = models.EventMetadata{
			ProjectID:      session.ProjectID,
			OrganizationID: session.OrganizationID,
			UserID:         session.UserID,
		}
	}

	if !event.Metadata.Complete() {
		slog.WarnContext(ctx, "webhook event metadata unresolvable, dropping event")
		return nil, 0, false
	}

	return session, revision, true
}

// handleStatusChange maps the provider status (or discrete event name) onto
// the internal status set and applies the shared transition.
func (s *BotWebhookService) handleStatusChange(ctx context.Context, session *models.BotSession, revision uint64, event *models.WebhookEvent) error {
	raw := event.RawStatus
	var status models.BotStatus
	var known bool
	if raw != "" {
		status, known = MapBotStatus(raw)
	} else {
		status, known = MapEventName(event.EventName)
		raw = strings.TrimPrefix(event.EventName, "bot.")
	}
	if !known {
		// Fail-closed policy: unknown statuses become failed, loudly, so a
		// new provider status shows up in alerting instead of vanishing.
		slog.WarnContext(ctx, "unknown provider status, mapping to failed",
			"unknown_status", raw, logging.PriorityCritical())
	}

	_, err := s.sessionService.ApplyTransition(ctx, session, revision, models.StatusTransition{
		Status:    status,
		RawStatus: raw,
		SubCode:   event.SubCode,
		Message:   event.StatusMessage,
	})
	return err
}

// handleChatMessage scans meeting chat for kick triggers. On a match the bot
// is asked to leave on a best-effort basis and the session transitions to
// leaving with an audit note naming the sender and command. Terminal sessions
// ignore repeated kicks.
func (s *BotWebhookService) handleChatMessage(ctx context.Context, session *models.BotSession, revision uint64, event *models.WebhookEvent) error {
	command, matched := matchKickCommand(event.ChatText)
	if !matched {
		slog.DebugContext(ctx, "chat message carries no kick command")
		return nil
	}

	if session.BotStatus.IsTerminal() || session.BotStatus == models.BotStatusLeaving {
		slog.InfoContext(ctx, "ignoring kick command for session already leaving or terminal",
			"bot_status", session.BotStatus)
		return nil
	}

	// The provider leave request is best-effort: its failure never blocks the
	// local transition, which is the authoritative outcome.
	leaveCtx, cancel := context.WithTimeout(ctx, leaveCallTimeout)
	defer cancel()
	if err := s.provider.LeaveCall(leaveCtx, session.ProviderBotID); err != nil {
		slog.ErrorContext(ctx, "error requesting provider leave call", logging.ErrKey, err)
	}

	sender := event.SenderName
	if sender == "" {
		sender = "a participant"
	}
	note := fmt.Sprintf("bot removed from call by %s via chat command %q", sender, command)

	now := time.Now().UTC()
	changed := session.ApplyStatusTransition(models.StatusTransition{
		Status:    models.BotStatusLeaving,
		RawStatus: "leaving_call",
	}, now)
	if session.ErrorMessage != note {
		session.ErrorMessage = note
		session.UpdatedAt = now
		changed = true
	}
	if changed {
		if err := s.sessionRepository.Update(ctx, session, revision); err != nil {
			slog.ErrorContext(ctx, "error persisting kick transition", logging.ErrKey, err)
			return err
		}
	}

	slog.InfoContext(ctx, "bot kicked via chat command", "sender", sender, "command", command)

	if err := s.messageSender.SendSessionNotification(ctx, models.SessionNotification{
		Kind:           models.NotificationKindBotKicked,
		BotSessionUID:  session.UID,
		OrganizationID: session.OrganizationID,
		UserID:         session.UserID,
		Message:        note,
		OccurredAt:     now,
	}); err != nil {
		slog.ErrorContext(ctx, "error sending kick notification", logging.ErrKey, err)
	}

	return nil
}

// handleRecordingDone hands the event to the ingestion pipeline, which owns
// idempotency, session linkage, and the workflow trigger.
func (s *BotWebhookService) handleRecordingDone(ctx context.Context, session *models.BotSession, revision uint64, event *models.WebhookEvent) error {
	_, err := s.ingestionService.Ingest(ctx, IngestRequest{
		Session:             session,
		Revision:            revision,
		ExternalRecordingID: event.ExternalRecordingID,
		DirectURL:           event.DownloadURL,
	})
	return err
}

// handleRecordingFailed marks the session failed with the provider sub-code.
// No ingestion is attempted.
func (s *BotWebhookService) handleRecordingFailed(ctx context.Context, session *models.BotSession, revision uint64, event *models.WebhookEvent) error {
	message := event.StatusMessage
	if message == "" {
		message = "provider reported recording failure"
	}

	_, err := s.sessionService.ApplyTransition(ctx, session, revision, models.StatusTransition{
		Status:    models.BotStatusFailed,
		RawStatus: "recording_failed",
		SubCode:   event.SubCode,
		Message:   message,
	})
	if err != nil {
		return err
	}

	if err := s.messageSender.SendSessionNotification(ctx, models.SessionNotification{
		Kind:           models.NotificationKindRecordingFailed,
		BotSessionUID:  session.UID,
		OrganizationID: session.OrganizationID,
		UserID:         session.UserID,
		Message:        "The meeting recording failed.",
		OccurredAt:     time.Now().UTC(),
	}); err != nil {
		slog.ErrorContext(ctx, "error sending recording failed notification", logging.ErrKey, err)
	}

	return nil
}

// handleRecordingDeleted only acknowledges for audit; neither the recording
// record nor the session is mutated.
func (s *BotWebhookService) handleRecordingDeleted(ctx context.Context, session *models.BotSession, event *models.WebhookEvent) error {
	slog.InfoContext(ctx, "provider deleted recording",
		"session_uid", session.UID,
		"external_recording_id", event.ExternalRecordingID,
	)
	return nil
}

// handleParticipantChange maintains the session's participant name list.
func (s *BotWebhookService) handleParticipantChange(ctx context.Context, session *models.BotSession, revision uint64, event *models.WebhookEvent) error {
	if event.ParticipantName == "" {
		return nil
	}

	changed := false
	now := time.Now().UTC()
	switch event.Type {
	case models.WebhookEventParticipantJoin:
		changed = session.AddParticipant(event.ParticipantName, now)
	case models.WebhookEventParticipantLeave:
		// Leave events keep the name on record; the participant list is a
		// roster of who attended, not who is present.
	}

	if !changed {
		return nil
	}

	if err := s.sessionRepository.Update(ctx, session, revision); err != nil {
		slog.ErrorContext(ctx, "error updating session participants", logging.ErrKey, err)
		return err
	}
	return nil
}

// matchKickCommand scans chat text for a kick trigger token and returns the
// matched command.
func matchKickCommand(text string) (string, bool) {
	for _, token := range strings.Fields(strings.ToLower(text)) {
		for _, trigger := range chatKickTriggers {
			if token == trigger {
				return trigger, true
			}
		}
	}
	return "", false
}
