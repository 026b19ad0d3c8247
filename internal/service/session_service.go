// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/domain/models"
	"github.com/meetloop/bot-session-service/internal/logging"
)

// BotSessionService implements the bot session lifecycle operations:
// creation, termination, failed-session retry, and the status transition
// application shared by the webhook and polling reconcilers.
type BotSessionService struct {
	sessionRepository domain.BotSessionRepository
	provider          domain.BotProvider
	config            ServiceConfig
}

// NewBotSessionService creates a new BotSessionService.
func NewBotSessionService(
	sessionRepository domain.BotSessionRepository,
	provider domain.BotProvider,
	config ServiceConfig,
) *BotSessionService {
	return &BotSessionService{
		sessionRepository: sessionRepository,
		provider:          provider,
		config:            config,
	}
}

// ServiceReady checks if the service is ready to serve requests.
func (s *BotSessionService) ServiceReady() bool {
	return s.sessionRepository != nil && s.provider != nil
}

// CreateSession dispatches a provider bot to a meeting and persists the new
// session. Tenant scoping metadata is attached to the provider job so the
// event normalizer can resolve webhook events without a database round-trip.
func (s *BotSessionService) CreateSession(ctx context.Context, request *models.CreateSessionRequest) (*models.BotSession, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("bot session service is not ready")
	}

	if request == nil {
		return nil, domain.NewValidationError("request is nil")
	}
	if request.MeetingURL == "" {
		return nil, domain.NewValidationError("meeting URL is required")
	}
	if request.OrganizationID == "" || request.UserID == "" || request.ProjectID == "" {
		return nil, domain.NewValidationError("organization ID, user ID, and project ID are required")
	}

	ctx = logging.AppendCtx(ctx, slog.String("organization_id", request.OrganizationID))

	// Auto-scheduled sessions dedupe on the calendar event: a bot is
	// dispatched at most once per event per organization.
	if request.CalendarEventID != "" {
		existing, err := s.sessionRepository.GetByCalendarEventID(ctx, request.CalendarEventID, request.OrganizationID)
		if err == nil {
			slog.InfoContext(ctx, "session already exists for calendar event",
				"calendar_event_id", request.CalendarEventID,
				"session_uid", existing.UID,
			)
			return existing, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			return nil, err
		}
	}

	bot, err := s.provider.CreateBot(ctx, &domain.CreateBotRequest{
		MeetingURL:               request.MeetingURL,
		WebhookURL:               s.config.WebhookURL,
		DisplayName:              s.config.BotDisplayName,
		JoinMessage:              s.config.BotJoinMessage,
		InactivityTimeoutSeconds: s.config.InactivityTimeoutSeconds,
		JoinAt:                   request.JoinAt,
		Metadata: models.EventMetadata{
			ProjectID:      request.ProjectID,
			OrganizationID: request.OrganizationID,
			UserID:         request.UserID,
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "error creating provider bot", logging.ErrKey, err)
		return nil, domain.NewInternalError("failed to create provider bot", err)
	}

	status, known := MapBotStatus(bot.Status)
	if !known {
		// A brand-new bot with an unmappable status is almost certainly a new
		// provider status rolling out; it starts life as joining rather than
		// failed since the provider accepted the job.
		slog.WarnContext(ctx, "unknown provider status on bot creation",
			"unknown_status", bot.Status)
		status = models.BotStatusJoining
	}
	if status.IsTerminal() {
		status = models.BotStatusJoining
	}

	now := time.Now().UTC()
	session := &models.BotSession{
		UID:             uuid.New().String(),
		ProviderBotID:   bot.ID,
		OrganizationID:  request.OrganizationID,
		UserID:          request.UserID,
		ProjectID:       request.ProjectID,
		CalendarEventID: request.CalendarEventID,
		MeetingURL:      request.MeetingURL,
		BotStatus:       status,
		ProviderStatus:  bot.Status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.sessionRepository.Create(ctx, session); err != nil {
		slog.ErrorContext(ctx, "error creating bot session", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "created bot session",
		"session_uid", session.UID,
		"provider_bot_id", session.ProviderBotID,
		"bot_status", session.BotStatus,
	)

	return session, nil
}

// GetSession returns a session scoped to an organization.
func (s *BotSessionService) GetSession(ctx context.Context, sessionUID, organizationID string) (*models.BotSession, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("bot session service is not ready")
	}

	session, err := s.sessionRepository.Get(ctx, sessionUID)
	if err != nil {
		return nil, err
	}
	if organizationID != "" && session.OrganizationID != organizationID {
		return nil, domain.NewNotFoundError(fmt.Sprintf("bot session %s not found", sessionUID))
	}
	return session, nil
}

// TerminateSession asks the provider to gracefully end the bot job. The local
// status is not changed here: the terminal status arrives through the normal
// webhook or poll path, which keeps one source of transition truth.
func (s *BotSessionService) TerminateSession(ctx context.Context, sessionUID, organizationID string) error {
	if !s.ServiceReady() {
		return domain.NewUnavailableError("bot session service is not ready")
	}

	session, err := s.GetSession(ctx, sessionUID, organizationID)
	if err != nil {
		return err
	}

	if session.BotStatus.IsTerminal() {
		slog.InfoContext(ctx, "session already terminal, skipping provider termination",
			"session_uid", session.UID, "bot_status", session.BotStatus)
		return nil
	}

	if err := s.provider.DeleteBot(ctx, session.ProviderBotID); err != nil {
		slog.ErrorContext(ctx, "error terminating provider bot",
			logging.ErrKey, err, "provider_bot_id", session.ProviderBotID)
		return domain.NewInternalError("failed to terminate provider bot", err)
	}

	slog.InfoContext(ctx, "requested provider bot termination",
		"session_uid", session.UID, "provider_bot_id", session.ProviderBotID)

	return nil
}

// RetryFailedSession re-submits a failed session to the provider. Only
// sessions below the retry ceiling and within the retry age window are
// eligible. The retry gets a fresh provider job id and increments RetryCount;
// JoinedAt, LeftAt, and RecordingUID are never reset.
func (s *BotSessionService) RetryFailedSession(ctx context.Context, sessionUID, organizationID string) (*models.BotSession, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("bot session service is not ready")
	}

	session, revision, err := s.sessionRepository.GetWithRevision(ctx, sessionUID)
	if err != nil {
		return nil, err
	}
	if organizationID != "" && session.OrganizationID != organizationID {
		return nil, domain.NewNotFoundError(fmt.Sprintf("bot session %s not found", sessionUID))
	}

	if session.BotStatus != models.BotStatusFailed {
		return nil, domain.NewConflictError(
			fmt.Sprintf("bot session %s is %s, only failed sessions can be retried", sessionUID, session.BotStatus))
	}
	if session.RetryCount >= s.config.MaxRetryCount {
		return nil, domain.NewConflictError(
			fmt.Sprintf("bot session %s has exhausted its %d retries", sessionUID, s.config.MaxRetryCount))
	}
	if time.Since(session.CreatedAt) > s.config.RetryAgeWindow {
		return nil, domain.NewConflictError(
			fmt.Sprintf("bot session %s is too old to retry", sessionUID))
	}

	bot, err := s.provider.CreateBot(ctx, &domain.CreateBotRequest{
		MeetingURL:               session.MeetingURL,
		WebhookURL:               s.config.WebhookURL,
		DisplayName:              s.config.BotDisplayName,
		JoinMessage:              s.config.BotJoinMessage,
		InactivityTimeoutSeconds: s.config.InactivityTimeoutSeconds,
		Metadata: models.EventMetadata{
			ProjectID:      session.ProjectID,
			OrganizationID: session.OrganizationID,
			UserID:         session.UserID,
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "error re-creating provider bot for retry", logging.ErrKey, err)
		return nil, domain.NewInternalError("failed to re-create provider bot", err)
	}

	now := time.Now().UTC()
	session.ProviderBotID = bot.ID
	session.ProviderStatus = bot.Status
	session.BotStatus = models.BotStatusJoining
	session.ErrorMessage = ""
	session.RetryCount++
	session.UpdatedAt = now

	if err := s.sessionRepository.Update(ctx, session, revision); err != nil {
		slog.ErrorContext(ctx, "error updating bot session after retry", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "retried failed bot session",
		"session_uid", session.UID,
		"provider_bot_id", session.ProviderBotID,
		"retry_count", session.RetryCount,
	)

	return session, nil
}

// ListRetryableSessions returns the organization's failed sessions that are
// still below the retry ceiling and inside the retry age window, oldest
// first. The product backend surfaces these for one-click retry.
func (s *BotSessionService) ListRetryableSessions(ctx context.Context, organizationID string) ([]*models.BotSession, error) {
	if !s.ServiceReady() {
		return nil, domain.NewUnavailableError("bot session service is not ready")
	}
	if organizationID == "" {
		return nil, domain.NewValidationError("organization ID is required")
	}

	createdAfter := time.Now().UTC().Add(-s.config.RetryAgeWindow)
	return s.sessionRepository.ListFailedEligibleForRetry(ctx, organizationID, s.config.MaxRetryCount, createdAfter)
}

// ApplyTransition applies a status transition to a stored session and
// persists it if anything changed. Both reconciliation paths (webhook push and
// poll pull) go through here, so their semantics cannot diverge. A no-change
// transition leaves the stored record untouched.
func (s *BotSessionService) ApplyTransition(
	ctx context.Context,
	session *models.BotSession,
	revision uint64,
	transition models.StatusTransition,
) (bool, error) {
	if !s.ServiceReady() {
		return false, domain.NewUnavailableError("bot session service is not ready")
	}

	if !transition.Status.IsValid() {
		return false, domain.NewValidationError(fmt.Sprintf("invalid bot status %q", transition.Status))
	}

	changed := session.ApplyStatusTransition(transition, time.Now().UTC())
	if !changed {
		slog.DebugContext(ctx, "status transition is a no-op",
			"session_uid", session.UID, "bot_status", session.BotStatus)
		return false, nil
	}

	if err := s.sessionRepository.Update(ctx, session, revision); err != nil {
		slog.ErrorContext(ctx, "error persisting status transition",
			logging.ErrKey, err, "session_uid", session.UID)
		return false, err
	}

	slog.InfoContext(ctx, "applied status transition",
		"session_uid", session.UID,
		"bot_status", session.BotStatus,
		"provider_status", session.ProviderStatus,
	)

	return true, nil
}
