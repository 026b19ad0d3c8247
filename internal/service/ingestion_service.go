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

// MediaIngestionService downloads recorded media, optionally encrypts it,
// persists it to durable blob storage, and creates the recording record.
//
// Ingestion is effectively exactly-once per (externalRecordingID, org): the
// pre-check against the recording repository short-circuits replays. The
// download+store+create sequence itself is not transactional; a crash in the
// middle can orphan a stored blob, which is acceptable because a retry of the
// whole webhook is safe.
type MediaIngestionService struct {
	recordingRepository domain.RecordingRepository
	sessionRepository   domain.BotSessionRepository
	mediaStore          domain.MediaStore
	downloader          domain.MediaDownloader
	encryptor           domain.MediaEncryptor
	provider            domain.BotProvider
	messageSender       domain.MessageSender
	config              ServiceConfig
}

// NewMediaIngestionService creates a new MediaIngestionService. The encryptor
// may be nil when at-rest encryption is disabled.
func NewMediaIngestionService(
	recordingRepository domain.RecordingRepository,
	sessionRepository domain.BotSessionRepository,
	mediaStore domain.MediaStore,
	downloader domain.MediaDownloader,
	encryptor domain.MediaEncryptor,
	provider domain.BotProvider,
	messageSender domain.MessageSender,
	config ServiceConfig,
) *MediaIngestionService {
	return &MediaIngestionService{
		recordingRepository: recordingRepository,
		sessionRepository:   sessionRepository,
		mediaStore:          mediaStore,
		downloader:          downloader,
		encryptor:           encryptor,
		provider:            provider,
		messageSender:       messageSender,
		config:              config,
	}
}

// ServiceReady checks if the service is ready to serve requests.
func (s *MediaIngestionService) ServiceReady() bool {
	return s.recordingRepository != nil &&
		s.sessionRepository != nil &&
		s.mediaStore != nil &&
		s.downloader != nil &&
		s.provider != nil &&
		s.messageSender != nil
}

// IngestRequest identifies the media to ingest for a session. DirectURL is
// set when the webhook event carried a download URL; otherwise the URL is
// resolved through the provider.
type IngestRequest struct {
	Session             *models.BotSession
	Revision            uint64
	ExternalRecordingID string
	DirectURL           string
}

// Ingest runs the idempotent ingestion pipeline and returns the recording the
// session converged on. Duplicate deliveries and webhook/poll races converge
// on the same recording without a second download.
func (s *MediaIngestionService) Ingest(ctx context.Context, request IngestRequest) (*models.Recording, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("media ingestion service is not ready")
	}

	if request.Session == nil {
		return nil, domain.NewValidationError("session is required")
	}
	if request.ExternalRecordingID == "" {
		return nil, domain.NewValidationError("external recording ID is required")
	}

	session := request.Session
	ctx = logging.AppendCtx(ctx, slog.String("session_uid", session.UID))
	ctx = logging.AppendCtx(ctx, slog.String("external_recording_id", request.ExternalRecordingID))

	// Idempotency check: a recording already ingested for this
	// (externalRecordingID, org) is reused, no download.
	existing, err := s.recordingRepository.GetByExternalID(ctx, request.ExternalRecordingID, session.OrganizationID)
	if err == nil {
		slog.InfoContext(ctx, "recording already ingested, reusing", "recording_uid", existing.UID)
		if err := s.linkRecording(ctx, session, request.Revision, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
		return nil, err
	}

	// Encryption policy is checked before any expensive work: required key
	// missing is a configuration error, never a plaintext fallback.
	if s.config.EncryptMedia && s.encryptor == nil {
		slog.ErrorContext(ctx, "media encryption required but no key configured", logging.PriorityCritical())
		return nil, domain.NewConfigurationError("media encryption is enabled but no encryption key is configured")
	}

	target, err := s.resolveDownloadTarget(ctx, session.ProviderBotID, request)
	if err != nil {
		return nil, err
	}

	downloadCtx, cancel := context.WithTimeout(ctx, s.config.DownloadTimeout)
	defer cancel()
	data, err := s.downloader.Download(downloadCtx, target.URL)
	if err != nil {
		slog.ErrorContext(ctx, "error downloading media", logging.ErrKey, err)
		return nil, domain.NewInternalError("failed to download media", err)
	}

	sizeBytes := int64(len(data))
	encrypted := false
	if s.config.EncryptMedia {
		data, err = s.encryptor.Encrypt(data)
		if err != nil {
			slog.ErrorContext(ctx, "error encrypting media", logging.ErrKey, err)
			return nil, domain.NewInternalError("failed to encrypt media", err)
		}
		encrypted = true
	}

	now := time.Now().UTC()
	recording := &models.Recording{
		UID:                 uuid.New().String(),
		ExternalRecordingID: request.ExternalRecordingID,
		OrganizationID:      session.OrganizationID,
		ProjectID:           session.ProjectID,
		CreatedByID:         session.UserID,
		BotSessionUID:       session.UID,
		SizeBytes:           sizeBytes,
		DurationSeconds:     target.DurationSeconds,
		Encrypted:           encrypted,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	recording.ObjectKey = fmt.Sprintf("%s/%s", session.OrganizationID, recording.UID)

	if err := s.mediaStore.Put(ctx, recording.ObjectKey, data); err != nil {
		slog.ErrorContext(ctx, "error storing media blob", logging.ErrKey, err)
		return nil, domain.NewInternalError("failed to store media", err)
	}

	if err := s.recordingRepository.Create(ctx, recording); err != nil {
		slog.ErrorContext(ctx, "error creating recording record", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "ingested recording",
		"recording_uid", recording.UID,
		"size_bytes", recording.SizeBytes,
		"encrypted", recording.Encrypted,
	)

	if err := s.linkRecording(ctx, session, request.Revision, recording); err != nil {
		return nil, err
	}

	return recording, nil
}

// resolveDownloadTarget prefers the event-carried URL and otherwise asks the
// provider, retrying with increasing delays since URL availability can lag
// the "done" notification.
func (s *MediaIngestionService) resolveDownloadTarget(ctx context.Context, providerBotID string, request IngestRequest) (*domain.DownloadTarget, error) {
	if request.DirectURL != "" {
		return &domain.DownloadTarget{URL: request.DirectURL}, nil
	}

	var lastErr error
	for attempt := 0; attempt <= s.config.DownloadURLRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * s.config.DownloadURLRetryDelay
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		target, err := s.provider.GetDownloadURL(ctx, providerBotID, request.ExternalRecordingID)
		if err == nil && target.URL != "" {
			return target, nil
		}
		if err != nil {
			lastErr = err
		}
		slog.DebugContext(ctx, "download URL not yet available", "attempt", attempt)
	}

	slog.ErrorContext(ctx, "download URL not available after retries", logging.ErrKey, lastErr)
	return nil, domain.NewInternalError("media download URL is not yet available", lastErr)
}

// linkRecording sets the session's recording reference and completion status,
// then fires the downstream workflow. The workflow submission and the ready
// notification are fire-and-forget: their failures are logged, never
// propagated.
func (s *MediaIngestionService) linkRecording(ctx context.Context, session *models.BotSession, revision uint64, recording *models.Recording) error {
	now := time.Now().UTC()
	linked := session.SetRecording(recording.UID, now)
	transitioned := session.ApplyStatusTransition(models.StatusTransition{
		Status:    models.BotStatusCompleted,
		RawStatus: "done",
	}, now)

	if linked || transitioned {
		if err := s.sessionRepository.Update(ctx, session, revision); err != nil {
			slog.ErrorContext(ctx, "error linking recording to session",
				logging.ErrKey, err, "recording_uid", recording.UID)
			return err
		}
	}

	// The same recording is only submitted once: replays short-circuit above
	// before reaching this point a second time with linked=false and
	// transitioned=false, but a webhook/poll race can still get here twice.
	// The pipeline dedupes on recording UID, so a duplicate submission is
	// harmless.
	if err := s.messageSender.SendSubmitInsightsWorkflow(ctx, models.WorkflowSubmission{
		RecordingUID:   recording.UID,
		BotSessionUID:  session.UID,
		OrganizationID: session.OrganizationID,
		ProjectID:      session.ProjectID,
		SubmittedAt:    now,
	}); err != nil {
		slog.ErrorContext(ctx, "error submitting insights workflow", logging.ErrKey, err,
			"recording_uid", recording.UID)
	}

	if err := s.messageSender.SendSessionNotification(ctx, models.SessionNotification{
		Kind:           models.NotificationKindRecordingReady,
		BotSessionUID:  session.UID,
		OrganizationID: session.OrganizationID,
		UserID:         session.UserID,
		Message:        "Your meeting recording is ready.",
		OccurredAt:     now,
	}); err != nil {
		slog.ErrorContext(ctx, "error sending recording ready notification", logging.ErrKey, err)
	}

	return nil
}
