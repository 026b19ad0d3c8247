// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/meetloop/bot-session-service/internal/domain/models"
)

// BotSessionRepository defines the interface for bot session storage.
// This interface can be implemented by different storage backends (NATS, PostgreSQL, etc.)
type BotSessionRepository interface {
	Create(ctx context.Context, session *models.BotSession) error
	Get(ctx context.Context, sessionUID string) (*models.BotSession, error)
	GetWithRevision(ctx context.Context, sessionUID string) (*models.BotSession, uint64, error)
	// Update performs an optimistic, revision-guarded write. A concurrent
	// writer between read and write surfaces as a conflict error.
	Update(ctx context.Context, session *models.BotSession, revision uint64) error

	// Lookup paths required by the reconcilers.
	GetByProviderBotID(ctx context.Context, providerBotID, organizationID string) (*models.BotSession, uint64, error)
	GetByCalendarEventID(ctx context.Context, calendarEventID, organizationID string) (*models.BotSession, error)
	ListByStatuses(ctx context.Context, organizationID string, statuses []models.BotStatus, createdAfter time.Time, limit int) ([]*models.BotSession, error)
	ListOrganizationsWithActiveSessions(ctx context.Context, createdAfter time.Time) ([]string, error)
	ListFailedEligibleForRetry(ctx context.Context, organizationID string, maxRetryCount int, createdAfter time.Time) ([]*models.BotSession, error)
}

// RecordingRepository defines the interface for recording record storage.
// Recordings are owned by the downstream product; this service only creates
// and links them during ingestion.
type RecordingRepository interface {
	Create(ctx context.Context, recording *models.Recording) error
	Get(ctx context.Context, recordingUID string) (*models.Recording, error)
	// GetByExternalID resolves the ingestion idempotency key
	// (externalRecordingID, organizationID).
	GetByExternalID(ctx context.Context, externalRecordingID, organizationID string) (*models.Recording, error)
}

// MediaStore is durable blob storage for recorded media.
type MediaStore interface {
	Put(ctx context.Context, objectKey string, data []byte) error
	Get(ctx context.Context, objectKey string) ([]byte, error)
}

// MediaEncryptor encrypts media blobs before they reach the media store.
type MediaEncryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// MediaDownloader fetches media from a provider-supplied URL with a bounded
// timeout. Failures are retryable, not fatal.
type MediaDownloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}
