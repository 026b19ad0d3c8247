// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/domain/models"
)

// NatsRecordingRepository is the NATS KV store repository for recording
// records. Recordings are stored under "recording/<uid>" with one index:
//
//	index/external/<org>/<externalRecordingID> -> recording UID
//
// The external index is the ingestion idempotency key: a provider recording
// delivered twice resolves to the same stored record.
type NatsRecordingRepository struct {
	*NatsBaseRepository[models.Recording]
	keyBuilder *KeyBuilder
}

// NewNatsRecordingRepository creates a new NATS KV recording repository.
func NewNatsRecordingRepository(kvStore INatsKeyValue) *NatsRecordingRepository {
	return &NatsRecordingRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Recording](kvStore, "recording"),
		keyBuilder:         NewKeyBuilder(),
	}
}

func (r *NatsRecordingRepository) recordingKey(recordingUID string) string {
	return r.keyBuilder.EntityKey(KeyPrefixRecording, recordingUID)
}

func (r *NatsRecordingRepository) externalIndexKey(organizationID, externalRecordingID string) string {
	return r.keyBuilder.IndexKey(KeyPrefixIndexExternal, organizationID, externalRecordingID)
}

// Create stores a new recording record and its external-ID index.
func (r *NatsRecordingRepository) Create(ctx context.Context, recording *models.Recording) error {
	if recording.UID == "" {
		return domain.NewValidationError("recording UID is required")
	}

	err := r.NatsBaseRepository.Create(ctx, r.recordingKey(recording.UID), recording)
	if err != nil {
		return err
	}

	if recording.ExternalRecordingID != "" {
		err = r.PutRaw(ctx,
			r.externalIndexKey(recording.OrganizationID, recording.ExternalRecordingID),
			[]byte(recording.UID))
		if err != nil {
			return err
		}
	}

	return nil
}

// Get retrieves a recording by UID.
func (r *NatsRecordingRepository) Get(ctx context.Context, recordingUID string) (*models.Recording, error) {
	return r.NatsBaseRepository.Get(ctx, r.recordingKey(recordingUID))
}

// GetByExternalID resolves a recording from the provider's recording ID
// scoped to an organization.
func (r *NatsRecordingRepository) GetByExternalID(ctx context.Context, externalRecordingID, organizationID string) (*models.Recording, error) {
	entry, err := r.GetRaw(ctx, r.externalIndexKey(organizationID, externalRecordingID))
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, string(entry.Value()))
}
