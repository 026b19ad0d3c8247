// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/meetloop/bot-session-service/internal/domain/models"
)

// MockRecordingRepository implements RecordingRepository for testing
type MockRecordingRepository struct {
	mock.Mock
}

func (m *MockRecordingRepository) Create(ctx context.Context, recording *models.Recording) error {
	args := m.Called(ctx, recording)
	return args.Error(0)
}

func (m *MockRecordingRepository) Get(ctx context.Context, recordingUID string) (*models.Recording, error) {
	args := m.Called(ctx, recordingUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recording), args.Error(1)
}

func (m *MockRecordingRepository) GetByExternalID(ctx context.Context, externalRecordingID, organizationID string) (*models.Recording, error) {
	args := m.Called(ctx, externalRecordingID, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recording), args.Error(1)
}
