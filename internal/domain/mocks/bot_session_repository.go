// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/meetloop/bot-session-service/internal/domain/models"
)

// MockBotSessionRepository implements BotSessionRepository for testing
type MockBotSessionRepository struct {
	mock.Mock
}

func (m *MockBotSessionRepository) Create(ctx context.Context, session *models.BotSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockBotSessionRepository) Get(ctx context.Context, sessionUID string) (*models.BotSession, error) {
	args := m.Called(ctx, sessionUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BotSession), args.Error(1)
}

func (m *MockBotSessionRepository) GetWithRevision(ctx context.Context, sessionUID string) (*models.BotSession, uint64, error) {
	args := m.Called(ctx, sessionUID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.BotSession), args.Get(1).(uint64), args.Error(2)
}

func (m *MockBotSessionRepository) Update(ctx context.Context, session *models.BotSession, revision uint64) error {
	args := m.Called(ctx, session, revision)
	return args.Error(0)
}

func (m *MockBotSessionRepository) GetByProviderBotID(ctx context.Context, providerBotID, organizationID string) (*models.BotSession, uint64, error) {
	args := m.Called(ctx, providerBotID, organizationID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.BotSession), args.Get(1).(uint64), args.Error(2)
}

func (m *MockBotSessionRepository) GetByCalendarEventID(ctx context.Context, calendarEventID, organizationID string) (*models.BotSession, error) {
	args := m.Called(ctx, calendarEventID, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BotSession), args.Error(1)
}

func (m *MockBotSessionRepository) ListByStatuses(ctx context.Context, organizationID string, statuses []models.BotStatus, createdAfter time.Time, limit int) ([]*models.BotSession, error) {
	args := m.Called(ctx, organizationID, statuses, createdAfter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BotSession), args.Error(1)
}

func (m *MockBotSessionRepository) ListOrganizationsWithActiveSessions(ctx context.Context, createdAfter time.Time) ([]string, error) {
	args := m.Called(ctx, createdAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBotSessionRepository) ListFailedEligibleForRetry(ctx context.Context, organizationID string, maxRetryCount int, createdAfter time.Time) ([]*models.BotSession, error) {
	args := m.Called(ctx, organizationID, maxRetryCount, createdAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BotSession), args.Error(1)
}
