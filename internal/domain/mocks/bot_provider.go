// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/meetloop/bot-session-service/internal/domain"
)

// MockBotProvider implements BotProvider for testing
type MockBotProvider struct {
	mock.Mock
}

func (m *MockBotProvider) CreateBot(ctx context.Context, request *domain.CreateBotRequest) (*domain.BotDetails, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BotDetails), args.Error(1)
}

func (m *MockBotProvider) GetBot(ctx context.Context, botID string) (*domain.BotDetails, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BotDetails), args.Error(1)
}

func (m *MockBotProvider) GetDownloadURL(ctx context.Context, botID, recordingID string) (*domain.DownloadTarget, error) {
	args := m.Called(ctx, botID, recordingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DownloadTarget), args.Error(1)
}

func (m *MockBotProvider) LeaveCall(ctx context.Context, botID string) error {
	args := m.Called(ctx, botID)
	return args.Error(0)
}

func (m *MockBotProvider) DeleteBot(ctx context.Context, botID string) error {
	args := m.Called(ctx, botID)
	return args.Error(0)
}
