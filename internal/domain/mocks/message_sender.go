// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/meetloop/bot-session-service/internal/domain/models"
)

// MockMessageSender implements MessageSender for testing
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendSubmitInsightsWorkflow(ctx context.Context, submission models.WorkflowSubmission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

func (m *MockMessageSender) SendSessionNotification(ctx context.Context, notification models.SessionNotification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}
