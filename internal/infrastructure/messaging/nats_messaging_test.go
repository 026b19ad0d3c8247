// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meetloop/bot-session-service/internal/domain/models"
)

// MockNATSConn is a testify mock for INatsConn
type MockNATSConn struct {
	mock.Mock
}

func (m *MockNATSConn) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockNATSConn) Publish(subj string, data []byte) error {
	args := m.Called(subj, data)
	return args.Error(0)
}

func TestMessageBuilder_SendSubmitInsightsWorkflow(t *testing.T) {
	submission := models.WorkflowSubmission{
		RecordingUID:   "rec-1",
		BotSessionUID:  "sess-1",
		OrganizationID: "org-1",
		ProjectID:      "project-1",
		SubmittedAt:    time.Now().UTC(),
	}
	expectedBytes, err := json.Marshal(submission)
	require.NoError(t, err)

	mockConn := new(MockNATSConn)
	mockConn.On("Publish", models.SubmitInsightsWorkflowSubject, expectedBytes).Return(nil)

	builder := NewMessageBuilder(mockConn)
	err = builder.SendSubmitInsightsWorkflow(context.Background(), submission)
	require.NoError(t, err)

	mockConn.AssertExpectations(t)
}

func TestMessageBuilder_SendSessionNotification(t *testing.T) {
	notification := models.SessionNotification{
		Kind:           models.NotificationKindBotKicked,
		BotSessionUID:  "sess-1",
		OrganizationID: "org-1",
		UserID:         "user-1",
		Message:        "bot was removed from the call",
		OccurredAt:     time.Now().UTC(),
	}
	expectedBytes, err := json.Marshal(notification)
	require.NoError(t, err)

	mockConn := new(MockNATSConn)
	mockConn.On("Publish", models.SessionNotificationSubject, expectedBytes).Return(nil)

	builder := NewMessageBuilder(mockConn)
	err = builder.SendSessionNotification(context.Background(), notification)
	require.NoError(t, err)

	mockConn.AssertExpectations(t)
}

func TestMessageBuilder_PublishError(t *testing.T) {
	mockConn := new(MockNATSConn)
	mockConn.On("Publish", models.SessionNotificationSubject, mock.Anything).
		Return(errors.New("publish failed"))

	builder := NewMessageBuilder(mockConn)
	err := builder.SendSessionNotification(context.Background(), models.SessionNotification{
		Kind: models.NotificationKindRecordingFailed,
	})
	require.Error(t, err)

	mockConn.AssertExpectations(t)
}

func TestMessageBuilder_IsReady(t *testing.T) {
	builder := NewMessageBuilder(nil)
	assert.False(t, builder.IsReady())

	mockConn := new(MockNATSConn)
	mockConn.On("IsConnected").Return(true)
	builder = NewMessageBuilder(mockConn)
	assert.True(t, builder.IsReady())
}
