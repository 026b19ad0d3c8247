// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/domain/mocks"
	"github.com/meetloop/bot-session-service/internal/domain/models"
)

type pollFixture struct {
	service       *BotPollService
	sessionRepo   *mocks.MockBotSessionRepository
	recordingRepo *mocks.MockRecordingRepository
	mediaStore    *mocks.MockMediaStore
	downloader    *mocks.MockMediaDownloader
	provider      *mocks.MockBotProvider
	messageSender *mocks.MockMessageSender
}

func newPollFixture() *pollFixture {
	f := &pollFixture{
		sessionRepo:   &mocks.MockBotSessionRepository{},
		recordingRepo: &mocks.MockRecordingRepository{},
		mediaStore:    &mocks.MockMediaStore{},
		downloader:    &mocks.MockMediaDownloader{},
		provider:      &mocks.MockBotProvider{},
		messageSender: &mocks.MockMessageSender{},
	}

	config := testServiceConfig()
	sessionService := NewBotSessionService(f.sessionRepo, f.provider, config)
	ingestionService := NewMediaIngestionService(
		f.recordingRepo, f.sessionRepo, f.mediaStore, f.downloader, nil, f.provider, f.messageSender, config)
	f.service = NewBotPollService(f.sessionRepo, sessionService, ingestionService, f.provider, config)
	return f
}

func polledSession(uid, botID, org string) *models.BotSession {
	return &models.BotSession{
		UID:            uid,
		ProviderBotID:  botID,
		OrganizationID: org,
		UserID:         "user-1",
		ProjectID:      "proj-1",
		BotStatus:      models.BotStatusJoining,
		ProviderStatus: "joining_call",
		CreatedAt:      time.Now().UTC().Add(-10 * time.Minute),
	}
}

func TestBotPollService_PollActiveSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("no organizations means an empty cycle", func(t *testing.T) {
		f := newPollFixture()
		f.sessionRepo.On("ListOrganizationsWithActiveSessions", mock.Anything, mock.Anything).
			Return([]string{}, nil)

		result, err := f.service.PollActiveSessions(ctx)

		require.NoError(t, err)
		assert.Zero(t, result.Polled)
		assert.Zero(t, result.Updated)
	})

	t.Run("applies a missed status transition", func(t *testing.T) {
		f := newPollFixture()
		session := polledSession("session-1", "bot-1", "org-1")
		f.sessionRepo.On("ListOrganizationsWithActiveSessions", mock.Anything, mock.Anything).
			Return([]string{"org-1"}, nil)
		f.sessionRepo.On("ListByStatuses", mock.Anything, "org-1", nonTerminalPollStatuses, mock.Anything, 50).
			Return([]*models.BotSession{session}, nil)
		f.provider.On("GetBot", mock.Anything, "bot-1").
			Return(&domain.BotDetails{ID: "bot-1", Status: "in_call_recording"}, nil)
		f.sessionRepo.On("GetWithRevision", mock.Anything, "session-1").
			Return(polledSession("session-1", "bot-1", "org-1"), uint64(6), nil).Once()
		f.sessionRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *models.BotSession) bool {
			return s.BotStatus == models.BotStatusActive && s.JoinedAt != nil
		}), uint64(6)).Return(nil)
		// Re-read after the transition picks up the bumped revision.
		updated := polledSession("session-1", "bot-1", "org-1")
		updated.BotStatus = models.BotStatusActive
		updated.ProviderStatus = "in_call_recording"
		f.sessionRepo.On("GetWithRevision", mock.Anything, "session-1").
			Return(updated, uint64(7), nil).Once()

		result, err := f.service.PollActiveSessions(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Polled)
		assert.Equal(t, 1, result.Updated)
		assert.Empty(t, result.Errors)
		f.sessionRepo.AssertExpectations(t)
	})

	t.Run("matching provider state leaves the session untouched", func(t *testing.T) {
		f := newPollFixture()
		session := polledSession("session-1", "bot-1", "org-1")
		f.sessionRepo.On("ListOrganizationsWithActiveSessions", mock.Anything, mock.Anything).
			Return([]string{"org-1"}, nil)
		f.sessionRepo.On("ListByStatuses", mock.Anything, "org-1", nonTerminalPollStatuses, mock.Anything, 50).
			Return([]*models.BotSession{session}, nil)
		f.provider.On("GetBot", mock.Anything, "bot-1").
			Return(&domain.BotDetails{ID: "bot-1", Status: "joining_call"}, nil)
		f.sessionRepo.On("GetWithRevision", mock.Anything, "session-1").
			Return(polledSession("session-1", "bot-1", "org-1"), uint64(6), nil)

		result, err := f.service.PollActiveSessions(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Polled)
		assert.Zero(t, result.Updated)
		f.sessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("catch-up ingestion for a recording the session does not know", func(t *testing.T) {
		f := newPollFixture()
		session := polledSession("session-1", "bot-1", "org-1")
		session.BotStatus = models.BotStatusLeaving
		session.ProviderStatus = "call_ended"
		f.sessionRepo.On("ListOrganizationsWithActiveSessions", mock.Anything, mock.Anything).
			Return([]string{"org-1"}, nil)
		f.sessionRepo.On("ListByStatuses", mock.Anything, "org-1", nonTerminalPollStatuses, mock.Anything, 50).
			Return([]*models.BotSession{session}, nil)
		f.provider.On("GetBot", mock.Anything, "bot-1").
			Return(&domain.BotDetails{
				ID:     "bot-1",
				Status: "call_ended",
				Recordings: []domain.BotRecording{
					{ID: "rec-1", DownloadURL: "https://cdn.example.com/rec-1"},
				},
			}, nil)
		stored := polledSession("session-1", "bot-1", "org-1")
		stored.BotStatus = models.BotStatusLeaving
		stored.ProviderStatus = "call_ended"
		f.sessionRepo.On("GetWithRevision", mock.Anything, "session-1").Return(stored, uint64(6), nil)
		f.recordingRepo.On("GetByExternalID", mock.Anything, "rec-1", "org-1").
			Return(nil, domain.NewNotFoundError("no recording"))
		f.downloader.On("Download", mock.Anything, "https://cdn.example.com/rec-1").
			Return([]byte("media-bytes"), nil)
		f.mediaStore.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.recordingRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.sessionRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *models.BotSession) bool {
			return s.RecordingUID != "" && s.BotStatus == models.BotStatusCompleted
		}), uint64(6)).Return(nil)
		f.messageSender.On("SendSubmitInsightsWorkflow", mock.Anything, mock.Anything).Return(nil)
		f.messageSender.On("SendSessionNotification", mock.Anything, mock.Anything).Return(nil)

		result, err := f.service.PollActiveSessions(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		f.downloader.AssertExpectations(t)
	})

	t.Run("per-session provider errors are collected, not fatal", func(t *testing.T) {
		f := newPollFixture()
		broken := polledSession("session-1", "bot-1", "org-1")
		healthy := polledSession("session-2", "bot-2", "org-1")
		f.sessionRepo.On("ListOrganizationsWithActiveSessions", mock.Anything, mock.Anything).
			Return([]string{"org-1"}, nil)
		f.sessionRepo.On("ListByStatuses", mock.Anything, "org-1", nonTerminalPollStatuses, mock.Anything, 50).
			Return([]*models.BotSession{broken, healthy}, nil)
		f.provider.On("GetBot", mock.Anything, "bot-1").
			Return(nil, domain.NewUnavailableError("provider down"))
		f.provider.On("GetBot", mock.Anything, "bot-2").
			Return(&domain.BotDetails{ID: "bot-2", Status: "joining_call"}, nil)
		f.sessionRepo.On("GetWithRevision", mock.Anything, "session-2").
			Return(polledSession("session-2", "bot-2", "org-1"), uint64(6), nil)

		result, err := f.service.PollActiveSessions(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Polled)
		assert.Len(t, result.Errors, 1)
	})

	t.Run("organizations fan out independently", func(t *testing.T) {
		f := newPollFixture()
		f.sessionRepo.On("ListOrganizationsWithActiveSessions", mock.Anything, mock.Anything).
			Return([]string{"org-a", "org-b"}, nil)
		f.sessionRepo.On("ListByStatuses", mock.Anything, "org-a", nonTerminalPollStatuses, mock.Anything, 50).
			Return([]*models.BotSession{}, nil)
		f.sessionRepo.On("ListByStatuses", mock.Anything, "org-b", nonTerminalPollStatuses, mock.Anything, 50).
			Return(nil, domain.NewInternalError("listing failed"))

		result, err := f.service.PollActiveSessions(ctx)

		require.NoError(t, err)
		assert.Len(t, result.Errors, 1)
	})
}
