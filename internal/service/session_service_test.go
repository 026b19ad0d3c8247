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

func testServiceConfig() ServiceConfig {
	return ServiceConfig{
		BotDisplayName:           "Meetloop Notetaker",
		WebhookURL:               "https://api.meetloop.test/webhooks/bot",
		InactivityTimeoutSeconds: 300,
		PollRecencyWindow:        4 * time.Hour,
		PollPageLimit:            50,
		MaxRetryCount:            3,
		RetryAgeWindow:           24 * time.Hour,
		DownloadTimeout:          2 * time.Minute,
		DownloadURLRetries:       1,
		DownloadURLRetryDelay:    time.Millisecond,
	}
}

func validCreateRequest() *models.CreateSessionRequest {
	return &models.CreateSessionRequest{
		OrganizationID: "org-1",
		UserID:         "user-1",
		ProjectID:      "proj-1",
		MeetingURL:     "https://meet.example.com/abc",
	}
}

func TestBotSessionService_CreateSession(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		request       *models.CreateSessionRequest
		setupMocks    func(repo *mocks.MockBotSessionRepository, provider *mocks.MockBotProvider)
		validate      func(t *testing.T, session *models.BotSession)
		wantErr       bool
		expectedError domain.ErrorType
	}{
		{
			name:    "creates a session with a dispatched bot",
			request: validCreateRequest(),
			setupMocks: func(repo *mocks.MockBotSessionRepository, provider *mocks.MockBotProvider) {
				provider.On("CreateBot", mock.Anything, mock.MatchedBy(func(r *domain.CreateBotRequest) bool {
					return r.MeetingURL == "https://meet.example.com/abc" &&
						r.Metadata.OrganizationID == "org-1" &&
						r.WebhookURL == "https://api.meetloop.test/webhooks/bot"
				})).Return(&domain.BotDetails{ID: "bot-1", Status: "joining_call"}, nil)
				repo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			validate: func(t *testing.T, session *models.BotSession) {
				assert.NotEmpty(t, session.UID)
				assert.Equal(t, "bot-1", session.ProviderBotID)
				assert.Equal(t, models.BotStatusJoining, session.BotStatus)
				assert.Equal(t, "joining_call", session.ProviderStatus)
				assert.Zero(t, session.RetryCount)
			},
		},
		{
			name: "calendar event dedupe returns the existing session",
			request: func() *models.CreateSessionRequest {
				r := validCreateRequest()
				r.CalendarEventID = "event-42"
				return r
			}(),
			setupMocks: func(repo *mocks.MockBotSessionRepository, provider *mocks.MockBotProvider) {
				repo.On("GetByCalendarEventID", mock.Anything, "event-42", "org-1").
					Return(&models.BotSession{UID: "existing-session"}, nil)
			},
			validate: func(t *testing.T, session *models.BotSession) {
				assert.Equal(t, "existing-session", session.UID)
			},
		},
		{
			name: "calendar event miss dispatches a new bot",
			request: func() *models.CreateSessionRequest {
				r := validCreateRequest()
				r.CalendarEventID = "event-42"
				return r
			}(),
			setupMocks: func(repo *mocks.MockBotSessionRepository, provider *mocks.MockBotProvider) {
				repo.On("GetByCalendarEventID", mock.Anything, "event-42", "org-1").
					Return(nil, domain.NewNotFoundError("no session"))
				provider.On("CreateBot", mock.Anything, mock.Anything).
					Return(&domain.BotDetails{ID: "bot-2", Status: "ready"}, nil)
				repo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			validate: func(t *testing.T, session *models.BotSession) {
				assert.Equal(t, "bot-2", session.ProviderBotID)
				assert.Equal(t, models.BotStatusScheduled, session.BotStatus)
				assert.Equal(t, "event-42", session.CalendarEventID)
			},
		},
		{
			name: "unknown provider status on creation starts as joining",
			request: validCreateRequest(),
			setupMocks: func(repo *mocks.MockBotSessionRepository, provider *mocks.MockBotProvider) {
				provider.On("CreateBot", mock.Anything, mock.Anything).
					Return(&domain.BotDetails{ID: "bot-3", Status: "brand_new_status"}, nil)
				repo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			validate: func(t *testing.T, session *models.BotSession) {
				assert.Equal(t, models.BotStatusJoining, session.BotStatus)
				assert.Equal(t, "brand_new_status", session.ProviderStatus)
			},
		},
		{
			name:          "nil request",
			request:       nil,
			setupMocks:    func(repo *mocks.MockBotSessionRepository, provider *mocks.MockBotProvider) {},
			wantErr:       true,
			expectedError: domain.ErrorTypeValidation,
		},
		{
			name: "missing meeting URL",
			request: func() *models.CreateSessionRequest {
				r := validCreateRequest()
				r.MeetingURL = ""
				return r
			}(),
			setupMocks:    func(repo *mocks.MockBotSessionRepository, provider *mocks.MockBotProvider) {},
			wantErr:       true,
			expectedError: domain.ErrorTypeValidation,
		},
		{
			name: "missing tenant scoping",
			request: func() *models.CreateSessionRequest {
				r := validCreateRequest()
				r.OrganizationID = ""
				return r
			}(),
			setupMocks:    func(repo *mocks.MockBotSessionRepository, provider *mocks.MockBotProvider) {},
			wantErr:       true,
			expectedError: domain.ErrorTypeValidation,
		},
		{
			name:    "provider failure surfaces as internal error",
			request: validCreateRequest(),
			setupMocks: func(repo *mocks.MockBotSessionRepository, provider *mocks.MockBotProvider) {
				provider.On("CreateBot", mock.Anything, mock.Anything).
					Return(nil, domain.NewInternalError("provider is down"))
			},
			wantErr:       true,
			expectedError: domain.ErrorTypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockBotSessionRepository{}
			provider := &mocks.MockBotProvider{}
			tt.setupMocks(repo, provider)

			svc := NewBotSessionService(repo, provider, testServiceConfig())
			session, err := svc.CreateSession(ctx, tt.request)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.expectedError, domain.GetErrorType(err))
			} else {
				require.NoError(t, err)
				tt.validate(t, session)
			}
			repo.AssertExpectations(t)
			provider.AssertExpectations(t)
		})
	}
}

func TestBotSessionService_GetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("organization scoping hides foreign sessions", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		repo.On("Get", mock.Anything, "session-1").
			Return(&models.BotSession{UID: "session-1", OrganizationID: "org-1"}, nil)

		svc := NewBotSessionService(repo, provider, testServiceConfig())

		_, err := svc.GetSession(ctx, "session-1", "org-2")
		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))

		session, err := svc.GetSession(ctx, "session-1", "org-1")
		require.NoError(t, err)
		assert.Equal(t, "session-1", session.UID)
	})
}

func TestBotSessionService_TerminateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("terminates a live session via the provider", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		repo.On("Get", mock.Anything, "session-1").
			Return(&models.BotSession{UID: "session-1", OrganizationID: "org-1", ProviderBotID: "bot-1", BotStatus: models.BotStatusActive}, nil)
		provider.On("DeleteBot", mock.Anything, "bot-1").Return(nil)

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		err := svc.TerminateSession(ctx, "session-1", "org-1")

		require.NoError(t, err)
		provider.AssertExpectations(t)
	})

	t.Run("terminal session skips the provider call", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		repo.On("Get", mock.Anything, "session-1").
			Return(&models.BotSession{UID: "session-1", OrganizationID: "org-1", BotStatus: models.BotStatusCompleted}, nil)

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		err := svc.TerminateSession(ctx, "session-1", "org-1")

		require.NoError(t, err)
		provider.AssertNotCalled(t, "DeleteBot", mock.Anything, mock.Anything)
	})
}

func TestBotSessionService_RetryFailedSession(t *testing.T) {
	ctx := context.Background()

	failedSession := func() *models.BotSession {
		return &models.BotSession{
			UID:            "session-1",
			OrganizationID: "org-1",
			UserID:         "user-1",
			ProjectID:      "proj-1",
			ProviderBotID:  "bot-old",
			MeetingURL:     "https://meet.example.com/abc",
			BotStatus:      models.BotStatusFailed,
			ErrorMessage:   "bot failed",
			RetryCount:     1,
			CreatedAt:      time.Now().UTC().Add(-time.Hour),
		}
	}

	t.Run("retry dispatches a fresh bot and bumps the count", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		repo.On("GetWithRevision", mock.Anything, "session-1").Return(failedSession(), uint64(7), nil)
		provider.On("CreateBot", mock.Anything, mock.Anything).
			Return(&domain.BotDetails{ID: "bot-new", Status: "joining_call"}, nil)
		repo.On("Update", mock.Anything, mock.MatchedBy(func(s *models.BotSession) bool {
			return s.ProviderBotID == "bot-new" &&
				s.BotStatus == models.BotStatusJoining &&
				s.RetryCount == 2 &&
				s.ErrorMessage == ""
		}), uint64(7)).Return(nil)

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		session, err := svc.RetryFailedSession(ctx, "session-1", "org-1")

		require.NoError(t, err)
		assert.Equal(t, "bot-new", session.ProviderBotID)
		assert.Equal(t, 2, session.RetryCount)
		repo.AssertExpectations(t)
	})

	t.Run("non-failed session is a conflict", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		active := failedSession()
		active.BotStatus = models.BotStatusActive
		repo.On("GetWithRevision", mock.Anything, "session-1").Return(active, uint64(7), nil)

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		_, err := svc.RetryFailedSession(ctx, "session-1", "org-1")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
	})

	t.Run("exhausted retries is a conflict", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		exhausted := failedSession()
		exhausted.RetryCount = 3
		repo.On("GetWithRevision", mock.Anything, "session-1").Return(exhausted, uint64(7), nil)

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		_, err := svc.RetryFailedSession(ctx, "session-1", "org-1")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
		provider.AssertNotCalled(t, "CreateBot", mock.Anything, mock.Anything)
	})

	t.Run("session outside the retry age window is a conflict", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		stale := failedSession()
		stale.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
		repo.On("GetWithRevision", mock.Anything, "session-1").Return(stale, uint64(7), nil)

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		_, err := svc.RetryFailedSession(ctx, "session-1", "org-1")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))
	})

	t.Run("organization scoping hides foreign sessions", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		repo.On("GetWithRevision", mock.Anything, "session-1").Return(failedSession(), uint64(7), nil)

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		_, err := svc.RetryFailedSession(ctx, "session-1", "org-other")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})
}

func TestBotSessionService_ListRetryableSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("lists eligible failed sessions for the organization", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		eligible := []*models.BotSession{{UID: "session-1", BotStatus: models.BotStatusFailed}}
		repo.On("ListFailedEligibleForRetry", mock.Anything, "org-1", 3, mock.MatchedBy(func(cutoff time.Time) bool {
			return time.Since(cutoff) > 23*time.Hour && time.Since(cutoff) < 25*time.Hour
		})).Return(eligible, nil)

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		sessions, err := svc.ListRetryableSessions(ctx, "org-1")

		require.NoError(t, err)
		assert.Equal(t, eligible, sessions)
		repo.AssertExpectations(t)
	})

	t.Run("missing organization is a validation error", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		_, err := svc.ListRetryableSessions(ctx, "")

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})
}

func TestBotSessionService_ApplyTransition(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a real transition", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		session := &models.BotSession{UID: "session-1", BotStatus: models.BotStatusJoining}
		repo.On("Update", mock.Anything, session, uint64(3)).Return(nil)

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		changed, err := svc.ApplyTransition(ctx, session, 3, models.StatusTransition{
			Status:    models.BotStatusActive,
			RawStatus: "in_call_recording",
		})

		require.NoError(t, err)
		assert.True(t, changed)
		assert.NotNil(t, session.JoinedAt)
		repo.AssertExpectations(t)
	})

	t.Run("no-op transition skips the write", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		session := &models.BotSession{UID: "session-1", BotStatus: models.BotStatusActive, ProviderStatus: "in_call_recording"}
		joined := time.Now().UTC()
		session.JoinedAt = &joined

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		changed, err := svc.ApplyTransition(ctx, session, 3, models.StatusTransition{
			Status:    models.BotStatusActive,
			RawStatus: "in_call_recording",
		})

		require.NoError(t, err)
		assert.False(t, changed)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		repo := &mocks.MockBotSessionRepository{}
		provider := &mocks.MockBotProvider{}
		session := &models.BotSession{UID: "session-1", BotStatus: models.BotStatusJoining}

		svc := NewBotSessionService(repo, provider, testServiceConfig())
		_, err := svc.ApplyTransition(ctx, session, 3, models.StatusTransition{Status: "warp_speed"})

		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
	})
}
