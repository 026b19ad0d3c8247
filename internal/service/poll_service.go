// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/domain/models"
	"github.com/meetloop/bot-session-service/internal/logging"
	"github.com/meetloop/bot-session-service/pkg/concurrent"
)

// pollWorkerCount bounds the organization fan-out per poll cycle. Sessions
// within one organization are polled sequentially.
const pollWorkerCount = 4

// nonTerminalPollStatuses are the statuses the poller reconciles. Everything
// else either has not started or already converged.
var nonTerminalPollStatuses = []models.BotStatus{
	models.BotStatusJoining,
	models.BotStatusActive,
	models.BotStatusPendingConsent,
	models.BotStatusLeaving,
}

// PollResult reports one poll cycle. Per-session errors are collected, not
// fatal: the next scheduled cycle retries whatever is still divergent.
type PollResult struct {
	Polled  int
	Updated int
	Errors  []error
}

// BotPollService is the pull-side reconciler: it queries the provider
// directly for sessions that look live and applies the same transition logic
// as the webhook path, catching up on any missed deliveries.
type BotPollService struct {
	sessionRepository domain.BotSessionRepository
	sessionService    *BotSessionService
	ingestionService  *MediaIngestionService
	provider          domain.BotProvider
	config            ServiceConfig
}

// NewBotPollService creates a new BotPollService.
func NewBotPollService(
	sessionRepository domain.BotSessionRepository,
	sessionService *BotSessionService,
	ingestionService *MediaIngestionService,
	provider domain.BotProvider,
	config ServiceConfig,
) *BotPollService {
	return &BotPollService{
		sessionRepository: sessionRepository,
		sessionService:    sessionService,
		ingestionService:  ingestionService,
		provider:          provider,
		config:            config,
	}
}

// ServiceReady checks if the service is ready to poll.
func (s *BotPollService) ServiceReady() bool {
	return s.sessionRepository != nil &&
		s.sessionService != nil &&
		s.ingestionService != nil &&
		s.provider != nil
}

// PollActiveSessions scans every organization with non-terminal sessions
// inside the recency window and reconciles each session against the
// provider's current view. Organizations are polled concurrently with bounded
// parallelism; reconciliation idempotency makes the fan-out safe against
// concurrently arriving webhooks.
func (s *BotPollService) PollActiveSessions(ctx context.Context) (*PollResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("poll service is not ready")
	}

	createdAfter := time.Now().UTC().Add(-s.config.PollRecencyWindow)

	organizations, err := s.sessionRepository.ListOrganizationsWithActiveSessions(ctx, createdAfter)
	if err != nil {
		slog.ErrorContext(ctx, "error listing organizations with active sessions", logging.ErrKey, err)
		return nil, err
	}
	if len(organizations) == 0 {
		return &PollResult{}, nil
	}

	result := &PollResult{}
	var mu sync.Mutex

	pool := concurrent.NewWorkerPool(pollWorkerCount)
	tasks := make([]func() error, 0, len(organizations))
	for _, organizationID := range organizations {
		tasks = append(tasks, func() error {
			polled, updated, errs := s.pollOrganization(ctx, organizationID, createdAfter)
			mu.Lock()
			result.Polled += polled
			result.Updated += updated
			result.Errors = append(result.Errors, errs...)
			mu.Unlock()
			return nil
		})
	}
	_ = pool.RunAll(ctx, tasks...)

	slog.InfoContext(ctx, "poll cycle complete",
		"organizations", len(organizations),
		"polled", result.Polled,
		"updated", result.Updated,
		"errors", len(result.Errors),
	)

	return result, nil
}

// pollOrganization reconciles one organization's page of live sessions.
func (s *BotPollService) pollOrganization(ctx context.Context, organizationID string, createdAfter time.Time) (polled, updated int, errs []error) {
	ctx = logging.AppendCtx(ctx, slog.String("organization_id", organizationID))

	sessions, err := s.sessionRepository.ListByStatuses(ctx, organizationID, nonTerminalPollStatuses, createdAfter, s.config.PollPageLimit)
	if err != nil {
		return 0, 0, []error{fmt.Errorf("listing sessions for organization %s: %w", organizationID, err)}
	}

	for _, session := range sessions {
		polled++
		changed, err := s.pollSession(ctx, session)
		if err != nil {
			errs = append(errs, fmt.Errorf("polling session %s: %w", session.UID, err))
			continue
		}
		if changed {
			updated++
		}
	}

	return polled, updated, errs
}

// pollSession fetches the provider's current view of one session and applies
// the shared transition logic. A session whose stored state already matches
// is left byte-for-byte unchanged.
func (s *BotPollService) pollSession(ctx context.Context, session *models.BotSession) (bool, error) {
	bot, err := s.provider.GetBot(ctx, session.ProviderBotID)
	if err != nil {
		return false, err
	}

	// Re-read with revision so the optimistic update is guarded against a
	// webhook racing this poll.
	stored, revision, err := s.sessionRepository.GetWithRevision(ctx, session.UID)
	if err != nil {
		return false, err
	}

	changed := false
	if bot.Status != "" && bot.Status != stored.ProviderStatus {
		status, known := MapBotStatus(bot.Status)
		if !known {
			slog.WarnContext(ctx, "unknown provider status from poll, mapping to failed",
				"unknown_status", bot.Status, logging.PriorityCritical())
		}

		transitioned, err := s.sessionService.ApplyTransition(ctx, stored, revision, models.StatusTransition{
			Status:    status,
			RawStatus: bot.Status,
			SubCode:   bot.SubCode,
			Message:   bot.Message,
		})
		if err != nil {
			return false, err
		}
		if transitioned {
			changed = true
			// The transition bumped the stored revision; re-read before any
			// recording linkage below.
			stored, revision, err = s.sessionRepository.GetWithRevision(ctx, stored.UID)
			if err != nil {
				return changed, err
			}
		}
	}

	// Catch-up ingestion: the provider reports a recording the session does
	// not know about, typically because the recording-done webhook was lost.
	if stored.RecordingUID == "" && len(bot.Recordings) > 0 {
		recording := bot.Recordings[0]
		if _, err := s.ingestionService.Ingest(ctx, IngestRequest{
			Session:             stored,
			Revision:            revision,
			ExternalRecordingID: recording.ID,
			DirectURL:           recording.DownloadURL,
		}); err != nil {
			return changed, err
		}
		changed = true
	}

	return changed, nil
}
