// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/domain/models"
	"github.com/meetloop/bot-session-service/internal/logging"
)

// NatsBotSessionRepository is the NATS KV store repository for bot sessions.
//
// Sessions are stored under "session/<uid>". Two secondary indexes map lookup
// keys to session UIDs:
//
//	index/bot/<providerBotID>                 webhook resolution (org may be unknown)
//	index/calendar/<org>/<calendarEventID>    duplicate detection on create
//
// Index values are the raw session UID, not JSON.
type NatsBotSessionRepository struct {
	*NatsBaseRepository[models.BotSession]
	keyBuilder *KeyBuilder
}

// NewNatsBotSessionRepository creates a new NATS KV bot session repository.
func NewNatsBotSessionRepository(kvStore INatsKeyValue) *NatsBotSessionRepository {
	return &NatsBotSessionRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.BotSession](kvStore, "bot session"),
		keyBuilder:         NewKeyBuilder(),
	}
}

func (r *NatsBotSessionRepository) sessionKey(sessionUID string) string {
	return r.keyBuilder.EntityKey(KeyPrefixSession, sessionUID)
}

func (r *NatsBotSessionRepository) botIndexKey(providerBotID string) string {
	return r.keyBuilder.IndexKey(KeyPrefixIndexBot, providerBotID)
}

func (r *NatsBotSessionRepository) calendarIndexKey(organizationID, calendarEventID string) string {
	return r.keyBuilder.IndexKey(KeyPrefixIndexCalendar, organizationID, calendarEventID)
}

// Create stores a new bot session along with its lookup indexes.
func (r *NatsBotSessionRepository) Create(ctx context.Context, session *models.BotSession) error {
	if session.UID == "" {
		return domain.NewValidationError("bot session UID is required")
	}

	err := r.NatsBaseRepository.Create(ctx, r.sessionKey(session.UID), session)
	if err != nil {
		return err
	}

	return r.putIndexes(ctx, session)
}

// Get retrieves a bot session by UID.
func (r *NatsBotSessionRepository) Get(ctx context.Context, sessionUID string) (*models.BotSession, error) {
	return r.NatsBaseRepository.Get(ctx, r.sessionKey(sessionUID))
}

// GetWithRevision retrieves a bot session with its KV revision for
// optimistic concurrency control.
func (r *NatsBotSessionRepository) GetWithRevision(ctx context.Context, sessionUID string) (*models.BotSession, uint64, error) {
	return r.NatsBaseRepository.GetWithRevision(ctx, r.sessionKey(sessionUID))
}

// Update writes a session guarded by the revision from a prior read. A retry
// can replace the provider bot, so the bot index is refreshed after the write.
func (r *NatsBotSessionRepository) Update(ctx context.Context, session *models.BotSession, revision uint64) error {
	err := r.NatsBaseRepository.Update(ctx, r.sessionKey(session.UID), session, revision)
	if err != nil {
		return err
	}

	return r.putIndexes(ctx, session)
}

func (r *NatsBotSessionRepository) putIndexes(ctx context.Context, session *models.BotSession) error {
	if session.ProviderBotID != "" {
		err := r.PutRaw(ctx, r.botIndexKey(session.ProviderBotID), []byte(session.UID))
		if err != nil {
			return err
		}
	}

	if session.CalendarEventID != "" {
		err := r.PutRaw(ctx, r.calendarIndexKey(session.OrganizationID, session.CalendarEventID), []byte(session.UID))
		if err != nil {
			return err
		}
	}

	return nil
}

// GetByProviderBotID resolves a session from a provider bot ID. When
// organizationID is non-empty the session's organization must match; a
// mismatch is reported as not found rather than leaking the session.
func (r *NatsBotSessionRepository) GetByProviderBotID(ctx context.Context, providerBotID, organizationID string) (*models.BotSession, uint64, error) {
	entry, err := r.GetRaw(ctx, r.botIndexKey(providerBotID))
	if err != nil {
		return nil, 0, err
	}

	sessionUID := string(entry.Value())
	session, revision, err := r.GetWithRevision(ctx, sessionUID)
	if err != nil {
		return nil, 0, err
	}

	if organizationID != "" && session.OrganizationID != organizationID {
		return nil, 0, domain.NewNotFoundError(
			fmt.Sprintf("bot session for bot '%s' not found in organization", providerBotID))
	}

	return session, revision, nil
}

// GetByCalendarEventID resolves a session from a calendar event ID within an
// organization. Used to avoid double-booking a bot for the same event.
func (r *NatsBotSessionRepository) GetByCalendarEventID(ctx context.Context, calendarEventID, organizationID string) (*models.BotSession, error) {
	entry, err := r.GetRaw(ctx, r.calendarIndexKey(organizationID, calendarEventID))
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, string(entry.Value()))
}

// ListByStatuses lists sessions in an organization matching any of the given
// statuses, created after the cutoff, newest first, capped at limit.
func (r *NatsBotSessionRepository) ListByStatuses(ctx context.Context, organizationID string, statuses []models.BotStatus, createdAfter time.Time, limit int) ([]*models.BotSession, error) {
	sessions, err := r.listSessions(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*models.BotSession
	for _, session := range sessions {
		if organizationID != "" && session.OrganizationID != organizationID {
			continue
		}
		if !slices.Contains(statuses, session.BotStatus) {
			continue
		}
		if !createdAfter.IsZero() && !session.CreatedAt.After(createdAfter) {
			continue
		}
		matched = append(matched, session)
	}

	slices.SortFunc(matched, func(a, b *models.BotSession) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// ListOrganizationsWithActiveSessions returns the distinct organization IDs
// that have at least one non-terminal session created after the cutoff. The
// poller uses this to shard its sweeps by organization.
func (r *NatsBotSessionRepository) ListOrganizationsWithActiveSessions(ctx context.Context, createdAfter time.Time) ([]string, error) {
	sessions, err := r.listSessions(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var organizations []string
	for _, session := range sessions {
		if session.BotStatus.IsTerminal() {
			continue
		}
		if !createdAfter.IsZero() && !session.CreatedAt.After(createdAfter) {
			continue
		}
		if seen[session.OrganizationID] {
			continue
		}
		seen[session.OrganizationID] = true
		organizations = append(organizations, session.OrganizationID)
	}

	slices.Sort(organizations)
	return organizations, nil
}

// ListFailedEligibleForRetry lists failed sessions within an organization
// that are still under the retry ceiling and young enough to retry.
func (r *NatsBotSessionRepository) ListFailedEligibleForRetry(ctx context.Context, organizationID string, maxRetryCount int, createdAfter time.Time) ([]*models.BotSession, error) {
	sessions, err := r.listSessions(ctx)
	if err != nil {
		return nil, err
	}

	var eligible []*models.BotSession
	for _, session := range sessions {
		if session.OrganizationID != organizationID {
			continue
		}
		if session.BotStatus != models.BotStatusFailed {
			continue
		}
		if session.RetryCount >= maxRetryCount {
			continue
		}
		if !createdAfter.IsZero() && !session.CreatedAt.After(createdAfter) {
			continue
		}
		eligible = append(eligible, session)
	}

	slices.SortFunc(eligible, func(a, b *models.BotSession) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return eligible, nil
}

func (r *NatsBotSessionRepository) listSessions(ctx context.Context) ([]*models.BotSession, error) {
	sessions, err := r.ListEntities(ctx, KeyPrefixSession+"/")
	if err != nil {
		if strings.Contains(err.Error(), "no keys found") {
			return nil, nil
		}
		slog.ErrorContext(ctx, "error listing bot sessions", logging.ErrKey, err)
		return nil, err
	}
	return sessions, nil
}
