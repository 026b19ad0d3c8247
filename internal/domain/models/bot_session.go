// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"

	"github.com/meetloop/bot-session-service/pkg/utils"
)

// BotStatus is the internal, closed status set for a bot session.
// Provider-specific status strings and event names are mapped onto this set
// by the status mapper; nothing outside this set is ever persisted.
type BotStatus string

const (
	BotStatusScheduled      BotStatus = "scheduled"
	BotStatusPendingConsent BotStatus = "pending_consent"
	BotStatusJoining        BotStatus = "joining"
	BotStatusActive         BotStatus = "active"
	BotStatusLeaving        BotStatus = "leaving"
	BotStatusCompleted      BotStatus = "completed"
	BotStatusFailed         BotStatus = "failed"
)

// IsValid reports whether the status is a member of the closed set.
func (s BotStatus) IsValid() bool {
	switch s {
	case BotStatusScheduled, BotStatusPendingConsent, BotStatusJoining,
		BotStatusActive, BotStatusLeaving, BotStatusCompleted, BotStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the session has reached a final state.
// Terminal sessions ignore further chat commands and are skipped by the poller.
func (s BotStatus) IsTerminal() bool {
	return s == BotStatusCompleted || s == BotStatusFailed
}

// IsLeaveEquivalent reports whether the status marks the bot as having left
// (or being in the process of leaving) the call.
func (s BotStatus) IsLeaveEquivalent() bool {
	return s == BotStatusLeaving || s == BotStatusCompleted || s == BotStatusFailed
}

// BotSession represents one provider recording job.
// Sessions are created when a recording is requested and mutated exclusively
// through ApplyStatusTransition plus the dedicated session operations; they are
// never hard-deleted by this service.
type BotSession struct {
	UID             string     `json:"uid"`
	ProviderBotID   string     `json:"provider_bot_id"`
	OrganizationID  string     `json:"organization_id"`
	UserID          string     `json:"user_id"`
	ProjectID       string     `json:"project_id"`
	RecordingUID    string     `json:"recording_uid,omitempty"`
	CalendarEventID string     `json:"calendar_event_id,omitempty"`
	MeetingURL      string     `json:"meeting_url"`
	BotStatus       BotStatus  `json:"bot_status"`
	ProviderStatus  string     `json:"provider_status"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	RetryCount      int        `json:"retry_count"`
	Participants    []string   `json:"participants,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	JoinedAt        *time.Time `json:"joined_at,omitempty"`
	LeftAt          *time.Time `json:"left_at,omitempty"`
}

// StatusTransition carries the context of a single status change being applied
// to a session. SubCode and Message are provider-supplied detail, used to build
// the session error message on failure and consent-denial transitions.
type StatusTransition struct {
	Status    BotStatus
	RawStatus string
	SubCode   string
	Message   string
}

// ApplyStatusTransition applies a status change to the session in place and
// reports whether anything changed. It is the single transition function shared
// by the webhook and polling reconcilers, so the two paths cannot diverge.
//
// Monotonic fields are never downgraded: JoinedAt and LeftAt, once set, are
// kept; RecordingUID is never cleared here. Re-applying the same transition is
// a no-op, which makes duplicate webhook delivery safe.
func (s *BotSession) ApplyStatusTransition(t StatusTransition, now time.Time) bool {
	changed := false

	if s.BotStatus != t.Status {
		s.BotStatus = t.Status
		changed = true
	}
	if t.RawStatus != "" && s.ProviderStatus != t.RawStatus {
		s.ProviderStatus = t.RawStatus
		changed = true
	}

	// JoinedAt is a monotonic fact: set on the first transition into active.
	if t.Status == BotStatusActive && s.JoinedAt == nil {
		s.JoinedAt = utils.TimePtr(now)
		changed = true
	}

	// LeftAt is a monotonic fact: set on the first leave-equivalent transition.
	if t.Status.IsLeaveEquivalent() && s.LeftAt == nil {
		s.LeftAt = utils.TimePtr(now)
		changed = true
	}

	switch t.Status {
	case BotStatusFailed:
		msg := t.Message
		if msg == "" {
			msg = fmt.Sprintf("bot failed with provider status %q", t.RawStatus)
		}
		if t.SubCode != "" {
			msg = fmt.Sprintf("%s (sub_code: %s)", msg, t.SubCode)
		}
		if s.ErrorMessage != msg {
			s.ErrorMessage = msg
			changed = true
		}
	case BotStatusPendingConsent:
		// Consent pending is not a failure, but a denial sub-code is worth
		// surfacing on the session so the owner can see why recording stalled.
		if t.SubCode != "" {
			msg := fmt.Sprintf("recording permission denied (sub_code: %s)", t.SubCode)
			if s.ErrorMessage != msg {
				s.ErrorMessage = msg
				changed = true
			}
		}
	}

	if changed {
		s.UpdatedAt = now
	}

	return changed
}

// SetRecording links an ingested recording to the session. The link is
// write-once: a session that already references a recording keeps it.
func (s *BotSession) SetRecording(recordingUID string, now time.Time) bool {
	if s.RecordingUID != "" || recordingUID == "" {
		return false
	}
	s.RecordingUID = recordingUID
	s.UpdatedAt = now
	return true
}

// SetParticipants replaces the participant name list, last write wins.
func (s *BotSession) SetParticipants(names []string, now time.Time) {
	s.Participants = names
	s.UpdatedAt = now
}

// AddParticipant appends a participant name if not already present.
func (s *BotSession) AddParticipant(name string, now time.Time) bool {
	for _, p := range s.Participants {
		if p == name {
			return false
		}
	}
	s.Participants = append(s.Participants, name)
	s.UpdatedAt = now
	return true
}

// Tags generates a set of tags for the session, used by log enrichment.
func (s *BotSession) Tags() []string {
	var tags []string
	if s.UID != "" {
		tags = append(tags, s.UID)
	}
	if s.ProviderBotID != "" {
		tags = append(tags, s.ProviderBotID)
	}
	if s.OrganizationID != "" {
		tags = append(tags, s.OrganizationID)
	}
	if s.ProjectID != "" {
		tags = append(tags, s.ProjectID)
	}
	return tags
}
