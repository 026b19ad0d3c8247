// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotStatusIsTerminal(t *testing.T) {
	assert.True(t, BotStatusCompleted.IsTerminal())
	assert.True(t, BotStatusFailed.IsTerminal())
	assert.False(t, BotStatusScheduled.IsTerminal())
	assert.False(t, BotStatusPendingConsent.IsTerminal())
	assert.False(t, BotStatusJoining.IsTerminal())
	assert.False(t, BotStatusActive.IsTerminal())
	assert.False(t, BotStatusLeaving.IsTerminal())
}

func TestBotStatusIsValid(t *testing.T) {
	assert.True(t, BotStatusActive.IsValid())
	assert.False(t, BotStatus("in_call_recording").IsValid())
	assert.False(t, BotStatus("").IsValid())
}

func TestApplyStatusTransition(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("transition into active sets JoinedAt once", func(t *testing.T) {
		session := &BotSession{UID: "s1", BotStatus: BotStatusJoining}

		changed := session.ApplyStatusTransition(StatusTransition{
			Status:    BotStatusActive,
			RawStatus: "in_call_recording",
		}, now)

		require.True(t, changed)
		require.NotNil(t, session.JoinedAt)
		assert.Equal(t, now, *session.JoinedAt)
		assert.Equal(t, BotStatusActive, session.BotStatus)
		assert.Equal(t, "in_call_recording", session.ProviderStatus)
		assert.Equal(t, now, session.UpdatedAt)

		// A later re-entry into active must not move JoinedAt.
		later := now.Add(5 * time.Minute)
		session.BotStatus = BotStatusPendingConsent
		changed = session.ApplyStatusTransition(StatusTransition{
			Status:    BotStatusActive,
			RawStatus: "recording_permission_allowed",
		}, later)

		require.True(t, changed)
		assert.Equal(t, now, *session.JoinedAt)
	})

	t.Run("re-applying the same transition is a no-op", func(t *testing.T) {
		session := &BotSession{UID: "s1", BotStatus: BotStatusJoining, ProviderStatus: "joining_call"}
		original := *session

		changed := session.ApplyStatusTransition(StatusTransition{
			Status:    BotStatusJoining,
			RawStatus: "joining_call",
		}, now)

		assert.False(t, changed)
		assert.Equal(t, original, *session)
	})

	t.Run("leave-equivalent transitions set LeftAt once", func(t *testing.T) {
		session := &BotSession{UID: "s1", BotStatus: BotStatusActive}

		changed := session.ApplyStatusTransition(StatusTransition{
			Status:    BotStatusLeaving,
			RawStatus: "leaving_call",
		}, now)
		require.True(t, changed)
		require.NotNil(t, session.LeftAt)
		assert.Equal(t, now, *session.LeftAt)

		later := now.Add(time.Minute)
		changed = session.ApplyStatusTransition(StatusTransition{
			Status:    BotStatusCompleted,
			RawStatus: "done",
		}, later)
		require.True(t, changed)
		assert.Equal(t, now, *session.LeftAt)
	})

	t.Run("failure transition builds error message with sub code", func(t *testing.T) {
		session := &BotSession{UID: "s1", BotStatus: BotStatusJoining}

		changed := session.ApplyStatusTransition(StatusTransition{
			Status:    BotStatusFailed,
			RawStatus: "fatal",
			SubCode:   "meeting_not_found",
		}, now)

		require.True(t, changed)
		assert.Contains(t, session.ErrorMessage, `"fatal"`)
		assert.Contains(t, session.ErrorMessage, "meeting_not_found")
	})

	t.Run("failure transition keeps provider message when present", func(t *testing.T) {
		session := &BotSession{UID: "s1", BotStatus: BotStatusJoining}

		session.ApplyStatusTransition(StatusTransition{
			Status:    BotStatusFailed,
			RawStatus: "fatal",
			Message:   "the meeting link was invalid",
		}, now)

		assert.Contains(t, session.ErrorMessage, "the meeting link was invalid")
	})

	t.Run("consent denial surfaces sub code without failing the session", func(t *testing.T) {
		session := &BotSession{UID: "s1", BotStatus: BotStatusJoining}

		changed := session.ApplyStatusTransition(StatusTransition{
			Status:    BotStatusPendingConsent,
			RawStatus: "recording_permission_denied",
			SubCode:   "host_denied",
		}, now)

		require.True(t, changed)
		assert.Equal(t, BotStatusPendingConsent, session.BotStatus)
		assert.Contains(t, session.ErrorMessage, "host_denied")
	})

	t.Run("empty raw status keeps stored provider status", func(t *testing.T) {
		session := &BotSession{UID: "s1", BotStatus: BotStatusJoining, ProviderStatus: "joining_call"}

		session.ApplyStatusTransition(StatusTransition{Status: BotStatusActive}, now)

		assert.Equal(t, "joining_call", session.ProviderStatus)
	})
}

func TestSetRecording(t *testing.T) {
	now := time.Now().UTC()
	session := &BotSession{UID: "s1"}

	assert.True(t, session.SetRecording("rec-1", now))
	assert.Equal(t, "rec-1", session.RecordingUID)

	// Write-once: a second link attempt keeps the first recording.
	assert.False(t, session.SetRecording("rec-2", now))
	assert.Equal(t, "rec-1", session.RecordingUID)

	assert.False(t, session.SetRecording("", now))
}

func TestAddParticipant(t *testing.T) {
	now := time.Now().UTC()
	session := &BotSession{UID: "s1"}

	assert.True(t, session.AddParticipant("Ada Lovelace", now))
	assert.True(t, session.AddParticipant("Grace Hopper", now))
	assert.False(t, session.AddParticipant("Ada Lovelace", now))
	assert.Equal(t, []string{"Ada Lovelace", "Grace Hopper"}, session.Participants)
}
