// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meetloop/bot-session-service/internal/domain/models"
)

func TestMapBotStatus(t *testing.T) {
	tests := []struct {
		name           string
		providerStatus string
		expectedStatus models.BotStatus
		expectedKnown  bool
	}{
		{
			name:           "ready maps to scheduled",
			providerStatus: "ready",
			expectedStatus: models.BotStatusScheduled,
			expectedKnown:  true,
		},
		{
			name:           "joining_call maps to joining",
			providerStatus: "joining_call",
			expectedStatus: models.BotStatusJoining,
			expectedKnown:  true,
		},
		{
			name:           "in_waiting_room maps to joining",
			providerStatus: "in_waiting_room",
			expectedStatus: models.BotStatusJoining,
			expectedKnown:  true,
		},
		{
			name:           "in_call_not_recording maps to joining",
			providerStatus: "in_call_not_recording",
			expectedStatus: models.BotStatusJoining,
			expectedKnown:  true,
		},
		{
			name:           "recording_permission_denied maps to pending consent",
			providerStatus: "recording_permission_denied",
			expectedStatus: models.BotStatusPendingConsent,
			expectedKnown:  true,
		},
		{
			name:           "in_call_recording maps to active",
			providerStatus: "in_call_recording",
			expectedStatus: models.BotStatusActive,
			expectedKnown:  true,
		},
		{
			name:           "call_ended maps to completed",
			providerStatus: "call_ended",
			expectedStatus: models.BotStatusCompleted,
			expectedKnown:  true,
		},
		{
			name:           "fatal maps to failed",
			providerStatus: "fatal",
			expectedStatus: models.BotStatusFailed,
			expectedKnown:  true,
		},
		{
			name:           "mapping is case insensitive",
			providerStatus: "  Joining_Call ",
			expectedStatus: models.BotStatusJoining,
			expectedKnown:  true,
		},
		{
			name:           "unknown status fails closed",
			providerStatus: "quantum_entangled",
			expectedStatus: models.BotStatusFailed,
			expectedKnown:  false,
		},
		{
			name:           "empty status fails closed",
			providerStatus: "",
			expectedStatus: models.BotStatusFailed,
			expectedKnown:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, known := MapBotStatus(tt.providerStatus)
			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, tt.expectedKnown, known)
		})
	}
}

func TestMapEventName(t *testing.T) {
	tests := []struct {
		name           string
		eventName      string
		expectedStatus models.BotStatus
		expectedKnown  bool
	}{
		{
			name:           "bot prefix is stripped",
			eventName:      "bot.joining_call",
			expectedStatus: models.BotStatusJoining,
			expectedKnown:  true,
		},
		{
			name:           "call_ended event maps to leaving",
			eventName:      "bot.call_ended",
			expectedStatus: models.BotStatusLeaving,
			expectedKnown:  true,
		},
		{
			name:           "done event maps to completed",
			eventName:      "bot.done",
			expectedStatus: models.BotStatusCompleted,
			expectedKnown:  true,
		},
		{
			name:           "unprefixed name also resolves",
			eventName:      "in_call_recording",
			expectedStatus: models.BotStatusActive,
			expectedKnown:  true,
		},
		{
			name:           "unknown event fails closed",
			eventName:      "bot.started_breakdancing",
			expectedStatus: models.BotStatusFailed,
			expectedKnown:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, known := MapEventName(tt.eventName)
			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, tt.expectedKnown, known)
		})
	}
}
