// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package service

import (
	"strings"

	"github.com/meetloop/bot-session-service/internal/domain/models"
)

// botStatusTable maps provider status strings onto the internal status set.
// The strings are provider-defined; this table enumerates every status the
// provider documents for bot jobs.
var botStatusTable = map[string]models.BotStatus{
	// Pre-call
	"ready":     models.BotStatusScheduled,
	"scheduled": models.BotStatusScheduled,

	// Joining
	"joining":         models.BotStatusJoining,
	"joining_call":    models.BotStatusJoining,
	"in_waiting_room": models.BotStatusJoining,

	// Consent gate
	"pending":                     models.BotStatusPendingConsent,
	"pending_consent":             models.BotStatusPendingConsent,
	"recording_permission_allowed": models.BotStatusActive,
	"recording_permission_denied": models.BotStatusPendingConsent,

	// In call
	"active":               models.BotStatusActive,
	"in_call_recording":    models.BotStatusActive,
	"in_call_not_recording": models.BotStatusJoining,

	// Leaving
	"leaving":      models.BotStatusLeaving,
	"leaving_call": models.BotStatusLeaving,

	// Terminal
	"done":       models.BotStatusCompleted,
	"call_ended": models.BotStatusCompleted,
	"completed":  models.BotStatusCompleted,
	"failed":     models.BotStatusFailed,
	"rejected":   models.BotStatusFailed,
	"error":      models.BotStatusFailed,
	"fatal":      models.BotStatusFailed,
	"timeout":    models.BotStatusFailed,
}

// eventNameTable maps discrete lifecycle event names (the enveloped wire shape
// can carry the status in the event name rather than a status string) onto the
// internal status set. Keys are matched after stripping the "bot." prefix.
var eventNameTable = map[string]models.BotStatus{
	"ready":                 models.BotStatusScheduled,
	"joining_call":          models.BotStatusJoining,
	"in_waiting_room":       models.BotStatusJoining,
	"in_call_not_recording": models.BotStatusJoining,
	"recording_permission_denied": models.BotStatusPendingConsent,
	"in_call_recording":     models.BotStatusActive,
	"call_ended":            models.BotStatusLeaving,
	"done":                  models.BotStatusCompleted,
	"fatal":                 models.BotStatusFailed,
}

// MapBotStatus translates a provider status string into the internal status
// set. The function is pure and total: unknown strings map to failed
// (fail-closed). Callers log unknown strings with the unknown_status attribute
// so a new provider status shows up in operator alerting instead of silently
// counting as failures.
func MapBotStatus(providerStatus string) (models.BotStatus, bool) {
	status, ok := botStatusTable[strings.ToLower(strings.TrimSpace(providerStatus))]
	if !ok {
		return models.BotStatusFailed, false
	}
	return status, true
}

// MapEventName translates a discrete lifecycle event name ("bot.call_ended")
// into the internal status set, with the same fail-closed default as
// MapBotStatus.
func MapEventName(eventName string) (models.BotStatus, bool) {
	name := strings.ToLower(strings.TrimSpace(eventName))
	name = strings.TrimPrefix(name, "bot.")
	status, ok := eventNameTable[name]
	if !ok {
		return models.BotStatusFailed, false
	}
	return status, true
}
