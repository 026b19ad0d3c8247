// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package models

import "time"

// NATS subjects produced by this service.
const (
	// SubmitInsightsWorkflowSubject is the subject the downstream insights
	// pipeline consumes recording submissions from.
	SubmitInsightsWorkflowSubject = "meetloop.insights.workflow.submit"

	// SessionNotificationSubject is the subject for best-effort user-facing
	// session notifications.
	SessionNotificationSubject = "meetloop.bot-sessions.notification"
)

// WorkflowSubmission asks the insights pipeline to process a recording.
type WorkflowSubmission struct {
	RecordingUID   string    `json:"recording_uid"`
	BotSessionUID  string    `json:"bot_session_uid"`
	OrganizationID string    `json:"organization_id"`
	ProjectID      string    `json:"project_id"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// SessionNotificationKind classifies session notifications.
type SessionNotificationKind string

const (
	NotificationKindBotKicked       SessionNotificationKind = "bot_kicked"
	NotificationKindRecordingReady  SessionNotificationKind = "recording_ready"
	NotificationKindRecordingFailed SessionNotificationKind = "recording_failed"
)

// SessionNotification is a best-effort user-facing notification about a
// session state change.
type SessionNotification struct {
	Kind           SessionNotificationKind `json:"kind"`
	BotSessionUID  string                  `json:"bot_session_uid"`
	OrganizationID string                  `json:"organization_id"`
	UserID         string                  `json:"user_id"`
	Message        string                  `json:"message"`
	OccurredAt     time.Time               `json:"occurred_at"`
}
