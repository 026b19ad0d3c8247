// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package models

import "time"

// CreateSessionRequest asks for a bot to be dispatched to a meeting.
// CalendarEventID, when set, deduplicates auto-scheduled sessions: a second
// request for the same calendar event returns the existing session.
type CreateSessionRequest struct {
	OrganizationID  string     `json:"organization_id"`
	UserID          string     `json:"user_id"`
	ProjectID       string     `json:"project_id"`
	MeetingURL      string     `json:"meeting_url"`
	CalendarEventID string     `json:"calendar_event_id,omitempty"`
	JoinAt          *time.Time `json:"join_at,omitempty"`
}
