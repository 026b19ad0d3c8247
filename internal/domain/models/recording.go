// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// Recording represents ingested meeting media. The pair
// (ExternalRecordingID, OrganizationID) is the natural idempotency key for
// ingestion: if a recording with that pair already exists, a replayed
// recording-done event reuses it instead of downloading again.
type Recording struct {
	UID                 string    `json:"uid"`
	ExternalRecordingID string    `json:"external_recording_id"`
	OrganizationID      string    `json:"organization_id"`
	ProjectID           string    `json:"project_id"`
	CreatedByID         string    `json:"created_by_id"`
	BotSessionUID       string    `json:"bot_session_uid"`
	ObjectKey           string    `json:"object_key"`
	SizeBytes           int64     `json:"size_bytes"`
	DurationSeconds     float64   `json:"duration_seconds,omitempty"`
	Encrypted           bool      `json:"encrypted"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Tags generates a set of tags for the recording, used by log enrichment.
func (r *Recording) Tags() []string {
	var tags []string
	if r.UID != "" {
		tags = append(tags, r.UID)
	}
	if r.ExternalRecordingID != "" {
		tags = append(tags, r.ExternalRecordingID)
	}
	if r.OrganizationID != "" {
		tags = append(tags, r.OrganizationID)
	}
	return tags
}
