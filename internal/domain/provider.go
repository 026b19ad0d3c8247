// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/meetloop/bot-session-service/internal/domain/models"
)

// CreateBotRequest is the provider-agnostic request to dispatch a meeting bot.
// Metadata is attached to the provider job so that webhook events can be
// scoped without a database round-trip.
type CreateBotRequest struct {
	MeetingURL               string
	WebhookURL               string
	DisplayName              string
	JoinMessage              string
	InactivityTimeoutSeconds int
	JoinAt                   *time.Time
	Metadata                 models.EventMetadata
}

// BotRecording is a recording the provider reports for a bot job.
type BotRecording struct {
	ID          string
	DownloadURL string
}

// BotDetails is the provider's view of a bot job.
type BotDetails struct {
	ID         string
	Status     string
	SubCode    string
	Message    string
	Recordings []BotRecording
}

// DownloadTarget is a resolved media download location.
type DownloadTarget struct {
	URL             string
	DurationSeconds float64
}

// BotProvider defines the capability set this service needs from a meeting
// bot provider. The reconciliation logic depends only on this interface, so
// additional providers can be added without touching it.
type BotProvider interface {
	// CreateBot dispatches a bot to a meeting and returns the provider job.
	CreateBot(ctx context.Context, request *CreateBotRequest) (*BotDetails, error)

	// GetBot returns the provider's current view of a bot job.
	GetBot(ctx context.Context, botID string) (*BotDetails, error)

	// GetDownloadURL resolves the media download URL for a bot's recording.
	// The URL may lag the "done" notification; callers retry with backoff.
	GetDownloadURL(ctx context.Context, botID, recordingID string) (*DownloadTarget, error)

	// LeaveCall asks the bot to gracefully leave the call.
	LeaveCall(ctx context.Context, botID string) error

	// DeleteBot terminates the bot job on the provider side.
	DeleteBot(ctx context.Context, botID string) error
}
