// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package service

import "time"

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// BotDisplayName is the name the bot joins meetings under.
	BotDisplayName string
	// BotJoinMessage is posted to meeting chat when the bot joins.
	BotJoinMessage string
	// WebhookURL is the publicly reachable webhook endpoint registered with
	// the provider on bot creation.
	WebhookURL string
	// InactivityTimeoutSeconds is how long the bot waits alone in a call
	// before giving up.
	InactivityTimeoutSeconds int

	// PollRecencyWindow bounds how far back the polling reconciler scans for
	// non-terminal sessions. Sessions older than this are assumed abandoned
	// by the polling path and left to other cleanup.
	PollRecencyWindow time.Duration
	// PollPageLimit bounds how many sessions are polled per organization per
	// cycle.
	PollPageLimit int

	// MaxRetryCount is the ceiling for failed-session re-submission.
	MaxRetryCount int
	// RetryAgeWindow bounds how old a failed session may be and still be
	// eligible for retry.
	RetryAgeWindow time.Duration

	// EncryptMedia enables at-rest encryption of ingested media. When set,
	// ingestion fails fast if no encryptor is configured; there is no
	// plaintext fallback.
	EncryptMedia bool

	// DownloadTimeout bounds a single media download attempt.
	DownloadTimeout time.Duration
	// DownloadURLRetries is how many times ingestion re-asks the provider for
	// a download URL that is not yet available.
	DownloadURLRetries int
	// DownloadURLRetryDelay is the base delay between download URL attempts;
	// each attempt waits one multiple longer than the previous.
	DownloadURLRetryDelay time.Duration
}

// DefaultServiceConfig returns the documented defaults for reconciliation
// tuning. Callers override individual fields from the environment.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		BotDisplayName:           "Meetloop Notetaker",
		InactivityTimeoutSeconds: 300,
		PollRecencyWindow:        4 * time.Hour,
		PollPageLimit:            50,
		MaxRetryCount:            3,
		RetryAgeWindow:           24 * time.Hour,
		DownloadTimeout:          2 * time.Minute,
		DownloadURLRetries:       3,
		DownloadURLRetryDelay:    2 * time.Second,
	}
}
