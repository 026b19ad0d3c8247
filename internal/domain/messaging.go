// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/meetloop/bot-session-service/internal/domain/models"
)

// WorkflowTrigger submits an ingested recording to the downstream insights
// pipeline. Submission is fire-and-forget: failures are logged by the caller,
// never retried here; the pipeline owns its own retry semantics.
type WorkflowTrigger interface {
	SendSubmitInsightsWorkflow(ctx context.Context, submission models.WorkflowSubmission) error
}

// NotificationSender delivers best-effort session notifications (e.g. a bot
// being kicked from a call). Failures never propagate to the caller's outcome.
type NotificationSender interface {
	SendSessionNotification(ctx context.Context, notification models.SessionNotification) error
}

// MessageSender is the full outbound messaging surface of the service.
type MessageSender interface {
	WorkflowTrigger
	NotificationSender
}
