// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package recall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/meetloop/bot-session-service/internal/domain"
)

// Ensure that Client implements domain.BotProvider
var _ domain.BotProvider = (*Client)(nil)

// createBotPayload is the wire request for dispatching a bot.
type createBotPayload struct {
	MeetingURL     string            `json:"meeting_url"`
	BotName        string            `json:"bot_name,omitempty"`
	WebhookURL     string            `json:"webhook_url,omitempty"`
	JoinAt         *time.Time        `json:"join_at,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Chat           *chatConfig       `json:"chat,omitempty"`
	AutomaticLeave *automaticLeave   `json:"automatic_leave,omitempty"`
}

type chatConfig struct {
	OnBotJoin *chatMessageConfig `json:"on_bot_join,omitempty"`
}

type chatMessageConfig struct {
	SendTo  string `json:"send_to"`
	Message string `json:"message"`
}

type automaticLeave struct {
	InCallNotRecordingTimeout int `json:"in_call_not_recording_timeout,omitempty"`
}

// botPayload is the wire representation of a bot job.
type botPayload struct {
	ID            string `json:"id"`
	StatusChanges []struct {
		Code      string `json:"code"`
		SubCode   string `json:"sub_code"`
		Message   string `json:"message"`
		CreatedAt string `json:"created_at"`
	} `json:"status_changes"`
	Recordings []struct {
		ID          string `json:"id"`
		DownloadURL string `json:"download_url"`
	} `json:"recordings"`
}

func (p *botPayload) toDetails() *domain.BotDetails {
	details := &domain.BotDetails{
		ID: p.ID,
	}
	// The provider reports an append-only status history; the last entry is
	// the current state.
	if len(p.StatusChanges) > 0 {
		latest := p.StatusChanges[len(p.StatusChanges)-1]
		details.Status = latest.Code
		details.SubCode = latest.SubCode
		details.Message = latest.Message
	}
	for _, rec := range p.Recordings {
		details.Recordings = append(details.Recordings, domain.BotRecording{
			ID:          rec.ID,
			DownloadURL: rec.DownloadURL,
		})
	}
	return details
}

// CreateBot dispatches a bot to a meeting.
func (c *Client) CreateBot(ctx context.Context, request *domain.CreateBotRequest) (*domain.BotDetails, error) {
	if request == nil {
		return nil, domain.NewValidationError("create bot request cannot be nil")
	}
	if request.MeetingURL == "" {
		return nil, domain.NewValidationError("meeting URL is required")
	}

	payload := createBotPayload{
		MeetingURL: request.MeetingURL,
		BotName:    request.DisplayName,
		WebhookURL: request.WebhookURL,
		JoinAt:     request.JoinAt,
	}
	metadata := map[string]string{}
	if request.Metadata.OrganizationID != "" {
		metadata["organization_id"] = request.Metadata.OrganizationID
	}
	if request.Metadata.ProjectID != "" {
		metadata["project_id"] = request.Metadata.ProjectID
	}
	if request.Metadata.UserID != "" {
		metadata["user_id"] = request.Metadata.UserID
	}
	if len(metadata) > 0 {
		payload.Metadata = metadata
	}
	if request.JoinMessage != "" {
		payload.Chat = &chatConfig{
			OnBotJoin: &chatMessageConfig{
				SendTo:  "everyone",
				Message: request.JoinMessage,
			},
		}
	}
	if request.InactivityTimeoutSeconds > 0 {
		payload.AutomaticLeave = &automaticLeave{
			InCallNotRecordingTimeout: request.InactivityTimeoutSeconds,
		}
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, "/bot", payload)
	if err != nil {
		return nil, domain.NewUnavailableError("failed to dispatch bot", err)
	}
	if status >= http.StatusBadRequest {
		return nil, domain.NewInternalError("bot dispatch rejected", parseErrorResponse(status, body))
	}

	var bot botPayload
	if err := json.Unmarshal(body, &bot); err != nil {
		return nil, domain.NewInternalError("failed to parse bot response", err)
	}

	return bot.toDetails(), nil
}

// GetBot returns the provider's current view of a bot job.
func (c *Client) GetBot(ctx context.Context, botID string) (*domain.BotDetails, error) {
	if botID == "" {
		return nil, domain.NewValidationError("bot ID is required")
	}

	status, body, err := c.doRequest(ctx, http.MethodGet, "/bot/"+botID, nil)
	if err != nil {
		return nil, domain.NewUnavailableError("failed to fetch bot", err)
	}
	if status == http.StatusNotFound {
		return nil, domain.NewNotFoundError(fmt.Sprintf("bot '%s' not found", botID))
	}
	if status >= http.StatusBadRequest {
		return nil, domain.NewInternalError("bot fetch rejected", parseErrorResponse(status, body))
	}

	var bot botPayload
	if err := json.Unmarshal(body, &bot); err != nil {
		return nil, domain.NewInternalError("failed to parse bot response", err)
	}

	return bot.toDetails(), nil
}

// GetDownloadURL resolves the media download URL for a bot's recording.
// Right after a "done" notification the provider may not have finalized the
// media yet, in which case the URL is still empty and the caller retries.
func (c *Client) GetDownloadURL(ctx context.Context, botID, recordingID string) (*domain.DownloadTarget, error) {
	if botID == "" {
		return nil, domain.NewValidationError("bot ID is required")
	}

	bot, err := c.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}

	for _, rec := range bot.Recordings {
		if recordingID != "" && rec.ID != recordingID {
			continue
		}
		if rec.DownloadURL == "" {
			continue
		}
		return &domain.DownloadTarget{URL: rec.DownloadURL}, nil
	}

	return nil, domain.NewNotFoundError(
		fmt.Sprintf("no download URL available yet for bot '%s' recording '%s'", botID, recordingID))
}

// LeaveCall asks the bot to gracefully leave the call.
func (c *Client) LeaveCall(ctx context.Context, botID string) error {
	if botID == "" {
		return domain.NewValidationError("bot ID is required")
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, "/bot/"+botID+"/leave_call", nil)
	if err != nil {
		return domain.NewUnavailableError("failed to request bot leave", err)
	}
	if status == http.StatusNotFound {
		return domain.NewNotFoundError(fmt.Sprintf("bot '%s' not found", botID))
	}
	if status >= http.StatusBadRequest {
		return domain.NewInternalError("bot leave rejected", parseErrorResponse(status, body))
	}

	return nil
}

// DeleteBot terminates the bot job on the provider side.
func (c *Client) DeleteBot(ctx context.Context, botID string) error {
	if botID == "" {
		return domain.NewValidationError("bot ID is required")
	}

	status, body, err := c.doRequest(ctx, http.MethodDelete, "/bot/"+botID, nil)
	if err != nil {
		return domain.NewUnavailableError("failed to delete bot", err)
	}
	if status == http.StatusNotFound {
		return domain.NewNotFoundError(fmt.Sprintf("bot '%s' not found", botID))
	}
	if status >= http.StatusBadRequest {
		return domain.NewInternalError("bot delete rejected", parseErrorResponse(status, body))
	}

	return nil
}
