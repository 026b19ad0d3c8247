// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WebhookEventType discriminates the normalized webhook event union.
type WebhookEventType string

const (
	WebhookEventStatusChange     WebhookEventType = "status_change"
	WebhookEventChatMessage      WebhookEventType = "chat_message"
	WebhookEventRecordingDone    WebhookEventType = "recording_done"
	WebhookEventRecordingFailed  WebhookEventType = "recording_failed"
	WebhookEventRecordingDeleted WebhookEventType = "recording_deleted"
	WebhookEventParticipantJoin  WebhookEventType = "participant_join"
	WebhookEventParticipantLeave WebhookEventType = "participant_leave"
)

// EventMetadata is the tenant scoping attached to a provider bot at creation
// time and echoed back on every webhook event. Any of the fields may be
// missing on the wire; the normalizer fills gaps from the stored session.
type EventMetadata struct {
	ProjectID      string `json:"project_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// Complete reports whether all scoping fields are present.
func (m EventMetadata) Complete() bool {
	return m.ProjectID != "" && m.OrganizationID != "" && m.UserID != ""
}

// WebhookEvent is the normalized representation of an inbound webhook,
// regardless of which wire shape carried it. It is constructed per request,
// consumed synchronously, and discarded.
type WebhookEvent struct {
	Type          WebhookEventType
	ProviderBotID string

	// Status change fields.
	RawStatus     string
	SubCode       string
	StatusMessage string
	EventName     string

	// Recording fields.
	ExternalRecordingID string
	DownloadURL         string

	// Chat message fields.
	ChatText   string
	SenderName string

	// Participant fields.
	ParticipantName string

	Metadata EventMetadata
}

// envelopedWebhookPayload is the newer wire shape: a typed event name with a
// structured data object.
type envelopedWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Bot struct {
			ID       string        `json:"id"`
			Metadata EventMetadata `json:"metadata"`
		} `json:"bot"`
		Status struct {
			Code      string `json:"code"`
			SubCode   string `json:"sub_code,omitempty"`
			Message   string `json:"message,omitempty"`
			CreatedAt string `json:"created_at,omitempty"`
		} `json:"status"`
		Recording struct {
			ID          string `json:"id"`
			DownloadURL string `json:"download_url,omitempty"`
		} `json:"recording"`
		Message struct {
			Text   string `json:"text"`
			Sender struct {
				Name string `json:"name"`
			} `json:"sender"`
		} `json:"message"`
		Participant struct {
			Name string `json:"name"`
		} `json:"participant"`
	} `json:"data"`
}

// flatWebhookPayload is the older wire shape: a single flat object with a
// status string and optional recording and chat fields.
type flatWebhookPayload struct {
	BotID          string        `json:"bot_id"`
	Status         string        `json:"status"`
	SubCode        string        `json:"sub_code,omitempty"`
	StatusMessage  string        `json:"status_message,omitempty"`
	RecordingID    string        `json:"recording_id,omitempty"`
	DownloadURL    string        `json:"download_url,omitempty"`
	MessageText    string        `json:"message_text,omitempty"`
	SenderName     string        `json:"sender_name,omitempty"`
	ProjectID      string        `json:"project_id,omitempty"`
	OrganizationID string        `json:"organization_id,omitempty"`
	UserID         string        `json:"user_id,omitempty"`
	Metadata       EventMetadata `json:"metadata"`
}

// DecodeWebhookEvent parses an inbound webhook body in either supported wire
// shape into the normalized event. The enveloped shape is detected by its
// top-level "event" field; everything else is treated as the legacy flat
// shape. Malformed bodies return an error; the caller maps it to a validation
// failure without mutating any state.
func DecodeWebhookEvent(body []byte) (*WebhookEvent, error) {
	var probe struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("malformed webhook body: %w", err)
	}

	if probe.Event != "" {
		return decodeEnvelopedEvent(body)
	}
	return decodeFlatEvent(body)
}

func decodeEnvelopedEvent(body []byte) (*WebhookEvent, error) {
	var payload envelopedWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed enveloped webhook body: %w", err)
	}

	if payload.Data.Bot.ID == "" {
		return nil, fmt.Errorf("enveloped webhook event %q missing bot id", payload.Event)
	}

	event := &WebhookEvent{
		ProviderBotID:       payload.Data.Bot.ID,
		EventName:           payload.Event,
		Metadata:            payload.Data.Bot.Metadata,
		ExternalRecordingID: payload.Data.Recording.ID,
		DownloadURL:         payload.Data.Recording.DownloadURL,
	}

	switch {
	case payload.Event == "bot.status_change":
		if payload.Data.Status.Code == "" {
			return nil, fmt.Errorf("status change event missing status code")
		}
		event.Type = WebhookEventStatusChange
		event.RawStatus = payload.Data.Status.Code
		event.SubCode = payload.Data.Status.SubCode
		event.StatusMessage = payload.Data.Status.Message
	case payload.Event == "bot.chat_message":
		if payload.Data.Message.Text == "" {
			return nil, fmt.Errorf("chat message event missing text")
		}
		event.Type = WebhookEventChatMessage
		event.ChatText = payload.Data.Message.Text
		event.SenderName = payload.Data.Message.Sender.Name
	case payload.Event == "bot.participant_join":
		event.Type = WebhookEventParticipantJoin
		event.ParticipantName = payload.Data.Participant.Name
	case payload.Event == "bot.participant_leave":
		event.Type = WebhookEventParticipantLeave
		event.ParticipantName = payload.Data.Participant.Name
	case payload.Event == "recording.done":
		if payload.Data.Recording.ID == "" {
			return nil, fmt.Errorf("recording done event missing recording id")
		}
		event.Type = WebhookEventRecordingDone
	case payload.Event == "recording.failed":
		event.Type = WebhookEventRecordingFailed
		event.SubCode = payload.Data.Status.SubCode
		event.StatusMessage = payload.Data.Status.Message
	case payload.Event == "recording.deleted":
		event.Type = WebhookEventRecordingDeleted
	case strings.HasPrefix(payload.Event, "bot."):
		// Discrete lifecycle events ("bot.joining_call", "bot.call_ended", ...)
		// carry the status in the event name itself.
		event.Type = WebhookEventStatusChange
		event.SubCode = payload.Data.Status.SubCode
		event.StatusMessage = payload.Data.Status.Message
	default:
		return nil, fmt.Errorf("unsupported webhook event %q", payload.Event)
	}

	return event, nil
}

func decodeFlatEvent(body []byte) (*WebhookEvent, error) {
	var payload flatWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed flat webhook body: %w", err)
	}

	if payload.BotID == "" {
		return nil, fmt.Errorf("flat webhook body missing bot_id")
	}

	metadata := payload.Metadata
	// The legacy shape also allowed scoping fields at the top level.
	if metadata.ProjectID == "" {
		metadata.ProjectID = payload.ProjectID
	}
	if metadata.OrganizationID == "" {
		metadata.OrganizationID = payload.OrganizationID
	}
	if metadata.UserID == "" {
		metadata.UserID = payload.UserID
	}

	event := &WebhookEvent{
		ProviderBotID:       payload.BotID,
		Metadata:            metadata,
		ExternalRecordingID: payload.RecordingID,
		DownloadURL:         payload.DownloadURL,
	}

	switch {
	case payload.MessageText != "":
		event.Type = WebhookEventChatMessage
		event.ChatText = payload.MessageText
		event.SenderName = payload.SenderName
	case payload.RecordingID != "" && payload.Status != "failed":
		event.Type = WebhookEventRecordingDone
	case payload.Status != "":
		event.Type = WebhookEventStatusChange
		event.RawStatus = payload.Status
		event.SubCode = payload.SubCode
		event.StatusMessage = payload.StatusMessage
	default:
		return nil, fmt.Errorf("flat webhook body carries neither status nor recording nor message")
	}

	return event, nil
}
