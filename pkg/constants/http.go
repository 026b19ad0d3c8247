// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

// Package constants holds shared header and context key constants.
package constants

// Constants for the HTTP request headers
const (
	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"

	// WebhookSignatureHeader carries the HMAC signature of the webhook body
	WebhookSignatureHeader string = "X-Webhook-Signature"

	// WebhookTimestampHeader carries the timestamp the signature covers
	WebhookTimestampHeader string = "X-Webhook-Timestamp"
)

// contextRequestID is the type for the request ID context key
type contextRequestID string

// RequestIDContextID is the context ID for the request ID
const RequestIDContextID contextRequestID = "X-REQUEST-ID"
