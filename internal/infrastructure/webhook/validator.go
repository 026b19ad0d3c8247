// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

// Package webhook validates inbound provider webhook requests.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// maxTimestampAge bounds how old a signed webhook request may be.
const maxTimestampAge = 5 * time.Minute

// SignatureValidator validates provider webhook signatures.
// With an empty secret, validation is disabled and all requests pass; the
// service then relies on the bot ID resolution to reject unknown senders.
type SignatureValidator struct {
	secretToken string
}

// NewSignatureValidator creates a new webhook signature validator.
func NewSignatureValidator(secretToken string) *SignatureValidator {
	return &SignatureValidator{
		secretToken: secretToken,
	}
}

// Enabled reports whether signature validation is configured.
func (v *SignatureValidator) Enabled() bool {
	return v.secretToken != ""
}

// ValidateSignature validates a webhook request signature of the form
// "v0=<hex hmac-sha256 of 'v0:timestamp:body'>".
func (v *SignatureValidator) ValidateSignature(body []byte, signature, timestamp string) error {
	if !v.Enabled() {
		return nil
	}

	if signature == "" {
		return fmt.Errorf("missing webhook signature")
	}
	if timestamp == "" {
		return fmt.Errorf("missing webhook timestamp")
	}

	// Replay protection
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp format: %w", err)
	}
	if time.Now().Unix()-ts > int64(maxTimestampAge.Seconds()) {
		return fmt.Errorf("request timestamp too old")
	}

	message := fmt.Sprintf("v0:%s:%s", timestamp, string(body))

	h := hmac.New(sha256.New, []byte(v.secretToken))
	h.Write([]byte(message))
	expectedSignature := hex.EncodeToString(h.Sum(nil))

	providedSignature := strings.TrimPrefix(signature, "v0=")

	if !hmac.Equal([]byte(providedSignature), []byte(expectedSignature)) {
		return fmt.Errorf("invalid webhook signature")
	}

	return nil
}
