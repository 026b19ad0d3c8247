// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(secret string, body []byte, timestamp string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(fmt.Sprintf("v0:%s:%s", timestamp, string(body))))
	return "v0=" + hex.EncodeToString(h.Sum(nil))
}

func TestSignatureValidator_ValidRequest(t *testing.T) {
	validator := NewSignatureValidator("test-secret")
	body := []byte(`{"event":"bot.status_change"}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	signature := signBody("test-secret", body, timestamp)
	require.NoError(t, validator.ValidateSignature(body, signature, timestamp))
}

func TestSignatureValidator_InvalidSignature(t *testing.T) {
	validator := NewSignatureValidator("test-secret")
	body := []byte(`{"event":"bot.status_change"}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	signature := signBody("wrong-secret", body, timestamp)
	err := validator.ValidateSignature(body, signature, timestamp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid webhook signature")
}

func TestSignatureValidator_StaleTimestamp(t *testing.T) {
	validator := NewSignatureValidator("test-secret")
	body := []byte(`{}`)
	timestamp := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)

	signature := signBody("test-secret", body, timestamp)
	err := validator.ValidateSignature(body, signature, timestamp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp too old")
}

func TestSignatureValidator_MissingHeaders(t *testing.T) {
	validator := NewSignatureValidator("test-secret")
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	require.Error(t, validator.ValidateSignature([]byte(`{}`), "", timestamp))
	require.Error(t, validator.ValidateSignature([]byte(`{}`), "v0=abc", ""))
}

func TestSignatureValidator_DisabledWithoutSecret(t *testing.T) {
	validator := NewSignatureValidator("")
	assert.False(t, validator.Enabled())

	// No secret configured: everything passes.
	require.NoError(t, validator.ValidateSignature([]byte(`{}`), "", ""))
}
