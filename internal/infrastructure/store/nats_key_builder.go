// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Common key prefixes
const (
	// Entity prefixes
	KeyPrefixSession   = "session"
	KeyPrefixRecording = "recording"

	// Index prefixes
	KeyPrefixIndex         = "index"
	KeyPrefixIndexBot      = "bot"
	KeyPrefixIndexCalendar = "calendar"
	KeyPrefixIndexExternal = "external"
)

// KeyBuilder provides utilities for building consistent NATS KV keys.
// Index segments that may carry characters outside the NATS key alphabet
// (calendar event ids, external recording ids) are base64-encoded.
type KeyBuilder struct{}

// NewKeyBuilder creates a new key builder.
func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{}
}

// EntityKey builds a key for an entity (e.g. "session/uid-123").
func (kb *KeyBuilder) EntityKey(entityType, uid string) string {
	return fmt.Sprintf("%s/%s", entityType, uid)
}

// IndexKey builds a key for an index (e.g. "index/bot/<bot-id>"). Each
// segment is sanitized for the NATS key alphabet.
func (kb *KeyBuilder) IndexKey(indexType string, segments ...string) string {
	parts := []string{KeyPrefixIndex, indexType}
	for _, segment := range segments {
		parts = append(parts, kb.EncodeSegment(segment))
	}
	return strings.Join(parts, "/")
}

// EncodeSegment makes an arbitrary string safe for use as one NATS KV key
// segment. Strings already inside the safe alphabet pass through unchanged so
// keys stay readable for typical ids.
func (kb *KeyBuilder) EncodeSegment(segment string) string {
	if isSafeKeySegment(segment) {
		return segment
	}
	return "b64_" + base64.RawURLEncoding.EncodeToString([]byte(segment))
}

// DecodeSegment reverses EncodeSegment.
func (kb *KeyBuilder) DecodeSegment(segment string) (string, error) {
	encoded, found := strings.CutPrefix(segment, "b64_")
	if !found {
		return segment, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding key segment: %w", err)
	}
	return string(decoded), nil
}

func isSafeKeySegment(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '=' || r == '.':
		default:
			return false
		}
	}
	return true
}
