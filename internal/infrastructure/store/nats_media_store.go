// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/logging"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsMediaStore stores recorded media blobs in a NATS Object Store.
// Object keys are "<organizationID>/<recordingUID>" so media stays scoped to
// the owning organization.
type NatsMediaStore struct {
	objectStore INatsObjectStore
}

// NewNatsMediaStore creates a new object store backed media store.
func NewNatsMediaStore(objectStore INatsObjectStore) *NatsMediaStore {
	return &NatsMediaStore{
		objectStore: objectStore,
	}
}

// IsReady checks if the media store is ready for use.
func (s *NatsMediaStore) IsReady() bool {
	return s.objectStore != nil
}

// Put stores a media blob under the given object key.
func (s *NatsMediaStore) Put(ctx context.Context, objectKey string, data []byte) error {
	if objectKey == "" {
		return domain.NewValidationError("object key is required")
	}
	if len(data) == 0 {
		return domain.NewValidationError("media data is required")
	}
	if !s.IsReady() {
		return domain.NewUnavailableError("media store is not available")
	}

	objectMeta := jetstream.ObjectMeta{
		Name:        objectKey,
		Description: fmt.Sprintf("Recorded media for %s", objectKey),
	}

	_, err := s.objectStore.Put(ctx, objectMeta, bytes.NewReader(data))
	if err != nil {
		slog.ErrorContext(ctx, "error putting media to Object Store",
			logging.ErrKey, err,
			"object_key", objectKey,
			"size_bytes", len(data))
		return domain.NewInternalError("failed to store recorded media", err)
	}

	return nil
}

// Get retrieves a media blob by object key.
func (s *NatsMediaStore) Get(ctx context.Context, objectKey string) ([]byte, error) {
	if objectKey == "" {
		return nil, domain.NewValidationError("object key is required")
	}
	if !s.IsReady() {
		return nil, domain.NewUnavailableError("media store is not available")
	}

	result, err := s.objectStore.Get(ctx, objectKey)
	if err != nil {
		slog.ErrorContext(ctx, "error getting media from Object Store",
			logging.ErrKey, err,
			"object_key", objectKey)
		return nil, domain.NewNotFoundError(fmt.Sprintf("media object not found: %s", objectKey))
	}
	defer func() {
		if closeErr := result.Close(); closeErr != nil {
			slog.ErrorContext(ctx, "error closing object result",
				logging.ErrKey, closeErr,
				"object_key", objectKey)
		}
	}()

	data, err := io.ReadAll(result)
	if err != nil {
		slog.ErrorContext(ctx, "error reading media data",
			logging.ErrKey, err,
			"object_key", objectKey)
		return nil, domain.NewInternalError("failed to read media object")
	}

	return data, nil
}
