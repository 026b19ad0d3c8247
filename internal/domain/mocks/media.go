// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockMediaStore implements MediaStore for testing
type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) Put(ctx context.Context, objectKey string, data []byte) error {
	args := m.Called(ctx, objectKey, data)
	return args.Error(0)
}

func (m *MockMediaStore) Get(ctx context.Context, objectKey string) ([]byte, error) {
	args := m.Called(ctx, objectKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockMediaDownloader implements MediaDownloader for testing
type MockMediaDownloader struct {
	mock.Mock
}

func (m *MockMediaDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockMediaEncryptor implements MediaEncryptor for testing
type MockMediaEncryptor struct {
	mock.Mock
}

func (m *MockMediaEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	args := m.Called(plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockMediaEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	args := m.Called(ciphertext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
