// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

// Package crypto provides at-rest encryption for recorded media.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/meetloop/bot-session-service/internal/domain"
)

// AESEncryptor encrypts media blobs with AES-256-GCM. The random nonce is
// prepended to the ciphertext.
type AESEncryptor struct {
	aead cipher.AEAD
}

// Ensure that AESEncryptor implements domain.MediaEncryptor
var _ domain.MediaEncryptor = (*AESEncryptor)(nil)

// NewAESEncryptor creates an encryptor from a hex-encoded 32-byte key.
func NewAESEncryptor(hexKey string) (*AESEncryptor, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, domain.NewConfigurationError("media encryption key is not valid hex", err)
	}
	if len(key) != 32 {
		return nil, domain.NewConfigurationError("media encryption key must be 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, domain.NewConfigurationError("failed to initialize media cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, domain.NewConfigurationError("failed to initialize media cipher mode", err)
	}

	return &AESEncryptor{aead: aead}, nil
}

// Encrypt seals the plaintext with a fresh random nonce.
func (e *AESEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, domain.NewInternalError("failed to generate encryption nonce", err)
	}

	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt.
func (e *AESEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, domain.NewValidationError("ciphertext is too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, domain.NewInternalError("failed to decrypt media", err)
	}

	return plaintext, nil
}
