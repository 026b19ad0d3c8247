// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package recall

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/logging"
)

// MediaDownloader fetches recorded media from provider-signed URLs. Download
// URLs are pre-authenticated, so no API token is attached. Callers bound the
// download with a context deadline.
type MediaDownloader struct {
	httpClient *http.Client
}

// Ensure that MediaDownloader implements domain.MediaDownloader
var _ domain.MediaDownloader = (*MediaDownloader)(nil)

// NewMediaDownloader creates a new media downloader.
func NewMediaDownloader() *MediaDownloader {
	return &MediaDownloader{
		// No client-level timeout; the per-download deadline comes from ctx.
		httpClient: &http.Client{},
	}
}

// Download fetches the media at the given URL.
func (d *MediaDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, domain.NewValidationError("download URL is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewInternalError("failed to create download request", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewUnavailableError("media download failed", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.WarnContext(ctx, "error closing download response body", logging.ErrKey, closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewUnavailableError(
			fmt.Sprintf("media download returned status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewUnavailableError("failed to read media body", err)
	}
	if len(data) == 0 {
		return nil, domain.NewUnavailableError("media download returned empty body")
	}

	return data, nil
}
