// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/meetloop/bot-session-service/internal/logging"
	"github.com/meetloop/bot-session-service/pkg/constants"
)

// RequestIDMiddleware attaches a request ID to the context and response.
// An inbound X-REQUEST-ID header is honored so callers can correlate requests;
// otherwise a new ID is generated.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(constants.RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), constants.RequestIDContextID, requestID)
			ctx = logging.AppendCtx(ctx, slog.String("request_id", requestID))

			w.Header().Set(constants.RequestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
