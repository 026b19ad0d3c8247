// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/meetloop/bot-session-service/internal/handlers"
	"github.com/meetloop/bot-session-service/internal/logging"
	"github.com/meetloop/bot-session-service/internal/middleware"
)

const (
	serverReadTimeout     = 30 * time.Second
	serverWriteTimeout    = 3 * time.Minute
	serverShutdownTimeout = 25 * time.Second
)

// newRouter assembles the HTTP surface: the webhook endpoint, the session API
// and the health endpoints.
func newRouter(
	natsConn *nats.Conn,
	webhookHandler *handlers.BotWebhookHandler,
	sessionHandler *handlers.BotSessionHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggerMiddleware())
	r.Use(middleware.WebhookBodyCaptureMiddleware())

	r.Post("/webhooks/bot", webhookHandler.HandleBotWebhook)

	r.Post("/sessions", sessionHandler.CreateSession)
	r.Get("/sessions/retryable", sessionHandler.ListRetryableSessions)
	r.Get("/sessions/{uid}", sessionHandler.GetSession)
	r.Delete("/sessions/{uid}", sessionHandler.TerminateSession)
	r.Post("/sessions/{uid}/retry", sessionHandler.RetrySession)

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !natsConn.IsConnected() || !webhookHandler.HandlerReady() || !sessionHandler.HandlerReady() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return otelhttp.NewHandler(r, "bot-session-service")
}

// startHTTPServer runs the server until ctx is cancelled, then shuts it down
// gracefully.
func startHTTPServer(ctx context.Context, flags flags, handler http.Handler, gracefulCloseWG *sync.WaitGroup) {
	addr := ":" + flags.Port
	if flags.Bind != "*" {
		addr = flags.Bind + addr
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	gracefulCloseWG.Add(1)
	go func() {
		defer gracefulCloseWG.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down HTTP server", logging.ErrKey, err)
		}
	}()

	go func() {
		slog.Info("starting HTTP server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", logging.ErrKey, err, logging.PriorityCritical())
		}
	}()
}
