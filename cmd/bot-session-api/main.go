// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

// The bot-session-api service manages meeting bot sessions: it schedules bots
// with the provider, reconciles provider webhooks and polling results into
// session state, and ingests recorded media once a bot finishes.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/meetloop/bot-session-service/internal/domain"
	"github.com/meetloop/bot-session-service/internal/handlers"
	"github.com/meetloop/bot-session-service/internal/infrastructure/crypto"
	"github.com/meetloop/bot-session-service/internal/infrastructure/messaging"
	"github.com/meetloop/bot-session-service/internal/infrastructure/provider/recall"
	"github.com/meetloop/bot-session-service/internal/infrastructure/webhook"
	"github.com/meetloop/bot-session-service/internal/logging"
	"github.com/meetloop/bot-session-service/internal/service"
)

func main() {
	env := parseEnv()
	flags := parseFlags(env.Port)
	logging.InitStructureLogConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gracefulCloseWG := &sync.WaitGroup{}

	natsConn, err := setupNATS(ctx, env, gracefulCloseWG)
	if err != nil {
		log.Fatalf("error connecting to NATS: %v", err)
	}

	repos, err := getRepositories(ctx, natsConn)
	if err != nil {
		log.Fatalf("error setting up NATS repositories: %v", err)
	}

	providerClient := recall.NewClient(recall.Config{
		BaseURL:  env.ProviderBaseURL,
		APIToken: env.ProviderAPIToken,
	})
	downloader := recall.NewMediaDownloader()

	var encryptor domain.MediaEncryptor
	if env.EncryptMedia {
		aes, err := crypto.NewAESEncryptor(env.MediaEncryptionKey)
		if err != nil {
			log.Fatalf("error setting up media encryption: %v", err)
		}
		encryptor = aes
	}

	messageSender := messaging.NewMessageBuilder(natsConn)

	serviceConfig := service.DefaultServiceConfig()
	serviceConfig.BotDisplayName = env.BotDisplayName
	serviceConfig.BotJoinMessage = env.BotJoinMessage
	serviceConfig.WebhookURL = env.WebhookURL
	serviceConfig.InactivityTimeoutSeconds = env.InactivityTimeoutSeconds
	serviceConfig.PollRecencyWindow = env.PollRecencyWindow
	serviceConfig.PollPageLimit = env.PollPageLimit
	serviceConfig.MaxRetryCount = env.MaxRetryCount
	serviceConfig.RetryAgeWindow = env.RetryAgeWindow
	serviceConfig.EncryptMedia = env.EncryptMedia
	serviceConfig.DownloadTimeout = env.DownloadTimeout

	sessionService := service.NewBotSessionService(repos.Session, providerClient, serviceConfig)
	ingestionService := service.NewMediaIngestionService(
		repos.Recording,
		repos.Session,
		repos.MediaStore,
		downloader,
		encryptor,
		providerClient,
		messageSender,
		serviceConfig,
	)
	webhookService := service.NewBotWebhookService(
		repos.Session,
		sessionService,
		ingestionService,
		providerClient,
		messageSender,
		serviceConfig,
	)
	pollService := service.NewBotPollService(
		repos.Session,
		sessionService,
		ingestionService,
		providerClient,
		serviceConfig,
	)

	validator := webhook.NewSignatureValidator(env.WebhookSecret)
	webhookHandler := handlers.NewBotWebhookHandler(webhookService, validator)
	sessionHandler := handlers.NewBotSessionHandler(sessionService)

	router := newRouter(natsConn, webhookHandler, sessionHandler)
	startHTTPServer(ctx, flags, router, gracefulCloseWG)

	startPoller(ctx, pollService, env.PollInterval, gracefulCloseWG)

	// Block until a termination signal, then cancel the context so the HTTP
	// server, the poller and the NATS connection drain before exit.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.InfoContext(ctx, "shutting down")
	cancel()
	gracefulCloseWG.Wait()
	slog.Info("shutdown complete")
}

// startPoller reconciles active sessions against the provider on a fixed
// interval. It is the fallback path for webhook deliveries that never arrive.
func startPoller(ctx context.Context, pollService *service.BotPollService, interval time.Duration, gracefulCloseWG *sync.WaitGroup) {
	gracefulCloseWG.Add(1)
	go func() {
		defer gracefulCloseWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := pollService.PollActiveSessions(ctx)
				if err != nil {
					slog.ErrorContext(ctx, "polling pass failed", logging.ErrKey, err)
					continue
				}
				if result.Updated > 0 {
					slog.InfoContext(ctx, "polling pass applied updates",
						"sessions_polled", result.Polled,
						"sessions_updated", result.Updated,
					)
				}
			}
		}
	}()
}
