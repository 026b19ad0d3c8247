// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/meetloop/bot-session-service/internal/logging"
)

// flags are the command line flags for the bot session service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the bot session service.
type environment struct {
	Port string `env:"PORT" envDefault:"8080"`

	NatsURL string `env:"NATS_URL" envDefault:"nats://localhost:4222"`

	ProviderBaseURL  string `env:"BOT_PROVIDER_BASE_URL" envDefault:"https://us-east-1.recall.ai/api/v1"`
	ProviderAPIToken string `env:"BOT_PROVIDER_API_TOKEN,required"`

	// WebhookURL is the publicly reachable webhook endpoint registered with
	// the provider on every bot creation.
	WebhookURL    string `env:"WEBHOOK_URL,required"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	BotDisplayName           string `env:"BOT_DISPLAY_NAME" envDefault:"Meetloop Notetaker"`
	BotJoinMessage           string `env:"BOT_JOIN_MESSAGE"`
	InactivityTimeoutSeconds int    `env:"BOT_INACTIVITY_TIMEOUT_SECONDS" envDefault:"300"`

	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"1m"`
	PollRecencyWindow time.Duration `env:"POLL_RECENCY_WINDOW" envDefault:"4h"`
	PollPageLimit     int           `env:"POLL_PAGE_LIMIT" envDefault:"50"`

	MaxRetryCount  int           `env:"MAX_RETRY_COUNT" envDefault:"3"`
	RetryAgeWindow time.Duration `env:"RETRY_AGE_WINDOW" envDefault:"24h"`

	// EncryptMedia requires MediaEncryptionKey (hex, 32 bytes) to be set.
	EncryptMedia       bool   `env:"ENCRYPT_MEDIA" envDefault:"false"`
	MediaEncryptionKey string `env:"MEDIA_ENCRYPTION_KEY"`

	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"2m"`
}

// parseFlags parses command line flags for the bot session service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// parseEnv parses environment variables for the bot session service
func parseEnv() environment {
	var e environment
	if err := env.Parse(&e); err != nil {
		slog.With(logging.ErrKey, err).Error("error parsing environment configuration")
		os.Exit(1)
	}

	if e.EncryptMedia && e.MediaEncryptionKey == "" {
		slog.Error("ENCRYPT_MEDIA is set but MEDIA_ENCRYPTION_KEY is missing")
		os.Exit(1)
	}

	return e
}
