// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/meetloop/bot-session-service/internal/infrastructure/store"
	"github.com/meetloop/bot-session-service/internal/logging"
)

const natsConnectTimeout = 10 * time.Second

// repositories bundles the NATS-backed stores used by the services.
type repositories struct {
	Session    *store.NatsBotSessionRepository
	Recording  *store.NatsRecordingRepository
	MediaStore *store.NatsMediaStore
}

// setupNATS establishes the NATS connection and registers a graceful close
// on shutdown.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup) (*nats.Conn, error) {
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.Name("bot-session-service"),
		nats.Timeout(natsConnectTimeout),
		nats.DrainTimeout(natsConnectTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logging.ErrKey, err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			slog.Info("NATS connection closed")
			gracefulCloseWG.Done()
		}),
	)
	if err != nil {
		return nil, err
	}

	// The closed handler completes this on drain.
	gracefulCloseWG.Add(1)

	go func() {
		<-ctx.Done()
		slog.Info("draining NATS connection")
		if err := natsConn.Drain(); err != nil {
			slog.Error("error draining NATS connection", logging.ErrKey, err)
			gracefulCloseWG.Done()
		}
	}()

	slog.Info("connected to NATS", "url", env.NatsURL)
	return natsConn, nil
}

// getRepositories binds the KV buckets and media object store, creating them
// when they do not exist yet.
func getRepositories(ctx context.Context, natsConn *nats.Conn) (*repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, err
	}

	sessionsKV, err := ensureKeyValue(ctx, js, store.KVStoreNameBotSessions)
	if err != nil {
		return nil, err
	}
	recordingsKV, err := ensureKeyValue(ctx, js, store.KVStoreNameRecordings)
	if err != nil {
		return nil, err
	}
	mediaObjectStore, err := ensureObjectStore(ctx, js, store.ObjectStoreNameRecordingMedia)
	if err != nil {
		return nil, err
	}

	return &repositories{
		Session:    store.NewNatsBotSessionRepository(sessionsKV),
		Recording:  store.NewNatsRecordingRepository(recordingsKV),
		MediaStore: store.NewNatsMediaStore(mediaObjectStore),
	}, nil
}

func ensureKeyValue(ctx context.Context, js jetstream.JetStream, bucket string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, bucket)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}

	slog.Info("creating NATS KV bucket", "bucket", bucket)
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
	})
}

func ensureObjectStore(ctx context.Context, js jetstream.JetStream, bucket string) (jetstream.ObjectStore, error) {
	objectStore, err := js.ObjectStore(ctx, bucket)
	if err == nil {
		return objectStore, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}

	slog.Info("creating NATS object store", "bucket", bucket)
	return js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket: bucket,
	})
}
