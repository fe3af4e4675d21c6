// Package main initializes and starts the shelfsync agent: the
// background sync worker, the persistent store with its encrypted
// value layer, and the local control API.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/libridge/shelfsync/internal/api"
	"github.com/libridge/shelfsync/internal/broadcast"
	"github.com/libridge/shelfsync/internal/cache"
	"github.com/libridge/shelfsync/internal/config"
	"github.com/libridge/shelfsync/internal/crypto"
	"github.com/libridge/shelfsync/internal/logger"
	"github.com/libridge/shelfsync/internal/queue"
	"github.com/libridge/shelfsync/internal/securestore"
	"github.com/libridge/shelfsync/internal/server/handler/http"
	"github.com/libridge/shelfsync/internal/store"
	"github.com/libridge/shelfsync/internal/syncworker"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// openStore selects the persistence backend from configuration.
func openStore(options *config.Options) (store.Store, error) {
	switch options.StoreDriver {
	case "file":
		return store.NewFileStore(options.StorePath)
	case "postgres":
		db, err := store.InitPostgres(options.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(db), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: options.RedisAddr})
		return store.NewRedisStore(client, ""), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", options.StoreDriver)
	}
}

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	// Open the persistent key-value store.
	kv, err := openStore(options)
	if err != nil {
		zapLogger.Fatal("cannot open store", zap.Error(err))
	}

	// Sensitive values are encrypted at rest; the secure store owns the
	// decision, the rest of the agent never sees ciphertext.
	cipher, err := crypto.New(options.Secret, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init cipher", zap.Error(err))
	}
	secured := securestore.New(kv, cipher, zapLogger)

	// Pending-mutation queue over the same store.
	pending := queue.New(kv)

	// HTTP client for the remote library API. A session token persisted
	// by a previous run is decrypted by the secure store and reused.
	client, err := api.NewClient(options.APIBaseURL, 0, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init API client", zap.Error(err))
	}
	if token, err := secured.GetItem(context.Background(), "accessToken"); err == nil && token != "" {
		client.SetToken(token)
	}

	// The hub carries SYNC_COMPLETE to consumers and SKIP_WAITING back.
	hub := broadcast.New()

	// Background sync worker.
	worker := syncworker.New(pending, client, hub, zapLogger, 0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go worker.Run(ctx, time.Duration(options.SyncIntervalSec)*time.Second)

	// Cart cache reconciles itself on every completed sync cycle.
	cart := cache.New(client, pending, 0, zapLogger)
	go cart.ListenSyncEvents(ctx, hub)

	// Control API.
	router := http.NewRouter(&http.ControlHandler{
		Queue:  pending,
		Worker: worker,
		Hub:    hub,
	}, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	zapLogger.Info("starting control API",
		zap.String("addr", options.Addr),
		zap.String("api", options.APIBaseURL),
		zap.String("store", options.StoreDriver))
	if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
		zapLogger.Fatal("control API failed", zap.Error(err))
	}
	zapLogger.Info("shutdown complete")
}
