package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"campusdash/internal/config"
	"campusdash/internal/db"
	"campusdash/internal/logger"
	"campusdash/internal/payment"
	"campusdash/internal/session"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.L().Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.L().Fatal("failed to open session store", zap.Error(err))
	}
	defer closeStore()

	confirmer, err := payment.New(cfg)
	if err != nil {
		logger.L().Fatal("failed to set up payments", zap.Error(err))
	}

	a := newApp(cfg, store, confirmer, nil)
	a.start(ctx)

	logger.L().Info("campusdash shell ready",
		zap.String("api", cfg.APIBaseURL),
		zap.String("session_backend", cfg.SessionBackend),
		zap.String("payments", confirmer.Name()),
	)

	if err := a.run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.L().Error("shell stopped", zap.Error(err))
	}
}

// openStore builds the device storage selected by SESSION_BACKEND.
func openStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	deviceID, _ := os.Hostname()
	noop := func() {}

	switch cfg.SessionBackend {
	case "memory":
		return session.NewMemoryStore(), noop, nil
	case "file", "":
		return session.NewFileStore(cfg.SessionFile), noop, nil
	case "redis":
		store, err := session.NewRedisStoreFromURL(ctx, cfg.RedisURL, deviceID)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "postgres":
		database, err := db.NewDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		store := session.NewSQLStore(database, deviceID)
		if err := store.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}
		return store, func() { database.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
