package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/anvargas/tiendaluz-core/api/routes"
	"github.com/anvargas/tiendaluz-core/internal/syncstore"
	"github.com/anvargas/tiendaluz-core/pkg/config"
	"github.com/anvargas/tiendaluz-core/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "syncd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "syncd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	backend, cleanup, err := newBackend(context.Background(), cfg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap store backend", err)
		os.Exit(1)
	}
	defer cleanup()

	store := syncstore.NewService(backend, cfg.SyncStore, logg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"backend": cfg.SyncStore.Backend,
	})
	logg.Info(ctx, "starting sync store server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(logg, store),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "sync store server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func newBackend(ctx context.Context, cfg *config.Config) (syncstore.Backend, func(), error) {
	switch strings.ToLower(cfg.SyncStore.Backend) {
	case "redis":
		backend, err := syncstore.NewRedisBackend(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { _ = backend.Close() }, nil
	default:
		return syncstore.NewMemoryBackend(), func() {}, nil
	}
}
