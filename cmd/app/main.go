package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/velmart/storefront/internal/backend"
	"github.com/velmart/storefront/internal/cache"
	"github.com/velmart/storefront/internal/cart"
	"github.com/velmart/storefront/internal/config"
	"github.com/velmart/storefront/internal/handoff"
	"github.com/velmart/storefront/internal/httpapi"
	"github.com/velmart/storefront/internal/observability"
	"github.com/velmart/storefront/internal/telemetry"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable client storage. The service stays up without Postgres, handoff
	// records just won't survive a restart.
	var backing handoff.Backing
	if err := handoff.Migrate(cfg.DSN()); err != nil {
		logger.Warn("kv migration failed, falling back to in-memory storage", zap.Error(err))
		backing = handoff.NewMemory()
	} else {
		pool, err := handoff.Connect(ctx, cfg.DSN())
		if err != nil {
			logger.Warn("postgres unavailable, falling back to in-memory storage", zap.Error(err))
			backing = handoff.NewMemory()
		} else {
			defer pool.Close()
			backing = handoff.NewPostgres(pool)
		}
	}

	var sink telemetry.Sink = telemetry.NewNoop()
	if len(cfg.Kafka.Brokers) > 0 {
		k := telemetry.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer func() { _ = k.Close() }()
		sink = k
	}

	metrics := observability.NewInmem(1000)

	sessions, err := cache.New(cfg.CacheCap)
	if err != nil {
		logger.Fatal("session cache init failed", zap.Error(err))
	}

	client := backend.NewClient(cfg.Backend, cfg.Breaker, logger)
	carts := cart.NewService(client, sessions, logger, metrics)

	server := httpapi.New(client, carts, backing, sink, cfg.Confirm, logger, metrics)

	logger.Info("storefront listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("backend", cfg.Backend.BaseURL),
	)
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
