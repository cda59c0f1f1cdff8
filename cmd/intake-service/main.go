package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/openshop/appointment-intake/internal/config"
	"github.com/openshop/appointment-intake/internal/events"
	"github.com/openshop/appointment-intake/internal/handlers"
	"github.com/openshop/appointment-intake/internal/httpx"
	"github.com/openshop/appointment-intake/internal/otelx"
	"github.com/openshop/appointment-intake/internal/runtime"
	"github.com/openshop/appointment-intake/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.ServiceName)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
	}

	store, err := openStore(ctx, cfg, rdb)
	if err != nil {
		logger.Error("store init failed", "backend", cfg.StoreBackend, "err", err)
		panic(err)
	}
	if closer, ok := store.(interface{ Close() }); ok {
		defer closer.Close()
	}

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.CreatedTopic, logger)
	defer publisher.Close()

	intake := handlers.NewIntakeHandler(store, publisher, logger, cfg.ExposeErrorDetail)

	readyChecks := []runtime.ReadyCheck{{Name: "store", Check: store.Ready}}
	if cfg.KafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: events.ReadyCheck(cfg.KafkaBrokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/appointments", intake.Create)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger, cfg.ExposeErrorDetail),
		httpx.WithBodyLimit(1 << 20),
	}
	if cfg.RateLimitPerMinute > 0 && rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, cfg.ServiceName)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "intake")

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client) (storage.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		store, err := storage.OpenPostgres(ctx, cfg.DatabaseURL, cfg.StoreTable)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		return storage.NewRedisStore(rdb, cfg.StoreTable), nil
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
