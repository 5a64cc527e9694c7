package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/drafts"
	"github.com/onclick-pay/onclick-web/internal/events"
	"github.com/onclick-pay/onclick-web/internal/handlers"
	"github.com/onclick-pay/onclick-web/internal/payments"
	"github.com/onclick-pay/onclick-web/internal/pinning"
	"github.com/onclick-pay/onclick-web/internal/platform/config"
	"github.com/onclick-pay/onclick-web/internal/platform/observability"
	"github.com/onclick-pay/onclick-web/internal/platform/session"
	"github.com/onclick-pay/onclick-web/internal/registry"
	"github.com/onclick-pay/onclick-web/internal/render"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")

	metrics, err := observability.NewMetrics(nil)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	kv, err := drafts.OpenKV(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to open draft storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	store, err := drafts.NewStore(kv, drafts.WithLogger(logger.Named("drafts")))
	if err != nil {
		logger.Fatal("failed to initialise draft store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("draft store close error", zap.Error(err))
		}
	}()

	pinner, closePinner, err := newPinner(ctx, cfg.Pinning)
	if err != nil {
		logger.Fatal("failed to initialise pinning", zap.Error(err))
	}
	defer closePinner()

	publisher, closePublisher, err := newPublisher(ctx, cfg.Events, logger)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}
	defer closePublisher()

	hashKey, blockKey := []byte(cfg.Session.HashKey), []byte(cfg.Session.BlockKey)
	if len(hashKey) == 0 {
		logger.Warn("session keys not configured; generated ephemeral keys, owner flags reset on restart")
		hashKey, blockKey = session.RandomKeys()
	}
	cookies, err := session.NewManager(session.Config{
		CookieName: cfg.Session.CookieName,
		HashKey:    hashKey,
		BlockKey:   blockKey,
		Secure:     cfg.Session.Secure,
		MaxAge:     cfg.Session.MaxAge,
	})
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	renderer, err := render.NewRenderer(logger.Named("render"))
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	checker := registry.NewChecker(store,
		registry.WithLatency(cfg.Registry.Latency),
		registry.WithRetryMaxElapsed(cfg.Registry.RetryMaxElapsed),
		registry.WithLogger(logger.Named("registry")),
		registry.WithMetrics(metrics),
	)
	debouncers, err := registry.NewSessions(checker, cfg.Registry.Debounce, cfg.Registry.SessionCache)
	if err != nil {
		logger.Fatal("failed to initialise handle debouncers", zap.Error(err))
	}
	defer debouncers.Close()

	simulator := payments.NewSimulator(
		payments.WithDelay(cfg.Payments.SimulatedDelay),
		payments.WithPinner(pinner),
		payments.WithPublisher(publisher),
		payments.WithMetrics(metrics),
		payments.WithLogger(logger.Named("payments")),
	)

	app, err := handlers.NewApp(handlers.Deps{
		Store:       store,
		Renderer:    renderer,
		Cookies:     cookies,
		Checker:     checker,
		Debouncers:  debouncers,
		Payments:    simulator,
		Pinner:      pinner,
		Publisher:   publisher,
		Metrics:     metrics,
		BaseURL:     cfg.Server.BaseURL,
		Gateway:     cfg.Pinning.GatewayURL,
		UploadLimit: cfg.Pinning.UploadLimit,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("failed to initialise handlers", zap.Error(err))
	}

	health := handlers.NewHealthHandlers(
		handlers.WithHealthVersion(version),
		handlers.WithReadinessCheck("drafts", func(ctx context.Context) error {
			_, _, err := store.Lookup(ctx, "readiness-probe")
			return err
		}),
	)

	router := handlers.NewRouter(app,
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(cfg.Observability.TraceProjectID),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(health),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("onclick web listening", zap.String("storage", cfg.Storage.Backend), zap.String("base_url", cfg.Server.BaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newPinner prefers Pinata, then a GCS bucket, then the in-process store.
func newPinner(ctx context.Context, cfg config.PinningConfig) (pinning.Pinner, func(), error) {
	noop := func() {}
	switch {
	case strings.TrimSpace(cfg.PinataJWT) != "":
		p, err := pinning.NewPinata(cfg.PinataJWT,
			pinning.WithBaseURL(cfg.PinataBaseURL),
			pinning.WithGateway(cfg.GatewayURL),
		)
		if err != nil {
			return nil, noop, err
		}
		return p, noop, nil
	case strings.TrimSpace(cfg.GCSBucket) != "":
		client, err := cloudstorage.NewClient(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("storage client: %w", err)
		}
		p, err := pinning.NewGCS(client, cfg.GCSBucket)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return p, func() { _ = client.Close() }, nil
	}
	return pinning.NewMemory(), noop, nil
}

func newPublisher(ctx context.Context, cfg config.EventsConfig, logger *zap.Logger) (events.Publisher, func(), error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		logger.Info("events project not configured; domain events are dropped")
		return events.Noop{}, func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, func() {}, fmt.Errorf("pubsub client: %w", err)
	}
	publisher, err := events.NewPubSub(client.Topic(cfg.Topic))
	if err != nil {
		_ = client.Close()
		return nil, func() {}, err
	}
	return publisher, func() {
		publisher.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}, nil
}
