package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/shipstream/notifier/internal/api"
	"github.com/shipstream/notifier/internal/channel"
	"github.com/shipstream/notifier/internal/config"
	"github.com/shipstream/notifier/internal/db"
	"github.com/shipstream/notifier/internal/dispatch"
	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/metrics"
	"github.com/shipstream/notifier/internal/ratelimiter"
	"github.com/shipstream/notifier/internal/rules"
	"github.com/shipstream/notifier/internal/shipment"
	"github.com/shipstream/notifier/internal/taskqueue"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- durable queues ----
	eventStore, err := taskqueue.NewPgStore(pool, domain.QueueEvents)
	if err != nil {
		logger.Fatal("failed to create event store", zap.Error(err))
	}
	notificationStore, err := taskqueue.NewPgStore(pool, domain.QueueNotifications)
	if err != nil {
		logger.Fatal("failed to create notification store", zap.Error(err))
	}
	stores := map[domain.Queue]taskqueue.Store{
		domain.QueueEvents:        eventStore,
		domain.QueueNotifications: notificationStore,
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	shipmentRepo := shipment.NewPgRepository(pool)
	reconciler := shipment.NewReconciler(shipmentRepo, eventStore, logger)
	evaluator := rules.NewEvaluator(rules.NewPgRuleSource(pool), notificationStore, logger)

	// ---- channel adapters ----
	registry := channel.NewRegistry()
	registry.Register(domain.ChannelEmail, channel.NewEmailAdapter(cfg.EmailProviderURL, cfg.ProviderTimeout))
	registry.Register(domain.ChannelSMS, channel.NewSMSAdapter(cfg.SMSProviderURL, cfg.ProviderTimeout))
	registry.Register(domain.ChannelWebhook, channel.NewWebhookAdapter(cfg.ProviderTimeout))
	registry.Register(domain.ChannelLog, channel.NewLogAdapter(logger))
	if cfg.SlackWebhookURL != "" {
		registry.Register(domain.ChannelSlack, channel.NewSlackAdapter(cfg.SlackWebhookURL, cfg.ProviderTimeout))
	}

	limiter := ratelimiter.New(cfg.RateLimit, registry.Channels())

	// ---- dispatchers ----
	onCompleted, onTaskFailed, onSent, onSendFailed := m.DispatchHooks()
	hooks := dispatch.Hooks{
		OnCompleted:  onCompleted,
		OnTaskFailed: onTaskFailed,
		OnSent:       onSent,
		OnSendFailed: onSendFailed,
	}
	opts := dispatch.Options{
		BatchSize:         cfg.BatchSize,
		VisibilityTimeout: cfg.VisibilityTimeout,
		Backoff:           dispatch.Backoff(cfg.RetryBackoff),
	}

	eventDispatcher := dispatch.NewEventDispatcher(eventStore, opts, hooks, logger)
	eventDispatcher.Register(domain.EventShipmentStatusChanged, func(ctx context.Context, task *domain.Task) error {
		_, err := evaluator.Evaluate(ctx, task.ID, task.Partition, task.Payload)
		return err
	})

	notificationDispatcher := dispatch.NewNotificationDispatcher(
		notificationStore, registry, limiter, opts, hooks, logger)

	// ---- background work ----
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	scheduler := dispatch.NewScheduler(logger)
	for _, topic := range eventDispatcher.Topics() {
		if err := scheduler.Add(cfg.DispatchSpec, topic, eventDispatcher.Dispatch); err != nil {
			logger.Fatal("failed to schedule topic", zap.String("topic", topic), zap.Error(err))
		}
	}
	for _, ch := range registry.Channels() {
		if err := scheduler.Add(cfg.DispatchSpec, string(ch), notificationDispatcher.Dispatch); err != nil {
			logger.Fatal("failed to schedule channel", zap.String("channel", string(ch)), zap.Error(err))
		}
	}
	scheduler.Start(workerCtx)

	depthPoller := metrics.NewDepthPoller(stores, m, cfg.DepthPollInterval, logger)
	go depthPoller.Run(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(api.Deps{
		Stores:     stores,
		Shipments:  shipmentRepo,
		Reconciler: reconciler,
		DB:         pool,
		Registry:   reg,
		Logger:     logger,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Cancel in-flight dispatch cycles and the depth poller.
	cancelWorkers()

	// 3. Wait for running cron entries to drain. Unacknowledged claims are
	// re-delivered after the visibility timeout, so a hard cutoff is safe.
	scheduler.Stop()

	logger.Info("server stopped cleanly")
}
