package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courier/internal/config"
	"courier/internal/domain/dispatch"
	"courier/internal/infra/queue"
	"courier/internal/infra/ratelimit"
	"courier/internal/infra/store"
	"courier/internal/router"

	"github.com/hibiken/asynq"
)

// queueEnqueuer adapts the asynq client to the dispatch.Enqueuer interface.
type queueEnqueuer struct {
	client   *asynq.Client
	maxRetry int
}

func (q *queueEnqueuer) EnqueueDispatch(deliveryID string, delay time.Duration) error {
	return queue.EnqueueDispatch(q.client, deliveryID, delay, q.maxRetry)
}

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded", "port", cfg.Server.Port, "mode", cfg.Server.Mode)

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// Delivery Store
	deliveryStore, err := newDeliveryStore(cfg)
	if err != nil {
		slog.Error("failed to initialize delivery store", "error", err)
		os.Exit(1)
	}
	slog.Info("delivery store initialized", "backend", cfg.Store.Backend)

	// Channel Registry — built-in kinds registered explicitly at startup
	registry := newRegistry(cfg)

	// Asynq Client (for enqueuing tasks)
	asynqClient := queue.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	defer asynqClient.Close()
	slog.Info("asynq client initialized", "redis", cfg.Redis.Address)

	enqueuer := &queueEnqueuer{
		client:   asynqClient,
		maxRetry: cfg.Queue.MaxRetry,
	}

	// Recipient Rate Limiter (disabled when max_per_hour is 0)
	var recipientLimiter dispatch.RecipientRateLimiter
	if cfg.RecipientRateLimit.MaxPerHour > 0 {
		limiter := ratelimit.NewRedisRecipientLimiter(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.RecipientRateLimit.MaxPerHour,
		)
		defer limiter.Close()
		recipientLimiter = limiter
		slog.Info("recipient rate limiter initialized", "max_per_hour", cfg.RecipientRateLimit.MaxPerHour)
	}

	// Optional webhook observer
	var extraObservers []dispatch.Observer
	if cfg.Webhook.URL != "" {
		extraObservers = append(extraObservers, dispatch.NewWebhookObserver(cfg.Webhook.URL))
		slog.Info("webhook observer initialized", "url", cfg.Webhook.URL)
	}

	// Service
	dispatchService := dispatch.NewService(
		registry,
		deliveryStore,
		enqueuer,
		recipientLimiter,
		dispatch.NewLogTransport(),
		extraObservers...,
	)

	// Handler
	dispatchHandler := dispatch.NewHandler(dispatchService)

	// Router
	r := router.New(cfg, dispatchHandler)

	// ==========================================
	// HTTP Server with Graceful Shutdown
	// ==========================================

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// newDeliveryStore selects the store backend from config.
func newDeliveryStore(cfg *config.Config) (dispatch.DeliveryStore, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		ttl := time.Duration(cfg.Store.RetentionSec) * time.Second
		return store.NewRedisStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, ttl), nil
	case "supabase":
		return store.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// newRegistry registers the built-in channel kinds.
func newRegistry(cfg *config.Config) *dispatch.Registry {
	registry := dispatch.NewRegistry()
	registry.Register(dispatch.KindEmail, func() dispatch.Channel {
		return dispatch.NewEmailChannel(cfg.Channels.Email.FromAddress)
	})
	registry.Register(dispatch.KindSMS, func() dispatch.Channel {
		return dispatch.NewSMSChannel()
	})
	registry.Register(dispatch.KindPush, func() dispatch.Channel {
		return dispatch.NewPushChannel(cfg.Channels.Push.AppID)
	})
	return registry
}
