package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courier/internal/config"
	"courier/internal/domain/dispatch"
	"courier/internal/infra/queue"
	"courier/internal/infra/store"

	"github.com/hibiken/asynq"
)

// queueEnqueuer adapts the asynq client to the dispatch.Enqueuer interface.
// Used by the reaper to re-enqueue stale deliveries.
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

	slog.Info("worker configuration loaded")

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// Delivery Store (must be shared with the server, so memory won't do)
	deliveryStore, err := newDeliveryStore(cfg)
	if err != nil {
		slog.Error("failed to initialize delivery store", "error", err)
		os.Exit(1)
	}
	slog.Info("delivery store initialized", "backend", cfg.Store.Backend)

	// Channel Registry
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

	// Dispatch Worker
	dispatchWorker := dispatch.NewWorker(
		deliveryStore,
		registry,
		dispatch.NewLogTransport(),
		dispatch.NewLogObserver(),
	)

	// Asynq Client (for reaper re-enqueuing)
	asynqClient := queue.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	defer asynqClient.Close()

	enqueuer := &queueEnqueuer{
		client:   asynqClient,
		maxRetry: cfg.Queue.MaxRetry,
	}

	// ==========================================
	// Asynq Server (task processing)
	// ==========================================

	asynqServer := queue.NewServer(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Queue.Concurrency,
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(dispatch.TaskTypeDispatch, func(ctx context.Context, task *asynq.Task) error {
		payload, err := dispatch.ParseDispatchPayload(task.Payload())
		if err != nil {
			return err
		}
		return dispatchWorker.ProcessTask(ctx, payload.DeliveryID)
	})

	// Start the asynq worker in a goroutine
	go func() {
		slog.Info("worker starting",
			"concurrency", cfg.Queue.Concurrency,
			"redis", cfg.Redis.Address,
		)
		if err := asynqServer.Run(mux); err != nil {
			slog.Error("worker failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// ==========================================
	// Stale Delivery Reaper
	// ==========================================

	reaperCtx, reaperCancel := context.WithCancel(context.Background())
	defer reaperCancel()

	reaper := dispatch.NewReaper(deliveryStore, enqueuer, dispatch.ReaperConfig{
		Interval:       time.Duration(cfg.Reaper.IntervalSec) * time.Second,
		StaleThreshold: time.Duration(cfg.Reaper.StaleThresholdSec) * time.Second,
		BatchSize:      cfg.Reaper.BatchSize,
	})

	go reaper.Run(reaperCtx)

	// ==========================================
	// Graceful Shutdown
	// ==========================================

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	reaperCancel() // Stop the reaper first
	asynqServer.Shutdown()
	slog.Info("worker exited gracefully")
}

// newDeliveryStore selects the store backend from config. The worker
// needs a backend visible to the server too; memory is allowed only for
// local experiments.
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
