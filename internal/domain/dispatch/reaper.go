package dispatch

import (
	"context"
	"log/slog"
	"time"
)

// ReaperConfig holds configuration for the stale delivery reaper.
type ReaperConfig struct {
	// Interval is how often the reaper scans for stale deliveries.
	Interval time.Duration

	// StaleThreshold is how long a delivery can stay in
	// queued/processing before the reaper re-enqueues it.
	StaleThreshold time.Duration

	// BatchSize is the maximum number of deliveries recovered per cycle.
	BatchSize int
}

// Reaper periodically scans the delivery store for stuck records and
// re-enqueues them. The store is the source of truth; the reaper
// reconciles it with the queue so no delivery is lost when Redis data
// is wiped or a worker crashes mid-task.
type Reaper struct {
	store    DeliveryStore
	enqueuer Enqueuer
	config   ReaperConfig
}

// NewReaper creates a new stale delivery reaper.
func NewReaper(store DeliveryStore, enqueuer Enqueuer, cfg ReaperConfig) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = 10 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	return &Reaper{
		store:    store,
		enqueuer: enqueuer,
		config:   cfg,
	}
}

// Run starts the reaper loop. It blocks until the context is cancelled.
// Should be called in a goroutine.
func (r *Reaper) Run(ctx context.Context) {
	slog.Info("reaper started",
		"interval", r.config.Interval,
		"stale_threshold", r.config.StaleThreshold,
		"batch_size", r.config.BatchSize,
	)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep performs one reaper cycle: find stale deliveries and re-enqueue them.
func (r *Reaper) sweep(ctx context.Context) {
	olderThan := time.Now().Add(-r.config.StaleThreshold)

	stale, err := r.store.ListStale(ctx, olderThan, r.config.BatchSize)
	if err != nil {
		slog.Error("reaper: failed to list stale deliveries", "error", err)
		return
	}

	if len(stale) == 0 {
		return
	}

	slog.Warn("reaper: found stale deliveries", "count", len(stale))

	recovered := 0
	for _, d := range stale {
		// Reset status to queued before re-enqueuing so the worker
		// picks it up cleanly.
		if err := r.store.UpdateStatus(ctx, d.ID, StatusQueued, ""); err != nil {
			slog.Error("reaper: failed to reset status", "delivery_id", d.ID, "error", err)
			continue
		}

		if err := r.enqueuer.EnqueueDispatch(d.ID, 0); err != nil {
			slog.Error("reaper: failed to re-enqueue delivery", "delivery_id", d.ID, "error", err)
			continue
		}

		recovered++
		slog.Info("reaper: recovered stale delivery",
			"delivery_id", d.ID,
			"original_status", d.Status,
			"age", time.Since(d.UpdatedAt).Round(time.Second),
		)
	}

	if recovered > 0 {
		slog.Info("reaper: sweep complete", "recovered", recovered, "total_stale", len(stale))
	}
}
