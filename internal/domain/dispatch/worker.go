package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"courier/internal/common"
)

// Worker processes queued deliveries. It picks up a task, fetches the
// delivery from the store, rebuilds the channel, dispatches the message
// immediately (any configured delay was already applied by the queue),
// and updates the delivery status.
type Worker struct {
	store     DeliveryStore
	registry  *Registry
	transport Transport
	observers []Observer
}

// NewWorker creates a new dispatch worker.
func NewWorker(store DeliveryStore, registry *Registry, transport Transport, observers ...Observer) *Worker {
	return &Worker{
		store:     store,
		registry:  registry,
		transport: transport,
		observers: observers,
	}
}

// ProcessTask handles one dispatch task from the queue.
func (w *Worker) ProcessTask(ctx context.Context, deliveryID string) error {
	start := time.Now()

	delivery, err := w.store.GetByID(ctx, deliveryID)
	if err != nil {
		return fmt.Errorf("fetching delivery %s: %w", deliveryID, err)
	}
	if delivery == nil {
		slog.Error("delivery not found", "delivery_id", deliveryID)
		return fmt.Errorf("delivery not found: %s", deliveryID)
	}

	if err := w.store.UpdateStatus(ctx, deliveryID, StatusProcessing, ""); err != nil {
		slog.Error("failed to update status to processing", "delivery_id", deliveryID, "error", err)
	}

	channel, err := w.registry.Create(Kind(delivery.Kind))
	if err != nil {
		errMsg := fmt.Sprintf("unsupported channel kind: %s", delivery.Kind)
		_ = w.store.UpdateStatus(ctx, deliveryID, StatusFailed, errMsg)
		return common.NewValidationError(errMsg)
	}

	notifier := NewNotifier(channel)
	notifier.SetStrategy(NewImmediateStrategy(w.transport))
	for _, o := range w.observers {
		notifier.AddObserver(o)
	}

	results := notifier.Send(ctx, delivery.Content, []string{delivery.Recipient})
	result := results[0]

	if !result.Success {
		_ = w.store.UpdateStatus(ctx, deliveryID, StatusFailed, result.Detail)
		slog.Error("queued delivery failed",
			"delivery_id", deliveryID,
			"kind", delivery.Kind,
			"to", delivery.Recipient,
			"detail", result.Detail,
			"duration", time.Since(start),
		)
		return common.NewTransportError(delivery.Kind, result.Detail)
	}

	if err := w.store.UpdateStatus(ctx, deliveryID, StatusSent, result.Detail); err != nil {
		slog.Error("failed to update status to sent", "delivery_id", deliveryID, "error", err)
	}

	slog.Info("queued delivery sent",
		"delivery_id", deliveryID,
		"kind", delivery.Kind,
		"to", delivery.Recipient,
		"duration", time.Since(start),
	)

	return nil
}
