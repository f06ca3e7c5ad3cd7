package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"courier/internal/common"
)

// Enqueuer defines the contract for enqueuing dispatch tasks.
// This decouples the service from the specific queue implementation.
type Enqueuer interface {
	EnqueueDispatch(deliveryID string, delay time.Duration) error
}

const (
	// ModeSync dispatches within the request and returns results.
	ModeSync = "sync"
	// ModeQueued persists deliveries and hands them to the worker.
	ModeQueued = "queued"
)

// Service orchestrates dispatch business logic: resolve the channel,
// apply the rate limit, dispatch (inline or via the queue), and persist
// every outcome.
type Service struct {
	registry    *Registry
	store       DeliveryStore
	enqueuer    Enqueuer
	rateLimiter RecipientRateLimiter
	transport   Transport
	metrics     *MetricsObserver
	observers   []Observer
}

// NewService creates a new dispatch service. The metrics observer is
// created internally and attached to every notifier the service builds;
// extraObservers (e.g. a webhook observer) are attached after it.
func NewService(registry *Registry, store DeliveryStore, enqueuer Enqueuer, rateLimiter RecipientRateLimiter, transport Transport, extraObservers ...Observer) *Service {
	metrics := NewMetricsObserver()
	observers := append([]Observer{NewLogObserver(), metrics}, extraObservers...)

	return &Service{
		registry:    registry,
		store:       store,
		enqueuer:    enqueuer,
		rateLimiter: rateLimiter,
		transport:   transport,
		metrics:     metrics,
		observers:   observers,
	}
}

// Metrics returns a snapshot of the running dispatch counters.
func (s *Service) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// Kinds returns the channel kinds currently registered.
func (s *Service) Kinds() []Kind {
	return s.registry.Kinds()
}

// Dispatch validates the request and routes it to the sync or queued
// pipeline.
func (s *Service) Dispatch(ctx context.Context, req *DispatchRequest) (*DispatchResponse, error) {
	if len(req.Recipients) == 0 {
		return nil, common.NewValidationError("at least one recipient is required")
	}
	if req.BatchSize < 0 {
		return nil, common.NewValidationError("batch_size must not be negative")
	}
	if req.DelaySeconds < 0 {
		return nil, common.NewValidationError("delay_seconds must be non-negative")
	}

	// Fail closed on an explicit limit, fail open on limiter errors so
	// a Redis outage never blocks dispatch.
	if s.rateLimiter != nil {
		for _, recipient := range req.Recipients {
			allowed, err := s.rateLimiter.Allow(ctx, recipient)
			if err != nil {
				slog.Error("rate limit check failed, proceeding without limit",
					"recipient", recipient,
					"error", err,
				)
				continue
			}
			if !allowed {
				return nil, common.NewValidationError(fmt.Sprintf("rate limit exceeded for recipient: %s", recipient))
			}
		}
	}

	if req.Mode == ModeQueued {
		return s.dispatchQueued(ctx, req)
	}
	return s.dispatchSync(ctx, req)
}

// dispatchSync formats, dispatches, and persists within the request.
func (s *Service) dispatchSync(ctx context.Context, req *DispatchRequest) (*DispatchResponse, error) {
	notifier, strategy, err := s.buildNotifier(req)
	if err != nil {
		return nil, err
	}

	results := notifier.Send(ctx, req.Content, req.Recipients)

	for _, r := range results {
		status := StatusSent
		if !r.Success {
			status = StatusFailed
		}
		d := &Delivery{
			ID:        r.Message.ID,
			Kind:      string(r.Message.Kind),
			Recipient: r.Message.Recipient,
			Content:   r.Message.Content,
			Strategy:  strategy.Name(),
			Detail:    r.Detail,
			Status:    status,
		}
		if err := s.store.Create(ctx, d); err != nil {
			slog.Error("persisting delivery failed",
				"message_id", r.Message.ID,
				"error", err,
			)
		}
	}

	slog.Info("dispatch complete",
		"kind", req.Kind,
		"strategy", strategy.Name(),
		"recipients", len(req.Recipients),
	)

	return &DispatchResponse{
		Kind:     req.Kind,
		Strategy: strategy.Name(),
		Mode:     ModeSync,
		Results:  results,
	}, nil
}

// dispatchQueued persists one queued delivery per recipient and hands
// each to the worker. A delayed strategy becomes a real queue delay.
func (s *Service) dispatchQueued(ctx context.Context, req *DispatchRequest) (*DispatchResponse, error) {
	if s.enqueuer == nil {
		return nil, common.NewValidationError("queued dispatch is not configured")
	}

	// The kind and strategy must resolve before anything is persisted.
	_, strategy, err := s.buildNotifier(req)
	if err != nil {
		return nil, err
	}

	delay := time.Duration(0)
	if delayed, ok := strategy.(*DelayedStrategy); ok {
		delay = delayed.Delay()
	}

	queued := make([]string, 0, len(req.Recipients))
	for _, recipient := range req.Recipients {
		d := &Delivery{
			Kind:      string(req.Kind),
			Recipient: recipient,
			Content:   req.Content,
			Strategy:  strategy.Name(),
			Status:    StatusQueued,
		}
		if err := s.store.Create(ctx, d); err != nil {
			return nil, fmt.Errorf("creating delivery record: %w", err)
		}

		if err := s.enqueuer.EnqueueDispatch(d.ID, delay); err != nil {
			_ = s.store.UpdateStatus(ctx, d.ID, StatusFailed, "failed to enqueue: "+err.Error())
			return nil, fmt.Errorf("enqueuing delivery: %w", err)
		}
		queued = append(queued, d.ID)
	}

	slog.Info("dispatch enqueued",
		"kind", req.Kind,
		"strategy", strategy.Name(),
		"deliveries", len(queued),
		"delay", delay,
	)

	return &DispatchResponse{
		Kind:     req.Kind,
		Strategy: strategy.Name(),
		Mode:     ModeQueued,
		Queued:   queued,
	}, nil
}

// buildNotifier resolves the channel and strategy for a request and
// wires the service observers onto a fresh notifier.
func (s *Service) buildNotifier(req *DispatchRequest) (*Notifier, Strategy, error) {
	channel, err := s.registry.Create(req.Kind)
	if err != nil {
		return nil, nil, err
	}

	strategy, err := s.buildStrategy(req)
	if err != nil {
		return nil, nil, err
	}

	notifier := NewNotifier(channel)
	notifier.SetStrategy(strategy)
	for _, o := range s.observers {
		notifier.AddObserver(o)
	}
	return notifier, strategy, nil
}

// buildStrategy maps request fields to a strategy instance.
func (s *Service) buildStrategy(req *DispatchRequest) (Strategy, error) {
	switch req.Strategy {
	case "", "immediate":
		return NewImmediateStrategy(s.transport), nil
	case "batch":
		size := req.BatchSize
		if size == 0 {
			size = 10
		}
		return NewBatchStrategy(size, s.transport), nil
	case "delayed":
		return NewDelayedStrategy(time.Duration(req.DelaySeconds) * time.Second), nil
	default:
		return nil, common.NewValidationError(fmt.Sprintf("unsupported strategy: %s", req.Strategy))
	}
}

// GetDelivery retrieves a delivery by ID.
func (s *Service) GetDelivery(ctx context.Context, id string) (*Delivery, error) {
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching delivery: %w", err)
	}
	if d == nil {
		return nil, common.NewNotFoundError("delivery", id)
	}
	return d, nil
}

// ListDeliveries retrieves deliveries with pagination and filtering.
func (s *Service) ListDeliveries(ctx context.Context, filter ListFilter) (*ListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	deliveries, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}

	return &ListResponse{
		Deliveries: deliveries,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}, nil
}
