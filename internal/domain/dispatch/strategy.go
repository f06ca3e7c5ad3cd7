package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Strategy decides how a batch of formatted messages is handed to the
// transport. Whatever the grouping or timing, Dispatch returns exactly
// one SendResult per input message, in input order.
type Strategy interface {
	// Name returns a short identifier for logging and API responses.
	Name() string

	// Dispatch sends the messages and reports one result per message.
	Dispatch(ctx context.Context, msgs []Message) []SendResult
}

var _ Strategy = (*ImmediateStrategy)(nil)

// ImmediateStrategy sends each message on its own transport call.
type ImmediateStrategy struct {
	transport Transport
}

// NewImmediateStrategy creates an immediate strategy. A nil transport
// falls back to the logging transport.
func NewImmediateStrategy(t Transport) *ImmediateStrategy {
	if t == nil {
		t = NewLogTransport()
	}
	return &ImmediateStrategy{transport: t}
}

func (s *ImmediateStrategy) Name() string { return "immediate" }

func (s *ImmediateStrategy) Dispatch(ctx context.Context, msgs []Message) []SendResult {
	results := make([]SendResult, 0, len(msgs))
	for _, msg := range msgs {
		if err := s.transport.Deliver(ctx, []Message{msg}); err != nil {
			results = append(results, SendResult{
				Success: false,
				Message: msg,
				Detail:  "transport error: " + err.Error(),
			})
			continue
		}
		results = append(results, SendResult{Success: true, Message: msg})
	}
	return results
}

var _ Strategy = (*BatchStrategy)(nil)

// BatchStrategy partitions messages into consecutive groups of at most
// batchSize and delivers each group as one transport call. A failed
// group yields failed results for its messages; dispatch continues with
// the remaining groups.
type BatchStrategy struct {
	batchSize int
	transport Transport
}

// NewBatchStrategy creates a batch strategy. A non-positive batchSize
// is coerced to 10; a nil transport falls back to the logging transport.
func NewBatchStrategy(batchSize int, t Transport) *BatchStrategy {
	if batchSize <= 0 {
		batchSize = 10
	}
	if t == nil {
		t = NewLogTransport()
	}
	return &BatchStrategy{batchSize: batchSize, transport: t}
}

func (s *BatchStrategy) Name() string { return fmt.Sprintf("batch(%d)", s.batchSize) }

func (s *BatchStrategy) Dispatch(ctx context.Context, msgs []Message) []SendResult {
	results := make([]SendResult, 0, len(msgs))
	for start := 0; start < len(msgs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(msgs) {
			end = len(msgs)
		}
		group := msgs[start:end]

		if err := s.transport.Deliver(ctx, group); err != nil {
			slog.Error("batch delivery failed",
				"size", len(group),
				"error", err,
			)
			for _, msg := range group {
				results = append(results, SendResult{
					Success: false,
					Message: msg,
					Detail:  "transport error: " + err.Error(),
				})
			}
			continue
		}

		for _, msg := range group {
			results = append(results, SendResult{Success: true, Message: msg})
		}
	}
	return results
}

var _ Strategy = (*DelayedStrategy)(nil)

// DelayedStrategy marks every message as scheduled for later delivery.
// It never sleeps: the sync path only records the intent, and the
// queued pipeline applies the real delay via the task queue.
type DelayedStrategy struct {
	delay time.Duration
}

// NewDelayedStrategy creates a delayed strategy. A negative delay is
// coerced to zero.
func NewDelayedStrategy(delay time.Duration) *DelayedStrategy {
	if delay < 0 {
		delay = 0
	}
	return &DelayedStrategy{delay: delay}
}

func (s *DelayedStrategy) Name() string { return fmt.Sprintf("delayed(%s)", s.delay) }

// Delay returns the configured deferral.
func (s *DelayedStrategy) Delay() time.Duration { return s.delay }

func (s *DelayedStrategy) Dispatch(ctx context.Context, msgs []Message) []SendResult {
	results := make([]SendResult, 0, len(msgs))
	for _, msg := range msgs {
		results = append(results, SendResult{
			Success: true,
			Message: msg,
			Detail:  fmt.Sprintf("scheduled for delivery in %s", s.delay),
		})
	}
	return results
}
