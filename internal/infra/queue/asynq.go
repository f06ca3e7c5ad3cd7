package queue

import (
	"fmt"
	"time"

	"courier/internal/domain/dispatch"

	"github.com/hibiken/asynq"
)

// NewClient creates a new asynq client connected to Redis.
func NewClient(redisAddr, password string, db int) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})
}

// NewServer creates a new asynq server connected to Redis.
func NewServer(redisAddr, password string, db int, concurrency int) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"deliveries": 10, // priority weight
				"default":    1,
			},
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				// Exponential backoff: 30s, 60s, 120s, 240s, 480s
				return time.Duration(30*(1<<uint(n-1))) * time.Second
			},
		},
	)
}

// EnqueueDispatch enqueues a dispatch task, optionally deferred by delay.
func EnqueueDispatch(client *asynq.Client, deliveryID string, delay time.Duration, maxRetry int) error {
	task, err := dispatch.NewDispatchTask(deliveryID)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(maxRetry),
		asynq.Queue("deliveries"),
	}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	if _, err := client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("enqueuing task: %w", err)
	}
	return nil
}
