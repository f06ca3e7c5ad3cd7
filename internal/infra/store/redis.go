package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"courier/internal/domain/dispatch"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	deliveryKeyPrefix = "courier:delivery:"
	deliveryIndexKey  = "courier:deliveries"
)

var _ dispatch.DeliveryStore = (*RedisStore)(nil)

// RedisStore persists deliveries in Redis: one JSON value per delivery
// plus a creation-time sorted set used as the listing index.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed delivery store. Records expire
// after ttl; a non-positive ttl keeps them forever.
func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: client, ttl: ttl}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Create inserts a new delivery record, assigning its ID if empty.
func (s *RedisStore) Create(ctx context.Context, d *dispatch.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.Status == dispatch.StatusSent && d.SentAt == nil {
		d.SentAt = &now
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling delivery: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, deliveryKeyPrefix+d.ID, data, s.ttl)
	pipe.ZAdd(ctx, deliveryIndexKey, redis.Z{
		Score:  float64(d.CreatedAt.UnixNano()),
		Member: d.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing delivery: %w", err)
	}
	return nil
}

// GetByID retrieves a delivery by its ID. Returns nil, nil when absent.
func (s *RedisStore) GetByID(ctx context.Context, id string) (*dispatch.Delivery, error) {
	data, err := s.client.Get(ctx, deliveryKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching delivery: %w", err)
	}

	var d dispatch.Delivery
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing delivery: %w", err)
	}
	return &d, nil
}

// UpdateStatus moves a delivery to the given status, replacing its detail.
func (s *RedisStore) UpdateStatus(ctx context.Context, id string, status dispatch.DeliveryStatus, detail string) error {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}

	now := time.Now().UTC()
	d.Status = status
	d.Detail = detail
	d.UpdatedAt = now
	if status == dispatch.StatusSent {
		d.SentAt = &now
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling delivery: %w", err)
	}
	if err := s.client.Set(ctx, deliveryKeyPrefix+id, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("updating delivery: %w", err)
	}
	return nil
}

// List retrieves deliveries with pagination and filtering, newest first.
// Filters are applied after the index scan, so a filtered page may
// return fewer than PageSize items with expired records pruned lazily.
func (s *RedisStore) List(ctx context.Context, filter dispatch.ListFilter) ([]*dispatch.Delivery, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	ids, err := s.client.ZRevRange(ctx, deliveryIndexKey, 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("scanning delivery index: %w", err)
	}

	matched := make([]*dispatch.Delivery, 0, len(ids))
	for _, id := range ids {
		d, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		if d == nil {
			// Value expired; drop the dangling index entry.
			s.client.ZRem(ctx, deliveryIndexKey, id)
			continue
		}
		if filter.Status != "" && string(d.Status) != filter.Status {
			continue
		}
		if filter.Recipient != "" && d.Recipient != filter.Recipient {
			continue
		}
		if filter.Kind != "" && d.Kind != filter.Kind {
			continue
		}
		matched = append(matched, d)
	}

	total := len(matched)
	offset := (filter.Page - 1) * filter.PageSize
	if offset >= total {
		return []*dispatch.Delivery{}, total, nil
	}
	end := offset + filter.PageSize
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// ListStale retrieves deliveries stuck in queued/processing since before olderThan.
func (s *RedisStore) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*dispatch.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	ids, err := s.client.ZRange(ctx, deliveryIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("scanning delivery index: %w", err)
	}

	stale := make([]*dispatch.Delivery, 0)
	for _, id := range ids {
		d, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if d == nil {
			continue
		}
		if d.Status != dispatch.StatusQueued && d.Status != dispatch.StatusProcessing {
			continue
		}
		if !d.UpdatedAt.Before(olderThan) {
			continue
		}
		stale = append(stale, d)
		if len(stale) >= limit {
			break
		}
	}
	return stale, nil
}
