package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"courier/internal/domain/dispatch"

	"github.com/google/uuid"
)

var _ dispatch.DeliveryStore = (*MemoryStore)(nil)

// MemoryStore keeps deliveries in memory. It is the default backend and
// the one tests run against.
type MemoryStore struct {
	mu         sync.RWMutex
	deliveries map[string]*dispatch.Delivery
}

// NewMemoryStore creates an empty in-memory delivery store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{deliveries: make(map[string]*dispatch.Delivery)}
}

// Create inserts a new delivery record, assigning its ID if empty.
func (s *MemoryStore) Create(ctx context.Context, d *dispatch.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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

	stored := *d
	s.deliveries[d.ID] = &stored
	return nil
}

// GetByID retrieves a delivery by its ID. Returns nil, nil when absent.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*dispatch.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deliveries[id]
	if !ok {
		return nil, nil
	}
	out := *d
	return &out, nil
}

// UpdateStatus moves a delivery to the given status, replacing its detail.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status dispatch.DeliveryStatus, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deliveries[id]
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	d.Status = status
	d.Detail = detail
	d.UpdatedAt = now
	if status == dispatch.StatusSent {
		d.SentAt = &now
	}
	return nil
}

// List retrieves deliveries with pagination and filtering, newest first.
func (s *MemoryStore) List(ctx context.Context, filter dispatch.ListFilter) ([]*dispatch.Delivery, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	s.mu.RLock()
	matched := make([]*dispatch.Delivery, 0, len(s.deliveries))
	for _, d := range s.deliveries {
		if filter.Status != "" && string(d.Status) != filter.Status {
			continue
		}
		if filter.Recipient != "" && d.Recipient != filter.Recipient {
			continue
		}
		if filter.Kind != "" && d.Kind != filter.Kind {
			continue
		}
		out := *d
		matched = append(matched, &out)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

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
func (s *MemoryStore) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*dispatch.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	stale := make([]*dispatch.Delivery, 0)
	for _, d := range s.deliveries {
		if d.Status != dispatch.StatusQueued && d.Status != dispatch.StatusProcessing {
			continue
		}
		if !d.UpdatedAt.Before(olderThan) {
			continue
		}
		out := *d
		stale = append(stale, &out)
	}
	s.mu.RUnlock()

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})

	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}
