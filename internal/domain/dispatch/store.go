package dispatch

import (
	"context"
	"time"
)

// DeliveryStatus represents the lifecycle state of a persisted delivery.
type DeliveryStatus string

const (
	StatusQueued     DeliveryStatus = "queued"
	StatusProcessing DeliveryStatus = "processing"
	StatusSent       DeliveryStatus = "sent"
	StatusFailed     DeliveryStatus = "failed"
)

// Delivery is the persisted record of one message dispatch to one
// recipient.
type Delivery struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Recipient string         `json:"recipient"`
	Content   string         `json:"content"`
	Strategy  string         `json:"strategy,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	Status    DeliveryStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
}

// ListFilter defines pagination and filtering options for listing deliveries.
type ListFilter struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Status    string `form:"status"`
	Recipient string `form:"recipient"`
	Kind      string `form:"kind"`
}

// ListResponse wraps a paginated list of deliveries.
type ListResponse struct {
	Deliveries []*Delivery `json:"deliveries"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}

// DeliveryStore defines the contract for persisting delivery records.
// Implementations live in infra/store/ (memory, Redis, Supabase).
type DeliveryStore interface {
	// Create inserts a new delivery record, assigning its ID if empty.
	Create(ctx context.Context, d *Delivery) error

	// GetByID retrieves a delivery by its ID.
	// Returns nil, nil if no record is found.
	GetByID(ctx context.Context, id string) (*Delivery, error)

	// UpdateStatus moves a delivery to the given status and replaces
	// its detail. An empty detail clears whatever the previous
	// transition recorded.
	UpdateStatus(ctx context.Context, id string, status DeliveryStatus, detail string) error

	// List retrieves deliveries with pagination and filtering, newest first.
	List(ctx context.Context, filter ListFilter) ([]*Delivery, int, error)

	// ListStale retrieves deliveries stuck in queued/processing for
	// longer than the given threshold. Used by the reaper.
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*Delivery, error)
}
