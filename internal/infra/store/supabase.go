package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"courier/internal/domain/dispatch"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

const tableName = "deliveries"

var _ dispatch.DeliveryStore = (*SupabaseStore)(nil)

// SupabaseStore implements DeliveryStore using the Supabase Go SDK.
// The database assigns IDs and creation timestamps.
type SupabaseStore struct {
	client *supa.Client
}

// NewSupabaseStore creates a new Supabase-backed delivery store.
func NewSupabaseStore(supabaseURL, serviceKey string) (*SupabaseStore, error) {
	client, err := supa.NewClient(supabaseURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

// supabaseRow is the internal representation for PostgREST insert/update.
type supabaseRow struct {
	ID        string  `json:"id,omitempty"`
	Kind      string  `json:"kind"`
	Recipient string  `json:"recipient"`
	Content   string  `json:"content"`
	Strategy  *string `json:"strategy,omitempty"`
	Detail    *string `json:"detail,omitempty"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
	SentAt    *string `json:"sent_at,omitempty"`
}

// Create inserts a new delivery record.
func (s *SupabaseStore) Create(ctx context.Context, d *dispatch.Delivery) error {
	row := supabaseRow{
		Kind:      d.Kind,
		Recipient: d.Recipient,
		Content:   d.Content,
		Status:    string(d.Status),
	}
	if d.Strategy != "" {
		row.Strategy = &d.Strategy
	}
	if d.Detail != "" {
		row.Detail = &d.Detail
	}

	var results []supabaseRow
	data, _, err := s.client.From(tableName).Insert(row, false, "", "representation", "").Execute()
	if err != nil {
		return fmt.Errorf("inserting delivery: %w", err)
	}

	if err := json.Unmarshal(data, &results); err != nil {
		return fmt.Errorf("parsing insert response: %w", err)
	}

	if len(results) > 0 {
		d.ID = results[0].ID
		if t, err := time.Parse(time.RFC3339Nano, results[0].CreatedAt); err == nil {
			d.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, results[0].UpdatedAt); err == nil {
			d.UpdatedAt = t
		}
	}

	return nil
}

// GetByID retrieves a delivery by its ID. Returns nil, nil when absent.
func (s *SupabaseStore) GetByID(ctx context.Context, id string) (*dispatch.Delivery, error) {
	data, _, err := s.client.From(tableName).Select("*", "exact", false).Eq("id", id).Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching delivery: %w", err)
	}

	var rows []supabaseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing delivery: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToDelivery(&rows[0]), nil
}

// UpdateStatus moves a delivery to the given status, replacing its detail.
func (s *SupabaseStore) UpdateStatus(ctx context.Context, id string, status dispatch.DeliveryStatus, detail string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	update := map[string]any{
		"status":     string(status),
		"detail":     nil,
		"updated_at": now,
	}
	if detail != "" {
		update["detail"] = detail
	}
	if status == dispatch.StatusSent {
		update["sent_at"] = now
	}

	_, _, err := s.client.From(tableName).Update(update, "", "").Eq("id", id).Execute()
	if err != nil {
		return fmt.Errorf("updating delivery status: %w", err)
	}
	return nil
}

// List retrieves deliveries with pagination and filtering.
func (s *SupabaseStore) List(ctx context.Context, filter dispatch.ListFilter) ([]*dispatch.Delivery, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize

	query := s.client.From(tableName).Select("*", "exact", false)
	if filter.Status != "" {
		query = query.Eq("status", filter.Status)
	}
	if filter.Recipient != "" {
		query = query.Eq("recipient", filter.Recipient)
	}
	if filter.Kind != "" {
		query = query.Eq("kind", filter.Kind)
	}

	query = query.Order("created_at", &postgrest.OrderOpts{Ascending: false})
	query = query.Range(offset, offset+filter.PageSize-1, "")

	data, count, err := query.Execute()
	if err != nil {
		return nil, 0, fmt.Errorf("listing deliveries: %w", err)
	}

	var rows []supabaseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, 0, fmt.Errorf("parsing delivery list: %w", err)
	}

	deliveries := make([]*dispatch.Delivery, len(rows))
	for i, row := range rows {
		deliveries[i] = rowToDelivery(&row)
	}
	return deliveries, int(count), nil
}

// ListStale retrieves deliveries stuck in queued/processing since before olderThan.
func (s *SupabaseStore) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*dispatch.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	threshold := olderThan.UTC().Format(time.RFC3339Nano)

	query := s.client.From(tableName).
		Select("*", "exact", false).
		In("status", []string{string(dispatch.StatusQueued), string(dispatch.StatusProcessing)}).
		Lt("updated_at", threshold).
		Order("updated_at", &postgrest.OrderOpts{Ascending: true}).
		Range(0, limit-1, "")

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("listing stale deliveries: %w", err)
	}

	var rows []supabaseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing stale deliveries: %w", err)
	}

	deliveries := make([]*dispatch.Delivery, len(rows))
	for i, row := range rows {
		deliveries[i] = rowToDelivery(&row)
	}
	return deliveries, nil
}

// rowToDelivery converts a supabaseRow to a Delivery.
func rowToDelivery(row *supabaseRow) *dispatch.Delivery {
	d := &dispatch.Delivery{
		ID:        row.ID,
		Kind:      row.Kind,
		Recipient: row.Recipient,
		Content:   row.Content,
		Status:    dispatch.DeliveryStatus(row.Status),
	}

	if row.Strategy != nil {
		d.Strategy = *row.Strategy
	}
	if row.Detail != nil {
		d.Detail = *row.Detail
	}
	if t, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
		d.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, row.UpdatedAt); err == nil {
		d.UpdatedAt = t
	}
	if row.SentAt != nil {
		if t, err := time.Parse(time.RFC3339Nano, *row.SentAt); err == nil {
			d.SentAt = &t
		}
	}
	return d
}
