package dispatch

import (
	"context"
	"testing"
	"time"
)

func TestReaperRecoversStaleDeliveries(t *testing.T) {
	st := newFakeStore()
	stuck := &Delivery{Kind: string(KindEmail), Recipient: "a@x.com", Content: "x", Status: StatusProcessing, Detail: "transport error: timeout"}
	_ = st.Create(context.Background(), stuck)
	fresh := &Delivery{Kind: string(KindEmail), Recipient: "b@x.com", Content: "x", Status: StatusSent}
	_ = st.Create(context.Background(), fresh)

	// Age the stuck delivery past the threshold.
	st.mu.Lock()
	st.deliveries[stuck.ID].UpdatedAt = time.Now().Add(-time.Hour)
	st.mu.Unlock()

	enq := &fakeEnqueuer{}
	r := NewReaper(st, enq, ReaperConfig{
		Interval:       time.Minute,
		StaleThreshold: 10 * time.Minute,
		BatchSize:      10,
	})

	r.sweep(context.Background())

	if len(enq.ids) != 1 || enq.ids[0] != stuck.ID {
		t.Fatalf("re-enqueued = %v, want [%s]", enq.ids, stuck.ID)
	}

	recovered, _ := st.GetByID(context.Background(), stuck.ID)
	if recovered.Status != StatusQueued {
		t.Fatalf("status = %s, want queued", recovered.Status)
	}
	if recovered.Detail != "" {
		t.Fatalf("detail = %q, want cleared on requeue", recovered.Detail)
	}
}

func TestReaperNoopWhenNothingStale(t *testing.T) {
	st := newFakeStore()
	enq := &fakeEnqueuer{}
	r := NewReaper(st, enq, ReaperConfig{})

	r.sweep(context.Background())

	if len(enq.ids) != 0 {
		t.Fatalf("re-enqueued %d deliveries, want 0", len(enq.ids))
	}
}

func TestReaperConfigDefaults(t *testing.T) {
	r := NewReaper(newFakeStore(), &fakeEnqueuer{}, ReaperConfig{})

	if r.config.Interval != 5*time.Minute {
		t.Fatalf("interval = %s", r.config.Interval)
	}
	if r.config.StaleThreshold != 10*time.Minute {
		t.Fatalf("threshold = %s", r.config.StaleThreshold)
	}
	if r.config.BatchSize != 50 {
		t.Fatalf("batch size = %d", r.config.BatchSize)
	}
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	r := NewReaper(newFakeStore(), &fakeEnqueuer{}, ReaperConfig{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancel")
	}
}
