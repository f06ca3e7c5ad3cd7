package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// recordingTransport captures every Deliver call for inspection.
type recordingTransport struct {
	calls [][]Message
	fail  func(call int) error
}

func (t *recordingTransport) Deliver(ctx context.Context, msgs []Message) error {
	call := len(t.calls)
	group := make([]Message, len(msgs))
	copy(group, msgs)
	t.calls = append(t.calls, group)
	if t.fail != nil {
		return t.fail(call)
	}
	return nil
}

func testMessages(n int) []Message {
	msgs := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, NewMessage(KindEmail, fmt.Sprintf("user%d@test.com", i), "hello"))
	}
	return msgs
}

func TestStrategiesPreserveLengthAndOrder(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
	}{
		{"immediate", NewImmediateStrategy(&recordingTransport{})},
		{"batch", NewBatchStrategy(2, &recordingTransport{})},
		{"batch larger than input", NewBatchStrategy(100, &recordingTransport{})},
		{"delayed", NewDelayedStrategy(5 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := testMessages(5)
			results := tt.strategy.Dispatch(context.Background(), msgs)

			if len(results) != len(msgs) {
				t.Fatalf("got %d results, want %d", len(results), len(msgs))
			}
			for i, r := range results {
				if r.Message.ID != msgs[i].ID {
					t.Fatalf("result %d references message %s, want %s", i, r.Message.ID, msgs[i].ID)
				}
				if !r.Success {
					t.Fatalf("result %d not successful: %s", i, r.Detail)
				}
			}
		})
	}
}

func TestStrategiesEmptyInput(t *testing.T) {
	for _, s := range []Strategy{
		NewImmediateStrategy(nil),
		NewBatchStrategy(3, nil),
		NewDelayedStrategy(0),
	} {
		if got := s.Dispatch(context.Background(), nil); len(got) != 0 {
			t.Fatalf("%s: got %d results for empty input", s.Name(), len(got))
		}
	}
}

func TestImmediateStrategyOneCallPerMessage(t *testing.T) {
	transport := &recordingTransport{}
	s := NewImmediateStrategy(transport)

	s.Dispatch(context.Background(), testMessages(3))

	if len(transport.calls) != 3 {
		t.Fatalf("got %d transport calls, want 3", len(transport.calls))
	}
	for i, call := range transport.calls {
		if len(call) != 1 {
			t.Fatalf("call %d carried %d messages, want 1", i, len(call))
		}
	}
}

func TestBatchStrategyGrouping(t *testing.T) {
	transport := &recordingTransport{}
	s := NewBatchStrategy(2, transport)

	results := s.Dispatch(context.Background(), testMessages(5))

	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	wantGroups := []int{2, 2, 1}
	if len(transport.calls) != len(wantGroups) {
		t.Fatalf("got %d groups, want %d", len(transport.calls), len(wantGroups))
	}
	for i, want := range wantGroups {
		if len(transport.calls[i]) != want {
			t.Fatalf("group %d size = %d, want %d", i, len(transport.calls[i]), want)
		}
	}
}

func TestBatchStrategyCoercesBadSize(t *testing.T) {
	transport := &recordingTransport{}
	s := NewBatchStrategy(0, transport)

	results := s.Dispatch(context.Background(), testMessages(4))
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	if len(transport.calls) != 1 {
		t.Fatalf("expected one group with the default size, got %d", len(transport.calls))
	}
}

func TestBatchStrategyContinuesPastFailedGroup(t *testing.T) {
	transport := &recordingTransport{
		fail: func(call int) error {
			if call == 0 {
				return errors.New("gateway unavailable")
			}
			return nil
		},
	}
	s := NewBatchStrategy(2, transport)

	results := s.Dispatch(context.Background(), testMessages(5))

	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	for i, r := range results {
		if i < 2 {
			if r.Success {
				t.Fatalf("result %d should have failed", i)
			}
			if !strings.Contains(r.Detail, "gateway unavailable") {
				t.Fatalf("result %d detail = %q", i, r.Detail)
			}
		} else if !r.Success {
			t.Fatalf("result %d should have succeeded after failed group", i)
		}
	}
}

func TestImmediateStrategyRecordsFailures(t *testing.T) {
	transport := &recordingTransport{
		fail: func(call int) error {
			if call == 1 {
				return errors.New("timeout")
			}
			return nil
		},
	}
	s := NewImmediateStrategy(transport)

	results := s.Dispatch(context.Background(), testMessages(3))

	if results[0].Success != true || results[2].Success != true {
		t.Fatal("unaffected messages should succeed")
	}
	if results[1].Success {
		t.Fatal("second message should have failed")
	}
}

func TestDelayedStrategyDetail(t *testing.T) {
	s := NewDelayedStrategy(5 * time.Minute)

	start := time.Now()
	results := s.Dispatch(context.Background(), testMessages(2))
	if time.Since(start) > time.Second {
		t.Fatal("delayed strategy must not sleep")
	}

	for _, r := range results {
		if !r.Success {
			t.Fatalf("expected success, got %s", r.Detail)
		}
		if !strings.Contains(r.Detail, "5m0s") {
			t.Fatalf("detail should note the delay, got %q", r.Detail)
		}
	}
}

func TestDelayedStrategyCoercesNegativeDelay(t *testing.T) {
	s := NewDelayedStrategy(-time.Minute)
	if s.Delay() != 0 {
		t.Fatalf("delay = %s, want 0", s.Delay())
	}
}
