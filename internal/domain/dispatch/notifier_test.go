package dispatch

import (
	"context"
	"testing"
)

// countingObserver records how many times it was invoked and with what.
type countingObserver struct {
	calls   int
	batches [][]SendResult
}

func (o *countingObserver) OnDispatch(results []SendResult) {
	o.calls++
	o.batches = append(o.batches, results)
}

func TestNotifierSendEndToEnd(t *testing.T) {
	n := NewNotifier(NewEmailChannel("team@company.com"))
	n.SetStrategy(NewImmediateStrategy(&recordingTransport{}))

	results := n.Send(context.Background(), "Hi", []string{"a@x.com", "b@x.com"})

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	recipients := []string{"a@x.com", "b@x.com"}
	for i, r := range results {
		if !r.Success {
			t.Fatalf("result %d failed: %s", i, r.Detail)
		}
		if r.Message.Kind != KindEmail {
			t.Fatalf("result %d kind = %s, want email", i, r.Message.Kind)
		}
		if r.Message.Recipient != recipients[i] {
			t.Fatalf("result %d recipient = %s, want %s", i, r.Message.Recipient, recipients[i])
		}
	}
}

func TestNotifierObserversInvokedOncePerSend(t *testing.T) {
	n := NewNotifier(NewSMSChannel())
	first := &countingObserver{}
	second := &countingObserver{}
	n.AddObserver(first)
	n.AddObserver(second)

	recipients := []string{"+336111", "+336222", "+336333"}
	n.Send(context.Background(), "code 123456", recipients)

	for _, o := range []*countingObserver{first, second} {
		if o.calls != 1 {
			t.Fatalf("observer invoked %d times, want 1", o.calls)
		}
		if len(o.batches[0]) != len(recipients) {
			t.Fatalf("observer saw %d results, want %d", len(o.batches[0]), len(recipients))
		}
	}

	n.Send(context.Background(), "again", recipients[:1])
	if first.calls != 2 {
		t.Fatalf("observer invoked %d times after second send, want 2", first.calls)
	}
}

func TestNotifierRemoveObserver(t *testing.T) {
	n := NewNotifier(NewPushChannel("myapp"))
	kept := &countingObserver{}
	removed := &countingObserver{}
	n.AddObserver(kept)
	n.AddObserver(removed)
	n.RemoveObserver(removed)

	// Removing an observer that was never added is a no-op.
	n.RemoveObserver(&countingObserver{})

	n.Send(context.Background(), "update", []string{"tok1"})

	if kept.calls != 1 {
		t.Fatalf("kept observer invoked %d times, want 1", kept.calls)
	}
	if removed.calls != 0 {
		t.Fatalf("removed observer invoked %d times, want 0", removed.calls)
	}
}

func TestNotifierDefaultStrategyIsImmediate(t *testing.T) {
	n := NewNotifier(NewEmailChannel(""))

	if n.Strategy().Name() != "immediate" {
		t.Fatalf("default strategy = %s, want immediate", n.Strategy().Name())
	}

	results := n.Send(context.Background(), "hello", []string{"a@x.com"})
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestNotifierIgnoresNilStrategy(t *testing.T) {
	n := NewNotifier(NewEmailChannel(""))
	n.SetStrategy(nil)

	if n.Strategy() == nil {
		t.Fatal("nil strategy should have been ignored")
	}
}

func TestNotifierSMSEndToEnd(t *testing.T) {
	n := NewNotifier(NewSMSChannel())

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	results := n.Send(context.Background(), string(long), []string{"+33611111111"})

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if len(results[0].Message.Content) > 160 {
		t.Fatalf("content length = %d, want <= 160", len(results[0].Message.Content))
	}
}
