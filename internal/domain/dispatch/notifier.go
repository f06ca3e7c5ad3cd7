package dispatch

import "context"

// Notifier binds one fixed Channel to a replaceable Strategy and an
// ordered set of Observers. Each Send call is a complete synchronous
// unit of work: format, dispatch, fan out, return.
type Notifier struct {
	channel   Channel
	strategy  Strategy
	observers []Observer
}

// NewNotifier creates a notifier for the given channel with the
// immediate strategy as default.
func NewNotifier(channel Channel) *Notifier {
	return &Notifier{
		channel:  channel,
		strategy: NewImmediateStrategy(nil),
	}
}

// SetStrategy replaces the active strategy. A nil strategy is ignored.
func (n *Notifier) SetStrategy(s Strategy) {
	if s == nil {
		return
	}
	n.strategy = s
}

// Strategy returns the active strategy.
func (n *Notifier) Strategy() Strategy { return n.strategy }

// AddObserver appends an observer to the fan-out list.
func (n *Notifier) AddObserver(o Observer) {
	n.observers = append(n.observers, o)
}

// RemoveObserver removes the first occurrence of the observer. Removing
// an observer that was never added is a no-op.
func (n *Notifier) RemoveObserver(o Observer) {
	for i, existing := range n.observers {
		if existing == o {
			n.observers = append(n.observers[:i], n.observers[i+1:]...)
			return
		}
	}
}

// Send formats one message per recipient (input order preserved),
// dispatches the whole list via the active strategy, and notifies every
// observer exactly once with the full result batch.
func (n *Notifier) Send(ctx context.Context, content string, recipients []string) []SendResult {
	messages := make([]Message, 0, len(recipients))
	for _, recipient := range recipients {
		messages = append(messages, n.channel.Format(content, recipient))
	}

	results := n.strategy.Dispatch(ctx, messages)

	for _, observer := range n.observers {
		observer.OnDispatch(results)
	}

	return results
}
