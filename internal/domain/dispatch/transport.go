package dispatch

import (
	"context"
	"log/slog"
)

// Transport is the seam where a real delivery gateway (SMTP relay, SMS
// gateway, push service) plugs in. Strategies hand it fully formatted
// messages; one call covers one delivery unit (a single message for
// immediate dispatch, a whole group for batch dispatch).
type Transport interface {
	Deliver(ctx context.Context, msgs []Message) error
}

var _ Transport = (*LogTransport)(nil)

// LogTransport is the default transport: it records each delivery with
// the structured logger instead of calling out to a gateway.
type LogTransport struct{}

// NewLogTransport creates a logging transport.
func NewLogTransport() *LogTransport { return &LogTransport{} }

// Deliver logs one line per message.
func (t *LogTransport) Deliver(ctx context.Context, msgs []Message) error {
	for _, msg := range msgs {
		slog.Info("delivering message",
			"message_id", msg.ID,
			"kind", msg.Kind,
			"to", msg.Recipient,
			"bytes", len(msg.Content),
		)
	}
	return nil
}
