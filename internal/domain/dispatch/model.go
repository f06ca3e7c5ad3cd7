package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies a delivery medium.
type Kind string

const (
	KindEmail Kind = "email"
	KindSMS   Kind = "sms"
	KindPush  Kind = "push"
)

// Message is a channel-formatted notification addressed to one recipient.
// It is immutable once built by a Channel.
type Message struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage builds a message with a fresh ID and timestamp.
func NewMessage(kind Kind, recipient, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Content:   content,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// SendResult is the outcome of dispatching one Message.
type SendResult struct {
	Success bool    `json:"success"`
	Message Message `json:"message"`
	Detail  string  `json:"detail,omitempty"`
}

// DispatchRequest is the API request payload for dispatching a notification.
type DispatchRequest struct {
	Kind         Kind     `json:"kind" binding:"required,oneof=email sms push"`
	Content      string   `json:"content" binding:"required"`
	Recipients   []string `json:"recipients" binding:"required,min=1"`
	Strategy     string   `json:"strategy"`
	BatchSize    int      `json:"batch_size"`
	DelaySeconds int      `json:"delay_seconds"`
	Mode         string   `json:"mode"`
}

// DispatchResponse is the API response payload after a dispatch call.
type DispatchResponse struct {
	Kind     Kind         `json:"kind"`
	Strategy string       `json:"strategy"`
	Mode     string       `json:"mode"`
	Results  []SendResult `json:"results,omitempty"`
	Queued   []string     `json:"queued,omitempty"`
}
