package dispatch

import "fmt"

// smsMaxLen is the classic single-segment SMS length.
const smsMaxLen = 160

// Channel formats raw content into a channel-appropriate Message.
// Implementations are stateless and must never fail: formatting is a
// pure, total transformation (possibly lossy for SMS).
type Channel interface {
	// Kind returns which delivery medium this channel formats for.
	Kind() Kind

	// Format builds a Message for one recipient. Every Message it
	// returns carries this channel's Kind.
	Format(content, recipient string) Message
}

var _ Channel = (*EmailChannel)(nil)

// EmailChannel wraps content with a From/To header block.
type EmailChannel struct {
	from string
}

// NewEmailChannel creates an email channel sending from the given address.
func NewEmailChannel(from string) *EmailChannel {
	if from == "" {
		from = "noreply@example.com"
	}
	return &EmailChannel{from: from}
}

func (c *EmailChannel) Kind() Kind { return KindEmail }

func (c *EmailChannel) Format(content, recipient string) Message {
	body := fmt.Sprintf("From: %s\nTo: %s\n\n%s", c.from, recipient, content)
	return NewMessage(KindEmail, recipient, body)
}

var _ Channel = (*SMSChannel)(nil)

// SMSChannel truncates content to a single SMS segment.
type SMSChannel struct{}

// NewSMSChannel creates an SMS channel.
func NewSMSChannel() *SMSChannel { return &SMSChannel{} }

func (c *SMSChannel) Kind() Kind { return KindSMS }

func (c *SMSChannel) Format(content, recipient string) Message {
	// Length is counted in runes so multi-byte content is not cut
	// mid-character.
	if runes := []rune(content); len(runes) > smsMaxLen {
		content = string(runes[:smsMaxLen-3]) + "..."
	}
	return NewMessage(KindSMS, recipient, content)
}

var _ Channel = (*PushChannel)(nil)

// PushChannel prefixes content with the application identifier.
type PushChannel struct {
	appID string
}

// NewPushChannel creates a push channel for the given application.
func NewPushChannel(appID string) *PushChannel {
	if appID == "" {
		appID = "courier"
	}
	return &PushChannel{appID: appID}
}

func (c *PushChannel) Kind() Kind { return KindPush }

func (c *PushChannel) Format(content, recipient string) Message {
	return NewMessage(KindPush, recipient, c.appID+": "+content)
}
