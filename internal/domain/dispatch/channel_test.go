package dispatch

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChannelKindMatchesMessage(t *testing.T) {
	tests := []struct {
		name    string
		channel Channel
		want    Kind
	}{
		{"email", NewEmailChannel("team@company.com"), KindEmail},
		{"sms", NewSMSChannel(), KindSMS},
		{"push", NewPushChannel("myapp"), KindPush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.channel.Kind() != tt.want {
				t.Fatalf("Kind() = %s, want %s", tt.channel.Kind(), tt.want)
			}
			msg := tt.channel.Format("hello", "recipient-1")
			if msg.Kind != tt.want {
				t.Fatalf("message kind = %s, want %s", msg.Kind, tt.want)
			}
			if msg.Recipient != "recipient-1" {
				t.Fatalf("recipient = %q, want recipient-1", msg.Recipient)
			}
			if msg.ID == "" {
				t.Fatal("expected message ID to be assigned")
			}
			if msg.CreatedAt.IsZero() {
				t.Fatal("expected creation timestamp to be set")
			}
		})
	}
}

func TestEmailChannelHeaderBlock(t *testing.T) {
	ch := NewEmailChannel("team@company.com")
	msg := ch.Format("Welcome aboard", "alice@test.com")

	if !strings.Contains(msg.Content, "From: team@company.com") {
		t.Fatalf("missing From header in %q", msg.Content)
	}
	if !strings.Contains(msg.Content, "To: alice@test.com") {
		t.Fatalf("missing To header in %q", msg.Content)
	}
	if !strings.HasSuffix(msg.Content, "Welcome aboard") {
		t.Fatalf("body should end with original content, got %q", msg.Content)
	}
}

func TestSMSChannelTruncation(t *testing.T) {
	ch := NewSMSChannel()

	t.Run("short content unchanged", func(t *testing.T) {
		msg := ch.Format("short message", "+33611111111")
		if msg.Content != "short message" {
			t.Fatalf("content changed: %q", msg.Content)
		}
	})

	t.Run("exactly 160 unchanged", func(t *testing.T) {
		content := strings.Repeat("x", 160)
		msg := ch.Format(content, "+33611111111")
		if msg.Content != content {
			t.Fatalf("160-char content should be unchanged, got %d chars", len(msg.Content))
		}
	})

	t.Run("long content truncated with marker", func(t *testing.T) {
		msg := ch.Format(strings.Repeat("a", 200), "+33611111111")
		if len(msg.Content) > 160 {
			t.Fatalf("content length = %d, want <= 160", len(msg.Content))
		}
		if !strings.HasSuffix(msg.Content, "...") {
			t.Fatalf("expected truncation marker, got %q", msg.Content[len(msg.Content)-5:])
		}
	})

	t.Run("multi-byte content within limit unchanged", func(t *testing.T) {
		content := strings.Repeat("é", 100)
		msg := ch.Format(content, "+33611111111")
		if msg.Content != content {
			t.Fatalf("100-char content should be unchanged, got %d chars", utf8.RuneCountInString(msg.Content))
		}
	})

	t.Run("multi-byte content truncated on rune boundary", func(t *testing.T) {
		msg := ch.Format(strings.Repeat("é", 200), "+33611111111")
		if n := utf8.RuneCountInString(msg.Content); n != 160 {
			t.Fatalf("content length = %d runes, want 160", n)
		}
		if !utf8.ValidString(msg.Content) {
			t.Fatal("truncation produced invalid UTF-8")
		}
		if !strings.HasSuffix(msg.Content, "é...") {
			t.Fatalf("expected intact last rune before marker, got %q", msg.Content[len(msg.Content)-8:])
		}
	})
}

func TestPushChannelPrefix(t *testing.T) {
	ch := NewPushChannel("myapp")
	msg := ch.Format("Update available", "device_token_1")

	if msg.Content != "myapp: Update available" {
		t.Fatalf("content = %q", msg.Content)
	}
}

func TestChannelConstructorDefaults(t *testing.T) {
	email := NewEmailChannel("")
	if !strings.Contains(email.Format("hi", "a@x.com").Content, "From: noreply@example.com") {
		t.Fatal("expected default sender address")
	}

	push := NewPushChannel("")
	if !strings.HasPrefix(push.Format("hi", "tok").Content, "courier: ") {
		t.Fatal("expected default app id prefix")
	}
}
