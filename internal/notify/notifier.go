// Package notify delivers stock alerts and operational messages to a chat
// backend. Message text uses Telegram's HTML subset; backends without HTML
// support flatten it to plain text.
package notify

import (
	"context"
)

// Message is one outbound notification.
type Message struct {
	Title    string
	Text     string
	URL      string
	Priority bool
}

// Notifier sends a single message to one backend.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
