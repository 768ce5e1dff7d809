package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded messages. It is used
// when no notification backend is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards messages with a log line.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// Send logs and discards msg.
func (n *NoOpNotifier) Send(_ context.Context, msg Message) error {
	n.log.Debug("notification discarded (no backend configured)",
		"title", msg.Title,
		"priority", msg.Priority,
	)
	return nil
}
