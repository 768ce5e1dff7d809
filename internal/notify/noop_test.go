package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoOpNotifier_Send(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := n.Send(context.Background(), Message{Title: "BACK IN STOCK: Widget", Text: "hi", Priority: true})
	require.NoError(t, err)
}

// compile-time interface checks.
var (
	_ Notifier = (*NoOpNotifier)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*DiscordNotifier)(nil)
)
