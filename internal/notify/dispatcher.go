package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/stock-monitor/internal/metrics"
)

const (
	// EmptyMessagePlaceholder replaces blank message text, which chat APIs reject.
	EmptyMessagePlaceholder = "(empty message)"

	defaultPriorityRepeat = 3
	defaultRepeatDelay    = 2 * time.Second
)

var tracer = otel.Tracer("github.com/donaldgifford/stock-monitor/internal/notify")

// Dispatcher applies delivery policy on top of a Notifier: priority messages
// are sent several times so they stand out in the chat, and failures never
// propagate to the caller.
type Dispatcher struct {
	notifier Notifier
	repeat   int
	delay    time.Duration
	log      *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPriorityRepeat sets how many times a priority message is sent and the
// pause between sends.
func WithPriorityRepeat(n int, delay time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.repeat = max(n, 1)
		d.delay = max(delay, 0)
	}
}

// WithDispatcherLogger sets a custom logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.log = l
	}
}

// NewDispatcher wraps n with the default delivery policy.
func NewDispatcher(n Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		notifier: n,
		repeat:   defaultPriorityRepeat,
		delay:    defaultRepeatDelay,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify sends msg and reports whether at least one send succeeded.
// Priority messages are sent repeatedly; cancelling ctx stops further
// repeats.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) bool {
	if strings.TrimSpace(msg.Text) == "" {
		msg.Text = EmptyMessagePlaceholder
	}

	sends := 1
	if msg.Priority {
		sends = d.repeat
	}

	ctx, span := tracer.Start(ctx, "notify.Notify", trace.WithAttributes(
		attribute.Bool("priority", msg.Priority),
		attribute.Int("sends", sends),
	))
	defer span.End()

	delivered := 0
	for i := range sends {
		if i > 0 && !sleep(ctx, d.delay) {
			d.log.Debug("notification repeats cancelled", "title", msg.Title, "sent", i)
			break
		}

		start := time.Now()
		err := d.notifier.Send(ctx, msg)
		metrics.NotificationDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.NotificationFailuresTotal.Inc()
			d.log.Warn("notification send failed",
				"title", msg.Title,
				"attempt", i+1,
				"error", err,
			)
			continue
		}

		metrics.NotificationsSentTotal.Inc()
		delivered++
	}

	span.SetAttributes(attribute.Int("delivered", delivered))
	return delivered > 0
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
