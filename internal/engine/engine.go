// Package engine runs monitoring cycles: fetch every tracked item, compare
// its availability with the persisted state, notify on flips and persist
// the merged state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/stock-monitor/internal/metrics"
	"github.com/donaldgifford/stock-monitor/internal/notify"
	"github.com/donaldgifford/stock-monitor/internal/shopee"
	"github.com/donaldgifford/stock-monitor/internal/state"
	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

const (
	defaultItemDelay = 2 * time.Second
	saveTimeout      = 10 * time.Second
)

var tracer = otel.Tracer("github.com/donaldgifford/stock-monitor/internal/engine")

// Engine owns one monitoring cycle end to end. RunCycle must not be called
// concurrently; the read accessors are safe from any goroutine.
type Engine struct {
	fetcher    shopee.ProductFetcher
	store      state.Store
	dispatcher *notify.Dispatcher
	messages   *notify.MessageBuilder
	items      []domain.TrackedItem
	log        *slog.Logger
	itemDelay  time.Duration
	nowFunc    func() time.Time

	// loaded is set once the store has returned a mapping. Until then the
	// in-memory state may lack persisted keys, so it is never saved.
	loaded bool

	mu    sync.RWMutex
	state domain.AvailabilityState
	last  *domain.CycleReport
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithItemDelay sets the pause between consecutive item checks.
func WithItemDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.itemDelay = d
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(fn func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = fn
	}
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	f shopee.ProductFetcher,
	s state.Store,
	d *notify.Dispatcher,
	mb *notify.MessageBuilder,
	items []domain.TrackedItem,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		fetcher:    f,
		store:      s,
		dispatcher: d,
		messages:   mb,
		items:      items,
		log:        slog.Default(),
		itemDelay:  defaultItemDelay,
		nowFunc:    time.Now,
		state:      domain.AvailabilityState{},
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// Items returns the tracked items in check order.
func (eng *Engine) Items() []domain.TrackedItem {
	out := make([]domain.TrackedItem, len(eng.items))
	copy(out, eng.items)
	return out
}

// State returns a copy of the availability state after the last cycle.
func (eng *Engine) State() domain.AvailabilityState {
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	return eng.state.Clone()
}

// LastReport returns the most recent cycle report, or nil before the first
// cycle completes.
func (eng *Engine) LastReport() *domain.CycleReport {
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	return eng.last
}

// Ready reports whether at least one cycle has completed.
func (eng *Engine) Ready() bool {
	return eng.LastReport() != nil
}

// RunCycle checks every tracked item once. Per-item failures are recorded
// in the report and never abort the cycle; the only error returned is
// context cancellation, in which case the partial state is still saved.
func (eng *Engine) RunCycle(ctx context.Context) (*domain.CycleReport, error) {
	start := eng.nowFunc()
	report := &domain.CycleReport{
		ID:        uuid.New(),
		StartedAt: start.UTC(),
		Events:    []domain.NotificationEvent{},
		Results:   make([]domain.ItemResult, 0, len(eng.items)),
	}

	ctx, span := tracer.Start(ctx, "engine.RunCycle",
		trace.WithAttributes(attribute.String("cycle_id", report.ID.String())))
	defer span.End()

	eng.log.Info("cycle starting", "cycle_id", report.ID, "items", len(eng.items))

	next, fromStore := eng.loadState(ctx)

	var cycleErr error
	for i, item := range eng.items {
		if i > 0 && !eng.pause(ctx) {
			cycleErr = ctx.Err()
			break
		}
		if err := ctx.Err(); err != nil {
			cycleErr = err
			break
		}
		report.Results = append(report.Results, eng.checkItem(ctx, item, next, report))
	}

	if fromStore {
		eng.loaded = true
	}
	if eng.loaded {
		eng.saveState(ctx, next)
	} else {
		metrics.StateSaveSkippedTotal.Inc()
		eng.log.Warn("state never loaded, skipping save to keep persisted keys")
	}

	report.Duration = eng.nowFunc().Sub(start)
	metrics.CycleDuration.Observe(report.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("checked", report.Checked),
		attribute.Int("failed", report.Failed),
		attribute.Int("notified", report.Notified),
	)

	eng.mu.Lock()
	eng.state = next.Clone()
	if cycleErr == nil {
		eng.last = report
	}
	eng.mu.Unlock()

	if cycleErr != nil {
		return report, fmt.Errorf("cycle interrupted: %w", cycleErr)
	}
	return report, nil
}

// loadState returns the persisted mapping, falling back to the in-memory
// copy from the previous cycle when the store is unavailable. The boolean
// reports whether the mapping came from the store.
func (eng *Engine) loadState(ctx context.Context) (domain.AvailabilityState, bool) {
	st, err := eng.store.Load(ctx)
	if err != nil {
		metrics.StateLoadFailuresTotal.Inc()
		eng.log.Error("loading state failed, using in-memory state", "error", err)
		return eng.State(), false
	}

	if st == nil {
		return domain.AvailabilityState{}, true
	}
	return st.Clone(), true
}

func (eng *Engine) saveState(ctx context.Context, st domain.AvailabilityState) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if err := eng.store.Save(ctx, st); err != nil {
		metrics.StateSaveFailuresTotal.Inc()
		eng.log.Error("saving state failed", "error", err)
	}
}

func (eng *Engine) checkItem(
	ctx context.Context,
	item domain.TrackedItem,
	next domain.AvailabilityState,
	report *domain.CycleReport,
) domain.ItemResult {
	report.Checked++
	res := domain.ItemResult{Item: item}

	snap, err := eng.fetcher.Fetch(ctx, item)
	if err != nil {
		report.Failed++
		res.Error = err.Error()
		eng.log.Warn("product check failed", "item", item.Key(), "error", err)
		return res
	}
	res.Snapshot = snap

	status := "SOLD OUT"
	if snap.Available {
		status = "READY"
	}
	eng.log.Info("product checked",
		"item", item.Key(),
		"name", snap.Name,
		"price", eng.messages.FormatPrice(snap.Price),
		"stock", snap.Stock,
		"status", status,
		"strategy", snap.Strategy,
	)
	eng.recordItemMetrics(item, snap)

	previous, known := next.Lookup(item)
	if ev := Detect(item, previous, known, *snap); ev != nil {
		direction := "unavailable"
		if ev.Current {
			direction = "available"
		}
		metrics.TransitionsTotal.WithLabelValues(direction).Inc()
		eng.log.Info("availability changed",
			"item", item.Key(),
			"available", ev.Current,
		)

		res.Notified = eng.dispatcher.Notify(ctx, eng.messages.StockChange(ev))
		if res.Notified {
			report.Notified++
		}
		report.Events = append(report.Events, *ev)
	}

	next[item.Key()] = snap.Available
	return res
}

func (eng *Engine) recordItemMetrics(item domain.TrackedItem, snap *domain.Snapshot) {
	key := item.Key()
	avail := 0.0
	if snap.Available {
		avail = 1
	}
	metrics.ItemAvailable.WithLabelValues(key).Set(avail)
	metrics.ItemStock.WithLabelValues(key).Set(float64(snap.Stock))
	metrics.ItemPrice.WithLabelValues(key).Set(snap.Price.InexactFloat64())
}

func (eng *Engine) pause(ctx context.Context) bool {
	if eng.itemDelay <= 0 {
		return true
	}
	t := time.NewTimer(eng.itemDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SendStartup announces the monitor and its item list.
func (eng *Engine) SendStartup(ctx context.Context, interval time.Duration) bool {
	return eng.dispatcher.Notify(ctx, eng.messages.Startup(eng.items, interval))
}

// SendStopped announces a graceful shutdown.
func (eng *Engine) SendStopped(ctx context.Context, reason string) bool {
	return eng.dispatcher.Notify(ctx, eng.messages.Stopped(reason))
}

// ReportFailure sends a best-effort cycle failure message.
func (eng *Engine) ReportFailure(ctx context.Context, err error, retryIn time.Duration) {
	eng.dispatcher.Notify(ctx, eng.messages.CycleFailure(err, retryIn))
}

// SendHeartbeat sends the current availability summary.
func (eng *Engine) SendHeartbeat(ctx context.Context) {
	eng.dispatcher.Notify(ctx, eng.messages.Heartbeat(eng.items, eng.State(), eng.LastReport()))
}
