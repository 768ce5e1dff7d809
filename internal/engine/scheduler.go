package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/stock-monitor/internal/metrics"
	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

const defaultRecoveryInterval = 60 * time.Second

// Runner is the work the Scheduler drives. *Engine implements it.
type Runner interface {
	RunCycle(ctx context.Context) (*domain.CycleReport, error)
	ReportFailure(ctx context.Context, err error, retryIn time.Duration)
	SendHeartbeat(ctx context.Context)
}

// Scheduler runs cycles back to back with a fixed sleep between them. Every
// cycle, heartbeat and failure report runs on the goroutine that called
// Run; manual triggers and the heartbeat cron only wake that goroutine.
type Scheduler struct {
	runner         Runner
	interval       time.Duration
	recovery       time.Duration
	reportFailures bool
	log            *slog.Logger
	nowFunc        func() time.Time

	cron           *cron.Cron
	heartbeatEntry cron.EntryID

	trigger chan struct{}
	beat    chan struct{}
}

// SchedulerOption configures the Scheduler.
type SchedulerOption func(*Scheduler)

// WithRecoveryInterval sets the sleep after a failed cycle.
func WithRecoveryInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.recovery = d
	}
}

// WithFailureReports enables notifications for failed cycles.
func WithFailureReports(enabled bool) SchedulerOption {
	return func(s *Scheduler) {
		s.reportFailures = enabled
	}
}

// WithSchedulerLogger sets a custom logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.log = l
	}
}

// WithSchedulerNowFunc overrides the time function for testing.
func WithSchedulerNowFunc(fn func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.nowFunc = fn
	}
}

// NewScheduler creates a Scheduler. A non-empty heartbeat is a cron
// expression (standard five fields or descriptors such as "@daily").
func NewScheduler(
	r Runner,
	interval time.Duration,
	heartbeat string,
	opts ...SchedulerOption,
) (*Scheduler, error) {
	s := &Scheduler{
		runner:   r,
		interval: interval,
		recovery: defaultRecoveryInterval,
		log:      slog.Default(),
		nowFunc:  time.Now,
		cron:     cron.New(),
		trigger:  make(chan struct{}, 1),
		beat:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	if heartbeat != "" {
		id, err := s.cron.AddFunc(heartbeat, s.signalHeartbeat)
		if err != nil {
			return nil, fmt.Errorf("parsing heartbeat schedule %q: %w", heartbeat, err)
		}
		s.heartbeatEntry = id
	}

	return s, nil
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Trigger requests an immediate cycle. It returns false when a request is
// already pending.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) signalHeartbeat() {
	select {
	case s.beat <- struct{}{}:
	default:
	}
}

// Run executes a cycle immediately and then keeps cycling until ctx is
// cancelled. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.heartbeatEntry != 0 {
		s.cron.Start()
		defer func() { <-s.cron.Stop().Done() }()
	}

	s.log.Info("scheduler started",
		"interval", s.interval,
		"recovery_interval", s.recovery,
	)

	for {
		wait := s.runOnce(ctx)
		if ctx.Err() != nil {
			s.log.Info("scheduler stopped")
			return nil
		}

		metrics.NextCycleTimestamp.Set(float64(s.nowFunc().Add(wait).Unix()))
		if !s.sleep(ctx, wait) {
			s.log.Info("scheduler stopped")
			return nil
		}
	}
}

// sleep waits for the next cycle, serving heartbeats meanwhile. It returns
// false when ctx is cancelled.
func (s *Scheduler) sleep(ctx context.Context, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case <-s.trigger:
			s.log.Info("manual check requested")
			return true
		case <-s.beat:
			s.guard("heartbeat", func() { s.runner.SendHeartbeat(ctx) })
		}
	}
}

// runOnce runs one cycle and returns how long to wait before the next. A
// cycle that errors or panics is followed by the recovery interval.
func (s *Scheduler) runOnce(ctx context.Context) (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			metrics.CyclesTotal.WithLabelValues("panic").Inc()
			err := fmt.Errorf("cycle panicked: %v", r)
			s.log.Error("monitoring cycle panicked",
				"error", err,
				"stack", string(debug.Stack()),
				"retry_in", s.recovery,
			)
			s.reportFailure(ctx, err)
			wait = s.recovery
		}
	}()

	report, err := s.runner.RunCycle(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		s.log.Error("monitoring cycle failed", "error", err, "retry_in", s.recovery)
		s.reportFailure(ctx, err)
		return s.recovery
	}

	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	if report != nil {
		s.log.Info("cycle complete",
			"cycle_id", report.ID,
			"checked", report.Checked,
			"failed", report.Failed,
			"notified", report.Notified,
			"duration", report.Duration,
			"next_in", s.interval,
		)
	}
	return s.interval
}

func (s *Scheduler) reportFailure(ctx context.Context, err error) {
	if !s.reportFailures {
		return
	}
	s.guard("failure report", func() { s.runner.ReportFailure(ctx, err, s.recovery) })
}

// guard runs fn, logging instead of propagating a panic.
func (s *Scheduler) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(what+" panicked", "error", fmt.Sprint(r))
		}
	}()
	fn()
}
