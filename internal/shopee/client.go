// Package shopee fetches product availability from Shopee's undocumented
// item endpoints. A Fetcher walks an ordered list of retrieval strategies
// and returns the first successful, normalized snapshot.
package shopee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/stock-monitor/internal/metrics"
	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

var (
	// ErrMiss marks a strategy attempt that produced no usable product data.
	ErrMiss = errors.New("strategy miss")

	// ErrAllStrategiesFailed is returned by Fetch when every strategy missed.
	ErrAllStrategiesFailed = errors.New("all strategies failed")
)

var tracer = otel.Tracer("github.com/donaldgifford/stock-monitor/internal/shopee")

// ProductFetcher defines the interface for obtaining a product snapshot.
type ProductFetcher interface {
	Fetch(ctx context.Context, item domain.TrackedItem) (*domain.Snapshot, error)
}

// Strategy is one retrieval method for product data. A miss is reported as
// an error; it is never fatal to the caller.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, item domain.TrackedItem) (*domain.Snapshot, error)
}

// Fetcher implements ProductFetcher over an ordered strategy list.
type Fetcher struct {
	strategies []Strategy
	log        *slog.Logger
	nowFunc    func() time.Time
}

// FetcherOption configures the Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherLogger sets a custom logger.
func WithFetcherLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.log = l
	}
}

// WithFetcherNowFunc overrides the time function for testing.
func WithFetcherNowFunc(fn func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		f.nowFunc = fn
	}
}

// NewFetcher creates a Fetcher that tries strategies in the given order.
func NewFetcher(strategies []Strategy, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		strategies: strategies,
		log:        slog.Default(),
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Strategies returns the strategy names in priority order.
func (f *Fetcher) Strategies() []string {
	names := make([]string, 0, len(f.strategies))
	for _, s := range f.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Fetch tries each strategy in order and returns the first hit. When every
// strategy misses the error wraps ErrAllStrategiesFailed and each miss.
func (f *Fetcher) Fetch(
	ctx context.Context,
	item domain.TrackedItem,
) (*domain.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "shopee.Fetch",
		trace.WithAttributes(attribute.String("item", item.Key())))
	defer span.End()

	misses := make([]error, 0, len(f.strategies))

	for _, s := range f.strategies {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "canceled")
			return nil, fmt.Errorf("fetching %s: %w", item.Key(), err)
		}

		snap, err := f.attempt(ctx, s, item)
		if err == nil {
			metrics.FetchAttemptsTotal.WithLabelValues(s.Name(), "hit").Inc()
			span.SetAttributes(attribute.String("strategy", s.Name()))
			return snap, nil
		}

		metrics.FetchAttemptsTotal.WithLabelValues(s.Name(), "miss").Inc()
		f.log.Warn("strategy missed",
			"item", item.Key(),
			"strategy", s.Name(),
			"error", err,
		)
		misses = append(misses, fmt.Errorf("%s: %w", s.Name(), err))
	}

	metrics.FetchFailuresTotal.Inc()
	span.SetStatus(codes.Error, ErrAllStrategiesFailed.Error())

	return nil, fmt.Errorf("%w for %s: %w",
		ErrAllStrategiesFailed, item.Key(), errors.Join(misses...))
}

func (f *Fetcher) attempt(
	ctx context.Context,
	s Strategy,
	item domain.TrackedItem,
) (snap *domain.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "shopee.Attempt",
		trace.WithAttributes(attribute.String("strategy", s.Name())))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			snap = nil
			err = fmt.Errorf("%w: strategy panicked: %v", ErrMiss, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "miss")
		}
	}()

	snap, err = s.Attempt(ctx, item)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: empty result", ErrMiss)
	}

	snap.Strategy = s.Name()
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = f.nowFunc().UTC()
	}
	return snap, nil
}
