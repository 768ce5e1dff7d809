// Package metrics defines Prometheus metrics for stock-monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stockmon"

// HTTP metrics for the ops API. Routes are labeled by their registered
// template, never the raw URL.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})

	HTTPPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_panics_total",
		Help:      "Handler panics recovered by the ops API, by route.",
	}, []string{"route"})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 if the last /healthz request succeeded.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 if the last /readyz request succeeded.",
	})

	OpsServerFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ops_server_failures_total",
		Help:      "Times the ops HTTP server stopped with an error while monitoring continued.",
	})
)

// Cycle metrics.
var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Total monitoring cycles by outcome (ok, error, panic).",
	}, []string{"outcome"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of monitoring cycles in seconds.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	NextCycleTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "next_cycle_timestamp_seconds",
		Help:      "Unix time at which the next cycle is scheduled.",
	})
)

// Fetch metrics.
var (
	FetchAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_attempts_total",
		Help:      "Strategy attempts by strategy and result (hit, miss).",
	}, []string{"strategy", "result"})

	FetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_failures_total",
		Help:      "Fetches where every strategy missed.",
	})

	UpstreamRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Total HTTP requests sent to the marketplace, including retries and warm-ups.",
	})
)

// Item metrics, labeled by state key.
var (
	ItemAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "item_available",
		Help:      "1 if the item was in stock at the last successful fetch.",
	}, []string{"item"})

	ItemStock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "item_stock",
		Help:      "Stock count at the last successful fetch.",
	}, []string{"item"})

	ItemPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "item_price",
		Help:      "Canonical price at the last successful fetch.",
	}, []string{"item"})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Availability flips by direction (available, unavailable).",
	}, []string{"direction"})
)

// Notification metrics.
var (
	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total successful notification sends, counting each repeat.",
	})

	NotificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total failed notification sends.",
	})

	NotificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of a single notification send in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
)

// State metrics.
var (
	StateLoadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_load_failures_total",
		Help:      "State loads that failed or found corrupt data.",
	})

	StateSaveFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_save_failures_total",
		Help:      "State saves that failed.",
	})

	StateSaveSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_save_skipped_total",
		Help:      "Cycles that skipped saving because no state was ever loaded.",
	})
)
