package main

import "errors"

// KnownMetrics is the set of metric names exported by stock-monitor plus
// recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"stockmon_http_request_duration_seconds_bucket": true,
	"stockmon_http_requests_total":                  true,
	"stockmon_http_requests_in_flight":              true,
	"stockmon_http_panics_total":                    true,

	// Health metrics.
	"stockmon_healthz_up": true,
	"stockmon_readyz_up":  true,

	// Cycle metrics.
	"stockmon_cycles_total":                  true,
	"stockmon_cycle_duration_seconds_bucket": true,
	"stockmon_next_cycle_timestamp_seconds":  true,

	// Fetch metrics.
	"stockmon_fetch_attempts_total":    true,
	"stockmon_fetch_failures_total":    true,
	"stockmon_upstream_requests_total": true,

	// Item metrics.
	"stockmon_item_available":    true,
	"stockmon_item_stock":        true,
	"stockmon_item_price":        true,
	"stockmon_transitions_total": true,

	// Notification metrics.
	"stockmon_notifications_sent_total":             true,
	"stockmon_notification_failures_total":          true,
	"stockmon_notification_duration_seconds_bucket": true,

	// State metrics.
	"stockmon_state_load_failures_total": true,
	"stockmon_state_save_failures_total": true,
	"stockmon_state_save_skipped_total":  true,

	// Recording rules.
	"stockmon:http_requests:rate5m":         true,
	"stockmon:http_errors:rate5m":           true,
	"stockmon:cycles:rate5m":                true,
	"stockmon:cycle_errors:rate5m":          true,
	"stockmon:fetch_misses:rate5m":          true,
	"stockmon:notification_failures:rate5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
