package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistered(t *testing.T) {
	t.Parallel()

	// Verify all metrics are non-nil (registered via promauto on package init).
	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, HTTPRequestsTotal)
	assert.NotNil(t, HTTPRequestsInFlight)
	assert.NotNil(t, HTTPPanicsTotal)
	assert.NotNil(t, HealthzUp)
	assert.NotNil(t, ReadyzUp)
	assert.NotNil(t, CyclesTotal)
	assert.NotNil(t, CycleDuration)
	assert.NotNil(t, NextCycleTimestamp)
	assert.NotNil(t, FetchAttemptsTotal)
	assert.NotNil(t, FetchFailuresTotal)
	assert.NotNil(t, UpstreamRequestsTotal)
	assert.NotNil(t, ItemAvailable)
	assert.NotNil(t, ItemStock)
	assert.NotNil(t, ItemPrice)
	assert.NotNil(t, TransitionsTotal)
	assert.NotNil(t, NotificationsSentTotal)
	assert.NotNil(t, NotificationFailuresTotal)
	assert.NotNil(t, NotificationDuration)
	assert.NotNil(t, StateLoadFailuresTotal)
	assert.NotNil(t, StateSaveFailuresTotal)
	assert.NotNil(t, StateSaveSkippedTotal)
	assert.NotNil(t, OpsServerFailuresTotal)
}
