package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/stock-monitor/internal/metrics"
	"github.com/donaldgifford/stock-monitor/internal/state"
	"github.com/donaldgifford/stock-monitor/pkg/logger"
	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

func TestAwaitScheduler_OpsServerFailureKeepsMonitoring(t *testing.T) {
	schedErr := make(chan error, 1)
	srvErr := make(chan error, 1)
	before := ptestutil.ToFloat64(metrics.OpsServerFailuresTotal)

	done := make(chan error, 1)
	go func() { done <- awaitScheduler(schedErr, srvErr, logger.Discard()) }()

	srvErr <- errors.New("listen tcp 127.0.0.1:8080: bind: address already in use")

	assert.Never(t, func() bool { return len(done) > 0 }, 100*time.Millisecond, 10*time.Millisecond,
		"a failed ops server must not end the monitor")
	assert.InDelta(t, before+1, ptestutil.ToFloat64(metrics.OpsServerFailuresTotal), 0)

	schedErr <- nil
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("awaitScheduler did not return after the scheduler stopped")
	}
}

func TestAwaitScheduler_CleanServerStop(t *testing.T) {
	schedErr := make(chan error, 1)
	srvErr := make(chan error, 1)
	before := ptestutil.ToFloat64(metrics.OpsServerFailuresTotal)

	srvErr <- nil
	schedErr <- nil

	require.NoError(t, awaitScheduler(schedErr, srvErr, logger.Discard()))
	assert.InDelta(t, before, ptestutil.ToFloat64(metrics.OpsServerFailuresTotal), 0)
}

func TestRunMonitor_OpsPortInUse(t *testing.T) {
	var fetches atomic.Int64
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v4/item/get" {
			fetches.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"name":"Widget","stock":4,"price":15000000000}}`))
	}))
	t.Cleanup(shop.Close)

	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = taken.Close() })
	port := taken.Addr().(*net.TCPAddr).Port

	dir := t.TempDir()
	statePath := filepath.Join(dir, "product_state.json")
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf(`
shopee:
  base_url: %s
  max_attempts: 1
  strategies: [standard]
  rate_limit:
    per_second: 100
    burst: 10
items:
  - shop_id: "1"
    item_id: "2"
state:
  path: %s
notifications:
  backend: none
server:
  enabled: true
  host: 127.0.0.1
  port: %d
logging:
  level: error
`, shop.URL, statePath, port)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	viper.Set("config", cfgPath)
	t.Cleanup(func() { viper.Set("config", "config.yaml") })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, runMonitor(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond,
		"monitor should run until its context ends")
	assert.Positive(t, fetches.Load())

	st, err := state.NewFileStore(statePath, state.WithFileLogger(logger.Discard())).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityState{"1_2": true}, st)
}
