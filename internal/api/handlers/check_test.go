package handlers_test

import (
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/stock-monitor/internal/api/handlers"
)

type fakeTrigger struct {
	queued bool
	calls  int
}

func (f *fakeTrigger) Trigger() bool {
	f.calls++
	return f.queued
}

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		queued     bool
		wantStatus string
	}{
		{name: "queues a cycle", queued: true, wantStatus: `"status":"check queued"`},
		{name: "merges into pending cycle", queued: false, wantStatus: `"status":"check already queued"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			trig := &fakeTrigger{queued: tt.queued}
			_, api := humatest.New(t)
			handlers.RegisterCheckRoutes(api, handlers.NewCheckHandler(trig))

			resp := api.Post("/api/v1/check")
			require.Equal(t, http.StatusAccepted, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.wantStatus)
			assert.Equal(t, 1, trig.calls)
		})
	}
}
