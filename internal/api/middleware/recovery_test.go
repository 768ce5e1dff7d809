package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/donaldgifford/stock-monitor/internal/api/middleware"
	"github.com/donaldgifford/stock-monitor/internal/metrics"
)

func newRecoveryEcho(buf *bytes.Buffer, route string, h echo.HandlerFunc) *echo.Echo {
	log := slog.New(slog.NewTextHandler(buf, nil))
	e := echo.New()
	e.Use(mw.RequestLog(log), mw.Recovery(log))
	e.GET(route, h)
	return e
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		route      string
		target     string
		handler    echo.HandlerFunc
		wantStatus int
		wantPanics float64
		wantLog    []string
	}{
		{
			name:   "no panic passes through",
			route:  "/healthz",
			target: "/healthz",
			handler: func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "string panic on templated route",
			route:  "/api/v1/state/:key",
			target: "/api/v1/state/581472460_28841260015",
			handler: func(echo.Context) error {
				panic("nil snapshot")
			},
			wantStatus: http.StatusInternalServerError,
			wantPanics: 1,
			wantLog: []string{
				"handler panicked",
				"panic=\"nil snapshot\"",
				"route=/api/v1/state/:key",
				"request_id=req-42",
			},
		},
		{
			name:   "error value panic",
			route:  "/api/v1/check",
			target: "/api/v1/check",
			handler: func(echo.Context) error {
				var m map[string]int
				m["cycle"]++
				return nil
			},
			wantStatus: http.StatusInternalServerError,
			wantPanics: 1,
			wantLog:    []string{"assignment to entry in nil map", "method=GET"},
		},
		{
			name:   "panic after the response is written keeps its status",
			route:  "/api/v1/items",
			target: "/api/v1/items",
			handler: func(c echo.Context) error {
				_ = c.String(http.StatusOK, "partial")
				panic("late")
			},
			wantStatus: http.StatusOK,
			wantPanics: 1,
			wantLog:    []string{"panic=late"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			e := newRecoveryEcho(&buf, tt.route, tt.handler)
			panics := metrics.HTTPPanicsTotal.WithLabelValues(tt.route)
			before := testutil.ToFloat64(panics)

			req := httptest.NewRequest(http.MethodGet, tt.target, http.NoBody)
			req.Header.Set("X-Request-ID", "req-42")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.InDelta(t, tt.wantPanics, testutil.ToFloat64(panics)-before, 0)
			for _, want := range tt.wantLog {
				assert.Contains(t, buf.String(), want)
			}
			if tt.wantPanics == 0 {
				assert.NotContains(t, buf.String(), "handler panicked")
			}
		})
	}
}

func TestRecovery_ProblemBody(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := newRecoveryEcho(&buf, "/api/v1/items/:key", func(echo.Context) error {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/1_2", http.NoBody)
	req.Header.Set("X-Request-ID", "cycle-7")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "cycle-7", rec.Header().Get("X-Request-ID"))

	var problem huma.ErrorModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusInternalServerError, problem.Status)
	assert.Equal(t, "Internal Server Error", problem.Title)
	assert.Contains(t, problem.Detail, "cycle-7")
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := newRecoveryEcho(&buf, "/stream", func(echo.Context) error {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stream", http.NoBody))
	})
	assert.NotContains(t, buf.String(), "handler panicked")
}
