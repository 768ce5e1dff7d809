package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ReadinessChecker reports whether the monitor has completed a cycle.
type ReadinessChecker interface {
	Ready() bool
}

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	monitor ReadinessChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(m ReadinessChecker) *HealthHandler {
	return &HealthHandler{monitor: m}
}

// Healthz returns 200 if the process is running.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz returns 200 once the first monitoring cycle has completed, 503 before.
func (h *HealthHandler) Readyz(c echo.Context) error {
	if !h.monitor.Ready() {
		return c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ready"})
}
