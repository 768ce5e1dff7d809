package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// quietRoutes are polled by orchestrators every few seconds. Only the first
// success after start or after a failure is logged; failures always are.
var quietRoutes = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
	"/metrics": {},
}

// RequestID returns the ID RequestLog assigned to the request, or "" when
// the middleware is not installed.
func RequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}

// RequestLog returns Echo middleware that assigns each request an ID, taken
// from X-Request-ID when the caller sent one, echoes it back and logs the
// finished request.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var healthy sync.Map

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Set(requestIDKey, reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			route := Route(c)
			status := responseStatus(c, err)
			attrs := []any{
				"method", c.Request().Method,
				"route", route,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			}
			if err != nil {
				attrs = append(attrs, "error", err)
			}

			switch _, quiet := quietRoutes[route]; {
			case status >= 500:
				healthy.Delete(route)
				log.Error("request", attrs...)
			case quiet && status >= 300:
				healthy.Delete(route)
				log.Warn("request", attrs...)
			case quiet:
				if _, seen := healthy.LoadOrStore(route, struct{}{}); !seen {
					log.Info("request", attrs...)
				}
			default:
				log.Info("request", attrs...)
			}
			return err
		}
	}
}

// responseStatus is the status the client receives. An error not yet written
// by echo's error handler reports its HTTPError code, or 500.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
