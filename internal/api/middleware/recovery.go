package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/danielgtaylor/huma/v2"
	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/stock-monitor/internal/metrics"
)

// Recovery returns Echo middleware that turns a handler panic into a 500
// problem response. The panic is logged with the request ID and route and
// counted in stockmon_http_panics_total. It must sit inside RequestLog so
// the ID is already assigned.
func Recovery(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				// net/http uses this value to abort a response on purpose.
				if e, ok := r.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(r)
				}

				route := Route(c)
				reqID := RequestID(c)
				metrics.HTTPPanicsTotal.WithLabelValues(route).Inc()
				log.Error("handler panicked",
					"panic", fmt.Sprint(r),
					"method", c.Request().Method,
					"route", route,
					"request_id", reqID,
					"stack", string(debug.Stack()),
				)

				if c.Response().Committed {
					err = nil
					return
				}
				err = writePanicProblem(c, reqID)
			}()
			return next(c)
		}
	}
}

func writePanicProblem(c echo.Context, reqID string) error {
	detail := "the request failed unexpectedly"
	if reqID != "" {
		detail += ", see logs for request " + reqID
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	return c.JSON(http.StatusInternalServerError, &huma.ErrorModel{
		Title:  http.StatusText(http.StatusInternalServerError),
		Status: http.StatusInternalServerError,
		Detail: detail,
	})
}
