package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/horseshoedev/mythrilmerch/internal/metrics"
	"github.com/horseshoedev/mythrilmerch/pkg/logging"
)

// Metrics is the per-request pipeline: it stamps the context logger,
// measures duration and payload sizes, records outcome metrics and hands
// faults to the error handler for the user-visible response.
func Metrics(collector *metrics.Collector, base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := base.With(
				"method", c.Request().Method,
				"path", c.Path(),
				"remote_ip", c.RealIP(),
			)
			req := c.Request().WithContext(logging.IntoContext(c.Request().Context(), l))
			c.SetRequest(req)

			requestSize := c.Request().ContentLength
			if requestSize < 0 {
				requestSize = 0
			}

			start := time.Now()
			err := next(c)
			dur := time.Since(start)

			if err != nil {
				collector.RecordError(errorCategory(err), c.Path())
				c.Echo().HTTPErrorHandler(err, c)
			}

			status := c.Response().Status
			collector.RecordRequest(c.Request().Method, c.Path(), status, dur, requestSize, c.Response().Size)

			switch {
			case err != nil || status >= 500:
				l.Error("request completed", "status", status, "duration_ms", dur.Milliseconds(), "error", errStr(err))
			case status >= 400:
				l.Warn("request completed", "status", status, "duration_ms", dur.Milliseconds())
			default:
				l.Info("request completed", "status", status, "duration_ms", dur.Milliseconds(), "bytes", c.Response().Size)
			}
			return nil
		}
	}
}

func errorCategory(err error) string {
	he, ok := err.(*echo.HTTPError)
	if !ok {
		return "internal_error"
	}
	switch he.Code {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "authentication_error"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "storage_unavailable"
	default:
		return "internal_error"
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
