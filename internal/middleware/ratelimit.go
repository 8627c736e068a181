package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/horseshoedev/mythrilmerch/internal/metrics"
	"github.com/horseshoedev/mythrilmerch/internal/ratelimit"
)

// RateLimit enforces the per-route per-address budgets. Apply it only to
// throttled groups; /health and /metrics are mounted outside it.
func RateLimit(limiter *ratelimit.Limiter, collector *metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, retryAfter := limiter.Allow(c.Path(), c.RealIP())
			if !ok {
				collector.RecordRateLimit(c.Path(), c.RealIP())
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
			}
			return next(c)
		}
	}
}
