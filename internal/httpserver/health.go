package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/horseshoedev/mythrilmerch/internal/metrics"
	"github.com/horseshoedev/mythrilmerch/internal/pool"
)

type HealthHandler struct {
	Pool      *pool.Pool
	Collector *metrics.Collector
}

// Check runs SELECT 1 through a pooled lease and refreshes the connection
// gauge. Never rate limited.
func (h *HealthHandler) Check(c echo.Context) error {
	stats := h.Pool.Stats()
	h.Collector.SetActiveConnections(stats.InUse)

	database := "connected"
	status := "healthy"
	code := http.StatusOK
	if err := h.Pool.Ping(c.Request().Context()); err != nil {
		database = "disconnected"
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, echo.Map{
		"status":    status,
		"database":  database,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
