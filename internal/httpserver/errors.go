package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/horseshoedev/mythrilmerch/internal/pool"
)

// ErrorHandler renders every fault as the {"error": "..."} envelope.
// Internal detail is logged in full but a 5xx always returns a generic
// message so nothing leaks outward.
func ErrorHandler(base *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Internal server error"

		if errors.Is(err, pool.ErrExhausted) || errors.Is(err, pool.ErrClosed) {
			code = http.StatusServiceUnavailable
			message = "Service temporarily unavailable"
		} else if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if code < http.StatusInternalServerError {
				message = fmt.Sprint(he.Message)
			}
		}

		if code >= http.StatusInternalServerError {
			base.Error("unhandled fault", "method", c.Request().Method, "path", c.Path(), "error", err)
		}

		if jsonErr := c.JSON(code, echo.Map{"error": message}); jsonErr != nil {
			base.Error("write error response", "error", jsonErr)
		}
	}
}
