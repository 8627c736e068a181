package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/horseshoedev/mythrilmerch/internal/auth"
)

const (
	CtxUserID = "user_id"
	CtxClaims = "claims"
)

// RequireAuth gates a route behind a valid bearer token. Whatever check
// fails, the caller sees the same generic 401.
func RequireAuth(svc *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}

			claims, err := svc.VerifyAccess(c.Request().Context(), tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}

			userID, err := auth.UserID(claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}

			c.Set(CtxUserID, userID)
			c.Set(CtxClaims, claims)
			return next(c)
		}
	}
}
