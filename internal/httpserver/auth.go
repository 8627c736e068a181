package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/horseshoedev/mythrilmerch/internal/auth"
	"github.com/horseshoedev/mythrilmerch/internal/events"
	"github.com/horseshoedev/mythrilmerch/internal/metrics"
	"github.com/horseshoedev/mythrilmerch/internal/middleware"
	"github.com/horseshoedev/mythrilmerch/internal/store"
	"github.com/horseshoedev/mythrilmerch/pkg/logging"
	"github.com/horseshoedev/mythrilmerch/pkg/tokens"
)

type AuthHandler struct {
	Svc       *auth.Service
	Store     *store.Store
	Collector *metrics.Collector
	Producer  *events.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicUserEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	user, pair, err := h.Svc.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
		}
		if errors.Is(err, store.ErrConflict) {
			return echo.NewHTTPError(http.StatusConflict, "User with this email already exists")
		}
		return err
	}

	h.Collector.RecordUserRegistration()
	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          user,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	user, pair, err := h.Svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
		}
		return err
	}

	h.Collector.RecordUserLogin()
	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_logged_in",
		"user_id": user.ID,
		"email":   user.Email,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          user,
	})
}

func (h *AuthHandler) Profile(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(uint)

	user, err := h.Store.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(uint)

	var req map[string]any
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if email, ok := req["email"].(string); ok && !auth.ValidateEmail(email) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid email format")
	}

	if err := h.Store.UpdateUser(c.Request().Context(), userID, req); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		if errors.Is(err, store.ErrEmptyUpdate) {
			return echo.NewHTTPError(http.StatusBadRequest, "No valid fields to update")
		}
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "User updated successfully"})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	claims, ok := c.Get(middleware.CtxClaims).(*tokens.AccessClaims)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}

	h.Svc.Revoke(c.Request().Context(), claims)
	return c.JSON(http.StatusOK, echo.Map{"message": "Successfully logged out"})
}

// validationMessage strips the sentinel prefix so the client sees only
// the rule text.
func validationMessage(err error) string {
	msg := err.Error()
	prefix := auth.ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
