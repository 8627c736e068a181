package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/horseshoedev/mythrilmerch/internal/events"
	"github.com/horseshoedev/mythrilmerch/internal/metrics"
	"github.com/horseshoedev/mythrilmerch/internal/store"
	"github.com/horseshoedev/mythrilmerch/pkg/logging"
)

type CartHandler struct {
	Store     *store.Store
	Collector *metrics.Collector
	Producer  *events.Producer
}

func (h *CartHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicCartEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

// Add merges the quantity into the cart row for the product, creating the
// row on first add.
func (h *CartHandler) Add(c echo.Context) error {
	var req struct {
		ProductID uint  `json:"productId"`
		Quantity  *uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Product ID is required")
	}

	quantity := uint(1)
	if req.Quantity != nil {
		if *req.Quantity == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Quantity must be a positive integer")
		}
		quantity = *req.Quantity
	}

	item, err := h.Store.AddToCart(c.Request().Context(), req.ProductID, quantity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return err
	}

	h.Collector.RecordCartAddition(req.ProductID)
	h.publish(c, fmt.Sprint(req.ProductID), map[string]any{
		"type":       "cart_item_added",
		"product_id": req.ProductID,
		"quantity":   quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Product added to cart",
		"cartItem": item,
	})
}

func (h *CartHandler) List(c echo.Context) error {
	rows, err := h.Store.ListCart(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *CartHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid cart item id")
	}

	var req struct {
		Quantity *uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Quantity == nil || *req.Quantity == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Quantity must be a positive integer")
	}

	if err := h.Store.UpdateCartItem(c.Request().Context(), uint(id), *req.Quantity); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Cart item not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Cart item updated successfully"})
}

func (h *CartHandler) Remove(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid cart item id")
	}

	if err := h.Store.RemoveCartItem(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Cart item not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Cart item removed successfully"})
}
