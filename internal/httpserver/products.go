package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/horseshoedev/mythrilmerch/internal/metrics"
	"github.com/horseshoedev/mythrilmerch/internal/search"
	"github.com/horseshoedev/mythrilmerch/internal/store"
)

type ProductHandler struct {
	Store     *store.Store
	Collector *metrics.Collector
	ES        *elasticsearch.Client
}

// List returns every product, ordered by name.
func (h *ProductHandler) List(c echo.Context) error {
	products, err := h.Store.ListProducts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid product id")
	}

	product, err := h.Store.GetProduct(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return err
	}

	h.Collector.RecordProductView(product.ID)
	return c.JSON(http.StatusOK, product)
}

// Search queries the product index. Only mounted when Elasticsearch is
// configured.
func (h *ProductHandler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query parameter q is required")
	}

	from := parseIntDefault(c.QueryParam("from"), 0)
	size := parseIntDefault(c.QueryParam("size"), 20)

	total, products, err := search.Products(c.Request().Context(), h.ES, query, from, size)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total":    total,
		"products": products,
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
