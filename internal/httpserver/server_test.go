package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/horseshoedev/mythrilmerch/internal/auth"
	"github.com/horseshoedev/mythrilmerch/internal/metrics"
	"github.com/horseshoedev/mythrilmerch/internal/models"
	"github.com/horseshoedev/mythrilmerch/internal/pool"
	"github.com/horseshoedev/mythrilmerch/internal/ratelimit"
	"github.com/horseshoedev/mythrilmerch/internal/store"
	"github.com/horseshoedev/mythrilmerch/pkg/logging"
)

func newTestEnv(t *testing.T, budgets ratelimit.Budgets) (*echo.Echo, *Deps) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a fresh connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.User{}, &models.CartItem{}))

	p, err := pool.New(db, 4, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { p.Shutdown() })

	st := store.New(p)
	deps := &Deps{
		Logger:    logging.New("error"),
		Collector: metrics.NewCollector(),
		Limiter:   ratelimit.New(budgets),
		Auth: &auth.Service{
			Store:         st,
			Blocklist:     auth.NewBlocklist(),
			JWTSecret:     []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
		},
		Store: st,
		Pool:  p,
	}
	return New(deps), deps
}

func doJSON(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func seedTestProduct(t *testing.T, deps *Deps, name string, price float64) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        name,
		Description: "test description",
		Price:       price,
		ImageURL:    "https://example.com/p.png",
	}
	require.NoError(t, deps.Store.CreateProduct(context.Background(), product))
	return product
}

func registerTestUser(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","password":"Str0ngPass","name":"Alice"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())

	rec := doJSON(e, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "connected", body["database"])
	require.NotEmpty(t, body["timestamp"])
}

func TestRegister(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())

	rec := doJSON(e, http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","password":"Str0ngPass","name":"Alice"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	require.NotEmpty(t, body["access_token"])
	require.NotEmpty(t, body["refresh_token"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "alice@example.com", user["email"])
	// the password hash never leaves the server
	require.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterValidationMessages(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())

	cases := []struct {
		name    string
		payload string
		message string
	}{
		{"bad email", `{"email":"nope","password":"Str0ngPass","name":"Alice"}`, "Invalid email format"},
		{"short password", `{"email":"a@example.com","password":"Ab1","name":"Alice"}`, "Password must be at least 8 characters long"},
		{"no uppercase", `{"email":"a@example.com","password":"weakpass1","name":"Alice"}`, "Password must contain at least one uppercase letter"},
		{"short name", `{"email":"a@example.com","password":"Str0ngPass","name":"A"}`, "Name must be at least 2 characters long"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/api/auth/register", tc.payload, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tc.message, decode(t, rec)["error"])
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())
	registerTestUser(t, e)

	rec := doJSON(e, http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","password":"Str0ngPass","name":"Other"}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "User with this email already exists", decode(t, rec)["error"])
}

func TestLogin(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())
	registerTestUser(t, e)

	rec := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"Str0ngPass"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, decode(t, rec)["access_token"])
}

func TestLoginGenericFailure(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())
	registerTestUser(t, e)

	wrongPassword := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"Wr0ngPass!"}`, nil)
	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)

	unknownEmail := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"email":"nobody@example.com","password":"Str0ngPass"}`, nil)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)

	// both failure modes must produce the same body
	require.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestProfileRequiresAuth(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())

	rec := doJSON(e, http.MethodGet, "/api/auth/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Authentication required", decode(t, rec)["error"])

	rec = doJSON(e, http.MethodGet, "/api/auth/profile", "", map[string]string{
		"Authorization": "Bearer not.a.token",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Authentication required", decode(t, rec)["error"])
}

func TestProfile(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())
	token := registerTestUser(t, e)

	rec := doJSON(e, http.MethodGet, "/api/auth/profile", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	require.Equal(t, "alice@example.com", body["email"])
	require.Equal(t, "Alice", body["name"])
	require.NotContains(t, rec.Body.String(), "password")
}

func TestUpdateProfile(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())
	token := registerTestUser(t, e)
	authHeader := map[string]string{"Authorization": "Bearer " + token}

	rec := doJSON(e, http.MethodPut, "/api/auth/profile", `{"name":"Alice B"}`, authHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "User updated successfully", decode(t, rec)["message"])

	rec = doJSON(e, http.MethodGet, "/api/auth/profile", "", authHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Alice B", decode(t, rec)["name"])
}

func TestUpdateProfileRejectsBadEmail(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())
	token := registerTestUser(t, e)

	rec := doJSON(e, http.MethodPut, "/api/auth/profile", `{"email":"not-an-email"}`, map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid email format", decode(t, rec)["error"])
}

func TestLogoutRevokesToken(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())
	token := registerTestUser(t, e)
	authHeader := map[string]string{"Authorization": "Bearer " + token}

	rec := doJSON(e, http.MethodGet, "/api/auth/profile", "", authHeader)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/auth/logout", "", authHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Successfully logged out", decode(t, rec)["message"])

	// the same token is rejected from now on
	rec = doJSON(e, http.MethodGet, "/api/auth/profile", "", authHeader)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListProducts(t *testing.T) {
	e, deps := newTestEnv(t, ratelimit.DefaultBudgets())
	seedTestProduct(t, deps, "Mug", 12.99)
	seedTestProduct(t, deps, "Hoodie", 49.99)

	rec := doJSON(e, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 2)
	require.Equal(t, "Hoodie", products[0]["name"])
	require.Equal(t, "Mug", products[1]["name"])
	require.Contains(t, products[0], "imageUrl")
}

func TestGetProduct(t *testing.T) {
	e, deps := newTestEnv(t, ratelimit.DefaultBudgets())
	product := seedTestProduct(t, deps, "Mug", 12.99)

	rec := doJSON(e, http.MethodGet, fmt.Sprintf("/api/products/%d", product.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Mug", decode(t, rec)["name"])

	rec = doJSON(e, http.MethodGet, "/api/products/9999", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/products/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartLifecycle(t *testing.T) {
	e, deps := newTestEnv(t, ratelimit.DefaultBudgets())
	product := seedTestProduct(t, deps, "Mug", 12.99)

	// first add creates the row
	rec := doJSON(e, http.MethodPost, "/api/cart/add",
		fmt.Sprintf(`{"productId":%d,"quantity":2}`, product.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "Product added to cart", body["message"])
	item, _ := body["cartItem"].(map[string]any)
	require.EqualValues(t, 2, item["quantity"])

	// second add merges into the same row
	rec = doJSON(e, http.MethodPost, "/api/cart/add",
		fmt.Sprintf(`{"productId":%d,"quantity":3}`, product.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	merged, _ := decode(t, rec)["cartItem"].(map[string]any)
	require.EqualValues(t, 5, merged["quantity"])
	require.Equal(t, item["id"], merged["id"])

	rec = doJSON(e, http.MethodGet, "/api/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "Mug", rows[0]["name"])
	require.EqualValues(t, 5, rows[0]["quantity"])

	itemID := int(rows[0]["cartItemId"].(float64))

	rec = doJSON(e, http.MethodPut, fmt.Sprintf("/api/cart/update/%d", itemID),
		`{"quantity":7}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Cart item updated successfully", decode(t, rec)["message"])

	rec = doJSON(e, http.MethodDelete, fmt.Sprintf("/api/cart/remove/%d", itemID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Cart item removed successfully", decode(t, rec)["message"])

	// removing again reports not found
	rec = doJSON(e, http.MethodDelete, fmt.Sprintf("/api/cart/remove/%d", itemID), "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Cart item not found", decode(t, rec)["error"])
}

func TestCartAddValidation(t *testing.T) {
	e, deps := newTestEnv(t, ratelimit.DefaultBudgets())
	product := seedTestProduct(t, deps, "Mug", 12.99)

	rec := doJSON(e, http.MethodPost, "/api/cart/add", `{"quantity":2}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Product ID is required", decode(t, rec)["error"])

	rec = doJSON(e, http.MethodPost, "/api/cart/add",
		fmt.Sprintf(`{"productId":%d,"quantity":0}`, product.ID), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Quantity must be a positive integer", decode(t, rec)["error"])

	rec = doJSON(e, http.MethodPost, "/api/cart/add", `{"productId":9999}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Product not found", decode(t, rec)["error"])
}

func TestCartAddDefaultsQuantityToOne(t *testing.T) {
	e, deps := newTestEnv(t, ratelimit.DefaultBudgets())
	product := seedTestProduct(t, deps, "Mug", 12.99)

	rec := doJSON(e, http.MethodPost, "/api/cart/add",
		fmt.Sprintf(`{"productId":%d}`, product.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	item, _ := decode(t, rec)["cartItem"].(map[string]any)
	require.EqualValues(t, 1, item["quantity"])
}

func TestRateLimitExemptsHealth(t *testing.T) {
	e, deps := newTestEnv(t, ratelimit.Budgets{PerMinute: 2, PerHour: 100, PerDay: 1000})
	seedTestProduct(t, deps, "Mug", 12.99)

	for i := 0; i < 2; i++ {
		rec := doJSON(e, http.MethodGet, "/api/products", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(e, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "Too many requests", decode(t, rec)["error"])

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, retryAfter, 1)

	// monitoring endpoints stay reachable while the API is throttled
	rec = doJSON(e, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(e, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitPerRoute(t *testing.T) {
	e, deps := newTestEnv(t, ratelimit.Budgets{PerMinute: 1, PerHour: 100, PerDay: 1000})
	seedTestProduct(t, deps, "Mug", 12.99)

	rec := doJSON(e, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(e, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// a different route has its own budget
	rec = doJSON(e, http.MethodGet, "/api/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsExposition(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())

	rec := doJSON(e, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, "http_requests_total")
	require.Contains(t, body, "http_request_duration_seconds")
	require.Contains(t, body, `endpoint="/api/products"`)
}

func TestErrorEnvelope(t *testing.T) {
	e, _ := newTestEnv(t, ratelimit.DefaultBudgets())

	rec := doJSON(e, http.MethodGet, "/api/products/9999", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode(t, rec)
	require.Len(t, body, 1)
	require.Equal(t, "Product not found", body["error"])
}
