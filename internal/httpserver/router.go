package httpserver

import (
	"log/slog"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	"github.com/horseshoedev/mythrilmerch/internal/auth"
	"github.com/horseshoedev/mythrilmerch/internal/events"
	"github.com/horseshoedev/mythrilmerch/internal/metrics"
	"github.com/horseshoedev/mythrilmerch/internal/middleware"
	"github.com/horseshoedev/mythrilmerch/internal/pool"
	"github.com/horseshoedev/mythrilmerch/internal/ratelimit"
	"github.com/horseshoedev/mythrilmerch/internal/store"
)

type Deps struct {
	Logger    *slog.Logger
	Collector *metrics.Collector
	Limiter   *ratelimit.Limiter
	Auth      *auth.Service
	Store     *store.Store
	Pool      *pool.Pool
	Producer  *events.Producer
	ES        *elasticsearch.Client
}

// New wires the /api surface. /health and /metrics sit outside the rate
// limited group so monitoring traffic is never throttled.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler(d.Logger)

	e.Use(
		middleware.Metrics(d.Collector, d.Logger),
		ecM.Recover(),
		ecM.RequestID(),
		ecM.Secure(),
		ecM.CORS(),
	)

	healthHandler := &HealthHandler{Pool: d.Pool, Collector: d.Collector}
	authHandler := &AuthHandler{Svc: d.Auth, Store: d.Store, Collector: d.Collector, Producer: d.Producer}
	productHandler := &ProductHandler{Store: d.Store, Collector: d.Collector, ES: d.ES}
	cartHandler := &CartHandler{Store: d.Store, Collector: d.Collector, Producer: d.Producer}

	e.GET("/health", healthHandler.Check)
	e.GET("/metrics", echo.WrapHandler(d.Collector.Handler()))

	api := e.Group("/api", middleware.RateLimit(d.Limiter, d.Collector))

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	protected := authGroup.Group("", middleware.RequireAuth(d.Auth))
	protected.GET("/profile", authHandler.Profile)
	protected.PUT("/profile", authHandler.UpdateProfile)
	protected.POST("/logout", authHandler.Logout)

	products := api.Group("/products")
	products.GET("", productHandler.List)
	if d.ES != nil {
		products.GET("/search", productHandler.Search)
	}
	products.GET("/:id", productHandler.Get)

	cart := api.Group("/cart")
	cart.POST("/add", cartHandler.Add)
	cart.GET("", cartHandler.List)
	cart.PUT("/update/:id", cartHandler.Update)
	cart.DELETE("/remove/:id", cartHandler.Remove)

	return e
}
