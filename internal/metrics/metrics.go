package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns its own registry so tests can build isolated instances.
type Collector struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestSize     *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec

	productViews      *prometheus.CounterVec
	cartAdditions     *prometheus.CounterVec
	userRegistrations prometheus.Counter
	userLogins        prometheus.Counter

	activeConnections prometheus.Gauge
	apiErrors         *prometheus.CounterVec
	rateLimitHits     *prometheus.CounterVec

	// Registered but never set; kept for dashboard compatibility.
	cacheHitRatio prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.requestCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	c.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "HTTP request duration in seconds",
	}, []string{"method", "endpoint"})

	c.requestSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_request_size_bytes",
		Help: "HTTP request size in bytes",
	}, []string{"method", "endpoint"})

	c.responseSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_response_size_bytes",
		Help: "HTTP response size in bytes",
	}, []string{"method", "endpoint"})

	c.productViews = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_views_total",
		Help: "Total product views",
	}, []string{"product_id"})

	c.cartAdditions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_additions_total",
		Help: "Total items added to cart",
	}, []string{"product_id"})

	c.userRegistrations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "user_registrations_total",
		Help: "Total user registrations",
	})

	c.userLogins = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "user_logins_total",
		Help: "Total user logins",
	})

	c.activeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "database_active_connections",
		Help: "Number of active database connections",
	})

	c.apiErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "api_errors_total",
		Help: "Total API errors",
	}, []string{"error_type", "endpoint"})

	c.rateLimitHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_hits_total",
		Help: "Total rate limit violations",
	}, []string{"endpoint", "ip_address"})

	c.cacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Cache hit ratio (0-1)",
	})

	c.registry.MustRegister(
		c.requestCount, c.requestDuration, c.requestSize, c.responseSize,
		c.productViews, c.cartAdditions, c.userRegistrations, c.userLogins,
		c.activeConnections, c.apiErrors, c.rateLimitHits, c.cacheHitRatio,
	)

	return c
}

// Handler serves the registry in text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordRequest(method, endpoint string, status int, duration time.Duration, requestSize, responseSize int64) {
	code := strconv.Itoa(status)
	c.requestCount.WithLabelValues(method, endpoint, code).Inc()
	c.requestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	c.requestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	c.responseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

func (c *Collector) RecordError(errorType, endpoint string) {
	c.apiErrors.WithLabelValues(errorType, endpoint).Inc()
}

func (c *Collector) RecordRateLimit(endpoint, ip string) {
	c.rateLimitHits.WithLabelValues(endpoint, ip).Inc()
}

func (c *Collector) RecordProductView(productID uint) {
	c.productViews.WithLabelValues(strconv.FormatUint(uint64(productID), 10)).Inc()
}

func (c *Collector) RecordCartAddition(productID uint) {
	c.cartAdditions.WithLabelValues(strconv.FormatUint(uint64(productID), 10)).Inc()
}

func (c *Collector) RecordUserRegistration() { c.userRegistrations.Inc() }

func (c *Collector) RecordUserLogin() { c.userLogins.Inc() }

func (c *Collector) SetActiveConnections(n int) {
	c.activeConnections.Set(float64(n))
}
