package blog

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jinukeu/blog/content"
)

// Metrics holds the Prometheus collectors of one App. Each App owns its
// registry so several can live in one process.
type Metrics struct {
	ContentOps      *prometheus.CounterVec   // by op and result
	RequestDuration *prometheus.HistogramVec // by method, route and status
	CacheLookups    *prometheus.CounterVec   // by kind and result (hit, miss)

	registry *prometheus.Registry
}

// NewMetrics creates and registers the blog collectors plus the Go runtime
// and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ContentOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_content_operations_total",
				Help: "Content repository operations by operation and result",
			},
			[]string{"op", "result"}, // result: ok, not_found, invalid, conflict, error
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blog_http_request_duration_seconds",
				Help:    "HTTP request latency by method, route and status",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "route", "status"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_post_cache_lookups_total",
				Help: "Post cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
	m.registry.MustRegister(
		m.ContentOps,
		m.RequestDuration,
		m.CacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeContentOp(op string, err error) {
	m.ContentOps.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *Metrics) observeCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

func resultLabel(err error) string {
	var inUse *content.CategoryInUseError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, content.ErrNotFound):
		return "not_found"
	case errors.As(err, &inUse), errors.Is(err, content.ErrCategoryExists):
		return "conflict"
	case isBadRequest(err):
		return "invalid"
	default:
		return "error"
	}
}

// middleware records request latency by route template so slugs do not
// explode label cardinality.
func (m *Metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			} else if status < http.StatusBadRequest {
				status = statusFor(err)
			}
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.
			WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
