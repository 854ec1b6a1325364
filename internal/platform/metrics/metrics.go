// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the assignment service.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the collectors the server registers at startup.
type Registry struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	MappingsCreated prometheus.Counter
	MappingsDeleted prometheus.Counter
	BulkAssignItems *prometheus.CounterVec
}

// New creates a Registry with all collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carelink_http_requests_total",
			Help: "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carelink_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		MappingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carelink_mappings_created_total",
			Help: "Patient-doctor mappings created or reactivated.",
		}),
		MappingsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carelink_mappings_deleted_total",
			Help: "Patient-doctor mappings soft-deleted.",
		}),
		BulkAssignItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carelink_bulk_assign_items_total",
			Help: "Bulk-assign item outcomes by result (created, skipped).",
		}, []string{"result"}),
	}

	reg.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.MappingsCreated,
		r.MappingsDeleted,
		r.BulkAssignItems,
	)

	return r
}

// Middleware returns echo middleware that records request counts and latency.
func (r *Registry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			r.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			r.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler returns the /metrics scrape endpoint.
func (r *Registry) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
