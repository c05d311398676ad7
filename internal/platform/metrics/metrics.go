// Package metrics exposes Prometheus counters for the HTTP surface and the
// chart lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dentix/dentix/internal/platform/middleware"
)

const namespace = "dentix"

// Collector owns a private registry so tests and multiple servers in one
// process never collide on metric names.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	inFlight     prometheus.Gauge

	chartSaves   *prometheus.CounterVec
	chartDeletes prometheus.Counter
	toothEdits   *prometheus.CounterVec
	chartAccess  *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Number of requests being served",
		}),
		chartSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_saves_total",
			Help:      "Dental chart saves by dentition and outcome",
		}, []string{"dentition", "result"}),
		chartDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_deletes_total",
			Help:      "Dental charts deleted",
		}),
		toothEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tooth_edits_total",
			Help:      "Single-tooth edits by operation",
		}, []string{"op"}),
		chartAccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_access_total",
			Help:      "Audited chart API accesses by resource and action",
		}, []string{"resource", "action"}),
	}
	c.registry.MustRegister(
		c.httpRequests, c.httpDuration, c.inFlight,
		c.chartSaves, c.chartDeletes, c.toothEdits, c.chartAccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry is exposed for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latencies keyed by the route
// pattern, never the raw path, so patient ids stay out of label values.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if ctx.Request().URL.Path == "/metrics" {
				return next(ctx)
			}
			start := time.Now()
			c.inFlight.Inc()
			defer c.inFlight.Dec()

			err := next(ctx)

			status := ctx.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil && status == http.StatusOK {
				status = http.StatusInternalServerError
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			labels := []string{ctx.Request().Method, route, strconv.Itoa(status)}
			c.httpRequests.WithLabelValues(labels...).Inc()
			c.httpDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (c *Collector) ChartSaved(dentition string, created bool) {
	result := "updated"
	if created {
		result = "created"
	}
	c.chartSaves.WithLabelValues(dentition, result).Inc()
}

func (c *Collector) ChartDeleted() { c.chartDeletes.Inc() }

func (c *Collector) ToothEdited(op string) { c.toothEdits.WithLabelValues(op).Inc() }

// RecordAccess counts audited accesses.
func (c *Collector) RecordAccess(entry middleware.AuditEntry) error {
	c.chartAccess.WithLabelValues(entry.ResourceType, entry.Action).Inc()
	return nil
}
