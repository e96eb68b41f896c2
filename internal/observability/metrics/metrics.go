// Package metrics exposes prometheus instrumentation for the HTTP surface
// and the billing pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	invoicesCreated   prometheus.Counter
	invoicesConfirmed prometheus.Counter
	invoicesExpired   prometheus.Counter
	adminGrants       prometheus.Counter
	gatedOperations   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subgate_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		invoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subgate_invoices_created_total",
			Help: "Invoices created against the payment processor.",
		}),
		invoicesConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subgate_invoices_confirmed_total",
			Help: "Invoices reconciled to CONFIRMED.",
		}),
		invoicesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subgate_invoices_expired_total",
			Help: "Pending invoices expired by the sweep.",
		}),
		adminGrants: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subgate_admin_grants_total",
			Help: "Entitlements granted directly by an admin.",
		}),
		gatedOperations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subgate_gated_operations_total",
			Help: "Gated operations executed for entitled users.",
		}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.invoicesCreated,
		m.invoicesConfirmed,
		m.invoicesExpired,
		m.adminGrants,
		m.gatedOperations,
	)
	return m
}

func NewWithDefaultRegistry() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

func (m *Metrics) IncInvoicesCreated()   { m.invoicesCreated.Inc() }
func (m *Metrics) IncInvoicesConfirmed() { m.invoicesConfirmed.Inc() }
func (m *Metrics) IncAdminGrants()       { m.adminGrants.Inc() }
func (m *Metrics) IncGatedOperations()   { m.gatedOperations.Inc() }

func (m *Metrics) AddInvoicesExpired(n int) {
	if n > 0 {
		m.invoicesExpired.Add(float64(n))
	}
}

// GinMiddleware records request counts and latencies per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
