package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nyumba_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nyumba_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	webhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nyumba_webhook_deliveries_total",
		Help: "Count of gateway webhook deliveries by kind and outcome",
	}, []string{"kind", "outcome"})

	invoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nyumba_invoices_created_total",
		Help: "Count of invoices created",
	})

	paymentsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nyumba_payments_settled_total",
		Help: "Count of payments reaching a terminal state",
	}, []string{"status"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nyumba_billing_sweep_duration_seconds",
		Help:    "Duration of billing sweep runs",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveWebhook records a webhook delivery outcome.
// kind is "payment" or "refund"; outcome is "settled", "replay",
// "not_found" or "error".
func ObserveWebhook(kind, outcome string) {
	webhookDeliveries.WithLabelValues(kind, outcome).Inc()
}

// ObserveInvoiceCreated increments the invoice counter
func ObserveInvoiceCreated() {
	invoicesCreated.Inc()
}

// ObservePaymentSettled records a payment reaching a terminal state
func ObservePaymentSettled(status string) {
	paymentsSettled.WithLabelValues(status).Inc()
}

// ObserveSweep records the duration of a billing sweep run
func ObserveSweep(duration time.Duration) {
	sweepDuration.Observe(duration.Seconds())
}

// Middleware records request metrics for every route. Uses the route
// template, not the raw URL, to keep cardinality bounded.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		ObserveHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
