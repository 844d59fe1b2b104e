package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tiffin",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tiffin",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tiffin",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tiffin",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order state transitions by kind (place, cancel, replace, deliver, pickup).",
		},
		[]string{"transition"},
	)

	ledgerAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tiffin",
			Subsystem: "ledger",
			Name:      "amount_total",
			Help:      "Sum of ledger amounts written, by transaction type.",
		},
		[]string{"type"},
	)

	memberDrift = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tiffin",
			Subsystem: "teams",
			Name:      "member_drift_corrections_total",
			Help:      "Teams whose member counter was corrected by reconciliation.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		orderTransitions,
		ledgerAmount,
		memberDrift,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency.  Paths are labelled by
// their route template so ids do not explode the label space.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/metrics" {
				return next(c)
			}
			start := time.Now()
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := strings.ToUpper(c.Request().Method)
			httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Response().Status)).Inc()
			httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// RecordOrderTransition counts n orders moving through transition.
func RecordOrderTransition(transition string, n int64) {
	if n <= 0 {
		return
	}
	orderTransitions.WithLabelValues(transition).Add(float64(n))
}

// RecordLedger adds amount to the ledger counter of txType.
func RecordLedger(txType string, amount int64) {
	if amount <= 0 {
		return
	}
	ledgerAmount.WithLabelValues(txType).Add(float64(amount))
}

// RecordMemberDrift counts corrected teams.
func RecordMemberDrift(n int) {
	if n > 0 {
		memberDrift.Add(float64(n))
	}
}
