// Package metrics provides Prometheus instrumentation for the sales analytics service.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes.
const (
	OutcomeOK              = "ok"
	OutcomeInvalidInput    = "invalid_input"
	OutcomeReferential     = "referential"
	OutcomeUnknownStrategy = "unknown_strategy"
	OutcomeError           = "error"
)

var (
	// RunsTotal counts analysis runs, partitioned by outcome.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_report_runs_total",
		Help: "Total number of analysis runs",
	}, []string{"outcome"})

	// RunDuration tracks the wall time of successful runs.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sales_report_run_duration_seconds",
		Help:    "Analysis run duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})

	// SellersProcessed counts sellers emitted across all runs.
	SellersProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_sellers_processed_total",
		Help: "Sellers included in completed reports",
	})

	// RecordsProcessed counts purchase records consumed across all runs.
	RecordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_purchase_records_processed_total",
		Help: "Purchase records consumed by completed reports",
	})

	// ReferentialErrors counts runs aborted on an unknown seller or product.
	ReferentialErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_referential_errors_total",
		Help: "Runs aborted on a dangling seller or product key",
	}, []string{"kind"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sales_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sales_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveRun records a completed run.
func ObserveRun(sellers, records int, elapsed time.Duration) {
	RunsTotal.WithLabelValues(OutcomeOK).Inc()
	RunDuration.Observe(elapsed.Seconds())
	SellersProcessed.Add(float64(sellers))
	RecordsProcessed.Add(float64(records))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern prefers the matched chi pattern to keep label cardinality low.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("metrics: %T does not support hijacking", w.ResponseWriter)
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
