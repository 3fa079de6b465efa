package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// routeUnmatched labels requests that hit no registered route (404s, scanners).
const routeUnmatched = "unmatched"

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_seconds",
			Help:      "Public API request duration by route",
			// Search fans out to location and backend calls; tail goes up to the geo timeout.
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"method", "route", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "Public API requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storefront",
			Name:      "http_requests_in_flight",
			Help:      "Public API requests currently being served",
		},
	)

	// AuthRejectionsTotal counts requests refused by API-key auth, by reason (missing, scheme, invalid).
	AuthRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "auth_rejections_total",
			Help:      "Requests rejected by API-key authentication",
		},
		[]string{"reason"},
	)
)

var httpMetricsRegistered bool

// RegisterHTTPMetrics registers the public API metrics. Must be called once from main.
func RegisterHTTPMetrics() {
	if httpMetricsRegistered {
		return
	}
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal, httpRequestsInFlight, AuthRejectionsTotal)
	httpMetricsRegistered = true
}

// Middleware records duration, count and in-flight requests keyed by chi route pattern.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			var pattern string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}
			labels := []string{r.Method, routeLabel(pattern), strconv.Itoa(status)}

			httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(labels...).Inc()
		})
	}
}

// routeLabel keeps cardinality bounded: /v1/sessions/{session}/state stays one
// series regardless of session ids.
func routeLabel(pattern string) string {
	if pattern == "" {
		return routeUnmatched
	}
	return strings.TrimSuffix(pattern, "/*")
}
