package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "search_executions_total",
			Help:      "Search executions by gateway path and outcome",
		},
		[]string{"path", "outcome"}, // path: direct/universal/fallback
	)

	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "backend_requests_total",
			Help:      "Total number of backend search API requests",
		},
		[]string{"endpoint", "status"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "backend_request_duration_seconds",
			Help:      "Backend search API request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	ClassificationDefectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "classification_defects_total",
			Help:      "Results dropped because of an unrecognized result type",
		},
		[]string{"result_type"},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "result_cache_total",
			Help:      "Universal search cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	LocationOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "location_outcomes_total",
			Help:      "Geo provider outcomes",
		},
		[]string{"outcome"}, // cached, fresh, denied, timeout, unavailable
	)

	SuggestionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "suggestion_requests_total",
			Help:      "Did-you-mean requests by provider and status",
		},
		[]string{"provider", "status"},
	)

	TrackingTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "unavailable_tracking_total",
			Help:      "Unavailable-product tracking calls by status",
		},
		[]string{"status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchExecutionsTotal)
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(BackendRequestDuration)
	prometheus.MustRegister(ClassificationDefectsTotal)
	prometheus.MustRegister(ResultCacheTotal)
	prometheus.MustRegister(LocationOutcomesTotal)
	prometheus.MustRegister(SuggestionRequestsTotal)
	prometheus.MustRegister(TrackingTotal)
	searchMetricsRegistered = true
}
