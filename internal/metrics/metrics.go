package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels analyses that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels analyses that failed (bad input or dependency issues).
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_lens",
			Name:      "analyses_total",
			Help:      "Total number of analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "checkout_lens",
			Name:      "analysis_seconds",
			Help:      "End-to-end analysis latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	correlationsEmitted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "checkout_lens",
			Name:      "correlations_per_analysis",
			Help:      "Correlations emitted per analysis after thresholding.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	classificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_lens",
			Name:      "classifications_total",
			Help:      "Interactions classified, partitioned by matched rule.",
		},
		[]string{"rule"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_lens",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, partitioned by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "checkout_lens",
			Name:      "http_request_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)
)

// Register attaches checkout-lens collectors to the supplied Prometheus
// registerer. Double registration is tolerated so tests can share the
// default registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		correlationsEmitted,
		classificationsTotal,
		httpRequestsTotal,
		httpRequestSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records one analysis run's duration and outcome.
func ObserveAnalysis(duration time.Duration, outcome string, correlations int) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
	if label == OutcomeSuccess {
		correlationsEmitted.Observe(float64(correlations))
	}
}

// ObserveClassification counts one classified interaction by winning rule.
func ObserveClassification(rule string) {
	if rule == "" {
		rule = "unclassified"
	}
	classificationsTotal.WithLabelValues(rule).Inc()
}

// ObserveHTTPRequest feeds the request counter and latency histogram; the
// gin middleware calls this once per request.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
