package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(analyzerLatencyMs, analyzerDegradedTotal) }

var analyzerLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "analyzer_latency_ms",
		Help:    "Analyzer call latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
	},
	[]string{"provider", "success"},
)

var analyzerDegradedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analyzer_degraded_total",
		Help: "Analyses that fell back to a degraded result after a provider error.",
	},
	[]string{"provider"},
)

func ObserveAnalyzer(provider string, latencyMs int, success bool) {
	analyzerLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncDegraded(provider string) {
	analyzerDegradedTotal.WithLabelValues(norm(provider)).Inc()
}
