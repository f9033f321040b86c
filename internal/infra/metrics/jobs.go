package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsSubmittedTotal, jobsFinishedTotal, videosProcessedTotal) }

var jobsSubmittedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "analysis_jobs_submitted_total",
		Help: "Total number of channel analysis jobs accepted.",
	},
)

var jobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analysis_jobs_finished_total",
		Help: "Total number of jobs reaching a final status.",
	},
	[]string{"status"}, // 'completed', 'partially_completed', 'failed'
)

var videosProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "videos_processed_total",
		Help: "Total number of per-video outcomes recorded, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

func IncJobSubmitted() { jobsSubmittedTotal.Inc() }

func IncJobFinished(status string) {
	jobsFinishedTotal.WithLabelValues(norm(status)).Inc()
}

func IncVideoProcessed(status string) {
	videosProcessedTotal.WithLabelValues(norm(status)).Inc()
}
