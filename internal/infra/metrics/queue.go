package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(queuePublishesTotal, queueConsumedTotal, queueDeadLetteredTotal) }

var queuePublishesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_publishes_total",
		Help: "Messages published per queue, labeled by outcome.",
	},
	[]string{"queue", "outcome"}, // 'ok', 'error'
)

var queueConsumedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_consumed_total",
		Help: "Messages consumed per queue, labeled by handling outcome.",
	},
	[]string{"queue", "outcome"}, // 'ack', 'retry', 'dead_letter'
)

var queueDeadLetteredTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_dead_lettered_total",
		Help: "Messages routed to a dead-letter queue after exhausting retries.",
	},
	[]string{"queue"},
)

func IncPublish(queue string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	queuePublishesTotal.WithLabelValues(norm(queue), outcome).Inc()
}

func IncConsumed(queue, outcome string) {
	queueConsumedTotal.WithLabelValues(norm(queue), norm(outcome)).Inc()
}

func IncDeadLettered(queue string) {
	queueDeadLetteredTotal.WithLabelValues(norm(queue)).Inc()
}
