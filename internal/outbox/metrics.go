package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "footprint",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of outbox events successfully published to Kafka.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "footprint",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Number of outbox events that failed to publish and were routed to the DLQ.",
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "footprint",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent fetching, delivering, and marking outbox batches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	dlqCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footprint",
		Subsystem: "outbox",
		Name:      "events_dlq_total",
		Help:      "Number of outbox events routed to the dead-letter queue, labeled by topic.",
	}, []string{"topic"})

	dlqActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footprint",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled by the manager, by topic, event type and action taken.",
	}, []string{"topic", "event_type", "action"})

	dlqBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "footprint",
		Subsystem: "dlq",
		Name:      "backlog",
		Help:      "DLQ entries that are neither requeued nor quarantined.",
	})

	// 0 closed, 1 half-open, 2 open.
	breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "footprint",
		Subsystem: "outbox",
		Name:      "circuit_breaker_state",
		Help:      "Current state of outbound circuit breakers.",
	}, []string{"name"})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, batchDuration, dlqCounter, dlqActions, dlqBacklog, breakerState)
}

// Actions recorded on dlqActions.
const (
	dlqActionRequeued    = "requeued"
	dlqActionQuarantined = "quarantined"
	dlqActionRescheduled = "rescheduled"
)

func recordDLQAction(entry dlqEntry, action string) {
	dlqActions.WithLabelValues(entry.Topic, entry.EventType, action).Inc()
}
