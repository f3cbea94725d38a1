package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Message outcomes recorded by the processor.
const (
	outcomeHandled     = "handled"
	outcomeHandlerFail = "handler_error"
	outcomeUndecodable = "decode_error"
)

var (
	messagesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footprint",
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Kafka records seen by the consumer, by topic, event type and outcome.",
	}, []string{"topic", "event_type", "outcome"})

	eventLag = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "footprint",
		Subsystem: "consumer",
		Name:      "event_lag_seconds",
		Help:      "Delay between a record being produced and being handled.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 15, 60, 300},
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(messagesCounter, eventLag)
}

func observe(msg Message, outcome string, now time.Time) {
	messagesCounter.WithLabelValues(msg.Topic, msg.EventType, outcome).Inc()
	if outcome == outcomeHandled && !msg.Timestamp.IsZero() {
		eventLag.WithLabelValues(msg.Topic).Observe(now.Sub(msg.Timestamp).Seconds())
	}
}
