// Package observability holds the service-wide Prometheus collectors.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "footprint"

var (
	activitiesLoggedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "activities",
		Name:      "logged_total",
		Help:      "Number of activities logged, labeled by category.",
	}, []string{"category"})

	co2eLoggedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "activities",
		Name:      "co2e_kg_logged_total",
		Help:      "Kilograms of CO2e logged through the API, labeled by category.",
	}, []string{"category"})

	migratedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "activities",
		Name:      "migrated_total",
		Help:      "Number of session activities reassigned to authenticated users.",
	})

	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity write to Postgres.",
	})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency labeled by route pattern, method and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

func init() {
	prometheus.MustRegister(activitiesLoggedCounter, co2eLoggedCounter, migratedCounter, activityPersistGauge, httpRequestDuration)
}

// RecordActivityLogged counts a newly logged activity and its emissions.
func RecordActivityLogged(category string, co2eKg float64) {
	activitiesLoggedCounter.WithLabelValues(category).Inc()
	if co2eKg > 0 {
		co2eLoggedCounter.WithLabelValues(category).Add(co2eKg)
	}
}

// RecordActivitiesMigrated adds to the migrated activity counter.
func RecordActivitiesMigrated(count int) {
	if count <= 0 {
		return
	}
	migratedCounter.Add(float64(count))
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
