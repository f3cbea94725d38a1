package consumer

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"example.com/footprint/internal/events"
)

var (
	projectedEmissions = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "footprint",
		Subsystem: "projection",
		Name:      "co2e_kg",
		Help:      "Net CO2e in kilograms projected from events consumed since process start, by category.",
	}, []string{"category"})

	projectedActivities = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "footprint",
		Subsystem: "projection",
		Name:      "activities",
		Help:      "Net change in activity count projected from events consumed since process start, by category.",
	}, []string{"category"})

	projectedMigrations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "footprint",
		Subsystem: "projection",
		Name:      "activities_migrated_total",
		Help:      "Number of anonymous activities linked to registered users.",
	})
)

func init() {
	prometheus.MustRegister(projectedEmissions, projectedActivities, projectedMigrations)
}

// FootprintProjector folds activity events into aggregate emission gauges.
type FootprintProjector struct{}

// NewFootprintProjector constructs a projector.
func NewFootprintProjector() *FootprintProjector { return &FootprintProjector{} }

// Handle applies one activity event to the projection gauges. Place it after a
// deduplicating handler in a Chain so redelivered records are not counted twice.
func (p *FootprintProjector) Handle(_ context.Context, msg Message) error {
	switch msg.EventType {
	case events.TypeActivityLogged:
		var evt events.ActivityLogged
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		projectedEmissions.WithLabelValues(evt.Category).Add(evt.CO2eKg)
		projectedActivities.WithLabelValues(evt.Category).Inc()
	case events.TypeActivityUpdated:
		var evt events.ActivityUpdated
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		projectedEmissions.WithLabelValues(evt.Category).Add(evt.CO2eKg - evt.PreviousCO2eKg)
	case events.TypeActivityDeleted:
		var evt events.ActivityDeleted
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		projectedEmissions.WithLabelValues(evt.Category).Sub(evt.CO2eKg)
		projectedActivities.WithLabelValues(evt.Category).Dec()
	case events.TypeActivitiesMigrated:
		var evt events.ActivitiesMigrated
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		projectedMigrations.Add(float64(evt.MigratedCount))
	default:
		// Unknown types are left to other handlers in the chain.
	}
	return nil
}
