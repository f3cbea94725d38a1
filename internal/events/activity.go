// Package events defines the payloads published for activity changes.
package events

import "time"

// Event type names carried in the outbox and in the Kafka event_type header.
const (
	TypeActivityLogged     = "activity.logged"
	TypeActivityUpdated    = "activity.updated"
	TypeActivityDeleted    = "activity.deleted"
	TypeActivitiesMigrated = "activities.migrated"
)

// ActivityLogged is emitted when a new activity is stored.
type ActivityLogged struct {
	ActivityID   string    `json:"activity_id"`
	UserID       string    `json:"user_id,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	Category     string    `json:"category"`
	ActivityType string    `json:"activity_type"`
	Value        float64   `json:"value"`
	CO2eKg       float64   `json:"co2e_kg"`
	Date         string    `json:"date"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ActivityUpdated is emitted after an activity is recalculated. PreviousCO2eKg lets
// projections apply the delta.
type ActivityUpdated struct {
	ActivityID     string    `json:"activity_id"`
	UserID         string    `json:"user_id,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	Category       string    `json:"category"`
	ActivityType   string    `json:"activity_type"`
	Value          float64   `json:"value"`
	CO2eKg         float64   `json:"co2e_kg"`
	PreviousCO2eKg float64   `json:"previous_co2e_kg"`
	Date           string    `json:"date"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ActivityDeleted is emitted when an activity is removed.
type ActivityDeleted struct {
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Category   string    `json:"category"`
	CO2eKg     float64   `json:"co2e_kg"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ActivitiesMigrated is emitted when session activities are linked to a user.
type ActivitiesMigrated struct {
	UserID        string    `json:"user_id"`
	SessionID     string    `json:"session_id"`
	MigratedCount int       `json:"migrated_count"`
	OccurredAt    time.Time `json:"occurred_at"`
}
