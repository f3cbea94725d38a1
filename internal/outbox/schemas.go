package outbox

import "example.com/footprint/internal/events"

// All activity events share one topic and therefore one value subject, so the
// registered schema is a union of the individual event shapes.
const activityEventSchema = `{
  "type": "object",
  "title": "FootprintActivityEvent",
  "oneOf": [
    {
      "title": "ActivityLogged",
      "properties": {
        "activity_id": {"type": "string"},
        "user_id": {"type": "string"},
        "session_id": {"type": "string"},
        "category": {"type": "string"},
        "activity_type": {"type": "string"},
        "value": {"type": "number", "minimum": 0},
        "co2e_kg": {"type": "number", "minimum": 0},
        "date": {"type": "string", "format": "date"},
        "occurred_at": {"type": "string", "format": "date-time"}
      },
      "required": ["activity_id", "category", "activity_type", "value", "co2e_kg", "date", "occurred_at"]
    },
    {
      "title": "ActivityUpdated",
      "properties": {
        "activity_id": {"type": "string"},
        "user_id": {"type": "string"},
        "session_id": {"type": "string"},
        "category": {"type": "string"},
        "activity_type": {"type": "string"},
        "value": {"type": "number", "minimum": 0},
        "co2e_kg": {"type": "number", "minimum": 0},
        "previous_co2e_kg": {"type": "number", "minimum": 0},
        "date": {"type": "string", "format": "date"},
        "occurred_at": {"type": "string", "format": "date-time"}
      },
      "required": ["activity_id", "category", "activity_type", "value", "co2e_kg", "previous_co2e_kg", "date", "occurred_at"]
    },
    {
      "title": "ActivityDeleted",
      "properties": {
        "activity_id": {"type": "string"},
        "user_id": {"type": "string"},
        "session_id": {"type": "string"},
        "category": {"type": "string"},
        "co2e_kg": {"type": "number", "minimum": 0},
        "occurred_at": {"type": "string", "format": "date-time"}
      },
      "required": ["activity_id", "category", "co2e_kg", "occurred_at"]
    },
    {
      "title": "ActivitiesMigrated",
      "properties": {
        "user_id": {"type": "string"},
        "session_id": {"type": "string"},
        "migrated_count": {"type": "integer", "minimum": 0},
        "occurred_at": {"type": "string", "format": "date-time"}
      },
      "required": ["user_id", "session_id", "migrated_count", "occurred_at"]
    }
  ]
}`

// SchemaCatalogEntry maps an event type to its registered schema.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeActivityLogged:     {Schema: activityEventSchema},
	events.TypeActivityUpdated:    {Schema: activityEventSchema},
	events.TypeActivityDeleted:    {Schema: activityEventSchema},
	events.TypeActivitiesMigrated: {Schema: activityEventSchema},
}
