package postgres

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/events"
)

// ActivityTopic receives every activity event so per-owner ordering is preserved.
const ActivityTopic = "footprint_activity_events"

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.Owner) string
}

func ownerKey(o domain.Owner) string { return o.Key() }

var eventCatalog = map[string]EventMetadata{
	events.TypeActivityLogged:     {Topic: ActivityTopic, SchemaSubject: ActivityTopic + "-value", PartitionKeyFn: ownerKey},
	events.TypeActivityUpdated:    {Topic: ActivityTopic, SchemaSubject: ActivityTopic + "-value", PartitionKeyFn: ownerKey},
	events.TypeActivityDeleted:    {Topic: ActivityTopic, SchemaSubject: ActivityTopic + "-value", PartitionKeyFn: ownerKey},
	events.TypeActivitiesMigrated: {Topic: ActivityTopic, SchemaSubject: ActivityTopic + "-value", PartitionKeyFn: ownerKey},
}

// EventRoute exposes the routing metadata for an event type.
func EventRoute(eventType string) (EventMetadata, bool) {
	meta, ok := eventCatalog[eventType]
	return meta, ok
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventType, aggregateID string, owner domain.Owner, payload any) error {
	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		"activity",
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(owner),
		body,
	)
	return err
}
