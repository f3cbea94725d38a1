//go:build integration

package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"example.com/footprint/internal/events"
	"example.com/footprint/internal/testsupport"
)

const testTopic = "footprint_activity_events"

func seedOutbox(t *testing.T, ctx context.Context, pool *pgxpool.Pool, eventType string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
         VALUES ('activity', 'act-1', $1, $2, $3, 'user:u1', '{"activity_id":"act-1"}')
         RETURNING event_id`,
		eventType, testTopic, testTopic+"-value",
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func histogramSampleCount(t *testing.T) uint64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, batchDuration.Write(metric))
	hist := metric.GetHistogram()
	require.NotNil(t, hist)
	return hist.GetSampleCount()
}

func TestDispatcherPublishesAndMarks(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	seedOutbox(t, ctx, pool, events.TypeActivityLogged)
	seedOutbox(t, ctx, pool, events.TypeActivityDeleted)

	producer := &stubProducer{}
	registry := &stubRegistry{id: 5}
	d := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 10)

	before := testutil.ToFloat64(deliveredCounter)
	samples := histogramSampleCount(t)
	n, err := d.processBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.InDelta(t, before+2, testutil.ToFloat64(deliveredCounter), 0.0001)
	require.Equal(t, samples+1, histogramSampleCount(t))

	require.Len(t, producer.writes, 1)
	require.Len(t, producer.writes[0].messages, 2)

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Zero(t, pending)
}

func TestDispatcherFailureRoutesToDLQAndManagerRequeues(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	eventID := seedOutbox(t, ctx, pool, events.TypeActivityUpdated)

	d := NewDispatcher(pool, &stubProducer{err: errors.New("kafka write failed")}, &stubRegistry{id: 5}, 10*time.Millisecond, 10)
	beforeDLQ := testutil.ToFloat64(dlqCounter.WithLabelValues(testTopic))
	_, err := d.processBatch(ctx)
	require.NoError(t, err)
	require.InDelta(t, beforeDLQ+1, testutil.ToFloat64(dlqCounter.WithLabelValues(testTopic)), 0.0001)

	var reason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT reason FROM outbox_dlq WHERE event_id = $1`, eventID).Scan(&reason))
	require.Contains(t, reason, "kafka write failed")

	manager := NewDLQManager(pool, DLQConfig{MaxRetries: 3, BaseDelay: time.Second})
	processed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, processed)

	var dlqLeft, replay int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&dlqLeft))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL AND event_type = $1`, events.TypeActivityUpdated).Scan(&replay))
	require.Zero(t, dlqLeft)
	require.Equal(t, 1, replay)
}

func TestDLQManagerQuarantinesExhaustedEntries(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	_, err := pool.Exec(ctx,
		`INSERT INTO outbox_dlq (event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, retry_count)
         VALUES (1, $1, $2, '{}', 'boom', 'activity', 'act-1', $3, 'user:u1', 3)`,
		events.TypeActivityLogged, testTopic, testTopic+"-value",
	)
	require.NoError(t, err)

	manager := NewDLQManager(pool, DLQConfig{MaxRetries: 3})
	before := testutil.ToFloat64(dlqActions.WithLabelValues(testTopic, events.TypeActivityLogged, dlqActionQuarantined))
	processed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, processed)
	require.InDelta(t, before+1, testutil.ToFloat64(dlqActions.WithLabelValues(testTopic, events.TypeActivityLogged, dlqActionQuarantined)), 0.0001)

	var quarantineReason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT quarantine_reason FROM outbox_dlq WHERE quarantined_at IS NOT NULL`).Scan(&quarantineReason))
	require.Equal(t, "retry limit reached", quarantineReason)
}
