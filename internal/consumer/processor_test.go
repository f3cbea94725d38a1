package consumer

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/footprint/internal/events"
)

func framed(schemaID uint32, payload string) []byte {
	value := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(value[1:5], schemaID)
	copy(value[5:], payload)
	return value
}

func record(offset int64, eventType, payload string) kafka.Message {
	return kafka.Message{
		Topic:     "footprint_activity_events",
		Partition: 0,
		Offset:    offset,
		Time:      time.Now().UTC(),
		Key:       []byte("user:u1"),
		Value:     framed(42, payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "schema_subject", Value: []byte("footprint_activity_events-value")},
			{Key: "aggregate_id", Value: []byte("act-1")},
		},
	}
}

func quietLogger() zerolog.Logger { return zerolog.New(&bytes.Buffer{}) }

func TestProcessorCommitsOnSuccess(t *testing.T) {
	payload := `{"activity_id":"act-1"}`
	reader := &stubReader{messages: []kafka.Message{record(10, events.TypeActivityLogged, payload)}}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, events.TypeActivityLogged, handler.last.EventType)
	require.Equal(t, "user:u1", handler.last.OwnerKey)
	require.Equal(t, "act-1", handler.last.AggregateID)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, payload, string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{record(20, events.TypeActivityDeleted, `{}`)}}
	handler := &stubHandler{err: errors.New("boom")}

	before := testutil.ToFloat64(messagesCounter.WithLabelValues("footprint_activity_events", events.TypeActivityDeleted, outcomeHandlerFail))
	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Zero(t, reader.commitCalls)
	require.InDelta(t, before+1, testutil.ToFloat64(messagesCounter.WithLabelValues("footprint_activity_events", events.TypeActivityDeleted, outcomeHandlerFail)), 0.0001)
}

func TestProcessorCommitsMalformedRecords(t *testing.T) {
	short := record(30, events.TypeActivityLogged, "")
	short.Value = []byte{0, 1}
	missingHeader := record(31, events.TypeActivityLogged, `{}`)
	missingHeader.Headers = nil

	reader := &stubReader{messages: []kafka.Message{short, missingHeader}}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, handler.calls)
	require.Equal(t, 2, reader.commitCalls)
}

func TestChainStopsAtFirstError(t *testing.T) {
	var order []string
	first := HandlerFunc(func(context.Context, Message) error {
		order = append(order, "first")
		return errors.New("stop")
	})
	second := HandlerFunc(func(context.Context, Message) error {
		order = append(order, "second")
		return nil
	})

	err := Chain{first, second}.Handle(context.Background(), Message{})
	require.EqualError(t, err, "stop")
	require.Equal(t, []string{"first"}, order)
}

func TestChainTreatsDuplicateAsHandled(t *testing.T) {
	called := false
	dedupe := HandlerFunc(func(context.Context, Message) error { return ErrDuplicate })
	next := HandlerFunc(func(context.Context, Message) error {
		called = true
		return nil
	})

	require.NoError(t, Chain{dedupe, next}.Handle(context.Background(), Message{}))
	require.False(t, called)
}

func TestProcessorProjectsRedeliveredRecordOnce(t *testing.T) {
	type position struct {
		partition int
		offset    int64
	}
	seen := map[position]bool{}
	dedupe := HandlerFunc(func(_ context.Context, msg Message) error {
		key := position{msg.Partition, msg.Offset}
		if seen[key] {
			return ErrDuplicate
		}
		seen[key] = true
		return nil
	})

	gauge := projectedEmissions.WithLabelValues("energy")
	count := projectedActivities.WithLabelValues("energy")
	baseKg, baseCount := testutil.ToFloat64(gauge), testutil.ToFloat64(count)

	logged := record(40, events.TypeActivityLogged, `{"category":"energy","co2e_kg":23}`)
	reader := &stubReader{messages: []kafka.Message{logged, logged}}

	err := NewProcessor(reader, Chain{dedupe, NewFootprintProjector()}, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 2, reader.commitCalls)
	require.InDelta(t, baseKg+23, testutil.ToFloat64(gauge), 0.0001)
	require.InDelta(t, baseCount+1, testutil.ToFloat64(count), 0.0001)
}

func TestProcessorCommitsDuplicateFromBareHandler(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{record(50, events.TypeActivityLogged, `{}`)}}
	handler := &stubHandler{err: ErrDuplicate}

	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, reader.commitCalls)
}

func TestFootprintProjector(t *testing.T) {
	ctx := context.Background()
	p := NewFootprintProjector()
	gauge := projectedEmissions.WithLabelValues("food")
	count := projectedActivities.WithLabelValues("food")
	baseKg, baseCount := testutil.ToFloat64(gauge), testutil.ToFloat64(count)

	require.NoError(t, p.Handle(ctx, Message{EventType: events.TypeActivityLogged, Payload: []byte(`{"category":"food","co2e_kg":13.5}`)}))
	require.NoError(t, p.Handle(ctx, Message{EventType: events.TypeActivityUpdated, Payload: []byte(`{"category":"food","co2e_kg":6.9,"previous_co2e_kg":13.5}`)}))
	require.InDelta(t, baseKg+6.9, testutil.ToFloat64(gauge), 0.0001)
	require.InDelta(t, baseCount+1, testutil.ToFloat64(count), 0.0001)

	require.NoError(t, p.Handle(ctx, Message{EventType: events.TypeActivityDeleted, Payload: []byte(`{"category":"food","co2e_kg":6.9}`)}))
	require.InDelta(t, baseKg, testutil.ToFloat64(gauge), 0.0001)
	require.InDelta(t, baseCount, testutil.ToFloat64(count), 0.0001)

	migrated := testutil.ToFloat64(projectedMigrations)
	require.NoError(t, p.Handle(ctx, Message{EventType: events.TypeActivitiesMigrated, Payload: []byte(`{"migrated_count":3}`)}))
	require.InDelta(t, migrated+3, testutil.ToFloat64(projectedMigrations), 0.0001)

	require.NoError(t, p.Handle(ctx, Message{EventType: "something.else"}))
	require.Error(t, p.Handle(ctx, Message{EventType: events.TypeActivityLogged, Payload: []byte(`{`)}))
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}
