package outbox

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"

	"example.com/footprint/internal/events"
)

type topicWrite struct {
	topic    string
	messages []kafka.Message
}

type stubProducer struct {
	mu     sync.Mutex
	writes []topicWrite
	err    error
}

func (s *stubProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, topicWrite{topic: topic, messages: msgs})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	err   error
	calls []string
}

func (s *stubRegistry) EnsureSchema(_ context.Context, subject, _ string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, subject)
	return s.id, s.err
}

func testMessage(id int64, eventType, key string) Message {
	return Message{
		EventID:       id,
		AggregateType: "activity",
		AggregateID:   "act-1",
		EventType:     eventType,
		Topic:         "footprint_activity_events",
		SchemaSubject: "footprint_activity_events-value",
		PartitionKey:  key,
		Payload:       []byte(`{"activity_id":"act-1"}`),
	}
}

func TestEncodeWireFormat(t *testing.T) {
	frame := encodeWireFormat(258, []byte(`{}`))
	require.Len(t, frame, 7)
	require.Equal(t, byte(0), frame[0])
	require.Equal(t, uint32(258), binary.BigEndian.Uint32(frame[1:5]))
	require.Equal(t, []byte(`{}`), frame[5:])
}

func TestDeliverFramesRecordsAndCachesSchema(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	d := NewDispatcher(nil, producer, registry, time.Second, 10)

	msgs := []Message{
		testMessage(1, events.TypeActivityLogged, "user:u1"),
		testMessage(2, events.TypeActivityUpdated, "user:u1"),
		testMessage(3, events.TypeActivityDeleted, "session:s1"),
	}
	require.NoError(t, d.deliver(context.Background(), msgs))

	require.Len(t, producer.writes, 1)
	write := producer.writes[0]
	require.Equal(t, "footprint_activity_events", write.topic)
	require.Len(t, write.messages, 3)
	require.Len(t, registry.calls, 1)

	first := write.messages[0]
	require.Equal(t, "user:u1", string(first.Key))
	require.Equal(t, uint32(42), binary.BigEndian.Uint32(first.Value[1:5]))

	headers := map[string]string{}
	for _, h := range first.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, events.TypeActivityLogged, headers[HeaderEventType])
	require.Equal(t, "footprint_activity_events-value", headers[HeaderSchemaSubject])
	require.Equal(t, "act-1", headers[HeaderAggregateID])
	require.Equal(t, "session:s1", string(write.messages[2].Key))
}

func TestDeliverRejectsUnknownEventType(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 1}
	d := NewDispatcher(nil, producer, registry, time.Second, 10)

	err := d.deliver(context.Background(), []Message{testMessage(1, "activity.teleported", "user:u1")})
	require.ErrorContains(t, err, "no schema metadata for event_type=activity.teleported")
	require.Empty(t, producer.writes)
	require.Empty(t, registry.calls)
}

func TestDeliverPropagatesWriteErrors(t *testing.T) {
	producer := &stubProducer{err: errors.New("broker down")}
	d := NewDispatcher(nil, producer, &stubRegistry{id: 3}, time.Second, 10)

	err := d.deliver(context.Background(), []Message{testMessage(1, events.TypeActivityLogged, "user:u1")})
	require.ErrorContains(t, err, "broker down")
}

func TestSchemaRegistryRegistersMissingSubject(t *testing.T) {
	var registered atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if !registered.Load() {
				http.Error(w, `{"error_code":40401}`, http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"id":11}`))
		case http.MethodPost:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "JSON", body["schemaType"])
			registered.Store(true)
			_, _ = w.Write([]byte(`{"id":11}`))
		}
	}))
	defer server.Close()

	client := NewSchemaRegistryClient(server.URL, BreakerConfig{})
	id, err := client.EnsureSchema(context.Background(), "footprint_activity_events-value", activityEventSchema)
	require.NoError(t, err)
	require.Equal(t, 11, id)
	require.True(t, registered.Load())

	id, err = client.EnsureSchema(context.Background(), "footprint_activity_events-value", activityEventSchema)
	require.NoError(t, err)
	require.Equal(t, 11, id)
}

func TestSchemaRegistryBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewSchemaRegistryClient(server.URL, BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})
	for i := 0; i < 2; i++ {
		_, err := client.EnsureSchema(context.Background(), "s", "{}")
		require.ErrorContains(t, err, "schema registry error")
	}

	_, err := client.EnsureSchema(context.Background(), "s", "{}")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, int32(2), hits.Load())
}

func TestBackoffDelay(t *testing.T) {
	m := NewDLQManager(nil, DLQConfig{BaseDelay: time.Minute})
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 2*time.Minute, m.backoffDelay(2))
	require.Equal(t, 16*time.Minute, m.backoffDelay(5))
	require.Equal(t, time.Hour, m.backoffDelay(7))
	require.Equal(t, time.Hour, m.backoffDelay(64))
}

func TestQuarantineReason(t *testing.T) {
	entry := dlqEntry{EventType: events.TypeActivityLogged, SchemaSubject: "footprint_activity_events-value", RetryCount: 1}
	require.Empty(t, quarantineReason(entry, 5))

	entry.RetryCount = 5
	require.Equal(t, "retry limit reached", quarantineReason(entry, 5))

	require.Contains(t, quarantineReason(dlqEntry{EventType: "x.y"}, 5), "unknown event type")
	require.Equal(t, "missing schema subject", quarantineReason(dlqEntry{EventType: events.TypeActivityLogged}, 5))
}
