// Package consumer reads framed activity events from Kafka and dispatches them to handlers.
package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"example.com/footprint/internal/logging"
)

// Reader exposes the subset of kafka.Reader the processor needs.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages.
type Handler interface {
	Handle(context.Context, Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Message is a decoded record emitted by the outbox dispatcher.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	OwnerKey      string
	AggregateID   string
	SchemaSubject string
	SchemaID      int
	Payload       []byte
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger overrides the processor logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// Processor pulls messages from Kafka, decodes them and hands them to a Handler. Offsets
// are committed only after the handler succeeds.
type Processor struct {
	reader  Reader
	handler Handler
	logger  zerolog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  logging.Component("consumer"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run fetches records until ctx is cancelled. Fetch errors other than cancellation are
// logged and retried.
func (p *Processor) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		record, err := p.reader.FetchMessage(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			p.logger.Warn().Err(err).Msg("fetch failed")
			continue
		}
		p.process(ctx, record)
	}
	return ctx.Err()
}

// process handles one record. The offset is committed when the handler succeeds or when
// the record can never be decoded; handler failures leave it uncommitted for redelivery.
func (p *Processor) process(ctx context.Context, record kafka.Message) {
	msg, err := decodeMessage(record)
	if err != nil {
		p.logger.Error().Err(err).
			Str("topic", record.Topic).
			Int("partition", record.Partition).
			Int64("offset", record.Offset).
			Msg("dropping undecodable record")
		observe(Message{Topic: record.Topic, EventType: "unknown"}, outcomeUndecodable, time.Now())
		p.commit(ctx, record)
		return
	}

	if err := p.handler.Handle(ctx, msg); err != nil && !errors.Is(err, ErrDuplicate) {
		p.logger.Error().Err(err).
			Str("event_type", msg.EventType).
			Str("owner", msg.OwnerKey).
			Int64("offset", msg.Offset).
			Msg("handler failed")
		observe(msg, outcomeHandlerFail, time.Now())
		return
	}
	if p.commit(ctx, record) {
		observe(msg, outcomeHandled, time.Now())
	}
}

func (p *Processor) commit(ctx context.Context, record kafka.Message) bool {
	if err := p.reader.CommitMessages(ctx, record); err != nil {
		p.logger.Error().Err(err).Int64("offset", record.Offset).Msg("commit failed")
		return false
	}
	return true
}

// frameHeaderLen is the magic byte plus the big-endian schema id.
const frameHeaderLen = 5

func decodeMessage(record kafka.Message) (Message, error) {
	if len(record.Value) < frameHeaderLen {
		return Message{}, fmt.Errorf("record too short for schema framing: %d bytes", len(record.Value))
	}
	if magic := record.Value[0]; magic != 0 {
		return Message{}, fmt.Errorf("unexpected magic byte %d", magic)
	}

	headers := make(map[string]string, len(record.Headers))
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	eventType := headers["event_type"]
	if eventType == "" {
		return Message{}, errors.New("missing event_type header")
	}

	return Message{
		Topic:         record.Topic,
		Partition:     record.Partition,
		Offset:        record.Offset,
		Timestamp:     record.Time,
		EventType:     eventType,
		OwnerKey:      string(record.Key),
		AggregateID:   headers["aggregate_id"],
		SchemaSubject: headers["schema_subject"],
		SchemaID:      int(binary.BigEndian.Uint32(record.Value[1:frameHeaderLen])),
		Payload:       append([]byte(nil), record.Value[frameHeaderLen:]...),
	}, nil
}

// ErrDuplicate is returned by a handler that has already seen the record.
var ErrDuplicate = errors.New("consumer: duplicate record")

// Chain runs handlers in order and stops at the first error.
// ErrDuplicate stops the chain without failing the record.
type Chain []Handler

func (c Chain) Handle(ctx context.Context, msg Message) error {
	for _, h := range c {
		if err := h.Handle(ctx, msg); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return nil
			}
			return err
		}
	}
	return nil
}
