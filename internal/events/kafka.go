package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const eventTypeHeader = "event_type"

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if err := p.writer.WriteMessages(ctx, encodeMessage(ev)); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// encodeMessage keys messages by aggregate so that changes to one order stay ordered.
func encodeMessage(ev Event) kafka.Message {
	return kafka.Message{
		Key:   []byte(ev.AggregateID),
		Value: ev.Payload,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: eventTypeHeader, Value: []byte(ev.Type)},
		},
	}
}

func decodeMessage(m kafka.Message) (Event, error) {
	ev := Event{
		AggregateID: string(m.Key),
		Payload:     m.Value,
		OccurredAt:  m.Time,
	}
	for _, h := range m.Headers {
		if h.Key == eventTypeHeader {
			ev.Type = Type(h.Value)
		}
	}
	if ev.Type == "" {
		return Event{}, errors.New("message without event_type header")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return ev, nil
}

type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	log     *zap.Logger
}

// NewConsumer reads the storefront topic. Every instance should use its own group id so that each
// one refreshes its own live feeds.
func NewConsumer(handler Handler, groupID string, log *zap.Logger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       Topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MaxBytes:    10e6, // 10MB
	})
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{reader: reader, handler: handler, log: log}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn("error closing kafka reader", zap.Error(err))
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		c.log.Warn("error reading message", zap.Error(err))
		return
	}

	ev, err := decodeMessage(m)
	if err != nil {
		c.log.Warn("skipping message", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	c.handler(ctx, ev)
}
