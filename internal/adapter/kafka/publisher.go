package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pscheid92/pixelgrid/internal/domain"
	"github.com/segmentio/kafka-go"
)

const instanceHeader = "instance"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes update envelopes keyed by cell, so all updates to one
// cell land on the same partition in order.
type Publisher struct {
	writer     messageWriter
	topic      string
	instanceID string
}

func NewPublisher(brokers []string, topic, instanceID string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, topic, instanceID)
}

func newPublisher(w messageWriter, topic, instanceID string) *Publisher {
	return &Publisher{writer: w, topic: topic, instanceID: instanceID}
}

func (p *Publisher) Publish(ctx context.Context, event domain.DrawEvent, payload []byte) error {
	msg := kafka.Message{
		Key:   cellKey(event),
		Value: payload,
		Headers: []kafka.Header{
			{Key: instanceHeader, Value: []byte(p.instanceID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event, p.topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

func cellKey(event domain.DrawEvent) []byte {
	key := strconv.AppendInt(nil, int64(event.X), 10)
	key = append(key, ',')
	return strconv.AppendInt(key, int64(event.Y), 10)
}
