package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Source reads update envelopes from a topic.
type Source struct {
	reader messageReader
	topic  string
}

// NewSource joins groupID. An empty groupID gives the instance its own
// group starting at the newest offset, so every replica sees every update.
func NewSource(brokers []string, topic, groupID, instanceID string) *Source {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "pixelgrid-" + instanceID
		cfg.StartOffset = kafka.LastOffset
	}
	slog.Debug("Creating kafka source", "topic", topic, "group", cfg.GroupID)
	return newSource(kafka.NewReader(cfg), topic)
}

func newSource(r messageReader, topic string) *Source {
	return &Source{reader: r, topic: topic}
}

func (s *Source) Next(ctx context.Context) ([]byte, error) {
	msg, err := s.reader.ReadMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("read from %s: %w", s.topic, err)
	}
	return msg.Value, nil
}

func (s *Source) Close() error {
	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("close kafka reader: %w", err)
	}
	return nil
}
