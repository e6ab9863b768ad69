package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pscheid92/pixelgrid/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Publisher sends update envelopes to a Redis Pub/Sub channel.
type Publisher struct {
	rdb     *goredis.Client
	channel string
}

func NewPublisher(rdb *goredis.Client, channel string) *Publisher {
	return &Publisher{rdb: rdb, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, event domain.DrawEvent, payload []byte) error {
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event, p.channel, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (p *Publisher) Close() error {
	return nil
}

// Subscription yields payloads published on a Redis Pub/Sub channel.
type Subscription struct {
	pubsub  *goredis.PubSub
	channel string
}

// Subscribe subscribes to channel and waits for the server's confirmation,
// so no message published after Subscribe returns is missed.
func Subscribe(ctx context.Context, rdb *goredis.Client, channel string) (*Subscription, error) {
	pubsub := rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}
	slog.Debug("Subscribed to broker channel", "channel", channel)
	return &Subscription{pubsub: pubsub, channel: channel}, nil
}

func (s *Subscription) Next(ctx context.Context) ([]byte, error) {
	msg, err := s.pubsub.ReceiveMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("receive from %s: %w", s.channel, err)
	}
	return []byte(msg.Payload), nil
}

func (s *Subscription) Close() error {
	if err := s.pubsub.Close(); err != nil {
		return fmt.Errorf("close subscription %s: %w", s.channel, err)
	}
	return nil
}
