package redis

import (
	"context"
	"fmt"

	"github.com/pscheid92/pixelgrid/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

type ClientOptions struct {
	// PoolSize bounds concurrent connections; zero keeps the go-redis default.
	PoolSize int
	// Metrics enables the metrics and circuit-breaker hooks when set.
	Metrics *metrics.RedisMetrics
}

// NewClient parses the URL, installs hooks and verifies the connection.
func NewClient(ctx context.Context, redisURL string, opts ClientOptions) (*goredis.Client, error) {
	parsed, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if opts.PoolSize > 0 {
		parsed.PoolSize = opts.PoolSize
	}

	client := goredis.NewClient(parsed)
	if opts.Metrics != nil {
		client.AddHook(NewMetricsHook(opts.Metrics))
		client.AddHook(NewCircuitBreakerHook(opts.Metrics))
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
