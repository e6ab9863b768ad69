package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeDirect, cfg.Mode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, 20, cfg.RedisPoolSize)
	assert.Equal(t, "canvas", cfg.CanvasKey)
	assert.Equal(t, 500, cfg.CanvasWidth)
	assert.Equal(t, 500, cfg.CanvasHeight)
	assert.Equal(t, 50, cfg.QuadrantSize)
	assert.Equal(t, "grid_updates", cfg.BrokerTopic)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10000, cfg.MaxWebSocketConnections)
	assert.Equal(t, 256, cfg.OutboxSize)
	assert.Equal(t, 100*time.Millisecond, cfg.SendTimeout)
	assert.Equal(t, 60*time.Second, cfg.InactivityTimeout)
	assert.Equal(t, 10*time.Second, cfg.SweepInterval)
	assert.Equal(t, 10*time.Second, cfg.ShutdownGrace)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("MODE", "broadcaster")
	t.Setenv("BROKER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CANVAS_WIDTH", "200")
	t.Setenv("CANVAS_HEIGHT", "100")
	t.Setenv("QUADRANT_SIZE", "25")
	t.Setenv("SEND_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeBroadcaster, cfg.Mode)
	assert.Equal(t, BrokerKafka, cfg.Broker)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 200, cfg.CanvasWidth)
	assert.Equal(t, 100, cfg.CanvasHeight)
	assert.Equal(t, 25, cfg.QuadrantSize)
	assert.Equal(t, 250*time.Millisecond, cfg.SendTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown mode", map[string]string{"MODE": "replica"}, "MODE must be one of"},
		{"unknown store", map[string]string{"CANVAS_STORE": "postgres"}, "CANVAS_STORE must be redis or memory"},
		{"memory store in writer mode", map[string]string{"MODE": "writer", "CANVAS_STORE": "memory"}, "only supported in direct mode"},
		{"unknown broker", map[string]string{"MODE": "writer", "BROKER": "nats"}, "BROKER must be redis or kafka"},
		{"zero width", map[string]string{"CANVAS_WIDTH": "0"}, "must be positive"},
		{"quadrant larger than canvas", map[string]string{"CANVAS_WIDTH": "40", "CANVAS_HEIGHT": "40", "QUADRANT_SIZE": "50"}, "QUADRANT_SIZE must be between 1 and 40"},
		{"zero outbox", map[string]string{"OUTBOX_SIZE": "0"}, "OUTBOX_SIZE must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MemoryStoreWithoutRedis(t *testing.T) {
	t.Setenv("CANVAS_STORE", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.UsesRedis())
}
