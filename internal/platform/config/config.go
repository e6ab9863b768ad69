package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	ModeDirect      = "direct"
	ModeWriter      = "writer"
	ModeBroadcaster = "broadcaster"

	StoreRedis  = "redis"
	StoreMemory = "memory"

	BrokerRedis = "redis"
	BrokerKafka = "kafka"
)

type Config struct {
	Mode      string `env:"MODE" default:"direct"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS"`

	RedisURL      string `env:"REDIS_URL" default:"redis://localhost:6379"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" default:"20"`

	CanvasStore  string `env:"CANVAS_STORE" default:"redis"`
	CanvasKey    string `env:"CANVAS_KEY" default:"canvas"`
	CanvasWidth  int    `env:"CANVAS_WIDTH" default:"500"`
	CanvasHeight int    `env:"CANVAS_HEIGHT" default:"500"`
	QuadrantSize int    `env:"QUADRANT_SIZE" default:"50"`

	Broker       string   `env:"BROKER" default:"redis"`
	BrokerTopic  string   `env:"BROKER_TOPIC" default:"grid_updates"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int     `env:"MAX_CONNECTIONS_PER_IP" default:"50"`
	ConnectionRate          float64 `env:"CONNECTION_RATE" default:"10"`
	ConnectionBurst         int     `env:"CONNECTION_BURST" default:"20"`

	OutboxSize        int           `env:"OUTBOX_SIZE" default:"256"`
	SendTimeout       time.Duration `env:"SEND_TIMEOUT" default:"100ms"`
	InactivityTimeout time.Duration `env:"INACTIVITY_TIMEOUT" default:"60s"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" default:"10s"`
	ShutdownGrace     time.Duration `env:"SHUTDOWN_GRACE" default:"10s"`

	DrawRate  float64 `env:"DRAW_RATE" default:"20"`
	DrawBurst int     `env:"DRAW_BURST" default:"40"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// UsesRedis reports whether the configured mode needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.CanvasStore == StoreRedis || (c.Mode != ModeDirect && c.Broker == BrokerRedis)
}

func validate(cfg *Config) error {
	switch cfg.Mode {
	case ModeDirect, ModeWriter, ModeBroadcaster:
	default:
		return fmt.Errorf("MODE must be one of direct, writer, broadcaster, got %q", cfg.Mode)
	}

	switch cfg.CanvasStore {
	case StoreRedis:
	case StoreMemory:
		if cfg.Mode != ModeDirect {
			return errors.New("CANVAS_STORE=memory is only supported in direct mode")
		}
	default:
		return fmt.Errorf("CANVAS_STORE must be redis or memory, got %q", cfg.CanvasStore)
	}

	if cfg.Mode != ModeDirect {
		switch cfg.Broker {
		case BrokerRedis:
		case BrokerKafka:
			if len(cfg.KafkaBrokers) == 0 {
				return errors.New("KAFKA_BROKERS is required when BROKER=kafka")
			}
		default:
			return fmt.Errorf("BROKER must be redis or kafka, got %q", cfg.Broker)
		}
		if cfg.BrokerTopic == "" {
			return errors.New("BROKER_TOPIC is required")
		}
	}

	if cfg.UsesRedis() && cfg.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}

	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return fmt.Errorf("CANVAS_WIDTH and CANVAS_HEIGHT must be positive, got %dx%d", cfg.CanvasWidth, cfg.CanvasHeight)
	}
	if cfg.QuadrantSize <= 0 || cfg.QuadrantSize > min(cfg.CanvasWidth, cfg.CanvasHeight) {
		return fmt.Errorf("QUADRANT_SIZE must be between 1 and %d, got %d", min(cfg.CanvasWidth, cfg.CanvasHeight), cfg.QuadrantSize)
	}

	if cfg.OutboxSize < 1 {
		return errors.New("OUTBOX_SIZE must be at least 1")
	}
	if cfg.InactivityTimeout <= 0 || cfg.SweepInterval <= 0 {
		return errors.New("INACTIVITY_TIMEOUT and SWEEP_INTERVAL must be positive")
	}

	return nil
}
