package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pixelgrid/internal/adapter/httpserver"
	"github.com/pscheid92/pixelgrid/internal/adapter/kafka"
	"github.com/pscheid92/pixelgrid/internal/adapter/metrics"
	"github.com/pscheid92/pixelgrid/internal/adapter/redis"
	"github.com/pscheid92/pixelgrid/internal/adapter/websocket"
	"github.com/pscheid92/pixelgrid/internal/app"
	"github.com/pscheid92/pixelgrid/internal/canvas"
	"github.com/pscheid92/pixelgrid/internal/domain"
	"github.com/pscheid92/pixelgrid/internal/platform/config"
	"github.com/pscheid92/pixelgrid/internal/platform/logging"
	"github.com/pscheid92/pixelgrid/internal/platform/retry"
	"github.com/pscheid92/pixelgrid/internal/platform/version"
	"github.com/pscheid92/pixelgrid/internal/quadrant"
	"github.com/pscheid92/pixelgrid/internal/registry"
	goredis "github.com/redis/go-redis/v9"
)

const startupTimeout = 30 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config, m *metrics.RedisMetrics) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL, redis.ClientOptions{PoolSize: cfg.RedisPoolSize, Metrics: m})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupStore(ctx context.Context, cfg *config.Config, geometry canvas.Geometry, rdb *goredis.Client, clock clockwork.Clock) domain.CanvasStore {
	var store domain.CanvasStore
	if cfg.CanvasStore == config.StoreMemory {
		store = canvas.NewInMemoryStore(geometry)
	} else {
		store = redis.NewCanvasStore(rdb, cfg.CanvasKey, geometry)
	}

	policy := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Clock:          clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Canvas initialization failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
	err := retry.DoVoid(ctx, policy, func(error) retry.Action { return retry.Retry }, store.Initialize)
	if err != nil {
		slog.Error("Failed to initialize canvas", "error", err)
		os.Exit(1)
	}
	return store
}

func setupPublisher(cfg *config.Config, rdb *goredis.Client, instanceID string) domain.Publisher {
	if cfg.Broker == config.BrokerKafka {
		return kafka.NewPublisher(cfg.KafkaBrokers, cfg.BrokerTopic, instanceID)
	}
	return redis.NewPublisher(rdb, cfg.BrokerTopic)
}

func setupSource(ctx context.Context, cfg *config.Config, rdb *goredis.Client, instanceID string) domain.MessageSource {
	if cfg.Broker == config.BrokerKafka {
		return kafka.NewSource(cfg.KafkaBrokers, cfg.BrokerTopic, cfg.KafkaGroupID, instanceID)
	}
	sub, err := redis.Subscribe(ctx, rdb, cfg.BrokerTopic)
	if err != nil {
		slog.Error("Failed to subscribe to broker", "error", err)
		os.Exit(1)
	}
	return sub
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	instanceID := uuid.NewString()
	info := version.Get()
	slog.Info("Application starting", "mode", cfg.Mode, "port", cfg.Port, "instance", instanceID, "version", info.Version, "commit", info.Commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	promRegistry := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)
	wsMetrics := metrics.NewWebSocketMetrics(promRegistry)
	fanoutMetrics := metrics.NewFanoutMetrics(promRegistry)
	redisMetrics := metrics.NewRedisMetrics(promRegistry)

	geometry, err := canvas.NewGeometry(cfg.CanvasWidth, cfg.CanvasHeight)
	if err != nil {
		slog.Error("Invalid canvas geometry", "error", err)
		os.Exit(1)
	}
	layout, err := quadrant.NewLayout(cfg.CanvasWidth, cfg.CanvasHeight, cfg.QuadrantSize)
	if err != nil {
		slog.Error("Invalid quadrant layout", "error", err)
		os.Exit(1)
	}

	startupCtx, cancelStartup := context.WithTimeout(ctx, startupTimeout)
	defer cancelStartup()

	var rdb *goredis.Client
	var healthChecks []httpserver.HealthCheck
	if cfg.UsesRedis() {
		rdb = setupRedis(startupCtx, cfg, redisMetrics)
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	store := setupStore(startupCtx, cfg, geometry, rdb, clock)
	healthChecks = append(healthChecks, httpserver.HealthCheck{
		Name: "canvas",
		Check: func(ctx context.Context) error {
			_, err := store.ReadFull(ctx)
			return err
		},
	})

	reg, err := registry.New(layout, quadrant.NewIndex(), clock, registry.Options{
		MaxConnections: cfg.MaxWebSocketConnections,
		OutboxSize:     cfg.OutboxSize,
		SendTimeout:    cfg.SendTimeout,
	}, wsMetrics)
	if err != nil {
		slog.Error("Failed to create registry", "error", err)
		os.Exit(1)
	}

	supervisor := app.NewSupervisor(cfg.ShutdownGrace)

	var deliverer app.Deliverer
	var publisher domain.Publisher
	if cfg.Mode == config.ModeDirect {
		deliverer = app.NewQuadrantDeliverer(layout, reg, fanoutMetrics)
	} else {
		publisher = setupPublisher(cfg, rdb, instanceID)
		deliverer = app.NewTopicDeliverer(publisher, fanoutMetrics)
	}
	dispatcher := app.NewDispatcher(geometry, store, deliverer, clock, fanoutMetrics)

	srvConfig := httpserver.Config{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		DrawRate:       cfg.DrawRate,
		DrawBurst:      cfg.DrawBurst,
		MetricsHandler: metrics.Handler(promRegistry),
		HTTPMetrics:    httpMetrics,
		HealthChecks:   healthChecks,
	}
	if cfg.Mode != config.ModeWriter {
		limits := websocket.NewLimits(websocket.LimitsConfig{
			MaxConnections:  cfg.MaxWebSocketConnections,
			MaxPerIP:        cfg.MaxConnectionsPerIP,
			ConnectionsRate: cfg.ConnectionRate,
			Burst:           cfg.ConnectionBurst,
		}, clock)
		wsHandler := websocket.NewHandler(reg, dispatcher, limits, websocket.NewCheckOrigin(cfg.AllowedOrigins), clock, wsMetrics)
		srvConfig.WebSocket = wsHandler.Serve

		supervisor.Go("sweeper", app.NewSweeper(reg, clock, cfg.SweepInterval, cfg.InactivityTimeout).Run)
	}

	if cfg.Mode == config.ModeBroadcaster {
		source := setupSource(startupCtx, cfg, rdb, instanceID)
		supervisor.Go("relay", app.NewRelay(source, reg, clock, fanoutMetrics).Run)
		supervisor.OnShutdown("broker source", func(context.Context) error { return source.Close() })
	}
	cancelStartup()

	srv := httpserver.NewServer(srvConfig, store, dispatcher)
	supervisor.Go("http", srv.Run)

	supervisor.OnShutdown("http server", srv.Shutdown)
	supervisor.OnShutdown("connections", reg.Shutdown)
	if publisher != nil {
		supervisor.OnShutdown("broker publisher", func(context.Context) error { return publisher.Close() })
	}
	if rdb != nil {
		supervisor.OnShutdown("redis", func(context.Context) error { return rdb.Close() })
	}

	if err := supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
