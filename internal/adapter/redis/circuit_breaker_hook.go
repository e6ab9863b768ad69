package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/pixelgrid/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

const (
	breakerFailures   = 3
	breakerExecutions = 5
	breakerDelay      = 30 * time.Second
	fallbackTTL       = 5 * time.Minute
)

// CircuitBreakerHook fails Redis commands fast while Redis is unhealthy.
// While open, GET is answered from the last successful read of the same key
// so canvas snapshots stay available; writes fail with circuitbreaker.ErrOpen.
type CircuitBreakerHook struct {
	cb       circuitbreaker.CircuitBreaker[any]
	fallback *readCache
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

type readCache struct {
	mu     sync.RWMutex
	values map[string]cachedRead
}

type cachedRead struct {
	data string
	at   time.Time
}

// NewCircuitBreakerHook opens after 3 failures out of the last 5 commands and
// probes again after 30s. m may be nil.
func NewCircuitBreakerHook(m *metrics.RedisMetrics) *CircuitBreakerHook {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureThresholdRatio(breakerFailures, breakerExecutions).
		WithDelay(breakerDelay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "redis",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			if m != nil {
				m.CircuitStateChanges.WithLabelValues(e.NewState.String()).Inc()
				m.CircuitState.Set(stateToFloat(e.NewState))
			}
		}).
		Build()

	return &CircuitBreakerHook{
		cb:       cb,
		fallback: &readCache{values: make(map[string]cachedRead)},
	}
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if !h.cb.TryAcquirePermit() {
			return nil, fmt.Errorf("circuit breaker dial failed: %w", circuitbreaker.ErrOpen)
		}
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.cb.RecordError(err)
			return nil, fmt.Errorf("circuit breaker dial failed: %w", err)
		}
		h.cb.RecordSuccess()
		return conn, nil
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			return h.handleOpen(cmd)
		}

		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, goredis.Nil) {
			h.cb.RecordError(err)
			return fmt.Errorf("circuit breaker process failed: %w", err)
		}
		h.cb.RecordSuccess()
		h.remember(cmd)
		return err
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			return fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)
		}

		err := next(ctx, cmds)
		if err != nil {
			h.cb.RecordError(err)
			return fmt.Errorf("circuit breaker pipeline failed: %w", err)
		}
		h.cb.RecordSuccess()
		return nil
	}
}

func (h *CircuitBreakerHook) handleOpen(cmd goredis.Cmder) error {
	if cmd.Name() == "get" {
		if c, ok := cmd.(*goredis.StringCmd); ok {
			if value, hit := h.lookup(cmd); hit {
				slog.Debug("Circuit breaker open, serving cached read", "args", cmd.Args())
				c.SetVal(value)
				return nil
			}
		}
	}
	return fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)
}

func (h *CircuitBreakerHook) remember(cmd goredis.Cmder) {
	if cmd.Name() != "get" || len(cmd.Args()) < 2 {
		return
	}
	c, ok := cmd.(*goredis.StringCmd)
	if !ok || c.Err() != nil {
		return
	}

	key := fmt.Sprint(cmd.Args()[1])
	h.fallback.mu.Lock()
	h.fallback.values[key] = cachedRead{data: c.Val(), at: time.Now()}
	h.fallback.mu.Unlock()
}

func (h *CircuitBreakerHook) lookup(cmd goredis.Cmder) (string, bool) {
	if len(cmd.Args()) < 2 {
		return "", false
	}
	key := fmt.Sprint(cmd.Args()[1])

	h.fallback.mu.RLock()
	defer h.fallback.mu.RUnlock()

	cached, ok := h.fallback.values[key]
	if !ok || time.Since(cached.at) > fallbackTTL {
		return "", false
	}
	return cached.data, true
}

// State returns the current breaker state.
func (h *CircuitBreakerHook) State() circuitbreaker.State {
	return h.cb.State()
}
