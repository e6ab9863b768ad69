package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pixelgrid/internal/adapter/metrics"
	"github.com/pscheid92/pixelgrid/internal/domain"
	"github.com/pscheid92/pixelgrid/internal/quadrant"
)

const (
	defaultOutboxSize  = 256
	defaultSendTimeout = 100 * time.Millisecond
)

type Options struct {
	// MaxConnections caps registered connections; zero means unlimited.
	MaxConnections int

	OutboxSize int

	// SendTimeout bounds how long Send waits on a full outbox. Zero selects
	// the default, a negative value never waits.
	SendTimeout time.Duration
}

// Registry owns the set of live connections and keeps the subscription
// index free of removed ids.
type Registry struct {
	layout  quadrant.Layout
	index   *quadrant.Index
	clock   clockwork.Clock
	opts    Options
	metrics *metrics.WebSocketMetrics

	configuration []byte

	mu     sync.RWMutex
	nextID uint64
	conns  map[uint64]*Connection
}

// New builds a registry. wsMetrics may be nil.
func New(layout quadrant.Layout, index *quadrant.Index, clock clockwork.Clock, opts Options, wsMetrics *metrics.WebSocketMetrics) (*Registry, error) {
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = defaultOutboxSize
	}
	if opts.SendTimeout == 0 {
		opts.SendTimeout = defaultSendTimeout
	}

	configuration, err := domain.EncodeConfiguration(layout.Configuration())
	if err != nil {
		return nil, fmt.Errorf("build configuration message: %w", err)
	}

	return &Registry{
		layout:        layout,
		index:         index,
		clock:         clock,
		opts:          opts,
		metrics:       wsMetrics,
		configuration: configuration,
		conns:         make(map[uint64]*Connection),
	}, nil
}

// Add registers a new connection. The configuration message is queued on
// the fresh outbox before the connection becomes visible to any broadcast,
// so it is always the first message the connection yields.
func (r *Registry) Add() (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opts.MaxConnections > 0 && len(r.conns) >= r.opts.MaxConnections {
		return nil, domain.ErrConnectionLimit
	}

	r.nextID++
	conn := newConnection(r.nextID, r.clock, r.opts.OutboxSize, r.opts.SendTimeout)
	conn.outbox <- r.configuration
	r.conns[conn.id] = conn

	if r.metrics != nil {
		r.metrics.ActiveConnections.Set(float64(len(r.conns)))
	}
	return conn, nil
}

// Remove drops the connection and purges it from every quadrant in one
// critical section. Removing an unknown id is a no-op.
func (r *Registry) Remove(id uint64, reason CloseReason) bool {
	return r.removeIf(id, reason, nil)
}

func (r *Registry) removeIf(id uint64, reason CloseReason, pred func(*Connection) bool) bool {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if !ok || (pred != nil && !pred(conn)) {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, id)
	r.index.RemoveConnection(id)
	if r.metrics != nil {
		r.metrics.ActiveConnections.Set(float64(len(r.conns)))
	}
	r.mu.Unlock()

	conn.close(reason)

	if r.metrics != nil {
		r.metrics.RemovedTotal.WithLabelValues(reason.Text).Inc()
	}
	return true
}

// Subscribe adds the connection to a quadrant's subscriber set.
func (r *Registry) Subscribe(id uint64, quadrantID int) error {
	if !r.layout.Valid(quadrantID) {
		return fmt.Errorf("%w: %d", domain.ErrUnknownQuadrant, quadrantID)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conns[id]; !ok {
		return fmt.Errorf("%w: %d", domain.ErrUnknownConnection, id)
	}
	r.index.Subscribe(quadrantID, id)
	return nil
}

// Unsubscribe removes the connection from a quadrant's subscriber set.
// Unknown quadrants and non-members are no-ops.
func (r *Registry) Unsubscribe(id uint64, quadrantID int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.index.Unsubscribe(quadrantID, id)
}

// Touch records activity for the connection.
func (r *Registry) Touch(id uint64) {
	r.mu.RLock()
	conn, ok := r.conns[id]
	r.mu.RUnlock()
	if ok {
		conn.touch(r.clock.Now())
	}
}

// Sweep removes every connection idle for longer than timeout and returns
// the removed ids.
func (r *Registry) Sweep(timeout time.Duration) []uint64 {
	now := r.clock.Now()

	r.mu.RLock()
	var candidates []uint64
	for id, conn := range r.conns {
		if conn.idleLongerThan(now, timeout) {
			candidates = append(candidates, id)
		}
	}
	r.mu.RUnlock()

	removed := make([]uint64, 0, len(candidates))
	stillIdle := func(c *Connection) bool { return c.idleLongerThan(now, timeout) }
	for _, id := range candidates {
		if r.removeIf(id, ReasonInactivity, stillIdle) {
			removed = append(removed, id)
		}
	}
	return removed
}

// Get returns the live connection with the given id.
func (r *Registry) Get(id uint64) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// Subscribers snapshots the live connections subscribed to a quadrant.
func (r *Registry) Subscribers(quadrantID int) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.index.SubscribersOf(quadrantID)
	conns := make([]*Connection, 0, len(ids))
	for _, id := range ids {
		if conn, ok := r.conns[id]; ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

// All snapshots every live connection.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Shutdown removes every connection with ReasonShutdown and waits until each
// writer has flushed or ctx expires.
func (r *Registry) Shutdown(ctx context.Context) error {
	conns := r.All()
	for _, conn := range conns {
		r.Remove(conn.id, ReasonShutdown)
	}

	for _, conn := range conns {
		select {
		case <-conn.Flushed():
		case <-ctx.Done():
		}
	}

	pending := 0
	for _, conn := range conns {
		select {
		case <-conn.Flushed():
		default:
			pending++
		}
	}
	if pending > 0 {
		slog.WarnContext(ctx, "Shutdown grace period expired before all writers flushed", "pending", pending, "total", len(conns))
		return fmt.Errorf("%d of %d connections not flushed: %w", pending, len(conns), ctx.Err())
	}
	return nil
}
