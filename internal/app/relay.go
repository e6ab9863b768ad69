package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pixelgrid/internal/adapter/metrics"
	"github.com/pscheid92/pixelgrid/internal/domain"
	"github.com/pscheid92/pixelgrid/internal/registry"
)

const relayErrorBackoff = 500 * time.Millisecond

// Relay consumes the broker topic and forwards every payload, unfiltered,
// to all local connections.
type Relay struct {
	source   domain.MessageSource
	registry *registry.Registry
	clock    clockwork.Clock
	metrics  *metrics.FanoutMetrics
	backoff  time.Duration
}

func NewRelay(source domain.MessageSource, reg *registry.Registry, clock clockwork.Clock, fanoutMetrics *metrics.FanoutMetrics) *Relay {
	return &Relay{
		source:   source,
		registry: reg,
		clock:    clock,
		metrics:  fanoutMetrics,
		backoff:  relayErrorBackoff,
	}
}

// Run blocks until ctx is cancelled. Receive errors are logged and the loop
// continues after a short backoff.
func (r *Relay) Run(ctx context.Context) error {
	for {
		payload, err := r.source.Next(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			r.count("error")
			slog.WarnContext(ctx, "Relay: receive failed", "error", err)
			if !r.wait(ctx) {
				return nil
			}
			continue
		}

		r.count("ok")
		fanOut(ctx, r.registry, r.registry.All(), payload, r.metrics)
	}
}

func (r *Relay) wait(ctx context.Context) bool {
	timer := r.clock.NewTimer(r.backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func (r *Relay) count(result string) {
	if r.metrics != nil {
		r.metrics.RelayedTotal.WithLabelValues(result).Inc()
	}
}
