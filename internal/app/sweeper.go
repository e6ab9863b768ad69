package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pixelgrid/internal/platform/correlation"
	"github.com/pscheid92/pixelgrid/internal/registry"
)

// Sweeper periodically removes connections that have been inactive for
// longer than the timeout. The interval is fixed and does not depend on the
// number of connections.
type Sweeper struct {
	registry *registry.Registry
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration
}

func NewSweeper(reg *registry.Registry, clock clockwork.Clock, interval, timeout time.Duration) *Sweeper {
	return &Sweeper{registry: reg, clock: clock, interval: interval, timeout: timeout}
}

// Run starts the sweep loop. It blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sweepCtx := correlation.WithID(ctx, correlation.NewID())

	removed := s.registry.Sweep(s.timeout)
	if len(removed) == 0 {
		return
	}
	slog.InfoContext(sweepCtx, "Sweeper: removed inactive connections", "count", len(removed), "remaining", s.registry.Len(), "timeout", s.timeout)
}
