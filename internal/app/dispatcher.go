package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pixelgrid/internal/adapter/metrics"
	"github.com/pscheid92/pixelgrid/internal/canvas"
	"github.com/pscheid92/pixelgrid/internal/domain"
)

// Deliverer hands a persisted update to its recipients.
type Deliverer interface {
	Deliver(ctx context.Context, event domain.DrawEvent, payload []byte) error
}

// Dispatcher applies draw events. An update is only ever delivered after it
// was persisted.
type Dispatcher struct {
	geometry  canvas.Geometry
	store     domain.CanvasStore
	deliverer Deliverer
	clock     clockwork.Clock
	metrics   *metrics.FanoutMetrics
}

// NewDispatcher creates a dispatcher. fanoutMetrics may be nil.
func NewDispatcher(geometry canvas.Geometry, store domain.CanvasStore, deliverer Deliverer, clock clockwork.Clock, fanoutMetrics *metrics.FanoutMetrics) *Dispatcher {
	return &Dispatcher{
		geometry:  geometry,
		store:     store,
		deliverer: deliverer,
		clock:     clock,
		metrics:   fanoutMetrics,
	}
}

// UpdateCell validates, persists and delivers a single-cell write. Only
// validation and storage failures are returned; encoding and delivery
// failures happen after the write is durable and are logged instead.
func (d *Dispatcher) UpdateCell(ctx context.Context, event domain.DrawEvent) error {
	start := d.clock.Now()
	result := "ok"
	defer func() {
		if d.metrics != nil {
			d.metrics.DrawsTotal.WithLabelValues(result).Inc()
			d.metrics.DrawDuration.Observe(d.clock.Since(start).Seconds())
		}
	}()

	if err := d.geometry.Validate(event.X, event.Y, event.Color); err != nil {
		result = "invalid"
		return err
	}

	if err := d.store.WriteCell(ctx, event.X, event.Y, event.Color); err != nil {
		if domain.IsValidation(err) {
			result = "invalid"
			return err
		}
		result = "storage_error"
		if !errors.Is(err, domain.ErrStorage) {
			err = fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}
		slog.ErrorContext(ctx, "Failed to persist cell", "event", event.String(), "error", err)
		return err
	}

	payload, err := domain.EncodeUpdate(event)
	if err != nil {
		result = "encode_error"
		slog.ErrorContext(ctx, "Failed to encode update, skipping delivery", "event", event.String(), "error", err)
		return nil
	}

	if err := d.deliverer.Deliver(ctx, event, payload); err != nil {
		result = "delivery_error"
		slog.WarnContext(ctx, "Failed to deliver update", "event", event.String(), "error", err)
	}
	return nil
}
