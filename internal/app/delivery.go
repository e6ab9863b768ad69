package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pscheid92/pixelgrid/internal/adapter/metrics"
	"github.com/pscheid92/pixelgrid/internal/domain"
	"github.com/pscheid92/pixelgrid/internal/quadrant"
	"github.com/pscheid92/pixelgrid/internal/registry"
)

// QuadrantDeliverer pushes updates to the local connections subscribed to
// the quadrant containing the drawn cell.
type QuadrantDeliverer struct {
	layout   quadrant.Layout
	registry *registry.Registry
	metrics  *metrics.FanoutMetrics
}

func NewQuadrantDeliverer(layout quadrant.Layout, reg *registry.Registry, fanoutMetrics *metrics.FanoutMetrics) *QuadrantDeliverer {
	return &QuadrantDeliverer{layout: layout, registry: reg, metrics: fanoutMetrics}
}

func (d *QuadrantDeliverer) Deliver(ctx context.Context, event domain.DrawEvent, payload []byte) error {
	quadrantID, err := d.layout.QuadrantOf(event.X, event.Y)
	if err != nil {
		return fmt.Errorf("resolve quadrant: %w", err)
	}
	fanOut(ctx, d.registry, d.registry.Subscribers(quadrantID), payload, d.metrics)
	return nil
}

// TopicDeliverer publishes updates to the broker instead of delivering them
// locally.
type TopicDeliverer struct {
	publisher domain.Publisher
	metrics   *metrics.FanoutMetrics
}

func NewTopicDeliverer(publisher domain.Publisher, fanoutMetrics *metrics.FanoutMetrics) *TopicDeliverer {
	return &TopicDeliverer{publisher: publisher, metrics: fanoutMetrics}
}

func (d *TopicDeliverer) Deliver(ctx context.Context, event domain.DrawEvent, payload []byte) error {
	err := d.publisher.Publish(ctx, event, payload)
	if d.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		d.metrics.PublishTotal.WithLabelValues(result).Inc()
	}
	if err != nil {
		return fmt.Errorf("publish update: %w", err)
	}
	return nil
}

// fanOut sends payload to every recipient outside of any registry lock. A
// recipient removed concurrently is skipped; a recipient whose outbox stays
// full is evicted. Neither aborts delivery to the others.
func fanOut(ctx context.Context, reg *registry.Registry, recipients []*registry.Connection, payload []byte, m *metrics.FanoutMetrics) {
	if m != nil {
		m.RecipientsPerUpdate.Observe(float64(len(recipients)))
	}

	for _, conn := range recipients {
		err := conn.Send(payload)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrStaleRecipient):
			slog.DebugContext(ctx, "Skipping removed recipient", "connection_id", conn.ID())
			if m != nil {
				m.DeliveryFailures.WithLabelValues("stale_recipient").Inc()
			}
		case errors.Is(err, domain.ErrSlowConsumer):
			slog.WarnContext(ctx, "Evicting slow consumer", "connection_id", conn.ID())
			reg.Remove(conn.ID(), registry.ReasonSlowConsumer)
			if m != nil {
				m.DeliveryFailures.WithLabelValues("slow_consumer").Inc()
			}
		default:
			slog.WarnContext(ctx, "Failed to deliver update", "connection_id", conn.ID(), "error", err)
		}
	}
}
