package metrics

import "github.com/prometheus/client_golang/prometheus"

// FanoutMetrics holds Prometheus metrics for the draw-and-deliver pipeline.
type FanoutMetrics struct {
	DrawsTotal          *prometheus.CounterVec
	DrawDuration        prometheus.Histogram
	RecipientsPerUpdate prometheus.Histogram
	DeliveryFailures    *prometheus.CounterVec
	PublishTotal        *prometheus.CounterVec
	RelayedTotal        *prometheus.CounterVec
}

// NewFanoutMetrics creates and registers fan-out metrics on the given registry.
func NewFanoutMetrics(reg prometheus.Registerer) *FanoutMetrics {
	m := &FanoutMetrics{
		DrawsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_total",
			Help:      "Total number of draw requests, by result.",
		}, []string{"result"}),
		DrawDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "draw_duration_seconds",
			Help:      "Duration of draw processing (persist and deliver) in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		RecipientsPerUpdate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_recipients",
			Help:      "Number of local recipients per delivered update.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Total number of per-recipient delivery failures, by reason.",
		}, []string{"reason"}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "publish_total",
			Help:      "Total number of broker publishes, by result.",
		}, []string{"result"}),
		RelayedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "relayed_total",
			Help:      "Total number of broker messages consumed by the relay, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.DrawsTotal, m.DrawDuration, m.RecipientsPerUpdate, m.DeliveryFailures, m.PublishTotal, m.RelayedTotal)
	return m
}
