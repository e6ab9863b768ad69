package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for WebSocket connections.
type WebSocketMetrics struct {
	ActiveConnections prometheus.Gauge
	MessagesSent      prometheus.Counter
	RejectedTotal     *prometheus.CounterVec
	RemovedTotal      *prometheus.CounterVec
	InboundDropped    *prometheus.CounterVec
	PingFailures      prometheus.Counter
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of registered WebSocket connections.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_sent_total",
			Help:      "Total number of messages written to WebSocket clients.",
		}),
		RejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rejected_handshakes_total",
			Help:      "Total number of handshakes rejected before registration, by reason.",
		}, []string{"reason"}),
		RemovedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "removed_connections_total",
			Help:      "Total number of connections removed from the registry, by reason.",
		}, []string{"reason"}),
		InboundDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "inbound_dropped_total",
			Help:      "Total number of inbound client messages dropped, by reason.",
		}, []string{"reason"}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "ping_failures_total",
			Help:      "Total number of failed keep-alive pings.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.MessagesSent, m.RejectedTotal, m.RemovedTotal, m.InboundDropped, m.PingFailures)
	return m
}
