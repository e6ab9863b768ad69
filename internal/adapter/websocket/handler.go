package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/pixelgrid/internal/adapter/metrics"
	"github.com/pscheid92/pixelgrid/internal/domain"
	"github.com/pscheid92/pixelgrid/internal/platform/correlation"
	"github.com/pscheid92/pixelgrid/internal/registry"
)

const maxMessageSize = 4096

// Drawer applies a draw received on a connection.
type Drawer interface {
	UpdateCell(ctx context.Context, event domain.DrawEvent) error
}

type Handler struct {
	registry *registry.Registry
	drawer   Drawer
	limits   *Limits
	upgrader websocket.Upgrader
	clock    clockwork.Clock
	metrics  *metrics.WebSocketMetrics
}

func NewHandler(reg *registry.Registry, drawer Drawer, limits *Limits, checkOrigin func(*http.Request) bool, clock clockwork.Clock, wsMetrics *metrics.WebSocketMetrics) *Handler {
	return &Handler{
		registry: reg,
		drawer:   drawer,
		limits:   limits,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		clock:   clock,
		metrics: wsMetrics,
	}
}

// Serve admits, upgrades and runs one connection. It returns once the
// connection has been removed and its writer has stopped.
func (h *Handler) Serve(c echo.Context) error {
	ip := c.RealIP()
	if ok, reason := h.limits.Acquire(ip); !ok {
		return h.reject(c, ip, reason)
	}
	defer h.limits.Release(ip)

	conn, err := h.registry.Add()
	if err != nil {
		if errors.Is(err, domain.ErrConnectionLimit) {
			return h.reject(c, ip, LimitReasonRegistry)
		}
		return err
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.registry.Remove(conn.ID(), registry.ReasonDisconnect)
		slog.Debug("WebSocket upgrade failed", "remote_addr", ip, "error", err)
		return nil
	}

	ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
	slog.DebugContext(ctx, "WebSocket connected", "connection_id", conn.ID(), "remote_addr", ip)

	s := &session{
		ws:       ws,
		conn:     conn,
		registry: h.registry,
		drawer:   h.drawer,
		clock:    h.clock,
		metrics:  h.metrics,
	}
	go s.writeLoop(ctx)
	s.readLoop(ctx)

	h.registry.Remove(conn.ID(), registry.ReasonDisconnect)
	<-conn.Flushed()

	slog.DebugContext(ctx, "WebSocket disconnected", "connection_id", conn.ID(), "reason", conn.Reason().Text)
	return nil
}

func (h *Handler) reject(c echo.Context, ip string, reason LimitReason) error {
	if h.metrics != nil {
		h.metrics.RejectedTotal.WithLabelValues(string(reason)).Inc()
	}
	slog.Warn("WebSocket connection rejected", "remote_addr", ip, "reason", string(reason))
	return c.String(http.StatusServiceUnavailable, "connection limit reached")
}

func (s *session) readLoop(ctx context.Context) {
	s.ws.SetReadLimit(maxMessageSize)
	s.extendReadDeadline()
	s.ws.SetPongHandler(func(string) error {
		s.extendReadDeadline()
		return nil
	})

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.DebugContext(ctx, "WebSocket read failed", "connection_id", s.conn.ID(), "error", err)
			}
			return
		}
		s.handle(ctx, data)
	}
}

// handle processes one inbound envelope. Malformed or rejected messages are
// dropped; the connection stays open.
func (s *session) handle(ctx context.Context, data []byte) {
	msg, err := domain.DecodeClientMessage(data)
	if err != nil {
		s.drop(ctx, "malformed", err)
		return
	}

	switch msg.Type {
	case domain.MessageSubscribe, domain.MessageUnsubscribe:
		var payload domain.QuadrantPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.QuadrantID == nil {
			s.drop(ctx, "malformed", errors.Join(domain.ErrSerialization, err))
			return
		}
		if msg.Type == domain.MessageUnsubscribe {
			s.registry.Unsubscribe(s.conn.ID(), *payload.QuadrantID)
			break
		}
		if err := s.registry.Subscribe(s.conn.ID(), *payload.QuadrantID); err != nil {
			if errors.Is(err, domain.ErrUnknownConnection) {
				return
			}
			s.drop(ctx, "unknown_quadrant", err)
			return
		}

	case domain.MessageDraw:
		var payload domain.DrawPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			s.drop(ctx, "malformed", errors.Join(domain.ErrSerialization, err))
			return
		}
		event, err := payload.Event()
		if err != nil {
			s.drop(ctx, "malformed", err)
			return
		}
		// storage failures are logged by the dispatcher
		if err := s.drawer.UpdateCell(ctx, event); err != nil && domain.IsValidation(err) {
			s.drop(ctx, "invalid_draw", err)
			return
		}

	case domain.MessageActivity:

	default:
		s.drop(ctx, "unknown_type", nil)
		return
	}

	s.registry.Touch(s.conn.ID())
}

func (s *session) drop(ctx context.Context, reason string, err error) {
	if s.metrics != nil {
		s.metrics.InboundDropped.WithLabelValues(reason).Inc()
	}
	slog.DebugContext(ctx, "Dropped inbound message", "connection_id", s.conn.ID(), "reason", reason, "error", err)
}
