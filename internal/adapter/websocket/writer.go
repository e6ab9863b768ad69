package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pixelgrid/internal/adapter/metrics"
	"github.com/pscheid92/pixelgrid/internal/registry"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
)

// session couples one transport with its registry entry. The writer
// goroutine is the only one writing to ws.
type session struct {
	ws       *websocket.Conn
	conn     *registry.Connection
	registry *registry.Registry
	drawer   Drawer
	clock    clockwork.Clock
	metrics  *metrics.WebSocketMetrics
}

// writeLoop drains the outbox in order and pings the peer. Once the
// connection is removed it flushes what is still buffered, sends a close
// frame carrying the removal reason and closes the transport.
func (s *session) writeLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.conn.MarkFlushed()
	defer s.ws.Close()

	for {
		select {
		case msg := <-s.conn.Outbox():
			if err := s.write(websocket.TextMessage, msg); err != nil {
				slog.DebugContext(ctx, "WebSocket write failed", "connection_id", s.conn.ID(), "error", err)
				s.registry.Remove(s.conn.ID(), registry.ReasonDisconnect)
				return
			}

		case <-ticker.Chan():
			if err := s.write(websocket.PingMessage, nil); err != nil {
				if s.metrics != nil {
					s.metrics.PingFailures.Inc()
				}
				s.registry.Remove(s.conn.ID(), registry.ReasonDisconnect)
				return
			}

		case <-s.conn.Done():
			s.flush()
			s.sendClose()
			return
		}
	}
}

func (s *session) flush() {
	for {
		select {
		case msg := <-s.conn.Outbox():
			if err := s.write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *session) sendClose() {
	reason := registry.ReasonDisconnect
	if r := s.conn.Reason(); r != nil {
		reason = *r
	}
	frame := websocket.FormatCloseMessage(reason.Code, reason.Text)
	_ = s.ws.WriteControl(websocket.CloseMessage, frame, s.clock.Now().Add(writeTimeout))
}

func (s *session) write(messageType int, data []byte) error {
	_ = s.ws.SetWriteDeadline(s.clock.Now().Add(writeTimeout))
	if err := s.ws.WriteMessage(messageType, data); err != nil {
		return err
	}
	if messageType == websocket.TextMessage && s.metrics != nil {
		s.metrics.MessagesSent.Inc()
	}
	return nil
}

func (s *session) extendReadDeadline() {
	_ = s.ws.SetReadDeadline(s.clock.Now().Add(pongWait))
}
