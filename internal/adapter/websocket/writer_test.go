package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pixelgrid/internal/domain"
	"github.com/pscheid92/pixelgrid/internal/quadrant"
	"github.com/pscheid92/pixelgrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { _ = serverConn.Close() })

	return serverConn, clientConn
}

func newTestSession(t *testing.T, clock clockwork.Clock) (*session, *websocket.Conn) {
	t.Helper()
	layout, err := quadrant.NewLayout(10, 10, 5)
	require.NoError(t, err)
	reg, err := registry.New(layout, quadrant.NewIndex(), clock, registry.Options{OutboxSize: 8}, nil)
	require.NoError(t, err)
	conn, err := reg.Add()
	require.NoError(t, err)

	server, client := newTestConnPair(t)
	return &session{ws: server, conn: conn, registry: reg, clock: clock}, client
}

func TestWriter_FlushesBeforeClosing(t *testing.T) {
	s, client := newTestSession(t, clockwork.NewRealClock())

	require.NoError(t, s.conn.Send([]byte(`{"type":"update","x":1,"y":1,"color":1}`)))
	require.NoError(t, s.conn.Send([]byte(`{"type":"update","x":2,"y":2,"color":2}`)))
	s.registry.Remove(s.conn.ID(), registry.ReasonSlowConsumer)

	go s.writeLoop(context.Background())

	var got []string
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := client.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			require.ErrorAs(t, err, &closeErr)
			assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
			break
		}
		got = append(got, string(data))
	}

	require.Len(t, got, 3)
	assert.Contains(t, got[0], domain.MessageConfiguration)
	assert.Contains(t, got[1], `"x":1`)
	assert.Contains(t, got[2], `"x":2`)

	select {
	case <-s.conn.Flushed():
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not mark the connection flushed")
	}
}

func TestWriter_PingsOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	s, client := newTestSession(t, clock)

	var pings atomic.Int32
	client.SetPingHandler(func(string) error {
		pings.Add(1)
		return nil
	})
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go s.writeLoop(context.Background())
	t.Cleanup(func() { s.registry.Remove(s.conn.ID(), registry.ReasonDisconnect) })

	assert.Eventually(t, func() bool {
		clock.Advance(pingInterval)
		return pings.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWriter_RemovesConnectionOnWriteFailure(t *testing.T) {
	s, client := newTestSession(t, clockwork.NewRealClock())
	require.NoError(t, client.Close())
	require.NoError(t, s.ws.Close())

	go s.writeLoop(context.Background())

	assert.Eventually(t, func() bool {
		_, ok := s.registry.Get(s.conn.ID())
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
	<-s.conn.Flushed()
}
