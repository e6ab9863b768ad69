package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pixelgrid/internal/domain"
)

// CloseReason describes why a connection left the registry. Code is a
// WebSocket close code sent to the peer by the writer.
type CloseReason struct {
	Code int
	Text string
}

var (
	ReasonDisconnect   = CloseReason{Code: websocket.CloseNormalClosure, Text: "disconnect"}
	ReasonInactivity   = CloseReason{Code: websocket.CloseNormalClosure, Text: "inactivity timeout"}
	ReasonSlowConsumer = CloseReason{Code: websocket.ClosePolicyViolation, Text: "slow consumer"}
	ReasonShutdown     = CloseReason{Code: websocket.CloseGoingAway, Text: "server shutting down"}
)

// Connection is the registry's handle for one live client. The outbox is
// bounded and never closed; Done is closed exactly once on removal.
type Connection struct {
	id          uint64
	clock       clockwork.Clock
	sendTimeout time.Duration

	outbox chan []byte
	done   chan struct{}
	reason atomic.Pointer[CloseReason]

	closeOnce    sync.Once
	flushed      chan struct{}
	flushOnce    sync.Once
	lastActivity atomic.Int64
}

func newConnection(id uint64, clock clockwork.Clock, outboxSize int, sendTimeout time.Duration) *Connection {
	c := &Connection{
		id:          id,
		clock:       clock,
		sendTimeout: sendTimeout,
		outbox:      make(chan []byte, outboxSize),
		done:        make(chan struct{}),
		flushed:     make(chan struct{}),
	}
	c.touch(clock.Now())
	return c
}

func (c *Connection) ID() uint64 {
	return c.id
}

// Outbox yields queued messages in send order.
func (c *Connection) Outbox() <-chan []byte {
	return c.outbox
}

// Done is closed when the connection is removed from the registry.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Reason returns why the connection was removed, or nil while it is live.
func (c *Connection) Reason() *CloseReason {
	return c.reason.Load()
}

// LastActivity returns the time of the most recent touch.
func (c *Connection) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// Send enqueues msg. A full outbox blocks for at most the configured send
// timeout before ErrSlowConsumer is returned. Sending to a removed
// connection returns ErrStaleRecipient.
func (c *Connection) Send(msg []byte) error {
	select {
	case <-c.done:
		return domain.ErrStaleRecipient
	default:
	}

	select {
	case c.outbox <- msg:
		return nil
	default:
	}

	if c.sendTimeout <= 0 {
		return domain.ErrSlowConsumer
	}

	timer := c.clock.NewTimer(c.sendTimeout)
	defer timer.Stop()

	select {
	case c.outbox <- msg:
		return nil
	case <-c.done:
		return domain.ErrStaleRecipient
	case <-timer.Chan():
		return domain.ErrSlowConsumer
	}
}

// MarkFlushed is called by the writer once it stopped writing to the
// transport. Shutdown waits for it.
func (c *Connection) MarkFlushed() {
	c.flushOnce.Do(func() { close(c.flushed) })
}

// Flushed is closed after MarkFlushed.
func (c *Connection) Flushed() <-chan struct{} {
	return c.flushed
}

func (c *Connection) touch(now time.Time) {
	c.lastActivity.Store(now.UnixNano())
}

func (c *Connection) idleLongerThan(now time.Time, timeout time.Duration) bool {
	return now.Sub(c.LastActivity()) > timeout
}

func (c *Connection) close(reason CloseReason) {
	c.closeOnce.Do(func() {
		c.reason.Store(&reason)
		close(c.done)
	})
}
