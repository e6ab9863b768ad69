// Package websocket serves the /ws endpoint: handshake admission, one
// writer goroutine draining each connection's outbox and a read loop that
// turns client envelopes into registry and dispatcher calls.
package websocket
