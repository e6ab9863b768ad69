package domain

import "context"

// CanvasStore persists the packed canvas buffer.
type CanvasStore interface {
	// Initialize writes a zero-filled buffer if the canvas does not exist yet.
	Initialize(ctx context.Context) error
	// ReadFull returns the whole packed buffer.
	ReadFull(ctx context.Context) ([]byte, error)
	// WriteCell updates a single nibble. Either the nibble is updated or an
	// error wrapping ErrStorage is returned.
	WriteCell(ctx context.Context, x, y, color int) error
}

// Publisher sends update envelopes to the broker topic.
type Publisher interface {
	Publish(ctx context.Context, event DrawEvent, payload []byte) error
	Close() error
}

// MessageSource yields raw payloads from the broker topic. Next blocks until
// a message arrives, an error occurs, or ctx is cancelled.
type MessageSource interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}
