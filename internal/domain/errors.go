package domain

import "errors"

// Validation errors are returned before any side effect happens.
var (
	ErrOutOfBounds  = errors.New("coordinates out of bounds")
	ErrInvalidColor = errors.New("color out of range")
)

var (
	ErrStorage           = errors.New("storage error")
	ErrSerialization     = errors.New("serialization error")
	ErrConnectionLimit   = errors.New("connection limit reached")
	ErrStaleRecipient    = errors.New("recipient already removed")
	ErrSlowConsumer      = errors.New("recipient outbox full")
	ErrUnknownQuadrant   = errors.New("unknown quadrant")
	ErrUnknownConnection = errors.New("unknown connection")
)

// IsValidation reports whether err was caused by invalid caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrOutOfBounds) || errors.Is(err, ErrInvalidColor)
}
