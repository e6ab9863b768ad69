package canvas

import (
	"context"
	"sync"
)

// InMemoryStore keeps the packed buffer in process memory. It implements
// domain.CanvasStore for single-instance development and tests.
type InMemoryStore struct {
	geometry Geometry

	mu  sync.RWMutex
	buf []byte
}

func NewInMemoryStore(geometry Geometry) *InMemoryStore {
	return &InMemoryStore{geometry: geometry}
}

func (s *InMemoryStore) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		s.buf = make([]byte, s.geometry.BufferLen())
	}
	return nil
}

func (s *InMemoryStore) ReadFull(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]byte, s.geometry.BufferLen())
	copy(out, s.buf)
	return out, nil
}

func (s *InMemoryStore) WriteCell(_ context.Context, x, y, color int) error {
	if err := s.geometry.Validate(x, y, color); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		s.buf = make([]byte, s.geometry.BufferLen())
	}
	SetCell(s.buf, s.geometry.Index(x, y), uint8(color))
	return nil
}
