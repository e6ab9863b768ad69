package httpserver

import (
	"context"
	"sync"
	"testing"

	"github.com/pscheid92/pixelgrid/internal/domain"
)

type fakeCanvas struct {
	buf []byte
	err error
}

func (f *fakeCanvas) ReadFull(_ context.Context) ([]byte, error) {
	return f.buf, f.err
}

type fakeUpdater struct {
	mu     sync.Mutex
	events []domain.DrawEvent
	err    error
}

func (f *fakeUpdater) UpdateCell(_ context.Context, event domain.DrawEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeUpdater) received() []domain.DrawEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DrawEvent(nil), f.events...)
}

func newTestServer(t *testing.T, canvas *fakeCanvas, updater *fakeUpdater, opts ...func(*Config)) *Server {
	t.Helper()

	cfg := Config{Port: "0", DrawRate: 1000, DrawBurst: 1000}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewServer(cfg, canvas, updater)
}

func withHealthChecks(checks ...HealthCheck) func(*Config) {
	return func(c *Config) {
		c.HealthChecks = checks
	}
}
