package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pixelgrid/internal/canvas"
	"github.com/pscheid92/pixelgrid/internal/domain"
	"github.com/pscheid92/pixelgrid/internal/quadrant"
	"github.com/pscheid92/pixelgrid/internal/registry"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	writes []domain.DrawEvent
	err    error
}

func (s *fakeStore) Initialize(_ context.Context) error { return nil }

func (s *fakeStore) ReadFull(_ context.Context) ([]byte, error) { return nil, nil }

func (s *fakeStore) WriteCell(_ context.Context, x, y, color int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, domain.DrawEvent{X: x, Y: y, Color: color})
	return nil
}

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

type publishedMessage struct {
	event   domain.DrawEvent
	payload []byte
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, event domain.DrawEvent, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedMessage{event: event, payload: payload})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) getPublished() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]publishedMessage, len(p.published))
	copy(result, p.published)
	return result
}

type sourceResult struct {
	payload []byte
	err     error
}

// fakeSource yields queued results, then blocks until ctx is cancelled.
type fakeSource struct {
	results chan sourceResult
}

func newFakeSource(results ...sourceResult) *fakeSource {
	ch := make(chan sourceResult, len(results)+16)
	for _, r := range results {
		ch <- r
	}
	return &fakeSource{results: ch}
}

func (s *fakeSource) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-s.results:
		return r.payload, r.err
	}
}

func (s *fakeSource) Close() error { return nil }

var errBrokerDown = errors.New("broker down")

type fixture struct {
	geometry canvas.Geometry
	layout   quadrant.Layout
	index    *quadrant.Index
	registry *registry.Registry
	clock    clockwork.Clock
}

func newFixture(t *testing.T, opts registry.Options) *fixture {
	t.Helper()
	geometry, err := canvas.NewGeometry(100, 100)
	require.NoError(t, err)
	layout, err := quadrant.NewLayout(100, 100, 50)
	require.NoError(t, err)
	index := quadrant.NewIndex()
	clock := clockwork.NewRealClock()
	reg, err := registry.New(layout, index, clock, opts, nil)
	require.NoError(t, err)
	return &fixture{geometry: geometry, layout: layout, index: index, registry: reg, clock: clock}
}

// connect adds a connection and consumes its configuration message.
func (f *fixture) connect(t *testing.T, quadrants ...int) *registry.Connection {
	t.Helper()
	conn, err := f.registry.Add()
	require.NoError(t, err)
	<-conn.Outbox()
	for _, q := range quadrants {
		require.NoError(t, f.registry.Subscribe(conn.ID(), q))
	}
	return conn
}

func drain(conn *registry.Connection) [][]byte {
	var msgs [][]byte
	for {
		select {
		case msg := <-conn.Outbox():
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}
