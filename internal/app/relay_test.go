package app

import (
	"context"
	"testing"
	"time"

	"github.com/pscheid92/pixelgrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelay_ForwardsToEveryConnectionAfterErrors(t *testing.T) {
	f := newFixture(t, registry.Options{})
	unsubscribed := f.connect(t)
	subscribed := f.connect(t, 2)

	source := newFakeSource(
		sourceResult{err: errBrokerDown},
		sourceResult{payload: []byte(`{"type":"update","x":1,"y":1,"color":1}`)},
		sourceResult{err: errBrokerDown},
		sourceResult{payload: []byte(`{"type":"update","x":2,"y":2,"color":2}`)},
	)
	relay := NewRelay(source, f.registry, f.clock, nil)
	relay.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	var got [][]byte
	assert.Eventually(t, func() bool {
		got = append(got, drain(unsubscribed)...)
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"type":"update","x":1,"y":1,"color":1}`, string(got[0]))
	assert.JSONEq(t, `{"type":"update","x":2,"y":2,"color":2}`, string(got[1]))
	assert.Len(t, drain(subscribed), 2)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancellation")
	}
}

func TestRelay_StopsWhileBackingOff(t *testing.T) {
	f := newFixture(t, registry.Options{})
	relay := NewRelay(newFakeSource(sourceResult{err: errBrokerDown}), f.registry, f.clock, nil)
	relay.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not observe cancellation during backoff")
	}
}
