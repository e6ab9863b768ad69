package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisor_StopsTasksAndDrainsOnCancel(t *testing.T) {
	sup := NewSupervisor(time.Second)

	var mu sync.Mutex
	var events []string
	record := func(e string) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	for _, name := range []string{"sweeper", "relay"} {
		sup.Go(name, func(ctx context.Context) error {
			<-ctx.Done()
			record("stopped " + name)
			return nil
		})
	}
	sup.OnShutdown("http", func(context.Context) error { record("drained http"); return nil })
	sup.OnShutdown("registry", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline, "drainers run with a bounded grace period")
		record("drained registry")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"stopped sweeper", "stopped relay", "drained http", "drained registry"}, events)
	assert.Less(t, indexOf(events, "drained http"), indexOf(events, "drained registry"))
}

func TestSupervisor_TaskFailureStopsOthers(t *testing.T) {
	sup := NewSupervisor(time.Second)
	boom := errors.New("listen failed")

	sup.Go("http", func(context.Context) error { return boom })
	sup.Go("sweeper", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	drained := make(chan struct{})
	sup.OnShutdown("registry", func(context.Context) error {
		close(drained)
		return nil
	})

	err := sup.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "http")

	select {
	case <-drained:
	default:
		t.Fatal("drainers must run after a task failure")
	}
}

func indexOf(events []string, e string) int {
	for i, v := range events {
		if v == e {
			return i
		}
	}
	return -1
}
