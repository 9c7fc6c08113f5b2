package graphweave_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphweave/graphweave"
)

func newTestDispatcher(workers, queueSize int) *graphweave.Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return graphweave.NewDispatcher(workers, queueSize, logger)
}

func TestDispatcherRunsTasks(t *testing.T) {
	d := newTestDispatcher(2, 8)

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		err := d.Enqueue(func(ctx context.Context) error {
			count.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	d.Close()
	assert.Equal(t, int32(5), count.Load())
}

func TestDispatcherQueueFull(t *testing.T) {
	d := newTestDispatcher(1, 1)
	defer d.Close()

	started := make(chan struct{})
	release := make(chan struct{})

	// Occupy the single worker.
	require.NoError(t, d.Enqueue(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	// Fill the queue behind it.
	require.NoError(t, d.Enqueue(func(ctx context.Context) error { return nil }))

	err := d.Enqueue(func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, graphweave.ErrQueueFull)

	close(release)
}

func TestDispatcherEnqueueAfterClose(t *testing.T) {
	d := newTestDispatcher(1, 4)
	d.Close()

	err := d.Enqueue(func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, graphweave.ErrDispatcherClosed)
}

func TestDispatcherCloseDrainsQueue(t *testing.T) {
	d := newTestDispatcher(1, 16)

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Enqueue(func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			count.Add(1)
			return nil
		}))
	}

	d.Close()
	assert.Equal(t, int32(10), count.Load())
}

func TestDispatcherCloseCancelsRunningTask(t *testing.T) {
	d := newTestDispatcher(1, 4)

	started := make(chan struct{})
	require.NoError(t, d.Enqueue(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the in-flight task")
	}
}

func TestDispatcherRecoversFromPanic(t *testing.T) {
	d := newTestDispatcher(1, 4)

	var count atomic.Int32
	require.NoError(t, d.Enqueue(func(ctx context.Context) error {
		panic("boom")
	}))
	require.NoError(t, d.Enqueue(func(ctx context.Context) error {
		count.Add(1)
		return nil
	}))

	d.Close()
	assert.Equal(t, int32(1), count.Load())
}

func TestDispatcherCloseIsIdempotent(t *testing.T) {
	d := newTestDispatcher(2, 4)
	d.Close()
	d.Close()
}
