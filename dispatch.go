package graphweave

import (
	"context"
	"log/slog"
	"sync"

	"github.com/graphweave/graphweave/pkg/utils"
)

// Task is a unit of background work submitted to a Dispatcher.
type Task func(ctx context.Context) error

// Dispatcher runs tasks on a fixed pool of workers fed from a bounded queue.
// Submission never blocks: when the queue is full, Enqueue returns
// ErrQueueFull and the caller decides whether to retry or degrade.
type Dispatcher struct {
	queue  chan Task
	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts workers goroutines consuming from a queue of the given
// size. Non-positive arguments fall back to 4 workers and a queue of 64.
func NewDispatcher(workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		queue:  make(chan Task, queueSize),
		logger: logger,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	return d
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for task := range d.queue {
		d.run(ctx, id, task)
	}
}

// run executes one task, recovering panics so a bad task cannot take down the
// worker.
func (d *Dispatcher) run(ctx context.Context, id int, task Task) {
	defer utils.RecoverWithCallback(func(err error) {
		d.logger.Error("background task panicked", "worker", id, "error", err)
	})
	if err := task(ctx); err != nil {
		d.logger.Error("background task failed", "worker", id, "error", err)
	}
}

// Enqueue submits a task for background execution. Returns ErrQueueFull when
// the queue is at capacity and ErrDispatcherClosed after Close.
func (d *Dispatcher) Enqueue(task Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len reports the number of queued tasks not yet picked up by a worker.
func (d *Dispatcher) Len() int {
	return len(d.queue)
}

// Close stops accepting tasks, cancels the context passed to tasks, and waits
// for the workers to drain the queue. Tasks that honor cancellation exit
// promptly; tasks that ignore it run to completion. Safe to call more than
// once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}
