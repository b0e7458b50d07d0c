package bus

import (
	"context"
	"errors"
	"sync/atomic"

	"tradesim/internal/model"
)

var (
	ErrQueueFull   = errors.New("tick queue full")
	ErrQueueClosed = errors.New("tick queue closed")
)

// Queue is a bounded, non-blocking tick queue between a feed goroutine and
// the single-writer manager loop. A full queue drops the tick back to the
// caller instead of blocking the feed.
type Queue struct {
	ch     chan model.Tick
	closed uint32
	drops  uint64
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan model.Tick, capacity)}
}

// TryPublish enqueues a tick without blocking.
func (q *Queue) TryPublish(t model.Tick) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- t:
		return nil
	default:
		atomic.AddUint64(&q.drops, 1)
		return ErrQueueFull
	}
}

// Drops returns the number of ticks rejected by a full queue.
func (q *Queue) Drops() uint64 {
	return atomic.LoadUint64(&q.drops)
}

// Close stops the queue from accepting new ticks.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes ticks until the context is done or the queue is closed.
func (q *Queue) Run(ctx context.Context, handler func(model.Tick)) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-q.ch:
			if !ok {
				return
			}
			handler(t)
		}
	}
}
