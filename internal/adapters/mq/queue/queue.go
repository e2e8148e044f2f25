// Package queue provides the bounded outbound frame queue owned by each
// realtime connection.
//
// Enqueue never blocks: when the queue is full or closed the frame is
// refused and the caller decides what to do with the slow consumer.
package queue

import (
	"context"
	"sync"

	"github.com/okian/scorehub/pkg/metrics"
)

const defaultCapacity = 64

// Frame is one encoded message ready to be written to a socket. Frames are
// shared between recipients and must not be modified.
type Frame []byte

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame to the queue.
	// Returns false if the queue is full or closed and the frame was dropped.
	Enqueue(ctx context.Context, f Frame) bool

	// Dequeue returns the channel frames are delivered on.
	// The channel is closed when the queue is closed and drained.
	Dequeue() <-chan Frame

	// Len returns the current number of queued frames.
	Len() int

	// Close stops accepting frames. Frames already queued stay readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	frames   chan Frame
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.frames = make(chan Frame, q.capacity)

	return q
}

// Enqueue adds a frame to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Frame) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordFrameDropped()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.frames <- f:
		metrics.RecordFrameQueued()
		return true
	case <-ctx.Done():
		metrics.RecordFrameDropped()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordFrameDropped()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue() <-chan Frame {
	return q.frames
}

// Len returns the current number of queued frames.
func (q *InMemoryQueue) Len() int {
	return len(q.frames)
}

// Capacity returns the maximum number of queued frames.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close stops the queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.frames)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
