package queue

import (
	"context"
	"sync"
)

// MemoryQueue is the default single-process backend: a buffered channel.
// The item channel is never closed; shutdown is signaled through done so a
// concurrent Enqueue can never send on a closed channel.
type MemoryQueue struct {
	ch        chan string
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemory creates an in-memory queue with the given buffer size.
func NewMemory(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &MemoryQueue{
		ch:   make(chan string, buffer),
		done: make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, auditID string) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- auditID:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	// Drain buffered items even after Close.
	select {
	case id := <-q.ch:
		return id, nil
	default:
	}
	select {
	case id := <-q.ch:
		return id, nil
	case <-q.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
