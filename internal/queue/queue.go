package queue

import (
	"context"

	"github.com/rotisserie/eris"
)

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = eris.New("queue: closed")

// Queue hands audit ids from the submission path to the worker pool. Both
// backends deliver each id to exactly one consumer.
type Queue interface {
	// Enqueue pushes an audit id for processing.
	Enqueue(ctx context.Context, auditID string) error

	// Dequeue blocks until an id is available, the context is canceled, or
	// the queue is closed.
	Dequeue(ctx context.Context) (string, error)

	Close() error
}
