package imports

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// DefaultQueueCapacity bounds the in-memory backlog when config leaves it
// unset.
const DefaultQueueCapacity = 64

// ErrQueueFull is returned when the backlog is at capacity. Callers map it
// to a retryable HTTP response.
var ErrQueueFull = errors.New("import queue full")

// Task is one queued import payload.
type Task struct {
	JobID    uuid.UUID
	TenantID string
	Payload  []byte
}

// Queue is a bounded FIFO handoff between the enqueue path and the single
// worker.
type Queue struct {
	tasks chan Task
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{tasks: make(chan Task, capacity)}
}

// Enqueue offers a task without blocking. The job row must already be
// durable before this is called.
func (q *Queue) Enqueue(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Tasks exposes the receive side for the worker.
func (q *Queue) Tasks() <-chan Task {
	return q.tasks
}

// Len reports the current backlog size.
func (q *Queue) Len() int {
	return len(q.tasks)
}
