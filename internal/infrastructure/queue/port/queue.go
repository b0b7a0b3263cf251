package port

import (
	"context"
	"time"
)

// Task is a background job: a stable type name plus opaque payload bytes.
// Payload encoding belongs to the task's owner package.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. A non-nil error asks the adapter to retry per its
// policy, so handlers must be idempotent.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption tunes a single enqueue. Zero values mean "adapter default".
type EnqueueOption struct {
	Queue     string        // logical queue name
	MaxRetry  int           // retries before the task is archived
	Timeout   time.Duration // per-attempt processing budget
	ProcessIn time.Duration // delay before the first attempt
}

// Client enqueues tasks for background processing.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs the handlers registered for each task type. Run blocks until
// ctx is cancelled.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
}
