package adapter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"relove-chat/internal/infrastructure/queue/port"
)

// Inline runs tasks synchronously inside Enqueue. It implements both
// port.Client and port.Server and is used when no Redis is configured
// (single-node development, tests).
type Inline struct {
	mu       sync.RWMutex
	handlers map[string]port.Handler
	seq      atomic.Int64
	log      *zap.Logger
}

func NewInline(log *zap.Logger) *Inline {
	return &Inline{handlers: make(map[string]port.Handler), log: log}
}

var (
	_ port.Client = (*Inline)(nil)
	_ port.Server = (*Inline)(nil)
)

func (q *Inline) Register(taskType string, h port.Handler) {
	q.mu.Lock()
	q.handlers[taskType] = h
	q.mu.Unlock()
}

// Enqueue executes the handler before returning. A handler error is logged,
// not returned: the caller's request already succeeded.
func (q *Inline) Enqueue(ctx context.Context, t port.Task, _ ...port.EnqueueOption) (string, error) {
	q.mu.RLock()
	h, ok := q.handlers[t.Type]
	q.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("inline queue: no handler for %q", t.Type)
	}
	id := fmt.Sprintf("inline-%d", q.seq.Add(1))
	if err := h(ctx, t); err != nil {
		q.log.Warn("task failed", zap.String("type", t.Type), zap.String("task_id", id), zap.Error(err))
	}
	return id, nil
}

// Run has nothing to start; it blocks until ctx is done.
func (q *Inline) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (q *Inline) Close() error { return nil }
