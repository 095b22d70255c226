package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eventpass/eventpass-api/internal/metrics"
)

var ErrNoHandler = errors.New("no handler registered for task type")

type HandlerFunc func(ctx context.Context, task Task) error

// Router maps task types to their handlers.
type Router struct {
	mu       sync.RWMutex
	handlers map[TaskType]HandlerFunc
	timeout  time.Duration
}

func NewRouter(timeout time.Duration) *Router {
	return &Router{
		handlers: make(map[TaskType]HandlerFunc),
		timeout:  timeout,
	}
}

func (r *Router) Handle(t TaskType, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[t] = h
}

func (r *Router) Dispatch(ctx context.Context, task Task) error {
	r.mu.RLock()
	h, ok := r.handlers[task.Type]
	r.mu.RUnlock()
	if !ok {
		metrics.CountTask(string(task.Type), metrics.TaskFailed)
		return fmt.Errorf("%w: %s", ErrNoHandler, task.Type)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := h(ctx, task); err != nil {
		metrics.CountTask(string(task.Type), metrics.TaskFailed)
		return fmt.Errorf("task %s (%s) -> %w", task.ID, task.Type, err)
	}

	metrics.CountTask(string(task.Type), metrics.TaskDone)
	zap.L().Debug("task done",
		zap.String("task_id", task.ID.String()),
		zap.String("type", string(task.Type)),
		zap.Duration("took", time.Since(start)),
	)

	return nil
}
