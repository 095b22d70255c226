package queue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/eventpass/eventpass-api/internal/metrics"
)

var (
	ErrQueueFull   = errors.New("task queue is full")
	ErrQueueClosed = errors.New("task queue is closed")
)

// MemoryQueue is an in-process Publisher backed by a buffered channel and a
// fixed pool of workers. Pending tasks are lost on shutdown.
type MemoryQueue struct {
	router *Router
	tasks  chan Task

	mu     sync.RWMutex
	closed bool

	wg sync.WaitGroup
}

func NewMemoryQueue(router *Router, buffer int) *MemoryQueue {
	return &MemoryQueue{
		router: router,
		tasks:  make(chan Task, buffer),
	}
}

// Start launches n workers. They stop once Close has been called and the
// buffer is drained.
func (q *MemoryQueue) Start(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
}

func (q *MemoryQueue) work(ctx context.Context, id int) {
	defer q.wg.Done()

	for task := range q.tasks {
		if err := q.router.Dispatch(ctx, task); err != nil {
			zap.L().Error("task failed", zap.Int("worker", id), zap.Error(err))
		}
	}
}

func (q *MemoryQueue) Publish(_ context.Context, task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		metrics.CountTask(string(task.Type), metrics.TaskEnqueued)
		return nil
	default:
		metrics.CountTask(string(task.Type), metrics.TaskDropped)
		return ErrQueueFull
	}
}

// Close stops accepting tasks and waits for the workers to drain the buffer.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
}
