package chat

import (
	"context"
	"log/slog"
	"sync"
)

// Task is one supervisable unit of background work (transcript emails and the
// like). Naming the task makes failures attributable in logs instead of
// vanishing inside a detached goroutine.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// TaskQueue runs side-channel work on a single worker goroutine. Enqueue
// never blocks the caller's connection loop: a full queue drops the task and
// says so.
type TaskQueue struct {
	tasks chan Task
	done  chan struct{}
	log   *slog.Logger

	mu     sync.Mutex
	closed bool
}

func NewTaskQueue(size int, log *slog.Logger) *TaskQueue {
	return &TaskQueue{
		tasks: make(chan Task, size),
		done:  make(chan struct{}),
		log:   log,
	}
}

func (q *TaskQueue) Start(ctx context.Context) {
	go q.run(ctx)
}

func (q *TaskQueue) run(ctx context.Context) {
	defer close(q.done)
	for task := range q.tasks {
		if err := task.Run(ctx); err != nil {
			q.log.Error("background task failed", "task", task.Name, "err", err)
			continue
		}
		q.log.Debug("background task done", "task", task.Name)
	}
}

// Enqueue after Stop reports false; a connection loop may still be winding
// down while shutdown runs.
func (q *TaskQueue) Enqueue(name string, run func(ctx context.Context) error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.log.Warn("task queue stopped, dropping task", "task", name)
		return false
	}
	select {
	case q.tasks <- Task{Name: name, Run: run}:
		return true
	default:
		q.log.Warn("task queue full, dropping task", "task", name)
		return false
	}
}

// Stop drains queued tasks and waits for the worker to exit. Idempotent.
func (q *TaskQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	<-q.done
}
