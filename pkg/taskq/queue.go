// Package taskq implements a context-scoped queue of deferred tasks.
// A host action opens a scope with Run (or WithQueue), code inside the
// scope enqueues Task values with Add, and after the action's function
// returns successfully the queue drains in FIFO order, each task
// receiving the action's result. Adding outside a scope is an error;
// nested scopes shadow the outer queue and restore it when they exit.
package taskq

import (
	"context"

	"github.com/materials-commons/depot/pkg/errs"
)

// Task is a unit of deferred work. Run receives the result of the host
// action the task was enqueued under.
type Task interface {
	Run(ctx context.Context, result map[string]interface{}) error
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func(ctx context.Context, result map[string]interface{}) error

func (f TaskFunc) Run(ctx context.Context, result map[string]interface{}) error {
	return f(ctx, result)
}

// Queue is a FIFO of tasks for one scope. A queue is used by a single
// goroutine; the context carries it, never shares it.
type Queue struct {
	tasks []Task
}

type queueKey struct{}

// WithQueue opens a new task scope. The returned context carries the
// fresh queue; the previous scope (if any) is untouched and becomes
// current again when callers go back to using the parent context.
func WithQueue(ctx context.Context) (context.Context, *Queue) {
	q := &Queue{}
	return context.WithValue(ctx, queueKey{}, q), q
}

// FromContext returns the current scope's queue.
func FromContext(ctx context.Context) (*Queue, bool) {
	q, ok := ctx.Value(queueKey{}).(*Queue)
	return q, ok
}

// Add enqueues a task on the current scope's queue.
func Add(ctx context.Context, task Task) error {
	q, ok := FromContext(ctx)
	if !ok {
		return &errs.OutOfQueueError{}
	}

	q.tasks = append(q.tasks, task)

	return nil
}

func (q *Queue) Len() int {
	return len(q.tasks)
}

// Drain runs the queued tasks in FIFO order, passing each the action
// result. The first task failure aborts the remainder; tasks that
// already ran are not compensated.
func (q *Queue) Drain(ctx context.Context, result map[string]interface{}) error {
	tasks := q.tasks
	q.tasks = nil

	for _, task := range tasks {
		if err := task.Run(ctx, result); err != nil {
			return err
		}
	}

	return nil
}

// Run executes fn inside a new task scope and, if fn succeeds, drains
// the queue with fn's result. A task failure surfaces as Run's error.
func Run(ctx context.Context, fn func(ctx context.Context) (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, q := WithQueue(ctx)

	result, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	if err := q.Drain(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}
