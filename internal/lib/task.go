package lib

import (
	"context"
	"sync/atomic"
)

// Task is a wrapper around a function that runs in a separate goroutine and
// can be started and stopped
type Task struct {
	runFunc func(ctx context.Context) error

	isRunning atomic.Bool
	cancel    atomic.Value // context.CancelFunc
	doneCh    atomic.Value // chan struct{}
	err       atomic.Pointer[error]
	name      string
}

type Runnable interface {
	Run(ctx context.Context) error
}

func NewTask(runnable Runnable, name string) *Task {
	return NewTaskFunc(runnable.Run, name)
}

func NewTaskFunc(f func(ctx context.Context) error, name string) *Task {
	t := &Task{
		runFunc: f,
		name:    name,
	}
	t.doneCh.Store(make(chan struct{}))
	return t
}

func (t *Task) Start(ctx context.Context) {
	if !t.isRunning.CompareAndSwap(false, true) {
		panic("task " + t.name + " already running")
	}

	subCtx, cancel := context.WithCancel(ctx)
	t.cancel.Store(cancel)

	go func() {
		err := t.runFunc(subCtx)
		if err != nil {
			t.err.Store(&err)
		}
		close(t.doneCh.Load().(chan struct{}))
	}()
}

// Stop cancels the task context. Use Done to await completion.
func (t *Task) Stop() {
	if cancel, ok := t.cancel.Load().(context.CancelFunc); ok {
		cancel()
	}
}

// Done returns a channel that is closed when the task function returns.
func (t *Task) Done() <-chan struct{} {
	return t.doneCh.Load().(chan struct{})
}

// Err returns the error the task function returned, if any.
func (t *Task) Err() error {
	if err := t.err.Load(); err != nil {
		return *err
	}
	return nil
}
