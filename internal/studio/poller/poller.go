// Package poller runs a function on a fixed cadence until it asks to stop,
// its context is canceled, or Stop is called.
package poller

import (
	"context"
	"sync"
	"time"
)

// TickFunc is called once per tick. Returning false ends the task.
type TickFunc func(ctx context.Context) bool

// Task is a handle to a running repeating task
type Task struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Start runs fn immediately and then every interval on its own goroutine.
// Calls never overlap; a slow call delays the next tick instead of queueing it.
func Start(ctx context.Context, interval time.Duration, fn TickFunc) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go t.run(taskCtx, interval, fn)

	return t
}

func (t *Task) run(ctx context.Context, interval time.Duration, fn TickFunc) {
	defer close(t.done)
	defer t.cancel()

	if !fn(ctx) {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if !fn(ctx) {
				return
			}
		}
	}
}

// Stop cancels the task and waits for the current call to return.
// It is safe to call more than once, but must not be called from inside fn.
func (t *Task) Stop() {
	if t == nil {
		return
	}
	t.stopOnce.Do(t.cancel)
	<-t.done
}

// Done is closed once the task has exited
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Running reports whether the task goroutine is still alive
func (t *Task) Running() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}
