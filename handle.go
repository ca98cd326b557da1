/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package taskqueue

import "context"

// Handle is returned by Queue.Submit and eventually carries the task's result or error.
// It mirrors the task's own outcome exactly: the queue never alters, wraps, or swallows
// what the task produced. The only errors originating from the queue itself are
// ErrBacklogOverflow and PanicError.
type Handle[T any] struct {
	taskID string
	done   chan struct{}
	value  T
	err    error
}

func newHandle[T any](taskID string) *Handle[T] {
	return &Handle[T]{taskID: taskID, done: make(chan struct{})}
}

// TaskID returns the unique identifier assigned to the submitted task.
// The same identifier is used in the queue's log fields.
func (h *Handle[T]) TaskID() string {
	return h.taskID
}

// Done returns a channel that is closed when the task settles (succeeds, fails, or panics).
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Result returns the task's outcome.
// It must be called only after the channel returned by Done is closed,
// otherwise the result is not yet valid. Use Wait to block until settlement.
func (h *Handle[T]) Result() (T, error) {
	return h.value, h.err
}

// Wait blocks until the task settles or ctx is done.
// Cancellation of ctx abandons the wait only; the task itself keeps running.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// settle publishes the task's outcome and unblocks all waiters. Called exactly once.
func (h *Handle[T]) settle(value T, err error) {
	h.value = value
	h.err = err
	close(h.done)
}
