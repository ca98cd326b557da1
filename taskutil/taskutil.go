/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package taskutil provides wrappers that add retry and timeout behavior to task closures
// before they are submitted to a queue. The queue itself stays a pure admission-control
// primitive, composing resilience policy is the caller's job and happens at the task level.
package taskutil

import (
	"context"
	"runtime"
	"time"

	"github.com/acronis/go-appkit/retry"

	taskqueue "github.com/acronis/go-taskqueue"
)

// WithRetry returns a task that executes the passed task with retries
// according to policy p and with respect to the task's context.
// isRetryable defines which errors lead to a retry attempt (can be nil for any error).
// The returned task settles with the last attempt's outcome.
func WithRetry[T any](p retry.Policy, isRetryable retry.IsRetryable, task taskqueue.Task[T]) taskqueue.Task[T] {
	return func(ctx context.Context) (T, error) {
		var res T
		err := retry.DoWithRetry(ctx, p, isRetryable, nil, func(ctx context.Context) error {
			var attemptErr error
			res, attemptErr = task(ctx)
			return attemptErr
		})
		return res, err
	}
}

// WithTimeout returns a task that fails with context.DeadlineExceeded
// if the passed task does not settle within the given timeout.
//
// The inner task receives a context with the deadline attached and should honor it.
// If it does not, it keeps running in the background after the timeout and
// its eventual outcome is discarded. A panic in the inner task is recovered and
// surfaced as *taskqueue.PanicError, like in the queue itself.
func WithTimeout[T any](timeout time.Duration, task taskqueue.Task[T]) taskqueue.Task[T] {
	return func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type taskResult struct {
			value T
			err   error
		}
		resCh := make(chan taskResult, 1)
		go func() {
			defer func() {
				if p := recover(); p != nil {
					const logStackSize = 8192
					stack := make([]byte, logStackSize)
					stack = stack[:runtime.Stack(stack, false)]
					resCh <- taskResult{err: &taskqueue.PanicError{Value: p, Stack: stack}}
				}
			}()
			value, err := task(ctx)
			resCh <- taskResult{value: value, err: err}
		}()

		select {
		case res := <-resCh:
			return res.value, res.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
