/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package taskqueue

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/rs/xid"
)

// Task is a caller-supplied unit of asynchronous work.
// The context passed to it is the one given to Queue.Submit;
// the queue itself never cancels it, but task wrappers may attach
// deadlines to it (see the taskutil package).
type Task[T any] func(ctx context.Context) (T, error)

// TaskStatus describes how a task settled.
type TaskStatus string

// Task statuses.
const (
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusPanicked  TaskStatus = "panicked"
)

// pendingEntry holds a submitted task together with its settlement handle.
// For backlogged tasks it lives in Queue.backlog from submission until admission,
// for immediately admitted ones it goes straight to the executing goroutine.
type pendingEntry[T any] struct {
	ctx        context.Context
	task       Task[T]
	handle     *Handle[T]
	taskID     string
	enqueuedAt time.Time
}

// Queue is a bounded-concurrency task queue.
// It admits up to a fixed number of tasks to run at once and keeps the rest
// in a FIFO backlog, promoting the backlog head each time a running task settles.
// The queue is an admission-control primitive only: it does not retry, cancel,
// or alter a task's outcome in any way.
//
// The zero value is not usable, use New or NewWithOpts.
type Queue[T any] struct {
	limit        int
	backlogLimit int

	mu      sync.Mutex
	running int
	backlog *list.List // of *pendingEntry[T]
	idleCh  chan struct{}

	logger           log.FieldLogger
	metricsCollector MetricsCollector
}

// Options represents options for the queue.
type Options struct {
	// BacklogLimit is the maximum number of tasks waiting for a free slot.
	// 0 (the default) means the backlog is unbounded.
	// When the limit is reached, Submit settles the task's handle
	// with ErrBacklogOverflow instead of queueing it.
	BacklogLimit int

	// Logger is used for logging admission and settlement events.
	// If nil, logging is disabled.
	Logger log.FieldLogger
}

// New creates a new Queue with the provided concurrency limit and metrics collector.
// Metrics collector can be nil, in this case, metrics will be disabled.
func New[T any](limit int, metricsCollector MetricsCollector) (*Queue[T], error) {
	return NewWithOpts[T](limit, metricsCollector, Options{})
}

// NewWithOpts creates a new Queue with the provided concurrency limit, metrics collector, and options.
func NewWithOpts[T any](limit int, metricsCollector MetricsCollector, opts Options) (*Queue[T], error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: concurrency limit must be positive, got %d", ErrInvalidConfiguration, limit)
	}
	if opts.BacklogLimit < 0 {
		return nil, fmt.Errorf("%w: backlog limit must not be negative, got %d", ErrInvalidConfiguration, opts.BacklogLimit)
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	idleCh := make(chan struct{})
	close(idleCh) // a fresh queue is idle

	return &Queue[T]{
		limit:            limit,
		backlogLimit:     opts.BacklogLimit,
		backlog:          list.New(),
		idleCh:           idleCh,
		logger:           logger,
		metricsCollector: metricsCollector,
	}, nil
}

// NewForConfig creates a new Queue based on the passed configuration.
func NewForConfig[T any](cfg *Config, metricsCollector MetricsCollector, logger log.FieldLogger) (*Queue[T], error) {
	return NewWithOpts[T](cfg.Limit, metricsCollector, Options{BacklogLimit: cfg.BacklogLimit, Logger: logger})
}

// Submit hands a task over to the queue and returns a handle that will eventually
// carry the task's own result or error.
//
// If a slot is free at the moment of submission, the task is admitted immediately,
// otherwise it is appended to the FIFO backlog and admitted when a running task settles.
// Callers must not rely on the task having started (or not started) by the time
// Submit returns.
//
// ctx is forwarded to the task when it runs; the queue does not watch it.
// A submitted task always runs to settlement, there is no cancellation.
func (q *Queue[T]) Submit(ctx context.Context, task Task[T]) *Handle[T] {
	taskID := xid.New().String()
	h := newHandle[T](taskID)
	e := &pendingEntry[T]{ctx: ctx, task: task, handle: h, taskID: taskID}

	q.metricsCollector.IncSubmittedTasks()

	q.mu.Lock()

	if q.running < q.limit {
		q.markBusyLocked()
		q.running++
		q.metricsCollector.SetRunningAmount(q.running)
		q.mu.Unlock()
		q.logger.Debug("task admitted", log.String("task_id", taskID))
		go q.run(e)
		return h
	}

	if q.backlogLimit > 0 && q.backlog.Len() >= q.backlogLimit {
		q.mu.Unlock()
		q.logger.Warn("task rejected, backlog is full",
			log.String("task_id", taskID), log.Int("backlog_limit", q.backlogLimit))
		var zero T
		h.settle(zero, ErrBacklogOverflow)
		return h
	}

	e.enqueuedAt = time.Now()
	q.backlog.PushBack(e)
	q.metricsCollector.SetBacklogAmount(q.backlog.Len())
	q.mu.Unlock()

	q.logger.Debug("task backlogged", log.String("task_id", taskID))
	return h
}

// ConcurrencyLimit returns the queue's concurrency limit. It is fixed at construction.
func (q *Queue[T]) ConcurrencyLimit() int {
	return q.limit
}

// RunningCount returns the number of tasks currently in the running state.
// It is always within [0, ConcurrencyLimit()].
func (q *Queue[T]) RunningCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// BacklogLen returns the number of tasks waiting for a free slot.
func (q *Queue[T]) BacklogLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.backlog.Len()
}

// WaitIdle blocks until the queue has no running and no backlogged tasks, or until ctx is done.
// It returns immediately for a queue that is already drained (or was never used).
// Tasks submitted concurrently with WaitIdle may make the queue busy again right after it returns.
func (q *Queue[T]) WaitIdle(ctx context.Context) error {
	q.mu.Lock()
	idleCh := q.idleCh
	q.mu.Unlock()

	select {
	case <-idleCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// markBusyLocked replaces the closed idle channel with an open one
// on the idle -> busy transition. Must be called under q.mu.
func (q *Queue[T]) markBusyLocked() {
	if q.running == 0 && q.backlog.Len() == 0 {
		q.idleCh = make(chan struct{})
	}
}

// run executes a task in its own goroutine, settles its handle, and releases the occupied slot.
func (q *Queue[T]) run(e *pendingEntry[T]) {
	startedAt := time.Now()
	value, err := q.invoke(e)
	elapsed := time.Since(startedAt)

	status := TaskStatusSucceeded
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		status = TaskStatusPanicked
	} else if err != nil {
		status = TaskStatusFailed
	}
	q.metricsCollector.ObserveTaskDone(status, elapsed)

	switch status {
	case TaskStatusSucceeded:
		q.logger.Debug("task succeeded",
			log.String("task_id", e.taskID), log.Duration("duration", elapsed))
	case TaskStatusFailed:
		q.logger.Debug("task failed",
			log.String("task_id", e.taskID), log.Duration("duration", elapsed), log.Error(err))
	case TaskStatusPanicked:
		q.logger.Error("task panicked",
			log.String("task_id", e.taskID), log.Any("panic", panicErr.Value), log.Bytes("stack", panicErr.Stack))
	}

	e.handle.settle(value, err)
	q.onTaskSettled()
}

// invoke calls the task, converting a panic into a PanicError so that the slot
// bookkeeping in run never leaks a credit.
func (q *Queue[T]) invoke(e *pendingEntry[T]) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			err = &PanicError{Value: p, Stack: stack}
		}
	}()
	return e.task(e.ctx)
}

// onTaskSettled releases the settled task's slot and drains the backlog
// while slots are free. The whole decrement-and-promote sequence is a single
// critical section, promoted tasks start only after the lock is released.
func (q *Queue[T]) onTaskSettled() {
	q.mu.Lock()

	q.running--
	var promoted []*pendingEntry[T]
	for q.running < q.limit && q.backlog.Len() > 0 {
		front := q.backlog.Remove(q.backlog.Front()).(*pendingEntry[T])
		q.running++
		promoted = append(promoted, front)
	}
	q.metricsCollector.SetRunningAmount(q.running)
	q.metricsCollector.SetBacklogAmount(q.backlog.Len())

	if q.running == 0 && q.backlog.Len() == 0 {
		close(q.idleCh)
	}

	q.mu.Unlock()

	for _, pe := range promoted {
		q.logger.Debug("backlogged task admitted",
			log.String("task_id", pe.taskID), log.Duration("wait_time", time.Since(pe.enqueuedAt)))
		go q.run(pe)
	}
}
