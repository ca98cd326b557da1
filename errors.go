/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package taskqueue

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned (wrapped) by constructors
// when the queue is configured with unusable parameters.
var ErrInvalidConfiguration = errors.New("invalid task queue configuration")

// ErrBacklogOverflow is the error with which a task's handle is settled
// when the backlog limit is configured and the backlog is full at submission time.
var ErrBacklogOverflow = errors.New("task backlog is full")

// PanicError is the error with which a task's handle is settled when the task panics.
// The queue recovers such panics so that the occupied slot is always released
// and backlogged tasks keep being promoted.
type PanicError struct {
	Value interface{}
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %+v", e.Value)
}
