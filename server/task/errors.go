// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"

	a2a "github.com/go-a2a/a2a-bridge"
)

// Store operations reported by TaskStoreError.
const (
	OpInitialize   = "initialize"
	OpSave         = "save"
	OpGet          = "get"
	OpDelete       = "delete"
	OpGetByContext = "get_by_context"
	OpCount        = "count"
)

// TaskNotUpdatableError is returned when an event targets a task that already
// reached a terminal state. It matches ErrTerminalState.
type TaskNotUpdatableError struct {
	TaskID string
	State  a2a.TaskState
}

func NewTaskNotUpdatableError(taskID string, state a2a.TaskState) TaskNotUpdatableError {
	return TaskNotUpdatableError{TaskID: taskID, State: state}
}

func (e TaskNotUpdatableError) Error() string {
	return fmt.Sprintf("task %s is %s and takes no further updates", e.TaskID, e.State)
}

func (e TaskNotUpdatableError) Is(target error) bool { return target == ErrTerminalState }

// TaskStoreError wraps a failure of a TaskStore operation.
type TaskStoreError struct {
	Op     string
	TaskID string
	Err    error
}

func NewTaskStoreError(op, taskID string, err error) TaskStoreError {
	return TaskStoreError{Op: op, TaskID: taskID, Err: err}
}

func (e TaskStoreError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("task store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("task store %s %s: %v", e.Op, e.TaskID, e.Err)
}

func (e TaskStoreError) Unwrap() error { return e.Err }

// TaskValidationError reports a task rejected by Save.
type TaskValidationError struct {
	TaskID string
	Err    error
}

func NewTaskValidationError(taskID string, err error) TaskValidationError {
	return TaskValidationError{TaskID: taskID, Err: err}
}

func (e TaskValidationError) Error() string {
	return fmt.Sprintf("invalid task %s: %v", e.TaskID, e.Err)
}

func (e TaskValidationError) Unwrap() error { return e.Err }
