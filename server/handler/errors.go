// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"errors"
	"fmt"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/server/event"
)

// ExecutionError reports an executor failure that left the task non-terminal.
type ExecutionError struct {
	TaskID string
	Err    error
}

// Error implements error.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of task %s failed: %v", e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// toRPCError maps err onto the JSON-RPC error returned to the client.
// Protocol errors keep their code; everything else is internal.
func toRPCError(err error) *a2a.Error {
	var exists *event.TaskQueueExistsError
	if errors.As(err, &exists) {
		return a2a.ErrInvalidParams.WithData(exists.Error())
	}
	return a2a.AsError(err)
}
