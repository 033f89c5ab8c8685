// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"

	a2a "github.com/go-a2a/a2a-bridge"
)

// TaskStore defines the interface for task persistence operations.
type TaskStore interface {
	// Save persists a task, replacing any previous version.
	Save(ctx context.Context, task *a2a.Task) error

	// Get retrieves a task by its ID.
	// Returns a2a.ErrTaskNotFound if the task doesn't exist.
	Get(ctx context.Context, taskID string) (*a2a.Task, error)

	// Delete removes a task.
	// Returns a2a.ErrTaskNotFound if the task doesn't exist.
	Delete(ctx context.Context, taskID string) error
}
