// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/server/event"
)

// ErrTerminalState is returned when a task that already reached a terminal
// state receives another update.
var ErrTerminalState = errors.New("cannot update task in terminal state")

// TaskUpdater provides the interface for agents to publish task-related events.
// It allows agents to update task status and add artifacts while preventing
// updates after a terminal state.
type TaskUpdater interface {
	// UpdateStatus publishes a status transition with an optional agent message.
	UpdateStatus(ctx context.Context, state a2a.TaskState, message *a2a.Message) error

	// AddArtifact publishes a named artifact built from parts.
	AddArtifact(ctx context.Context, parts []a2a.Part, name string) error

	// Convenience methods for common status transitions.
	Submit(ctx context.Context) error
	StartWork(ctx context.Context) error
	Complete(ctx context.Context) error
	Failed(ctx context.Context, message *a2a.Message) error

	// NewAgentMessage builds an agent message bound to this task.
	NewAgentMessage(text string) *a2a.Message

	// TaskID returns the task ID this updater is associated with.
	TaskID() string

	// ContextID returns the context ID this updater is associated with.
	ContextID() string

	// IsTerminal returns true if the task is in a terminal state.
	IsTerminal() bool
}

// defaultTaskUpdater is the default implementation of TaskUpdater.
type defaultTaskUpdater struct {
	taskID    string
	contextID string
	queue     event.Queue

	mu       sync.Mutex
	terminal bool
}

var _ TaskUpdater = (*defaultTaskUpdater)(nil)

// NewTaskUpdater creates a TaskUpdater publishing to queue.
func NewTaskUpdater(queue event.Queue, taskID, contextID string) (TaskUpdater, error) {
	if taskID == "" {
		return nil, errors.New("task ID cannot be empty")
	}
	if contextID == "" {
		return nil, errors.New("context ID cannot be empty")
	}
	if queue == nil {
		return nil, errors.New("event queue cannot be nil")
	}

	return &defaultTaskUpdater{
		taskID:    taskID,
		contextID: contextID,
		queue:     queue,
	}, nil
}

// UpdateStatus publishes a status transition.
func (u *defaultTaskUpdater) UpdateStatus(ctx context.Context, state a2a.TaskState, message *a2a.Message) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.terminal {
		return ErrTerminalState
	}

	ev := event.NewTaskStatusUpdateEvent(u.taskID, u.contextID, state, message)
	if err := u.queue.Enqueue(ctx, ev); err != nil {
		return fmt.Errorf("failed to publish status update event: %w", err)
	}
	// An unpublished terminal status leaves the task open for another one.
	u.terminal = state.IsTerminal()
	return nil
}

// AddArtifact publishes a named artifact.
func (u *defaultTaskUpdater) AddArtifact(ctx context.Context, parts []a2a.Part, name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.terminal {
		return ErrTerminalState
	}

	artifact := a2a.NewArtifact(name, parts...)
	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("artifact validation failed: %w", err)
	}

	ev := event.NewTaskArtifactUpdateEvent(u.taskID, u.contextID, artifact, false, true)
	if err := u.queue.Enqueue(ctx, ev); err != nil {
		return fmt.Errorf("failed to publish artifact update event: %w", err)
	}
	return nil
}

// Submit marks the task as submitted.
func (u *defaultTaskUpdater) Submit(ctx context.Context) error {
	return u.UpdateStatus(ctx, a2a.TaskStateSubmitted, nil)
}

// StartWork marks the task as working.
func (u *defaultTaskUpdater) StartWork(ctx context.Context) error {
	return u.UpdateStatus(ctx, a2a.TaskStateWorking, nil)
}

// Complete marks the task as completed.
func (u *defaultTaskUpdater) Complete(ctx context.Context) error {
	return u.UpdateStatus(ctx, a2a.TaskStateCompleted, nil)
}

// Failed marks the task as failed.
func (u *defaultTaskUpdater) Failed(ctx context.Context, message *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateFailed, message)
}

// NewAgentMessage builds an agent message bound to this task.
func (u *defaultTaskUpdater) NewAgentMessage(text string) *a2a.Message {
	return a2a.NewAgentTextMessage(text, u.contextID, u.taskID)
}

// TaskID returns the task ID this updater is associated with.
func (u *defaultTaskUpdater) TaskID() string { return u.taskID }

// ContextID returns the context ID this updater is associated with.
func (u *defaultTaskUpdater) ContextID() string { return u.contextID }

// IsTerminal returns true if the task is in a terminal state.
func (u *defaultTaskUpdater) IsTerminal() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.terminal
}
