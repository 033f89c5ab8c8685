// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package event provides the events an agent executor publishes while it
// works on a task, and the queue that carries them to the protocol layer.
package event

import (
	"errors"
	"fmt"
	"time"

	a2a "github.com/go-a2a/a2a-bridge"
)

// Event kinds.
const (
	KindMessage        = "message"
	KindTask           = "task"
	KindStatusUpdate   = "status-update"
	KindArtifactUpdate = "artifact-update"
)

// Event represents a unified interface for all event types published by an executor.
type Event interface {
	// EventKind returns the kind of the event.
	EventKind() string

	// Validate ensures the event is in a valid state.
	Validate() error
}

// MessageEvent wraps an a2a.Message as an event.
type MessageEvent struct {
	Kind    string       `json:"kind"`
	Message *a2a.Message `json:"message"`
}

var _ Event = (*MessageEvent)(nil)

// NewMessageEvent creates a new MessageEvent.
func NewMessageEvent(message *a2a.Message) *MessageEvent {
	return &MessageEvent{Kind: KindMessage, Message: message}
}

// EventKind implements Event.
func (e *MessageEvent) EventKind() string { return KindMessage }

// Validate implements Event.
func (e *MessageEvent) Validate() error {
	return e.Message.Validate()
}

// TaskEvent wraps an a2a.Task snapshot as an event.
type TaskEvent struct {
	Kind string    `json:"kind"`
	Task *a2a.Task `json:"task"`
}

var _ Event = (*TaskEvent)(nil)

// NewTaskEvent creates a new TaskEvent.
func NewTaskEvent(task *a2a.Task) *TaskEvent {
	return &TaskEvent{Kind: KindTask, Task: task}
}

// EventKind implements Event.
func (e *TaskEvent) EventKind() string { return KindTask }

// Validate implements Event.
func (e *TaskEvent) Validate() error {
	return e.Task.Validate()
}

// TaskStatusUpdateEvent reports a task status transition.
type TaskStatusUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    a2a.TaskStatus `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

var _ Event = (*TaskStatusUpdateEvent)(nil)

// NewTaskStatusUpdateEvent creates a status update. Final is derived from the state.
func NewTaskStatusUpdateEvent(taskID, contextID string, state a2a.TaskState, message *a2a.Message) *TaskStatusUpdateEvent {
	return &TaskStatusUpdateEvent{
		Kind:      KindStatusUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Status: a2a.TaskStatus{
			State:     state,
			Message:   message,
			Timestamp: time.Now().UTC(),
		},
		Final: state.IsTerminal(),
	}
}

// EventKind implements Event.
func (e *TaskStatusUpdateEvent) EventKind() string { return KindStatusUpdate }

// Validate implements Event.
func (e *TaskStatusUpdateEvent) Validate() error {
	if e.TaskID == "" {
		return errors.New("task status update event task ID cannot be empty")
	}
	return e.Status.Validate()
}

// String returns a short description of the event.
func (e *TaskStatusUpdateEvent) String() string {
	return fmt.Sprintf("TaskStatusUpdateEvent{TaskID: %s, State: %s, Final: %t}", e.TaskID, e.Status.State, e.Final)
}

// TaskArtifactUpdateEvent reports a new or updated artifact.
type TaskArtifactUpdateEvent struct {
	Kind      string        `json:"kind"`
	TaskID    string        `json:"taskId"`
	ContextID string        `json:"contextId"`
	Artifact  *a2a.Artifact `json:"artifact"`
	Append    bool          `json:"append,omitzero"`
	LastChunk bool          `json:"lastChunk,omitzero"`
}

var _ Event = (*TaskArtifactUpdateEvent)(nil)

// NewTaskArtifactUpdateEvent creates an artifact update.
func NewTaskArtifactUpdateEvent(taskID, contextID string, artifact *a2a.Artifact, append, lastChunk bool) *TaskArtifactUpdateEvent {
	return &TaskArtifactUpdateEvent{
		Kind:      KindArtifactUpdate,
		TaskID:    taskID,
		ContextID: contextID,
		Artifact:  artifact,
		Append:    append,
		LastChunk: lastChunk,
	}
}

// EventKind implements Event.
func (e *TaskArtifactUpdateEvent) EventKind() string { return KindArtifactUpdate }

// Validate implements Event.
func (e *TaskArtifactUpdateEvent) Validate() error {
	if e.TaskID == "" {
		return errors.New("task artifact update event task ID cannot be empty")
	}
	return e.Artifact.Validate()
}

// IsFinal reports whether ev ends the event stream of a request.
// Final events are terminal status updates, terminal task snapshots and messages.
func IsFinal(ev Event) bool {
	switch e := ev.(type) {
	case *TaskStatusUpdateEvent:
		return e.Final
	case *TaskEvent:
		return e.Task != nil && e.Task.Status.State.IsTerminal()
	case *MessageEvent:
		return true
	default:
		return false
	}
}
