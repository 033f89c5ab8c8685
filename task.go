// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
	"time"
)

// TaskStatus is the state of a task at a point in time.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitzero"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Validate ensures the TaskStatus is valid.
func (s TaskStatus) Validate() error {
	if !s.State.Valid() {
		return fmt.Errorf("invalid task state: %q", s.State)
	}
	return nil
}

// Task is a unit of work identified by its ID and the conversation context it belongs to.
type Task struct {
	Kind      string         `json:"kind"`
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	History   []*Message     `json:"history,omitzero"`
	Artifacts []*Artifact    `json:"artifacts,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// NewTask creates a submitted task for the initial message.
// Missing task and context identifiers are generated.
func NewTask(message *Message) (*Task, error) {
	if err := message.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request message: %w", err)
	}
	if message.TaskID == "" {
		message.TaskID = NewID()
	}
	if message.ContextID == "" {
		message.ContextID = NewID()
	}

	return &Task{
		Kind:      "task",
		ID:        message.TaskID,
		ContextID: message.ContextID,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: time.Now().UTC(),
		},
		History: []*Message{message},
	}, nil
}

// Validate ensures the Task is valid.
func (t *Task) Validate() error {
	if t == nil {
		return errors.New("task cannot be nil")
	}
	if t.ID == "" {
		return errors.New("task ID cannot be empty")
	}
	if t.ContextID == "" {
		return errors.New("task context ID cannot be empty")
	}
	return t.Status.Validate()
}

// Clone returns a copy of t that shares no slices with the original.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.History = append([]*Message(nil), t.History...)
	c.Artifacts = append([]*Artifact(nil), t.Artifacts...)
	return &c
}
