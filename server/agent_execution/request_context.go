// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"maps"
	"time"

	a2a "github.com/go-a2a/a2a-bridge"
)

// RequestContext provides context about an incoming request to an agent executor.
type RequestContext struct {
	// TaskID is the unique identifier for the task being executed.
	TaskID string

	// ContextID identifies the conversation the task belongs to.
	ContextID string

	// Message is the incoming user message.
	Message *a2a.Message

	// CurrentTask is the stored task when the request continues a known task, or nil.
	CurrentTask *a2a.Task

	// Metadata contains any additional metadata from the request.
	Metadata map[string]any

	// CreatedAt represents when this request context was created.
	CreatedAt time.Time
}

// NewRequestContext creates a RequestContext for message.
func NewRequestContext(taskID, contextID string, message *a2a.Message) *RequestContext {
	return &RequestContext{
		TaskID:    taskID,
		ContextID: contextID,
		Message:   message,
		Metadata:  make(map[string]any),
		CreatedAt: time.Now(),
	}
}

// WithTask attaches the currently stored task.
func (rc *RequestContext) WithTask(task *a2a.Task) *RequestContext {
	rc.CurrentTask = task
	return rc
}

// WithMetadata merges metadata into the request context.
func (rc *RequestContext) WithMetadata(metadata map[string]any) *RequestContext {
	if rc.Metadata == nil {
		rc.Metadata = make(map[string]any)
	}
	maps.Copy(rc.Metadata, metadata)
	return rc
}

// GetUserInput returns the text parts of the user message joined with newlines.
func (rc *RequestContext) GetUserInput() string {
	return rc.Message.Text("\n")
}
