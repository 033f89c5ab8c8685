// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"
	"errors"
	"fmt"

	a2a "github.com/go-a2a/a2a-bridge"
)

// RequestContextBuilder builds the RequestContext supplied to an AgentExecutor.
type RequestContextBuilder interface {
	// Build creates a RequestContext from the send parameters. currentTask may be nil.
	Build(ctx context.Context, params *a2a.MessageSendParams, currentTask *a2a.Task) (*RequestContext, error)
}

// SimpleRequestContextBuilder is the default RequestContextBuilder.
// Task and context identifiers are taken from the current task, then from
// the message, and generated when both are absent.
type SimpleRequestContextBuilder struct{}

var _ RequestContextBuilder = SimpleRequestContextBuilder{}

// Build implements RequestContextBuilder.
func (SimpleRequestContextBuilder) Build(ctx context.Context, params *a2a.MessageSendParams, currentTask *a2a.Task) (*RequestContext, error) {
	if params == nil {
		return nil, errors.New("message send params cannot be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message send params: %w", err)
	}

	msg := params.Message
	taskID, contextID := msg.TaskID, msg.ContextID
	if currentTask != nil {
		taskID, contextID = currentTask.ID, currentTask.ContextID
	}
	if taskID == "" {
		taskID = a2a.NewID()
	}
	if contextID == "" {
		contextID = a2a.NewID()
	}
	msg.TaskID, msg.ContextID = taskID, contextID

	return NewRequestContext(taskID, contextID, msg).
		WithTask(currentTask).
		WithMetadata(params.Metadata), nil
}
