// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"iter"
)

// CallbackContext is handed to agent callbacks.
type CallbackContext struct {
	InvocationID string
	UserID       string
	Session      *Session
	Memory       MemoryService
}

// AfterAgentCallback runs once the agent has produced its final response for a turn.
type AfterAgentCallback func(ctx context.Context, cc *CallbackContext) error

// Agent is the persona the runtime executes.
type Agent struct {
	Name        string
	Description string
	Instruction string
	Model       string
	Tools       []Tool
	AfterAgent  []AfterAgentCallback
}

// Request is what a Model receives for one turn.
type Request struct {
	Model       string
	Instruction string
	Contents    []*Content
	Tools       []Tool
	Memories    []MemoryEntry
}

// Model produces the events of one turn. Intermediate events (tool calls and
// their results) precede exactly one final event.
type Model interface {
	Generate(ctx context.Context, req *Request) iter.Seq2[*Event, error]
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, req *Request) iter.Seq2[*Event, error]

// Generate implements Model.
func (f ModelFunc) Generate(ctx context.Context, req *Request) iter.Seq2[*Event, error] {
	return f(ctx, req)
}
