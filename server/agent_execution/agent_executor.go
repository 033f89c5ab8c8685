// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent_execution defines the contract between the A2A protocol layer
// and the agent code that performs the work of a task.
package agent_execution

import (
	"context"

	"github.com/go-a2a/a2a-bridge/server/event"
)

// AgentExecutor defines the interface that all A2A agents must implement.
type AgentExecutor interface {
	// Execute processes the request and reports progress and results through
	// queue. Implementations must publish exactly one terminal status per task.
	Execute(ctx context.Context, reqCtx *RequestContext, queue event.Queue) error

	// Cancel requests cancellation of a running task.
	Cancel(ctx context.Context, reqCtx *RequestContext, queue event.Queue) error
}
