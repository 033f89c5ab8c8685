// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Tool is a capability the model may use during a turn.
type Tool interface {
	Name() string
	Description() string
}

// ToolContext identifies the turn a tool call belongs to.
type ToolContext struct {
	AppName      string
	UserID       string
	SessionID    string
	InvocationID string
}

// ToolCaller is implemented by tools that execute the model's function calls.
// The returned map becomes the function response handed back to the model.
type ToolCaller interface {
	CallTool(ctx context.Context, tc *ToolContext, call *FunctionCall) (map[string]any, error)
}

// HeaderSetter is implemented by tools whose remote connection carries HTTP
// headers that can be replaced between turns, e.g. to rotate a bearer token.
type HeaderSetter interface {
	SetHeaders(headers map[string]string)
}

// StreamableHTTPConnectionParams locates an MCP server reachable over the
// streamable HTTP transport.
type StreamableHTTPConnectionParams struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// MCPToolset exposes the tools of a remote MCP server to the model. Every
// request to the server carries the headers current at the time it is sent.
type MCPToolset struct {
	name       string
	httpClient *http.Client
	nextID     atomic.Int64

	mu     sync.RWMutex
	params StreamableHTTPConnectionParams

	// sessMu serializes the initialize handshake.
	sessMu      sync.Mutex
	initialized bool
	sessionID   string
}

var (
	_ Tool         = (*MCPToolset)(nil)
	_ HeaderSetter = (*MCPToolset)(nil)
	_ ToolCaller   = (*MCPToolset)(nil)
)

// NewMCPToolset returns a toolset for the MCP server described by params.
func NewMCPToolset(name string, params StreamableHTTPConnectionParams) *MCPToolset {
	params.Headers = maps.Clone(params.Headers)
	if params.Timeout == 0 {
		params.Timeout = 30 * time.Second
	}
	return &MCPToolset{
		name:       name,
		params:     params,
		httpClient: &http.Client{Timeout: params.Timeout},
	}
}

// Name implements Tool.
func (t *MCPToolset) Name() string { return t.name }

// Description implements Tool.
func (t *MCPToolset) Description() string { return "tools served by the MCP server at " + t.URL() }

// URL returns the MCP server URL.
func (t *MCPToolset) URL() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.params.URL
}

// SetHeaders replaces the headers sent on every MCP request.
func (t *MCPToolset) SetHeaders(headers map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.params.Headers = maps.Clone(headers)
}

// ConnectionParams returns a copy of the current connection parameters.
func (t *MCPToolset) ConnectionParams() StreamableHTTPConnectionParams {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p := t.params
	p.Headers = maps.Clone(t.params.Headers)
	return p
}

// PreloadMemoryTool makes the runner retrieve the user's memories relevant to
// the incoming message and hand them to the model before it runs.
type PreloadMemoryTool struct{}

var _ Tool = PreloadMemoryTool{}

// Name implements Tool.
func (PreloadMemoryTool) Name() string { return "preload_memory" }

// Description implements Tool.
func (PreloadMemoryTool) Description() string {
	return "preloads memories of the current user relevant to the request"
}
