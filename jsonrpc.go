// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"github.com/go-json-experiment/json/jsontext"
)

// A2A RPC method names.
const (
	// MethodMessageSend sends a message and waits for the resulting task.
	MethodMessageSend = "message/send"
	// MethodMessageStream sends a message and streams task events.
	MethodMessageStream = "message/stream"
	// MethodTasksGet fetches a task.
	MethodTasksGet = "tasks/get"
	// MethodTasksCancel requests cancellation of a task.
	MethodTasksCancel = "tasks/cancel"
)

// JSONRPCVersion is the only JSON-RPC version accepted.
const JSONRPCVersion = "2.0"

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id,omitzero"`
	Method  string         `json:"method"`
	Params  jsontext.Value `json:"params,omitzero"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
// Result and Error are mutually exclusive. The omitempty tags keep that true
// for encoders without omitzero support.
type JSONRPCResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id"`
	Result  any            `json:"result,omitempty"`
	Error   *Error         `json:"error,omitempty"`
}

// NewJSONRPCResult creates a successful response for id.
func NewJSONRPCResult(id jsontext.Value, result any) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: nullID(id), Result: result}
}

// NewJSONRPCError creates an error response for id.
func NewJSONRPCError(id jsontext.Value, err *Error) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: nullID(id), Error: err}
}

func nullID(id jsontext.Value) jsontext.Value {
	if len(id) == 0 {
		return jsontext.Value("null")
	}
	return id
}

// MessageSendParams are the parameters of message/send and message/stream.
type MessageSendParams struct {
	Message  *Message       `json:"message"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the params carry a valid message.
func (p *MessageSendParams) Validate() error {
	if p == nil || p.Message == nil {
		return ErrInvalidParams.WithData("message is required")
	}
	if err := p.Message.Validate(); err != nil {
		return ErrInvalidParams.WithData(err.Error())
	}
	return nil
}

// TaskQueryParams are the parameters of tasks/get.
type TaskQueryParams struct {
	ID            string `json:"id"`
	HistoryLength int    `json:"historyLength,omitzero"`
}

// TaskIDParams are the parameters of tasks/cancel.
type TaskIDParams struct {
	ID string `json:"id"`
}
