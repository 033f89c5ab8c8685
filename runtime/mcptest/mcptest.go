// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcptest provides an in-process MCP server speaking the streamable
// HTTP transport, for tests of MCP clients.
package mcptest

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"

	"github.com/go-a2a/a2a-bridge/runtime"
)

// ToolFunc implements one tool. A returned error becomes an isError result.
type ToolFunc func(args map[string]any) (string, error)

// Call records one tools/call request.
type Call struct {
	Tool          string
	Args          map[string]any
	Authorization string
	SessionID     string
}

// Server is an MCP server backed by httptest.Server.
type Server struct {
	*httptest.Server

	// Stream makes tools/call answer with an event stream instead of JSON.
	Stream bool

	tools map[string]ToolFunc

	mu       sync.Mutex
	sessions map[string]struct{}
	calls    []Call
	inits    int
}

// NewServer starts a server exposing tools. The caller must Close it.
func NewServer(tools map[string]ToolFunc) *Server {
	s := &Server{
		tools:    tools,
		sessions: make(map[string]struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Calls returns the tools/call requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Initializations returns how many initialize handshakes the server answered.
func (s *Server) Initializations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inits
}

// ExpireSessions forgets every session, as a restarted server would.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.sessions)
}

type request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id,omitzero"`
	Method  string         `json:"method"`
	Params  jsontext.Value `json:"params,omitzero"`
}

type response struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      jsontext.Value    `json:"id"`
	Result  any               `json:"result,omitzero"`
	Error   *runtime.MCPError `json:"error,omitzero"`
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req request
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Method == "initialize" {
		sid := uuid.NewString()
		s.mu.Lock()
		s.sessions[sid] = struct{}{}
		s.inits++
		s.mu.Unlock()
		w.Header().Set(runtime.MCPSessionHeader, sid)
		s.reply(w, &response{ID: req.ID, Result: map[string]any{
			"protocolVersion": runtime.MCPProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "mcptest", "version": "1.0.0"},
		}}, false)
		return
	}

	sid := r.Header.Get(runtime.MCPSessionHeader)
	s.mu.Lock()
	_, known := s.sessions[sid]
	s.mu.Unlock()
	switch {
	case sid == "":
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	case !known:
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	switch req.Method {
	case "notifications/initialized":
		w.WriteHeader(http.StatusAccepted)
	case "tools/call":
		s.reply(w, s.callTool(&req, r.Header.Get("Authorization"), sid), s.Stream)
	default:
		s.reply(w, &response{ID: req.ID, Error: &runtime.MCPError{Code: -32601, Message: "method not found"}}, false)
	}
}

func (s *Server) callTool(req *request, auth, sid string) *response {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &response{ID: req.ID, Error: &runtime.MCPError{Code: -32602, Message: err.Error()}}
	}
	s.mu.Lock()
	s.calls = append(s.calls, Call{Tool: params.Name, Args: params.Arguments, Authorization: auth, SessionID: sid})
	s.mu.Unlock()

	tool, ok := s.tools[params.Name]
	if !ok {
		return &response{ID: req.ID, Error: &runtime.MCPError{Code: -32602, Message: fmt.Sprintf("unknown tool %q", params.Name)}}
	}
	text, err := tool(params.Arguments)
	isError := err != nil
	if isError {
		text = err.Error()
	}
	return &response{ID: req.ID, Result: &runtime.MCPToolResult{
		Content: []runtime.MCPContent{{Type: "text", Text: text}},
		IsError: isError,
	}}
}

func (s *Server) reply(w http.ResponseWriter, resp *response, stream bool) {
	resp.JSONRPC = "2.0"
	data, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !stream {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	// a server notification precedes the response
	fmt.Fprint(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"method\":\"notifications/progress\",\"params\":{}}\n\n")
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
}

// Text returns a ToolFunc answering every call with text.
func Text(text string) ToolFunc {
	return func(map[string]any) (string, error) { return text, nil }
}

// Fail returns a ToolFunc failing every call with msg.
func Fail(msg string) ToolFunc {
	return func(map[string]any) (string, error) { return "", errors.New(msg) }
}
