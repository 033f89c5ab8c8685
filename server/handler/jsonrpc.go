// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/internal/pool"
)

// Well-known agent card paths.
const (
	AgentCardPath       = "/.well-known/agent.json"
	AgentCardPathLegacy = "/.well-known/agent-card.json"
)

// DefaultMaxBodyBytes bounds the size of a JSON-RPC request body.
const DefaultMaxBodyBytes = 10 << 20

// methodFunc serves one JSON-RPC method.
type methodFunc func(ctx context.Context, params jsontext.Value) (any, error)

// JSONRPCHandler exposes a RequestHandler over JSON-RPC 2.0 on HTTP, with
// message/stream answered as Server-Sent Events.
type JSONRPCHandler struct {
	handler      RequestHandler
	agentCard    *a2a.AgentCard
	logger       *slog.Logger
	maxBodyBytes int64

	methods map[string]methodFunc
	mux     *http.ServeMux
}

var _ http.Handler = (*JSONRPCHandler)(nil)

// JSONRPCHandlerOption configures a JSONRPCHandler.
type JSONRPCHandlerOption func(*JSONRPCHandler)

// WithJSONRPCLogger sets the logger.
func WithJSONRPCLogger(logger *slog.Logger) JSONRPCHandlerOption {
	return func(h *JSONRPCHandler) {
		h.logger = logger
	}
}

// WithMaxBodyBytes bounds the request body size.
func WithMaxBodyBytes(n int64) JSONRPCHandlerOption {
	return func(h *JSONRPCHandler) {
		h.maxBodyBytes = n
	}
}

// NewJSONRPCHandler creates a JSONRPCHandler serving handler and advertising card.
func NewJSONRPCHandler(handler RequestHandler, card *a2a.AgentCard, opts ...JSONRPCHandlerOption) *JSONRPCHandler {
	if handler == nil {
		panic("request handler cannot be nil")
	}
	if card == nil {
		panic("agent card cannot be nil")
	}

	h := &JSONRPCHandler{
		handler:      handler,
		agentCard:    card,
		logger:       slog.Default(),
		maxBodyBytes: DefaultMaxBodyBytes,
		mux:          http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.methods = map[string]methodFunc{
		a2a.MethodMessageSend: h.handleMessageSend,
		a2a.MethodTasksGet:    h.handleGetTask,
		a2a.MethodTasksCancel: h.handleCancelTask,
	}

	h.mux.HandleFunc("GET "+AgentCardPath, h.serveAgentCard)
	h.mux.HandleFunc("GET "+AgentCardPathLegacy, h.serveAgentCard)
	h.mux.HandleFunc("POST /", h.serveRPC)

	return h
}

// ServeHTTP implements http.Handler.
func (h *JSONRPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// AgentCard returns the advertised agent card.
func (h *JSONRPCHandler) AgentCard() *a2a.AgentCard {
	return h.agentCard
}

func (h *JSONRPCHandler) serveAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.MarshalWrite(w, h.agentCard); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write agent card", "error", err)
	}
}

func (h *JSONRPCHandler) serveRPC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req a2a.JSONRPCRequest
	if err := json.UnmarshalRead(http.MaxBytesReader(w, r.Body, h.maxBodyBytes), &req); err != nil {
		h.writeResponse(ctx, w, a2a.NewJSONRPCError(nil, a2a.ErrParse.WithData(err.Error())))
		return
	}
	if req.JSONRPC != a2a.JSONRPCVersion || req.Method == "" {
		h.writeResponse(ctx, w, a2a.NewJSONRPCError(req.ID, a2a.ErrInvalidRequest))
		return
	}

	log := h.logger.With("method", req.Method)
	log.DebugContext(ctx, "handling request")

	if req.Method == a2a.MethodMessageStream {
		h.serveStream(ctx, w, &req)
		return
	}

	method, ok := h.methods[req.Method]
	if !ok {
		h.writeResponse(ctx, w, a2a.NewJSONRPCError(req.ID, a2a.ErrMethodNotFound.WithData(req.Method)))
		return
	}
	result, err := method(ctx, req.Params)
	if err != nil {
		log.InfoContext(ctx, "request failed", "error", err)
		h.writeResponse(ctx, w, a2a.NewJSONRPCError(req.ID, toRPCError(err)))
		return
	}
	h.writeResponse(ctx, w, a2a.NewJSONRPCResult(req.ID, result))
}

func (h *JSONRPCHandler) serveStream(ctx context.Context, w http.ResponseWriter, req *a2a.JSONRPCRequest) {
	if !h.agentCard.Capabilities.Streaming {
		h.writeResponse(ctx, w, a2a.NewJSONRPCError(req.ID, a2a.ErrUnsupportedOperation.WithData("streaming is not supported by this agent")))
		return
	}
	params, err := decodeParams[a2a.MessageSendParams](req.Params)
	if err != nil {
		h.writeResponse(ctx, w, a2a.NewJSONRPCError(req.ID, toRPCError(err)))
		return
	}

	stream, ok := newSSEStream(w, req.ID)
	if !ok {
		h.writeResponse(ctx, w, a2a.NewJSONRPCError(req.ID, a2a.ErrInternal.WithData("streaming unsupported by the connection")))
		return
	}
	defer stream.Close()

	if _, err := h.handler.OnMessageSendStream(ctx, params, stream.SendEvent); err != nil {
		h.logger.InfoContext(ctx, "stream failed", "error", err)
		if werr := stream.SendError(toRPCError(err)); werr != nil {
			h.logger.DebugContext(ctx, "failed to write stream error", "error", werr)
		}
	}
}

func (h *JSONRPCHandler) handleMessageSend(ctx context.Context, raw jsontext.Value) (any, error) {
	params, err := decodeParams[a2a.MessageSendParams](raw)
	if err != nil {
		return nil, err
	}
	return h.handler.OnMessageSend(ctx, params)
}

func (h *JSONRPCHandler) handleGetTask(ctx context.Context, raw jsontext.Value) (any, error) {
	params, err := decodeParams[a2a.TaskQueryParams](raw)
	if err != nil {
		return nil, err
	}
	return h.handler.OnGetTask(ctx, params)
}

func (h *JSONRPCHandler) handleCancelTask(ctx context.Context, raw jsontext.Value) (any, error) {
	params, err := decodeParams[a2a.TaskIDParams](raw)
	if err != nil {
		return nil, err
	}
	return h.handler.OnCancelTask(ctx, params)
}

func (h *JSONRPCHandler) writeResponse(ctx context.Context, w http.ResponseWriter, resp *a2a.JSONRPCResponse) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if err := json.MarshalWrite(buf, resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

func decodeParams[T any](raw jsontext.Value) (*T, error) {
	if len(raw) == 0 {
		return nil, a2a.ErrInvalidParams.WithData("params are required")
	}
	params := new(T)
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, a2a.ErrInvalidParams.WithData(err.Error())
	}
	return params, nil
}
