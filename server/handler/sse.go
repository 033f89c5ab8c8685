// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/internal/pool"
	"github.com/go-a2a/a2a-bridge/server/event"
)

// errStreamClosed is returned by writes after the stream was closed.
var errStreamClosed = errors.New("stream is closed")

// sseStream writes JSON-RPC responses of one request as Server-Sent Events.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	id      jsontext.Value

	mu     sync.Mutex
	closed bool
}

// newSSEStream sets the SSE headers on w. It reports false when w cannot flush.
func newSSEStream(w http.ResponseWriter, id jsontext.Value) (*sseStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // For Nginx proxy
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseStream{w: w, flusher: flusher, id: id}, true
}

// SendEvent writes ev as a result frame.
func (s *sseStream) SendEvent(ev event.Event) error {
	return s.write(frameName(ev), a2a.NewJSONRPCResult(s.id, ev))
}

// SendError writes err as an error frame.
func (s *sseStream) SendError(err *a2a.Error) error {
	return s.write("error", a2a.NewJSONRPCError(s.id, err))
}

// Close stops further writes.
func (s *sseStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *sseStream) write(name string, resp *a2a.JSONRPCResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errStreamClosed
	}

	data, err := sonic.ConfigDefault.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	buf.WriteString("event: ")
	buf.WriteString(name)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return err
	}
	s.flusher.Flush()

	return nil
}

func frameName(ev event.Event) string {
	switch ev.EventKind() {
	case event.KindStatusUpdate:
		return "status"
	case event.KindArtifactUpdate:
		return "artifact"
	default:
		return ev.EventKind()
	}
}
