// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/server/agent_execution"
	"github.com/go-a2a/a2a-bridge/server/event"
	"github.com/go-a2a/a2a-bridge/server/handler"
	"github.com/go-a2a/a2a-bridge/server/task"
)

type echoExecutor struct{}

func (echoExecutor) Execute(ctx context.Context, reqCtx *agent_execution.RequestContext, queue event.Queue) error {
	u, err := task.NewTaskUpdater(queue, reqCtx.TaskID, reqCtx.ContextID)
	if err != nil {
		return err
	}
	if reqCtx.CurrentTask == nil {
		if err := u.Submit(ctx); err != nil {
			return err
		}
	}
	if err := u.StartWork(ctx); err != nil {
		return err
	}
	input := reqCtx.GetUserInput()
	if input == "fail" {
		return u.Failed(ctx, u.NewAgentMessage("Error: asked to fail"))
	}
	if err := u.AddArtifact(ctx, []a2a.Part{a2a.NewTextPart("echo: " + input)}, "answer"); err != nil {
		return err
	}
	return u.Complete(ctx)
}

func (echoExecutor) Cancel(context.Context, *agent_execution.RequestContext, event.Queue) error {
	return a2a.ErrUnsupportedOperation
}

// lastHeader records the headers of the most recent request.
type lastHeader struct {
	mu     sync.Mutex
	header http.Header
}

func (l *lastHeader) Get(key string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.header.Get(key)
}

// newTestClient serves an echo agent and returns a Client for it along with
// the headers of the last request the agent received.
func newTestClient(t *testing.T, opts ...Option) (*Client, *lastHeader) {
	t.Helper()
	h, err := handler.NewDefaultRequestHandler(echoExecutor{}, task.NewInMemoryTaskStore())
	if err != nil {
		t.Fatal(err)
	}
	card := &a2a.AgentCard{
		Name:         "echo",
		Description:  "echoes",
		URL:          "http://localhost",
		Version:      "1.0.0",
		Capabilities: a2a.AgentCapabilities{Streaming: true},
	}
	rpc := handler.NewJSONRPCHandler(h, card)

	last := &lastHeader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.mu.Lock()
		last.header = r.Header.Clone()
		last.mu.Unlock()
		rpc.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	return New(srv.URL, append([]Option{WithHTTPClient(srv.Client())}, opts...)...), last
}

func TestAgentCard(t *testing.T) {
	c, _ := newTestClient(t)
	card, err := c.AgentCard(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if card.Name != "echo" || !card.Capabilities.Streaming {
		t.Errorf("AgentCard() = %+v, want the echo card with streaming", card)
	}
}

func TestSendMessageAndGetTask(t *testing.T) {
	c, headers := newTestClient(t, WithHeader("X-Request-Source", "test"))

	got, err := c.SendMessage(t.Context(), &a2a.MessageSendParams{
		Message: a2a.NewUserTextMessage("hello", "", ""),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("state = %s, want completed", got.Status.State)
	}
	if diff := cmp.Diff("echo: hello", got.Artifacts[0].Parts[0].Text); diff != "" {
		t.Errorf("answer mismatch (-want +got):\n%s", diff)
	}
	if v := headers.Get("X-Request-Source"); v != "test" {
		t.Errorf("X-Request-Source = %q, want test", v)
	}

	fetched, err := c.GetTask(t.Context(), &a2a.TaskQueryParams{ID: got.ID})
	if err != nil {
		t.Fatal(err)
	}
	if fetched.ID != got.ID || fetched.Status.State != a2a.TaskStateCompleted {
		t.Errorf("GetTask() = %s %s, want %s completed", fetched.ID, fetched.Status.State, got.ID)
	}
}

func TestHeaderFuncEvaluatedPerRequest(t *testing.T) {
	tokens := []string{"t1", "t2"}
	var n int
	c, headers := newTestClient(t, WithHeaderFunc(func(context.Context) map[string]string {
		tok := tokens[min(n, len(tokens)-1)]
		n++
		return map[string]string{"Authorization": "Bearer " + tok}
	}))

	var got []string
	for range 2 {
		if _, err := c.SendMessage(t.Context(), &a2a.MessageSendParams{
			Message: a2a.NewUserTextMessage("hello", "", ""),
		}); err != nil {
			t.Fatal(err)
		}
		got = append(got, headers.Get("Authorization"))
	}
	if diff := cmp.Diff([]string{"Bearer t1", "Bearer t2"}, got); diff != "" {
		t.Errorf("Authorization per request mismatch (-want +got):\n%s", diff)
	}
}

func TestRPCErrors(t *testing.T) {
	c, _ := newTestClient(t)
	done, err := c.SendMessage(t.Context(), &a2a.MessageSendParams{
		Message: a2a.NewUserTextMessage("hello", "", ""),
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := map[string]struct {
		call func(ctx context.Context) error
		want *a2a.Error
	}{
		"unknown task": {
			call: func(ctx context.Context) error {
				_, err := c.GetTask(ctx, &a2a.TaskQueryParams{ID: "missing"})
				return err
			},
			want: a2a.ErrTaskNotFound,
		},
		"cancel terminal task": {
			call: func(ctx context.Context) error {
				_, err := c.CancelTask(ctx, &a2a.TaskIDParams{ID: done.ID})
				return err
			},
			want: a2a.ErrTaskNotCancelable,
		},
		"invalid message": {
			call: func(ctx context.Context) error {
				_, err := c.SendMessage(ctx, &a2a.MessageSendParams{Message: &a2a.Message{Role: a2a.RoleUser}})
				return err
			},
			want: a2a.ErrInvalidParams,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.call(t.Context())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSendMessageStream(t *testing.T) {
	c, headers := newTestClient(t)

	var kinds []string
	var last event.Event
	for ev, err := range c.SendMessageStream(t.Context(), &a2a.MessageSendParams{
		Message: a2a.NewUserTextMessage("stream me", "", ""),
	}) {
		if err != nil {
			t.Fatal(err)
		}
		kinds = append(kinds, ev.EventKind())
		last = ev
	}

	want := []string{
		event.KindStatusUpdate,
		event.KindStatusUpdate,
		event.KindArtifactUpdate,
		event.KindStatusUpdate,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("event kinds mismatch (-want +got):\n%s", diff)
	}
	status, ok := last.(*event.TaskStatusUpdateEvent)
	if !ok || status.Status.State != a2a.TaskStateCompleted || !status.Final {
		t.Errorf("last event = %+v, want final completed status", last)
	}
	if accept := headers.Get("Accept"); accept != "text/event-stream" {
		t.Errorf("Accept = %q, want text/event-stream", accept)
	}
}

func TestSendMessageStreamFailed(t *testing.T) {
	c, _ := newTestClient(t)

	var last event.Event
	for ev, err := range c.SendMessageStream(t.Context(), &a2a.MessageSendParams{
		Message: a2a.NewUserTextMessage("fail", "", ""),
	}) {
		if err != nil {
			t.Fatal(err)
		}
		last = ev
	}
	status, ok := last.(*event.TaskStatusUpdateEvent)
	if !ok || status.Status.State != a2a.TaskStateFailed {
		t.Fatalf("last event = %+v, want failed status", last)
	}
	if got := status.Status.Message.Text(""); got != "Error: asked to fail" {
		t.Errorf("status message = %q, want %q", got, "Error: asked to fail")
	}
}

func TestFrames(t *testing.T) {
	tests := map[string]struct {
		input string
		want  []string
	}{
		"single frame": {
			input: "event: status\ndata: {\"a\":1}\n\n",
			want:  []string{`{"a":1}`},
		},
		"unterminated last frame": {
			input: "data: {\"a\":1}\n\ndata: {\"b\":2}\n",
			want:  []string{`{"a":1}`, `{"b":2}`},
		},
		"comments and blank lines": {
			input: ": keep-alive\n\n\nevent: artifact\ndata: {}\n\n",
			want:  []string{`{}`},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var got []string
			for data, err := range frames(strings.NewReader(tt.input)) {
				if err != nil {
					t.Fatal(err)
				}
				got = append(got, string(data))
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("frames mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeFrame(t *testing.T) {
	tests := map[string]struct {
		data     string
		wantKind string
		wantErr  error
	}{
		"status": {
			data:     `{"jsonrpc":"2.0","id":1,"result":{"kind":"status-update","taskId":"t","contextId":"c","status":{"state":"working"},"final":false}}`,
			wantKind: event.KindStatusUpdate,
		},
		"task": {
			data:     `{"jsonrpc":"2.0","id":1,"result":{"kind":"task","task":{"kind":"task","id":"t","contextId":"c","status":{"state":"submitted"}}}}`,
			wantKind: event.KindTask,
		},
		"error": {
			data:    `{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"Internal error"}}`,
			wantErr: a2a.ErrInternal,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ev, err := decodeFrame([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("decodeFrame() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if ev.EventKind() != tt.wantKind {
				t.Errorf("kind = %s, want %s", ev.EventKind(), tt.wantKind)
			}
		})
	}
}
