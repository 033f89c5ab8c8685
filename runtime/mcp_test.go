// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package runtime_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/a2a-bridge/runtime"
	"github.com/go-a2a/a2a-bridge/runtime/mcptest"
)

func newWeatherServer(t *testing.T) *mcptest.Server {
	t.Helper()
	srv := mcptest.NewServer(map[string]mcptest.ToolFunc{
		"get_weather": func(args map[string]any) (string, error) {
			return "sunny in " + args["city"].(string), nil
		},
		"get_forecast": mcptest.Fail("forecast backend down"),
	})
	t.Cleanup(srv.Close)
	return srv
}

func TestMCPToolsetCallTool(t *testing.T) {
	for name, stream := range map[string]bool{"json": false, "event stream": true} {
		t.Run(name, func(t *testing.T) {
			srv := newWeatherServer(t)
			srv.Stream = stream
			ts := runtime.NewMCPToolset("weather", runtime.StreamableHTTPConnectionParams{
				URL:     srv.URL,
				Headers: map[string]string{"Authorization": "Bearer t1"},
			})
			call := &runtime.FunctionCall{Name: "get_weather", Args: map[string]any{"city": "Paris"}}

			got, err := ts.CallTool(t.Context(), &runtime.ToolContext{}, call)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(map[string]any{"result": "sunny in Paris"}, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}

			ts.SetHeaders(map[string]string{"Authorization": "Bearer t2"})
			if _, err := ts.CallTool(t.Context(), &runtime.ToolContext{}, call); err != nil {
				t.Fatal(err)
			}

			var auth []string
			for _, c := range srv.Calls() {
				auth = append(auth, c.Authorization)
			}
			if diff := cmp.Diff([]string{"Bearer t1", "Bearer t2"}, auth); diff != "" {
				t.Errorf("Authorization per call mismatch (-want +got):\n%s", diff)
			}
			if n := srv.Initializations(); n != 1 {
				t.Errorf("initialize handshakes = %d, want 1", n)
			}
		})
	}
}

func TestMCPToolsetCallToolErrors(t *testing.T) {
	srv := newWeatherServer(t)
	ts := runtime.NewMCPToolset("weather", runtime.StreamableHTTPConnectionParams{URL: srv.URL})

	_, err := ts.CallTool(t.Context(), &runtime.ToolContext{}, &runtime.FunctionCall{Name: "get_forecast"})
	if err == nil || !strings.Contains(err.Error(), "forecast backend down") {
		t.Errorf("failing tool error = %v, want the tool's message", err)
	}

	_, err = ts.CallTool(t.Context(), &runtime.ToolContext{}, &runtime.FunctionCall{Name: "get_tides"})
	var mcpErr *runtime.MCPError
	if !errors.As(err, &mcpErr) || mcpErr.Code != -32602 {
		t.Errorf("unknown tool error = %v, want an invalid params MCPError", err)
	}
}

func TestMCPToolsetReinitializesExpiredSession(t *testing.T) {
	srv := newWeatherServer(t)
	ts := runtime.NewMCPToolset("weather", runtime.StreamableHTTPConnectionParams{URL: srv.URL})
	call := &runtime.FunctionCall{Name: "get_weather", Args: map[string]any{"city": "Oslo"}}

	if _, err := ts.CallTool(t.Context(), &runtime.ToolContext{}, call); err != nil {
		t.Fatal(err)
	}
	srv.ExpireSessions()
	if _, err := ts.CallTool(t.Context(), &runtime.ToolContext{}, call); err != nil {
		t.Fatalf("CallTool() after session expiry error = %v", err)
	}
	if n := srv.Initializations(); n != 2 {
		t.Errorf("initialize handshakes = %d, want 2", n)
	}
	calls := srv.Calls()
	if len(calls) != 2 || calls[0].SessionID == calls[1].SessionID {
		t.Errorf("calls = %+v, want two calls on different sessions", calls)
	}
}

func TestRunnerExecutesToolCalls(t *testing.T) {
	srv := newWeatherServer(t)
	call := toolEvent("get_weather")
	call.Content.Parts[0].FunctionCall.Args = map[string]any{"city": "Rome"}
	r, sess := newRunner(t, modelOf(call, finalEvent("sunny")))
	r.Agent.Tools = []runtime.Tool{
		runtime.NewMCPToolset("weather_mcp", runtime.StreamableHTTPConnectionParams{URL: srv.URL}),
		runtime.PreloadMemoryTool{},
	}

	var responses []*runtime.FunctionResponse
	for ev, err := range r.Run(t.Context(), "alice", "s-1", runtime.NewUserContent("weather in Rome?")) {
		if err != nil {
			t.Fatal(err)
		}
		if ev.Content == nil {
			continue
		}
		for _, p := range ev.Content.Parts {
			if p.FunctionResponse != nil {
				responses = append(responses, p.FunctionResponse)
			}
		}
	}

	want := []*runtime.FunctionResponse{{Name: "get_weather", Response: map[string]any{"result": "sunny in Rome"}}}
	if diff := cmp.Diff(want, responses); diff != "" {
		t.Errorf("tool responses mismatch (-want +got):\n%s", diff)
	}
	if n := len(sess.Events()); n != 4 {
		t.Errorf("session has %d events, want 4", n)
	}
}
