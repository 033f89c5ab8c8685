// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/go-cmp/cmp"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/bridge"
	"github.com/go-a2a/a2a-bridge/config"
	"github.com/go-a2a/a2a-bridge/credential"
	"github.com/go-a2a/a2a-bridge/runtime/mcptest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs([]string{"version"})
	if err := root.ExecuteContext(t.Context()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("a2a-bridge dev\n", out.String()); diff != "" {
		t.Errorf("version output mismatch (-want +got):\n%s", diff)
	}
}

func TestServeRequiresPersona(t *testing.T) {
	root := newRootCmd(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"serve"})
	err := root.ExecuteContext(t.Context())
	if err == nil || !strings.Contains(err.Error(), config.KeyPersonaFile) {
		t.Errorf("serve without persona error = %v, want mention of %s", err, config.KeyPersonaFile)
	}
}

func TestNewLogger(t *testing.T) {
	tests := map[string]struct {
		format, level string
		wantJSON      bool
		wantErr       bool
	}{
		"text":          {format: "text", level: "info"},
		"json":          {format: "json", level: "debug", wantJSON: true},
		"default":       {format: "", level: "warn"},
		"bad format":    {format: "xml", level: "info", wantErr: true},
		"bad level":     {format: "text", level: "loud", wantErr: true},
		"upper case ok": {format: "JSON", level: "ERROR", wantJSON: true},
	}
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(&buf, tt.format, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			logger.Error("hello")
			if got := strings.HasPrefix(buf.String(), "{"); got != tt.wantJSON {
				t.Errorf("output %q json = %t, want %t", buf.String(), got, tt.wantJSON)
			}
		})
	}
}

func TestPublicURL(t *testing.T) {
	tests := map[string]struct {
		cfg  config.Config
		want string
	}{
		"configured": {cfg: config.Config{PublicURL: "https://agent.example.com/", ListenAddr: ":8080"}, want: "https://agent.example.com/"},
		"port only":  {cfg: config.Config{ListenAddr: ":9000"}, want: "http://localhost:9000/"},
		"host":       {cfg: config.Config{ListenAddr: "127.0.0.1:9000"}, want: "http://127.0.0.1:9000/"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := publicURL(&tt.cfg); got != tt.want {
				t.Errorf("publicURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewCredentialSource(t *testing.T) {
	tests := map[string]struct {
		cfg    config.Config
		verify func(t *testing.T, src credential.Source)
	}{
		"adc": {
			cfg: config.Config{Credentials: config.CredentialsADC},
			verify: func(t *testing.T, src credential.Source) {
				if _, ok := src.(*credential.IDTokenSource); !ok {
					t.Errorf("source = %T, want *credential.IDTokenSource", src)
				}
			},
		},
		"none": {
			cfg: config.Config{Credentials: config.CredentialsNone},
			verify: func(t *testing.T, src credential.Source) {
				if _, err := src.Token(t.Context(), "aud"); !errors.Is(err, credential.ErrNoCredentials) {
					t.Errorf("Token() error = %v, want %v", err, credential.ErrNoCredentials)
				}
			},
		},
		"jwt secret": {
			cfg: config.Config{Credentials: config.CredentialsJWT, JWTSecret: "s3cret-s3cret-s3cret-s3cret-s3cr", JWTIssuer: "a2a-bridge"},
			verify: func(t *testing.T, src credential.Source) {
				tok, err := src.Token(t.Context(), "http://mcp")
				if err != nil || strings.Count(tok, ".") != 2 {
					t.Errorf("Token() = %q, %v, want a signed JWT", tok, err)
				}
			},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			src, err := newCredentialSource(&tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			tt.verify(t, src)
		})
	}
}

func TestNewBridgeOptionsRequiresModel(t *testing.T) {
	_, err := newBridgeOptions(&config.Config{}, discardLogger())
	var cfgErr *bridge.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Key != config.KeyScriptFile {
		t.Errorf("newBridgeOptions() error = %v, want *bridge.ConfigurationError for %s", err, config.KeyScriptFile)
	}
}

const testPersona = `name: weather_agent
description: Weather questions.
instruction: Answer weather questions.
mcp_url_env_var: TEST_WEATHER_MCP_URL
`

const testScenario = `name: sunny
loop: true
steps:
  - content: "Sunny, you asked: {query}"
    tool_calls:
      - name: get_current_weather
        args:
          city: Paris
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// newTestServer serves the scripted weather persona on sqlite stores.
func newTestServer(t *testing.T) (*httptest.Server, *databases) {
	t.Helper()
	mcp := mcptest.NewServer(map[string]mcptest.ToolFunc{"get_current_weather": mcptest.Text("sunny in Paris")})
	t.Cleanup(mcp.Close)
	t.Setenv("TEST_WEATHER_MCP_URL", mcp.URL)
	dir := t.TempDir()

	enabled := true
	cfg := &config.Config{
		ListenAddr:    ":0",
		SessionStore:  config.StoreSQLite,
		SessionDSN:    filepath.Join(dir, "bridge.db"),
		TaskStore:     config.StoreSQLite,
		TaskDSN:       filepath.Join(dir, "bridge.db"),
		Credentials:   config.CredentialsNone,
		RefreshBuffer: 300 * time.Second,
		PersonaFile:   writeFile(t, "persona.yaml", testPersona),
		ScriptFile:    writeFile(t, "scenario.yaml", testScenario),
		Telemetry:     &enabled,
	}

	tel, err := newTelemetry(cfg.Telemetry)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tel.shutdown(t.Context()) })
	dbs := &databases{}
	t.Cleanup(func() { dbs.Close() })

	h, err := newServer(t.Context(), cfg, discardLogger(), dbs, tel)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, dbs
}

func TestServerEndToEnd(t *testing.T) {
	srv, dbs := newTestServer(t)
	if got := len(dbs.open); got != 1 {
		t.Errorf("opened databases = %d, want 1 shared by both stores", got)
	}

	params, err := json.Marshal(&a2a.MessageSendParams{
		Message: a2a.NewUserTextMessage("user_id::alice::weather in Paris?", "ctx-1", ""),
	})
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(&a2a.JSONRPCRequest{
		JSONRPC: a2a.JSONRPCVersion,
		ID:      jsontext.Value(`1`),
		Method:  a2a.MethodMessageSend,
		Params:  params,
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Result *a2a.Task  `json:"result"`
		Error  *a2a.Error `json:"error"`
	}
	err = json.UnmarshalRead(resp.Body, &out)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if out.Error != nil {
		t.Fatalf("message/send error = %v", out.Error)
	}
	if out.Result.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("state = %s, want completed (status message %q)", out.Result.Status.State, out.Result.Status.Message.Text(""))
	}
	if len(out.Result.Artifacts) != 1 {
		t.Fatalf("artifacts = %d, want 1", len(out.Result.Artifacts))
	}
	answer := out.Result.Artifacts[0]
	if answer.Name != bridge.AnswerArtifactName || answer.Parts[0].Text != "Sunny, you asked: weather in Paris?" {
		t.Errorf("artifact = %s %q, want %s %q", answer.Name, answer.Parts[0].Text, bridge.AnswerArtifactName, "Sunny, you asked: weather in Paris?")
	}

	metrics, err := http.Get(srv.URL + metricsPath)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(metrics.Body)
	metrics.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "bridge_tasks") {
		t.Errorf("/metrics does not expose bridge_tasks:\n%s", data)
	}
}

func TestTelemetryDisabled(t *testing.T) {
	disabled := false
	tel, err := newTelemetry(&disabled)
	if err != nil {
		t.Fatal(err)
	}
	if tel.handler != nil {
		t.Error("disabled telemetry exposes a metrics handler")
	}
	if err := tel.shutdown(t.Context()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestSendCommand(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := map[string]struct {
		args []string
	}{
		"send":   {args: []string{"send", "--url", srv.URL, "--user", "alice", "weather", "in", "Paris?"}},
		"stream": {args: []string{"send", "--url", srv.URL, "--user", "alice", "--stream", "--context", "ctx-2", "weather in Paris?"}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var out, progress bytes.Buffer
			root := newRootCmd(&out)
			root.SetErr(&progress)
			root.SetArgs(tt.args)
			if err := root.ExecuteContext(t.Context()); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff("Sunny, you asked: weather in Paris?\n", out.String()); diff != "" {
				t.Errorf("send output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrintTaskFailed(t *testing.T) {
	tk := &a2a.Task{
		ID: "t1",
		Status: a2a.TaskStatus{
			State:   a2a.TaskStateFailed,
			Message: a2a.NewAgentTextMessage("Error: model unavailable", "c1", "t1"),
		},
	}
	err := printTask(io.Discard, tk)
	if !errors.Is(err, errTaskFailed) || !strings.Contains(err.Error(), "Error: model unavailable") {
		t.Errorf("printTask() error = %v, want %v carrying the status message", err, errTaskFailed)
	}
}
