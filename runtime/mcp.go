// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// MCPProtocolVersion is the MCP revision negotiated over streamable HTTP.
const MCPProtocolVersion = "2025-06-18"

// MCPSessionHeader carries the session id assigned by an MCP server.
const MCPSessionHeader = "Mcp-Session-Id"

// errMCPSessionExpired reports that the server no longer knows our session.
var errMCPSessionExpired = errors.New("mcp: session expired")

// MCPError is a JSON-RPC error returned by an MCP server.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements error.
func (e *MCPError) Error() string {
	return fmt.Sprintf("mcp: error %d: %s", e.Code, e.Message)
}

// MCPContent is one content block of a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitzero"`
}

// MCPToolResult is the result of a tools/call request.
type MCPToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitzero"`
}

// Text joins the text blocks of r with newlines.
func (r *MCPToolResult) Text() string {
	var texts []string
	for _, c := range r.Content {
		if c.Type == "text" && c.Text != "" {
			texts = append(texts, c.Text)
		}
	}
	return strings.Join(texts, "\n")
}

type mcpRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitzero"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitzero"`
}

type mcpResponse struct {
	ID     jsontext.Value `json:"id,omitzero"`
	Result jsontext.Value `json:"result,omitzero"`
	Error  *MCPError      `json:"error,omitzero"`
}

// CallTool implements ToolCaller. It sends call as an MCP tools/call request,
// running the initialize handshake first when the toolset has no session. A
// session the server has dropped is re-initialized once.
func (t *MCPToolset) CallTool(ctx context.Context, _ *ToolContext, call *FunctionCall) (map[string]any, error) {
	res, err := t.callTool(ctx, call)
	if errors.Is(err, errMCPSessionExpired) {
		res, err = t.callTool(ctx, call)
	}
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, fmt.Errorf("mcp tool %s: %s", call.Name, res.Text())
	}
	return map[string]any{"result": res.Text()}, nil
}

func (t *MCPToolset) callTool(ctx context.Context, call *FunctionCall) (*MCPToolResult, error) {
	sid, err := t.session(ctx)
	if err != nil {
		return nil, err
	}
	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	resp, _, err := t.post(ctx, sid, &mcpRequest{
		JSONRPC: "2.0",
		ID:      t.nextID.Add(1),
		Method:  "tools/call",
		Params:  map[string]any{"name": call.Name, "arguments": args},
	})
	if errors.Is(err, errMCPSessionExpired) {
		t.resetSession(sid)
	}
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	var res MCPToolResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		return nil, fmt.Errorf("mcp: decode tools/call result: %w", err)
	}
	return &res, nil
}

// session returns the MCP session id, initializing the connection on first use.
// Servers without sessions yield an empty id.
func (t *MCPToolset) session(ctx context.Context) (string, error) {
	t.sessMu.Lock()
	defer t.sessMu.Unlock()
	if t.initialized {
		return t.sessionID, nil
	}

	resp, sid, err := t.post(ctx, "", &mcpRequest{
		JSONRPC: "2.0",
		ID:      t.nextID.Add(1),
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": MCPProtocolVersion,
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "a2a-bridge", "version": "1.0.0"},
		},
	})
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("mcp: initialize: %w", resp.Error)
	}
	if _, _, err := t.post(ctx, sid, &mcpRequest{JSONRPC: "2.0", Method: "notifications/initialized"}); err != nil {
		return "", err
	}
	t.initialized, t.sessionID = true, sid
	return sid, nil
}

func (t *MCPToolset) resetSession(sid string) {
	t.sessMu.Lock()
	defer t.sessMu.Unlock()
	if t.sessionID == sid {
		t.initialized, t.sessionID = false, ""
	}
}

// post sends msg and returns its response along with the session id the
// server assigned. Notifications have no response.
func (t *MCPToolset) post(ctx context.Context, sid string, msg *mcpRequest) (*mcpResponse, string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, "", fmt.Errorf("mcp: encode %s: %w", msg.Method, err)
	}
	params := t.ConnectionParams()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, params.URL, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("mcp: %s: %w", msg.Method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set("MCP-Protocol-Version", MCPProtocolVersion)
	if sid != "" {
		req.Header.Set(MCPSessionHeader, sid)
	}
	for k, v := range params.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("mcp: %s: %w", msg.Method, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound && sid != "":
		return nil, "", errMCPSessionExpired
	case resp.StatusCode == http.StatusAccepted && msg.ID == 0:
		return nil, sid, nil
	case resp.StatusCode != http.StatusOK:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, "", fmt.Errorf("mcp: %s: server returned %s: %s", msg.Method, resp.Status, bytes.TrimSpace(data))
	}
	if newSID := resp.Header.Get(MCPSessionHeader); newSID != "" {
		sid = newSID
	}
	if msg.ID == 0 {
		return nil, sid, nil
	}

	out, err := readMCPResponse(resp, msg.ID)
	if err != nil {
		return nil, "", fmt.Errorf("mcp: %s: %w", msg.Method, err)
	}
	return out, sid, nil
}

// readMCPResponse decodes the response to request id from a JSON body or
// from the first matching message of an event stream.
func readMCPResponse(resp *http.Response, id int64) (*mcpResponse, error) {
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		var out mcpResponse
		if err := json.UnmarshalRead(resp.Body, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &out, nil
	}

	want := strconv.FormatInt(id, 10)
	match := func(data []byte) (*mcpResponse, bool) {
		var out mcpResponse
		if json.Unmarshal(data, &out) != nil {
			return nil, false
		}
		got := strings.Trim(string(out.ID), `"`)
		return &out, got == want && (out.Result != nil || out.Error != nil)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	var data []byte
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			if out, ok := match(data); ok {
				return out, nil
			}
			data = data[:0]
			continue
		}
		if v, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			data = append(data, bytes.TrimSpace(v)...)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	if out, ok := match(data); ok {
		return out, nil
	}
	return nil, errors.New("event stream ended without a response")
}
