// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package client calls A2A agents over JSON-RPC on HTTP.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/a2a-bridge"
)

// Client is a JSON-RPC client of one A2A agent.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	headerFunc func(ctx context.Context) map[string]string

	nextID atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the *http.Client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithHeaderFunc sets a function evaluated on every request whose headers
// are added to it, e.g. to attach a bearer token that rotates.
func WithHeaderFunc(f func(ctx context.Context) map[string]string) Option {
	return func(c *Client) {
		c.headerFunc = f
	}
}

// New returns a Client for the agent served at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AgentCard fetches the agent card from the well-known path.
func (c *Client) AgentCard(ctx context.Context) (*a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/.well-known/agent.json", http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	var card a2a.AgentCard
	if err := json.UnmarshalRead(resp.Body, &card); err != nil {
		return nil, fmt.Errorf("decode agent card: %w", err)
	}
	return &card, nil
}

// SendMessage sends a message and returns the task it produced.
func (c *Client) SendMessage(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error) {
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodMessageSend, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask fetches a task.
func (c *Client) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodTasksGet, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CancelTask asks the agent to cancel a task.
func (c *Client) CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodTasksCancel, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// envelope is a JSON-RPC response with the result left undecoded.
type envelope struct {
	Result jsontext.Value `json:"result"`
	Error  *a2a.Error     `json:"error"`
}

// call performs one JSON-RPC request. A JSON-RPC error is returned as *a2a.Error.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	req, err := c.newRequest(ctx, method, params)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.UnmarshalRead(resp.Body, &env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if env.Error != nil {
		return env.Error
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, params any) (*http.Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling params: %w", err)
	}
	data, err := sonic.ConfigFastest.Marshal(&a2a.JSONRPCRequest{
		JSONRPC: a2a.JSONRPCVersion,
		ID:      jsontext.Value(strconv.FormatInt(c.nextID.Add(1), 10)),
		Method:  method,
		Params:  raw,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req with the configured headers and rejects non-200 responses.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.headerFunc != nil {
		for k, v := range c.headerFunc(req.Context()) {
			req.Header.Set(k, v)
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending HTTP request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("server returned non-OK status: %s, body: %s", resp.Status, bytes.TrimSpace(body))
	}
	return resp, nil
}
