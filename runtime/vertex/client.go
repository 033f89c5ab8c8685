// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package vertex talks to the Vertex AI Agent Engine session and Memory Bank
// REST APIs.
//
// All services of a Client share one authenticated *http.Client, built on
// first use and kept for the lifetime of the Client. Constructing a transport
// per call closes it under concurrent and repeated use.
package vertex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	"cloud.google.com/go/auth/httptransport"
	"github.com/go-json-experiment/json"
)

// CloudPlatformScope is the OAuth scope requested for Agent Engine calls.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// HTTPClientFactory builds the persistent HTTP client.
type HTTPClientFactory func(ctx context.Context) (*http.Client, error)

// DefaultHTTPClientFactory returns an *http.Client authorized with
// application default credentials.
func DefaultHTTPClientFactory(context.Context) (*http.Client, error) {
	return httptransport.NewClient(&httptransport.Options{
		DetectOpts: &credentials.DetectOptions{
			Scopes: []string{CloudPlatformScope},
		},
	})
}

// APIError is a non-2xx response from the Agent Engine API.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("agent engine: HTTP %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Client addresses one reasoning engine.
type Client struct {
	project       string
	location      string
	agentEngineID string
	endpoint      string
	factory       HTTPClientFactory
	logger        *slog.Logger

	mu sync.Mutex
	hc *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API base URL, e.g. for tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = strings.TrimSuffix(endpoint, "/") }
}

// WithHTTPClient makes the Client use hc instead of building one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.factory = func(context.Context) (*http.Client, error) { return hc, nil }
	}
}

// WithHTTPClientFactory sets the function building the persistent HTTP client.
func WithHTTPClientFactory(f HTTPClientFactory) Option {
	return func(c *Client) { c.factory = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a Client for the given reasoning engine.
func NewClient(project, location, agentEngineID string, opts ...Option) (*Client, error) {
	if project == "" || location == "" || agentEngineID == "" {
		return nil, errors.New("vertex: project, location and agent engine id are required")
	}
	c := &Client{
		project:       project,
		location:      location,
		agentEngineID: agentEngineID,
		endpoint:      fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1beta1", location),
		factory:       DefaultHTTPClientFactory,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// EngineName returns the resource name of the reasoning engine.
func (c *Client) EngineName() string {
	return fmt.Sprintf("projects/%s/locations/%s/reasoningEngines/%s", c.project, c.location, c.agentEngineID)
}

// SessionName returns the resource name of the session.
func (c *Client) SessionName(sessionID string) string {
	return c.EngineName() + "/sessions/" + sessionID
}

// httpClient returns the persistent HTTP client, building it on first use.
// A failed build is retried on the next call.
func (c *Client) httpClient(ctx context.Context) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hc != nil {
		return c.hc, nil
	}
	hc, err := c.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("build agent engine http client: %w", err)
	}
	c.hc = hc
	return hc, nil
}

// do sends a JSON request to path, relative to the API endpoint, and decodes
// the JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	hc, err := c.httpClient(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+"/"+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// operation is a long-running operation handle.
type operation struct {
	Name string `json:"name"`
	Done bool   `json:"done,omitzero"`
}
