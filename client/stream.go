// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/server/event"
)

// maxFrameSize bounds one SSE data line.
const maxFrameSize = 1 << 20

// SendMessageStream sends a message with message/stream and yields the task
// events as the agent publishes them. An error frame ends the sequence with
// its *a2a.Error.
func (c *Client) SendMessageStream(ctx context.Context, params *a2a.MessageSendParams) iter.Seq2[event.Event, error] {
	return func(yield func(event.Event, error) bool) {
		req, err := c.newRequest(ctx, a2a.MethodMessageStream, params)
		if err != nil {
			yield(nil, err)
			return
		}
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.do(req)
		if err != nil {
			yield(nil, err)
			return
		}
		defer resp.Body.Close()

		if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
			// the server answered with a plain JSON-RPC error
			var env envelope
			if err := json.UnmarshalRead(resp.Body, &env); err != nil {
				yield(nil, fmt.Errorf("decoding response: %w", err))
				return
			}
			if env.Error != nil {
				yield(nil, env.Error)
				return
			}
			yield(nil, fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type")))
			return
		}

		for data, err := range frames(resp.Body) {
			if err != nil {
				yield(nil, fmt.Errorf("reading stream: %w", err))
				return
			}
			ev, err := decodeFrame(data)
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// frames yields the data of each Server-Sent Event read from r.
func frames(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64<<10), maxFrameSize)

		var data []byte
		for sc.Scan() {
			line := sc.Bytes()
			if len(line) == 0 {
				if len(data) > 0 && !yield(data, nil) {
					return
				}
				data = nil
				continue
			}
			if v, ok := bytes.CutPrefix(line, []byte("data:")); ok {
				data = append(data, bytes.TrimSpace(v)...)
			}
		}
		if err := sc.Err(); err != nil {
			yield(nil, err)
			return
		}
		if len(data) > 0 {
			yield(data, nil)
		}
	}
}

// decodeFrame decodes one JSON-RPC response frame into its event.
func decodeFrame(data []byte) (event.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	if env.Error != nil {
		return nil, env.Error
	}

	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(env.Result, &head); err != nil {
		return nil, fmt.Errorf("decoding event kind: %w", err)
	}

	var ev event.Event
	switch head.Kind {
	case event.KindStatusUpdate:
		ev = new(event.TaskStatusUpdateEvent)
	case event.KindArtifactUpdate:
		ev = new(event.TaskArtifactUpdateEvent)
	case event.KindTask:
		ev = new(event.TaskEvent)
	case event.KindMessage:
		ev = new(event.MessageEvent)
	default:
		return nil, fmt.Errorf("unknown event kind %q", head.Kind)
	}
	if err := json.Unmarshal(env.Result, ev); err != nil {
		return nil, fmt.Errorf("decoding %s event: %w", head.Kind, err)
	}
	return ev, nil
}
