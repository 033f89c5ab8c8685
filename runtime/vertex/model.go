// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package vertex

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"github.com/go-a2a/a2a-bridge/runtime"
)

// Model generates responses with a Gemini model served by Vertex AI,
// over the Client's persistent connection. Tool declarations are not sent,
// so every turn ends with a single text response.
type Model struct {
	client *Client
}

var _ runtime.Model = (*Model)(nil)

// NewModel returns a Model using client.
func NewModel(client *Client) *Model {
	return &Model{client: client}
}

type generateContentRequest struct {
	Contents          []*runtime.Content `json:"contents"`
	SystemInstruction *runtime.Content   `json:"systemInstruction,omitzero"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      *runtime.Content `json:"content"`
		FinishReason string           `json:"finishReason,omitzero"`
	} `json:"candidates"`
}

// Generate implements runtime.Model.
func (m *Model) Generate(ctx context.Context, req *runtime.Request) iter.Seq2[*runtime.Event, error] {
	return func(yield func(*runtime.Event, error) bool) {
		if req.Model == "" {
			yield(nil, errors.New("vertex: model name is required"))
			return
		}

		body := &generateContentRequest{Contents: req.Contents}
		if instruction := systemInstruction(req); instruction != "" {
			body.SystemInstruction = &runtime.Content{Role: runtime.RoleUser, Parts: []runtime.Part{{Text: instruction}}}
		}

		path := fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s:generateContent", m.client.project, m.client.location, req.Model)
		var resp generateContentResponse
		if err := m.client.do(ctx, http.MethodPost, path, body, &resp); err != nil {
			yield(nil, fmt.Errorf("generate content: %w", err))
			return
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			yield(nil, errors.New("generate content: no candidates returned"))
			return
		}

		content := resp.Candidates[0].Content
		content.Role = runtime.RoleModel
		ev := runtime.NewEvent("", content)
		ev.Final = true
		yield(ev, nil)
	}
}

// systemInstruction appends the preloaded memories to the agent instruction.
func systemInstruction(req *runtime.Request) string {
	if len(req.Memories) == 0 {
		return req.Instruction
	}
	var b strings.Builder
	b.WriteString(req.Instruction)
	b.WriteString("\n\nThe following facts are known about the user:\n")
	for _, mem := range req.Memories {
		b.WriteString("* ")
		b.WriteString(mem.Fact)
		b.WriteByte('\n')
	}
	return b.String()
}
