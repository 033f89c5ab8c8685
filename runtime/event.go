// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Content roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	ID   string         `json:"id,omitzero" yaml:"id,omitempty"`
	Name string         `json:"name" yaml:"name"`
	Args map[string]any `json:"args,omitzero" yaml:"args,omitempty"`
}

// FunctionResponse is the result of a FunctionCall.
type FunctionResponse struct {
	ID       string         `json:"id,omitzero"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitzero"`
}

// Part is one segment of a Content. An empty Text means the part carries no text.
type Part struct {
	Text             string            `json:"text,omitzero"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitzero"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitzero"`
}

// Content is a role-tagged list of parts.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserContent returns user content holding a single text part.
func NewUserContent(text string) *Content {
	return &Content{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// NewModelContent returns model content holding a single text part.
func NewModelContent(text string) *Content {
	return &Content{Role: RoleModel, Parts: []Part{{Text: text}}}
}

// Texts returns the non-empty text parts of c.
func (c *Content) Texts() []string {
	if c == nil {
		return nil
	}
	var texts []string
	for _, p := range c.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return texts
}

// Event is one item of the runtime's output stream.
type Event struct {
	ID           string    `json:"id"`
	InvocationID string    `json:"invocationId,omitzero"`
	Author       string    `json:"author"`
	Content      *Content  `json:"content,omitzero"`
	Final        bool      `json:"final,omitzero"`
	Partial      bool      `json:"partial,omitzero"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewEvent returns an event with a fresh ID and timestamp.
func NewEvent(author string, content *Content) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Author:    author,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// IsFinalResponse reports whether ev is the agent's final response for the turn.
// Partial chunks and events that still request tool calls are never final.
func (ev *Event) IsFinalResponse() bool {
	if ev == nil || !ev.Final || ev.Partial {
		return false
	}
	return !ev.HasFunctionCalls()
}

// HasFunctionCalls reports whether ev requests at least one tool call.
func (ev *Event) HasFunctionCalls() bool {
	if ev == nil || ev.Content == nil {
		return false
	}
	for _, p := range ev.Content.Parts {
		if p.FunctionCall != nil {
			return true
		}
	}
	return false
}

// Text joins the non-empty text parts of ev with a single space.
func (ev *Event) Text() string {
	if ev == nil {
		return ""
	}
	return strings.Join(ev.Content.Texts(), " ")
}
