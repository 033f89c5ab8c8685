// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
	"strings"
)

// Role represents the role of a message sender.
type Role string

// Role constants for message senders.
const (
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// PartKind discriminates the content carried by a Part.
type PartKind string

// Part kinds.
const (
	PartKindText PartKind = "text"
	PartKindData PartKind = "data"
	PartKindFile PartKind = "file"
)

// FileContent is a file referenced by URI or carried inline.
type FileContent struct {
	Name     string `json:"name,omitzero"`
	MIMEType string `json:"mimeType,omitzero"`
	URI      string `json:"uri,omitzero"`
	Bytes    []byte `json:"bytes,omitzero"`
}

// Part is one segment of a message or artifact.
type Part struct {
	Kind     PartKind       `json:"kind"`
	Text     string         `json:"text,omitzero"`
	Data     map[string]any `json:"data,omitzero"`
	File     *FileContent   `json:"file,omitzero"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewTextPart returns a text part.
func NewTextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

// NewDataPart returns a structured data part.
func NewDataPart(data map[string]any) Part {
	return Part{Kind: PartKindData, Data: data}
}

// Validate ensures the Part is consistent with its kind.
func (p Part) Validate() error {
	switch p.Kind {
	case PartKindText:
		return nil
	case PartKindData:
		if p.Data == nil {
			return errors.New("data part data cannot be nil")
		}
		return nil
	case PartKindFile:
		if p.File == nil {
			return errors.New("file part file cannot be nil")
		}
		if p.File.URI == "" && len(p.File.Bytes) == 0 {
			return errors.New("file part must carry a uri or bytes")
		}
		return nil
	default:
		return fmt.Errorf("unknown part kind %q", p.Kind)
	}
}

// Message is a single communication turn between a user and an agent.
type Message struct {
	Kind      string         `json:"kind"`
	MessageID string         `json:"messageId"`
	Role      Role           `json:"role"`
	Parts     []Part         `json:"parts"`
	TaskID    string         `json:"taskId,omitzero"`
	ContextID string         `json:"contextId,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Message is valid.
func (m *Message) Validate() error {
	if m == nil {
		return errors.New("message cannot be nil")
	}
	if m.Role != RoleAgent && m.Role != RoleUser {
		return fmt.Errorf("invalid message role: %q", m.Role)
	}
	if m.MessageID == "" {
		return errors.New("message ID cannot be empty")
	}
	if len(m.Parts) == 0 {
		return errors.New("message must contain at least one part")
	}
	for i, part := range m.Parts {
		if err := part.Validate(); err != nil {
			return fmt.Errorf("message part at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// Text joins the text parts of m with delimiter.
func (m *Message) Text(delimiter string) string {
	if m == nil {
		return ""
	}
	var texts []string
	for _, part := range m.Parts {
		if part.Kind == PartKindText {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, delimiter)
}

// NewAgentTextMessage creates an agent message containing a single text part.
func NewAgentTextMessage(text, contextID, taskID string) *Message {
	return &Message{
		Kind:      "message",
		MessageID: NewID(),
		Role:      RoleAgent,
		Parts:     []Part{NewTextPart(text)},
		TaskID:    taskID,
		ContextID: contextID,
	}
}

// NewUserTextMessage creates a user message containing a single text part.
func NewUserTextMessage(text, contextID, taskID string) *Message {
	m := NewAgentTextMessage(text, contextID, taskID)
	m.Role = RoleUser
	return m
}
