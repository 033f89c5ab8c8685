// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
)

// Artifact is a named output produced by a task, distinct from its status messages.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitzero"`
	Description string         `json:"description,omitzero"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitzero"`
}

// NewArtifact creates an artifact with a generated ID.
func NewArtifact(name string, parts ...Part) *Artifact {
	return &Artifact{
		ArtifactID: NewID(),
		Name:       name,
		Parts:      parts,
	}
}

// NewTextArtifact creates an artifact containing a single text part.
func NewTextArtifact(name, text string) *Artifact {
	return NewArtifact(name, NewTextPart(text))
}

// Validate ensures the Artifact is valid.
func (a *Artifact) Validate() error {
	if a == nil {
		return errors.New("artifact cannot be nil")
	}
	if a.ArtifactID == "" {
		return errors.New("artifact ID cannot be empty")
	}
	if len(a.Parts) == 0 {
		return errors.New("artifact must contain at least one part")
	}
	for i, part := range a.Parts {
		if err := part.Validate(); err != nil {
			return fmt.Errorf("artifact part at index %d is invalid: %w", i, err)
		}
	}
	return nil
}
