// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package vertex

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-a2a/a2a-bridge/runtime"
)

// MemoryBankService generates and retrieves memories through Agent Engine
// Memory Bank, reusing the Client's persistent connection for every call.
type MemoryBankService struct {
	client *Client
}

var _ runtime.MemoryService = (*MemoryBankService)(nil)

// NewMemoryBankService returns a MemoryBankService using client.
func NewMemoryBankService(client *Client) *MemoryBankService {
	return &MemoryBankService{client: client}
}

type vertexSessionSource struct {
	Session string `json:"session"`
}

type generateMemoriesRequest struct {
	VertexSessionSource vertexSessionSource `json:"vertexSessionSource"`
}

// AddSessionToMemory implements runtime.MemoryService. Sessions without any
// text are skipped without contacting the backend. Otherwise one generate
// request is issued and the returned operation is not awaited.
func (m *MemoryBankService) AddSessionToMemory(ctx context.Context, sess *runtime.Session) error {
	textual := 0
	for _, ev := range sess.Events() {
		if ev.Text() != "" {
			textual++
		}
	}
	logger := m.client.logger.With(slog.String("session_id", sess.ID))
	if textual == 0 {
		logger.InfoContext(ctx, "no meaningful events for memory generation")
		return nil
	}

	req := &generateMemoriesRequest{
		VertexSessionSource: vertexSessionSource{Session: m.client.SessionName(sess.ID)},
	}
	var op operation
	if err := m.client.do(ctx, http.MethodPost, m.client.EngineName()+"/memories:generate", req, &op); err != nil {
		return fmt.Errorf("generate memories: %w", err)
	}
	logger.InfoContext(ctx, "memory generation started", slog.String("operation", op.Name), slog.Int("events", textual))
	return nil
}

type retrieveMemoriesRequest struct {
	Scope                  map[string]string      `json:"scope"`
	SimilaritySearchParams similaritySearchParams `json:"similaritySearchParams,omitzero"`
}

type similaritySearchParams struct {
	SearchQuery string `json:"searchQuery,omitzero"`
}

type retrieveMemoriesResponse struct {
	RetrievedMemories []struct {
		Memory struct {
			Fact       string    `json:"fact"`
			UpdateTime time.Time `json:"updateTime,omitzero"`
		} `json:"memory"`
	} `json:"retrievedMemories"`
}

// SearchMemory implements runtime.MemoryService.
func (m *MemoryBankService) SearchMemory(ctx context.Context, appName, userID, query string) ([]runtime.MemoryEntry, error) {
	req := &retrieveMemoriesRequest{
		Scope:                  map[string]string{"app_name": appName, "user_id": userID},
		SimilaritySearchParams: similaritySearchParams{SearchQuery: query},
	}
	var res retrieveMemoriesResponse
	if err := m.client.do(ctx, http.MethodPost, m.client.EngineName()+"/memories:retrieve", req, &res); err != nil {
		return nil, fmt.Errorf("retrieve memories: %w", err)
	}
	entries := make([]runtime.MemoryEntry, 0, len(res.RetrievedMemories))
	for _, rm := range res.RetrievedMemories {
		entries = append(entries, runtime.MemoryEntry{Fact: rm.Memory.Fact, UpdateTime: rm.Memory.UpdateTime})
	}
	return entries, nil
}
