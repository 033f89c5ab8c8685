// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package inmemory provides process-local session and memory services for
// running an agent without a remote backend.
package inmemory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-a2a/a2a-bridge/runtime"
)

type sessionKey struct {
	appName, userID, id string
}

// SessionService keeps sessions in a map. Sessions are lost on restart.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*runtime.Session
}

var _ runtime.SessionService = (*SessionService)(nil)

// NewSessionService returns an empty SessionService.
func NewSessionService() *SessionService {
	return &SessionService{sessions: make(map[sessionKey]*runtime.Session)}
}

// CreateSession implements runtime.SessionService.
func (s *SessionService) CreateSession(_ context.Context, appName, userID, sessionID string) (*runtime.Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	key := sessionKey{appName, userID, sessionID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; ok {
		return nil, fmt.Errorf("session %q already exists", sessionID)
	}
	sess := runtime.NewSession(appName, userID, sessionID)
	s.sessions[key] = sess
	return sess, nil
}

// GetSession implements runtime.SessionService.
func (s *SessionService) GetSession(_ context.Context, appName, userID, sessionID string) (*runtime.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionKey{appName, userID, sessionID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", runtime.ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

// AppendEvent implements runtime.SessionService.
func (s *SessionService) AppendEvent(_ context.Context, sess *runtime.Session, ev *runtime.Event) error {
	sess.Append(ev)
	return nil
}

// Len returns the number of stored sessions.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// MemoryService stores the text of finished sessions and answers searches by
// keyword overlap.
type MemoryService struct {
	mu       sync.RWMutex
	memories map[string][]runtime.MemoryEntry // keyed by app/user
	now      func() time.Time
}

var _ runtime.MemoryService = (*MemoryService)(nil)

// NewMemoryService returns an empty MemoryService.
func NewMemoryService() *MemoryService {
	return &MemoryService{
		memories: make(map[string][]runtime.MemoryEntry),
		now:      time.Now,
	}
}

func memoryKey(appName, userID string) string { return appName + "/" + userID }

// AddSessionToMemory implements runtime.MemoryService.
func (m *MemoryService) AddSessionToMemory(_ context.Context, sess *runtime.Session) error {
	var facts []runtime.MemoryEntry
	for _, ev := range sess.Events() {
		if text := ev.Text(); text != "" {
			facts = append(facts, runtime.MemoryEntry{Fact: text, UpdateTime: m.now().UTC()})
		}
	}
	if len(facts) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(sess.AppName, sess.UserID)
	m.memories[key] = append(m.memories[key], facts...)
	return nil
}

// SearchMemory implements runtime.MemoryService. A memory matches when it
// shares at least one word with query, ignoring case.
func (m *MemoryService) SearchMemory(_ context.Context, appName, userID, query string) ([]runtime.MemoryEntry, error) {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(query)) {
		words[w] = struct{}{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []runtime.MemoryEntry
	for _, entry := range m.memories[memoryKey(appName, userID)] {
		for _, w := range strings.Fields(strings.ToLower(entry.Fact)) {
			if _, ok := words[w]; ok {
				out = append(out, entry)
				break
			}
		}
	}
	return out, nil
}
