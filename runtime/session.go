// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound is returned by a SessionService for unknown sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session is a backend conversation handle and its event history.
type Session struct {
	ID      string
	AppName string
	UserID  string

	mu         sync.RWMutex
	events     []*Event
	lastUpdate time.Time
}

// NewSession returns an empty session.
func NewSession(appName, userID, id string) *Session {
	return &Session{
		ID:         id,
		AppName:    appName,
		UserID:     userID,
		lastUpdate: time.Now().UTC(),
	}
}

// Append adds ev to the session history.
func (s *Session) Append(ev *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	s.lastUpdate = ev.Timestamp
}

// Events returns a snapshot of the session history.
func (s *Session) Events() []*Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Event(nil), s.events...)
}

// LastUpdate returns the time of the most recent event.
func (s *Session) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// SessionService creates and persists sessions.
type SessionService interface {
	// CreateSession creates a session for userID. An empty sessionID lets the
	// backend assign one.
	CreateSession(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// GetSession loads a session. Returns ErrSessionNotFound if it does not exist.
	GetSession(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// AppendEvent records ev in s, both locally and in the backend.
	AppendEvent(ctx context.Context, s *Session, ev *Event) error
}

// MemoryEntry is a fact remembered about a user.
type MemoryEntry struct {
	Fact       string    `json:"fact"`
	UpdateTime time.Time `json:"updateTime,omitzero"`
}

// MemoryService turns finished sessions into long-term memories.
type MemoryService interface {
	// AddSessionToMemory schedules memory generation for s. It does not wait
	// for the backend to finish.
	AddSessionToMemory(ctx context.Context, s *Session) error

	// SearchMemory returns memories of userID relevant to query.
	SearchMemory(ctx context.Context, appName, userID, query string) ([]MemoryEntry, error)
}
