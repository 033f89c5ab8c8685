// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionstore provides bounded and durable bridge.SessionStore
// implementations.
package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/go-a2a/a2a-bridge/bridge"
	"github.com/go-a2a/a2a-bridge/runtime"
)

// Defaults for NewLRUStore.
const (
	DefaultCapacity = 10_000
	DefaultTTL      = 24 * time.Hour
)

// LRUStore keeps at most a fixed number of mappings and forgets those unused
// for longer than the TTL. The registry resolves a forgotten context again on
// its next task: a local backend hands back the session keyed by the context
// id, a remote one starts a new session.
type LRUStore struct {
	// mu makes PutIfAbsent atomic; the cache is safe on its own otherwise.
	mu    sync.Mutex
	cache *expirable.LRU[string, *runtime.Session]
}

var _ bridge.SessionStore = (*LRUStore)(nil)

// NewLRUStore returns an LRUStore. Non-positive arguments select the defaults.
func NewLRUStore(capacity int, ttl time.Duration) *LRUStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRUStore{cache: expirable.NewLRU[string, *runtime.Session](capacity, nil, ttl)}
}

// Get implements bridge.SessionStore.
func (s *LRUStore) Get(_ context.Context, contextID string) (*runtime.Session, bool, error) {
	sess, ok := s.cache.Get(contextID)
	return sess, ok, nil
}

// Put implements bridge.SessionStore.
func (s *LRUStore) Put(_ context.Context, contextID string, sess *runtime.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(contextID, sess)
	return nil
}

// PutIfAbsent implements bridge.SessionStore.
func (s *LRUStore) PutIfAbsent(_ context.Context, contextID string, sess *runtime.Session) (*runtime.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache.Get(contextID); ok {
		return existing, false, nil
	}
	s.cache.Add(contextID, sess)
	return sess, true, nil
}

// Len returns the number of live mappings.
func (s *LRUStore) Len() int { return s.cache.Len() }
