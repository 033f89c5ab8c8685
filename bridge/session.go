// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/go-a2a/a2a-bridge/runtime"
)

// SessionStore maps a conversation context id to its backend session.
type SessionStore interface {
	// Get returns the session stored for contextID, if any.
	Get(ctx context.Context, contextID string) (*runtime.Session, bool, error)

	// Put stores s for contextID, replacing any previous entry.
	Put(ctx context.Context, contextID string, s *runtime.Session) error

	// PutIfAbsent stores s unless contextID already has a session. It returns
	// the stored session and whether s was the one stored.
	PutIfAbsent(ctx context.Context, contextID string, s *runtime.Session) (*runtime.Session, bool, error)
}

// MemoryStore is an unbounded in-process SessionStore. Entries are never
// evicted.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*runtime.Session
}

var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*runtime.Session)}
}

// Get implements SessionStore.
func (s *MemoryStore) Get(_ context.Context, contextID string) (*runtime.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[contextID]
	return sess, ok, nil
}

// Put implements SessionStore.
func (s *MemoryStore) Put(_ context.Context, contextID string, sess *runtime.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[contextID] = sess
	return nil
}

// PutIfAbsent implements SessionStore.
func (s *MemoryStore) PutIfAbsent(_ context.Context, contextID string, sess *runtime.Session) (*runtime.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[contextID]; ok {
		return existing, false, nil
	}
	s.sessions[contextID] = sess
	return sess, true, nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SessionRegistry resolves the backend session of a conversation, creating
// it at most once per context id.
type SessionRegistry struct {
	appName     string
	sessions    runtime.SessionService
	store       SessionStore
	contextAsID bool
	logger      *slog.Logger
	group       singleflight.Group
	onCreate    func(ctx context.Context)
}

// NewSessionRegistry returns a registry creating sessions through sessions
// and caching them in store. When contextAsID is set, new sessions reuse the
// context id as their session id; otherwise the backend assigns one.
func NewSessionRegistry(appName string, sessions runtime.SessionService, store SessionStore, contextAsID bool, logger *slog.Logger) *SessionRegistry {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		appName:     appName,
		sessions:    sessions,
		store:       store,
		contextAsID: contextAsID,
		logger:      logger,
	}
}

// GetOrCreate returns the session of contextID. A cached session is returned
// regardless of userID: the context alone identifies the conversation.
// Concurrent first uses of one context all receive the same session.
//
// Sessions keyed by context id live in the backend independently of the
// store. A context the store forgot adopts its existing backend session, and
// a stored session the backend lost is created again for its owner.
func (r *SessionRegistry) GetOrCreate(ctx context.Context, contextID, userID string) (*runtime.Session, error) {
	start := time.Now()
	sess, live, err := r.lookup(ctx, contextID)
	if err != nil {
		return nil, &SessionCreationError{ContextID: contextID, UserID: userID, Err: err}
	}
	if live {
		r.logger.InfoContext(ctx, "reusing session",
			slog.String("context_id", contextID), slog.String("session_id", sess.ID), slog.Duration("duration", time.Since(start)))
		return sess, nil
	}

	v, err, _ := r.group.Do(contextID, func() (any, error) {
		stale, live, err := r.lookup(ctx, contextID)
		if err != nil {
			return nil, err
		}
		if live {
			return stale, nil
		}

		owner := userID
		if stale != nil {
			owner = stale.UserID
		}
		opened, created, err := r.open(ctx, contextID, owner)
		if err != nil {
			return nil, err
		}
		if created && r.onCreate != nil {
			defer r.onCreate(ctx)
		}
		if stale != nil {
			return opened, r.store.Put(ctx, contextID, opened)
		}
		winner, _, err := r.store.PutIfAbsent(ctx, contextID, opened)
		return winner, err
	})
	if err != nil {
		return nil, &SessionCreationError{ContextID: contextID, UserID: userID, Err: err}
	}

	sess = v.(*runtime.Session)
	r.logger.InfoContext(ctx, "resolved new session",
		slog.String("context_id", contextID), slog.String("session_id", sess.ID),
		slog.String("user_id", userID), slog.Duration("duration", time.Since(start)))
	return sess, nil
}

// lookup returns the stored session of contextID and whether it can be used.
// A stored session that is not live is stale: the backend no longer holds it.
func (r *SessionRegistry) lookup(ctx context.Context, contextID string) (sess *runtime.Session, live bool, err error) {
	sess, ok, err := r.store.Get(ctx, contextID)
	if err != nil || !ok {
		return nil, false, err
	}
	if !r.contextAsID {
		return sess, true, nil
	}
	// Local sessions die with the process while a durable store keeps their
	// handles.
	_, err = r.sessions.GetSession(ctx, r.appName, sess.UserID, sess.ID)
	switch {
	case err == nil:
		return sess, true, nil
	case errors.Is(err, runtime.ErrSessionNotFound):
		r.logger.WarnContext(ctx, "stored session is gone from the backend",
			slog.String("context_id", contextID), slog.String("session_id", sess.ID))
		return sess, false, nil
	default:
		return nil, false, err
	}
}

// open returns a backend session for contextID and whether it was created.
func (r *SessionRegistry) open(ctx context.Context, contextID, userID string) (*runtime.Session, bool, error) {
	if !r.contextAsID {
		sess, err := r.sessions.CreateSession(ctx, r.appName, userID, "")
		return sess, err == nil, err
	}
	sess, err := r.sessions.GetSession(ctx, r.appName, userID, contextID)
	if err == nil {
		r.logger.InfoContext(ctx, "adopting existing session", slog.String("context_id", contextID))
		return sess, false, nil
	}
	if !errors.Is(err, runtime.ErrSessionNotFound) {
		return nil, false, err
	}
	sess, err = r.sessions.CreateSession(ctx, r.appName, userID, contextID)
	return sess, err == nil, err
}
