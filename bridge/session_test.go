// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-a2a/a2a-bridge/runtime"
	"github.com/go-a2a/a2a-bridge/runtime/inmemory"
)

// countingSessions counts CreateSession calls and can delay them so that
// concurrent callers overlap.
type countingSessions struct {
	*inmemory.SessionService
	creates atomic.Int32
	delay   time.Duration
	err     error
}

func newCountingSessions() *countingSessions {
	return &countingSessions{SessionService: inmemory.NewSessionService()}
}

func (s *countingSessions) CreateSession(ctx context.Context, appName, userID, sessionID string) (*runtime.Session, error) {
	s.creates.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.SessionService.CreateSession(ctx, appName, userID, sessionID)
}

func TestSessionRegistryGetOrCreate(t *testing.T) {
	ctx := t.Context()
	sessions := newCountingSessions()
	r := NewSessionRegistry("app", sessions, nil, false, discardLogger)

	first, err := r.GetOrCreate(ctx, "ctx-1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	again, err := r.GetOrCreate(ctx, "ctx-1", "mallory")
	if err != nil {
		t.Fatal(err)
	}
	if first != again {
		t.Error("same context resolved to different sessions")
	}
	if again.UserID != "alice" {
		t.Errorf("cached session user = %q, want the creating user", again.UserID)
	}

	other, err := r.GetOrCreate(ctx, "ctx-2", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == first.ID {
		t.Error("distinct contexts share a session id")
	}
	if got := sessions.creates.Load(); got != 2 {
		t.Errorf("CreateSession called %d times, want 2", got)
	}
}

func TestSessionRegistryContextAsID(t *testing.T) {
	r := NewSessionRegistry("app", inmemory.NewSessionService(), nil, true, discardLogger)
	sess, err := r.GetOrCreate(t.Context(), "ctx-1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID != "ctx-1" {
		t.Errorf("session id = %q, want the context id", sess.ID)
	}
}

func TestSessionRegistryConcurrentFirstUse(t *testing.T) {
	sessions := newCountingSessions()
	sessions.delay = 20 * time.Millisecond
	r := NewSessionRegistry("app", sessions, NewMemoryStore(), false, discardLogger)

	const callers = 16
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{})
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := r.GetOrCreate(t.Context(), "ctx-1", "alice")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			ids[sess.ID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != 1 {
		t.Errorf("concurrent callers received %d sessions, want 1", len(ids))
	}
	if got := sessions.creates.Load(); got != 1 {
		t.Errorf("CreateSession called %d times, want 1", got)
	}
}

func TestSessionRegistryCreateError(t *testing.T) {
	sessions := newCountingSessions()
	sessions.err = errors.New("backend unavailable")
	r := NewSessionRegistry("app", sessions, nil, false, discardLogger)

	_, err := r.GetOrCreate(t.Context(), "ctx-1", "alice")
	var serr *SessionCreationError
	if !errors.As(err, &serr) {
		t.Fatalf("GetOrCreate() error = %v, want SessionCreationError", err)
	}
	if serr.ContextID != "ctx-1" || !errors.Is(err, sessions.err) {
		t.Errorf("unexpected error %v", err)
	}
}

func TestMemoryStorePutIfAbsent(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore()
	a := runtime.NewSession("app", "u", "a")
	b := runtime.NewSession("app", "u", "b")

	got, stored, err := s.PutIfAbsent(ctx, "ctx", a)
	if err != nil || !stored || got != a {
		t.Fatalf("first PutIfAbsent() = %v, %v, %v", got, stored, err)
	}
	got, stored, err = s.PutIfAbsent(ctx, "ctx", b)
	if err != nil || stored || got != a {
		t.Errorf("second PutIfAbsent() = %v, %v, %v, want the first session", got, stored, err)
	}
	if err := s.Put(ctx, "ctx", b); err != nil {
		t.Fatal(err)
	}
	if got, ok, _ := s.Get(ctx, "ctx"); !ok || got != b {
		t.Error("Put() did not replace the session")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSessionRegistryLocalSessionOutlivesStore(t *testing.T) {
	ctx := t.Context()
	sessions := newCountingSessions()
	store := NewMemoryStore()
	r := NewSessionRegistry("app", sessions, store, true, discardLogger)

	first, err := r.GetOrCreate(ctx, "ctx-1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	// the store forgets the context, as a bounded store does on eviction
	delete(store.sessions, "ctx-1")

	again, err := r.GetOrCreate(ctx, "ctx-1", "alice")
	if err != nil {
		t.Fatalf("GetOrCreate() after eviction error = %v", err)
	}
	if again != first {
		t.Error("evicted context did not adopt its existing session")
	}
	if got := sessions.creates.Load(); got != 1 {
		t.Errorf("CreateSession called %d times, want 1", got)
	}
	if _, ok, _ := store.Get(ctx, "ctx-1"); !ok {
		t.Error("adopted session was not stored again")
	}
}

func TestSessionRegistryRecreatesLostSession(t *testing.T) {
	ctx := t.Context()
	store := NewMemoryStore()
	before := NewSessionRegistry("app", inmemory.NewSessionService(), store, true, discardLogger)
	if _, err := before.GetOrCreate(ctx, "ctx-1", "alice"); err != nil {
		t.Fatal(err)
	}

	// a restart loses local sessions while the store keeps its handles
	sessions := newCountingSessions()
	after := NewSessionRegistry("app", sessions, store, true, discardLogger)
	sess, err := after.GetOrCreate(ctx, "ctx-1", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID != "ctx-1" || sess.UserID != "alice" {
		t.Errorf("session = %s owned by %s, want ctx-1 owned by alice", sess.ID, sess.UserID)
	}
	if _, err := sessions.GetSession(ctx, "app", "alice", "ctx-1"); err != nil {
		t.Errorf("backend does not hold the recreated session: %v", err)
	}
	if stored, _, _ := store.Get(ctx, "ctx-1"); stored != sess {
		t.Error("store still holds the lost session")
	}
	if got := sessions.creates.Load(); got != 1 {
		t.Errorf("CreateSession called %d times, want 1", got)
	}
}
