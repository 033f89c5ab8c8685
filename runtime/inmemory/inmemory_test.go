// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package inmemory

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/a2a-bridge/runtime"
)

func TestSessionService(t *testing.T) {
	ctx := t.Context()
	svc := NewSessionService()

	generated, err := svc.CreateSession(ctx, "app", "alice", "")
	if err != nil {
		t.Fatal(err)
	}
	if generated.ID == "" {
		t.Fatal("CreateSession() assigned no id")
	}
	named, err := svc.CreateSession(ctx, "app", "alice", "ctx-1")
	if err != nil {
		t.Fatal(err)
	}
	if named.ID != "ctx-1" {
		t.Errorf("session id = %q, want %q", named.ID, "ctx-1")
	}
	if _, err := svc.CreateSession(ctx, "app", "alice", "ctx-1"); err == nil {
		t.Error("CreateSession() with a duplicate id succeeded")
	}

	got, err := svc.GetSession(ctx, "app", "alice", "ctx-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != named {
		t.Error("GetSession() returned a different session")
	}
	if _, err := svc.GetSession(ctx, "app", "bob", "ctx-1"); !errors.Is(err, runtime.ErrSessionNotFound) {
		t.Errorf("GetSession() for another user error = %v, want ErrSessionNotFound", err)
	}

	if err := svc.AppendEvent(ctx, got, runtime.NewEvent("user", runtime.NewUserContent("hi"))); err != nil {
		t.Fatal(err)
	}
	if n := len(named.Events()); n != 1 {
		t.Errorf("session has %d events, want 1", n)
	}
	if svc.Len() != 2 {
		t.Errorf("Len() = %d, want 2", svc.Len())
	}
}

func TestMemoryService(t *testing.T) {
	ctx := t.Context()
	mem := NewMemoryService()

	empty := runtime.NewSession("app", "alice", "s-0")
	empty.Append(runtime.NewEvent("model", &runtime.Content{Role: runtime.RoleModel}))
	if err := mem.AddSessionToMemory(ctx, empty); err != nil {
		t.Fatal(err)
	}

	sess := runtime.NewSession("app", "alice", "s-1")
	sess.Append(runtime.NewEvent("user", runtime.NewUserContent("My favourite drink is a Negroni")))
	sess.Append(runtime.NewEvent("model", runtime.NewModelContent("Noted")))
	if err := mem.AddSessionToMemory(ctx, sess); err != nil {
		t.Fatal(err)
	}

	tests := map[string]struct {
		user  string
		query string
		want  []string
	}{
		"match":        {user: "alice", query: "which drink", want: []string{"My favourite drink is a Negroni"}},
		"case folded":  {user: "alice", query: "NOTED", want: []string{"Noted"}},
		"no match":     {user: "alice", query: "weather"},
		"another user": {user: "bob", query: "drink"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			entries, err := mem.SearchMemory(ctx, "app", tt.user, tt.query)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, e := range entries {
				got = append(got, e.Fact)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SearchMemory() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
