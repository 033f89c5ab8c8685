// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"testing"

	a2a "github.com/go-a2a/a2a-bridge"
)

func TestSimpleRequestContextBuilder(t *testing.T) {
	existing := &a2a.Task{ID: "task-stored", ContextID: "ctx-stored", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}

	tests := map[string]struct {
		message       *a2a.Message
		current       *a2a.Task
		wantTaskID    string
		wantContextID string
		wantGenerated bool
		wantErr       bool
	}{
		"ids from message": {
			message:       a2a.NewUserTextMessage("hi", "ctx-1", "task-1"),
			wantTaskID:    "task-1",
			wantContextID: "ctx-1",
		},
		"ids from current task": {
			message:       a2a.NewUserTextMessage("hi", "", ""),
			current:       existing,
			wantTaskID:    "task-stored",
			wantContextID: "ctx-stored",
		},
		"generated ids": {
			message:       a2a.NewUserTextMessage("hi", "", ""),
			wantGenerated: true,
		},
		"invalid message": {
			message: &a2a.Message{Role: a2a.RoleUser},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rc, err := SimpleRequestContextBuilder{}.Build(t.Context(), &a2a.MessageSendParams{Message: tt.message}, tt.current)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tt.wantGenerated {
				if rc.TaskID == "" || rc.ContextID == "" {
					t.Errorf("Build() ids = (%q, %q), want generated", rc.TaskID, rc.ContextID)
				}
			} else if rc.TaskID != tt.wantTaskID || rc.ContextID != tt.wantContextID {
				t.Errorf("Build() ids = (%q, %q), want (%q, %q)", rc.TaskID, rc.ContextID, tt.wantTaskID, tt.wantContextID)
			}
			if rc.CurrentTask != tt.current {
				t.Errorf("CurrentTask = %v, want %v", rc.CurrentTask, tt.current)
			}
		})
	}
}

func TestRequestContextGetUserInput(t *testing.T) {
	msg := &a2a.Message{
		Kind:      "message",
		MessageID: "m",
		Role:      a2a.RoleUser,
		Parts: []a2a.Part{
			a2a.NewTextPart("user_id::alice::first"),
			a2a.NewDataPart(map[string]any{"ignored": true}),
			a2a.NewTextPart("second"),
		},
	}
	rc := NewRequestContext("t", "c", msg)
	if got, want := rc.GetUserInput(), "user_id::alice::first\nsecond"; got != want {
		t.Errorf("GetUserInput() = %q, want %q", got, want)
	}
}
