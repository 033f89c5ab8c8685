// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package vertex

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/a2a-bridge/runtime"
)

func TestModelGenerate(t *testing.T) {
	c, rec, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"It is"},{"text":"sunny"}]},"finishReason":"STOP"}]}`))
	})

	req := &runtime.Request{
		Model:       "gemini-2.5-flash",
		Instruction: "You answer weather questions.",
		Contents:    []*runtime.Content{runtime.NewUserContent("weather in Paris?")},
		Memories:    []runtime.MemoryEntry{{Fact: "lives in Paris"}},
	}
	var events []*runtime.Event
	for ev, err := range NewModel(c).Generate(t.Context(), req) {
		if err != nil {
			t.Fatal(err)
		}
		events = append(events, ev)
	}

	if len(events) != 1 || !events[0].IsFinalResponse() {
		t.Fatalf("events = %+v, want one final event", events)
	}
	if diff := cmp.Diff("It is sunny", events[0].Text()); diff != "" {
		t.Errorf("Text() mismatch (-want +got):\n%s", diff)
	}

	want := []string{"POST /projects/p/locations/us-central1/publishers/google/models/gemini-2.5-flash:generateContent"}
	if diff := cmp.Diff(want, rec.requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
	for _, fragment := range []string{`"systemInstruction"`, `lives in Paris`, `weather in Paris?`} {
		if !strings.Contains(rec.bodies[0], fragment) {
			t.Errorf("request body %s does not contain %s", rec.bodies[0], fragment)
		}
	}
}

func TestModelGenerateErrors(t *testing.T) {
	tests := map[string]struct {
		model   string
		status  int
		body    string
		wantErr string
	}{
		"missing model": {
			wantErr: "model name is required",
		},
		"api error": {
			model:   "gemini-2.5-flash",
			status:  http.StatusTooManyRequests,
			body:    `{"error":"quota"}`,
			wantErr: "HTTP 429",
		},
		"no candidates": {
			model:   "gemini-2.5-flash",
			status:  http.StatusOK,
			body:    `{"candidates":[]}`,
			wantErr: "no candidates",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			req := &runtime.Request{Model: tt.model, Contents: []*runtime.Content{runtime.NewUserContent("hi")}}
			var gotErr error
			for _, err := range NewModel(c).Generate(t.Context(), req) {
				gotErr = err
			}
			if gotErr == nil || !strings.Contains(gotErr.Error(), tt.wantErr) {
				t.Errorf("Generate() error = %v, want containing %q", gotErr, tt.wantErr)
			}
		})
	}
}
