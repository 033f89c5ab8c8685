// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/a2a-bridge/runtime"
)

func stream(events ...*runtime.Event) iter.Seq2[*runtime.Event, error] {
	return func(yield func(*runtime.Event, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func final(texts ...string) *runtime.Event {
	c := &runtime.Content{Role: runtime.RoleModel}
	for _, text := range texts {
		c.Parts = append(c.Parts, runtime.Part{Text: text})
	}
	ev := runtime.NewEvent("agent", c)
	ev.Final = true
	return ev
}

func intermediate(text string) *runtime.Event {
	return runtime.NewEvent("agent", runtime.NewModelContent(text))
}

func TestEventTranslatorTranslate(t *testing.T) {
	tests := map[string]struct {
		translator EventTranslator
		query      string
		events     []*runtime.Event
		want       TranslateResult
		answers    []string
	}{
		"single final": {
			events:  []*runtime.Event{intermediate("thinking"), final("It is", "", "sunny")},
			want:    TranslateResult{Answer: "It is sunny", Events: 2, Finals: 1},
			answers: []string{"It is sunny"},
		},
		"drains after final": {
			events:  []*runtime.Event{final("first"), final("second"), intermediate("bookkeeping")},
			want:    TranslateResult{Answer: "first", Events: 3, Finals: 2},
			answers: []string{"first"},
		},
		"no text": {
			events:  []*runtime.Event{final()},
			want:    TranslateResult{Answer: NoAnswer, Events: 1, Finals: 1},
			answers: []string{NoAnswer},
		},
		"no final": {
			events: []*runtime.Event{intermediate("a"), intermediate("b")},
			want:   TranslateResult{Events: 2},
		},
		"strip echoed query": {
			translator: EventTranslator{StripQuery: true},
			query:      "weather in Paris?",
			events:     []*runtime.Event{final("weather in Paris? It is sunny.")},
			want:       TranslateResult{Answer: "It is sunny.", Events: 1, Finals: 1},
			answers:    []string{"It is sunny."},
		},
		"strip keeps answer equal to query": {
			translator: EventTranslator{StripQuery: true},
			query:      "hello",
			events:     []*runtime.Event{final("hello")},
			want:       TranslateResult{Answer: "hello", Events: 1, Finals: 1},
			answers:    []string{"hello"},
		},
		"echo kept without stripping": {
			query:   "weather?",
			events:  []*runtime.Event{final("weather? sunny")},
			want:    TranslateResult{Answer: "weather? sunny", Events: 1, Finals: 1},
			answers: []string{"weather? sunny"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var answers []string
			got, err := tt.translator.Translate(t.Context(), tt.query, stream(tt.events...), func(_ context.Context, answer string) error {
				answers = append(answers, answer)
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Translate() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.answers, answers); diff != "" {
				t.Errorf("published answers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEventTranslatorErrors(t *testing.T) {
	streamErr := errors.New("stream broke")
	broken := func(yield func(*runtime.Event, error) bool) {
		if !yield(intermediate("a"), nil) {
			return
		}
		yield(nil, streamErr)
	}
	_, err := EventTranslator{}.Translate(t.Context(), "", broken, func(context.Context, string) error { return nil })
	if !errors.Is(err, streamErr) {
		t.Errorf("Translate() error = %v, want %v", err, streamErr)
	}

	publishErr := errors.New("queue closed")
	_, err = EventTranslator{}.Translate(t.Context(), "", stream(final("x")), func(context.Context, string) error { return publishErr })
	if !errors.Is(err, publishErr) {
		t.Errorf("Translate() error = %v, want %v", err, publishErr)
	}
}

func TestParseUserInput(t *testing.T) {
	tests := map[string]struct {
		input     string
		wantUser  string
		wantQuery string
	}{
		"prefixed":           {input: "user_id::alice::What's the weather", wantUser: "alice", wantQuery: "What's the weather"},
		"plain":              {input: "plain text", wantUser: DefaultUserID, wantQuery: "plain text"},
		"missing segment":    {input: "user_id::onlytwo", wantUser: DefaultUserID, wantQuery: "user_id::onlytwo"},
		"separator in query": {input: "user_id::bob::a::b", wantUser: "bob", wantQuery: "a::b"},
		"empty query":        {input: "user_id::bob::", wantUser: "bob", wantQuery: ""},
		"empty user":         {input: "user_id::::q", wantUser: DefaultUserID, wantQuery: "q"},
		"other prefix":       {input: "uid::bob::q", wantUser: DefaultUserID, wantQuery: "uid::bob::q"},
		"empty":              {input: "", wantUser: DefaultUserID, wantQuery: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			user, query := ParseUserInput(tt.input)
			if user != tt.wantUser || query != tt.wantQuery {
				t.Errorf("ParseUserInput(%q) = (%q, %q), want (%q, %q)", tt.input, user, query, tt.wantUser, tt.wantQuery)
			}
		})
	}
}

func TestFormatUserInput(t *testing.T) {
	tests := map[string]struct {
		user, query string
		want        string
	}{
		"user":     {user: "alice", query: "weather?", want: "user_id::alice::weather?"},
		"no user":  {user: "", query: "weather?", want: "weather?"},
		"sep kept": {user: "bob", query: "a::b", want: "user_id::bob::a::b"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := FormatUserInput(tt.user, tt.query)
			if got != tt.want {
				t.Errorf("FormatUserInput(%q, %q) = %q, want %q", tt.user, tt.query, got, tt.want)
			}
			if tt.user == "" {
				return
			}
			if user, query := ParseUserInput(got); user != tt.user || query != tt.query {
				t.Errorf("ParseUserInput(%q) = (%q, %q), want (%q, %q)", got, user, query, tt.user, tt.query)
			}
		})
	}
}
