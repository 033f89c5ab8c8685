// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"iter"
	"strings"

	"github.com/go-a2a/a2a-bridge/runtime"
)

// NoAnswer is published when the final event carries no text.
const NoAnswer = "No answer found."

// TranslateResult summarizes a translated event stream.
type TranslateResult struct {
	// Answer is the text published for the first final event.
	Answer string
	// Events counts every event consumed, including those after the answer.
	Events int
	// Finals counts the final events seen.
	Finals int
}

// EventTranslator turns a runtime event stream into a single answer.
type EventTranslator struct {
	// StripQuery removes an echo of the user's query from the start of the answer.
	StripQuery bool
}

// Translate consumes events until the stream ends. onFinal is called once,
// for the first final event. The stream is drained after that so side
// effects scheduled by the runtime after its final response can complete.
func (t EventTranslator) Translate(ctx context.Context, query string, events iter.Seq2[*runtime.Event, error], onFinal func(ctx context.Context, answer string) error) (TranslateResult, error) {
	var res TranslateResult
	for ev, err := range events {
		if err != nil {
			return res, err
		}
		res.Events++
		if !ev.IsFinalResponse() {
			continue
		}
		res.Finals++
		if res.Finals > 1 {
			continue
		}
		res.Answer = t.answer(ev, query)
		if err := onFinal(ctx, res.Answer); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (t EventTranslator) answer(ev *runtime.Event, query string) string {
	answer := ExtractAnswer(ev)
	if !t.StripQuery || answer == NoAnswer || query == "" {
		return answer
	}
	if rest, ok := strings.CutPrefix(answer, query); ok {
		if rest = strings.TrimSpace(rest); rest != "" {
			return rest
		}
	}
	return answer
}

// ExtractAnswer joins the non-empty text parts of ev with single spaces,
// falling back to NoAnswer.
func ExtractAnswer(ev *runtime.Event) string {
	if text := ev.Text(); text != "" {
		return text
	}
	return NoAnswer
}
