// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package scripted implements a runtime.Model that replays responses from a
// YAML scenario. It lets the bridge run end to end without a language model.
package scripted

import (
	"context"
	"fmt"
	"iter"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-a2a/a2a-bridge/runtime"
)

// QueryPlaceholder in a step's content is replaced with the user's latest message.
const QueryPlaceholder = "{query}"

// Step is the scripted response to one turn.
type Step struct {
	Content   string                 `yaml:"content"`
	ToolCalls []runtime.FunctionCall `yaml:"tool_calls,omitempty"`
	Error     string                 `yaml:"error,omitempty"`
	Delay     time.Duration          `yaml:"delay,omitempty"`
}

// Scenario is a named sequence of steps.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
	Loop        bool   `yaml:"loop,omitempty"`
}

// ParseScenario decodes a scenario from YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	return &sc, nil
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario %q: %w", path, err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Model replays a Scenario, one step per turn. It is safe for concurrent use.
type Model struct {
	mu    sync.Mutex
	steps []Step
	loop  bool
	idx   int
}

var _ runtime.Model = (*Model)(nil)

// New returns a Model replaying sc.
func New(sc *Scenario) *Model {
	return &Model{steps: sc.Steps, loop: sc.Loop}
}

// Remaining returns how many steps have not been consumed.
func (m *Model) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return max(len(m.steps)-m.idx, 0)
}

func (m *Model) next() (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idx >= len(m.steps) {
		if !m.loop {
			return Step{}, fmt.Errorf("scripted model exhausted: all %d steps consumed", len(m.steps))
		}
		m.idx = 0
	}
	step := m.steps[m.idx]
	m.idx++
	return step, nil
}

// Generate implements runtime.Model. Each tool call of the step is emitted
// as a call event for the runner to execute, then the final answer follows.
func (m *Model) Generate(ctx context.Context, req *runtime.Request) iter.Seq2[*runtime.Event, error] {
	return func(yield func(*runtime.Event, error) bool) {
		step, err := m.next()
		if err != nil {
			yield(nil, err)
			return
		}
		if step.Delay > 0 {
			select {
			case <-time.After(step.Delay):
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			}
		}
		if step.Error != "" {
			yield(nil, fmt.Errorf("scripted error: %s", step.Error))
			return
		}

		for _, call := range step.ToolCalls {
			ev := runtime.NewEvent("", &runtime.Content{
				Role:  runtime.RoleModel,
				Parts: []runtime.Part{{FunctionCall: &call}},
			})
			if !yield(ev, nil) {
				return
			}
		}

		final := runtime.NewEvent("", runtime.NewModelContent(strings.ReplaceAll(step.Content, QueryPlaceholder, lastUserText(req))))
		final.Final = true
		yield(final, nil)
	}
}

func lastUserText(req *runtime.Request) string {
	for i := len(req.Contents) - 1; i >= 0; i-- {
		if c := req.Contents[i]; c.Role == runtime.RoleUser {
			if texts := c.Texts(); len(texts) > 0 {
				return strings.Join(texts, " ")
			}
		}
	}
	return ""
}
