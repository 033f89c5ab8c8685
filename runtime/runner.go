// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Runner executes one Agent turn against a Model, recording every event in
// the session.
type Runner struct {
	AppName  string
	Agent    *Agent
	Model    Model
	Sessions SessionService
	Memory   MemoryService
	Logger   *slog.Logger
}

// Run streams the events of one turn for msg in the given session.
//
// Each function call the model requests is executed by the agent's tools and
// answered with a response event right after the call event. After the
// model's final response the runner invokes the agent's
// AfterAgent callbacks and yields one trailing bookkeeping event. Callbacks
// therefore only run if the consumer keeps iterating past the final event.
func (r *Runner) Run(ctx context.Context, userID, sessionID string, msg *Content) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		if r.Agent == nil || r.Model == nil || r.Sessions == nil {
			yield(nil, errors.New("runtime: runner is missing agent, model or session service"))
			return
		}
		logger := r.logger()

		sess, err := r.Sessions.GetSession(ctx, r.AppName, userID, sessionID)
		if err != nil {
			yield(nil, fmt.Errorf("load session %q: %w", sessionID, err))
			return
		}

		invocationID := "e-" + uuid.NewString()
		userEvent := NewEvent(RoleUser, msg)
		userEvent.InvocationID = invocationID
		if err := r.Sessions.AppendEvent(ctx, sess, userEvent); err != nil {
			yield(nil, fmt.Errorf("append user event: %w", err))
			return
		}

		req := &Request{
			Model:       r.Agent.Model,
			Instruction: r.Agent.Instruction,
			Contents:    contents(sess.Events()),
			Tools:       r.Agent.Tools,
		}
		if r.preloadsMemory() && r.Memory != nil {
			query := strings.Join(msg.Texts(), " ")
			memories, err := r.Memory.SearchMemory(ctx, r.AppName, userID, query)
			if err != nil {
				logger.WarnContext(ctx, "memory preload failed", slog.String("session_id", sess.ID), slog.Any("error", err))
			}
			req.Memories = memories
		}

		tc := &ToolContext{
			AppName:      r.AppName,
			UserID:       userID,
			SessionID:    sess.ID,
			InvocationID: invocationID,
		}
		sawFinal := false
		for ev, err := range r.Model.Generate(ctx, req) {
			if err != nil {
				yield(nil, err)
				return
			}
			if ev.Author == "" {
				ev.Author = r.Agent.Name
			}
			ev.InvocationID = invocationID
			if !ev.Partial {
				if err := r.Sessions.AppendEvent(ctx, sess, ev); err != nil {
					yield(nil, fmt.Errorf("append event: %w", err))
					return
				}
			}
			if ev.IsFinalResponse() {
				sawFinal = true
			}
			if !yield(ev, nil) {
				return
			}
			if ev.Partial || !ev.HasFunctionCalls() {
				continue
			}

			resp := r.runTools(ctx, tc, ev)
			if err := r.Sessions.AppendEvent(ctx, sess, resp); err != nil {
				yield(nil, fmt.Errorf("append event: %w", err))
				return
			}
			if !yield(resp, nil) {
				return
			}
		}
		if !sawFinal || len(r.Agent.AfterAgent) == 0 {
			return
		}

		start := time.Now()
		cc := &CallbackContext{
			InvocationID: invocationID,
			UserID:       userID,
			Session:      sess,
			Memory:       r.Memory,
		}
		for _, cb := range r.Agent.AfterAgent {
			if err := cb(ctx, cc); err != nil {
				logger.ErrorContext(ctx, "after agent callback failed", slog.String("session_id", sess.ID), slog.Any("error", err))
			}
		}
		logger.DebugContext(ctx, "after agent callbacks done", slog.String("session_id", sess.ID), slog.Duration("duration", time.Since(start)))

		done := NewEvent(r.Agent.Name, nil)
		done.InvocationID = invocationID
		yield(done, nil)
	}
}

// runTools executes the function calls of ev and returns the event carrying
// their responses. A failed call is answered with an "error" response so the
// model can react to it.
func (r *Runner) runTools(ctx context.Context, tc *ToolContext, ev *Event) *Event {
	logger := r.logger()
	content := &Content{Role: RoleUser}
	for _, p := range ev.Content.Parts {
		call := p.FunctionCall
		if call == nil {
			continue
		}
		start := time.Now()
		result, err := r.callTool(ctx, tc, call)
		if err != nil {
			logger.WarnContext(ctx, "tool call failed",
				slog.String("tool", call.Name), slog.String("session_id", tc.SessionID), slog.Any("error", err))
			result = map[string]any{"error": err.Error()}
		} else {
			logger.DebugContext(ctx, "tool call done",
				slog.String("tool", call.Name), slog.String("session_id", tc.SessionID), slog.Duration("duration", time.Since(start)))
		}
		content.Parts = append(content.Parts, Part{FunctionResponse: &FunctionResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: result,
		}})
	}
	resp := NewEvent(r.Agent.Name, content)
	resp.InvocationID = tc.InvocationID
	return resp
}

// callTool routes call to the tool of the same name, or else to the first MCP
// toolset, which serves whatever tools its server exposes.
func (r *Runner) callTool(ctx context.Context, tc *ToolContext, call *FunctionCall) (map[string]any, error) {
	var toolset ToolCaller
	for _, t := range r.Agent.Tools {
		caller, ok := t.(ToolCaller)
		if !ok {
			continue
		}
		if t.Name() == call.Name {
			return caller.CallTool(ctx, tc, call)
		}
		if _, ok := t.(*MCPToolset); ok && toolset == nil {
			toolset = caller
		}
	}
	if toolset == nil {
		return nil, fmt.Errorf("no tool serves %q", call.Name)
	}
	return toolset.CallTool(ctx, tc, call)
}

func (r *Runner) preloadsMemory() bool {
	for _, t := range r.Agent.Tools {
		if _, ok := t.(PreloadMemoryTool); ok {
			return true
		}
	}
	return false
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func contents(events []*Event) []*Content {
	out := make([]*Content, 0, len(events))
	for _, ev := range events {
		if ev.Content != nil {
			out = append(out, ev.Content)
		}
	}
	return out
}

// SaveToMemory is an AfterAgentCallback that hands the finished session to
// the memory service.
func SaveToMemory(ctx context.Context, cc *CallbackContext) error {
	if cc.Memory == nil {
		return nil
	}
	return cc.Memory.AddSessionToMemory(ctx, cc.Session)
}
