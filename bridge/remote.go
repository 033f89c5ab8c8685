// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/client"
	"github.com/go-a2a/a2a-bridge/runtime"
)

// RemoteRequestArg is the function call argument holding the request for a
// remote agent.
const RemoteRequestArg = "request"

// RemoteAgentTool delegates requests to another A2A agent on behalf of the
// current user. It is named after the remote agent card, so the model calls
// it like any other tool.
type RemoteAgentTool struct {
	name        string
	description string
	address     string
	client      *client.Client
	logger      *slog.Logger
}

var (
	_ runtime.Tool       = (*RemoteAgentTool)(nil)
	_ runtime.ToolCaller = (*RemoteAgentTool)(nil)
)

// NewRemoteAgentTool fetches the agent card served at address and returns a
// tool calling that agent. Every request, the card fetch included, carries
// the auth headers of tokens.
func NewRemoteAgentTool(ctx context.Context, address string, tokens *TokenManager, logger *slog.Logger, opts ...client.Option) (*RemoteAgentTool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]client.Option{client.WithHeaderFunc(tokens.Headers)}, opts...)
	c := client.New(address, opts...)
	card, err := c.AgentCard(ctx)
	if err != nil {
		return nil, &RemoteAgentError{Address: address, Err: err}
	}
	if card.Name == "" {
		return nil, &RemoteAgentError{Address: address, Err: errors.New("agent card has no name")}
	}
	return &RemoteAgentTool{
		name:        card.Name,
		description: card.Description,
		address:     address,
		client:      c,
		logger:      logger.With(slog.String("remote_agent", card.Name)),
	}, nil
}

// Name implements runtime.Tool.
func (t *RemoteAgentTool) Name() string { return t.name }

// Description implements runtime.Tool.
func (t *RemoteAgentTool) Description() string {
	return fmt.Sprintf("Sends a request to the remote agent %s: %s", t.name, t.description)
}

// Address returns the base URL of the remote agent.
func (t *RemoteAgentTool) Address() string { return t.address }

// CallTool implements runtime.ToolCaller. The request is sent for the user of
// the turn, in a remote context named after the local session, and the
// remote "answer" artifact is returned as the result.
func (t *RemoteAgentTool) CallTool(ctx context.Context, tc *runtime.ToolContext, call *runtime.FunctionCall) (map[string]any, error) {
	request, _ := call.Args[RemoteRequestArg].(string)
	if strings.TrimSpace(request) == "" {
		return nil, &RemoteAgentError{Address: t.address, Err: fmt.Errorf("missing %q argument", RemoteRequestArg)}
	}

	msg := a2a.NewUserTextMessage(FormatUserInput(tc.UserID, request), tc.SessionID, "")
	task, err := t.client.SendMessage(ctx, &a2a.MessageSendParams{Message: msg})
	if err != nil {
		return nil, &RemoteAgentError{Address: t.address, Err: err}
	}
	t.logger.InfoContext(ctx, "remote agent answered",
		slog.String("task_id", task.ID), slog.String("state", string(task.Status.State)))

	if task.Status.State != a2a.TaskStateCompleted {
		return nil, &RemoteAgentError{
			Address: t.address,
			Err:     fmt.Errorf("task %s ended %s: %s", task.ID, task.Status.State, task.Status.Message.Text(" ")),
		}
	}
	var answer []string
	for _, art := range task.Artifacts {
		if art.Name != AnswerArtifactName {
			continue
		}
		for _, p := range art.Parts {
			if p.Kind == a2a.PartKindText && p.Text != "" {
				answer = append(answer, p.Text)
			}
		}
	}
	if len(answer) == 0 {
		return nil, &RemoteAgentError{Address: t.address, Err: fmt.Errorf("task %s has no answer", task.ID)}
	}
	return map[string]any{"result": strings.Join(answer, " ")}, nil
}
