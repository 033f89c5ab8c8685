// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/bridge"
	"github.com/go-a2a/a2a-bridge/client"
	"github.com/go-a2a/a2a-bridge/server/event"
)

// errTaskFailed is returned when the agent ends the task in a non-completed state.
var errTaskFailed = errors.New("task did not complete")

type sendOptions struct {
	url       string
	userID    string
	contextID string
	stream    bool
}

func newSendCmd() *cobra.Command {
	var opts sendOptions
	cmd := &cobra.Command{
		Use:   "send [flags] <query>",
		Short: "Send a query to an A2A agent and print its answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(opts.url)
			params := &a2a.MessageSendParams{
				Message: a2a.NewUserTextMessage(bridge.FormatUserInput(opts.userID, strings.Join(args, " ")), opts.contextID, ""),
			}
			if opts.stream {
				return streamAnswer(cmd, c, params)
			}
			t, err := c.SendMessage(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printTask(cmd.OutOrStdout(), t)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.url, "url", "http://localhost:8080", "base URL of the agent")
	flags.StringVar(&opts.userID, "user", "", "user id sent with the query")
	flags.StringVar(&opts.contextID, "context", "", "context id of the conversation")
	flags.BoolVar(&opts.stream, "stream", false, "stream task events with message/stream")
	return cmd
}

// printTask writes the answer of a completed task, or reports why it failed.
func printTask(w io.Writer, t *a2a.Task) error {
	if t.Status.State != a2a.TaskStateCompleted {
		return fmt.Errorf("%w: %s: %s", errTaskFailed, t.Status.State, t.Status.Message.Text(" "))
	}
	for _, art := range t.Artifacts {
		if art.Name != bridge.AnswerArtifactName {
			continue
		}
		for _, part := range art.Parts {
			if part.Kind == a2a.PartKindText {
				fmt.Fprintln(w, part.Text)
			}
		}
	}
	return nil
}

// streamAnswer prints each status transition to stderr and the answer to stdout.
func streamAnswer(cmd *cobra.Command, c *client.Client, params *a2a.MessageSendParams) error {
	out, progress := cmd.OutOrStdout(), cmd.ErrOrStderr()
	var final *event.TaskStatusUpdateEvent
	for ev, err := range c.SendMessageStream(cmd.Context(), params) {
		if err != nil {
			return err
		}
		switch e := ev.(type) {
		case *event.TaskStatusUpdateEvent:
			fmt.Fprintf(progress, "[%s] %s\n", e.TaskID, e.Status.State)
			if e.Final {
				final = e
			}
		case *event.TaskArtifactUpdateEvent:
			if e.Artifact.Name != bridge.AnswerArtifactName {
				continue
			}
			for _, part := range e.Artifact.Parts {
				if part.Kind == a2a.PartKindText {
					fmt.Fprintln(out, part.Text)
				}
			}
		}
	}
	switch {
	case final == nil:
		return fmt.Errorf("%w: stream ended without a final status", errTaskFailed)
	case final.Status.State != a2a.TaskStateCompleted:
		return fmt.Errorf("%w: %s: %s", errTaskFailed, final.Status.State, final.Status.Message.Text(" "))
	}
	return nil
}
