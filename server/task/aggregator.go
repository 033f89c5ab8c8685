// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"log/slog"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/server/event"
)

// ResultAggregator folds the events published by an executor into the stored
// task, so that tasks/get observes the latest status and artifacts.
type ResultAggregator struct {
	store  TaskStore
	logger *slog.Logger
}

// NewResultAggregator creates a ResultAggregator persisting into store.
func NewResultAggregator(store TaskStore, logger *slog.Logger) *ResultAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultAggregator{store: store, logger: logger}
}

// Apply updates task in place with ev and persists it.
func (a *ResultAggregator) Apply(ctx context.Context, task *a2a.Task, ev event.Event) error {
	switch e := ev.(type) {
	case *event.TaskStatusUpdateEvent:
		if task.Status.State.IsTerminal() {
			return NewTaskNotUpdatableError(task.ID, task.Status.State)
		}
		if task.Status.Message != nil {
			task.History = append(task.History, task.Status.Message)
		}
		task.Status = e.Status
	case *event.TaskArtifactUpdateEvent:
		task.Artifacts = appendArtifact(task.Artifacts, e.Artifact, e.Append)
	case *event.MessageEvent:
		task.History = append(task.History, e.Message)
	case *event.TaskEvent:
		*task = *e.Task.Clone()
	default:
		return fmt.Errorf("unsupported event type %T", ev)
	}

	if err := a.store.Save(ctx, task); err != nil {
		return NewTaskStoreError(OpSave, task.ID, err)
	}
	return nil
}

// Consume drains queue into task until the queue is closed, calling onEvent
// (when non-nil) after each event has been applied.
func (a *ResultAggregator) Consume(ctx context.Context, queue *event.EventQueue, task *a2a.Task, onEvent func(event.Event) error) error {
	for ev, err := range queue.All(ctx) {
		if err != nil {
			return err
		}
		if err := a.Apply(ctx, task, ev); err != nil {
			a.logger.WarnContext(ctx, "dropping event", "task_id", task.ID, "kind", ev.EventKind(), "error", err)
			continue
		}
		if onEvent != nil {
			if err := onEvent(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendArtifact(artifacts []*a2a.Artifact, artifact *a2a.Artifact, appendParts bool) []*a2a.Artifact {
	for i, existing := range artifacts {
		if existing.ArtifactID != artifact.ArtifactID {
			continue
		}
		if appendParts {
			merged := *existing
			merged.Parts = append(append([]a2a.Part(nil), existing.Parts...), artifact.Parts...)
			artifacts[i] = &merged
		} else {
			artifacts[i] = artifact
		}
		return artifacts
	}
	return append(artifacts, artifact)
}
