// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package handler serves the A2A protocol methods on top of an AgentExecutor.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/server/agent_execution"
	"github.com/go-a2a/a2a-bridge/server/event"
	"github.com/go-a2a/a2a-bridge/server/task"
)

// RequestHandler defines the transport independent A2A methods.
type RequestHandler interface {
	// OnGetTask returns the stored task.
	OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error)

	// OnCancelTask asks the executor to cancel a task.
	OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error)

	// OnMessageSend runs the executor for a message and returns the resulting task.
	OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error)

	// OnMessageSendStream is OnMessageSend that also hands every event to send
	// as soon as it has been applied to the task.
	OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams, send func(event.Event) error) (*a2a.Task, error)
}

// DefaultRequestHandler is the RequestHandler backed by a TaskStore.
type DefaultRequestHandler struct {
	executor   agent_execution.AgentExecutor
	store      task.TaskStore
	builder    agent_execution.RequestContextBuilder
	queues     *event.QueueManager
	aggregator *task.ResultAggregator
	logger     *slog.Logger
}

var _ RequestHandler = (*DefaultRequestHandler)(nil)

// Option configures a DefaultRequestHandler.
type Option func(*DefaultRequestHandler)

// WithRequestContextBuilder replaces the SimpleRequestContextBuilder.
func WithRequestContextBuilder(builder agent_execution.RequestContextBuilder) Option {
	return func(h *DefaultRequestHandler) {
		h.builder = builder
	}
}

// WithQueueManager sets the registry of in-flight task queues.
func WithQueueManager(queues *event.QueueManager) Option {
	return func(h *DefaultRequestHandler) {
		h.queues = queues
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *DefaultRequestHandler) {
		h.logger = logger
	}
}

// NewDefaultRequestHandler creates a DefaultRequestHandler.
func NewDefaultRequestHandler(executor agent_execution.AgentExecutor, store task.TaskStore, opts ...Option) (*DefaultRequestHandler, error) {
	if executor == nil {
		return nil, errors.New("agent executor cannot be nil")
	}
	if store == nil {
		return nil, errors.New("task store cannot be nil")
	}

	h := &DefaultRequestHandler{
		executor: executor,
		store:    store,
		builder:  agent_execution.SimpleRequestContextBuilder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.queues == nil {
		queues, err := event.NewQueueManager(event.DefaultMaxQueueSize)
		if err != nil {
			return nil, err
		}
		h.queues = queues
	}
	h.aggregator = task.NewResultAggregator(store, h.logger)

	return h, nil
}

// OnGetTask implements RequestHandler.
func (h *DefaultRequestHandler) OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	if params == nil || params.ID == "" {
		return nil, a2a.ErrInvalidParams.WithData("task id is required")
	}
	t, err := h.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if n := params.HistoryLength; n > 0 && len(t.History) > n {
		t = t.Clone()
		t.History = t.History[len(t.History)-n:]
	}
	return t, nil
}

// OnCancelTask implements RequestHandler.
func (h *DefaultRequestHandler) OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	if params == nil || params.ID == "" {
		return nil, a2a.ErrInvalidParams.WithData("task id is required")
	}
	t, err := h.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if t.Status.State.IsTerminal() {
		return nil, a2a.ErrTaskNotCancelable.WithData(fmt.Sprintf("task %s is %s", t.ID, t.Status.State))
	}

	queue, err := event.NewEventQueue(0)
	if err != nil {
		return nil, err
	}
	reqCtx := agent_execution.NewRequestContext(t.ID, t.ContextID, nil).WithTask(t)
	if err := h.executor.Cancel(ctx, reqCtx, queue); err != nil {
		h.logger.InfoContext(ctx, "task cancellation rejected", "task_id", t.ID, "error", err)
		return nil, err
	}
	queue.Close()

	t = t.Clone()
	if err := h.aggregator.Consume(ctx, queue, t, nil); err != nil {
		return nil, err
	}
	return t, nil
}

// OnMessageSend implements RequestHandler.
func (h *DefaultRequestHandler) OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error) {
	return h.execute(ctx, params, nil)
}

// OnMessageSendStream implements RequestHandler.
func (h *DefaultRequestHandler) OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams, send func(event.Event) error) (*a2a.Task, error) {
	return h.execute(ctx, params, send)
}

// execute runs the executor for params, folding its events into the stored task.
// The executor and the consumer run concurrently over a per-task queue.
func (h *DefaultRequestHandler) execute(ctx context.Context, params *a2a.MessageSendParams, onEvent func(event.Event) error) (*a2a.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	current, err := h.currentTask(ctx, params.Message)
	if err != nil {
		return nil, err
	}
	reqCtx, err := h.builder.Build(ctx, params, current)
	if err != nil {
		return nil, a2a.ErrInvalidParams.WithData(err.Error())
	}

	t := current.Clone()
	if t == nil {
		if t, err = a2a.NewTask(reqCtx.Message); err != nil {
			return nil, a2a.ErrInvalidParams.WithData(err.Error())
		}
	} else {
		t.History = append(t.History, reqCtx.Message)
	}

	queue, err := h.queues.Create(t.ID)
	if err != nil {
		return nil, err
	}
	defer h.queues.Close(t.ID)

	if err := h.store.Save(ctx, t); err != nil {
		return nil, task.NewTaskStoreError(task.OpSave, t.ID, err)
	}

	log := h.logger.With("task_id", t.ID, "context_id", t.ContextID)
	log.DebugContext(ctx, "executing task", "resumed", current != nil)

	var execErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer queue.Close()
		execErr = h.executor.Execute(gctx, reqCtx, queue)
		return nil
	})
	g.Go(func() error {
		return h.aggregator.Consume(gctx, queue, t, onEvent)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if execErr != nil {
		if !t.Status.State.IsTerminal() {
			return nil, &ExecutionError{TaskID: t.ID, Err: execErr}
		}
		// the executor already reported the failure on the task
		log.InfoContext(ctx, "task ended with error", "state", t.Status.State, "error", execErr)
	}
	return t, nil
}

// currentTask loads the task msg continues, if any. Terminal tasks cannot be resumed.
func (h *DefaultRequestHandler) currentTask(ctx context.Context, msg *a2a.Message) (*a2a.Task, error) {
	if msg.TaskID == "" {
		return nil, nil
	}
	t, err := h.store.Get(ctx, msg.TaskID)
	if err != nil {
		return nil, err
	}
	if t.Status.State.IsTerminal() {
		return nil, a2a.ErrInvalidParams.WithData(fmt.Sprintf("task %s is in terminal state %s", t.ID, t.Status.State))
	}
	return t, nil
}
