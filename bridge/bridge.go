// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge executes A2A tasks on a conversational agent runtime.
//
// A Bridge owns the runtime of one agent persona. For every task it resolves
// the conversation's session, refreshes the credentials of the agent's MCP
// tools, runs the agent and publishes its final response as an "answer"
// artifact.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/credential"
	"github.com/go-a2a/a2a-bridge/runtime"
	"github.com/go-a2a/a2a-bridge/runtime/inmemory"
	"github.com/go-a2a/a2a-bridge/runtime/vertex"
	"github.com/go-a2a/a2a-bridge/server/agent_execution"
	"github.com/go-a2a/a2a-bridge/server/event"
	"github.com/go-a2a/a2a-bridge/server/task"
)

// AnswerArtifactName names the artifact carrying the agent's response.
const AnswerArtifactName = "answer"

// DefaultModel is used when the persona names no model.
const DefaultModel = "gemini-2.5-flash"

// Persona describes one agent: what it is told, which MCP server backs its
// tools and which remote A2A agents it may delegate to. At least one of
// MCPURL and RemoteAgents must be set.
type Persona struct {
	Name        string
	Description string
	Instruction string
	Model       string
	// MCPURL is the MCP server URL, also used as the token audience.
	MCPURL string
	// MCPURLEnv names the environment variable MCPURL was read from.
	MCPURLEnv string
	// RemoteAgents are base URLs of A2A agents exposed to the model as tools.
	// Each URL is also the token audience for requests to it.
	RemoteAgents []string
	// StripQuery removes an echo of the query from the start of answers.
	StripQuery bool
}

// Config configures a Bridge.
type Config struct {
	Persona       Persona
	ProjectID     string
	Location      string
	AgentEngineID string
}

// Backend holds the session and memory services a runtime works against.
type Backend struct {
	Sessions runtime.SessionService
	Memory   runtime.MemoryService
	// Local reports process-local services. Local sessions reuse the
	// context id as their session id.
	Local bool
}

// BackendFactory builds the Backend during lazy initialization.
type BackendFactory func(ctx context.Context, cfg Config) (Backend, error)

// DefaultBackend uses Agent Engine when an agent engine id is configured and
// in-memory services otherwise.
func DefaultBackend(_ context.Context, cfg Config) (Backend, error) {
	if cfg.AgentEngineID == "" {
		return Backend{
			Sessions: inmemory.NewSessionService(),
			Memory:   inmemory.NewMemoryService(),
			Local:    true,
		}, nil
	}
	if cfg.ProjectID == "" {
		return Backend{}, &ConfigurationError{Key: "PROJECT_ID", Reason: "required when an agent engine id is set"}
	}
	if cfg.Location == "" {
		return Backend{}, &ConfigurationError{Key: "LOCATION", Reason: "required when an agent engine id is set"}
	}
	client, err := vertex.NewClient(cfg.ProjectID, cfg.Location, cfg.AgentEngineID)
	if err != nil {
		return Backend{}, err
	}
	return Backend{
		Sessions: vertex.NewSessionService(client),
		Memory:   vertex.NewMemoryBankService(client),
	}, nil
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithModel sets the model the agent runs on.
func WithModel(m runtime.Model) Option {
	return func(b *Bridge) { b.model = m }
}

// WithBackend sets the factory building session and memory services.
func WithBackend(f BackendFactory) Option {
	return func(b *Bridge) { b.backend = f }
}

// WithSessionStore sets where context to session mappings are kept.
func WithSessionStore(s SessionStore) Option {
	return func(b *Bridge) { b.store = s }
}

// WithCredentialSource sets where MCP bearer tokens come from.
func WithCredentialSource(s credential.Source) Option {
	return func(b *Bridge) { b.credentials = s }
}

// WithTokenOptions configures the TokenManager built at initialization.
func WithTokenOptions(opts ...TokenManagerOption) Option {
	return func(b *Bridge) { b.tokenOpts = append(b.tokenOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(b *Bridge) { b.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *Bridge) { b.tracerProvider = tp }
}

// Bridge implements agent_execution.AgentExecutor on top of a runtime.Runner.
type Bridge struct {
	cfg            Config
	model          runtime.Model
	backend        BackendFactory
	store          SessionStore
	credentials    credential.Source
	tokenOpts      []TokenManagerOption
	logger         *slog.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tel            *telemetry
	translator     EventTranslator

	// initMu serializes initialization; mu guards what it builds.
	initMu   sync.Mutex
	mu       sync.Mutex
	inits    int
	runner   *runtime.Runner
	tokens   *TokenManager
	registry *SessionRegistry
}

var _ agent_execution.AgentExecutor = (*Bridge)(nil)

// New returns a Bridge for cfg. The runtime is built on the first Execute.
func New(cfg Config, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:         cfg,
		backend:     DefaultBackend,
		credentials: &credential.IDTokenSource{},
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	if b.cfg.Persona.Model == "" {
		b.cfg.Persona.Model = DefaultModel
	}
	b.logger = b.logger.With(slog.String("agent", cfg.Persona.Name))
	b.tel = newTelemetry(b.meterProvider, b.tracerProvider)
	b.translator = EventTranslator{StripQuery: cfg.Persona.StripQuery}
	return b
}

// Init builds the agent runtime unless it already exists. A failed
// initialization is retried by the next call. Token fetches and remote agent
// lookups run without holding the lock of Runner and RefreshAuth.
func (b *Bridge) Init(ctx context.Context) error {
	if b.Runner() != nil {
		return nil
	}
	b.initMu.Lock()
	defer b.initMu.Unlock()
	if b.Runner() != nil {
		return nil
	}

	p := b.cfg.Persona
	if p.MCPURL == "" && len(p.RemoteAgents) == 0 {
		key := p.MCPURLEnv
		if key == "" {
			key = "mcp_url"
		}
		return &ConfigurationError{Key: key, Reason: fmt.Sprintf("MCP server URL for %s is not set", p.Name)}
	}
	if b.model == nil {
		return &ConfigurationError{Key: "model", Reason: "no runtime model configured"}
	}

	backend, err := b.backend(ctx, b.cfg)
	if err != nil {
		return err
	}

	tokenOpts := append([]TokenManagerOption{WithTokenLogger(b.logger)}, b.tokenOpts...)
	newTokens := func(audience string) *TokenManager {
		m := NewTokenManager(audience, b.credentials, tokenOpts...)
		m.onRefresh = b.tel.recordTokenRefresh
		return m
	}

	var (
		tools  []runtime.Tool
		tokens *TokenManager
	)
	if p.MCPURL != "" {
		tokens = newTokens(p.MCPURL)
		tools = append(tools, runtime.NewMCPToolset(p.Name+"_mcp", runtime.StreamableHTTPConnectionParams{
			URL:     p.MCPURL,
			Headers: tokens.Headers(ctx),
		}))
	}
	for _, addr := range p.RemoteAgents {
		remote, err := NewRemoteAgentTool(ctx, addr, newTokens(addr), b.logger)
		if err != nil {
			return err
		}
		tools = append(tools, remote)
	}
	tools = append(tools, runtime.PreloadMemoryTool{})

	agent := &runtime.Agent{
		Name:        p.Name,
		Description: p.Description,
		Instruction: p.Instruction,
		Model:       p.Model,
		Tools:       tools,
		AfterAgent:  []runtime.AfterAgentCallback{b.saveToMemory},
	}
	runner := &runtime.Runner{
		AppName:  p.Name,
		Agent:    agent,
		Model:    b.model,
		Sessions: backend.Sessions,
		Memory:   backend.Memory,
		Logger:   b.logger,
	}
	registry := NewSessionRegistry(p.Name, backend.Sessions, b.store, backend.Local, b.logger)
	registry.onCreate = b.tel.recordSessionCreated

	b.mu.Lock()
	b.runner, b.tokens, b.registry = runner, tokens, registry
	b.inits++
	b.mu.Unlock()
	b.logger.InfoContext(ctx, "agent runtime initialized",
		slog.String("mcp_url", p.MCPURL), slog.Int("remote_agents", len(p.RemoteAgents)), slog.Bool("local", backend.Local))
	return nil
}

// saveToMemory persists the finished session to the memory service. Its
// failures are logged by the runner.
func (b *Bridge) saveToMemory(ctx context.Context, cc *runtime.CallbackContext) error {
	start := time.Now()
	defer func() {
		b.logger.InfoContext(ctx, "memory generation callback done",
			slog.String("session_id", cc.Session.ID), slog.String("user_id", cc.UserID), slog.Duration("duration", time.Since(start)))
	}()
	return runtime.SaveToMemory(ctx, cc)
}

// Initializations returns how many times the runtime has been built.
func (b *Bridge) Initializations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inits
}

// Runner returns the runtime runner, or nil before initialization.
func (b *Bridge) Runner() *runtime.Runner {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runner
}

// RefreshAuth pushes current MCP auth headers into every tool whose
// connection accepts them. It does nothing before initialization or for a
// persona without an MCP server. Remote agent tools fetch their own headers
// per request.
func (b *Bridge) RefreshAuth(ctx context.Context) {
	b.mu.Lock()
	runner, tokens := b.runner, b.tokens
	b.mu.Unlock()
	if runner == nil {
		b.logger.WarnContext(ctx, "token manager not initialized, skipping auth refresh")
		return
	}
	if tokens == nil {
		return
	}

	headers := tokens.Headers(ctx)
	for _, tool := range runner.Agent.Tools {
		if hs, ok := tool.(runtime.HeaderSetter); ok {
			hs.SetHeaders(headers)
		}
	}
}

// Execute implements agent_execution.AgentExecutor. Failures are published
// as a failed status and then returned.
func (b *Bridge) Execute(ctx context.Context, reqCtx *agent_execution.RequestContext, queue event.Queue) error {
	start := time.Now()
	ctx, span := b.tel.tracer.Start(ctx, "bridge.Execute", trace.WithAttributes(
		attribute.String("a2a.task_id", reqCtx.TaskID),
		attribute.String("a2a.context_id", reqCtx.ContextID),
	))
	defer span.End()
	logger := b.logger.With(slog.String("task_id", reqCtx.TaskID), slog.String("context_id", reqCtx.ContextID))
	defer func() {
		logger.InfoContext(ctx, "execute finished", slog.Duration("duration", time.Since(start)))
	}()

	updater, err := task.NewTaskUpdater(queue, reqCtx.TaskID, reqCtx.ContextID)
	if err != nil {
		return err
	}

	if err := b.execute(ctx, logger, reqCtx, updater); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "execution failed", slog.Any("error", err))
		if uerr := updater.Failed(ctx, updater.NewAgentMessage("Error: "+err.Error())); uerr != nil {
			logger.ErrorContext(ctx, "publish failed status", slog.Any("error", uerr))
		}
		b.tel.recordTask(ctx, outcomeFailed, start)
		return err
	}
	b.tel.recordTask(ctx, outcomeCompleted, start)
	return nil
}

func (b *Bridge) execute(ctx context.Context, logger *slog.Logger, reqCtx *agent_execution.RequestContext, updater task.TaskUpdater) error {
	if err := b.Init(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	runner, registry := b.runner, b.registry
	b.mu.Unlock()

	raw := reqCtx.GetUserInput()
	logger.InfoContext(ctx, "received input", slog.String("input", raw))
	userID, query := ParseUserInput(raw)
	logger = logger.With(slog.String("user_id", userID))

	if reqCtx.CurrentTask == nil {
		if err := updater.Submit(ctx); err != nil {
			return err
		}
	}
	if err := updater.StartWork(ctx); err != nil {
		return err
	}

	b.RefreshAuth(ctx)

	sess, err := registry.GetOrCreate(ctx, reqCtx.ContextID, userID)
	if err != nil {
		return err
	}
	// The context owns the conversation: a reused session keeps running as
	// the user it was created for.
	if sess.UserID != "" && sess.UserID != userID {
		logger.InfoContext(ctx, "session belongs to another user, running as its owner", slog.String("owner", sess.UserID))
		userID = sess.UserID
	}
	logger = logger.With(slog.String("session_id", sess.ID))

	runStart := time.Now()
	events := runner.Run(ctx, userID, sess.ID, runtime.NewUserContent(query))
	res, err := b.translator.Translate(ctx, query, events, func(ctx context.Context, answer string) error {
		logger.InfoContext(ctx, "final response", slog.String("answer", answer))
		if err := updater.AddArtifact(ctx, []a2a.Part{a2a.NewTextPart(answer)}, AnswerArtifactName); err != nil {
			return err
		}
		return updater.Complete(ctx)
	})
	logger.InfoContext(ctx, "runner finished",
		slog.Duration("duration", time.Since(runStart)), slog.Int("events", res.Events), slog.Int("finals", res.Finals))
	if err != nil {
		return &RuntimeExecutionError{TaskID: reqCtx.TaskID, Err: err}
	}
	if res.Finals == 0 {
		return &RuntimeExecutionError{TaskID: reqCtx.TaskID, Err: errors.New("agent produced no final response")}
	}
	return nil
}

// Cancel implements agent_execution.AgentExecutor. Cancellation is not
// supported and always fails.
func (b *Bridge) Cancel(ctx context.Context, reqCtx *agent_execution.RequestContext, _ event.Queue) error {
	b.logger.WarnContext(ctx, "cancel requested but not supported", slog.String("task_id", reqCtx.TaskID))
	return ErrUnsupportedOperation
}
