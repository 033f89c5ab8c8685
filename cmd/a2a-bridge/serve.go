// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/go-a2a/a2a-bridge/bridge"
	"github.com/go-a2a/a2a-bridge/config"
	"github.com/go-a2a/a2a-bridge/server/handler"
)

const shutdownTimeout = 15 * time.Second

// newServer assembles the HTTP handler of the A2A server.
func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, dbs *databases, tel *telemetry) (http.Handler, error) {
	persona, err := config.LoadPersona(cfg.PersonaFile)
	if err != nil {
		return nil, err
	}
	if persona.MCPURL() == "" && len(persona.RemoteAgents()) == 0 {
		// reported again by every request until the variable is set
		logger.Warn("MCP server URL is not set", slog.String("env", persona.MCPURLEnvVar))
	}

	creds, err := newCredentialSource(cfg)
	if err != nil {
		return nil, err
	}
	sessions, err := newSessionStore(ctx, cfg, dbs)
	if err != nil {
		return nil, err
	}
	tasks, err := newTaskStore(ctx, cfg, dbs)
	if err != nil {
		return nil, err
	}
	opts, err := newBridgeOptions(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		bridge.WithCredentialSource(creds),
		bridge.WithSessionStore(sessions),
		bridge.WithTokenOptions(bridge.WithRefreshBuffer(cfg.RefreshBuffer)),
		bridge.WithLogger(logger),
		bridge.WithMeterProvider(tel.provider),
	)

	executor := bridge.New(bridge.Config{
		Persona:       persona.Bridge(),
		ProjectID:     cfg.ProjectID,
		Location:      cfg.Location,
		AgentEngineID: cfg.AgentEngineID,
	}, opts...)

	requests, err := handler.NewDefaultRequestHandler(executor, tasks, handler.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	if tel.handler != nil {
		mux.Handle("GET "+metricsPath, tel.handler)
	}
	card := persona.AgentCard(publicURL(cfg))
	mux.Handle("/", handler.NewJSONRPCHandler(requests, card, handler.WithJSONRPCLogger(logger)))

	return h2c.NewHandler(mux, &http2.Server{}), nil
}

// runServe serves until ctx is canceled, then shuts down gracefully.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tel, err := newTelemetry(cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("metrics shutdown failed", slog.Any("error", err))
		}
	}()

	dbs := &databases{}
	defer closeAll(logger, "databases", dbs)

	h, err := newServer(ctx, cfg, logger, dbs, tel)
	if err != nil {
		return err
	}

	l, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving A2A", slog.String("addr", l.Addr().String()), slog.Bool("metrics", tel.handler != nil))
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// publicURL is the configured public URL, or the listen address on localhost.
func publicURL(cfg *config.Config) string {
	if cfg.PublicURL != "" {
		return cfg.PublicURL
	}
	if strings.HasPrefix(cfg.ListenAddr, ":") {
		return "http://localhost" + cfg.ListenAddr + "/"
	}
	return "http://" + cfg.ListenAddr + "/"
}
