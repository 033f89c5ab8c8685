// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/go-a2a/a2a-bridge/bridge"
	"github.com/go-a2a/a2a-bridge/bridge/sessionstore"
	"github.com/go-a2a/a2a-bridge/config"
	"github.com/go-a2a/a2a-bridge/credential"
	"github.com/go-a2a/a2a-bridge/runtime"
	"github.com/go-a2a/a2a-bridge/runtime/scripted"
	"github.com/go-a2a/a2a-bridge/runtime/vertex"
	"github.com/go-a2a/a2a-bridge/server/task"
)

// databases opens each sqlite DSN once, so stores sharing a file share a pool.
type databases struct {
	open map[string]*gorm.DB
}

func (d *databases) get(dsn string) (*gorm.DB, error) {
	if db, ok := d.open[dsn]; ok {
		return db, nil
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer at a time
	sqlDB.SetMaxOpenConns(1)

	if d.open == nil {
		d.open = make(map[string]*gorm.DB)
	}
	d.open[dsn] = db
	return db, nil
}

// Close closes every opened database.
func (d *databases) Close() error {
	var errs []error
	for _, db := range d.open {
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

func newCredentialSource(cfg *config.Config) (credential.Source, error) {
	switch cfg.Credentials {
	case config.CredentialsJWT:
		if cfg.JWTKeyFile != "" {
			return credential.LoadKeyFile(cfg.JWTIssuer, cfg.JWTKeyFile)
		}
		return credential.NewHMACSource(cfg.JWTIssuer, []byte(cfg.JWTSecret))
	case config.CredentialsNone:
		return credential.NoneSource{}, nil
	default:
		return &credential.IDTokenSource{}, nil
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config, dbs *databases) (bridge.SessionStore, error) {
	switch cfg.SessionStore {
	case config.StoreLRU:
		return sessionstore.NewLRUStore(cfg.SessionCapacity, cfg.SessionTTL), nil
	case config.StoreSQLite:
		db, err := dbs.get(cfg.SessionDSN)
		if err != nil {
			return nil, err
		}
		return sessionstore.NewGormStore(ctx, sessionstore.GormStoreConfig{DB: db, CreateTable: true})
	default:
		return bridge.NewMemoryStore(), nil
	}
}

func newTaskStore(ctx context.Context, cfg *config.Config, dbs *databases) (task.TaskStore, error) {
	if cfg.TaskStore != config.StoreSQLite {
		return task.NewInMemoryTaskStore(), nil
	}
	db, err := dbs.get(cfg.TaskDSN)
	if err != nil {
		return nil, err
	}
	return task.NewDatabaseTaskStore(ctx, task.DatabaseTaskStoreConfig{DB: db, CreateTable: true})
}

// newBridgeOptions selects the model and backend. With an agent engine id
// the Vertex services and model share one client; without one the bridge
// runs on in-memory services and needs a scripted model.
func newBridgeOptions(cfg *config.Config, logger *slog.Logger) ([]bridge.Option, error) {
	var model runtime.Model
	if cfg.ScriptFile != "" {
		sc, err := scripted.LoadScenario(cfg.ScriptFile)
		if err != nil {
			return nil, err
		}
		logger.Info("using scripted model", slog.String("scenario", sc.Name), slog.Int("steps", len(sc.Steps)))
		model = scripted.New(sc)
	}

	var opts []bridge.Option
	if cfg.AgentEngineID != "" {
		client, err := vertex.NewClient(cfg.ProjectID, cfg.Location, cfg.AgentEngineID, vertex.WithLogger(logger))
		if err != nil {
			return nil, &bridge.ConfigurationError{Key: config.KeyProjectID, Reason: err.Error()}
		}
		opts = append(opts, bridge.WithBackend(func(context.Context, bridge.Config) (bridge.Backend, error) {
			return bridge.Backend{
				Sessions: vertex.NewSessionService(client),
				Memory:   vertex.NewMemoryBankService(client),
			}, nil
		}))
		if model == nil {
			model = vertex.NewModel(client)
		}
	}
	if model == nil {
		return nil, &bridge.ConfigurationError{Key: config.KeyScriptFile, Reason: "required without " + config.KeyAgentEngineID}
	}
	return append(opts, bridge.WithModel(model)), nil
}

// closeAll closes c, logging a failure.
func closeAll(logger *slog.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close failed", slog.String("resource", name), slog.Any("error", err))
	}
}
