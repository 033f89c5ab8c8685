// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command a2a-bridge serves one agent persona over the A2A protocol and
// sends queries to A2A agents.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-a2a/a2a-bridge/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func init() {
	// Enable the use of the random pool for UUID generation.
	uuid.EnableRandPool()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	v := config.NewViper()
	var configFile string

	root := &cobra.Command{
		Use:           "a2a-bridge",
		Short:         "Expose an agent persona as an A2A server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")
	_ = v.BindPFlag(config.KeyLogLevel, root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag(config.KeyLogFormat, root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(newServeCmd(v, &configFile), newSendCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "a2a-bridge %s\n", version)
		},
	}
}

func newServeCmd(v *viper.Viper, configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the A2A server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, *configFile)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.String("listen-addr", ":8080", "address to listen on")
	flags.String("public-url", "", "URL advertised in the agent card")
	flags.String("persona", "", "persona YAML file")
	flags.String("script", "", "scripted model scenario YAML file")
	flags.String("session-store", config.StoreMemory, "session store: memory, lru or sqlite")
	flags.String("session-dsn", "", "sqlite DSN of the session store")
	flags.String("task-store", config.StoreMemory, "task store: memory or sqlite")
	flags.String("task-dsn", "", "sqlite DSN of the task store")
	flags.String("credentials", config.CredentialsADC, "MCP credentials: adc, jwt or none")

	for key, flag := range map[string]string{
		config.KeyListenAddr:   "listen-addr",
		config.KeyPublicURL:    "public-url",
		config.KeyPersonaFile:  "persona",
		config.KeyScriptFile:   "script",
		config.KeySessionStore: "session-store",
		config.KeySessionDSN:   "session-dsn",
		config.KeyTaskStore:    "task-store",
		config.KeyTaskDSN:      "task-dsn",
		config.KeyCredentials:  "credentials",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}
