// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the bridge server configuration from flags,
// environment variables and an optional config file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys of the configuration values. Environment variables use the upper
// case key, e.g. LISTEN_ADDR.
const (
	KeyProjectID       = "project_id"
	KeyLocation        = "location"
	KeyAgentEngineID   = "agent_engine_id"
	KeyListenAddr      = "listen_addr"
	KeyPublicURL       = "public_url"
	KeySessionStore    = "session_store"
	KeySessionDSN      = "session_dsn"
	KeySessionTTL      = "session_ttl"
	KeySessionCapacity = "session_capacity"
	KeyTaskStore       = "task_store"
	KeyTaskDSN         = "task_dsn"
	KeyCredentials     = "credentials"
	KeyJWTKeyFile      = "jwt_key_file"
	KeyJWTSecret       = "jwt_secret"
	KeyJWTIssuer       = "jwt_issuer"
	KeyPersonaFile     = "persona_file"
	KeyScriptFile      = "script_file"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyRefreshBuffer   = "token_refresh_buffer"
)

// TelemetryEnv is the tri-state switch for telemetry export.
const TelemetryEnv = "GOOGLE_CLOUD_AGENT_ENGINE_ENABLE_TELEMETRY"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreLRU    = "lru"
	StoreSQLite = "sqlite"
)

// Credential kinds.
const (
	CredentialsADC  = "adc"
	CredentialsJWT  = "jwt"
	CredentialsNone = "none"
)

// Config is the server configuration.
type Config struct {
	ProjectID     string
	Location      string
	AgentEngineID string

	ListenAddr string
	PublicURL  string

	SessionStore    string
	SessionDSN      string
	SessionTTL      time.Duration
	SessionCapacity int

	TaskStore string
	TaskDSN   string

	Credentials   string
	JWTKeyFile    string
	JWTSecret     string
	JWTIssuer     string
	RefreshBuffer time.Duration

	PersonaFile string
	ScriptFile  string

	LogLevel  string
	LogFormat string

	// Telemetry is nil when TelemetryEnv is unset or unrecognized.
	Telemetry *bool
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyLocation, "us-central1")
	v.SetDefault(KeyListenAddr, ":8080")
	v.SetDefault(KeySessionStore, StoreMemory)
	v.SetDefault(KeySessionTTL, 24*time.Hour)
	v.SetDefault(KeySessionCapacity, 10_000)
	v.SetDefault(KeyTaskStore, StoreMemory)
	v.SetDefault(KeyCredentials, CredentialsADC)
	v.SetDefault(KeyJWTIssuer, "a2a-bridge")
	v.SetDefault(KeyRefreshBuffer, 300*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyProjectID, "PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	_ = v.BindEnv(KeyLocation, "LOCATION", "GOOGLE_CLOUD_LOCATION")
	return v
}

// Load reads the configuration from v, first merging the config file when
// one is set.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", configFile, err)
		}
	}

	cfg := &Config{
		ProjectID:       v.GetString(KeyProjectID),
		Location:        v.GetString(KeyLocation),
		AgentEngineID:   v.GetString(KeyAgentEngineID),
		ListenAddr:      v.GetString(KeyListenAddr),
		PublicURL:       v.GetString(KeyPublicURL),
		SessionStore:    strings.ToLower(v.GetString(KeySessionStore)),
		SessionDSN:      v.GetString(KeySessionDSN),
		SessionTTL:      v.GetDuration(KeySessionTTL),
		SessionCapacity: v.GetInt(KeySessionCapacity),
		TaskStore:       strings.ToLower(v.GetString(KeyTaskStore)),
		TaskDSN:         v.GetString(KeyTaskDSN),
		Credentials:     strings.ToLower(v.GetString(KeyCredentials)),
		JWTKeyFile:      v.GetString(KeyJWTKeyFile),
		JWTSecret:       v.GetString(KeyJWTSecret),
		JWTIssuer:       v.GetString(KeyJWTIssuer),
		RefreshBuffer:   v.GetDuration(KeyRefreshBuffer),
		PersonaFile:     v.GetString(KeyPersonaFile),
		ScriptFile:      v.GetString(KeyScriptFile),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		Telemetry:       TelemetryEnabled(os.Getenv(TelemetryEnv)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values and their dependencies.
func (c *Config) Validate() error {
	switch c.SessionStore {
	case StoreMemory, StoreLRU:
	case StoreSQLite:
		if c.SessionDSN == "" {
			return fmt.Errorf("%s is required for the sqlite session store", KeySessionDSN)
		}
	default:
		return fmt.Errorf("unknown %s %q", KeySessionStore, c.SessionStore)
	}
	switch c.TaskStore {
	case StoreMemory:
	case StoreSQLite:
		if c.TaskDSN == "" {
			return fmt.Errorf("%s is required for the sqlite task store", KeyTaskDSN)
		}
	default:
		return fmt.Errorf("unknown %s %q", KeyTaskStore, c.TaskStore)
	}
	switch c.Credentials {
	case CredentialsADC, CredentialsNone:
	case CredentialsJWT:
		if c.JWTKeyFile == "" && c.JWTSecret == "" {
			return fmt.Errorf("%s or %s is required for jwt credentials", KeyJWTKeyFile, KeyJWTSecret)
		}
	default:
		return fmt.Errorf("unknown %s %q", KeyCredentials, c.Credentials)
	}
	if c.PersonaFile == "" {
		return fmt.Errorf("%s is required", KeyPersonaFile)
	}
	return nil
}

// TelemetryEnabled parses the tri-state telemetry switch: "true" or "1"
// enable, "false" or "0" disable, anything else leaves it unspecified.
func TelemetryEnabled(value string) *bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1":
		enabled := true
		return &enabled
	case "false", "0":
		enabled := false
		return &enabled
	default:
		return nil
	}
}
