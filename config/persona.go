// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	a2a "github.com/go-a2a/a2a-bridge"
	"github.com/go-a2a/a2a-bridge/bridge"
)

// Persona describes one agent in a YAML file.
type Persona struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Instruction  string `yaml:"instruction"`
	Model        string `yaml:"model,omitempty"`
	MCPURLEnvVar string `yaml:"mcp_url_env_var,omitempty"`
	// RemoteAgentAddresses are base URLs of A2A agents the persona delegates
	// to. Environment references such as ${WEATHER_AGENT_URL} are expanded.
	RemoteAgentAddresses []string     `yaml:"remote_agent_addresses,omitempty"`
	StripQuery           bool         `yaml:"strip_echoed_query,omitempty"`
	Version              string       `yaml:"version,omitempty"`
	Skills               []SkillEntry `yaml:"skills,omitempty"`
}

// SkillEntry is an agent card skill.
type SkillEntry struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags,omitempty"`
	Examples    []string `yaml:"examples,omitempty"`
}

// ParsePersona decodes and validates a persona.
func ParsePersona(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse persona: %w", err)
	}
	if p.Name == "" {
		return nil, errors.New("persona name is required")
	}
	if p.MCPURLEnvVar == "" && len(p.RemoteAgentAddresses) == 0 {
		return nil, fmt.Errorf("persona %s: mcp_url_env_var or remote_agent_addresses is required", p.Name)
	}
	return &p, nil
}

// LoadPersona reads a persona file.
func LoadPersona(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load persona %q: %w", path, err)
	}
	p, err := ParsePersona(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// MCPURL resolves the MCP server URL from the environment. An empty result
// is reported by the bridge when it initializes.
func (p *Persona) MCPURL() string {
	if p.MCPURLEnvVar == "" {
		return ""
	}
	return os.Getenv(p.MCPURLEnvVar)
}

// RemoteAgents expands the remote agent addresses, dropping those that
// resolve to nothing.
func (p *Persona) RemoteAgents() []string {
	var addrs []string
	for _, a := range p.RemoteAgentAddresses {
		if a = strings.TrimSpace(os.ExpandEnv(a)); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// Bridge converts p into the bridge persona, resolving the MCP URL.
func (p *Persona) Bridge() bridge.Persona {
	return bridge.Persona{
		Name:         p.Name,
		Description:  p.Description,
		Instruction:  p.Instruction,
		Model:        p.Model,
		MCPURL:       p.MCPURL(),
		MCPURLEnv:    p.MCPURLEnvVar,
		RemoteAgents: p.RemoteAgents(),
		StripQuery:   p.StripQuery,
	}
}

// AgentCard describes the persona to A2A clients reachable at url.
func (p *Persona) AgentCard(url string) *a2a.AgentCard {
	version := p.Version
	if version == "" {
		version = "1.0.0"
	}
	card := &a2a.AgentCard{
		Name:               p.Name,
		Description:        p.Description,
		URL:                url,
		Version:            version,
		ProtocolVersion:    a2a.Version,
		Capabilities:       a2a.AgentCapabilities{Streaming: true},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
	}
	for _, s := range p.Skills {
		card.Skills = append(card.Skills, a2a.AgentSkill{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Tags:        s.Tags,
			Examples:    s.Examples,
		})
	}
	return card
}
