package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/tools"
)

// ServerConfig describes how to launch a tool server as a child process.
type ServerConfig struct {
	Name    string        `yaml:"name"`
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Env     []string      `yaml:"env"`
	Timeout time.Duration `yaml:"timeout"`
	// Tools limits which of the server's tools are exposed. Empty means all.
	Tools []string `yaml:"tools"`
}

// Toolset is a live connection to one tool server with its tools registered
// in a registry of their own.
type Toolset struct {
	Name     string
	Registry *tools.DefaultRegistry
	client   *SessionClient
}

// Connect launches cfg.Command, speaks MCP to it over stdin/stdout and
// registers every advertised tool. The child process lives until Close.
func Connect(ctx context.Context, cfg ServerConfig) (*Toolset, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("tool server %q: empty command", cfg.Name)
	}
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Stderr = os.Stderr
	ts, err := ConnectTransport(ctx, cfg.Name, &sdkmcp.CommandTransport{Command: cmd}, cfg.Timeout, cfg.Tools...)
	if err != nil {
		return nil, err
	}
	log.Info().Str("server", cfg.Name).Str("command", cfg.Command).Strs("tools", ts.Registry.List()).Msg("tool server connected")
	return ts, nil
}

// ConnectTransport connects over an arbitrary SDK transport. A zero timeout
// uses DefaultCallTimeout for each tool call. only restricts the exposed
// tools as in RegisterTools.
func ConnectTransport(ctx context.Context, name string, transport sdkmcp.Transport, timeout time.Duration, only ...string) (*Toolset, error) {
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "csagent", Version: "v1.0.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("tool server %q: connect: %w", name, err)
	}
	sc := NewSessionClient(session)

	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	reg := tools.NewRegistry()
	if err := RegisterTools(ctx, reg, sc, timeout, only...); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("tool server %q: %w", name, err)
	}
	return &Toolset{Name: name, Registry: reg, client: sc}, nil
}

// Close ends the session, which stops the child process.
func (t *Toolset) Close() error {
	if t == nil || t.client == nil {
		return nil
	}
	return t.client.Close()
}
