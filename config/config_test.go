package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Screen.Backend != "none" || !cfg.Screen.CheckInput || cfg.Screen.BlockThreshold != 0.7 {
		t.Fatalf("unexpected screen defaults %+v", cfg.Screen)
	}
	if cfg.ToolServers["inventory"].Command != SelfCommand {
		t.Fatalf("inventory server should default to this binary")
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	data := []byte(`
model:
  provider: openai
  name: gpt-4o-mini
screen:
  backend: cloud
  block_threshold: 0.5
  dry_run: true
  check_tool_calls: true
  cloud:
    timeout: 5s
memory:
  backend: redis
  ttl: 1h
agents:
  guardrails:
    deny: [ignore previous instructions]
    max_input_chars: 2000
tool_servers:
  inventory:
    command: inventory-server
  shipping:
    command: shipping-server
    timeout: 15s
`)
	cfg, err := Parse(data, env(map[string]string{
		"GOOGLE_CLOUD_PROJECT": "demo-project",
		"REDIS_URL":            "redis://localhost:6379/0",
		"LOG_LEVEL":            "debug",
	}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Model.APIKeyEnv != "OPENAI_API_KEY" {
		t.Fatalf("api key env should follow provider, got %q", cfg.Model.APIKeyEnv)
	}
	if cfg.Screen.Judge.Provider != "openai" || cfg.Screen.Judge.APIKeyEnv != "OPENAI_API_KEY" {
		t.Fatalf("judge should follow the model provider: %+v", cfg.Screen.Judge)
	}
	if cfg.Screen.BlockThreshold != 0.5 || !cfg.Screen.DryRun || !cfg.Screen.CheckToolCalls || !cfg.Screen.CheckOutput {
		t.Fatalf("inline screen config not decoded: %+v", cfg.Screen.Config)
	}
	if cfg.Screen.Cloud.Project != "demo-project" || cfg.Screen.Cloud.Timeout != 5*time.Second || cfg.Screen.Cloud.Location != "global" {
		t.Fatalf("unexpected cloud config %+v", cfg.Screen.Cloud)
	}
	if cfg.Memory.TTL != time.Hour || cfg.Memory.RedisURL == "" || cfg.Memory.MaxMessages != 100 {
		t.Fatalf("unexpected memory config %+v", cfg.Memory)
	}
	if cfg.ToolServers["shipping"].Name != "shipping" || cfg.ToolServers["shipping"].Timeout != 15*time.Second {
		t.Fatalf("unexpected tool server %+v", cfg.ToolServers["shipping"])
	}
	if !cfg.Agents.Guardrails.Enabled() || cfg.Agents.Guardrails.MaxInputChars != 2000 || cfg.Agents.MaxIterations != 6 {
		t.Fatalf("unexpected agents config %+v", cfg.Agents)
	}
	if Default().Agents.Guardrails.Enabled() {
		t.Fatalf("guardrails should be off by default")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("LOG_LEVEL not applied")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]func(*Config){
		"threshold":      func(c *Config) { c.Screen.BlockThreshold = 1.2 },
		"backend":        func(c *Config) { c.Screen.Backend = "regex" },
		"provider":       func(c *Config) { c.Model.Provider = "llama" },
		"cloud project":  func(c *Config) { c.Screen.Backend = "cloud"; c.Screen.Cloud.Project = "" },
		"judge provider": func(c *Config) { c.Screen.Backend = "judge"; c.Screen.Judge.Provider = "x" },
		"redis url":      func(c *Config) { c.Memory.Backend = "redis"; c.Memory.RedisURL = "" },
		"memory":         func(c *Config) { c.Memory.Backend = "sqlite" },
		"audit dsn":      func(c *Config) { c.Audit.Backend = "postgres"; c.Audit.DSN = "" },
		"tracing":        func(c *Config) { c.Telemetry.Tracing = "jaeger" },
		"tool server":    func(c *Config) { delete(c.ToolServers, "shipping") },
		"timeout":        func(c *Config) { c.Agents.Timeout = "soon" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected defaults, got %+v", cfg.Server)
	}
}

func TestLoadFileAndPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cs.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)
	if Path() != path {
		t.Fatalf("Path() ignored %s", EnvConfigPath)
	}
	cfg, err := Load(Path())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port not read from file")
	}

	if err := os.WriteFile(path, []byte("server: [1"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
