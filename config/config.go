// Package config loads the csagent YAML configuration and applies
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/mcp"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/screen"
)

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "CS_CONFIG"

// DefaultPath is read when EnvConfigPath is unset.
const DefaultPath = "csagent.yaml"

// SelfCommand as a tool server command means "re-run this binary".
const SelfCommand = "self"

// Config is the full process configuration.
type Config struct {
	Server      ServerConfig                `yaml:"server"`
	Model       ModelConfig                 `yaml:"model"`
	Agents      AgentsConfig                `yaml:"agents"`
	ToolServers map[string]mcp.ServerConfig `yaml:"tool_servers"`
	Screen      ScreenConfig                `yaml:"screen"`
	Memory      MemoryConfig                `yaml:"memory"`
	Audit       AuditConfig                 `yaml:"audit"`
	Telemetry   TelemetryConfig             `yaml:"telemetry"`
	Logging     LoggingConfig               `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ModelConfig selects the model that drives the agents.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // gemini | openai | anthropic
	Name        string  `yaml:"name"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	VertexAI    bool    `yaml:"vertex_ai"`
	Project     string  `yaml:"project"`
	Location    string  `yaml:"location"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// DisableRetry sends each request once. The judge screen always sets it.
	DisableRetry bool `yaml:"disable_retry"`
}

// APIKey reads the key from the configured environment variable.
func (m ModelConfig) APIKey() string { return os.Getenv(m.APIKeyEnv) }

type AgentsConfig struct {
	MaxIterations int    `yaml:"max_iterations"`
	Timeout       string `yaml:"timeout"`
	// HistoryMaxChars bounds the replayed session history; 0 keeps all.
	HistoryMaxChars int              `yaml:"history_max_chars"`
	Guardrails      GuardrailsConfig `yaml:"guardrails"`
}

// GuardrailsConfig is a local substring filter applied before every model
// call, ahead of any content screen.
type GuardrailsConfig struct {
	Deny          []string `yaml:"deny"`
	Allow         []string `yaml:"allow"`
	MaxInputChars int      `yaml:"max_input_chars"`
}

// Enabled reports whether any guardrail is configured.
func (g GuardrailsConfig) Enabled() bool {
	return len(g.Deny) > 0 || len(g.Allow) > 0 || g.MaxInputChars > 0
}

// ScreenConfig selects and tunes the content screen.
type ScreenConfig struct {
	Backend       string `yaml:"backend"` // none | cloud | judge
	screen.Config `yaml:",inline"`
	Cloud         CloudScreenConfig `yaml:"cloud"`
	Judge         ModelConfig       `yaml:"judge"`
}

type CloudScreenConfig struct {
	Project  string        `yaml:"project"`
	Location string        `yaml:"location"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type MemoryConfig struct {
	Backend     string        `yaml:"backend"` // inmemory | redis
	RedisURL    string        `yaml:"redis_url"`
	Prefix      string        `yaml:"prefix"`
	TTL         time.Duration `yaml:"ttl"`
	MaxMessages int           `yaml:"max_messages"`
}

type AuditConfig struct {
	Backend string `yaml:"backend"` // none | log | postgres
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
}

type TelemetryConfig struct {
	Tracing string `yaml:"tracing"` // none | stdout
	Metrics bool   `yaml:"metrics"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

// Path returns the config path from the environment, or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads configuration from a YAML file. If the file doesn't exist, it
// returns the default config. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			applyEnv(cfg, os.Getenv)
			return cfg, nil
		}
		return nil, err
	}
	return Parse(data, os.Getenv)
}

// Parse decodes YAML on top of the defaults and applies overrides from
// getenv. Unset API key variables and the judge provider follow the chosen
// model provider.
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	cfg := base()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)
	applyEnv(cfg, getenv)
	return cfg, nil
}

// Default returns the built-in configuration: Gemini agents, no screen,
// in-memory history and both tool servers run from this binary. Model names
// are left empty so each provider client picks its own default.
func Default() *Config {
	cfg := base()
	applyDefaults(cfg)
	return cfg
}

func base() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, ReadTimeout: 30 * time.Second, WriteTimeout: 120 * time.Second},
		Model:  ModelConfig{Provider: "gemini"},
		Agents: AgentsConfig{MaxIterations: 6, Timeout: "120s", HistoryMaxChars: 16000},
		ToolServers: map[string]mcp.ServerConfig{
			"inventory": {Name: "inventory", Command: SelfCommand, Args: []string{"tool-server", "inventory"}},
			"shipping":  {Name: "shipping", Command: SelfCommand, Args: []string{"tool-server", "shipping"}},
		},
		Screen: ScreenConfig{
			Backend: string(screen.BackendNone),
			Config:  screen.DefaultConfig(),
			Cloud:   CloudScreenConfig{Location: "global", Timeout: 10 * time.Second},
		},
		Memory:    MemoryConfig{Backend: "inmemory", Prefix: "csagent", TTL: 24 * time.Hour, MaxMessages: 100},
		Audit:     AuditConfig{Backend: "log"},
		Telemetry: TelemetryConfig{Tracing: "none", Metrics: true},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	for name, sc := range cfg.ToolServers {
		if sc.Name == "" {
			sc.Name = name
			cfg.ToolServers[name] = sc
		}
	}
	if cfg.Model.APIKeyEnv == "" {
		cfg.Model.APIKeyEnv = defaultKeyEnv(cfg.Model.Provider)
	}
	if cfg.Screen.Judge.Provider == "" {
		cfg.Screen.Judge.Provider = cfg.Model.Provider
	}
	if cfg.Screen.Judge.APIKeyEnv == "" {
		cfg.Screen.Judge.APIKeyEnv = defaultKeyEnv(cfg.Screen.Judge.Provider)
	}
	if cfg.Screen.Cloud.Location == "" {
		cfg.Screen.Cloud.Location = "global"
	}
	if cfg.Audit.Table == "" {
		cfg.Audit.Table = "screen_violations"
	}
}

func defaultKeyEnv(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return "GOOGLE_API_KEY"
	}
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv("GOOGLE_CLOUD_PROJECT"); v != "" && cfg.Screen.Cloud.Project == "" {
		cfg.Screen.Cloud.Project = v
	}
	if v := getenv("REDIS_URL"); v != "" && cfg.Memory.RedisURL == "" {
		cfg.Memory.RedisURL = v
	}
	if v := getenv("DATABASE_URL"); v != "" && cfg.Audit.DSN == "" {
		cfg.Audit.DSN = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := validateProvider("model", c.Model.Provider); err != nil {
		return err
	}
	if err := c.Screen.Config.Validate(); err != nil {
		return fmt.Errorf("screen: %w", err)
	}
	switch screen.Backend(c.Screen.Backend) {
	case "", screen.BackendNone:
	case screen.BackendCloud:
		if c.Screen.Cloud.Project == "" {
			return fmt.Errorf("screen: cloud backend needs cloud.project or GOOGLE_CLOUD_PROJECT")
		}
	case screen.BackendJudge:
		if err := validateProvider("screen.judge", c.Screen.Judge.Provider); err != nil {
			return err
		}
	default:
		return fmt.Errorf("screen: unknown backend %q", c.Screen.Backend)
	}
	switch c.Memory.Backend {
	case "", "inmemory":
	case "redis":
		if c.Memory.RedisURL == "" {
			return fmt.Errorf("memory: redis backend needs redis_url or REDIS_URL")
		}
	default:
		return fmt.Errorf("memory: unknown backend %q", c.Memory.Backend)
	}
	switch c.Audit.Backend {
	case "", "none", "log":
	case "postgres":
		if c.Audit.DSN == "" {
			return fmt.Errorf("audit: postgres backend needs dsn or DATABASE_URL")
		}
	default:
		return fmt.Errorf("audit: unknown backend %q", c.Audit.Backend)
	}
	switch c.Telemetry.Tracing {
	case "", "none", "stdout":
	default:
		return fmt.Errorf("telemetry: unknown tracing exporter %q", c.Telemetry.Tracing)
	}
	for _, name := range []string{"inventory", "shipping"} {
		sc, ok := c.ToolServers[name]
		if !ok || sc.Command == "" {
			return fmt.Errorf("tool_servers: %s needs a command", name)
		}
	}
	if c.Agents.Timeout != "" {
		if _, err := time.ParseDuration(c.Agents.Timeout); err != nil {
			return fmt.Errorf("agents: timeout: %w", err)
		}
	}
	return nil
}

func validateProvider(field, p string) error {
	switch p {
	case "gemini", "openai", "anthropic":
		return nil
	}
	return fmt.Errorf("%s: unknown provider %q", field, p)
}
