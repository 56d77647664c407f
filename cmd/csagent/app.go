package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	core "github.com/suryapa1/adk-simple-mcp-demo-with-armour/agent/core"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/agents"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/config"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm/anthropic"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm/gemini"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm/openai"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/mcp"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/memory"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/memory/inmemory"
	redisstore "github.com/suryapa1/adk-simple-mcp-demo-with-armour/memory/redis"
	obs "github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability/otel"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability/prom"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/screen"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/screen/armor"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/screen/audit"
)

// app is the wired process: tool servers, model, screen and agent tree.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	team    *agents.Team
	screen  screen.Screen
	metrics *prom.Exporter
	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	if err := a.setupTelemetry(); err != nil {
		return nil, err
	}

	toolsets, err := connectToolServers(ctx, cfg.ToolServers, logger)
	if err != nil {
		return nil, err
	}
	for _, ts := range toolsets {
		a.onClose(func(context.Context) error { return ts.Close() })
	}

	model, err := newModel(ctx, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	auditor, err := a.newAuditor(ctx)
	if err != nil {
		return nil, err
	}
	scr, err := a.newScreen(ctx, auditor)
	if err != nil {
		return nil, err
	}
	a.screen = scr
	a.onClose(func(context.Context) error { return scr.Close() })

	mem, err := a.newMemory()
	if err != nil {
		return nil, err
	}

	team, err := agents.Build(agents.Options{
		Model:          llm.NewInstrumentedClient(model),
		InventoryTools: toolsets["inventory"].Registry,
		ShippingTools:  toolsets["shipping"].Registry,
		Memory:         mem,
		Processors:     processorsFor(cfg.Agents),
		Middleware:     middlewareFor(cfg.Agents.Guardrails),
		Plugins:        pluginsFor(scr),
		MaxIterations:  cfg.Agents.MaxIterations,
		Timeout:        cfg.Agents.Timeout,
		Logger:         &logger,
	})
	if err != nil {
		return nil, err
	}
	a.team = team
	obs.MetricsImpl.SetActiveAgents(3)

	logger.Info().
		Str("provider", cfg.Model.Provider).
		Str("model", model.Model()).
		Str("screen", scr.Name()).
		Str("memory", cfg.Memory.Backend).
		Msg("customer service agents ready")
	return a, nil
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn().Err(err).Msg("shutdown")
		}
	}
	a.closers = nil
}

func (a *app) setupTelemetry() error {
	if a.cfg.Telemetry.Metrics {
		a.metrics = prom.New()
		obs.SetMetrics(a.metrics)
	}
	switch a.cfg.Telemetry.Tracing {
	case "stdout":
		tp, err := otel.NewStdoutProvider(os.Stderr)
		if err != nil {
			return err
		}
		obs.SetTracer(otel.NewTracer("csagent", tp))
		a.onClose(tp.Shutdown)
	}
	return nil
}

// pluginsFor leaves the no-op screen out of the hook chain.
func pluginsFor(s screen.Screen) []core.Plugin {
	if _, ok := s.(screen.Noop); ok {
		return nil
	}
	return []core.Plugin{s}
}

func middlewareFor(g config.GuardrailsConfig) []core.Middleware {
	if !g.Enabled() {
		return nil
	}
	return []core.Middleware{&core.SimpleGuardrails{
		DenySubstrings:  g.Deny,
		AllowSubstrings: g.Allow,
		MaxInputChars:   g.MaxInputChars,
	}}
}

// processorsFor drops stored tool messages and bounds the replayed history.
func processorsFor(ac config.AgentsConfig) []core.Processor {
	procs := []core.Processor{core.ToolCallFilter{}}
	if ac.HistoryMaxChars > 0 {
		procs = append(procs, core.TokenLimiter{MaxChars: ac.HistoryMaxChars})
	}
	return procs
}

// resolveCommand turns the "self" command into this executable's path.
func resolveCommand(sc mcp.ServerConfig) (mcp.ServerConfig, error) {
	if sc.Command != config.SelfCommand {
		return sc, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return sc, fmt.Errorf("resolve executable: %w", err)
	}
	sc.Command = exe
	return sc, nil
}

// connectToolServers launches the inventory and shipping servers
// concurrently. Either failing closes the other.
func connectToolServers(ctx context.Context, servers map[string]mcp.ServerConfig, logger zerolog.Logger) (map[string]*mcp.Toolset, error) {
	names := []string{"inventory", "shipping"}
	sets := make([]*mcp.Toolset, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			sc, ok := servers[name]
			if !ok {
				return fmt.Errorf("tool server %q not configured", name)
			}
			sc, err := resolveCommand(sc)
			if err != nil {
				return err
			}
			start := time.Now()
			ts, err := mcp.Connect(gctx, sc)
			if err != nil {
				return err
			}
			sets[i] = ts
			logger.Debug().Str("server", name).Dur("startup", time.Since(start)).Msg("tool server started")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, ts := range sets {
			_ = ts.Close()
		}
		return nil, err
	}

	out := make(map[string]*mcp.Toolset, len(names))
	for i, name := range names {
		out[name] = sets[i]
	}
	return out, nil
}

// newModel builds the provider client named by mc.
func newModel(ctx context.Context, mc config.ModelConfig) (llm.Client, error) {
	key := mc.APIKey()
	switch mc.Provider {
	case "gemini":
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:       key,
			Model:        mc.Name,
			VertexAI:     mc.VertexAI,
			Project:      mc.Project,
			Location:     mc.Location,
			BaseURL:      mc.BaseURL,
			Temperature:  mc.Temperature,
			MaxTokens:    mc.MaxTokens,
			DisableRetry: mc.DisableRetry,
		})
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:       key,
			Model:        mc.Name,
			BaseURL:      mc.BaseURL,
			Temperature:  mc.Temperature,
			MaxTokens:    mc.MaxTokens,
			DisableRetry: mc.DisableRetry,
		})
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey:       key,
			Model:        mc.Name,
			BaseURL:      mc.BaseURL,
			Temperature:  mc.Temperature,
			MaxTokens:    mc.MaxTokens,
			DisableRetry: mc.DisableRetry,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", mc.Provider)
	}
}

func (a *app) newAuditor(ctx context.Context) (audit.Auditor, error) {
	switch a.cfg.Audit.Backend {
	case "postgres":
		pa, err := audit.NewPostgresAuditor(ctx, a.cfg.Audit.DSN, a.cfg.Audit.Table)
		if err != nil {
			return nil, fmt.Errorf("audit: %w", err)
		}
		a.onClose(func(context.Context) error {
			pa.Close()
			return nil
		})
		return pa, nil
	case "none":
		return audit.Nop{}, nil
	default:
		return audit.NewLogAuditor(a.logger), nil
	}
}

func (a *app) newScreen(ctx context.Context, auditor audit.Auditor) (screen.Screen, error) {
	sc := a.cfg.Screen
	opts := screen.Options{
		Backend: screen.Backend(sc.Backend),
		Config:  sc.Config,
		Logger:  &a.logger,
		Auditor: auditor,
	}
	switch opts.Backend {
	case screen.BackendCloud:
		client, err := armor.NewClient(ctx, armor.Config{
			Project:  sc.Cloud.Project,
			Location: sc.Cloud.Location,
			Endpoint: sc.Cloud.Endpoint,
			Timeout:  sc.Cloud.Timeout,
		})
		if err != nil {
			return nil, err
		}
		opts.Classifier = client
		opts.Parent = client.Parent()
	case screen.BackendJudge:
		jc := sc.Judge
		jc.DisableRetry = true
		judge, err := newModel(ctx, jc)
		if err != nil {
			return nil, fmt.Errorf("judge model: %w", err)
		}
		opts.Model = llm.NewInstrumentedClient(judge)
	}
	return screen.New(opts)
}

func (a *app) newMemory() (memory.ConversationStore, error) {
	mc := a.cfg.Memory
	if mc.Backend != "redis" {
		return inmemory.NewConversationStore(), nil
	}
	client, err := redisstore.NewClient(mc.RedisURL)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return client.Close() })
	return redisstore.NewConversationStore(client, mc.Prefix, mc.TTL, mc.MaxMessages), nil
}
