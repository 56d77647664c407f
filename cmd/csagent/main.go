// Command csagent runs the guarded customer-service agents: as an HTTP
// service, for a single question, or through the scripted demo. It also
// hosts the inventory and shipping tool servers when launched as its own
// child process.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/agent/core"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/agents"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/config"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability/prom"
	serverhttp "github.com/suryapa1/adk-simple-mcp-demo-with-armour/server/http"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/services"
)

var version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = handleServe(ctx, os.Args[2:])
	case "ask":
		err = handleAsk(ctx, os.Args[2:], os.Stdout)
	case "demo":
		err = handleDemo(ctx, os.Args[2:], os.Stdout)
	case "tool-server":
		err = handleToolServer(ctx, os.Args[2:])
	case "version":
		fmt.Printf("csagent version %s\n", version)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("command failed")
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "csagent - guarded customer service agents %s\n\n", version)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  csagent serve [--config file] [--port n]    Serve /chat, /chat/stream, /health and /metrics")
	fmt.Fprintln(w, "  csagent ask [--config file] [--session id] <question>")
	fmt.Fprintln(w, "  csagent demo [--config file]                Run the six scripted demo queries")
	fmt.Fprintln(w, "  csagent tool-server <inventory|shipping>    Serve one tool server over stdio")
	fmt.Fprintln(w, "  csagent version                             Show version information")
	fmt.Fprintln(w, "\nThe config file defaults to $CS_CONFIG or ./csagent.yaml.")
}

// load reads the config and installs the process logger. Logs go to
// stderr so stdout stays clean for answers.
func load(path string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config %s: %w", path, err)
	}
	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	observability.SetGlobalLogger(logger)
	return cfg, logger, nil
}

func handleServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	path := fs.String("config", config.Path(), "Config file")
	port := fs.Int("port", 0, "Listen port (overrides server.port)")
	fs.Parse(args)

	cfg, logger, err := load(*path)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	hc := serverhttp.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       &logger,
	}
	if a.metrics != nil {
		hc.Metrics = prom.Handler(a.metrics)
	}
	return serverhttp.NewServer(a.team.Root, hc).ListenAndServe(ctx)
}

func handleAsk(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	path := fs.String("config", config.Path(), "Config file")
	session := fs.String("session", "", "Session id to continue")
	fs.Parse(args)

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return fmt.Errorf("ask: a question is required")
	}
	cfg, logger, err := load(*path)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if *session == "" {
		*session = uuid.NewString()
	}
	answer, err := ask(ctx, a.team.Root, *session, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, answer.Content)
	return nil
}

func handleDemo(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	path := fs.String("config", config.Path(), "Config file")
	fs.Parse(args)

	cfg, logger, err := load(*path)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	return runDemo(ctx, a.team.Root, out)
}

func handleToolServer(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("tool-server: expected one of %v", services.Names())
	}
	logger, err := observability.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stderr)
	if err != nil {
		return err
	}
	observability.SetGlobalLogger(logger)
	return services.ServeStdio(ctx, args[0], version, logger)
}

func ask(ctx context.Context, agent core.Agent, session, question string) (core.Message, error) {
	return agent.Run(ctx, core.Message{
		Role:    "user",
		Content: question,
		Meta:    map[string]string{core.MetaSessionID: session},
	})
}

// runDemo sends each demo query in a fresh session and prints the answers.
// A failed query is reported and the run continues.
func runDemo(ctx context.Context, agent core.Agent, out io.Writer) error {
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(out, "%s\nMULTI-AGENT MCP DEMO\n%s\n", rule, rule)

	failed := 0
	for _, q := range agents.DemoQueries {
		fmt.Fprintf(out, "\nTEST: %s\nQuery: %s\n\n", q.Description, q.Query)
		start := time.Now()
		answer, err := ask(ctx, agent, uuid.NewString(), q.Query)
		if err != nil {
			failed++
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "Response: %s\n", answer.Content)
		if by := answer.Meta[core.MetaReplaced]; by != "" {
			fmt.Fprintf(out, "(replaced by screen at %s)\n", by)
		}
		fmt.Fprintf(out, "(%s)\n%s\n", time.Since(start).Round(time.Millisecond), rule)
	}
	if failed > 0 {
		return fmt.Errorf("demo: %d of %d queries failed", failed, len(agents.DemoQueries))
	}
	fmt.Fprintf(out, "\nALL %d QUERIES COMPLETED\n", len(agents.DemoQueries))
	return nil
}
