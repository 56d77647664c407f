package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/agent/core"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/agents"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/config"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/mcp"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/screen"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/screen/audit"
)

type scriptedAgent struct {
	fail     string
	sessions map[string]bool
}

func (a *scriptedAgent) Run(ctx context.Context, in core.Message) (core.Message, error) {
	if a.sessions == nil {
		a.sessions = map[string]bool{}
	}
	a.sessions[in.Meta[core.MetaSessionID]] = true
	if in.Content == a.fail {
		return core.Message{}, errors.New("model unavailable")
	}
	meta := map[string]string{}
	if strings.Contains(in.Content, "return") {
		meta[core.MetaReplaced] = "after_model"
	}
	return core.Message{Role: "assistant", Content: "answer to " + in.Content, Meta: meta}, nil
}

func (a *scriptedAgent) RunStream(ctx context.Context, in core.Message, out chan<- core.Message) error {
	defer close(out)
	return nil
}

func TestRunDemo(t *testing.T) {
	agent := &scriptedAgent{}
	var out bytes.Buffer
	if err := runDemo(context.Background(), agent, &out); err != nil {
		t.Fatalf("runDemo: %v", err)
	}
	text := out.String()
	for _, q := range agents.DemoQueries {
		if !strings.Contains(text, "Response: answer to "+q.Query) {
			t.Fatalf("missing answer for %q:\n%s", q.Query, text)
		}
	}
	if !strings.Contains(text, "(replaced by screen at after_model)") {
		t.Fatalf("replacement not reported:\n%s", text)
	}
	if len(agent.sessions) != len(agents.DemoQueries) {
		t.Fatalf("each query should get its own session, got %d", len(agent.sessions))
	}
}

func TestRunDemoReportsFailures(t *testing.T) {
	agent := &scriptedAgent{fail: agents.DemoQueries[2].Query}
	var out bytes.Buffer
	err := runDemo(context.Background(), agent, &out)
	if err == nil || !strings.Contains(err.Error(), "1 of 6") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(out.String(), "Error: model unavailable") {
		t.Fatalf("failure not printed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "answer to "+agents.DemoQueries[5].Query) {
		t.Fatalf("demo should continue after a failure")
	}
}

func TestResolveCommand(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Skip(err)
	}
	sc, err := resolveCommand(mcp.ServerConfig{Command: config.SelfCommand, Args: []string{"tool-server", "inventory"}})
	if err != nil {
		t.Fatal(err)
	}
	if sc.Command != exe || sc.Args[1] != "inventory" {
		t.Fatalf("unexpected %+v", sc)
	}
	sc, _ = resolveCommand(mcp.ServerConfig{Command: "inventory-server"})
	if sc.Command != "inventory-server" {
		t.Fatalf("explicit command rewritten: %q", sc.Command)
	}
}

func TestConnectToolServersRequiresBoth(t *testing.T) {
	_, err := connectToolServers(context.Background(), map[string]mcp.ServerConfig{}, zerolog.Nop())
	if err == nil {
		t.Fatalf("expected error for missing tool servers")
	}
}

func TestNewModel(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	t.Setenv("TEST_EMPTY_KEY", "")

	m, err := newModel(context.Background(), config.ModelConfig{Provider: "openai", APIKeyEnv: "TEST_OPENAI_KEY"})
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if m.Provider() != llm.ProviderOpenAI || m.Model() != llm.ModelGPT4oMini {
		t.Fatalf("unexpected client %s/%s", m.Provider(), m.Model())
	}
	if _, err := newModel(context.Background(), config.ModelConfig{Provider: "anthropic", APIKeyEnv: "TEST_EMPTY_KEY"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := newModel(context.Background(), config.ModelConfig{Provider: "llama"}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

func testApp(t *testing.T, mutate func(*config.Config)) *app {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	a := &app{cfg: cfg, logger: zerolog.Nop()}
	t.Cleanup(func() { a.close(context.Background()) })
	return a
}

func TestNewScreen(t *testing.T) {
	a := testApp(t, nil)
	s, err := a.newScreen(context.Background(), audit.Nop{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "none" || pluginsFor(s) != nil {
		t.Fatalf("default screen should be a no-op outside the hook chain")
	}

	t.Setenv("TEST_JUDGE_KEY", "sk-test")
	a = testApp(t, func(c *config.Config) {
		c.Screen.Backend = "judge"
		c.Screen.Judge = config.ModelConfig{Provider: "openai", APIKeyEnv: "TEST_JUDGE_KEY"}
	})
	s, err = a.newScreen(context.Background(), audit.Nop{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*screen.Judge); !ok || len(pluginsFor(s)) != 1 {
		t.Fatalf("expected judge screen in the hook chain, got %T", s)
	}

	a = testApp(t, func(c *config.Config) { c.Screen.Backend = "cloud" })
	if _, err := a.newScreen(context.Background(), audit.Nop{}); err == nil {
		t.Fatalf("cloud screen without a project should fail")
	}
}

func TestJudgeScreenCallsModelOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_JUDGE_KEY", "sk-test")
	a := testApp(t, func(c *config.Config) {
		c.Screen.Backend = "judge"
		c.Screen.Judge = config.ModelConfig{Provider: "openai", APIKeyEnv: "TEST_JUDGE_KEY", BaseURL: srv.URL}
	})
	s, err := a.newScreen(context.Background(), audit.Nop{})
	if err != nil {
		t.Fatal(err)
	}
	judge, ok := s.(*screen.Judge)
	if !ok {
		t.Fatalf("expected judge screen, got %T", s)
	}
	res := judge.Screen(context.Background(), "where is my order", screen.LabelUserInput)
	if !res.Safe || res.Err == "" {
		t.Fatalf("unavailable judge should fail open, got %+v", res)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("judge called the model %d times, want 1", n)
	}
}

func TestNewAuditor(t *testing.T) {
	a := testApp(t, nil)
	au, err := a.newAuditor(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := au.(*audit.LogAuditor); !ok {
		t.Fatalf("default auditor should log, got %T", au)
	}
	a = testApp(t, func(c *config.Config) { c.Audit.Backend = "none" })
	if au, _ := a.newAuditor(context.Background()); au != (audit.Nop{}) {
		t.Fatalf("expected Nop auditor, got %T", au)
	}
}

func TestNewMemoryRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	a := testApp(t, func(c *config.Config) {
		c.Memory.Backend = "redis"
		c.Memory.RedisURL = "redis://" + mr.Addr()
	})
	mem, err := a.newMemory()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := mem.AppendMessage(ctx, "s1", "user", "hello"); err != nil {
		t.Fatal(err)
	}
	msgs, err := mem.GetMessages(ctx, "s1")
	if err != nil || len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Fatalf("unexpected history %v %v", msgs, err)
	}
	if len(a.closers) != 1 {
		t.Fatalf("redis client should be closed with the app")
	}
	if !mr.Exists("csagent:conversation:s1") {
		t.Fatalf("expected prefixed key, have %v", mr.Keys())
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := t.TempDir() + "/bad.yaml"
	if err := os.WriteFile(path, []byte("screen:\n  block_threshold: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestMiddlewareAndProcessors(t *testing.T) {
	if middlewareFor(config.GuardrailsConfig{}) != nil {
		t.Fatalf("no guardrails configured, no middleware expected")
	}
	mw := middlewareFor(config.GuardrailsConfig{Deny: []string{"jailbreak"}})
	g, ok := mw[0].(*core.SimpleGuardrails)
	if !ok || g.DenySubstrings[0] != "jailbreak" {
		t.Fatalf("unexpected middleware %#v", mw)
	}
	if n := len(processorsFor(config.AgentsConfig{HistoryMaxChars: 100})); n != 2 {
		t.Fatalf("expected filter and limiter, got %d", n)
	}
	if n := len(processorsFor(config.AgentsConfig{})); n != 1 {
		t.Fatalf("expected only the tool filter, got %d", n)
	}
}
