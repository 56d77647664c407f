package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	core "github.com/suryapa1/adk-simple-mcp-demo-with-armour/agent/core"
)

type fakeAgent struct {
	reply string
	err   error
	got   *string
}

func (f fakeAgent) Run(ctx context.Context, input core.Message) (core.Message, error) {
	if f.got != nil {
		*f.got = input.Content
	}
	if f.err != nil {
		return core.Message{}, f.err
	}
	return core.Message{Role: "assistant", Content: f.reply + ":" + input.Content}, nil
}
func (f fakeAgent) RunStream(ctx context.Context, input core.Message, output chan<- core.Message) error {
	defer close(output)
	if f.err != nil {
		return f.err
	}
	output <- core.Message{Role: "assistant", Content: f.reply}
	return nil
}

func TestAgentToolBasics(t *testing.T) {
	at := NewAgentTool("inventory_agent", "handles stock questions", fakeAgent{reply: "ok"})
	if at.Name() != "inventory_agent" || at.Description() != "handles stock questions" {
		t.Fatalf("unexpected name/desc")
	}
	schema := at.Schema()
	props, _ := schema["properties"].(map[string]interface{})
	if _, ok := props["request"]; !ok {
		t.Fatalf("schema should declare request: %v", schema)
	}
}

func TestAgentToolExecute(t *testing.T) {
	var seen string
	at := NewAgentTool("shipping_agent", "", fakeAgent{reply: "ok", got: &seen})

	out, err := at.Execute(context.Background(), `{"request":"track SHIP-002"}`)
	if err != nil || out != "ok:track SHIP-002" {
		t.Fatalf("execute: %v %q", err, out)
	}
	if seen != "track SHIP-002" {
		t.Fatalf("sub-agent received %q", seen)
	}

	out, err = at.Execute(context.Background(), "plain text request")
	if err != nil || out != "ok:plain text request" {
		t.Fatalf("plain input: %v %q", err, out)
	}
}

func TestAgentToolErrors(t *testing.T) {
	at := NewAgentTool("a", "", nil)
	if _, err := at.Execute(context.Background(), "x"); err == nil {
		t.Fatalf("expected error on nil agent")
	}

	at.Agent = fakeAgent{reply: "ok"}
	if _, err := at.Execute(context.Background(), `{"request":"  "}`); err == nil {
		t.Fatalf("expected error on empty request")
	}

	at.Agent = fakeAgent{err: errors.New("boom")}
	_, err := at.Execute(context.Background(), `{"request":"hi"}`)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected wrapped sub-agent error, got %v", err)
	}
}
