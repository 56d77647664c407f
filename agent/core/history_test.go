package core

import (
	"context"
	"testing"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/memory/inmemory"
)

func conversation() []Message {
	return []Message{
		{Role: "user", Content: "Is PROD-001 in stock?"},
		{Role: "tool", Content: `{"stock":45}`},
		{Role: "assistant", Content: "Yes, 45 units."},
		{Role: "user", Content: "Track SHIP-001"},
		{Role: "assistant", Content: "In transit."},
	}
}

func TestTokenLimiter(t *testing.T) {
	h := conversation()
	if got := (TokenLimiter{}).Process(context.Background(), h); len(got) != len(h) {
		t.Fatalf("zero limit should keep everything")
	}
	got := TokenLimiter{MaxChars: 30}.Process(context.Background(), h)
	if len(got) != 2 || got[0].Content != "Track SHIP-001" {
		t.Fatalf("expected the newest exchange, got %+v", got)
	}
	huge := append(h, Message{Role: "user", Content: string(make([]byte, 100))})
	if got := (TokenLimiter{MaxChars: 30}).Process(context.Background(), huge); len(got) != 1 {
		t.Fatalf("an oversized latest message is kept alone, got %d", len(got))
	}
}

func TestToolCallFilter(t *testing.T) {
	got := ToolCallFilter{}.Process(context.Background(), conversation())
	if len(got) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got))
	}
	for _, m := range got {
		if m.Role == "tool" {
			t.Fatalf("tool message kept")
		}
	}
}

func TestProcessorsShapeReplayedHistory(t *testing.T) {
	mem := inmemory.NewConversationStore()
	ctx := context.Background()
	for _, m := range conversation() {
		_ = mem.AppendMessage(ctx, "cust-7", m.Role, m.Content)
	}
	model := newScriptedModel(say("Anything else?"))
	a := NewChatAgent(ChatConfig{
		Model:      model,
		Mem:        mem,
		Processors: []Processor{ToolCallFilter{}, TokenLimiter{MaxChars: 30}},
	})
	if _, err := a.Run(ctx, Message{Role: "user", Content: "thanks", Meta: map[string]string{MetaSessionID: "cust-7"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	sent := model.requests()[0].Messages
	if len(sent) != 3 || sent[0].Content != "Track SHIP-001" || sent[2].Content != "thanks" {
		t.Fatalf("replayed history = %+v", sent)
	}
}
