package anthropic

import (
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
	if _, err := NewClient(Config{APIKey: "k", Model: llm.ModelGPT4o}); err == nil {
		t.Fatal("expected error for non-Anthropic model")
	}
	if _, err := NewClient(Config{APIKey: "k", Temperature: 1.5}); err == nil {
		t.Fatal("expected error for temperature above 1")
	}
}

func TestBuildRequestGroupsToolResults(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	req := c.buildRequest(&llm.ChatRequest{
		SystemPrompt: "base",
		Messages: []llm.Message{
			{Role: "system", Content: "extra"},
			{Role: "user", Content: "check P001 and TRK001"},
			{Role: "assistant", ToolCalls: []llm.ToolCall{
				{ID: "t1", Function: llm.Function{Name: "get_product_stock", Arguments: `{"product_id":"P001"}`}},
				{ID: "t2", Function: llm.Function{Name: "track_shipment", Arguments: ""}},
			}},
			{Role: "tool", ToolCallID: "t1", Content: `{"stock":150}`},
			{Role: "tool", ToolCallID: "t2", Content: `{"status":"in_transit"}`},
		},
		Tools: []llm.Tool{{Function: llm.ToolFunction{Name: "get_product_stock"}}},
	})

	if req.System != "base\n\nextra" {
		t.Fatalf("system prompt = %q", req.System)
	}
	if len(req.Messages) != 3 {
		t.Fatalf("expected user, assistant, user; got %d messages", len(req.Messages))
	}
	if req.Messages[1].Role != anthropic.RoleAssistant || len(req.Messages[1].Content) != 2 {
		t.Fatalf("assistant turn: %+v", req.Messages[1])
	}
	if string(req.Messages[1].Content[1].MessageContentToolUse.Input) != "{}" {
		t.Fatalf("empty arguments should become {}")
	}
	results := req.Messages[2]
	if results.Role != anthropic.RoleUser || len(results.Content) != 2 {
		t.Fatalf("tool results not grouped: %+v", results)
	}
	for _, block := range results.Content {
		if block.Type != anthropic.MessagesContentTypeToolResult {
			t.Fatalf("expected tool_result block, got %s", block.Type)
		}
	}
	if len(req.Tools) != 1 || req.Tools[0].InputSchema == nil {
		t.Fatalf("tool schema should default to an object: %+v", req.Tools)
	}
}
