package core

import (
	"context"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
)

// Plugin intercepts a run at the model and tool boundaries. Each hook
// returns ok=false to let the run continue unmodified.
//
// BeforeModel sees the conversation about to be sent; a replacement ends the
// run with that text and the model is not called. AfterModel sees the
// generated text; a replacement becomes the final answer and any tool calls
// in that response are dropped. BeforeTool sees a tool call's arguments; a
// returned object is used as the tool's result and the tool does not run.
type Plugin interface {
	BeforeModel(ctx context.Context, messages []llm.Message) (replacement string, ok bool)
	AfterModel(ctx context.Context, response string) (replacement string, ok bool)
	BeforeTool(ctx context.Context, tool string, args map[string]any) (result map[string]any, ok bool)
}
