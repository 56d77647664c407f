package core

import (
	"context"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
)

// Middleware observes a run and may abort it. Unlike a Plugin, a middleware
// cannot substitute content: a non-nil error from any hook fails the run,
// except in the tool hooks where the error is reported to the model as the
// tool's result.
type Middleware interface {
	BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error
	AfterLLMResponse(ctx context.Context, resp *llm.Response) error
	BeforeToolExecute(ctx context.Context, toolName string, input string) error
	AfterToolExecute(ctx context.Context, toolName string, result string, execErr error) error
	AfterRun(ctx context.Context, final Message) error
}

// Processor rewrites the stored history before it is replayed to the model.
type Processor interface {
	Process(ctx context.Context, history []Message) []Message
}

// TokenLimiter keeps the most recent messages whose combined content fits in
// MaxChars. A single oversized latest message is still kept.
type TokenLimiter struct {
	MaxChars int
}

func (p TokenLimiter) Process(ctx context.Context, history []Message) []Message {
	if p.MaxChars <= 0 || len(history) == 0 {
		return history
	}
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		n := len(history[i].Content)
		if total+n > p.MaxChars && start < len(history) {
			break
		}
		total += n
		start = i
		if total >= p.MaxChars {
			break
		}
	}
	return history[start:]
}

// ToolCallFilter drops tool messages from the history.
type ToolCallFilter struct{}

func (ToolCallFilter) Process(ctx context.Context, history []Message) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == "tool" {
			continue
		}
		out = append(out, m)
	}
	return out
}
