package core

import (
	"context"
	"errors"
	"strings"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
)

// ErrGuardrailBlocked is returned (wrapped) when SimpleGuardrails rejects input.
var ErrGuardrailBlocked = errors.New("request blocked by guardrails")

// SimpleGuardrails is a local Middleware that filters the latest user message
// by substring before any model call. It complements the screening plugins,
// which consult a remote classifier.
type SimpleGuardrails struct {
	// Deny if any of these substrings appear in the user input
	DenySubstrings []string
	// Allow only if at least one of these substrings appears; if empty, allow all
	AllowSubstrings []string
	// Inputs longer than this are truncated
	MaxInputChars int
}

func (g *SimpleGuardrails) BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error {
	if req == nil || len(req.Messages) == 0 {
		return nil
	}
	last := &req.Messages[len(req.Messages)-1]
	if last.Role != "user" {
		return nil
	}
	if g.MaxInputChars > 0 && len(last.Content) > g.MaxInputChars {
		last.Content = last.Content[:g.MaxInputChars]
	}

	lower := strings.ToLower(last.Content)
	if containsAny(lower, g.DenySubstrings) {
		return ErrGuardrailBlocked
	}
	if len(g.AllowSubstrings) > 0 && !containsAny(lower, g.AllowSubstrings) {
		return errors.Join(ErrGuardrailBlocked, errors.New("no allowed topic mentioned"))
	}
	return nil
}

func containsAny(lower string, subs []string) bool {
	for _, s := range subs {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func (g *SimpleGuardrails) AfterLLMResponse(ctx context.Context, resp *llm.Response) error {
	return nil
}

func (g *SimpleGuardrails) BeforeToolExecute(ctx context.Context, toolName string, input string) error {
	return nil
}

func (g *SimpleGuardrails) AfterToolExecute(ctx context.Context, toolName string, result string, execErr error) error {
	return nil
}

func (g *SimpleGuardrails) AfterRun(ctx context.Context, final Message) error { return nil }

var _ Middleware = (*SimpleGuardrails)(nil)
