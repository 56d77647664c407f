package core

import (
	"context"
	"sync"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
)

// scriptedModel replays canned responses in order and records every request.
// Once the script runs out it answers with a closing line.
type scriptedModel struct {
	mu      sync.Mutex
	replies []llm.Response
	calls   []llm.ChatRequest
	err     error
	chunks  []string
	block   bool
}

func newScriptedModel(replies ...llm.Response) *scriptedModel {
	return &scriptedModel{replies: replies}
}

func say(text string) llm.Response {
	return llm.Response{Role: "assistant", Content: text}
}

func callTool(id, name, args string) llm.Response {
	return llm.Response{Role: "assistant", ToolCalls: []llm.ToolCall{{
		ID: id, Type: "function", Function: llm.Function{Name: name, Arguments: args},
	}}}
}

func (m *scriptedModel) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, *req)
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		r := say("Is there anything else I can help you with?")
		return &r, nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return &r, nil
}

func (m *scriptedModel) Completion(ctx context.Context, prompt string) (*llm.Response, error) {
	return m.Chat(ctx, &llm.ChatRequest{Messages: []llm.Message{{Role: "user", Content: prompt}}})
}

func (m *scriptedModel) Stream(ctx context.Context, req *llm.ChatRequest, out chan<- *llm.Response) error {
	defer close(out)
	m.mu.Lock()
	m.calls = append(m.calls, *req)
	m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, c := range m.chunks {
		select {
		case out <- &llm.Response{Content: c}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *scriptedModel) Model() string          { return "scripted" }
func (m *scriptedModel) Provider() llm.Provider { return llm.ProviderGemini }
func (m *scriptedModel) Validate() error        { return nil }

func (m *scriptedModel) requests() []llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.ChatRequest(nil), m.calls...)
}
