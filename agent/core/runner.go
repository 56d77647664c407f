package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/memory"
	obs "github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/tools"
)

// ChatAgent is the default implementation of the Agent interface
type ChatAgent struct {
	Model      llm.Client
	Tools      tools.Registry
	Mem        memory.ConversationStore
	Config     AgentConfig
	Middleware []Middleware
	Plugins    []Plugin
	Processors []Processor
	Logger     zerolog.Logger
}

// ChatConfig holds configuration for ChatAgent
type ChatConfig struct {
	Model      llm.Client
	Tools      tools.Registry
	Mem        memory.ConversationStore
	Config     AgentConfig
	Middleware []Middleware
	Plugins    []Plugin
	Processors []Processor
	// Logger defaults to the global zerolog logger
	Logger *zerolog.Logger
}

// NewChatAgent creates a new ChatAgent with the given configuration
func NewChatAgent(config ChatConfig) *ChatAgent {
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	name := config.Config.Name
	if name == "" {
		name = "agent"
	}
	return &ChatAgent{
		Model:      config.Model,
		Tools:      config.Tools,
		Mem:        config.Mem,
		Config:     config.Config,
		Middleware: config.Middleware,
		Plugins:    config.Plugins,
		Processors: config.Processors,
		Logger:     logger.With().Str("agent", name).Logger(),
	}
}

// Name returns the configured agent name.
func (a *ChatAgent) Name() string { return a.Config.Name }

// Run implements the Agent interface
func (a *ChatAgent) Run(ctx context.Context, input Message) (Message, error) {
	span, ctx := obs.TracerImpl.StartSpan(ctx, "agent.run")
	defer span.End()
	span.SetAttribute(obs.AttrAgentName, a.Config.Name)

	ctx, cancel, err := a.withTimeout(ctx)
	if err != nil {
		span.SetStatus(obs.StatusCodeError, err.Error())
		return Message{}, err
	}
	defer cancel()

	session := sessionOf(input)
	span.SetAttribute(obs.AttrSessionID, session)
	messages, err := a.prepare(ctx, session, input)
	if err != nil {
		span.SetStatus(obs.StatusCodeError, err.Error())
		return Message{}, err
	}
	toolDefs := a.toolDefinitions()

	maxIterations := a.Config.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 1
	}

	var final string
	var replacedBy string
	done := false
	for iter := 0; iter < maxIterations && !done; iter++ {
		req := &llm.ChatRequest{
			Messages: messages,
			Tools:    toolDefs,
		}
		for _, mw := range a.Middleware {
			if err := mw.BeforeLLMCall(ctx, req); err != nil {
				span.SetStatus(obs.StatusCodeError, err.Error())
				return Message{}, fmt.Errorf("before llm call: %w", err)
			}
		}
		messages = req.Messages

		if text, ok := a.beforeModel(ctx, messages); ok {
			final, replacedBy, done = text, "before_model", true
			break
		}

		response, err := a.Model.Chat(ctx, req)
		if llm.IsContentFilterError(err) {
			a.Logger.Warn().Err(err).Msg("model provider refused the request")
			final, replacedBy, done = ProviderRefusal, ReplacedByProvider, true
			break
		}
		if err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return Message{}, fmt.Errorf("LLM call failed: %w", err)
		}
		for _, mw := range a.Middleware {
			if err := mw.AfterLLMResponse(ctx, response); err != nil {
				span.SetStatus(obs.StatusCodeError, err.Error())
				return Message{}, fmt.Errorf("after llm response: %w", err)
			}
		}

		if text, ok := a.afterModel(ctx, response.Content); ok {
			final, replacedBy, done = text, "after_model", true
			break
		}

		if len(response.ToolCalls) == 0 || a.Tools == nil {
			final, done = response.Content, true
			break
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})
		for _, tc := range response.ToolCalls {
			result := a.executeTool(ctx, span, tc)
			messages = append(messages, llm.Message{
				Role:       "tool",
				Name:       tc.Function.Name,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	if !done {
		err := fmt.Errorf("agent %s: no final answer after %d iterations", a.Config.Name, maxIterations)
		span.SetStatus(obs.StatusCodeError, err.Error())
		return Message{}, err
	}

	result := Message{
		Role:    "assistant",
		Content: final,
		Meta:    map[string]string{MetaSessionID: session},
	}
	if replacedBy != "" {
		result.Meta[MetaReplaced] = replacedBy
		span.AddEvent("plugin.replaced", map[string]interface{}{"hook": replacedBy})
	}

	if a.Mem != nil {
		if err := a.Mem.AppendMessage(ctx, session, result.Role, result.Content); err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return Message{}, fmt.Errorf("failed to store response: %w", err)
		}
	}
	for _, mw := range a.Middleware {
		if err := mw.AfterRun(ctx, result); err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return Message{}, fmt.Errorf("after run: %w", err)
		}
	}

	span.SetStatus(obs.StatusCodeOk, "")
	return result, nil
}

func (a *ChatAgent) withTimeout(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if a.Config.Timeout == "" {
		return ctx, func() {}, nil
	}
	timeout, err := time.ParseDuration(a.Config.Timeout)
	if err != nil {
		return ctx, func() {}, fmt.Errorf("invalid timeout duration: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

// prepare loads the session history, records the new input and returns the
// conversation to send: system prompt, processed history, input.
func (a *ChatAgent) prepare(ctx context.Context, session string, input Message) ([]llm.Message, error) {
	var history []Message
	if a.Mem != nil {
		stored, err := a.Mem.GetMessages(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		for _, m := range stored {
			history = append(history, Message{Role: m.Role, Content: m.Content, Meta: m.Meta})
		}
		for _, p := range a.Processors {
			history = p.Process(ctx, history)
		}
		if err := a.Mem.AppendMessage(ctx, session, input.Role, input.Content); err != nil {
			return nil, fmt.Errorf("failed to store message: %w", err)
		}
	}

	messages := make([]llm.Message, 0, len(history)+2)
	if a.Config.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: a.Config.SystemPrompt})
	}
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	role := input.Role
	if role == "" {
		role = "user"
	}
	return append(messages, llm.Message{Role: role, Content: input.Content}), nil
}

func (a *ChatAgent) toolDefinitions() []llm.Tool {
	if a.Tools == nil {
		return nil
	}
	var defs []llm.Tool
	for _, name := range a.Tools.List() {
		t, ok := a.Tools.Get(name)
		if !ok {
			continue
		}
		defs = append(defs, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Schema(),
			},
		})
	}
	return defs
}

func (a *ChatAgent) beforeModel(ctx context.Context, messages []llm.Message) (string, bool) {
	for _, p := range a.Plugins {
		if text, ok := p.BeforeModel(ctx, messages); ok {
			return text, true
		}
	}
	return "", false
}

func (a *ChatAgent) afterModel(ctx context.Context, response string) (string, bool) {
	for _, p := range a.Plugins {
		if text, ok := p.AfterModel(ctx, response); ok {
			return text, true
		}
	}
	return "", false
}

// executeTool runs one requested call and returns the text handed back to
// the model. Failures are reported to the model rather than ending the run.
func (a *ChatAgent) executeTool(ctx context.Context, span obs.Span, tc llm.ToolCall) string {
	name := tc.Function.Name
	if _, ok := a.Tools.Get(name); !ok {
		span.AddEvent("tool.not_found", map[string]interface{}{"tool": name})
		return toolError(fmt.Sprintf("tool %s not found", name))
	}

	input := strings.TrimSpace(tc.Function.Arguments)
	if input == "" {
		input = "{}"
	}
	args := map[string]any{}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return toolError(fmt.Sprintf("invalid arguments for %s: %v", name, err))
	}

	for _, p := range a.Plugins {
		if blocked, ok := p.BeforeTool(ctx, name, args); ok {
			span.AddEvent("tool.blocked", map[string]interface{}{"tool": name})
			a.Logger.Info().Str("tool", name).Msg("tool call replaced by plugin")
			b, err := json.Marshal(blocked)
			if err != nil {
				return toolError("tool call blocked")
			}
			return string(b)
		}
	}

	for _, mw := range a.Middleware {
		if err := mw.BeforeToolExecute(ctx, name, input); err != nil {
			return toolError(err.Error())
		}
	}

	result, err := a.Tools.Execute(ctx, name, input)
	for _, mw := range a.Middleware {
		if mwErr := mw.AfterToolExecute(ctx, name, result, err); mwErr != nil && err == nil {
			err = mwErr
		}
	}
	if err != nil {
		a.Logger.Warn().Err(err).Str("tool", name).Msg("tool execution failed")
		return toolError(err.Error())
	}
	a.Logger.Debug().Str("tool", name).Msg("tool executed")
	return result
}

func toolError(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}

// RunStream implements the Agent interface for streaming responses. Chunks
// are forwarded as they arrive only when the agent has no tools or plugins,
// since both need the complete response before anything reaches the caller.
// The last message sent is always the complete answer.
func (a *ChatAgent) RunStream(ctx context.Context, input Message, output chan<- Message) error {
	defer close(output)

	hasTools := a.Tools != nil && len(a.Tools.List()) > 0
	if hasTools || len(a.Plugins) > 0 || len(a.Middleware) > 0 {
		result, err := a.Run(ctx, input)
		if err != nil {
			return err
		}
		return send(ctx, output, result)
	}

	ctx, cancel, err := a.withTimeout(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	session := sessionOf(input)
	messages, err := a.prepare(ctx, session, input)
	if err != nil {
		return err
	}

	chunks := make(chan *llm.Response)
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Model.Stream(ctx, &llm.ChatRequest{Messages: messages}, chunks)
	}()

	var full strings.Builder
	for chunk := range chunks {
		if chunk == nil || chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if err := send(ctx, output, Message{Role: "assistant", Content: chunk.Content, Meta: map[string]string{"partial": "true"}}); err != nil {
			return err
		}
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("LLM stream failed: %w", err)
	}

	result := Message{Role: "assistant", Content: full.String(), Meta: map[string]string{MetaSessionID: session}}
	if a.Mem != nil {
		if err := a.Mem.AppendMessage(ctx, session, result.Role, result.Content); err != nil {
			return fmt.Errorf("failed to store response: %w", err)
		}
	}
	return send(ctx, output, result)
}

func send(ctx context.Context, output chan<- Message, m Message) error {
	select {
	case output <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Agent = (*ChatAgent)(nil)
