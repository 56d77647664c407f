package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
)

// Client implements the llm.Client interface for Anthropic Claude
type Client struct {
	client  *anthropic.Client
	config  Config
	retrier *llm.Retrier
}

// Config holds Anthropic-specific configuration
type Config struct {
	APIKey      string          `json:"api_key"`
	Model       string          `json:"model"` // e.g., "claude-3-5-sonnet-20241022"
	BaseURL     string          `json:"base_url,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
	RetryConfig llm.RetryConfig `json:"retry_config,omitempty"`
	// DisableRetry makes every call a single attempt.
	DisableRetry bool `json:"disable_retry,omitempty"`
}

// NewClient creates a new Anthropic client
func NewClient(config Config) (*Client, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.Model == "" {
		config.Model = llm.ModelClaude35Haiku
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.DisableRetry {
		config.RetryConfig = llm.RetryConfig{}
	} else if config.RetryConfig.MaxRetries == 0 {
		config.RetryConfig = llm.DefaultRetryConfig()
	}

	opts := []anthropic.ClientOption{
		anthropic.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	}
	if config.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(config.BaseURL))
	}

	return &Client{
		client:  anthropic.NewClient(config.APIKey, opts...),
		config:  config,
		retrier: llm.NewRetrier(config.RetryConfig),
	}, nil
}

func validateConfig(config Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if config.Model != "" {
		if p, err := llm.ProviderForModel(config.Model); err != nil || p != llm.ProviderAnthropic {
			return fmt.Errorf("model %s is not an Anthropic model", config.Model)
		}
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	return nil
}

// Chat implements llm.Client interface
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	start := time.Now()
	result, err := llm.Execute(c.retrier, ctx, func(ctx context.Context, attempt int) (*llm.Response, error) {
		return c.chat(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	result.Latency = time.Since(start)
	result.Timestamp = start
	return result, nil
}

func (c *Client) chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	anthReq := c.buildRequest(req)

	resp, err := c.client.CreateMessages(ctx, anthReq)
	if err != nil {
		return nil, convertError(err)
	}
	if len(resp.Content) == 0 {
		return nil, llm.NewLLMError(llm.ProviderAnthropic, llm.ErrorTypeUnknown, "no content returned")
	}

	var content strings.Builder
	var toolCalls []llm.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				content.WriteString(*block.Text)
			}
		case anthropic.MessagesContentTypeToolUse:
			if block.MessageContentToolUse == nil {
				continue
			}
			args := string(block.MessageContentToolUse.Input)
			if args == "" {
				args = "{}"
			}
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:       block.MessageContentToolUse.ID,
				Type:     "function",
				Function: llm.Function{Name: block.MessageContentToolUse.Name, Arguments: args},
			})
		}
	}

	model := string(anthReq.Model)
	var usage *llm.Usage
	if resp.Usage.OutputTokens > 0 {
		modelInfo, _ := llm.GetModel(model)
		usage = &llm.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
			Cost:         modelInfo.EstimateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		}
	}

	return &llm.Response{
		Content:      content.String(),
		Role:         "assistant",
		Model:        model,
		Provider:     llm.ProviderAnthropic,
		Usage:        usage,
		FinishReason: string(resp.StopReason),
		ToolCalls:    toolCalls,
		Meta:         map[string]string{"id": resp.ID},
	}, nil
}

// buildRequest folds system messages into the system prompt and groups
// consecutive tool results into a single user turn, which the Messages API
// requires after an assistant tool_use turn.
func (c *Client) buildRequest(req *llm.ChatRequest) anthropic.MessagesRequest {
	systemPrompt := req.SystemPrompt
	var messages []anthropic.Message

	appendUser := func(content anthropic.MessageContent) {
		if n := len(messages); n > 0 && messages[n-1].Role == anthropic.RoleUser {
			messages[n-1].Content = append(messages[n-1].Content, content)
			return
		}
		messages = append(messages, anthropic.Message{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{content},
		})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
		case "assistant":
			var blocks []anthropic.MessageContent
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input := json.RawMessage(tc.Function.Arguments)
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropic.NewToolUseMessageContent(tc.ID, tc.Function.Name, input))
			}
			if len(blocks) == 0 {
				continue
			}
			messages = append(messages, anthropic.Message{Role: anthropic.RoleAssistant, Content: blocks})
		case "tool":
			appendUser(anthropic.NewToolResultMessageContent(msg.ToolCallID, msg.Content, false))
		default:
			appendUser(anthropic.NewTextMessageContent(msg.Content))
		}
	}

	model := c.config.Model
	if req.Model != "" {
		model = req.Model
	}

	anthReq := anthropic.MessagesRequest{
		Model:         anthropic.Model(model),
		Messages:      messages,
		MaxTokens:     c.config.MaxTokens,
		System:        systemPrompt,
		StopSequences: req.Stop,
	}
	temp := float32(c.config.Temperature)
	if req.Temperature != nil {
		temp = float32(*req.Temperature)
	}
	anthReq.Temperature = &temp
	if req.MaxTokens != nil {
		anthReq.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		p := float32(*req.TopP)
		anthReq.TopP = &p
	}

	for _, tool := range req.Tools {
		schema := tool.Function.Parameters
		if schema == nil {
			schema = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}
		anthReq.Tools = append(anthReq.Tools, anthropic.ToolDefinition{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: schema,
		})
	}
	return anthReq
}

// Completion implements llm.Client interface
func (c *Client) Completion(ctx context.Context, prompt string) (*llm.Response, error) {
	return c.Chat(ctx, &llm.ChatRequest{
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
}

// Stream implements llm.Client interface
func (c *Client) Stream(ctx context.Context, req *llm.ChatRequest, output chan<- *llm.Response) error {
	defer close(output)

	start := time.Now()
	anthReq := c.buildRequest(req)
	streamReq := anthropic.MessagesStreamRequest{
		MessagesRequest: anthReq,
		OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
			if data.Delta.Text == nil || *data.Delta.Text == "" {
				return
			}
			resp := &llm.Response{
				Content:   *data.Delta.Text,
				Role:      "assistant",
				Model:     string(anthReq.Model),
				Provider:  llm.ProviderAnthropic,
				Latency:   time.Since(start),
				Timestamp: start,
				Meta:      map[string]string{"streaming": "true"},
			}
			select {
			case output <- resp:
			case <-ctx.Done():
			}
		},
	}

	if _, err := c.client.CreateMessagesStream(ctx, streamReq); err != nil {
		return convertError(err)
	}
	return nil
}

// convertError converts Anthropic SDK errors to LLM errors
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		llmErr := llm.ParseHTTPError(llm.ProviderAnthropic, reqErr.StatusCode, reqErr.Error())
		llmErr.Cause = err
		return llmErr
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		errType := llm.ErrorTypeUnknown
		switch {
		case apiErr.IsRateLimitErr():
			errType = llm.ErrorTypeRateLimit
		case apiErr.IsOverloadedErr(), apiErr.IsApiErr():
			errType = llm.ErrorTypeServerError
		case apiErr.IsAuthenticationErr():
			errType = llm.ErrorTypeAuthentication
		case apiErr.IsPermissionErr():
			errType = llm.ErrorTypePermission
		case apiErr.IsNotFoundErr():
			errType = llm.ErrorTypeNotFound
		case apiErr.IsInvalidRequestErr():
			errType = llm.ErrorTypeInvalidRequest
		}
		llmErr := llm.NewLLMErrorWithCause(llm.ProviderAnthropic, errType, apiErr.Message, err)
		llmErr.Code = string(apiErr.Type)
		return llmErr
	}

	return llm.ClassifyTransportError(llm.ProviderAnthropic, err)
}

// Model implements llm.Client interface
func (c *Client) Model() string { return c.config.Model }

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider { return llm.ProviderAnthropic }

// Validate implements llm.Client interface
func (c *Client) Validate() error { return validateConfig(c.config) }

var _ llm.Client = (*Client)(nil)
