package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
)

// Client implements the llm.Client interface for OpenAI
type Client struct {
	client  *openai.Client
	config  Config
	retrier *llm.Retrier
}

// Config holds OpenAI-specific configuration
type Config struct {
	APIKey      string          `json:"api_key"`
	Model       string          `json:"model"` // e.g., "gpt-4o", "gpt-4o-mini"
	BaseURL     string          `json:"base_url,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
	RetryConfig llm.RetryConfig `json:"retry_config,omitempty"`
	// DisableRetry makes every call a single attempt.
	DisableRetry bool   `json:"disable_retry,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// NewClient creates a new OpenAI client
func NewClient(config Config) (*Client, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.Model == "" {
		config.Model = llm.ModelGPT4oMini
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.DisableRetry {
		config.RetryConfig = llm.RetryConfig{}
	} else if config.RetryConfig.MaxRetries == 0 {
		config.RetryConfig = llm.DefaultRetryConfig()
	}

	openaiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		openaiConfig.BaseURL = config.BaseURL
	}
	if config.Organization != "" {
		openaiConfig.OrgID = config.Organization
	}
	openaiConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Client{
		client:  openai.NewClientWithConfig(openaiConfig),
		config:  config,
		retrier: llm.NewRetrier(config.RetryConfig),
	}, nil
}

func validateConfig(config Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if config.Model != "" {
		if p, err := llm.ProviderForModel(config.Model); err != nil || p != llm.ProviderOpenAI {
			return fmt.Errorf("model %s is not an OpenAI model", config.Model)
		}
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
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
	oaiReq := c.buildRequest(req)

	resp, err := c.client.CreateChatCompletion(ctx, oaiReq)
	if err != nil {
		return nil, convertError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.NewLLMError(llm.ProviderOpenAI, llm.ErrorTypeUnknown, "no choices returned")
	}

	choice := resp.Choices[0]
	var toolCalls []llm.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, llm.ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			Function: llm.Function{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	var usage *llm.Usage
	if resp.Usage.TotalTokens > 0 {
		modelInfo, _ := llm.GetModel(oaiReq.Model)
		usage = &llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
			Cost:         modelInfo.EstimateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		}
	}

	return &llm.Response{
		Content:      choice.Message.Content,
		Role:         "assistant",
		Model:        oaiReq.Model,
		Provider:     llm.ProviderOpenAI,
		Usage:        usage,
		FinishReason: string(choice.FinishReason),
		ToolCalls:    toolCalls,
		Meta: map[string]string{
			"id":      resp.ID,
			"created": fmt.Sprintf("%d", resp.Created),
		},
	}, nil
}

// buildRequest converts a provider-neutral request, including assistant tool
// calls and tool results, into the OpenAI wire shape.
func (c *Client) buildRequest(req *llm.ChatRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, msg := range req.Messages {
		oaiMsg := openai.ChatCompletionMessage{Content: msg.Content}
		switch msg.Role {
		case "system":
			oaiMsg.Role = openai.ChatMessageRoleSystem
		case "assistant":
			oaiMsg.Role = openai.ChatMessageRoleAssistant
			for _, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
		case "tool":
			oaiMsg.Role = openai.ChatMessageRoleTool
			oaiMsg.ToolCallID = msg.ToolCallID
		default:
			oaiMsg.Role = openai.ChatMessageRoleUser
		}
		messages = append(messages, oaiMsg)
	}

	model := c.config.Model
	if req.Model != "" {
		model = req.Model
	}

	oaiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(c.config.Temperature),
		MaxTokens:   c.config.MaxTokens,
		Stop:        req.Stop,
		User:        req.User,
	}
	if req.Temperature != nil {
		oaiReq.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		oaiReq.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		oaiReq.TopP = float32(*req.TopP)
	}

	for _, tool := range req.Tools {
		oaiReq.Tools = append(oaiReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}
	if len(oaiReq.Tools) > 0 && req.ToolChoice != nil {
		oaiReq.ToolChoice = req.ToolChoice
	}
	return oaiReq
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

	oaiReq := c.buildRequest(req)
	oaiReq.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, oaiReq)
	if err != nil {
		return convertError(err)
	}
	defer stream.Close()

	start := time.Now()
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return convertError(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		resp := &llm.Response{
			Content:      choice.Delta.Content,
			Role:         "assistant",
			Model:        oaiReq.Model,
			Provider:     llm.ProviderOpenAI,
			FinishReason: string(choice.FinishReason),
			Latency:      time.Since(start),
			Timestamp:    start,
			Meta:         map[string]string{"id": chunk.ID, "streaming": "true"},
		}
		select {
		case output <- resp:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// convertError converts OpenAI SDK errors to LLM errors
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		llmErr := llm.ParseHTTPError(llm.ProviderOpenAI, apiErr.HTTPStatusCode, apiErr.Message)
		if code, ok := apiErr.Code.(string); ok {
			llmErr.Code = code
		}
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests &&
			strings.Contains(strings.ToLower(apiErr.Message), "try again in") {
			llmErr.RetryAfter = 60
		}
		llmErr.Cause = err
		return llmErr
	}

	return llm.ClassifyTransportError(llm.ProviderOpenAI, err)
}

// Model implements llm.Client interface
func (c *Client) Model() string { return c.config.Model }

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider { return llm.ProviderOpenAI }

// Validate implements llm.Client interface
func (c *Client) Validate() error { return validateConfig(c.config) }

var _ llm.Client = (*Client)(nil)
