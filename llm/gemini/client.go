package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
	"google.golang.org/genai"
)

// Client implements the llm.Client interface on the Gemini API, either the
// public endpoint (API key) or Vertex AI (project and location).
type Client struct {
	client  *genai.Client
	config  Config
	retrier *llm.Retrier
}

// Config holds Gemini-specific configuration
type Config struct {
	APIKey      string          `json:"api_key,omitempty"`
	Model       string          `json:"model"`
	VertexAI    bool            `json:"vertex_ai,omitempty"`
	Project     string          `json:"project,omitempty"`
	Location    string          `json:"location,omitempty"`
	BaseURL     string          `json:"base_url,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
	RetryConfig llm.RetryConfig `json:"retry_config,omitempty"`
	// DisableRetry makes every call a single attempt.
	DisableRetry bool         `json:"disable_retry,omitempty"`
	HTTPClient   *http.Client `json:"-"`
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Model == "" {
		config.Model = llm.ModelGemini20FlashExp
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

	cc := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: config.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: config.BaseURL,
			Timeout: &config.Timeout,
		},
	}
	if config.VertexAI {
		cc.APIKey = ""
		cc.Backend = genai.BackendVertexAI
		cc.Project = config.Project
		cc.Location = config.Location
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{
		client:  client,
		config:  config,
		retrier: llm.NewRetrier(config.RetryConfig),
	}, nil
}

func validateConfig(config Config) error {
	if config.VertexAI {
		if config.Project == "" || config.Location == "" {
			return fmt.Errorf("project and location are required for Vertex AI")
		}
	} else if config.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if config.Model != "" {
		if p, err := llm.ProviderForModel(config.Model); err != nil || p != llm.ProviderGemini {
			return fmt.Errorf("model %s is not a Gemini model", config.Model)
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
	model, contents, cfg := c.buildRequest(req)

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, convertError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, llm.NewLLMError(llm.ProviderGemini, llm.ErrorTypeUnknown, "no candidates returned")
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	var toolCalls []llm.ToolCall
	for _, part := range cand.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
		if fc := part.FunctionCall; fc != nil {
			args, _ := json.Marshal(fc.Args)
			if fc.Args == nil {
				args = []byte("{}")
			}
			id := fc.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:       id,
				Type:     "function",
				Function: llm.Function{Name: fc.Name, Arguments: string(args)},
			})
		}
	}

	var usage *llm.Usage
	if um := resp.UsageMetadata; um != nil {
		in, out := int(um.PromptTokenCount), int(um.CandidatesTokenCount)
		modelInfo, _ := llm.GetModel(model)
		usage = &llm.Usage{
			InputTokens:  in,
			OutputTokens: out,
			TotalTokens:  int(um.TotalTokenCount),
			Cost:         modelInfo.EstimateCost(in, out),
		}
	}

	return &llm.Response{
		Content:      text.String(),
		Role:         "assistant",
		Model:        model,
		Provider:     llm.ProviderGemini,
		Usage:        usage,
		FinishReason: strings.ToLower(string(cand.FinishReason)),
		ToolCalls:    toolCalls,
		Meta:         map[string]string{"id": resp.ResponseID, "model_version": resp.ModelVersion},
	}, nil
}

// buildRequest maps the conversation onto Gemini contents. Tool results are
// sent as function responses under the tool's name, so tool messages must
// carry Name.
func (c *Client) buildRequest(req *llm.ChatRequest) (string, []*genai.Content, *genai.GenerateContentConfig) {
	systemPrompt := req.SystemPrompt
	var contents []*genai.Content

	appendParts := func(role string, parts ...*genai.Part) {
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			return
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
		case "assistant":
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
				part := genai.NewPartFromFunctionCall(tc.Function.Name, args)
				part.FunctionCall.ID = tc.ID
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				appendParts(genai.RoleModel, parts...)
			}
		case "tool":
			part := genai.NewPartFromFunctionResponse(msg.Name, toolResponse(msg.Content))
			part.FunctionResponse.ID = msg.ToolCallID
			appendParts(genai.RoleUser, part)
		default:
			appendParts(genai.RoleUser, genai.NewPartFromText(msg.Content))
		}
	}

	model := c.config.Model
	if req.Model != "" {
		model = req.Model
	}

	temp := float32(c.config.Temperature)
	if req.Temperature != nil {
		temp = float32(*req.Temperature)
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(c.config.MaxTokens),
		StopSequences:   req.Stop,
	}
	if req.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*req.MaxTokens)
	}
	if req.TopP != nil {
		p := float32(*req.TopP)
		cfg.TopP = &p
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			decl := &genai.FunctionDeclaration{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
			}
			if tool.Function.Parameters != nil {
				decl.ParametersJsonSchema = tool.Function.Parameters
			}
			decls = append(decls, decl)
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return model, contents, cfg
}

// toolResponse wraps a tool's textual result in the object shape Gemini
// expects. JSON objects pass through; anything else lands under "result".
func toolResponse(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	var v any
	if err := json.Unmarshal([]byte(content), &v); err == nil {
		return map[string]any{"result": v}
	}
	return map[string]any{"result": content}
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
	model, contents, cfg := c.buildRequest(req)
	for chunk, err := range c.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
		if err != nil {
			return convertError(err)
		}
		if len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
			continue
		}
		var text strings.Builder
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
		resp := &llm.Response{
			Content:      text.String(),
			Role:         "assistant",
			Model:        model,
			Provider:     llm.ProviderGemini,
			FinishReason: strings.ToLower(string(chunk.Candidates[0].FinishReason)),
			Latency:      time.Since(start),
			Timestamp:    start,
			Meta:         map[string]string{"streaming": "true"},
		}
		select {
		case output <- resp:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// convertError converts genai errors to LLM errors
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		llmErr := llm.ParseHTTPError(llm.ProviderGemini, apiErr.Code, apiErr.Message)
		llmErr.Code = apiErr.Status
		llmErr.Cause = err
		return llmErr
	}
	return llm.ClassifyTransportError(llm.ProviderGemini, err)
}

// Model implements llm.Client interface
func (c *Client) Model() string { return c.config.Model }

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider { return llm.ProviderGemini }

// Validate implements llm.Client interface
func (c *Client) Validate() error { return validateConfig(c.config) }

var _ llm.Client = (*Client)(nil)
